package mcp

import (
	"context"
	"errors"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/plugmemory/plugmem/internal/hybrid"
	"github.com/plugmemory/plugmem/internal/source"
)

// Querier is the retrieval surface the tool handlers need. The hybrid
// router implements it.
type Querier interface {
	Query(ctx context.Context, query string, opts hybrid.Options) hybrid.Result
	Stats(ctx context.Context) (hybrid.MemoryStats, error)
}

// makeQueryHandler creates the query_memory tool handler.
// The router decides between fast vector search and conversational
// reasoning; dependency failures come back as tool errors, soft outcomes
// (empty query, no matches) as labeled results.
func makeQueryHandler(router Querier) func(
	context.Context, *mcp.CallToolRequest, QueryMemoryInput,
) (*mcp.CallToolResult, QueryMemoryOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input QueryMemoryInput) (
		*mcp.CallToolResult, QueryMemoryOutput, error,
	) {
		res := router.Query(ctx, input.Query, hybrid.Options{
			Limit:        input.Limit,
			UseReasoning: input.UseReasoning,
		})
		if res.Failed() {
			return nil, QueryMemoryOutput{}, errors.New(res.Err)
		}
		return nil, outputFromResult(res), nil
	}
}

// makeStatsHandler creates the memory_stats tool handler.
func makeStatsHandler(router Querier, collection string) func(
	context.Context, *mcp.CallToolRequest, MemoryStatsInput,
) (*mcp.CallToolResult, MemoryStatsOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input MemoryStatsInput) (
		*mcp.CallToolResult, MemoryStatsOutput, error,
	) {
		stats, err := router.Stats(ctx)
		if err != nil {
			return nil, MemoryStatsOutput{}, fmt.Errorf("failed to read memory stats: %w", err)
		}
		return nil, MemoryStatsOutput{
			TotalMemories:     stats.TotalMemories,
			Collection:        collection,
			ConversationTurns: stats.ConversationTurns,
		}, nil
	}
}

// makeListSourcesHandler creates the list_sources tool handler.
func makeListSourcesHandler(descriptors func() []source.Descriptor) func(
	context.Context, *mcp.CallToolRequest, ListSourcesInput,
) (*mcp.CallToolResult, ListSourcesOutput, error) {
	return func(ctx context.Context, req *mcp.CallToolRequest, input ListSourcesInput) (
		*mcp.CallToolResult, ListSourcesOutput, error,
	) {
		sources := sourceInfos(descriptors())
		return nil, ListSourcesOutput{
			Sources: sources,
			Count:   len(sources),
		}, nil
	}
}
