package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/plugmemory/plugmem/internal/source"
)

// Server wraps the MCP server with dependencies.
type Server struct {
	server *mcp.Server
	router Querier
}

// Config holds server dependencies. Sources may be nil when no registry
// is configured; list_sources then reports an empty list.
type Config struct {
	Router     Querier
	Collection string
	Sources    func() []source.Descriptor
}

// NewServer creates a configured MCP server with tools registered.
func NewServer(cfg *Config) *Server {
	impl := &mcp.Implementation{
		Name:    "plugmem-memory-server",
		Version: "v0.1.0",
	}

	server := mcp.NewServer(impl, nil)

	sources := cfg.Sources
	if sources == nil {
		sources = func() []source.Descriptor { return nil }
	}

	mcp.AddTool(server, &mcp.Tool{
		Name:        "query_memory",
		Description: "Query stored conversation memories. Simple lookups run a fast vector search; analytical questions are answered conversationally over retrieved excerpts.",
	}, makeQueryHandler(cfg.Router))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "memory_stats",
		Description: "Get memory store statistics: total stored memories, collection name, and held conversation turns.",
	}, makeStatsHandler(cfg.Router, cfg.Collection))

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_sources",
		Description: "List the registered conversation data sources and their export formats.",
	}, makeListSourcesHandler(sources))

	return &Server{
		server: server,
		router: cfg.Router,
	}
}

// Run starts the server with stdio transport (blocks until client disconnects).
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// MCPServer returns the underlying MCP server instance.
// Used by transport handlers that need to wrap the server.
func (s *Server) MCPServer() *mcp.Server {
	return s.server
}
