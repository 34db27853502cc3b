// Package mcp exposes the conversation memory system over the Model
// Context Protocol and a small REST surface.
package mcp

import (
	"github.com/plugmemory/plugmem/internal/hybrid"
	"github.com/plugmemory/plugmem/internal/source"
	"github.com/plugmemory/plugmem/internal/storage"
)

// QueryMemoryInput defines the input parameters for the query_memory tool.
type QueryMemoryInput struct {
	// Query is the question or search text to run against stored memories.
	Query string `json:"query" jsonschema:"required,description=The question or search text to run against stored conversation memories"`
	// Limit is the maximum number of matches for the fast path.
	Limit int `json:"limit,omitempty" jsonschema:"minimum=1,maximum=20,default=3,description=Maximum number of matches to return"`
	// UseReasoning overrides the automatic complexity routing.
	UseReasoning *bool `json:"use_reasoning,omitempty" jsonschema:"description=Force conversational reasoning on or off instead of automatic routing"`
}

// QueryMemoryOutput contains the routed query result.
type QueryMemoryOutput struct {
	// Query is the normalized query that was executed.
	Query string `json:"query"`
	// Method names the retrieval path that produced the result.
	Method string `json:"method,omitempty"`
	// Results is the list of matching memory excerpts.
	Results []MemoryMatch `json:"results"`
	// Count is the number of matches.
	Count int `json:"count"`
	// Answer is the reasoning-path answer, when that path ran.
	Answer string `json:"answer,omitempty"`
	// Message provides informational context (e.g. "no matching memories found").
	Message string `json:"message,omitempty"`
}

// MemoryMatch represents a single memory excerpt with its provenance.
type MemoryMatch struct {
	// Content is the chunk text.
	Content string `json:"content"`
	// Score is the similarity score (0-1).
	Score float64 `json:"score"`
	// Role is the speaker role of the originating message.
	Role string `json:"role,omitempty"`
	// Source names the export format the message came from.
	Source string `json:"source,omitempty"`
	// SourceFile is the file the message was loaded from.
	SourceFile string `json:"source_file,omitempty"`
	// SessionID identifies the originating session, when known.
	SessionID string `json:"session_id,omitempty"`
	// Timestamp is the message time in RFC 3339, when known.
	Timestamp string `json:"timestamp,omitempty"`
}

// MemoryStatsInput defines the input for the memory_stats tool.
// This tool takes no parameters.
type MemoryStatsInput struct {
	// No input parameters required
}

// MemoryStatsOutput summarizes the memory store.
type MemoryStatsOutput struct {
	// TotalMemories is the number of stored chunks.
	TotalMemories uint64 `json:"total_memories"`
	// Collection is the backing Qdrant collection name.
	Collection string `json:"collection_name"`
	// ConversationTurns is the reasoning history currently held.
	ConversationTurns int `json:"conversation_turns"`
}

// ListSourcesInput defines the input for the list_sources tool.
// This tool takes no parameters.
type ListSourcesInput struct {
	// No input parameters required
}

// SourceInfo describes one registered data source.
type SourceInfo struct {
	// Name is the registered source name.
	Name string `json:"name"`
	// Type is the export format (session_log, chatgpt, claude, discord, generic_json).
	Type string `json:"type"`
	// Path is the source's base directory.
	Path string `json:"path"`
	// Files is the number of export files currently discoverable under Path.
	Files int `json:"files"`
}

// ListSourcesOutput contains the registered data sources.
type ListSourcesOutput struct {
	// Sources is all registered sources.
	Sources []SourceInfo `json:"sources"`
	// Count is the total number of sources.
	Count int `json:"count"`
}

// sourceInfos converts registered descriptors to their wire shape,
// counting the export files each source currently resolves to.
func sourceInfos(descs []source.Descriptor) []SourceInfo {
	infos := make([]SourceInfo, 0, len(descs))
	for _, d := range descs {
		infos = append(infos, SourceInfo{
			Name:  d.Name,
			Type:  string(d.Type),
			Path:  d.Path,
			Files: len(source.DiscoverFiles(d)),
		})
	}
	return infos
}

// matchFromScored converts a scored store record to its wire shape.
func matchFromScored(m storage.ScoredRecord) MemoryMatch {
	out := MemoryMatch{
		Content:    m.Record.Content,
		Score:      m.Score,
		Role:       m.Record.Role,
		Source:     string(m.Record.Source),
		SourceFile: m.Record.SourceFile,
		SessionID:  m.Record.SessionID,
	}
	if m.Record.Timestamp != nil {
		out.Timestamp = m.Record.Timestamp.Format("2006-01-02T15:04:05Z07:00")
	}
	return out
}

// outputFromResult converts a router result to the tool output shape.
func outputFromResult(res hybrid.Result) QueryMemoryOutput {
	matches := make([]MemoryMatch, 0, len(res.Matches))
	for _, m := range res.Matches {
		matches = append(matches, matchFromScored(m))
	}
	return QueryMemoryOutput{
		Query:   res.Query,
		Method:  string(res.Method),
		Results: matches,
		Count:   res.Count,
		Answer:  res.Answer,
		Message: res.Message,
	}
}
