// Package ingest orchestrates ingestion runs: per-source file discovery,
// normalization, time-ordering, statistics, and optional indexing of the
// resulting chunks into the vector store.
package ingest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/plugmemory/plugmem/internal/chunk"
	"github.com/plugmemory/plugmem/internal/record"
	"github.com/plugmemory/plugmem/internal/source"
)

// Embedder generates embeddings for chunk texts.
type Embedder interface {
	GenerateEmbeddings(ctx context.Context, texts []string) ([][]float32, error)
}

// Store persists embedded chunks.
type Store interface {
	UpsertChunks(ctx context.Context, chunks []record.Chunk, embeddings [][]float32, ids []string) error
}

// FailedFile records one export file that could not be normalized.
type FailedFile struct {
	Path   string
	Reason string
}

// Result contains the aggregated records and statistics of an ingestion run.
type Result struct {
	Records        []record.Message
	Stats          record.Statistics
	SourceCount    int
	FilesProcessed int
	FailedFiles    []FailedFile
	Duration       time.Duration
}

// IndexResult contains statistics about an indexing operation.
type IndexResult struct {
	TotalRecords int
	TotalChunks  int
	Duration     time.Duration
}

// Pipeline walks configured sources, normalizes their export files into
// unified records, and optionally chunks, embeds and stores them.
type Pipeline struct {
	chunker  *chunk.Chunker
	embedder Embedder
	store    Store
	logger   *slog.Logger
}

// NewPipeline creates an ingestion pipeline. The embedder and store may be
// nil when only Run (no indexing) is needed.
func NewPipeline(chunker *chunk.Chunker, embedder Embedder, store Store, logger *slog.Logger) *Pipeline {
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		chunker:  chunker,
		embedder: embedder,
		store:    store,
		logger:   logger,
	}
}

// Run discovers and normalizes every export file across the given sources,
// aggregates the records and time-orders them (records without timestamps
// sort after timestamped ones, preserving discovery order among
// themselves). Per-file failures are recorded and skipped; a run over zero
// files returns an empty result, not an error.
func (p *Pipeline) Run(ctx context.Context, descriptors []source.Descriptor) (*Result, error) {
	start := time.Now()
	result := &Result{SourceCount: len(descriptors)}

	for _, desc := range descriptors {
		files := source.DiscoverFiles(desc)
		p.logger.Info("Discovered export files", "source", desc.Name, "type", desc.Type, "files", len(files))

		for _, path := range files {
			if err := ctx.Err(); err != nil {
				return nil, err
			}

			msgs, err := source.NormalizeFile(desc.Type, path)
			if err != nil {
				p.logger.Warn("Failed to normalize file", "path", path, "error", err)
				result.FailedFiles = append(result.FailedFiles, FailedFile{
					Path:   path,
					Reason: err.Error(),
				})
				continue
			}
			result.FilesProcessed++
			result.Records = append(result.Records, msgs...)
		}
	}

	record.SortByTimestamp(result.Records)
	result.Stats = record.ComputeStatistics(result.Records)
	result.Duration = time.Since(start)

	p.logger.Info("Ingestion complete",
		"sources", result.SourceCount,
		"files", result.FilesProcessed,
		"failed", len(result.FailedFiles),
		"records", len(result.Records),
		"duration", result.Duration,
	)
	return result, nil
}

// Index chunks the given records, embeds every chunk and upserts them into
// the store. Records with empty content are dropped before chunking.
func (p *Pipeline) Index(ctx context.Context, records []record.Message) (*IndexResult, error) {
	if p.embedder == nil || p.store == nil {
		return nil, fmt.Errorf("indexing requires an embedder and a store")
	}

	start := time.Now()
	chunks := p.chunker.SplitRecords(records)
	p.logger.Info("Chunked records", "records", len(records), "chunks", len(chunks))

	if len(chunks) == 0 {
		return &IndexResult{TotalRecords: len(records), Duration: time.Since(start)}, nil
	}

	texts := make([]string, len(chunks))
	for i, ch := range chunks {
		texts[i] = ch.Content
	}

	embeddings, err := p.embedder.GenerateEmbeddings(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embeddings: %w", err)
	}

	ids := make([]string, len(chunks))
	for i := range ids {
		ids[i] = uuid.New().String()
	}

	if err := p.store.UpsertChunks(ctx, chunks, embeddings, ids); err != nil {
		return nil, fmt.Errorf("store chunks: %w", err)
	}

	p.logger.Info("Indexed chunks", "chunks", len(chunks), "duration", time.Since(start))
	return &IndexResult{
		TotalRecords: len(records),
		TotalChunks:  len(chunks),
		Duration:     time.Since(start),
	}, nil
}
