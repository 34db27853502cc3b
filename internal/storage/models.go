package storage

import "github.com/plugmemory/plugmem/internal/record"

// ScoredRecord is a chunk record returned by vector search together with
// its similarity score, in the order the store ranked it.
type ScoredRecord struct {
	Record record.Chunk
	Score  float64
}

// DefaultCollection is the Qdrant collection holding all conversation chunks.
const DefaultCollection = "codex_history"
