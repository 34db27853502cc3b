// Package chunk splits long message content into overlapping fixed-size
// character windows suitable for embedding.
package chunk

import (
	"errors"
	"fmt"

	"github.com/plugmemory/plugmem/internal/record"
)

// ErrInvalidChunking reports chunk parameters that would never advance the
// window (overlap >= size) or a non-positive window.
var ErrInvalidChunking = errors.New("invalid chunk parameters")

const (
	// DefaultSize is the default chunk window in characters.
	DefaultSize = 1000
	// DefaultOverlap is the default number of trailing characters repeated
	// at the start of the next chunk.
	DefaultOverlap = 200
)

// Chunker produces overlapping character windows over text content.
// Splitting is a pure function of (content, size, overlap).
type Chunker struct {
	size    int
	overlap int
}

// New creates a Chunker. Requires size > overlap >= 0; anything else is a
// configuration error since the window would loop or never advance.
func New(size, overlap int) (*Chunker, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: size %d must be positive", ErrInvalidChunking, size)
	}
	if overlap < 0 || overlap >= size {
		return nil, fmt.Errorf("%w: overlap %d must satisfy 0 <= overlap < size (%d)",
			ErrInvalidChunking, overlap, size)
	}
	return &Chunker{size: size, overlap: overlap}, nil
}

// Size returns the chunk window in characters.
func (c *Chunker) Size() int { return c.size }

// Overlap returns the overlap between consecutive chunks in characters.
func (c *Chunker) Overlap() int { return c.overlap }

// Split cuts text into windows of at most Size characters, each starting
// Size-Overlap characters after the previous one. Content no longer than
// the window yields exactly one chunk; empty content yields none.
func (c *Chunker) Split(text string) []string {
	if text == "" {
		return nil
	}
	if len(text) <= c.size {
		return []string{text}
	}

	step := c.size - c.overlap
	chunks := make([]string, 0, (len(text)+step-1)/step)
	for offset := 0; offset < len(text); offset += step {
		end := offset + c.size
		if end > len(text) {
			end = len(text)
		}
		chunks = append(chunks, text[offset:end])
	}
	return chunks
}

// SplitRecords chunks every message's content, carrying all message fields
// into each chunk along with its 0-based index and the original content
// length. Messages with empty content are dropped.
func (c *Chunker) SplitRecords(records []record.Message) []record.Chunk {
	var out []record.Chunk
	for _, msg := range records {
		if msg.Content == "" {
			continue
		}
		for i, piece := range c.Split(msg.Content) {
			chunk := record.Chunk{
				Message:        msg,
				ChunkIndex:     i,
				OriginalLength: len(msg.Content),
			}
			chunk.Content = piece
			out = append(out, chunk)
		}
	}
	return out
}
