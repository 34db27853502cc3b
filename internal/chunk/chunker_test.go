package chunk

import (
	"strings"
	"testing"

	"github.com/plugmemory/plugmem/internal/record"
)

// TestNew_InvalidParameters verifies configuration errors for degenerate windows.
func TestNew_InvalidParameters(t *testing.T) {
	cases := []struct {
		name    string
		size    int
		overlap int
	}{
		{"zero size", 0, 0},
		{"negative size", -10, 0},
		{"negative overlap", 100, -1},
		{"overlap equals size", 100, 100},
		{"overlap exceeds size", 100, 150},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if _, err := New(tc.size, tc.overlap); err == nil {
				t.Errorf("New(%d, %d): expected error, got nil", tc.size, tc.overlap)
			}
		})
	}
}

// TestSplit_ShortContent verifies content within the window yields one chunk.
func TestSplit_ShortContent(t *testing.T) {
	c, err := New(50, 10)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	chunks := c.Split("short message")
	if len(chunks) != 1 {
		t.Fatalf("Expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0] != "short message" {
		t.Errorf("Expected chunk to equal input, got %q", chunks[0])
	}
}

// TestSplit_EmptyContent verifies empty content yields no chunks.
func TestSplit_EmptyContent(t *testing.T) {
	c, err := New(50, 10)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	if chunks := c.Split(""); chunks != nil {
		t.Errorf("Expected nil for empty content, got %v", chunks)
	}
}

// TestSplit_ChunkCount verifies the chunk count matches ceil(L / (S - O))
// for content longer than the window.
func TestSplit_ChunkCount(t *testing.T) {
	cases := []struct {
		length  int
		size    int
		overlap int
		want    int
	}{
		{100, 50, 10, 3},  // ceil(100/40)
		{160, 50, 10, 4},  // exact multiple of step
		{41, 20, 5, 3},    // ceil(41/15)
		{1000, 100, 0, 10},
		{1001, 100, 0, 11},
	}

	for _, tc := range cases {
		c, err := New(tc.size, tc.overlap)
		if err != nil {
			t.Fatalf("New(%d, %d) failed: %v", tc.size, tc.overlap, err)
		}
		text := strings.Repeat("x", tc.length)
		chunks := c.Split(text)
		if len(chunks) != tc.want {
			t.Errorf("Split(len=%d, size=%d, overlap=%d): expected %d chunks, got %d",
				tc.length, tc.size, tc.overlap, tc.want, len(chunks))
		}
	}
}

// TestSplit_OverlapInvariant verifies consecutive chunks share exactly the
// configured overlap and reconstruct the original text.
func TestSplit_OverlapInvariant(t *testing.T) {
	const size, overlap = 20, 5
	c, err := New(size, overlap)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	// 68 characters: windows at 0,15,30,45 are full, the final window at 60
	// holds the remaining 8 characters.
	raw := make([]byte, 68)
	for i := range raw {
		raw[i] = byte('a' + i%26)
	}
	text := string(raw)
	chunks := c.Split(text)

	for i := 0; i < len(chunks)-1; i++ {
		if len(chunks[i]) != size {
			t.Errorf("Chunk %d: expected length %d, got %d", i, size, len(chunks[i]))
		}
		tail := chunks[i][len(chunks[i])-overlap:]
		head := chunks[i+1][:overlap]
		if tail != head {
			t.Errorf("Chunk %d/%d overlap mismatch: %q vs %q", i, i+1, tail, head)
		}
	}

	// Reconstruct by stripping the overlap from every chunk after the first.
	var rebuilt strings.Builder
	rebuilt.WriteString(chunks[0])
	for _, ch := range chunks[1:] {
		rebuilt.WriteString(ch[overlap:])
	}
	if rebuilt.String() != text {
		t.Errorf("Reconstruction mismatch:\n got %q\nwant %q", rebuilt.String(), text)
	}
}

// TestSplit_Deterministic verifies splitting the same input twice is identical.
func TestSplit_Deterministic(t *testing.T) {
	c, err := New(30, 7)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}
	text := strings.Repeat("conversation memory ", 20)

	first := c.Split(text)
	second := c.Split(text)
	if len(first) != len(second) {
		t.Fatalf("Chunk counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Errorf("Chunk %d differs between runs", i)
		}
	}
}

// TestSplitRecords verifies provenance fields on derived chunks.
func TestSplitRecords(t *testing.T) {
	c, err := New(50, 10)
	if err != nil {
		t.Fatalf("New failed: %v", err)
	}

	long := strings.Repeat("long message content ", 10) // 210 chars
	records := []record.Message{
		{Content: "short", SessionID: "s1", Source: record.SourceSessionLog, SourceFile: "session-1.json"},
		{Content: long, SessionID: "s2", Source: record.SourceSessionLog, SourceFile: "session-2.json"},
		{Content: "", SessionID: "s3"}, // dropped
	}

	chunks := c.SplitRecords(records)

	wantLong := (len(long) + 39) / 40 // ceil(210/40) = 6
	if len(chunks) != 1+wantLong {
		t.Fatalf("Expected %d chunks, got %d", 1+wantLong, len(chunks))
	}

	// Short message passes through as a single chunk.
	if chunks[0].ChunkIndex != 0 || chunks[0].OriginalLength != len("short") {
		t.Errorf("Short chunk provenance wrong: index=%d len=%d",
			chunks[0].ChunkIndex, chunks[0].OriginalLength)
	}
	if chunks[0].SessionID != "s1" {
		t.Errorf("Chunk lost session id: got %q", chunks[0].SessionID)
	}

	// Long message chunks are indexed in order and keep the original length.
	for i, ch := range chunks[1:] {
		if ch.ChunkIndex != i {
			t.Errorf("Chunk %d: expected index %d, got %d", i, i, ch.ChunkIndex)
		}
		if ch.OriginalLength != len(long) {
			t.Errorf("Chunk %d: expected original length %d, got %d", i, len(long), ch.OriginalLength)
		}
		if ch.SourceFile != "session-2.json" {
			t.Errorf("Chunk %d lost source file: got %q", i, ch.SourceFile)
		}
	}
}
