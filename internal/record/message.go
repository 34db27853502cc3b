// Package record defines the unified conversation record model shared by
// the ingestion pipeline, chunker, storage layer and retrieval router.
package record

import (
	"sort"
	"strings"
	"time"
)

// Source identifies which export format a record was normalized from.
type Source string

const (
	SourceChatGPT     Source = "chatgpt"
	SourceClaude      Source = "claude"
	SourceDiscord     Source = "discord"
	SourceGenericJSON Source = "generic_json"
	SourceSessionLog  Source = "session_log"
)

// Message is the unified record produced by format normalization.
// Timestamp is nil when the source carried no parseable time; it is never
// a raw unparsed string past the normalizer boundary.
type Message struct {
	Content           string     `json:"content"`
	Timestamp         *time.Time `json:"timestamp,omitempty"`
	Role              string     `json:"role"`
	SessionID         string     `json:"session_id,omitempty"`
	Source            Source     `json:"source"`
	SourceFile        string     `json:"source_file"`
	ConversationID    string     `json:"conversation_id,omitempty"`
	ConversationTitle string     `json:"conversation_title,omitempty"`
	Channel           string     `json:"channel,omitempty"`
}

// Chunk is a Message slice derived by the chunker. ChunkIndex is the
// 0-based position among chunks of the same source message and
// OriginalLength the character length of the un-chunked content.
type Chunk struct {
	Message
	ChunkIndex     int `json:"chunk_index"`
	OriginalLength int `json:"original_length"`
}

// SortByTimestamp orders records ascending by timestamp in place.
// Records without a timestamp sort after all timestamped ones; ties and
// untimestamped records keep their original relative order.
func SortByTimestamp(records []Message) {
	sort.SliceStable(records, func(i, j int) bool {
		a, b := records[i].Timestamp, records[j].Timestamp
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.Before(*b)
		}
	})
}

// FilterByDateRange returns the records whose timestamp falls inside the
// inclusive [start, end] range. A nil bound is open. Records without a
// timestamp are dropped whenever at least one bound is set.
func FilterByDateRange(records []Message, start, end *time.Time) []Message {
	if start == nil && end == nil {
		return records
	}
	filtered := make([]Message, 0, len(records))
	for _, r := range records {
		if r.Timestamp == nil {
			continue
		}
		if start != nil && r.Timestamp.Before(*start) {
			continue
		}
		if end != nil && r.Timestamp.After(*end) {
			continue
		}
		filtered = append(filtered, r)
	}
	return filtered
}

// SearchContent returns the records whose content contains the query as a
// plain substring.
func SearchContent(records []Message, query string, caseSensitive bool) []Message {
	if !caseSensitive {
		query = strings.ToLower(query)
	}
	var results []Message
	for _, r := range records {
		content := r.Content
		if !caseSensitive {
			content = strings.ToLower(content)
		}
		if strings.Contains(content, query) {
			results = append(results, r)
		}
	}
	return results
}
