package source

import (
	"encoding/json"
	"os"

	"github.com/plugmemory/plugmem/internal/record"
)

// claudeExport is the Claude export schema: a root object with a
// conversations list. Role comes from the sender field and created_at is
// an ISO-like string parsed best-effort.
type claudeExport struct {
	Conversations []claudeConversation `json:"conversations"`
}

type claudeConversation struct {
	UUID     string          `json:"uuid"`
	Messages []claudeMessage `json:"messages"`
}

type claudeMessage struct {
	Content   string `json:"content"`
	CreatedAt string `json:"created_at"`
	Sender    string `json:"sender"`
}

// NormalizeClaudeFile maps one Claude export file into unified records.
func NormalizeClaudeFile(path string) ([]record.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var export claudeExport
	if err := json.Unmarshal(data, &export); err != nil {
		return nil, err
	}

	var records []record.Message
	for _, conv := range export.Conversations {
		for _, msg := range conv.Messages {
			role := msg.Sender
			if role == "" {
				role = "unknown"
			}
			records = append(records, record.Message{
				Content:        msg.Content,
				Timestamp:      record.ParseTimestamp(msg.CreatedAt),
				Role:           role,
				Source:         record.SourceClaude,
				SourceFile:     path,
				ConversationID: conv.UUID,
			})
		}
	}
	return records, nil
}
