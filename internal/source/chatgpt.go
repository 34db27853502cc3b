package source

import (
	"encoding/json"
	"os"

	"github.com/plugmemory/plugmem/internal/record"
)

// chatgptConversation is the ChatGPT export schema: conversations.json
// holds a list of conversations with nested messages. Timestamps are Unix
// epoch seconds, possibly fractional.
type chatgptConversation struct {
	ID       string           `json:"id"`
	Title    string           `json:"title"`
	Messages []chatgptMessage `json:"messages"`
}

type chatgptMessage struct {
	Content    string  `json:"content"`
	CreateTime float64 `json:"create_time"`
	Role       string  `json:"role"`
}

// NormalizeChatGPTFile maps one conversations.json export into unified records.
func NormalizeChatGPTFile(path string) ([]record.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var conversations []chatgptConversation
	if err := json.Unmarshal(data, &conversations); err != nil {
		return nil, err
	}

	var records []record.Message
	for _, conv := range conversations {
		title := conv.Title
		if title == "" {
			title = "Untitled"
		}
		for _, msg := range conv.Messages {
			role := msg.Role
			if role == "" {
				role = "unknown"
			}
			records = append(records, record.Message{
				Content:           msg.Content,
				Timestamp:         record.FromEpochSeconds(msg.CreateTime),
				Role:              role,
				Source:            record.SourceChatGPT,
				SourceFile:        path,
				ConversationID:    conv.ID,
				ConversationTitle: title,
			})
		}
	}
	return records, nil
}
