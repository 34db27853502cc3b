package source

import (
	"encoding/json"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/plugmemory/plugmem/internal/record"
)

// sessionFile is the session JSON log schema: a top-level object carrying
// its messages directly.
type sessionFile struct {
	SessionID string           `json:"session_id"`
	Messages  []sessionMessage `json:"messages"`
}

type sessionMessage struct {
	Content   string `json:"content"`
	Timestamp string `json:"timestamp"`
	Role      string `json:"role"`
	Type      string `json:"type"`
}

// logEntry covers the checkpoint/logs file variants: flat lists where the
// text sits either in a message field or in the first parts element.
type logEntry struct {
	Message   string    `json:"message"`
	Parts     []logPart `json:"parts"`
	Timestamp string    `json:"timestamp"`
	Type      string    `json:"type"`
	Role      string    `json:"role"`
	SessionID string    `json:"sessionId"`
}

type logPart struct {
	Text string `json:"text"`
}

// FindSessionFiles recursively finds session exports under root: files
// named session-*.json inside a chats directory, plus checkpoint*.json and
// logs.json anywhere in the tree.
func FindSessionFiles(root string) []string {
	var files []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil || d.IsDir() {
			return nil
		}
		base := d.Name()
		switch {
		case strings.HasPrefix(base, "session-") && strings.HasSuffix(base, ".json") &&
			filepath.Base(filepath.Dir(path)) == "chats":
			files = append(files, path)
		case strings.HasPrefix(base, "checkpoint") && strings.HasSuffix(base, ".json"):
			files = append(files, path)
		case base == "logs.json":
			files = append(files, path)
		}
		return nil
	})
	return files
}

// NormalizeSessionFile maps one session export into unified records.
// The session id defaults to the file's base name without extension when
// the payload carries none.
func NormalizeSessionFile(path string) ([]record.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	// Checkpoint and log files share a list root.
	trimmed := strings.TrimLeft(string(data), " \t\r\n")
	if strings.HasPrefix(trimmed, "[") {
		return normalizeLogEntries(data, path)
	}

	var session sessionFile
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, err
	}

	sessionID := session.SessionID
	if sessionID == "" {
		base := filepath.Base(path)
		sessionID = strings.TrimSuffix(base, filepath.Ext(base))
	}

	records := make([]record.Message, 0, len(session.Messages))
	for _, msg := range session.Messages {
		role := msg.Role
		if role == "" {
			role = msg.Type
		}
		if role == "" {
			role = "unknown"
		}
		records = append(records, record.Message{
			Content:    msg.Content,
			Timestamp:  record.ParseTimestamp(msg.Timestamp),
			Role:       role,
			SessionID:  sessionID,
			Source:     record.SourceSessionLog,
			SourceFile: filepath.Base(path),
		})
	}
	return records, nil
}

// normalizeLogEntries handles checkpoint*.json and logs.json payloads.
func normalizeLogEntries(data []byte, path string) ([]record.Message, error) {
	var entries []logEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, err
	}

	base := filepath.Base(path)
	defaultSession := strings.TrimSuffix(base, filepath.Ext(base))

	var records []record.Message
	for _, entry := range entries {
		content := entry.Message
		if content == "" && len(entry.Parts) > 0 {
			content = entry.Parts[0].Text
		}
		if content == "" {
			continue
		}

		role := entry.Type
		if role == "" {
			role = entry.Role
		}
		if role == "" {
			role = "unknown"
		}
		sessionID := entry.SessionID
		if sessionID == "" {
			sessionID = defaultSession
		}

		records = append(records, record.Message{
			Content:    content,
			Timestamp:  record.ParseTimestamp(entry.Timestamp),
			Role:       role,
			SessionID:  sessionID,
			Source:     record.SourceSessionLog,
			SourceFile: base,
		})
	}
	return records, nil
}
