package source

import (
	"encoding/json"
	"os"

	"github.com/plugmemory/plugmem/internal/record"
)

// genericListKeys is the ordered key preference used when a generic JSON
// root object is probed for a message list.
var genericListKeys = []string{"messages", "conversations", "chats", "data"}

// NormalizeGenericJSONFile extracts messages best-effort from an arbitrary
// JSON file. A list root keeps object entries carrying a content key; an
// object root is probed for the first well-known key holding a list.
func NormalizeGenericJSONFile(path string) ([]record.Message, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var root any
	if err := json.Unmarshal(data, &root); err != nil {
		return nil, err
	}

	var items []any
	switch v := root.(type) {
	case []any:
		for _, item := range v {
			obj, ok := item.(map[string]any)
			if !ok {
				continue
			}
			if _, hasContent := obj["content"]; hasContent {
				items = append(items, obj)
			}
		}
	case map[string]any:
		for _, key := range genericListKeys {
			list, ok := v[key].([]any)
			if !ok {
				continue
			}
			for _, item := range list {
				if _, isObj := item.(map[string]any); isObj {
					items = append(items, item)
				}
			}
			break
		}
	}

	records := make([]record.Message, 0, len(items))
	for _, item := range items {
		obj := item.(map[string]any)
		records = append(records, genericRecord(obj, path))
	}
	return records, nil
}

// genericRecord maps a loose JSON object onto the record schema, dropping
// fields that do not fit.
func genericRecord(obj map[string]any, path string) record.Message {
	msg := record.Message{
		Content:    stringField(obj, "content"),
		Role:       "unknown",
		SessionID:  stringField(obj, "session_id"),
		Source:     record.SourceGenericJSON,
		SourceFile: path,
	}

	for _, key := range []string{"role", "sender", "author"} {
		if v := stringField(obj, key); v != "" {
			msg.Role = v
			break
		}
	}

	switch ts := obj["timestamp"].(type) {
	case string:
		msg.Timestamp = record.ParseTimestamp(ts)
	case float64:
		msg.Timestamp = record.FromEpochSeconds(ts)
	}

	return msg
}

func stringField(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}
