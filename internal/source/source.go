// Package source normalizes heterogeneous chat export formats into the
// unified record model. Each supported format has its own field-mapping
// policy; a single dispatch point selects the normalizer per descriptor.
package source

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/plugmemory/plugmem/internal/record"
)

var (
	// ErrUnknownType reports a source type outside the supported set.
	ErrUnknownType = errors.New("unknown source type")
	// ErrPathNotFound reports a descriptor path that does not exist.
	ErrPathNotFound = errors.New("source path does not exist")
)

// Type identifies a supported export format.
type Type string

const (
	TypeSessionLog  Type = "session_log"
	TypeChatGPT     Type = "chatgpt"
	TypeClaude      Type = "claude"
	TypeDiscord     Type = "discord"
	TypeGenericJSON Type = "generic_json"
)

// Types lists every supported source type.
func Types() []Type {
	return []Type{TypeSessionLog, TypeChatGPT, TypeClaude, TypeDiscord, TypeGenericJSON}
}

// ParseType validates a source type string.
func ParseType(s string) (Type, error) {
	for _, t := range Types() {
		if Type(s) == t {
			return t, nil
		}
	}
	return "", fmt.Errorf("%w: %q (available: %v)", ErrUnknownType, s, Types())
}

// Descriptor identifies one ingestible location and its format.
// Descriptors are immutable once created.
type Descriptor struct {
	Name string `json:"name" yaml:"name"`
	Path string `json:"path" yaml:"path"`
	Type Type   `json:"type" yaml:"type"`
}

// NewDescriptor builds a validated descriptor. The path must exist at
// registration time; a missing path is a configuration error.
func NewDescriptor(name, path string, typ Type) (Descriptor, error) {
	if _, err := ParseType(string(typ)); err != nil {
		return Descriptor{}, err
	}
	if _, err := os.Stat(path); err != nil {
		return Descriptor{}, fmt.Errorf("%w: %s", ErrPathNotFound, path)
	}
	return Descriptor{Name: name, Path: path, Type: typ}, nil
}

// DiscoverFiles lists the candidate export files for a descriptor using
// the format's search rule: recursive naming conventions for session logs
// and Discord, the well-known conversations.json for ChatGPT, and *.json
// globs for Claude and generic JSON.
func DiscoverFiles(desc Descriptor) []string {
	switch desc.Type {
	case TypeSessionLog:
		return FindSessionFiles(desc.Path)
	case TypeChatGPT:
		path := filepath.Join(desc.Path, "conversations.json")
		if _, err := os.Stat(path); err != nil {
			return nil
		}
		return []string{path}
	case TypeClaude, TypeGenericJSON:
		paths, _ := filepath.Glob(filepath.Join(desc.Path, "*.json"))
		return paths
	case TypeDiscord:
		return findDiscordCSVs(desc.Path)
	}
	return nil
}

// NormalizeFile maps one export file into unified records per the source
// type's field-mapping policy.
func NormalizeFile(typ Type, path string) ([]record.Message, error) {
	switch typ {
	case TypeSessionLog:
		return NormalizeSessionFile(path)
	case TypeChatGPT:
		return NormalizeChatGPTFile(path)
	case TypeClaude:
		return NormalizeClaudeFile(path)
	case TypeDiscord:
		return NormalizeDiscordCSV(path)
	case TypeGenericJSON:
		return NormalizeGenericJSONFile(path)
	}
	return nil, fmt.Errorf("%w: %q", ErrUnknownType, typ)
}

// Normalize loads every export file under the descriptor path and maps it
// into unified records. Unreadable or malformed files are logged and
// skipped; a source with no extractable messages yields an empty slice.
func Normalize(desc Descriptor, logger *slog.Logger) []record.Message {
	if logger == nil {
		logger = slog.Default()
	}

	files := DiscoverFiles(desc)
	if len(files) == 0 {
		logger.Warn("No export files found", "name", desc.Name, "type", desc.Type, "path", desc.Path)
		return nil
	}

	var records []record.Message
	for _, path := range files {
		msgs, err := NormalizeFile(desc.Type, path)
		if err != nil {
			logger.Error("Failed to normalize export file", "path", path, "error", err)
			continue
		}
		records = append(records, msgs...)
	}

	logger.Info("Normalized source", "name", desc.Name, "type", desc.Type, "records", len(records))
	return records
}
