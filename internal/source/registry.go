package source

import (
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// Registry holds the configured source descriptors for an ingestion run.
type Registry struct {
	sources []Descriptor
	logger  *slog.Logger
}

// NewRegistry creates an empty source registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{logger: logger}
}

// Add registers a source after validating its type and path.
func (r *Registry) Add(typ Type, name, path string) error {
	desc, err := NewDescriptor(name, path, typ)
	if err != nil {
		return err
	}
	r.sources = append(r.sources, desc)
	r.logger.Info("Added source", "type", typ, "name", name, "path", path)
	return nil
}

// Descriptors returns the registered sources in registration order.
func (r *Registry) Descriptors() []Descriptor {
	out := make([]Descriptor, len(r.sources))
	copy(out, r.sources)
	return out
}

// AutoDiscover probes base paths for well-known export layouts and
// registers whatever it recognizes. Unrecognized or missing paths are
// silently skipped.
func (r *Registry) AutoDiscover(basePaths []string) {
	for _, base := range basePaths {
		info, err := os.Stat(base)
		if err != nil || !info.IsDir() {
			continue
		}
		name := filepath.Base(base)

		if _, err := os.Stat(filepath.Join(base, "conversations.json")); err == nil {
			_ = r.Add(TypeChatGPT, "ChatGPT_"+name, base)
		}

		if jsonFiles, _ := filepath.Glob(filepath.Join(base, "*.json")); len(jsonFiles) > 0 {
			claude := false
			for _, f := range jsonFiles {
				if strings.Contains(strings.ToLower(filepath.Base(f)), "claude") {
					claude = true
					break
				}
			}
			if claude {
				_ = r.Add(TypeClaude, "Claude_"+name, base)
			} else if !r.hasPath(base) {
				_ = r.Add(TypeGenericJSON, "JSON_"+name, base)
			}
		}

		if hasDiscordExport(base) {
			_ = r.Add(TypeDiscord, "Discord_"+name, base)
		}

		if len(FindSessionFiles(base)) > 0 {
			_ = r.Add(TypeSessionLog, "Sessions_"+name, base)
		}
	}
}

func (r *Registry) hasPath(path string) bool {
	for _, s := range r.sources {
		if s.Path == path {
			return true
		}
	}
	return false
}

func hasDiscordExport(base string) bool {
	found := false
	_ = filepath.WalkDir(base, func(path string, d os.DirEntry, err error) error {
		if err == nil && !d.IsDir() && d.Name() == "messages.csv" {
			found = true
			return filepath.SkipAll
		}
		return nil
	})
	return found
}
