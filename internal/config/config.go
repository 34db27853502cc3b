// Package config loads the application configuration from YAML, falling
// back to built-in defaults when no file is present.
package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/plugmemory/plugmem/internal/chunk"
	"github.com/plugmemory/plugmem/internal/hybrid"
	"github.com/plugmemory/plugmem/internal/storage"
)

// QdrantConfig contains connection details for the Qdrant vector store.
type QdrantConfig struct {
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Collection string `yaml:"collection"`
}

// ChunkConfig configures how message content is split into chunks.
type ChunkConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// SearchConfig tunes the retrieval paths.
type SearchConfig struct {
	Limit int `yaml:"limit"`
}

// SourceConfig declares one data source to ingest.
type SourceConfig struct {
	Name string `yaml:"name"`
	Type string `yaml:"type"`
	Path string `yaml:"path"`
}

// Config is the root application configuration structure.
type Config struct {
	Qdrant  QdrantConfig   `yaml:"qdrant"`
	Chunk   ChunkConfig    `yaml:"chunk"`
	Search  SearchConfig   `yaml:"search"`
	Sources []SourceConfig `yaml:"sources"`
}

// Load reads a config from the given path. If the file does not exist,
// returns defaults.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Default(), nil
		}
		return nil, err
	}
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	applyDefaults(&cfg)
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return &cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.Qdrant.Host == "" {
		cfg.Qdrant.Host = "localhost"
	}
	if cfg.Qdrant.Port == 0 {
		cfg.Qdrant.Port = 6334
	}
	if cfg.Qdrant.Collection == "" {
		cfg.Qdrant.Collection = storage.DefaultCollection
	}
	if cfg.Chunk.Size == 0 {
		cfg.Chunk.Size = chunk.DefaultSize
	}
	if cfg.Chunk.Overlap == 0 {
		cfg.Chunk.Overlap = chunk.DefaultOverlap
	}
	if cfg.Search.Limit == 0 {
		cfg.Search.Limit = hybrid.DefaultFastLimit
	}
}

func (cfg *Config) validate() error {
	if cfg.Chunk.Size <= cfg.Chunk.Overlap {
		return fmt.Errorf("chunk size %d must exceed overlap %d", cfg.Chunk.Size, cfg.Chunk.Overlap)
	}
	if cfg.Chunk.Overlap < 0 {
		return fmt.Errorf("chunk overlap %d must not be negative", cfg.Chunk.Overlap)
	}
	if cfg.Search.Limit < 0 {
		return fmt.Errorf("search limit %d must not be negative", cfg.Search.Limit)
	}
	return nil
}
