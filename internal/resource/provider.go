// Package resource owns the expensive shared dependencies (OpenAI client,
// Qdrant connection, query router) and constructs each exactly once.
package resource

import (
	"log/slog"
	"sync"

	"github.com/plugmemory/plugmem/internal/config"
	"github.com/plugmemory/plugmem/internal/embedding"
	"github.com/plugmemory/plugmem/internal/hybrid"
	"github.com/plugmemory/plugmem/internal/reasoning"
	"github.com/plugmemory/plugmem/internal/storage"
)

// Provider lazily constructs and caches the shared infrastructure. All
// accessors are safe for concurrent use; a construction failure is not
// cached, so a later call retries.
type Provider struct {
	cfg    *config.Config
	logger *slog.Logger

	mu       sync.Mutex
	client   *embedding.Client
	embedder *embedding.Embedder
	reasoner *reasoning.Backend
	store    *storage.QdrantStore
	router   *hybrid.Router
}

// NewProvider creates a provider around the given configuration. Nothing
// is connected until first use.
func NewProvider(cfg *config.Config, logger *slog.Logger) *Provider {
	if cfg == nil {
		cfg = config.Default()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Provider{cfg: cfg, logger: logger}
}

// Config returns the configuration the provider was built with.
func (p *Provider) Config() *config.Config { return p.cfg }

// openAIClient returns the shared OpenAI client. Caller holds p.mu.
func (p *Provider) openAIClient() (*embedding.Client, error) {
	if p.client == nil {
		client, err := embedding.NewClient()
		if err != nil {
			return nil, err
		}
		p.client = client
	}
	return p.client, nil
}

// Embedder returns the shared embedding generator.
func (p *Provider) Embedder() (*embedding.Embedder, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.embedder == nil {
		client, err := p.openAIClient()
		if err != nil {
			return nil, err
		}
		p.embedder = embedding.NewEmbedder(client, 0)
	}
	return p.embedder, nil
}

// Reasoner returns the shared conversational reasoning backend.
func (p *Provider) Reasoner() (*reasoning.Backend, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.reasoner == nil {
		client, err := p.openAIClient()
		if err != nil {
			return nil, err
		}
		p.reasoner = reasoning.NewBackend(client.Client())
	}
	return p.reasoner, nil
}

// Store returns the shared Qdrant store, connecting and ensuring the
// collection on first use.
func (p *Provider) Store() (*storage.QdrantStore, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.storeLocked()
}

func (p *Provider) storeLocked() (*storage.QdrantStore, error) {
	if p.store == nil {
		store, err := storage.NewQdrantStore(
			p.cfg.Qdrant.Host,
			p.cfg.Qdrant.Port,
			p.cfg.Qdrant.Collection,
			embedding.EmbeddingDimension,
		)
		if err != nil {
			return nil, err
		}
		p.store = store
	}
	return p.store, nil
}

// Router returns the shared query router, wired with the embedder, the
// Qdrant store and the reasoning backend.
func (p *Provider) Router() (*hybrid.Router, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.router == nil {
		client, err := p.openAIClient()
		if err != nil {
			return nil, err
		}
		if p.embedder == nil {
			p.embedder = embedding.NewEmbedder(client, 0)
		}
		if p.reasoner == nil {
			p.reasoner = reasoning.NewBackend(client.Client())
		}
		store, err := p.storeLocked()
		if err != nil {
			return nil, err
		}
		p.router = hybrid.NewRouter(p.embedder, store, p.reasoner, p.logger)
	}
	return p.router, nil
}

// Reset drops every cached resource so the next access reconstructs it.
// Open connections are closed first. Intended for tests and for recovery
// after a backend restart.
func (p *Provider) Reset() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.store != nil {
		if err := p.store.Close(); err != nil {
			p.logger.Warn("Closing Qdrant store during reset", "error", err)
		}
	}
	p.client = nil
	p.embedder = nil
	p.reasoner = nil
	p.store = nil
	p.router = nil
}

// Close releases held connections. The provider remains usable; a later
// access reconnects.
func (p *Provider) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	var err error
	if p.store != nil {
		err = p.store.Close()
		p.store = nil
		p.router = nil
	}
	return err
}
