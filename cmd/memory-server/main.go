// Package main provides the conversation memory server entry point.
package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/plugmemory/plugmem/internal/config"
	mcpserver "github.com/plugmemory/plugmem/internal/mcp"
	"github.com/plugmemory/plugmem/internal/resource"
	"github.com/plugmemory/plugmem/internal/source"
)

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Create context that cancels on SIGTERM/SIGINT
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer cancel()

	cfg, err := config.Load(getEnv("PLUGMEM_CONFIG", "config.yaml"))
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}
	if host := os.Getenv("QDRANT_HOST"); host != "" {
		cfg.Qdrant.Host = host
	}
	if port := getEnvInt("QDRANT_PORT", 0); port != 0 {
		cfg.Qdrant.Port = port
	}
	port := getEnv("PORT", "8080")

	provider := resource.NewProvider(cfg, nil)
	defer provider.Close()

	store, err := provider.Store()
	if err != nil {
		log.Fatalf("failed to connect to Qdrant: %v", err)
	}

	// Ensure collection exists
	if err := store.EnsureCollection(ctx); err != nil {
		log.Fatalf("failed to ensure collection: %v", err)
	}

	router, err := provider.Router()
	if err != nil {
		log.Fatalf("failed to build query router: %v", err)
	}

	// Register configured sources so list_sources reflects reality
	registry := source.NewRegistry(nil)
	for _, src := range cfg.Sources {
		typ, err := source.ParseType(src.Type)
		if err != nil {
			log.Printf("skipping source %q: %v", src.Name, err)
			continue
		}
		if err := registry.Add(typ, src.Name, src.Path); err != nil {
			log.Printf("skipping source %q: %v", src.Name, err)
		}
	}

	// Create MCP server
	server := mcpserver.NewServer(&mcpserver.Config{
		Router:     router,
		Collection: cfg.Qdrant.Collection,
		Sources:    registry.Descriptors,
	})

	// Create HTTP server with multiple endpoints
	mux := http.NewServeMux()
	mux.HandleFunc("/", mcpserver.NewLandingHandler())
	mux.HandleFunc("/health", mcpserver.NewHealthHandler(store))
	mux.Handle("/mcp", mcpserver.NewHTTPHandler(server, nil))
	mux.HandleFunc("/query", mcpserver.NewQueryHandler(router))
	mux.HandleFunc("/stats", mcpserver.NewStatsHandler(router, cfg.Qdrant.Collection))
	mux.HandleFunc("/sources", mcpserver.NewSourcesHandler(registry.Descriptors))

	// Check if running in server mode (HTTP) or stdio mode (local development)
	serverMode := getEnv("SERVER_MODE", "false") == "true"

	if serverMode {
		// HTTP mode: serve MCP and REST over HTTP for remote clients
		addr := "0.0.0.0:" + port
		log.Printf("Starting HTTP server on %s (MCP at /mcp, REST at /query /stats /sources)", addr)
		if err := http.ListenAndServe(addr, mux); err != nil {
			log.Fatalf("HTTP server error: %v", err)
		}
	} else {
		// Stdio mode: run MCP server over stdin/stdout for local clients
		// Also start the HTTP endpoints in background for local testing
		go func() {
			addr := "0.0.0.0:" + port
			log.Printf("Starting HTTP endpoints on %s", addr)
			if err := http.ListenAndServe(addr, mux); err != nil {
				log.Printf("HTTP server error: %v", err)
			}
		}()

		log.Println("Starting PlugMem Memory Server (stdio mode)...")
		if err := server.Run(ctx); err != nil {
			log.Printf("server error: %v", err)
			os.Exit(1)
		}
	}
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v := os.Getenv(key); v != "" {
		var i int
		if _, err := fmt.Sscanf(v, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}
