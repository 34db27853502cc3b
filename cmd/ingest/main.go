// Package main provides the ingestion CLI for the conversation memory store.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/plugmemory/plugmem/internal/chunk"
	"github.com/plugmemory/plugmem/internal/config"
	ghclient "github.com/plugmemory/plugmem/internal/github"
	"github.com/plugmemory/plugmem/internal/hybrid"
	"github.com/plugmemory/plugmem/internal/ingest"
	"github.com/plugmemory/plugmem/internal/resource"
	"github.com/plugmemory/plugmem/internal/source"
)

var (
	configPath string
	discover   []string
	clearFirst bool
)

var rootCmd = &cobra.Command{
	Use:   "plugmem",
	Short: "Conversation memory ingestion tool",
	Long:  "CLI tool for loading chat exports into the Qdrant memory collection",
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Load, chunk, embed and store all configured sources",
	Long: `Normalizes every configured chat export, chunks the messages,
generates embeddings and stores them in Qdrant.

This command:
1. Connects to Qdrant and verifies health
2. Optionally clears the existing collection (--clear)
3. Discovers and normalizes files from every configured source
4. Splits messages into overlapping chunks and embeds them
5. Stores chunks with their provenance payload in Qdrant

Environment variables:
  QDRANT_HOST    Qdrant hostname (default: localhost)
  QDRANT_PORT    Qdrant gRPC port (default: 6334)
  OPENAI_API_KEY OpenAI API key for embeddings (required)`,
	RunE: runIngest,
}

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Summarize the configured sources without storing anything",
	RunE:  runStats,
}

var queryCmd = &cobra.Command{
	Use:   "query [text]",
	Short: "Run a one-shot query against the memory store",
	Args:  cobra.ExactArgs(1),
	RunE:  runQuery,
}

var fetchCmd = &cobra.Command{
	Use:   "fetch [owner/repo] [path] [staging-dir]",
	Short: "Mirror chat exports from a GitHub repository into a local directory",
	Long: `Downloads every .json and .csv export under the given repository path
into a local staging directory. Point a configured source at that
directory and run ingest to index the mirrored files.

Set GITHUB_TOKEN for higher rate limits on private or busy repositories.`,
	Args: cobra.ExactArgs(3),
	RunE: runFetch,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config.yaml", "path to the YAML config file")
	ingestCmd.Flags().StringSliceVar(&discover, "discover", nil, "base paths to auto-discover sources under")
	ingestCmd.Flags().BoolVar(&clearFirst, "clear", false, "clear the collection before storing")
	statsCmd.Flags().StringSliceVar(&discover, "discover", nil, "base paths to auto-discover sources under")
	rootCmd.AddCommand(ingestCmd)
	rootCmd.AddCommand(statsCmd)
	rootCmd.AddCommand(queryCmd)
	rootCmd.AddCommand(fetchCmd)
}

func main() {
	// Load .env file if present (local development), ignore if missing (production)
	_ = godotenv.Load()

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// buildRegistry combines the configured sources with any auto-discovered ones.
func buildRegistry(cfg *config.Config, logger *slog.Logger) (*source.Registry, error) {
	registry := source.NewRegistry(logger)
	for _, src := range cfg.Sources {
		typ, err := source.ParseType(src.Type)
		if err != nil {
			return nil, fmt.Errorf("source %q: %w", src.Name, err)
		}
		if err := registry.Add(typ, src.Name, src.Path); err != nil {
			return nil, fmt.Errorf("source %q: %w", src.Name, err)
		}
	}
	if len(discover) > 0 {
		registry.AutoDiscover(discover)
	}
	return registry, nil
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	start := time.Now()

	fmt.Println("Starting ingest...")
	fmt.Println()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg, slog.Default())
	if err != nil {
		return err
	}
	descriptors := registry.Descriptors()
	if len(descriptors) == 0 {
		return fmt.Errorf("no sources configured or discovered")
	}

	provider := resource.NewProvider(cfg, nil)
	defer provider.Close()

	// 1. Connect to Qdrant
	fmt.Printf("Connecting to Qdrant at %s:%d...\n", cfg.Qdrant.Host, cfg.Qdrant.Port)
	store, err := provider.Store()
	if err != nil {
		return fmt.Errorf("Failed to connect to Qdrant: %w", err)
	}

	// 2. Check health
	if err := store.Health(ctx); err != nil {
		return fmt.Errorf("Qdrant health check failed: %w", err)
	}
	fmt.Println("Qdrant healthy")

	// 3. Ensure collection exists
	if err := store.EnsureCollection(ctx); err != nil {
		return fmt.Errorf("Failed to ensure collection: %w", err)
	}

	// 4. Optionally clear existing data
	if clearFirst {
		fmt.Println("Clearing existing collection...")
		if err := store.ClearCollection(ctx); err != nil {
			return fmt.Errorf("Failed to clear collection: %w", err)
		}
		fmt.Println("Collection cleared")
	}

	// 5. Initialize pipeline components
	embedder, err := provider.Embedder()
	if err != nil {
		return fmt.Errorf("Failed to create embedding client: %w", err)
	}
	chunker, err := chunk.New(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return err
	}

	pipeline := ingest.NewPipeline(chunker, embedder, store, slog.Default())

	// 6. Normalize all sources
	fmt.Println()
	fmt.Printf("Loading %d source(s)...\n", len(descriptors))
	result, err := pipeline.Run(ctx, descriptors)
	if err != nil {
		return fmt.Errorf("Loading failed: %w", err)
	}
	printStats(result)

	// 7. Chunk, embed and store
	fmt.Println()
	fmt.Println("Indexing into Qdrant...")
	indexed, err := pipeline.Index(ctx, result.Records)
	if err != nil {
		return fmt.Errorf("Indexing failed: %w", err)
	}

	fmt.Println()
	fmt.Println("Ingest complete!")
	fmt.Printf("  Messages: %d\n", indexed.TotalRecords)
	fmt.Printf("  Chunks: %d\n", indexed.TotalChunks)
	fmt.Printf("  Collection: %s\n", store.Collection())
	fmt.Printf("  Total time: %s\n", time.Since(start).Round(time.Second))

	return nil
}

func runStats(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	registry, err := buildRegistry(cfg, slog.Default())
	if err != nil {
		return err
	}
	descriptors := registry.Descriptors()
	if len(descriptors) == 0 {
		return fmt.Errorf("no sources configured or discovered")
	}

	chunker, err := chunk.New(cfg.Chunk.Size, cfg.Chunk.Overlap)
	if err != nil {
		return err
	}
	// No embedder or store: normalization and statistics only
	pipeline := ingest.NewPipeline(chunker, nil, nil, slog.Default())

	result, err := pipeline.Run(ctx, descriptors)
	if err != nil {
		return err
	}
	printStats(result)
	return nil
}

func printStats(result *ingest.Result) {
	fmt.Println()
	fmt.Printf("  Sources: %d\n", result.SourceCount)
	fmt.Printf("  Files: %d\n", result.FilesProcessed)
	fmt.Printf("  Messages: %d\n", result.Stats.TotalMessages)
	fmt.Printf("  Sessions: %d\n", result.Stats.TotalSessions)
	fmt.Printf("  Avg message length: %.1f chars\n", result.Stats.AvgMessageLength)
	if result.Stats.DateRange != nil {
		fmt.Printf("  Date range: %s to %s\n",
			result.Stats.DateRange.Start.Format("2006-01-02"),
			result.Stats.DateRange.End.Format("2006-01-02"))
	}
	if len(result.FailedFiles) > 0 {
		fmt.Println()
		fmt.Println("Failed files:")
		for _, failed := range result.FailedFiles {
			fmt.Printf("  - %s: %s\n", failed.Path, failed.Reason)
		}
	}
}

func runQuery(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	provider := resource.NewProvider(cfg, nil)
	defer provider.Close()

	router, err := provider.Router()
	if err != nil {
		return err
	}

	res := router.Query(ctx, args[0], hybrid.Options{Limit: cfg.Search.Limit})
	if res.Failed() {
		return fmt.Errorf("query failed: %s", res.Err)
	}
	if res.Message != "" {
		fmt.Println(res.Message)
		return nil
	}

	fmt.Printf("Method: %s\n", res.Method)
	if res.Answer != "" {
		fmt.Println()
		fmt.Println(res.Answer)
		fmt.Println()
	}
	for i, m := range res.Matches {
		fmt.Printf("[%d] %.3f %s\n", i+1, m.Score, m.Record.SourceFile)
		fmt.Printf("    %s\n", m.Record.Content)
	}
	return nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	parts := splitRepo(args[0])
	if parts == nil {
		return fmt.Errorf("repository must be owner/repo, got %q", args[0])
	}
	owner, repo := parts[0], parts[1]

	client, err := ghclient.NewClient(ctx)
	if err != nil {
		return fmt.Errorf("Failed to create GitHub client: %w", err)
	}

	fetcher := ghclient.NewFetcher(client, owner, repo, args[1])

	sha, err := fetcher.GetLatestCommitSHA(ctx)
	if err == nil {
		fmt.Printf("Mirroring %s/%s at %s...\n", owner, repo, sha[:min(12, len(sha))])
	}

	paths, err := fetcher.MirrorTo(ctx, args[2])
	if err != nil {
		return fmt.Errorf("Mirroring failed: %w", err)
	}

	fmt.Printf("Fetched %d export file(s) into %s\n", len(paths), args[2])
	return nil
}

func splitRepo(s string) []string {
	for i := range s {
		if s[i] == '/' {
			if i == 0 || i == len(s)-1 {
				return nil
			}
			return []string{s[:i], s[i+1:]}
		}
	}
	return nil
}
