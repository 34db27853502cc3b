package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/qdrant/go-client/qdrant"

	"github.com/plugmemory/plugmem/internal/record"
)

// QdrantStore wraps the Qdrant client with connection management for the
// conversation chunk collection.
type QdrantStore struct {
	client     *qdrant.Client
	collection string
	dimension  uint64
	host       string
	port       int
}

// NewQdrantStore creates a new Qdrant client and validates connectivity.
// It performs a health check with retry on startup and fails fast if
// Qdrant is unreachable.
func NewQdrantStore(host string, port int, collection string, dimension uint64) (*QdrantStore, error) {
	client, err := qdrant.NewClient(&qdrant.Config{
		Host: host,
		Port: port,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create qdrant client: %w", err)
	}

	if collection == "" {
		collection = DefaultCollection
	}

	store := &QdrantStore{
		client:     client,
		collection: collection,
		dimension:  dimension,
		host:       host,
		port:       port,
	}

	if err := store.healthCheckWithRetry(context.Background()); err != nil {
		client.Close()
		return nil, fmt.Errorf("%w: %v", ErrQdrantUnreachable, err)
	}

	return store, nil
}

// healthCheckWithRetry performs health check with exponential backoff.
// Initial interval 500ms, max interval 10s, max elapsed 30s.
func (s *QdrantStore) healthCheckWithRetry(ctx context.Context) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		return s.Health(ctx)
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// Health performs a single health check against Qdrant.
func (s *QdrantStore) Health(ctx context.Context) error {
	result, err := s.client.HealthCheck(ctx)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	if result == nil || result.Title == "" {
		return fmt.Errorf("health check returned invalid response")
	}
	return nil
}

// EnsureCollection ensures the chunk collection exists with cosine-distance
// vectors of the configured dimension, plus payload indexes for the fields
// queries filter on. Idempotent.
func (s *QdrantStore) EnsureCollection(ctx context.Context) error {
	collections, err := s.client.ListCollections(ctx)
	if err != nil {
		return fmt.Errorf("failed to list collections: %w", err)
	}
	for _, name := range collections {
		if name == s.collection {
			return nil
		}
	}

	err = s.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: s.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     s.dimension,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("failed to create collection: %w", err)
	}

	return s.createPayloadIndexes(ctx)
}

// createPayloadIndexes creates indexes for filterable provenance fields.
func (s *QdrantStore) createPayloadIndexes(ctx context.Context) error {
	fields := []string{
		"session_id",
		"source",
		"source_file",
		"role",
		"channel",
	}

	for _, field := range fields {
		_, err := s.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
			CollectionName: s.collection,
			FieldName:      field,
			FieldType:      qdrant.FieldType_FieldTypeKeyword.Enum(),
		})
		if err != nil {
			return fmt.Errorf("failed to create index for field %s: %w", field, err)
		}
	}
	return nil
}

// ClearCollection deletes all points by dropping and recreating the collection.
func (s *QdrantStore) ClearCollection(ctx context.Context) error {
	if err := s.client.DeleteCollection(ctx, s.collection); err != nil {
		return fmt.Errorf("failed to delete collection: %w", err)
	}
	return s.EnsureCollection(ctx)
}

// Close closes the Qdrant client connection.
func (s *QdrantStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}

// upsertWithRetry performs upsert with exponential backoff retry.
func (s *QdrantStore) upsertWithRetry(ctx context.Context, points []*qdrant.PointStruct) error {
	exponentialBackoff := backoff.NewExponentialBackOff()
	exponentialBackoff.InitialInterval = 500 * time.Millisecond
	exponentialBackoff.MaxInterval = 10 * time.Second
	exponentialBackoff.MaxElapsedTime = 30 * time.Second

	return backoff.Retry(func() error {
		_, err := s.client.Upsert(ctx, &qdrant.UpsertPoints{
			CollectionName: s.collection,
			Points:         points,
		})
		return err
	}, backoff.WithContext(exponentialBackoff, ctx))
}

// chunkPayload flattens a chunk record into the stored payload map.
// The timestamp is RFC3339 when known and omitted entirely when nil, so a
// missing time never round-trips as a fake zero value.
func chunkPayload(chunk record.Chunk) map[string]any {
	payload := map[string]any{
		"content":         chunk.Content,
		"role":            chunk.Role,
		"session_id":      chunk.SessionID,
		"source":          string(chunk.Source),
		"source_file":     chunk.SourceFile,
		"chunk_index":     chunk.ChunkIndex,
		"original_length": chunk.OriginalLength,
	}
	if chunk.Timestamp != nil {
		payload["timestamp"] = chunk.Timestamp.UTC().Format(time.RFC3339)
	}
	if chunk.ConversationID != "" {
		payload["conversation_id"] = chunk.ConversationID
	}
	if chunk.ConversationTitle != "" {
		payload["conversation_title"] = chunk.ConversationTitle
	}
	if chunk.Channel != "" {
		payload["channel"] = chunk.Channel
	}
	return payload
}

// recordFromPayload rebuilds a chunk record from a stored payload.
func recordFromPayload(payload map[string]*qdrant.Value) record.Chunk {
	str := func(key string) string {
		if v, ok := payload[key]; ok {
			return v.GetStringValue()
		}
		return ""
	}

	chunk := record.Chunk{
		Message: record.Message{
			Content:           str("content"),
			Role:              str("role"),
			SessionID:         str("session_id"),
			Source:            record.Source(str("source")),
			SourceFile:        str("source_file"),
			ConversationID:    str("conversation_id"),
			ConversationTitle: str("conversation_title"),
			Channel:           str("channel"),
		},
	}
	if v, ok := payload["chunk_index"]; ok {
		chunk.ChunkIndex = int(v.GetIntegerValue())
	}
	if v, ok := payload["original_length"]; ok {
		chunk.OriginalLength = int(v.GetIntegerValue())
	}
	if ts := str("timestamp"); ts != "" {
		chunk.Timestamp = record.ParseTimestamp(ts)
	}
	return chunk
}

// UpsertChunks stores chunk records with their embeddings.
// Points are batched in groups of 100; embedding dimensions are validated
// up front so a mismatch fails the whole call instead of a partial write.
func (s *QdrantStore) UpsertChunks(ctx context.Context, chunks []record.Chunk, embeddings [][]float32, ids []string) error {
	if len(chunks) == 0 {
		return nil
	}
	if len(embeddings) != len(chunks) || len(ids) != len(chunks) {
		return fmt.Errorf("chunks/embeddings/ids length mismatch: %d/%d/%d",
			len(chunks), len(embeddings), len(ids))
	}
	for i, emb := range embeddings {
		if uint64(len(emb)) != s.dimension {
			return fmt.Errorf("%w: chunk %d has %d dimensions, expected %d",
				ErrDimensionMismatch, i, len(emb), s.dimension)
		}
	}

	const batchSize = 100
	for i := 0; i < len(chunks); i += batchSize {
		end := min(i+batchSize, len(chunks))

		points := make([]*qdrant.PointStruct, 0, end-i)
		for j := i; j < end; j++ {
			points = append(points, &qdrant.PointStruct{
				Id:      qdrant.NewIDUUID(ids[j]),
				Vectors: qdrant.NewVectors(embeddings[j]...),
				Payload: qdrant.NewValueMap(chunkPayload(chunks[j])),
			})
		}

		if err := s.upsertWithRetry(ctx, points); err != nil {
			return fmt.Errorf("failed to upsert batch %d-%d: %w", i, end, err)
		}
	}
	return nil
}

// Search performs vector similarity search over the chunk collection.
// Results carry the store's scores and ranking order; no re-ranking is done.
func (s *QdrantStore) Search(ctx context.Context, vector []float32, limit int) ([]ScoredRecord, error) {
	if uint64(len(vector)) != s.dimension {
		return nil, fmt.Errorf("%w: query has %d dimensions, expected %d",
			ErrDimensionMismatch, len(vector), s.dimension)
	}

	results, err := s.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: s.collection,
		Query:          qdrant.NewQuery(vector...),
		Limit:          qdrant.PtrOf(uint64(limit)),
		WithPayload:    qdrant.NewWithPayload(true),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}

	scored := make([]ScoredRecord, 0, len(results))
	for _, result := range results {
		scored = append(scored, ScoredRecord{
			Record: recordFromPayload(result.Payload),
			Score:  float64(result.Score),
		})
	}
	return scored, nil
}

// Count returns the exact number of points in the chunk collection.
func (s *QdrantStore) Count(ctx context.Context) (uint64, error) {
	count, err := s.client.Count(ctx, &qdrant.CountPoints{
		CollectionName: s.collection,
		Exact:          qdrant.PtrOf(true),
	})
	if err != nil {
		return 0, fmt.Errorf("failed to count points: %w", err)
	}
	return count, nil
}

// Collection returns the collection name this store operates on.
func (s *QdrantStore) Collection() string { return s.collection }
