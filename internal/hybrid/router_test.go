package hybrid

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/plugmemory/plugmem/internal/record"
	"github.com/plugmemory/plugmem/internal/storage"
)

type fakeEmbedder struct {
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

type fakeSearcher struct {
	matches   []storage.ScoredRecord
	searchErr error
	countErr  error
	count     uint64
	lastLimit int
}

func (f *fakeSearcher) Search(ctx context.Context, vector []float32, limit int) ([]storage.ScoredRecord, error) {
	f.lastLimit = limit
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	if limit < len(f.matches) {
		return f.matches[:limit], nil
	}
	return f.matches, nil
}

func (f *fakeSearcher) Count(ctx context.Context) (uint64, error) {
	if f.countErr != nil {
		return 0, f.countErr
	}
	return f.count, nil
}

type fakeReasoner struct {
	answer      string
	err         error
	lastHistory []Turn
	calls       int
}

func (f *fakeReasoner) Answer(ctx context.Context, question string, evidence []storage.ScoredRecord, history []Turn) (string, error) {
	f.calls++
	f.lastHistory = history
	if f.err != nil {
		return "", f.err
	}
	return f.answer, nil
}

func scored(content string, score float64) storage.ScoredRecord {
	return storage.ScoredRecord{
		Record: record.Chunk{Message: record.Message{Content: content}},
		Score:  score,
	}
}

func TestIsComplex(t *testing.T) {
	r := NewRouter(&fakeEmbedder{}, &fakeSearcher{}, nil, nil)

	tests := []struct {
		query string
		want  bool
	}{
		{"why did the deploy fail", true},
		{"WHY did the deploy fail", true},
		{"explain the caching strategy", true},
		{"what if we drop the index", true},
		{"meeting notes from tuesday", false},
		{"docker compose file", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := r.IsComplex(tt.query); got != tt.want {
			t.Errorf("IsComplex(%q) = %v, want %v", tt.query, got, tt.want)
		}
	}
}

func TestIsComplexCustomCues(t *testing.T) {
	r := NewRouter(&fakeEmbedder{}, &fakeSearcher{}, nil, nil)
	r.SetComplexityCues([]string{"deploy"})

	if !r.IsComplex("deploy status") {
		t.Error("expected custom cue to classify query as complex")
	}
	if r.IsComplex("why did it break") {
		t.Error("expected default cues to be replaced, not extended")
	}
}

func TestQueryEmptyQuery(t *testing.T) {
	emb := &fakeEmbedder{}
	r := NewRouter(emb, &fakeSearcher{}, nil, nil)

	res := r.Query(context.Background(), "   ", Options{})

	if res.Failed() {
		t.Fatalf("empty query should not be an error, got %q", res.Err)
	}
	if res.Message == "" {
		t.Error("expected a labeled message for an empty query")
	}
	if emb.calls != 0 {
		t.Errorf("empty query should not reach the embedder, got %d calls", emb.calls)
	}
}

func TestQueryFastPath(t *testing.T) {
	store := &fakeSearcher{matches: []storage.ScoredRecord{
		scored("first", 0.95),
		scored("second", 0.82),
	}}
	r := NewRouter(&fakeEmbedder{}, store, nil, nil)

	res := r.Query(context.Background(), "docker compose file", Options{})

	if res.Failed() {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if res.Method != MethodFastVectorSearch {
		t.Errorf("method = %q, want %q", res.Method, MethodFastVectorSearch)
	}
	if res.Count != 2 || len(res.Matches) != 2 {
		t.Fatalf("count = %d, matches = %d, want 2 each", res.Count, len(res.Matches))
	}
	if res.Matches[0].Record.Content != "first" {
		t.Errorf("expected store ranking preserved, got %q first", res.Matches[0].Record.Content)
	}
	if store.lastLimit != DefaultFastLimit {
		t.Errorf("search limit = %d, want default %d", store.lastLimit, DefaultFastLimit)
	}
}

func TestQueryFastPathCustomLimit(t *testing.T) {
	store := &fakeSearcher{}
	r := NewRouter(&fakeEmbedder{}, store, nil, nil)

	r.Query(context.Background(), "meeting notes", Options{Limit: 10})

	if store.lastLimit != 10 {
		t.Errorf("search limit = %d, want 10", store.lastLimit)
	}
}

func TestQueryNoMatches(t *testing.T) {
	r := NewRouter(&fakeEmbedder{}, &fakeSearcher{}, nil, nil)

	res := r.Query(context.Background(), "meeting notes", Options{})

	if res.Failed() {
		t.Fatalf("zero matches must not be an error, got %q", res.Err)
	}
	if res.Count != 0 {
		t.Errorf("count = %d, want 0", res.Count)
	}
	if !strings.Contains(res.Message, "no matching memories") {
		t.Errorf("expected a no-matches message, got %q", res.Message)
	}
}

func TestQueryComplexWithoutReasonerFallsBackToFast(t *testing.T) {
	store := &fakeSearcher{matches: []storage.ScoredRecord{scored("hit", 0.9)}}
	r := NewRouter(&fakeEmbedder{}, store, nil, nil)

	res := r.Query(context.Background(), "why did the deploy fail", Options{})

	if res.Failed() {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if res.Method != MethodFastVectorSearch {
		t.Errorf("method = %q, want fast path when no reasoner is configured", res.Method)
	}
}

func TestQueryReasoningPath(t *testing.T) {
	store := &fakeSearcher{matches: []storage.ScoredRecord{
		scored("evidence-1", 0.9),
		scored("evidence-2", 0.8),
	}}
	reasoner := &fakeReasoner{answer: "because the migration was skipped"}
	r := NewRouter(&fakeEmbedder{}, store, reasoner, nil)

	res := r.Query(context.Background(), "why did the deploy fail", Options{})

	if res.Failed() {
		t.Fatalf("unexpected error: %s", res.Err)
	}
	if res.Method != MethodConversationalReasoning {
		t.Errorf("method = %q, want %q", res.Method, MethodConversationalReasoning)
	}
	if res.Answer != "because the migration was skipped" {
		t.Errorf("answer = %q", res.Answer)
	}
	if len(res.Matches) != 2 {
		t.Errorf("expected supporting evidence in result, got %d matches", len(res.Matches))
	}
	if store.lastLimit != DefaultReasoningLimit {
		t.Errorf("evidence limit = %d, want %d", store.lastLimit, DefaultReasoningLimit)
	}
	if r.ConversationTurns() != 1 {
		t.Errorf("conversation turns = %d, want 1", r.ConversationTurns())
	}
}

func TestQueryReasoningForcedOnSimpleQuery(t *testing.T) {
	reasoner := &fakeReasoner{answer: "ok"}
	r := NewRouter(&fakeEmbedder{}, &fakeSearcher{}, reasoner, nil)

	force := true
	res := r.Query(context.Background(), "meeting notes", Options{UseReasoning: &force})

	if res.Method != MethodConversationalReasoning {
		t.Errorf("method = %q, want reasoning when forced", res.Method)
	}
	if reasoner.calls != 1 {
		t.Errorf("reasoner calls = %d, want 1", reasoner.calls)
	}
}

func TestQueryReasoningForcedOff(t *testing.T) {
	reasoner := &fakeReasoner{answer: "should not run"}
	r := NewRouter(&fakeEmbedder{}, &fakeSearcher{}, reasoner, nil)

	force := false
	res := r.Query(context.Background(), "why did it break", Options{UseReasoning: &force})

	if res.Method != MethodFastVectorSearch {
		t.Errorf("method = %q, want fast path when reasoning is forced off", res.Method)
	}
	if reasoner.calls != 0 {
		t.Errorf("reasoner calls = %d, want 0", reasoner.calls)
	}
}

func TestQueryHistoryWindowBounded(t *testing.T) {
	reasoner := &fakeReasoner{answer: "answer"}
	r := NewRouter(&fakeEmbedder{}, &fakeSearcher{}, reasoner, nil)

	force := true
	for i := 0; i < DefaultHistoryWindow+3; i++ {
		res := r.Query(context.Background(), fmt.Sprintf("question %d", i), Options{UseReasoning: &force})
		if res.Failed() {
			t.Fatalf("query %d failed: %s", i, res.Err)
		}
	}

	if r.ConversationTurns() != DefaultHistoryWindow {
		t.Fatalf("conversation turns = %d, want window of %d", r.ConversationTurns(), DefaultHistoryWindow)
	}
	// The last call saw the window as it stood before that turn was recorded.
	if len(reasoner.lastHistory) != DefaultHistoryWindow {
		t.Fatalf("history passed to reasoner = %d turns, want %d", len(reasoner.lastHistory), DefaultHistoryWindow)
	}
	if reasoner.lastHistory[0].Question != "question 2" {
		t.Errorf("oldest retained turn = %q, want %q", reasoner.lastHistory[0].Question, "question 2")
	}
}

func TestQueryEmbedderFailure(t *testing.T) {
	r := NewRouter(&fakeEmbedder{err: errors.New("api down")}, &fakeSearcher{}, nil, nil)

	res := r.Query(context.Background(), "meeting notes", Options{})

	if !res.Failed() {
		t.Fatal("expected a structured error result")
	}
	if !strings.Contains(res.Err, "embedding failed") {
		t.Errorf("err = %q, want embedding failure label", res.Err)
	}
	if res.Query != "meeting notes" {
		t.Errorf("error result should carry the query, got %q", res.Query)
	}
}

func TestQuerySearchFailureDoesNotPoisonRouter(t *testing.T) {
	store := &fakeSearcher{searchErr: errors.New("qdrant unreachable")}
	r := NewRouter(&fakeEmbedder{}, store, nil, nil)

	res := r.Query(context.Background(), "meeting notes", Options{})
	if !res.Failed() {
		t.Fatal("expected a structured error result")
	}

	store.searchErr = nil
	store.matches = []storage.ScoredRecord{scored("recovered", 0.7)}
	res = r.Query(context.Background(), "meeting notes", Options{})
	if res.Failed() {
		t.Fatalf("router should recover after a dependency failure, got %q", res.Err)
	}
	if res.Count != 1 {
		t.Errorf("count = %d, want 1", res.Count)
	}
}

func TestQueryReasonerFailureRecordsNoTurn(t *testing.T) {
	reasoner := &fakeReasoner{err: errors.New("model timeout")}
	r := NewRouter(&fakeEmbedder{}, &fakeSearcher{}, reasoner, nil)

	res := r.Query(context.Background(), "why did it break", Options{})

	if !res.Failed() {
		t.Fatal("expected a structured error result")
	}
	if r.ConversationTurns() != 0 {
		t.Errorf("failed reasoning must not record a turn, got %d", r.ConversationTurns())
	}
}

func TestStats(t *testing.T) {
	store := &fakeSearcher{count: 42}
	reasoner := &fakeReasoner{answer: "a"}
	r := NewRouter(&fakeEmbedder{}, store, reasoner, nil)

	force := true
	r.Query(context.Background(), "first", Options{UseReasoning: &force})

	stats, err := r.Stats(context.Background())
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if stats.TotalMemories != 42 {
		t.Errorf("total memories = %d, want 42", stats.TotalMemories)
	}
	if stats.ConversationTurns != 1 {
		t.Errorf("conversation turns = %d, want 1", stats.ConversationTurns)
	}
}

func TestStatsCountFailure(t *testing.T) {
	store := &fakeSearcher{countErr: errors.New("unreachable")}
	r := NewRouter(&fakeEmbedder{}, store, nil, nil)

	if _, err := r.Stats(context.Background()); err == nil {
		t.Fatal("expected error when the store count fails")
	}
}
