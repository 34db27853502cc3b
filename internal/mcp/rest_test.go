package mcp

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/plugmemory/plugmem/internal/hybrid"
	"github.com/plugmemory/plugmem/internal/record"
	"github.com/plugmemory/plugmem/internal/source"
	"github.com/plugmemory/plugmem/internal/storage"
)

type fakeQuerier struct {
	result   hybrid.Result
	stats    hybrid.MemoryStats
	statsErr error
	lastOpts hybrid.Options
	lastQ    string
}

func (f *fakeQuerier) Query(ctx context.Context, query string, opts hybrid.Options) hybrid.Result {
	f.lastQ = query
	f.lastOpts = opts
	return f.result
}

func (f *fakeQuerier) Stats(ctx context.Context) (hybrid.MemoryStats, error) {
	return f.stats, f.statsErr
}

func fastResult(query string) hybrid.Result {
	ts := time.Date(2024, 3, 15, 10, 30, 0, 0, time.UTC)
	return hybrid.Result{
		Query:  query,
		Method: hybrid.MethodFastVectorSearch,
		Matches: []storage.ScoredRecord{{
			Record: record.Chunk{Message: record.Message{
				Content:    "we picked qdrant for storage",
				Role:       "assistant",
				Source:     record.SourceSessionLog,
				SourceFile: "session-1.json",
				SessionID:  "session-1",
				Timestamp:  &ts,
			}},
			Score: 0.91,
		}},
		Count: 1,
	}
}

func TestQueryHandlerGet(t *testing.T) {
	q := &fakeQuerier{result: fastResult("qdrant")}
	h := NewQueryHandler(q)

	req := httptest.NewRequest(http.MethodGet, "/query?q=qdrant&limit=5&use_reasoning=false", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body %s", rec.Code, rec.Body.String())
	}
	if q.lastQ != "qdrant" {
		t.Errorf("query = %q", q.lastQ)
	}
	if q.lastOpts.Limit != 5 {
		t.Errorf("limit = %d, want 5", q.lastOpts.Limit)
	}
	if q.lastOpts.UseReasoning == nil || *q.lastOpts.UseReasoning {
		t.Error("use_reasoning=false should be forwarded as explicit false")
	}

	var out QueryMemoryOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decoding body: %v", err)
	}
	if out.Count != 1 || len(out.Results) != 1 {
		t.Fatalf("count = %d, results = %d", out.Count, len(out.Results))
	}
	m := out.Results[0]
	if m.Content != "we picked qdrant for storage" || m.Source != "session_log" {
		t.Errorf("match = %+v", m)
	}
	if m.Timestamp != "2024-03-15T10:30:00Z" {
		t.Errorf("timestamp = %q", m.Timestamp)
	}
}

func TestQueryHandlerPost(t *testing.T) {
	q := &fakeQuerier{result: fastResult("deploy")}
	h := NewQueryHandler(q)

	body := `{"query": "deploy", "limit": 2, "use_reasoning": true}`
	req := httptest.NewRequest(http.MethodPost, "/query", strings.NewReader(body))
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if q.lastOpts.Limit != 2 {
		t.Errorf("limit = %d, want 2", q.lastOpts.Limit)
	}
	if q.lastOpts.UseReasoning == nil || !*q.lastOpts.UseReasoning {
		t.Error("use_reasoning=true should be forwarded")
	}
}

func TestQueryHandlerBadRequests(t *testing.T) {
	h := NewQueryHandler(&fakeQuerier{})

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"malformed body", httptest.NewRequest(http.MethodPost, "/query", strings.NewReader("{nope"))},
		{"bad limit", httptest.NewRequest(http.MethodGet, "/query?q=x&limit=abc", nil)},
		{"bad use_reasoning", httptest.NewRequest(http.MethodGet, "/query?q=x&use_reasoning=maybe", nil)},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		h(rec, tt.req)
		if rec.Code != http.StatusBadRequest {
			t.Errorf("%s: status = %d, want 400", tt.name, rec.Code)
		}
	}
}

func TestQueryHandlerMethodNotAllowed(t *testing.T) {
	h := NewQueryHandler(&fakeQuerier{})

	req := httptest.NewRequest(http.MethodDelete, "/query", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestQueryHandlerDependencyFailure(t *testing.T) {
	q := &fakeQuerier{result: hybrid.Result{Query: "x", Err: "vector search failed: unreachable"}}
	h := NewQueryHandler(q)

	req := httptest.NewRequest(http.MethodGet, "/query?q=x", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d, want 502", rec.Code)
	}
	var out errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out.Error, "unreachable") {
		t.Errorf("error = %q", out.Error)
	}
}

func TestStatsHandler(t *testing.T) {
	q := &fakeQuerier{stats: hybrid.MemoryStats{TotalMemories: 120, ConversationTurns: 3}}
	h := NewStatsHandler(q, "codex_history")

	req := httptest.NewRequest(http.MethodGet, "/stats", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var out MemoryStatsOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.TotalMemories != 120 || out.Collection != "codex_history" || out.ConversationTurns != 3 {
		t.Errorf("stats = %+v", out)
	}
}

func TestSourcesHandler(t *testing.T) {
	chatgptDir := t.TempDir()
	if err := os.WriteFile(filepath.Join(chatgptDir, "conversations.json"), []byte("[]"), 0o644); err != nil {
		t.Fatal(err)
	}
	descriptors := func() []source.Descriptor {
		return []source.Descriptor{
			{Name: "work-chats", Type: source.TypeSessionLog, Path: filepath.Join(chatgptDir, "missing")},
			{Name: "chatgpt-export", Type: source.TypeChatGPT, Path: chatgptDir},
		}
	}
	h := NewSourcesHandler(descriptors)

	req := httptest.NewRequest(http.MethodGet, "/sources", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	var out ListSourcesOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 2 {
		t.Fatalf("count = %d, want 2", out.Count)
	}
	if out.Sources[0].Name != "work-chats" || out.Sources[0].Type != "session_log" {
		t.Errorf("first source = %+v", out.Sources[0])
	}
	if out.Sources[0].Files != 0 {
		t.Errorf("missing dir should report 0 files, got %d", out.Sources[0].Files)
	}
	if out.Sources[1].Files != 1 {
		t.Errorf("chatgpt source should report 1 file, got %d", out.Sources[1].Files)
	}
}

func TestSourcesHandlerNoRegistry(t *testing.T) {
	h := NewSourcesHandler(nil)

	req := httptest.NewRequest(http.MethodGet, "/sources", nil)
	rec := httptest.NewRecorder()
	h(rec, req)

	var out ListSourcesOutput
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatal(err)
	}
	if out.Count != 0 || out.Sources == nil {
		t.Errorf("expected empty non-nil source list, got %+v", out)
	}
}
