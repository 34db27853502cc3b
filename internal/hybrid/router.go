// Package hybrid routes retrieval queries between a fast nearest-neighbor
// vector search and a conversational reasoning path, based on a keyword
// complexity heuristic or an explicit caller override.
package hybrid

import (
	"context"
	"log/slog"
	"strings"
	"sync"

	"github.com/plugmemory/plugmem/internal/storage"
)

// DefaultComplexityCues are the substrings that classify a query as
// complex. The list is a policy knob, not a guaranteed-correct classifier;
// the explicit mode override always wins.
var DefaultComplexityCues = []string{
	"why", "how", "explain", "analyze", "compare", "relationship",
	"context", "reasoning", "inference", "what if", "suppose",
	"imagine", "consider",
}

const (
	// DefaultFastLimit is the top-K for the fast vector path.
	DefaultFastLimit = 3
	// DefaultReasoningLimit is the top-K retrieved as evidence for the
	// reasoning path.
	DefaultReasoningLimit = 5
	// DefaultHistoryWindow bounds the conversation turns kept as context.
	DefaultHistoryWindow = 5
)

// Method names the retrieval strategy that produced a result.
type Method string

const (
	MethodFastVectorSearch        Method = "fast_vector_search"
	MethodConversationalReasoning Method = "conversational_reasoning"
)

// Embedder produces the query embedding.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// Searcher is the vector store surface the router needs.
type Searcher interface {
	Search(ctx context.Context, vector []float32, limit int) ([]storage.ScoredRecord, error)
	Count(ctx context.Context) (uint64, error)
}

// Turn is one question/answer exchange kept as conversational memory.
type Turn struct {
	Question string `json:"question"`
	Answer   string `json:"answer"`
}

// Reasoner answers a question over retrieved evidence and bounded history.
type Reasoner interface {
	Answer(ctx context.Context, question string, evidence []storage.ScoredRecord, history []Turn) (string, error)
}

// Options tune a single query. Limit <= 0 uses the default top-K.
// UseReasoning, when set, overrides the complexity classification.
type Options struct {
	Limit        int
	UseReasoning *bool
}

// Result is the structured outcome of a routed query. Exactly one of the
// three shapes applies: matches (fast path), an answer with supporting
// evidence (reasoning path), or Err carrying a dependency failure. Message
// labels soft outcomes such as an empty query or zero matches.
type Result struct {
	Query   string                 `json:"query"`
	Method  Method                 `json:"method,omitempty"`
	Matches []storage.ScoredRecord `json:"results,omitempty"`
	Count   int                    `json:"count"`
	Answer  string                 `json:"answer,omitempty"`
	Message string                 `json:"message,omitempty"`
	Err     string                 `json:"error,omitempty"`
}

// Failed reports whether the result is a structured dependency error.
func (r Result) Failed() bool { return r.Err != "" }

// Router dispatches queries to the fast or reasoning path and maintains
// the bounded conversation window for the reasoning path.
type Router struct {
	embedder Embedder
	store    Searcher
	reasoner Reasoner // nil when no reasoning backend is configured
	cues     []string
	window   int
	logger   *slog.Logger

	mu      sync.Mutex
	history []Turn
}

// NewRouter creates a Router. The reasoner may be nil, in which case every
// query takes the fast path.
func NewRouter(embedder Embedder, store Searcher, reasoner Reasoner, logger *slog.Logger) *Router {
	if logger == nil {
		logger = slog.Default()
	}
	return &Router{
		embedder: embedder,
		store:    store,
		reasoner: reasoner,
		cues:     DefaultComplexityCues,
		window:   DefaultHistoryWindow,
		logger:   logger,
	}
}

// SetComplexityCues replaces the classification keyword list.
func (r *Router) SetComplexityCues(cues []string) { r.cues = cues }

// IsComplex classifies a query as needing reasoning when its lower-cased
// text contains any configured cue substring. Pure and deterministic.
func (r *Router) IsComplex(query string) bool {
	lower := strings.ToLower(query)
	for _, cue := range r.cues {
		if strings.Contains(lower, cue) {
			return true
		}
	}
	return false
}

// Query routes a query to the appropriate retrieval path. Dependency
// failures surface as structured error results, never as raw faults;
// subsequent calls are unaffected.
func (r *Router) Query(ctx context.Context, query string, opts Options) Result {
	query = strings.TrimSpace(query)
	if query == "" {
		return Result{Message: "empty query: nothing to search for"}
	}

	useReasoning := r.IsComplex(query)
	if opts.UseReasoning != nil {
		useReasoning = *opts.UseReasoning
	}

	if useReasoning && r.reasoner != nil {
		return r.reasoningQuery(ctx, query)
	}
	return r.fastQuery(ctx, query, opts.Limit)
}

// fastQuery embeds the query and returns the top-K nearest chunks with
// their similarity scores, in the order the store ranked them.
func (r *Router) fastQuery(ctx context.Context, query string, limit int) Result {
	if limit <= 0 {
		limit = DefaultFastLimit
	}

	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("Fast query embedding failed", "query", query, "error", err)
		return Result{Query: query, Err: "embedding failed: " + err.Error()}
	}

	matches, err := r.store.Search(ctx, vector, limit)
	if err != nil {
		r.logger.Error("Fast query search failed", "query", query, "error", err)
		return Result{Query: query, Err: "vector search failed: " + err.Error()}
	}

	result := Result{
		Query:   query,
		Method:  MethodFastVectorSearch,
		Matches: matches,
		Count:   len(matches),
	}
	if len(matches) == 0 {
		result.Message = "no matching memories found"
	}
	return result
}

// reasoningQuery retrieves evidence, asks the reasoning backend with the
// bounded conversation window, and records the new turn on success.
func (r *Router) reasoningQuery(ctx context.Context, query string) Result {
	vector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.logger.Error("Reasoning query embedding failed", "query", query, "error", err)
		return Result{Query: query, Err: "embedding failed: " + err.Error()}
	}

	evidence, err := r.store.Search(ctx, vector, DefaultReasoningLimit)
	if err != nil {
		r.logger.Error("Reasoning query retrieval failed", "query", query, "error", err)
		return Result{Query: query, Err: "vector search failed: " + err.Error()}
	}

	answer, err := r.reasoner.Answer(ctx, query, evidence, r.historyWindow())
	if err != nil {
		r.logger.Error("Reasoning backend failed", "query", query, "error", err)
		return Result{Query: query, Err: "reasoning failed: " + err.Error()}
	}

	r.recordTurn(Turn{Question: query, Answer: answer})

	return Result{
		Query:   query,
		Method:  MethodConversationalReasoning,
		Matches: evidence,
		Count:   len(evidence),
		Answer:  answer,
	}
}

// historyWindow returns a copy of the bounded conversation history.
func (r *Router) historyWindow() []Turn {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Turn, len(r.history))
	copy(out, r.history)
	return out
}

// recordTurn appends a turn, keeping only the last window turns.
func (r *Router) recordTurn(turn Turn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.history = append(r.history, turn)
	if len(r.history) > r.window {
		r.history = r.history[len(r.history)-r.window:]
	}
}

// ConversationTurns returns how many turns are held as reasoning context.
func (r *Router) ConversationTurns() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.history)
}

// MemoryStats summarizes the store backing the router.
type MemoryStats struct {
	TotalMemories     uint64 `json:"total_memories"`
	Collection        string `json:"collection_name,omitempty"`
	ConversationTurns int    `json:"conversation_turns"`
}

// Stats reports the total stored memories and held conversation turns.
func (r *Router) Stats(ctx context.Context) (MemoryStats, error) {
	count, err := r.store.Count(ctx)
	if err != nil {
		return MemoryStats{}, err
	}
	return MemoryStats{
		TotalMemories:     count,
		ConversationTurns: r.ConversationTurns(),
	}, nil
}
