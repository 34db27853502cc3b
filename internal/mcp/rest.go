package mcp

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/plugmemory/plugmem/internal/hybrid"
	"github.com/plugmemory/plugmem/internal/source"
)

// queryRequest is the POST /query body.
type queryRequest struct {
	Query        string `json:"query"`
	Limit        int    `json:"limit,omitempty"`
	UseReasoning *bool  `json:"use_reasoning,omitempty"`
}

// errorResponse is the JSON error envelope for the REST endpoints.
type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

// NewQueryHandler creates the HTTP handler for /query. POST accepts a JSON
// body; GET accepts ?q= (or ?query=) with optional limit and use_reasoning
// parameters. Dependency failures return 502, everything else 200 with a
// labeled result.
func NewQueryHandler(router Querier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req queryRequest

		switch r.Method {
		case http.MethodPost:
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON body: " + err.Error()})
				return
			}
		case http.MethodGet:
			q := r.URL.Query()
			req.Query = q.Get("q")
			if req.Query == "" {
				req.Query = q.Get("query")
			}
			if raw := q.Get("limit"); raw != "" {
				limit, err := strconv.Atoi(raw)
				if err != nil {
					writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid limit: " + raw})
					return
				}
				req.Limit = limit
			}
			if raw := q.Get("use_reasoning"); raw != "" {
				use, err := strconv.ParseBool(raw)
				if err != nil {
					writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid use_reasoning: " + raw})
					return
				}
				req.UseReasoning = &use
			}
		default:
			w.Header().Set("Allow", "GET, POST")
			writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: "method not allowed"})
			return
		}

		res := router.Query(r.Context(), req.Query, hybrid.Options{
			Limit:        req.Limit,
			UseReasoning: req.UseReasoning,
		})
		if res.Failed() {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: res.Err})
			return
		}
		writeJSON(w, http.StatusOK, outputFromResult(res))
	}
}

// NewStatsHandler creates the HTTP handler for /stats.
func NewStatsHandler(router Querier, collection string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := router.Stats(r.Context())
		if err != nil {
			writeJSON(w, http.StatusBadGateway, errorResponse{Error: "failed to read memory stats: " + err.Error()})
			return
		}
		writeJSON(w, http.StatusOK, MemoryStatsOutput{
			TotalMemories:     stats.TotalMemories,
			Collection:        collection,
			ConversationTurns: stats.ConversationTurns,
		})
	}
}

// NewSourcesHandler creates the HTTP handler for /sources.
func NewSourcesHandler(descriptors func() []source.Descriptor) http.HandlerFunc {
	if descriptors == nil {
		descriptors = func() []source.Descriptor { return nil }
	}
	return func(w http.ResponseWriter, r *http.Request) {
		sources := sourceInfos(descriptors())
		writeJSON(w, http.StatusOK, ListSourcesOutput{Sources: sources, Count: len(sources)})
	}
}
