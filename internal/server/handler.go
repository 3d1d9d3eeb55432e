// Package server exposes the QA service, on-demand ingestion, run history,
// and session logs over HTTP.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/blogpulse/blogpulse/internal/blog"
	"github.com/blogpulse/blogpulse/internal/pipeline"
	"github.com/blogpulse/blogpulse/internal/qa"
	"github.com/blogpulse/blogpulse/internal/state"
	errs "github.com/blogpulse/blogpulse/pkg/errors"
)

// Handler implements the HTTP API.
type Handler struct {
	qa       *qa.Service
	pipeline *pipeline.Pipeline
	state    state.Store
	logger   *slog.Logger

	// runMu serialises on-demand ingestion; overlapping runs would race on
	// the watermark.
	runMu sync.Mutex
}

// New creates a Handler.
func New(qaSvc *qa.Service, p *pipeline.Pipeline, st state.Store) *Handler {
	return &Handler{
		qa:       qaSvc,
		pipeline: p,
		state:    st,
		logger:   slog.Default().With("component", "http-handler"),
	}
}

type askRequest struct {
	Question  string `json:"question"`
	TopK      int    `json:"top_k,omitempty"`
	SessionID string `json:"session_id,omitempty"`
}

type askResponse struct {
	Answer  *blog.Answer `json:"answer"`
	Cached  bool         `json:"cached"`
	Refused bool         `json:"refused"`
}

// Ask answers a question against the indexed corpus.
func (h *Handler) Ask(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	answer, cached, err := h.qa.Ask(r.Context(), req.Question, req.SessionID, req.TopK)
	if err != nil {
		h.logger.Error("ask failed", "error", err)
		h.writeError(w, errs.HTTPStatusCode(err), "failed to answer question")
		return
	}

	h.writeJSON(w, http.StatusOK, askResponse{
		Answer:  answer,
		Cached:  cached,
		Refused: answer.Refused,
	})
}

// Ingest triggers one ingestion run and returns its result. Concurrent
// triggers queue behind each other.
func (h *Handler) Ingest(w http.ResponseWriter, r *http.Request) {
	if !h.runMu.TryLock() {
		h.writeError(w, http.StatusConflict, "an ingestion run is already in progress")
		return
	}
	defer h.runMu.Unlock()

	result, err := h.pipeline.Run(r.Context())
	if err != nil {
		h.logger.Error("ingestion run failed", "error", err)
		h.writeError(w, errs.HTTPStatusCode(err), "ingestion run failed")
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// History returns the last run result and the bounded run history.
func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	st, err := h.state.Load(r.Context())
	if err != nil {
		h.logger.Error("loading state failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "failed to load run history")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"last_result": st.LastResult(),
		"history":     st.History(),
		"seen_posts":  st.SeenCount(),
	})
}

// Session returns one session's query log.
func (h *Handler) Session(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if id == "" {
		h.writeError(w, http.StatusBadRequest, "session id is required")
		return
	}
	entries, ok := h.qa.Session(id)
	if !ok {
		h.writeError(w, http.StatusNotFound, "session not found or expired")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{
		"session_id": id,
		"entries":    entries,
		"count":      len(entries),
	})
}

// CacheStats returns response cache hit and miss counters.
func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	hits, misses := h.qa.CacheStats()
	h.writeJSON(w, http.StatusOK, map[string]int64{
		"hits":   hits,
		"misses": misses,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
