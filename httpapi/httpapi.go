// Package httpapi exposes the orchestrator over HTTP.
//
// One representative endpoint: POST /query runs a single stateless turn
// and returns the turn's final text. The server owns one Runner; requests
// are serialized with a mutex and the shared conversation is cleared
// before each turn, so unrelated requests never see each other's history.
package httpapi

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/mhalter/tabletalk/agent"
)

// Server handles HTTP requests against a shared Runner.
type Server struct {
	runner *agent.Runner
	mu     sync.Mutex
	ready  atomic.Bool
}

// New creates a Server. The server reports 503 until SetReady(true) is
// called, which the entry point does once the backend connection and the
// tool catalog are up.
func New(runner *agent.Runner) *Server {
	return &Server{runner: runner}
}

// SetReady flips the readiness gate.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", s.handleHealthz)
	r.Post("/query", s.handleQuery)
	return r
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]bool{"ok": s.ready.Load()})
}

func (s *Server) handleQuery(w http.ResponseWriter, r *http.Request) {
	if !s.ready.Load() {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{
			"error": "Backend connection not ready",
		})
		return
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeBadQuery(w)
		return
	}
	raw, ok := body["query"]
	if !ok {
		writeBadQuery(w)
		return
	}
	var query string
	if err := json.Unmarshal(raw, &query); err != nil || query == "" {
		writeBadQuery(w)
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.runner.Conversation().Clear()
	result, err := s.runner.RunTurn(r.Context(), query, agent.Stateless)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"result": result})
}

func writeBadQuery(w http.ResponseWriter) {
	writeJSON(w, http.StatusBadRequest, map[string]string{
		"error": "Missing or invalid 'query' field in request body",
	})
}

func writeJSON(w http.ResponseWriter, code int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(data)
}
