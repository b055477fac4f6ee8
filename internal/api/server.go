package api

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/crystalford/canopticon-sub002/internal/model"
	"github.com/crystalford/canopticon-sub002/internal/orchestrator"
	"github.com/crystalford/canopticon-sub002/internal/store"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// CycleRunner triggers automation cycles with optional per-cycle overrides.
type CycleRunner interface {
	RunWith(ctx context.Context, ov orchestrator.Overrides) (*orchestrator.Summary, error)
}

// Triager exposes operator decisions on signals.
type Triager interface {
	Transition(ctx context.Context, id, to string) (*model.Signal, error)
	Rescue(ctx context.Context, id string) (*model.Signal, error)
	HardDelete(ctx context.Context, id string) error
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	store       store.Repository
	triager     Triager
	runner      CycleRunner
	corsOrigin  string
	stallWindow time.Duration
	mux         *http.ServeMux
}

// New creates a new API server. stallWindow is how long a signal may sit in
// processing before the health report counts it as stalled.
func New(s store.Repository, tr Triager, runner CycleRunner, corsOrigin string, stallWindow time.Duration) *Server {
	srv := &Server{
		store:       s,
		triager:     tr,
		runner:      runner,
		corsOrigin:  corsOrigin,
		stallWindow: stallWindow,
		mux:         http.NewServeMux(),
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.corsMiddleware(limitBody(jsonContent(s.mux)))
}

func (s *Server) routes() {
	s.mux.HandleFunc("POST /api/automation/run", s.handleRunCycle)
	s.mux.HandleFunc("GET /api/automation/health", s.handleHealth)
	s.mux.HandleFunc("GET /api/automation/logs/{cycleId}", s.handleCycleLogs)

	s.mux.HandleFunc("GET /api/signals", s.handleListSignals)
	s.mux.HandleFunc("GET /api/signals/{id}", s.handleGetSignal)
	s.mux.HandleFunc("POST /api/signals/{id}/approve", s.transitionHandler(model.StatusApproved))
	s.mux.HandleFunc("POST /api/signals/{id}/reject", s.transitionHandler(model.StatusRejected))
	s.mux.HandleFunc("POST /api/signals/{id}/archive", s.transitionHandler(model.StatusArchived))
	s.mux.HandleFunc("POST /api/signals/{id}/rescue", s.handleRescueSignal)
	s.mux.HandleFunc("DELETE /api/signals/{id}", s.handleDeleteSignal)

	s.mux.HandleFunc("GET /api/articles", s.handleListArticles)
	s.mux.HandleFunc("GET /api/articles/{id}", s.handleGetArticle)
	s.mux.HandleFunc("POST /api/articles/{id}/publish", s.handlePublishArticle)

	s.mux.HandleFunc("GET /api/sources", s.handleListSources)
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// corsMiddleware sets CORS headers using the configured allowed origin.
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	origin := s.corsOrigin
	if origin == "" {
		origin = "*"
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", origin)
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func splitComma(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
