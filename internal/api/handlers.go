package api

import (
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/crystalford/canopticon-sub002/internal/model"
	"github.com/crystalford/canopticon-sub002/internal/orchestrator"
	"github.com/crystalford/canopticon-sub002/internal/store"
	"github.com/crystalford/canopticon-sub002/internal/triage"
)

// ---------------------------------------------------------------------------
// Automation
// ---------------------------------------------------------------------------

func (s *Server) handleRunCycle(w http.ResponseWriter, r *http.Request) {
	ov, err := parseOverrides(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.runner.RunWith(r.Context(), ov)
	if err != nil {
		if errors.Is(err, orchestrator.ErrCycleRunning) {
			writeError(w, http.StatusConflict, "a cycle is already running")
			return
		}
		slog.Error("cycle failed", "error", err)
		resp := map[string]interface{}{"error": "cycle failed: " + err.Error()}
		if summary != nil {
			// Counts accumulated before the abort are still useful.
			resp["summary"] = summary
		}
		writeJSON(w, http.StatusInternalServerError, resp)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

// parseOverrides reads per-cycle parameters from the query string.
func parseOverrides(r *http.Request) (orchestrator.Overrides, error) {
	var ov orchestrator.Overrides
	q := r.URL.Query()

	if v := q.Get("significanceThreshold"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 || n > 100 {
			return ov, errors.New("significanceThreshold must be an integer in [0, 100]")
		}
		ov.Threshold = &n
	}
	if v := q.Get("enableAutoPublish"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return ov, errors.New("enableAutoPublish must be a boolean")
		}
		ov.AutoPublish = &b
	}
	if v := q.Get("batchSize"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return ov, errors.New("batchSize must be a positive integer")
		}
		ov.BatchSize = &n
	}
	return ov, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	counts, err := s.store.CountByStatus(r.Context())
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": "failed to count signals"})
		return
	}
	cutoff := time.Now().UTC().Add(-s.stallWindow).Format(time.RFC3339)
	stalled, err := s.store.CountStalledProcessing(r.Context(), cutoff)
	if err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unhealthy", "error": "failed to count stalled signals"})
		return
	}

	status := "healthy"
	if stalled > 0 {
		status = "degraded"
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  status,
		"signals": counts,
		"stalled": stalled,
	})
}

func (s *Server) handleCycleLogs(w http.ResponseWriter, r *http.Request) {
	cycleID := r.PathValue("cycleId")
	logs, err := s.store.ListCycleLogs(r.Context(), cycleID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list cycle logs")
		return
	}
	if len(logs) == 0 {
		writeError(w, http.StatusNotFound, "no logs for cycle "+cycleID)
		return
	}
	writeJSON(w, http.StatusOK, logs)
}

// ---------------------------------------------------------------------------
// Signals
// ---------------------------------------------------------------------------

func (s *Server) handleListSignals(w http.ResponseWriter, r *http.Request) {
	filter := model.SignalFilter{
		Status:   splitComma(r.URL.Query().Get("status")),
		Priority: splitComma(r.URL.Query().Get("priority")),
	}
	for _, st := range filter.Status {
		if !model.ValidStatus(st) {
			writeError(w, http.StatusBadRequest, "unknown status: "+st)
			return
		}
	}
	for _, p := range filter.Priority {
		if !model.ValidPriority(p) {
			writeError(w, http.StatusBadRequest, "unknown priority: "+p)
			return
		}
	}

	signals, err := s.store.ListSignals(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list signals")
		return
	}
	writeJSON(w, http.StatusOK, signals)
}

func (s *Server) handleGetSignal(w http.ResponseWriter, r *http.Request) {
	sig, err := s.store.GetSignal(r.Context(), r.PathValue("id"))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "signal not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get signal")
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

// transitionHandler returns a handler that moves a signal to the given status.
func (s *Server) transitionHandler(to string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sig, err := s.triager.Transition(r.Context(), r.PathValue("id"), to)
		if err != nil {
			writeTriageError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, sig)
	}
}

func (s *Server) handleRescueSignal(w http.ResponseWriter, r *http.Request) {
	sig, err := s.triager.Rescue(r.Context(), r.PathValue("id"))
	if err != nil {
		writeTriageError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sig)
}

func (s *Server) handleDeleteSignal(w http.ResponseWriter, r *http.Request) {
	if err := s.triager.HardDelete(r.Context(), r.PathValue("id")); err != nil {
		writeTriageError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// writeTriageError maps triage and store errors onto HTTP statuses.
func writeTriageError(w http.ResponseWriter, err error) {
	var invalid *triage.InvalidTransitionError
	switch {
	case errors.Is(err, sql.ErrNoRows):
		writeError(w, http.StatusNotFound, "signal not found")
	case errors.As(err, &invalid):
		writeError(w, http.StatusConflict, invalid.Error())
	case errors.Is(err, store.ErrConflict):
		writeError(w, http.StatusConflict, err.Error())
	default:
		writeError(w, http.StatusInternalServerError, "signal operation failed")
	}
}

// ---------------------------------------------------------------------------
// Articles
// ---------------------------------------------------------------------------

func (s *Server) handleListArticles(w http.ResponseWriter, r *http.Request) {
	includeDrafts := r.URL.Query().Get("drafts") == "true"
	articles, err := s.store.ListArticles(r.Context(), includeDrafts)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list articles")
		return
	}
	writeJSON(w, http.StatusOK, articles)
}

func (s *Server) handleGetArticle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	article, err := s.store.GetArticle(r.Context(), id)
	if errors.Is(err, sql.ErrNoRows) {
		// Fall back to slug lookup so published URLs resolve directly.
		article, err = s.store.GetArticleBySlug(r.Context(), id)
	}
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "article not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get article")
		return
	}
	writeJSON(w, http.StatusOK, article)
}

func (s *Server) handlePublishArticle(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if err := s.store.PublishArticle(r.Context(), id); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			writeError(w, http.StatusNotFound, "article not found")
		case errors.Is(err, store.ErrConflict):
			writeError(w, http.StatusConflict, "article is already published")
		default:
			writeError(w, http.StatusInternalServerError, "failed to publish article")
		}
		return
	}
	article, err := s.store.GetArticle(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get article")
		return
	}
	writeJSON(w, http.StatusOK, article)
}

// ---------------------------------------------------------------------------
// Sources
// ---------------------------------------------------------------------------

func (s *Server) handleListSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.store.ListSources(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list sources")
		return
	}
	writeJSON(w, http.StatusOK, sources)
}
