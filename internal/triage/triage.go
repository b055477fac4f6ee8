package triage

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// transitions lists the legal status moves. Anything not listed is rejected.
var transitions = map[string][]string{
	model.StatusPending:    {model.StatusApproved, model.StatusRejected},
	model.StatusApproved:   {model.StatusProcessing, model.StatusArchived},
	model.StatusProcessing: {model.StatusApproved, model.StatusPublished},
	model.StatusArchived:   {model.StatusPending},
	// published and rejected are terminal.
}

// Allowed reports whether a signal may move from one status to another.
func Allowed(from, to string) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError reports an attempt to move a signal along an edge
// the lifecycle does not have.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition %s → %s", e.From, e.To)
}

// Store provides the signal operations triage needs.
type Store interface {
	GetSignal(ctx context.Context, id string) (*model.Signal, error)
	ListSignals(ctx context.Context, f model.SignalFilter) ([]model.Signal, error)
	UpdateSignalStatus(ctx context.Context, id, from, to string) error
	DeleteSignal(ctx context.Context, id string) error
}

// Manager enforces the signal lifecycle.
type Manager struct {
	store     Store
	threshold int
	grace     time.Duration
}

// New creates a triage Manager. threshold is the minimum confidence score for
// automatic approval; grace is how long a below-threshold signal stays
// pending before auto-rejection, leaving operators room to override.
func New(store Store, threshold int, grace time.Duration) *Manager {
	return &Manager{store: store, threshold: threshold, grace: grace}
}

// Transition moves a signal to a new status, validating the edge against the
// lifecycle. The underlying update is conditional on the observed status, so
// concurrent transitions surface as store.ErrConflict rather than clobbering
// each other.
func (m *Manager) Transition(ctx context.Context, id, to string) (*model.Signal, error) {
	sig, err := m.store.GetSignal(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Allowed(sig.Status, to) {
		return nil, &InvalidTransitionError{From: sig.Status, To: to}
	}
	if err := m.store.UpdateSignalStatus(ctx, id, sig.Status, to); err != nil {
		return nil, err
	}
	return m.store.GetSignal(ctx, id)
}

// AutoStats summarises one auto-triage pass.
type AutoStats struct {
	Approved int `json:"approved"`
	Rejected int `json:"rejected"`
	Skipped  int `json:"skipped"`
}

// AutoTriage sorts scored pending signals using the configured threshold.
func (m *Manager) AutoTriage(ctx context.Context) (AutoStats, error) {
	return m.AutoTriageAt(ctx, m.threshold)
}

// AutoTriageAt sorts scored pending signals: at or above the threshold they
// are approved right away; below it they are rejected only once older than
// the grace window, so an operator can still step in. Unscored signals stay
// pending for an operator to look at.
func (m *Manager) AutoTriageAt(ctx context.Context, threshold int) (AutoStats, error) {
	var stats AutoStats
	pending, err := m.store.ListSignals(ctx, model.SignalFilter{Status: []string{model.StatusPending}})
	if err != nil {
		return stats, fmt.Errorf("list pending: %w", err)
	}

	for _, sig := range pending {
		if !sig.Scored() {
			stats.Skipped++
			continue
		}
		to := model.StatusRejected
		if *sig.ConfidenceScore >= threshold {
			to = model.StatusApproved
		} else if withinGrace(sig.UpdatedAt, m.grace) {
			stats.Skipped++
			continue
		}
		if err := m.store.UpdateSignalStatus(ctx, sig.ID, model.StatusPending, to); err != nil {
			// A concurrent operator decision wins; move on.
			slog.Warn("auto-triage transition skipped", "signal_id", sig.ID, "error", err)
			continue
		}
		if to == model.StatusApproved {
			stats.Approved++
		} else {
			stats.Rejected++
		}
	}
	return stats, nil
}

// Rescue puts an archived signal back into the pending queue.
func (m *Manager) Rescue(ctx context.Context, id string) (*model.Signal, error) {
	return m.Transition(ctx, id, model.StatusPending)
}

// HardDelete permanently removes a signal and its derived articles,
// regardless of status. Irreversible; this purges the signal's history,
// including published articles.
func (m *Manager) HardDelete(ctx context.Context, id string) error {
	return m.store.DeleteSignal(ctx, id)
}

// withinGrace reports whether ts is newer than the grace window. An
// unparseable timestamp counts as expired.
func withinGrace(ts string, grace time.Duration) bool {
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return false
	}
	return time.Since(t) < grace
}
