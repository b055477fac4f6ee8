// Package worker runs automation cycles on a fixed schedule.
package worker

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/crystalford/canopticon-sub002/internal/orchestrator"
)

// CycleRunner executes one automation cycle.
type CycleRunner interface {
	Run(ctx context.Context) (*orchestrator.Summary, error)
}

// Worker triggers a cycle every interval. Cycles triggered via the API while
// the scheduler is mid-cycle are handled by the runner's own lock.
type Worker struct {
	runner   CycleRunner
	interval time.Duration
}

// New creates a new Worker.
func New(runner CycleRunner, interval time.Duration) *Worker {
	return &Worker{runner: runner, interval: interval}
}

// Start begins the cycle loop. It blocks until ctx is cancelled.
func (w *Worker) Start(ctx context.Context) {
	slog.Info("cycle scheduler started", "interval", w.interval.String())
	for {
		select {
		case <-ctx.Done():
			slog.Info("cycle scheduler stopped")
			return
		default:
		}

		summary, err := w.runner.Run(ctx)
		switch {
		case errors.Is(err, orchestrator.ErrCycleRunning):
			slog.Info("cycle already in flight, skipping tick")
		case err != nil:
			slog.Error("scheduled cycle failed", "error", err)
		default:
			slog.Info("scheduled cycle finished",
				"cycle_id", summary.CycleID,
				"ingested", summary.Ingest.Inserted,
				"scored", summary.Scored,
				"synthesized", summary.Synthesized,
				"published", summary.Published)
		}

		w.sleep(ctx)
	}
}

func (w *Worker) sleep(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(w.interval):
	}
}
