package orchestrator

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// cycleLogger mirrors every message to the process log and to the cycle_logs
// table, tagged with the owning cycle for the logs endpoint.
type cycleLogger struct {
	store   Store
	cycleID string
}

func newCycleLogger(st Store, cycleID string) *cycleLogger {
	return &cycleLogger{store: st, cycleID: cycleID}
}

func (l *cycleLogger) Info(ctx context.Context, msg string) {
	slog.Info(msg, "cycle_id", l.cycleID)
	l.persist(ctx, model.LogLevelInfo, msg)
}

func (l *cycleLogger) Warn(ctx context.Context, msg string) {
	slog.Warn(msg, "cycle_id", l.cycleID)
	l.persist(ctx, model.LogLevelWarn, msg)
}

func (l *cycleLogger) Error(ctx context.Context, msg string) {
	slog.Error(msg, "cycle_id", l.cycleID)
	l.persist(ctx, model.LogLevelError, msg)
}

func (l *cycleLogger) persist(ctx context.Context, level, msg string) {
	entry := model.NewCycleLog(uuid.NewString(), l.cycleID, level, msg)
	if err := l.store.InsertCycleLog(ctx, entry); err != nil {
		slog.Error("persist cycle log failed", "cycle_id", l.cycleID, "error", err)
	}
}

func encodeDocument(sections []model.Section) (string, error) {
	b, err := json.Marshal(model.Document{Sections: sections})
	if err != nil {
		return "", fmt.Errorf("encode document: %w", err)
	}
	return string(b), nil
}
