package model

import "time"

// Cycle log levels
const (
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

// CycleLog is one append-only audit entry for an automation cycle. Entries
// are only inserted and later queried or pruned, never mutated.
type CycleLog struct {
	ID        string `json:"id"`
	CycleID   string `json:"cycle_id"`
	Level     string `json:"level"`
	Message   string `json:"message"`
	CreatedAt string `json:"created_at"`
}

// NewCycleLog creates a log entry tagged with the owning cycle.
func NewCycleLog(id, cycleID, level, message string) CycleLog {
	return CycleLog{
		ID:        id,
		CycleID:   cycleID,
		Level:     level,
		Message:   message,
		CreatedAt: time.Now().UTC().Format(time.RFC3339Nano),
	}
}
