package model

import "time"

// Signal status constants
const (
	StatusPending    = "pending"
	StatusProcessing = "processing"
	StatusApproved   = "approved"
	StatusPublished  = "published"
	StatusArchived   = "archived"
	StatusRejected   = "rejected"
)

// Priority tiers assigned by the scoring stage.
const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Signal is a scored, deduplicated unit of news significance derived from a
// cluster of raw items. ConfidenceScore is nil until the scoring stage has
// produced a result, so "not yet scored" is distinguishable from "scored as
// zero significance".
type Signal struct {
	ID              string   `json:"id"`
	ClusterID       *string  `json:"cluster_id,omitempty"`
	Headline        string   `json:"headline"`
	Summary         string   `json:"summary"`
	URL             string   `json:"url"`
	SourceName      string   `json:"source_name"`
	Priority        string   `json:"priority"`
	Status          string   `json:"status"`
	ConfidenceScore *int     `json:"confidence_score,omitempty"`
	Entities        []string `json:"entities"`
	Topics          []string `json:"topics"`
	CreatedAt       string   `json:"created_at"`
	UpdatedAt       string   `json:"updated_at"`
}

// SignalFilter holds query parameters for listing signals.
type SignalFilter struct {
	Status   []string
	Priority []string
}

// NewSignal creates an unscored Signal in pending status.
func NewSignal(id string, clusterID *string, headline, summary, url, sourceName string) Signal {
	now := time.Now().UTC().Format(time.RFC3339)
	return Signal{
		ID:         id,
		ClusterID:  clusterID,
		Headline:   headline,
		Summary:    summary,
		URL:        url,
		SourceName: sourceName,
		Priority:   PriorityLow,
		Status:     StatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// Scored reports whether the scoring stage has produced a result for this signal.
func (s *Signal) Scored() bool {
	return s.ConfidenceScore != nil
}

// ValidStatus reports whether s is one of the known lifecycle statuses.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusProcessing, StatusApproved,
		StatusPublished, StatusArchived, StatusRejected:
		return true
	}
	return false
}

// ValidPriority reports whether p is one of the known priority tiers.
func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}
