package model

import "time"

// Source kind constants
const (
	SourceKindRSS    = "rss"
	SourceKindAPI    = "api"
	SourceKindSocial = "social"
)

// Source is a configured content origin. Sources are created by operator
// configuration and never auto-deleted; ingestion only reads them.
type Source struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	URL       string `json:"url"`
	Kind      string `json:"kind"`
	Active    bool   `json:"active"`
	Priority  int    `json:"priority"`
	CreatedAt string `json:"created_at"`
}

// NewSource creates an active Source.
func NewSource(id, name, url, kind string, priority int) Source {
	return Source{
		ID:        id,
		Name:      name,
		URL:       url,
		Kind:      kind,
		Active:    true,
		Priority:  priority,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}
