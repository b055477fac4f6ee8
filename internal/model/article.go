package model

import (
	"regexp"
	"strings"
	"time"
)

// Article is a synthesized piece of long-form content derived from an
// approved Signal (or an ad-hoc topic, in which case SignalID is nil).
// It is created as a draft; publishing flips IsDraft and stamps PublishedAt.
type Article struct {
	ID          string  `json:"id"`
	SignalID    *string `json:"signal_id,omitempty"`
	Slug        string  `json:"slug"`
	Headline    string  `json:"headline"`
	Summary     string  `json:"summary"`
	Content     string  `json:"content"` // JSON-encoded Document
	IsDraft     bool    `json:"is_draft"`
	PublishedAt *string `json:"published_at,omitempty"`
	CreatedAt   string  `json:"created_at"`
}

// Document is the structured body of an article.
type Document struct {
	Sections []Section `json:"sections"`
}

// Section is one heading plus its paragraphs.
type Section struct {
	Heading    string   `json:"heading"`
	Paragraphs []string `json:"paragraphs"`
}

// NewDraftArticle creates a draft Article linked to a signal.
func NewDraftArticle(id string, signalID *string, slug, headline, summary, content string) Article {
	return Article{
		ID:        id,
		SignalID:  signalID,
		Slug:      slug,
		Headline:  headline,
		Summary:   summary,
		Content:   content,
		IsDraft:   true,
		CreatedAt: time.Now().UTC().Format(time.RFC3339),
	}
}

var nonSlug = regexp.MustCompile(`[^a-z0-9]+`)

// Slugify turns a headline into a URL-safe slug.
func Slugify(headline string) string {
	s := strings.ToLower(strings.TrimSpace(headline))
	s = nonSlug.ReplaceAllString(s, "-")
	s = strings.Trim(s, "-")
	if len(s) > 80 {
		s = strings.Trim(s[:80], "-")
	}
	if s == "" {
		s = "untitled"
	}
	return s
}
