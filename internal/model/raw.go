package model

import (
	"crypto/sha256"
	"fmt"
	"time"
)

// RawArticle is one normalized item fetched from a source, stored before any
// clustering or scoring. ContentHash deduplicates re-fetches of the same
// content; IsProcessed flips only after the item has been durably consumed
// by the clustering stage.
type RawArticle struct {
	ID          string `json:"id"`
	SourceID    string `json:"source_id"`
	URL         string `json:"url"`
	Title       string `json:"title"`
	Body        string `json:"body"`
	ContentHash string `json:"content_hash"`
	FetchedAt   string `json:"fetched_at"`
	IsProcessed bool   `json:"is_processed"`
}

// NewRawArticle creates an unprocessed RawArticle with its content hash computed.
func NewRawArticle(id, sourceID, url, title, body string) RawArticle {
	return RawArticle{
		ID:          id,
		SourceID:    sourceID,
		URL:         url,
		Title:       title,
		Body:        body,
		ContentHash: ContentHash(sourceID, url, title, body),
		FetchedAt:   time.Now().UTC().Format(time.RFC3339),
	}
}

// ContentHash computes the dedup hash for a fetched item. The same source
// content always yields the same hash, so re-fetches are skipped on insert.
func ContentHash(sourceID, url, title, body string) string {
	h := sha256.New()
	for _, part := range []string{sourceID, url, title, body} {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}
