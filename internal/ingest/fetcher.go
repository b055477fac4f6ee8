package ingest

import (
	"context"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// Item is one entry pulled from a source before persistence. IDs and content
// hashes are assigned by the Ingestor, not the fetcher.
type Item struct {
	URL   string
	Title string
	Body  string
}

// Fetcher pulls the current items from a single source.
type Fetcher interface {
	Fetch(ctx context.Context, src model.Source) ([]Item, error)
}
