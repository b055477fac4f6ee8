package ingest

import (
	"context"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// StubFetcher returns canned items for development and tests.
type StubFetcher struct {
	Items []Item
	Err   error
}

// Fetch returns the configured items or error regardless of source.
func (f *StubFetcher) Fetch(ctx context.Context, src model.Source) ([]Item, error) {
	if f.Err != nil {
		return nil, f.Err
	}
	return f.Items, nil
}
