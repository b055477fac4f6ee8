package ingest

import (
	"context"
	"fmt"

	"github.com/mmcdole/gofeed"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

const maxSummaryLength = 200

// RSSFetcher pulls items from RSS/Atom feeds.
type RSSFetcher struct {
	parser *gofeed.Parser
}

// NewRSSFetcher creates an RSS/Atom fetcher.
func NewRSSFetcher() *RSSFetcher {
	return &RSSFetcher{parser: gofeed.NewParser()}
}

// Fetch parses the source's feed URL and returns its entries.
func (f *RSSFetcher) Fetch(ctx context.Context, src model.Source) ([]Item, error) {
	feed, err := f.parser.ParseURLWithContext(src.URL, ctx)
	if err != nil {
		return nil, fmt.Errorf("parse feed %s: %w", src.URL, err)
	}

	items := make([]Item, 0, len(feed.Items))
	for _, entry := range feed.Items {
		if entry.Link == "" && entry.Title == "" {
			continue
		}
		body := entry.Description
		if body == "" && entry.Content != "" {
			body = truncate(entry.Content, maxSummaryLength)
		}
		items = append(items, Item{
			URL:   entry.Link,
			Title: entry.Title,
			Body:  body,
		})
	}
	return items, nil
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen-3] + "..."
}
