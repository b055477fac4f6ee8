package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// maxAPIBodySize caps the response size accepted from a JSON source (5MB).
const maxAPIBodySize = 5 * 1024 * 1024

// APIFetcher pulls items from JSON endpoints. The endpoint is expected to
// return either a bare array of items or an object with an "items" array,
// each item carrying title/url and optionally summary or body.
type APIFetcher struct {
	client *http.Client
}

// NewAPIFetcher creates a JSON API fetcher.
func NewAPIFetcher(timeout time.Duration) *APIFetcher {
	return &APIFetcher{client: &http.Client{Timeout: timeout}}
}

type apiItem struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Link    string `json:"link"`
	Summary string `json:"summary"`
	Body    string `json:"body"`
}

// Fetch retrieves and decodes the source's JSON endpoint.
func (f *APIFetcher) Fetch(ctx context.Context, src model.Source) ([]Item, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", src.URL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP %d for %s", resp.StatusCode, src.URL)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxAPIBodySize))
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}

	var raw []apiItem
	if err := json.Unmarshal(body, &raw); err != nil {
		var wrapper struct {
			Items []apiItem `json:"items"`
		}
		if err2 := json.Unmarshal(body, &wrapper); err2 != nil {
			return nil, fmt.Errorf("decode response from %s: %w", src.URL, err)
		}
		raw = wrapper.Items
	}

	items := make([]Item, 0, len(raw))
	for _, it := range raw {
		url := it.URL
		if url == "" {
			url = it.Link
		}
		if url == "" && it.Title == "" {
			continue
		}
		itemBody := it.Body
		if itemBody == "" {
			itemBody = it.Summary
		}
		items = append(items, Item{URL: url, Title: it.Title, Body: itemBody})
	}
	return items, nil
}
