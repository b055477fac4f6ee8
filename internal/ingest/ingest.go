package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/crystalford/canopticon-sub002/internal/model"
	"github.com/crystalford/canopticon-sub002/internal/store"
)

// RawInserter persists fetched items.
type RawInserter interface {
	InsertRawArticle(ctx context.Context, raw model.RawArticle) error
}

// Logger records per-source problems into the caller's audit trail. A nil
// Logger falls back to the process log.
type Logger interface {
	Warn(ctx context.Context, msg string)
	Error(ctx context.Context, msg string)
}

// Stats summarises one ingestion pass.
type Stats struct {
	Fetched      int `json:"fetched"`
	Inserted     int `json:"inserted"`
	Duplicates   int `json:"duplicates"`
	SourceErrors int `json:"source_errors"`
	EnrichErrors int `json:"enrich_errors"`
	SkippedKinds int `json:"skipped_kinds"`
}

// Ingestor pulls items from all active sources and persists the new ones.
// A failing source never aborts the pass; it is logged and skipped.
type Ingestor struct {
	raws     RawInserter
	fetchers map[string]Fetcher
	enricher *Enricher
	timeout  time.Duration
}

// New creates an Ingestor. fetchers is keyed by source kind; enricher may be
// nil to disable body enrichment.
func New(raws RawInserter, fetchers map[string]Fetcher, enricher *Enricher, timeout time.Duration) *Ingestor {
	return &Ingestor{raws: raws, fetchers: fetchers, enricher: enricher, timeout: timeout}
}

// Run fetches every source in order and inserts the deduplicated results.
// Per-source failures are recorded on log and the pass continues.
func (ing *Ingestor) Run(ctx context.Context, sources []model.Source, log Logger) Stats {
	var stats Stats
	for _, src := range sources {
		fetcher, ok := ing.fetchers[src.Kind]
		if !ok {
			logWarn(ctx, log, fmt.Sprintf("no fetcher for source %s kind %q", src.Name, src.Kind))
			stats.SkippedKinds++
			continue
		}

		fetchCtx, cancel := context.WithTimeout(ctx, ing.timeout)
		items, err := fetcher.Fetch(fetchCtx, src)
		cancel()
		if err != nil {
			logError(ctx, log, fmt.Sprintf("source %s fetch failed: %v", src.Name, err))
			stats.SourceErrors++
			continue
		}
		stats.Fetched += len(items)

		for _, item := range items {
			body := item.Body
			if body == "" && ing.enricher != nil && item.URL != "" {
				enrichCtx, cancel := context.WithTimeout(ctx, ing.timeout)
				text, err := ing.enricher.Enrich(enrichCtx, item.URL)
				cancel()
				if err != nil {
					slog.Debug("enrichment failed", "url", item.URL, "error", err)
					stats.EnrichErrors++
				} else {
					body = text
				}
			}

			raw := model.NewRawArticle(uuid.NewString(), src.ID, item.URL, item.Title, body)
			err := ing.raws.InsertRawArticle(ctx, raw)
			if errors.Is(err, store.ErrDuplicate) {
				stats.Duplicates++
				continue
			}
			if err != nil {
				logError(ctx, log, fmt.Sprintf("insert raw article %s failed: %v", item.URL, err))
				stats.SourceErrors++
				continue
			}
			stats.Inserted++
		}
	}
	return stats
}

func logWarn(ctx context.Context, log Logger, msg string) {
	if log != nil {
		log.Warn(ctx, msg)
		return
	}
	slog.Warn(msg)
}

func logError(ctx context.Context, log Logger, msg string) {
	if log != nil {
		log.Error(ctx, msg)
		return
	}
	slog.Error(msg)
}
