package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/crystalford/canopticon-sub002/internal/model"
	"github.com/crystalford/canopticon-sub002/internal/store"
)

// recordingLogger captures audit messages for assertions.
type recordingLogger struct {
	warns []string
	errs  []string
}

func (l *recordingLogger) Warn(_ context.Context, msg string)  { l.warns = append(l.warns, msg) }
func (l *recordingLogger) Error(_ context.Context, msg string) { l.errs = append(l.errs, msg) }

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	db, err := store.OpenSQLite(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	s, err := store.New(db)
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	return s
}

func TestIngestorRun_InsertsAndDedupes(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	stub := &StubFetcher{Items: []Item{
		{URL: "https://example.com/a", Title: "First story", Body: "body a"},
		{URL: "https://example.com/b", Title: "Second story", Body: "body b"},
	}}
	ing := New(s, map[string]Fetcher{model.SourceKindRSS: stub}, nil, time.Second)

	sources := []model.Source{model.NewSource("src-1", "Stub Feed", "https://example.com/rss", model.SourceKindRSS, 1)}

	stats := ing.Run(ctx, sources, nil)
	if stats.Inserted != 2 {
		t.Errorf("Inserted = %d, want 2", stats.Inserted)
	}

	// Second pass sees identical content; everything dedupes.
	stats = ing.Run(ctx, sources, nil)
	if stats.Inserted != 0 {
		t.Errorf("second pass Inserted = %d, want 0", stats.Inserted)
	}
	if stats.Duplicates != 2 {
		t.Errorf("second pass Duplicates = %d, want 2", stats.Duplicates)
	}

	unprocessed, err := s.ListUnprocessedRaw(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnprocessedRaw: %v", err)
	}
	if len(unprocessed) != 2 {
		t.Errorf("stored raw articles = %d, want 2", len(unprocessed))
	}
}

func TestIngestorRun_SourceFailureIsSoft(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	broken := &StubFetcher{Err: errors.New("feed unreachable")}
	working := &StubFetcher{Items: []Item{{URL: "https://example.com/a", Title: "Story", Body: "body"}}}
	ing := New(s, map[string]Fetcher{
		model.SourceKindRSS: broken,
		model.SourceKindAPI: working,
	}, nil, time.Second)

	sources := []model.Source{
		model.NewSource("src-broken", "Broken", "https://broken.example/rss", model.SourceKindRSS, 2),
		model.NewSource("src-ok", "Working", "https://ok.example/api", model.SourceKindAPI, 1),
	}

	log := &recordingLogger{}
	stats := ing.Run(ctx, sources, log)
	if stats.SourceErrors != 1 {
		t.Errorf("SourceErrors = %d, want 1", stats.SourceErrors)
	}
	if stats.Inserted != 1 {
		t.Errorf("Inserted = %d, want 1 (failing source must not abort the pass)", stats.Inserted)
	}

	// The audit trail must name the failing source at error level.
	if len(log.errs) != 1 {
		t.Fatalf("error entries = %d, want 1; got %v", len(log.errs), log.errs)
	}
	if !strings.Contains(log.errs[0], "Broken") {
		t.Errorf("error entry = %q, want it to name the failing source", log.errs[0])
	}
}

func TestIngestorRun_UnknownKindSkipped(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	ing := New(s, map[string]Fetcher{}, nil, time.Second)
	log := &recordingLogger{}
	stats := ing.Run(ctx, []model.Source{
		model.NewSource("src-1", "Social", "https://social.example", model.SourceKindSocial, 1),
	}, log)
	if stats.SkippedKinds != 1 {
		t.Errorf("SkippedKinds = %d, want 1", stats.SkippedKinds)
	}
	if len(log.warns) != 1 {
		t.Errorf("warn entries = %d, want 1; got %v", len(log.warns), log.warns)
	}
}

func TestRSSFetcher(t *testing.T) {
	feed := `<?xml version="1.0"?>
<rss version="2.0"><channel>
<title>Test Feed</title>
<item><title>Story One</title><link>https://example.com/1</link><description>Desc one</description></item>
<item><title>Story Two</title><link>https://example.com/2</link></item>
</channel></rss>`

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(feed))
	}))
	defer srv.Close()

	f := NewRSSFetcher()
	src := model.NewSource("src-1", "Test Feed", srv.URL, model.SourceKindRSS, 1)
	items, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 2 {
		t.Fatalf("items = %d, want 2", len(items))
	}
	if items[0].Title != "Story One" {
		t.Errorf("Title = %q, want %q", items[0].Title, "Story One")
	}
	if items[0].Body != "Desc one" {
		t.Errorf("Body = %q, want %q", items[0].Body, "Desc one")
	}
	if items[1].Body != "" {
		t.Errorf("Body without description = %q, want empty", items[1].Body)
	}
}

func TestAPIFetcher(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"items":[{"title":"API Story","url":"https://example.com/1","summary":"short"}]}`))
	}))
	defer srv.Close()

	f := NewAPIFetcher(2 * time.Second)
	src := model.NewSource("src-1", "Test API", srv.URL, model.SourceKindAPI, 1)
	items, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 {
		t.Fatalf("items = %d, want 1", len(items))
	}
	if items[0].Body != "short" {
		t.Errorf("Body = %q, want %q", items[0].Body, "short")
	}
}

func TestAPIFetcher_BareArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"title":"One","link":"https://example.com/1","body":"b"}]`))
	}))
	defer srv.Close()

	f := NewAPIFetcher(2 * time.Second)
	src := model.NewSource("src-1", "Test API", srv.URL, model.SourceKindAPI, 1)
	items, err := f.Fetch(context.Background(), src)
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if len(items) != 1 || items[0].URL != "https://example.com/1" {
		t.Errorf("items = %v, want one item with link as URL", items)
	}
}

func TestAPIFetcher_BadStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	f := NewAPIFetcher(2 * time.Second)
	src := model.NewSource("src-1", "Test API", srv.URL, model.SourceKindAPI, 1)
	if _, err := f.Fetch(context.Background(), src); err == nil {
		t.Fatal("expected error for HTTP 500")
	}
}

func TestNormalizeText(t *testing.T) {
	in := "  line one\t\twith   spaces\n\n\n\nline two  "
	want := "line one with spaces\n\nline two"
	if got := normalizeText(in); got != want {
		t.Errorf("normalizeText = %q, want %q", got, want)
	}
}
