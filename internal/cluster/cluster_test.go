package cluster

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/crystalford/canopticon-sub002/internal/model"
	"github.com/crystalford/canopticon-sub002/internal/store"
)

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

func insertRaw(t *testing.T, s *store.Store, id, title string) {
	t.Helper()
	raw := model.NewRawArticle(id, "src-1", "https://example.com/"+id, title, "body")
	if err := s.InsertRawArticle(context.Background(), raw); err != nil {
		t.Fatalf("InsertRawArticle(%s): %v", id, err)
	}
}

func TestTitleTokens(t *testing.T) {
	got := titleTokens("Bill C-11 Passes Final Vote!")
	want := []string{"bill", "c", "11", "passes", "final", "vote"}
	if len(got) != len(want) {
		t.Fatalf("tokens = %v, want %d tokens", got, len(want))
	}
	for _, tok := range want {
		if _, ok := got[tok]; !ok {
			t.Errorf("missing token %q in %v", tok, got)
		}
	}
}

func TestJaccard(t *testing.T) {
	a := titleTokens("Bill C-11 Passes Final Vote")
	b := titleTokens("Parliament Passes Bill C-11")
	// Intersection {bill, c, 11, passes} = 4, union = 7.
	if sim := jaccard(a, b); sim < similarityThreshold {
		t.Errorf("jaccard = %.3f, want >= %.2f", sim, similarityThreshold)
	}

	c := titleTokens("Housing Starts Fall in August")
	if sim := jaccard(a, c); sim >= similarityThreshold {
		t.Errorf("jaccard unrelated = %.3f, want < %.2f", sim, similarityThreshold)
	}

	if jaccard(titleTokens(""), titleTokens("")) != 0 {
		t.Error("jaccard of empty sets should be 0")
	}
}

func TestRun_GroupsSimilarTitles(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertRaw(t, s, "raw-a", "Bill C-11 Passes Final Vote")
	insertRaw(t, s, "raw-b", "Parliament Passes Bill C-11")
	insertRaw(t, s, "raw-c", "Housing Starts Fall in August")

	c := New(s, 20)
	stats, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Clusters != 2 {
		t.Errorf("Clusters = %d, want 2", stats.Clusters)
	}
	if stats.Items != 3 {
		t.Errorf("Items = %d, want 3", stats.Items)
	}

	// All raws consumed.
	left, err := s.ListUnprocessedRaw(ctx, 10)
	if err != nil {
		t.Fatalf("ListUnprocessedRaw: %v", err)
	}
	if len(left) != 0 {
		t.Errorf("unprocessed after run = %d, want 0", len(left))
	}
}

func TestRun_Idempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	insertRaw(t, s, "raw-a", "Some Story Headline")

	c := New(s, 20)
	if _, err := c.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}

	stats, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("second Run: %v", err)
	}
	if stats.Clusters != 0 {
		t.Errorf("second run Clusters = %d, want 0", stats.Clusters)
	}
}

func TestRun_Empty(t *testing.T) {
	s := newTestStore(t)
	stats, err := New(s, 20).Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if stats.Clusters != 0 || stats.Items != 0 {
		t.Errorf("stats = %+v, want zero", stats)
	}
}
