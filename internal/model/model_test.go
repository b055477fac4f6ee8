package model

import (
	"strings"
	"testing"
)

func TestNewSignal(t *testing.T) {
	clusterID := "cluster-1"
	sig := NewSignal("sig-1", &clusterID, "Headline", "Summary", "https://example.com", "example-feed")

	if sig.Status != StatusPending {
		t.Errorf("Status = %q, want %q", sig.Status, StatusPending)
	}
	if sig.Scored() {
		t.Error("new signal should not be scored")
	}
	if sig.Priority != PriorityLow {
		t.Errorf("Priority = %q, want %q", sig.Priority, PriorityLow)
	}
	if sig.CreatedAt == "" || sig.CreatedAt != sig.UpdatedAt {
		t.Errorf("timestamps: created=%q updated=%q", sig.CreatedAt, sig.UpdatedAt)
	}
}

func TestSignalScored(t *testing.T) {
	sig := NewSignal("sig-1", nil, "H", "S", "", "src")
	zero := 0
	sig.ConfidenceScore = &zero
	if !sig.Scored() {
		t.Error("signal with score 0 should count as scored")
	}
}

func TestValidPriority(t *testing.T) {
	for _, p := range []string{PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical} {
		if !ValidPriority(p) {
			t.Errorf("ValidPriority(%q) = false, want true", p)
		}
	}
	if ValidPriority("urgent") {
		t.Error(`ValidPriority("urgent") = true, want false`)
	}
}

func TestContentHash(t *testing.T) {
	a := ContentHash("src-1", "https://example.com/a", "Title", "Body")
	b := ContentHash("src-1", "https://example.com/a", "Title", "Body")
	if a != b {
		t.Error("identical content should hash identically")
	}

	c := ContentHash("src-2", "https://example.com/a", "Title", "Body")
	if a == c {
		t.Error("different source should change the hash")
	}

	// Field boundaries matter: ("ab","c") must differ from ("a","bc").
	d := ContentHash("src-1", "https://example.com/a", "Titl", "eBody")
	if a == d {
		t.Error("field boundaries should affect the hash")
	}
}

func TestNewRawArticle(t *testing.T) {
	raw := NewRawArticle("raw-1", "src-1", "https://example.com", "Title", "Body")
	if raw.IsProcessed {
		t.Error("new raw article should be unprocessed")
	}
	if raw.ContentHash != ContentHash("src-1", "https://example.com", "Title", "Body") {
		t.Error("content hash mismatch")
	}
	if raw.FetchedAt == "" {
		t.Error("FetchedAt should be set")
	}
}

func TestSlugify(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"Bill C-11 Passes Final Vote", "bill-c-11-passes-final-vote"},
		{"  Trailing punctuation!!!  ", "trailing-punctuation"},
		{"", "untitled"},
		{"///", "untitled"},
	}
	for _, tt := range tests {
		if got := Slugify(tt.in); got != tt.want {
			t.Errorf("Slugify(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}

	long := Slugify(strings.Repeat("word ", 40))
	if len(long) > 80 {
		t.Errorf("slug length = %d, want <= 80", len(long))
	}
}

func TestNewDraftArticle(t *testing.T) {
	sigID := "sig-1"
	a := NewDraftArticle("art-1", &sigID, "slug", "Headline", "Summary", `{"sections":[]}`)
	if !a.IsDraft {
		t.Error("new article should be a draft")
	}
	if a.PublishedAt != nil {
		t.Error("PublishedAt should be nil for drafts")
	}
}
