package engine

import (
	"encoding/json"
	"testing"
)

func TestExtractJSON_Plain(t *testing.T) {
	in := `{"score": 80, "priority": "high"}`
	got := ExtractJSON(in)
	if got != in {
		t.Errorf("ExtractJSON = %q, want unchanged input", got)
	}
}

func TestExtractJSON_MarkdownFence(t *testing.T) {
	in := "Here is the assessment:\n```json\n{\"score\": 80}\n```\nHope that helps!"
	got := ExtractJSON(in)
	var v map[string]any
	if err := json.Unmarshal([]byte(got), &v); err != nil {
		t.Fatalf("extracted JSON invalid: %v (got %q)", err, got)
	}
	if v["score"] != float64(80) {
		t.Errorf("score = %v, want 80", v["score"])
	}
}

func TestExtractJSON_TrailingComma(t *testing.T) {
	in := `{"entities": ["A", "B",], "score": 50,}`
	got := ExtractJSON(in)
	var v map[string]any
	if err := json.Unmarshal([]byte(got), &v); err != nil {
		t.Fatalf("trailing commas not cleaned: %v (got %q)", err, got)
	}
}

func TestExtractJSON_LineComments(t *testing.T) {
	in := "{\n\"score\": 50, // model explains itself\n\"url\": \"http://example.com\"\n}"
	got := ExtractJSON(in)
	var v map[string]any
	if err := json.Unmarshal([]byte(got), &v); err != nil {
		t.Fatalf("comments not stripped: %v (got %q)", err, got)
	}
	if v["url"] != "http://example.com" {
		t.Errorf("url = %v, // inside a string must survive", v["url"])
	}
}

func TestExtractJSON_NoJSON(t *testing.T) {
	if got := ExtractJSON("I cannot answer that."); got != "" {
		t.Errorf("ExtractJSON = %q, want empty", got)
	}
}
