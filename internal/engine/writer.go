package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// Writer synthesizes a full article from a signal and its source coverage.
type Writer struct {
	client ModelClient
}

// NewWriter creates a Writer backed by the given model client.
func NewWriter(client ModelClient) *Writer {
	return &Writer{client: client}
}

// Synthesize asks the model to write the article. Unlike scoring, a response
// that stays unparseable after the stricter retry is an error: the caller
// releases the signal so the attempt can be repeated later.
func (w *Writer) Synthesize(ctx context.Context, sig model.Signal, members []model.RawArticle) (*SynthesisResult, error) {
	out, err := w.client.Complete(ctx, buildSynthesisPrompt(sig, members))
	if err != nil {
		return nil, fmt.Errorf("synthesis completion: %w", err)
	}

	result, perr := parseSynthesisResult(out)
	if perr == nil {
		return result, nil
	}
	slog.Warn("synthesis response unparseable, retrying with strict prompt", "signal_id", sig.ID, "error", perr)

	out, err = w.client.Complete(ctx, buildSynthesisRetryPrompt(sig, members))
	if err != nil {
		return nil, fmt.Errorf("synthesis retry completion: %w", err)
	}
	result, perr = parseSynthesisResult(out)
	if perr != nil {
		return nil, fmt.Errorf("synthesis unparseable after retry: %w", perr)
	}
	return result, nil
}

func parseSynthesisResult(out string) (*SynthesisResult, error) {
	raw := ExtractJSON(out)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var result SynthesisResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("unmarshal synthesis result: %w", err)
	}

	if result.Headline == "" {
		return nil, fmt.Errorf("synthesis result missing headline")
	}
	if len(result.Sections) == 0 {
		return nil, fmt.Errorf("synthesis result has no sections")
	}
	for _, sec := range result.Sections {
		if len(sec.Paragraphs) == 0 {
			return nil, fmt.Errorf("section %q has no paragraphs", sec.Heading)
		}
	}
	return &result, nil
}
