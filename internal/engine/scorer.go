package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// Scorer assesses how significant a clustered story is.
type Scorer struct {
	client ModelClient
}

// NewScorer creates a Scorer backed by the given model client.
func NewScorer(client ModelClient) *Scorer {
	return &Scorer{client: client}
}

// Score asks the model to rate a story. If the model responds but the output
// cannot be parsed even after a stricter retry, Score returns (nil, nil): the
// story is treated as unscorable, not failed. Transport errors are returned
// as errors.
func (s *Scorer) Score(ctx context.Context, headline string, members []model.RawArticle) (*ScoreResult, error) {
	out, err := s.client.Complete(ctx, buildScorePrompt(headline, members))
	if err != nil {
		return nil, fmt.Errorf("score completion: %w", err)
	}

	result, perr := parseScoreResult(out)
	if perr == nil {
		return result, nil
	}
	slog.Warn("score response unparseable, retrying with strict prompt", "headline", headline, "error", perr)

	out, err = s.client.Complete(ctx, buildScoreRetryPrompt(headline, members))
	if err != nil {
		return nil, fmt.Errorf("score retry completion: %w", err)
	}
	result, perr = parseScoreResult(out)
	if perr != nil {
		slog.Warn("score response unparseable after retry, leaving unscored", "headline", headline, "error", perr)
		return nil, nil
	}
	return result, nil
}

func parseScoreResult(out string) (*ScoreResult, error) {
	raw := ExtractJSON(out)
	if raw == "" {
		return nil, fmt.Errorf("no JSON object in response")
	}
	var result ScoreResult
	if err := json.Unmarshal([]byte(raw), &result); err != nil {
		return nil, fmt.Errorf("unmarshal score result: %w", err)
	}

	if result.Score < 0 {
		result.Score = 0
	}
	if result.Score > 100 {
		result.Score = 100
	}
	if !model.ValidPriority(result.Priority) {
		result.Priority = PriorityForScore(result.Score)
	}
	return &result, nil
}

// PriorityForScore maps a significance score onto a priority tier. Used when
// the model omits or invents a priority.
func PriorityForScore(score int) string {
	switch {
	case score >= 90:
		return model.PriorityCritical
	case score >= 70:
		return model.PriorityHigh
	case score >= 40:
		return model.PriorityMedium
	default:
		return model.PriorityLow
	}
}
