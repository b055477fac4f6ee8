package engine

import (
	"context"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// ModelClient abstracts LLM calls. Implementations can wrap OpenAI, Gemini, local models, etc.
type ModelClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
}

// ScoreResult is the structured output of the significance assessment.
type ScoreResult struct {
	Score    int      `json:"score"`
	Priority string   `json:"priority"`
	Summary  string   `json:"summary"`
	Entities []string `json:"entities"`
	Topics   []string `json:"topics"`
}

// SynthesisResult is the structured output of article synthesis.
type SynthesisResult struct {
	Headline string          `json:"headline"`
	Summary  string          `json:"summary"`
	Sections []model.Section `json:"sections"`
}
