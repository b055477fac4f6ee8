package engine

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

// StubModelClient returns mock LLM responses (for development/testing).
type StubModelClient struct{}

func (m *StubModelClient) Complete(_ context.Context, prompt string) (string, error) {
	if strings.Contains(prompt, "significance assessor") {
		result := ScoreResult{
			Score:    72,
			Priority: model.PriorityHigh,
			Summary:  "[Stub] A notable development with clear public impact, covered consistently across sources.",
			Entities: []string{"Stub Organization", "Stub Official"},
			Topics:   []string{"politics", "policy"},
		}
		b, _ := json.Marshal(result)
		return string(b), nil
	}

	if strings.Contains(prompt, "news writer") {
		result := SynthesisResult{
			Headline: "Stub Headline for Generated Article",
			Summary:  "[Stub] A one-paragraph standfirst summarising the story for readers.",
			Sections: []model.Section{
				{
					Heading:    "What happened",
					Paragraphs: []string{"[Stub] The first section describes the core event in neutral terms."},
				},
				{
					Heading:    "Why it matters",
					Paragraphs: []string{"[Stub] The second section explains the wider impact.", "[Stub] Additional context from the coverage."},
				},
			},
		}
		b, _ := json.Marshal(result)
		return string(b), nil
	}

	return "{}", nil
}
