package engine

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/crystalford/canopticon-sub002/internal/model"
)

const (
	maxBodyRunes   = 4000
	maxMemberCount = 8
)

func buildScorePrompt(headline string, members []model.RawArticle) string {
	return fmt.Sprintf(`You are a news significance assessor. Rate how newsworthy this story is based on the coverage below.

Story: %q

%s
Output ONLY valid JSON with this exact structure (no markdown, no explanation):
{"score": 72, "priority": "high", "summary": "one-paragraph neutral summary", "entities": ["Entity One"], "topics": ["topic-one"]}

Rules:
- score: integer 0-100 measuring public significance (0 = trivial, 100 = historic)
- priority: one of "low" (<40), "medium" (40-69), "high" (70-89), "critical" (>=90)
- summary: 2-4 sentences, neutral tone, no opinion
- entities: named people, organizations, places central to the story
- topics: 1-4 short lowercase topic tags`, headline, formatCoverage(members))
}

// buildScoreRetryPrompt is the stricter second attempt after an unparseable response.
func buildScoreRetryPrompt(headline string, members []model.RawArticle) string {
	return fmt.Sprintf(`Return ONLY a single JSON object. No prose, no markdown fences, no comments.

Required structure:
{"score": <integer 0-100>, "priority": "<low|medium|high|critical>", "summary": "<2-4 sentences>", "entities": ["..."], "topics": ["..."]}

Assess the significance of this story:

Story: %q

%s`, headline, formatCoverage(members))
}

func buildSynthesisPrompt(sig model.Signal, members []model.RawArticle) string {
	return fmt.Sprintf(`You are a news writer. Write a complete, neutral article about this story.

Story: %q
Summary: %s

%s
Output ONLY valid JSON with this exact structure (no markdown, no explanation):
{"headline": "Final Headline", "summary": "one-paragraph standfirst", "sections": [{"heading": "Section Heading", "paragraphs": ["paragraph one", "paragraph two"]}]}

Rules:
- 2 to 5 sections, each with a heading and 1-4 paragraphs
- Neutral, factual tone; attribute claims to the coverage
- Do not invent facts beyond the source material`, sig.Headline, sig.Summary, formatCoverage(members))
}

// buildSynthesisRetryPrompt is the stricter second attempt after an unparseable response.
func buildSynthesisRetryPrompt(sig model.Signal, members []model.RawArticle) string {
	return fmt.Sprintf(`Return ONLY a single JSON object. No prose, no markdown fences, no comments.

Required structure:
{"headline": "...", "summary": "...", "sections": [{"heading": "...", "paragraphs": ["..."]}]}

Write a neutral news article for:

Story: %q
Summary: %s

%s`, sig.Headline, sig.Summary, formatCoverage(members))
}

// formatCoverage renders cluster members as a source block for prompts.
func formatCoverage(members []model.RawArticle) string {
	if len(members) == 0 {
		return "Coverage: none available.\n"
	}
	if len(members) > maxMemberCount {
		members = members[:maxMemberCount]
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Coverage (%d reports):\n", len(members))
	for i, m := range members {
		fmt.Fprintf(&b, "--- Report %d: %s\n", i+1, m.Title)
		if m.URL != "" {
			fmt.Fprintf(&b, "URL: %s\n", m.URL)
		}
		if m.Body != "" {
			fmt.Fprintf(&b, "%s\n", truncateRunes(m.Body, maxBodyRunes))
		}
	}
	return b.String()
}

// truncateRunes truncates s to maxRunes runes (Unicode-safe).
func truncateRunes(s string, maxRunes int) string {
	if utf8.RuneCountInString(s) <= maxRunes {
		return s
	}
	runes := []rune(s)
	return string(runes[:maxRunes]) + "\n... [truncated]"
}
