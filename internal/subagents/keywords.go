package subagents

import (
	"context"
	"encoding/json"
	"log/slog"
	"regexp"
	"strings"

	"subagents/internal/provider"
)

// MaxKeywords caps both heuristic and provider keyword lists.
const MaxKeywords = 12

var tokenSplit = regexp.MustCompile(`[^a-zA-Z0-9_]+`)

// HeuristicKeywords splits question into alphanumeric/underscore tokens of
// at least 3 characters, deduplicated in first-seen order.
func HeuristicKeywords(question string) []string {
	var tokens []string
	for _, t := range tokenSplit.Split(question, -1) {
		if len(t) >= 3 {
			tokens = append(tokens, t)
		}
	}
	out := StableUnique(tokens)
	if len(out) > MaxKeywords {
		out = out[:MaxKeywords]
	}
	return out
}

const keywordSystemPrompt = "You extract search keywords as strict JSON."

// ExtractKeywords asks c for keywords and falls back to the heuristic list
// on any failure. A nil c returns the heuristic list.
func ExtractKeywords(ctx context.Context, c provider.Completer, question string, logger *slog.Logger) []string {
	fallback := HeuristicKeywords(question)
	if c == nil {
		return fallback
	}

	prompt := strings.Join([]string{
		"Extract 3-8 concise search keywords from the question.",
		`Return strict JSON: {"keywords":["..."]}. No other text.`,
		"Question: " + question,
	}, "\n")

	content, err := c.Complete(ctx, []provider.Message{
		{Role: provider.RoleSystem, Content: keywordSystemPrompt},
		{Role: provider.RoleUser, Content: prompt},
	}, 0, 128)
	if err != nil {
		logger.Debug("Keyword extraction fell back to heuristics", "error", err.Error())
		return fallback
	}

	var parsed struct {
		Keywords []any `json:"keywords"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(content)), &parsed); err != nil || parsed.Keywords == nil {
		logger.Debug("Keyword extraction returned unparsable content")
		return fallback
	}

	var cleaned []string
	for _, k := range parsed.Keywords {
		s, ok := k.(string)
		if !ok {
			continue
		}
		if s = strings.TrimSpace(s); s != "" {
			cleaned = append(cleaned, s)
		}
	}
	if len(cleaned) == 0 {
		return fallback
	}
	if len(cleaned) > MaxKeywords {
		cleaned = cleaned[:MaxKeywords]
	}
	return cleaned
}
