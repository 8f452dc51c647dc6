package subagents

import (
	"context"
	"fmt"
	"strings"

	"subagents/internal/errors"
	"subagents/internal/redact"
	"subagents/internal/scan"
)

// PatternOptions bound the Pattern-Finder's scan.
type PatternOptions struct {
	MaxFiles     int
	MaxBytes     int64
	MaxExamples  int
	ContextLines int
}

// FindPatterns collects up to MaxExamples matching snippets across all
// candidates, unlike Analyze which caps per file. Each finding is the
// path:line reference followed by the redacted snippet on the next lines.
func FindPatterns(ctx context.Context, env Env, candidates, keywords []string, opts PatternOptions) (*Result, error) {
	candidates = capList(StableUnique(candidates), opts.MaxFiles)
	if len(candidates) == 0 {
		return &Result{
			Summary:     "No candidate files to search for patterns (locator returned no references).",
			References:  []string{},
			KeyFindings: []string{},
			Confidence:  ConfidenceLow,
		}, nil
	}

	reader := scan.NewReader(opts.MaxBytes)
	var refs, findings []string

	for _, ref := range candidates {
		if len(refs) >= opts.MaxExamples {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, errors.NewCanceled(err)
		}
		abs, ok := resolveReference(ref, env.Roots)
		if !ok {
			continue
		}
		data, status := reader.ReadFile(abs)
		if status == scan.ReadStop {
			break
		}
		if status != scan.ReadOK {
			continue
		}

		rel := relativeTo(abs, env.Roots)
		lines := scan.SplitLines(string(data))
		for _, hit := range scan.MatchLines(lines, keywords) {
			if len(refs) >= opts.MaxExamples {
				break
			}
			lineRef := fmt.Sprintf("%s:%d", rel, hit.Line)
			snippet := scan.Snippet(lines, hit.Line-1, opts.ContextLines)
			refs = append(refs, lineRef)
			findings = append(findings, lineRef+"\n"+strings.TrimSpace(redact.Text(snippet)))
		}
	}
	env.Metrics.AddScanBytes(RolePatternFinder, reader.Used())

	refs = SortedUnique(refs)
	findings = capList(StableUnique(findings), opts.MaxExamples)

	var budgetNote string
	if reader.BudgetHit() {
		budgetNote = "pattern scan hit max byte budget"
	}
	return &Result{
		Summary:     fmt.Sprintf("Found %d example(s) across %d file(s).", len(refs), len(candidates)),
		References:  refs,
		KeyFindings: findings,
		Confidence:  ConfidenceFor(len(refs)),
		Notes:       notes(budgetNote),
	}, nil
}
