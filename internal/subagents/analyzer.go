package subagents

import (
	"context"
	"fmt"
	"strings"

	"subagents/internal/errors"
	"subagents/internal/redact"
	"subagents/internal/scan"
)

// Per-file and per-finding ceilings for the Analyzer.
const (
	maxHitsPerFile  = 6
	maxFindingRunes = 200
)

// AnalyzerOptions bound the Analyzer's scan.
type AnalyzerOptions struct {
	MaxFiles    int
	MaxBytes    int64
	MaxFindings int
}

// Analyze re-reads up to MaxFiles candidate references and reports the
// keyword-matching lines as path:line references with redacted excerpts.
// At most six lines per file contribute.
func Analyze(ctx context.Context, env Env, candidates, keywords []string, opts AnalyzerOptions) (*Result, error) {
	candidates = capList(StableUnique(candidates), opts.MaxFiles)
	if len(candidates) == 0 {
		return &Result{
			Summary:     "No candidate files to analyze (locator returned no references).",
			References:  []string{},
			KeyFindings: []string{},
			Confidence:  ConfidenceLow,
		}, nil
	}

	reader := scan.NewReader(opts.MaxBytes)
	var refs, findings []string

	for _, ref := range candidates {
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
		hits := scan.MatchLines(scan.SplitLines(string(data)), keywords)
		for _, hit := range capHits(hits, maxHitsPerFile) {
			lineRef := fmt.Sprintf("%s:%d", rel, hit.Line)
			refs = append(refs, lineRef)
			if len(findings) < opts.MaxFindings {
				code := truncateRunes(redact.Text(strings.TrimSpace(hit.Text)), maxFindingRunes)
				findings = append(findings, lineRef+" "+code)
			}
		}
	}
	env.Metrics.AddScanBytes(RoleAnalyzer, reader.Used())

	refs = SortedUnique(refs)
	findings = capList(StableUnique(findings), opts.MaxFindings)

	var budgetNote string
	if reader.BudgetHit() {
		budgetNote = "analysis hit max byte budget"
	}
	return &Result{
		Summary:     fmt.Sprintf("Scanned %d file(s) for evidence; found %d match reference(s).", len(candidates), len(refs)),
		References:  refs,
		KeyFindings: findings,
		Confidence:  ConfidenceFor(len(refs)),
		Notes:       notes(budgetNote),
	}, nil
}

func capList(values []string, n int) []string {
	if n >= 0 && len(values) > n {
		return values[:n]
	}
	if values == nil {
		return []string{}
	}
	return values
}

func capHits(hits []scan.LineHit, n int) []scan.LineHit {
	if len(hits) > n {
		return hits[:n]
	}
	return hits
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
