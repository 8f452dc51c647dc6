// Package synthesis merges subagent task results into one report section.
package synthesis

import (
	"fmt"
	"strings"

	"subagents/internal/redact"
	"subagents/internal/subagents"
	"subagents/internal/tasks"
)

// MaxFindings caps the merged findings list.
const MaxFindings = 24

// Input names the three task results. Any of them may be nil.
type Input struct {
	Question string
	Locator  *tasks.Result
	Analyzer *tasks.Result
	Patterns *tasks.Result
}

// Synthesize never fails. Only successful results contribute references
// and findings; the summary records every present result's status.
func Synthesize(in Input) *subagents.Result {
	var refs, findings []string
	var budgetNotes []string
	partial := false

	labelled := []struct {
		label string
		res   *tasks.Result
	}{
		{"locator", in.Locator},
		{"analyzer", in.Analyzer},
		{"patterns", in.Patterns},
	}

	statuses := make([]string, 0, len(labelled))
	for _, l := range labelled {
		if l.res == nil {
			continue
		}
		statuses = append(statuses, fmt.Sprintf("%s: %s", l.label, l.res.Status))
		if !l.res.OK() {
			partial = true
			continue
		}
		v := valueOf(l.res)
		if v == nil {
			continue
		}
		refs = append(refs, v.References...)
		findings = append(findings, v.KeyFindings...)
		if v.Notes != nil {
			budgetNotes = append(budgetNotes, l.label+": "+*v.Notes)
		}
	}

	refs = subagents.SortedUnique(refs)
	findings = subagents.StableUnique(findings)
	if len(findings) > MaxFindings {
		findings = findings[:MaxFindings]
	}

	prefix := "Results"
	if partial {
		prefix = "Partial results"
	}
	summary := fmt.Sprintf("%s for: %s (%s)", prefix, in.Question, strings.Join(statuses, ", "))

	var notes *string
	if len(budgetNotes) > 0 {
		n := strings.Join(budgetNotes, "; ")
		notes = &n
	}

	return &subagents.Result{
		Summary:     redact.Text(summary),
		References:  refs,
		KeyFindings: findings,
		Confidence:  subagents.ConfidenceFor(len(refs)),
		Notes:       notes,
	}
}

// IsPartial reports whether any present result did not succeed.
func IsPartial(results ...*tasks.Result) bool {
	for _, r := range results {
		if r != nil && !r.OK() {
			return true
		}
	}
	return false
}

func valueOf(r *tasks.Result) *subagents.Result {
	switch v := r.Value.(type) {
	case *subagents.Result:
		return v
	case *subagents.LocatorResult:
		return &v.Result
	case subagents.Result:
		return &v
	default:
		return nil
	}
}
