// Package subagents implements the three budgeted search strategies:
// Locator, Analyzer and Pattern-Finder.
package subagents

import (
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"strings"

	"subagents/internal/paths"
	"subagents/internal/slogutil"
	"subagents/internal/telemetry"
)

// Roles, as reported in task results and metrics.
const (
	RoleLocator       = "locator"
	RoleAnalyzer      = "analyzer"
	RolePatternFinder = "pattern_finder"
)

// Confidence is a coarse heuristic derived from reference count.
type Confidence string

const (
	ConfidenceLow  Confidence = "low"
	ConfidenceMed  Confidence = "med"
	ConfidenceHigh Confidence = "high"
)

// ConfidenceFor maps a reference count onto low (0), med (<5) or high.
func ConfidenceFor(refs int) Confidence {
	switch {
	case refs == 0:
		return ConfidenceLow
	case refs < 5:
		return ConfidenceMed
	default:
		return ConfidenceHigh
	}
}

// Result is the common output shape of every subagent.
// References are sorted and unique; Notes is non-nil only when a budget ran out.
type Result struct {
	Summary     string     `json:"summary"`
	References  []string   `json:"references"`
	KeyFindings []string   `json:"key_findings"`
	Confidence  Confidence `json:"confidence"`
	Notes       *string    `json:"notes"`
}

// Env carries what every subagent shares read-only.
type Env struct {
	// Roots are absolute, cleaned and sorted.
	Roots   []string
	Logger  *slog.Logger
	Metrics *telemetry.Metrics
}

func (e Env) logger() *slog.Logger {
	if e.Logger == nil {
		return slogutil.NewDiscardLogger()
	}
	return e.Logger
}

func notes(parts ...string) *string {
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	s := strings.Join(kept, "; ")
	return &s
}

// StableUnique removes duplicates keeping first-seen order.
func StableUnique(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// SortedUnique removes duplicates and sorts ascending.
func SortedUnique(values []string) []string {
	out := StableUnique(values)
	sort.Strings(out)
	return out
}

// relativeTo returns abs relative to the first root containing it.
func relativeTo(abs string, roots []string) string {
	for _, root := range roots {
		if paths.IsWithin(abs, root) {
			return paths.Rel(root, abs)
		}
	}
	return abs
}

var lineSuffix = regexp.MustCompile(`:\d+$`)

// resolveReference maps a reference back to a file inside some root.
// A relative reference resolves against the first root where the file
// exists; anything escaping every root is rejected.
func resolveReference(ref string, roots []string) (string, bool) {
	file := lineSuffix.ReplaceAllString(ref, "")
	if file == "" {
		return "", false
	}
	if filepath.IsAbs(file) {
		for _, root := range roots {
			if paths.IsWithin(file, root) {
				return file, true
			}
		}
		return "", false
	}
	for _, root := range roots {
		abs, ok := paths.Resolve(root, file)
		if !ok {
			continue
		}
		if _, err := os.Stat(abs); err == nil {
			return abs, true
		}
	}
	return "", false
}
