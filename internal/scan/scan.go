// Package scan implements the budgeted file walks shared by every subagent.
//
// Two ceilings bound each scan: a file count for enumeration and a byte
// volume for content reads. Hitting either is reported through a
// Truncated flag, never silently.
package scan

import (
	"context"
	"os"
	"path/filepath"
	"strings"
)

// DefaultMaxMatches caps Search results when the caller passes zero.
const DefaultMaxMatches = 200

// DefaultIgnores are directory and file names never descended into or returned.
var DefaultIgnores = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	".test-tmp":    true,
	"dist":         true,
	".subagents":   true,
}

// Budget holds the ceilings for one scan. It is copied by value and never
// changes once a scan starts.
type Budget struct {
	MaxFiles   int
	MaxBytes   int64
	MaxMatches int
}

// FileList is the result of Enumerate.
type FileList struct {
	Files     []string
	Truncated bool
}

// Enumerate walks roots breadth-first, in root order, collecting regular
// file paths until b.MaxFiles is reached (zero means no cap). Unreadable
// directories are skipped. Entries within a directory are visited in name
// order, so identical trees produce identical lists.
func Enumerate(ctx context.Context, roots []string, b Budget, ignores map[string]bool) (*FileList, error) {
	if ignores == nil {
		ignores = DefaultIgnores
	}
	out := &FileList{}
	queue := make([]string, 0, len(roots))
	for _, r := range roots {
		queue = append(queue, filepath.Clean(r))
	}

	for len(queue) > 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		dir := queue[0]
		queue = queue[1:]

		entries, err := os.ReadDir(dir)
		if err != nil {
			continue
		}
		for _, e := range entries {
			if ignores[e.Name()] {
				continue
			}
			full := filepath.Join(dir, e.Name())
			switch {
			case e.IsDir():
				queue = append(queue, full)
			case e.Type().IsRegular():
				out.Files = append(out.Files, full)
				if b.MaxFiles > 0 && len(out.Files) >= b.MaxFiles {
					out.Truncated = true
					return out, nil
				}
			}
		}
	}
	return out, nil
}

// SearchResult is the result of Search.
type SearchResult struct {
	Matches      []string
	Truncated    bool
	BytesRead    int64
	FilesScanned int
}

// Search returns the files containing at least one needle, compared
// case-insensitively. Files are read whole while they fit the byte budget;
// a file larger than the whole budget is skipped, and the first file that
// would overflow the running total stops the scan. Truncated is set when the
// match cap was hit or the byte budget kept some candidate unread.
func Search(ctx context.Context, files, needles []string, b Budget) (*SearchResult, error) {
	lowered := normalizeNeedles(needles)
	if len(lowered) == 0 {
		return &SearchResult{}, nil
	}
	maxMatches := b.MaxMatches
	if maxMatches <= 0 {
		maxMatches = DefaultMaxMatches
	}

	res := &SearchResult{}
	reader := NewReader(b.MaxBytes)
	for _, f := range files {
		if len(res.Matches) >= maxMatches {
			break
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		data, status := reader.ReadFile(f)
		if status == ReadStop {
			break
		}
		if status != ReadOK {
			continue
		}
		res.FilesScanned++
		if containsAny(strings.ToLower(string(data)), lowered) {
			res.Matches = append(res.Matches, f)
		}
	}
	res.BytesRead = reader.Used()
	res.Truncated = len(res.Matches) >= maxMatches || reader.Truncated()
	return res, nil
}

// LineHit is one matching line, numbered from 1.
type LineHit struct {
	Line int
	Text string
}

// SplitLines splits on \n and strips a trailing \r from each line.
func SplitLines(content string) []string {
	lines := strings.Split(content, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimSuffix(l, "\r")
	}
	return lines
}

// MatchLines returns every line containing any needle, case-insensitively.
func MatchLines(lines, needles []string) []LineHit {
	lowered := normalizeNeedles(needles)
	if len(lowered) == 0 {
		return nil
	}
	var hits []LineHit
	for i, l := range lines {
		if containsAny(strings.ToLower(l), lowered) {
			hits = append(hits, LineHit{Line: i + 1, Text: l})
		}
	}
	return hits
}

// Snippet returns the lines around index joined with newlines.
func Snippet(lines []string, index, radius int) string {
	start := max(0, index-radius)
	end := min(len(lines), index+radius+1)
	return strings.Join(lines[start:end], "\n")
}

func normalizeNeedles(needles []string) []string {
	out := make([]string, 0, len(needles))
	for _, n := range needles {
		n = strings.ToLower(strings.TrimSpace(n))
		if n != "" {
			out = append(out, n)
		}
	}
	return out
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}
