package subagents

import (
	"context"
	"fmt"
	"strings"

	"subagents/internal/provider"
	"subagents/internal/redact"
	"subagents/internal/scan"
)

// LocatorOptions bound the Locator's scan.
type LocatorOptions struct {
	MaxFiles   int
	MaxBytes   int64
	MaxMatches int
}

// LocatorResult is the Locator output. Keywords and Files seed the other
// subagents and are not serialized. Files holds the absolute path behind
// each entry of References, in the same order, so a relative reference
// never has to be guessed back onto a root.
type LocatorResult struct {
	Result
	Keywords []string `json:"-"`
	Files    []string `json:"-"`
}

// Locate derives keywords for question and returns root-relative
// references to files containing any of them. File contents never appear
// in the result, only paths.
func Locate(ctx context.Context, env Env, question string, c provider.Completer, opts LocatorOptions) (*LocatorResult, error) {
	log := env.logger().With("role", RoleLocator)
	keywords := ExtractKeywords(ctx, c, question, log)

	budget := scan.Budget{
		MaxFiles:   opts.MaxFiles,
		MaxBytes:   opts.MaxBytes,
		MaxMatches: opts.MaxMatches,
	}
	files, err := scan.Enumerate(ctx, env.Roots, budget, nil)
	if err != nil {
		return nil, err
	}
	found, err := scan.Search(ctx, files.Files, keywords, budget)
	if err != nil {
		return nil, err
	}
	env.Metrics.AddScanBytes(RoleLocator, found.BytesRead)

	byRef := make(map[string]string, len(found.Matches))
	refs := make([]string, 0, len(found.Matches))
	for _, m := range found.Matches {
		rel := relativeTo(m, env.Roots)
		if _, dup := byRef[rel]; !dup {
			byRef[rel] = m
		}
		refs = append(refs, rel)
	}
	refs = SortedUnique(refs)
	abs := make([]string, len(refs))
	for i, r := range refs {
		abs[i] = byRef[r]
	}

	var fileNote, contentNote string
	if files.Truncated {
		fileNote = "file scan hit limits.maxFilesRead"
	}
	if found.Truncated {
		contentNote = "content scan hit limits.maxBytesRead and/or maxMatches"
	}

	log.Debug("Locator finished",
		"files", len(files.Files),
		"scanned", found.FilesScanned,
		"bytesRead", found.BytesRead,
		"references", len(refs),
	)

	return &LocatorResult{
		Result: Result{
			Summary:     fmt.Sprintf("Found %d relevant file(s).", len(refs)),
			References:  refs,
			KeyFindings: []string{redact.Text(keywordLine(keywords))},
			Confidence:  ConfidenceFor(len(refs)),
			Notes:       notes(fileNote, contentNote),
		},
		Keywords: keywords,
		Files:    abs,
	}, nil
}

func keywordLine(keywords []string) string {
	shown := keywords
	suffix := ""
	if len(shown) > 8 {
		shown = shown[:8]
		suffix = ", …"
	}
	return "Keywords: " + strings.Join(shown, ", ") + suffix
}
