// Package paths holds the root containment rules shared by every scan.
package paths

import (
	"path/filepath"
	"sort"
	"strings"

	"subagents/internal/errors"
)

// Rel returns p relative to root with forward slashes.
// Falls back to the slash form of p when no relative path exists.
func Rel(root, p string) string {
	rel, err := filepath.Rel(root, p)
	if err != nil {
		return filepath.ToSlash(p)
	}
	return filepath.ToSlash(rel)
}

// IsWithin reports whether p equals root or lies beneath it.
// Both paths are compared lexically after cleaning.
func IsWithin(p, root string) bool {
	rel, err := filepath.Rel(filepath.Clean(root), filepath.Clean(p))
	if err != nil {
		return false
	}
	if rel == "." {
		return true
	}
	return rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator)) && !filepath.IsAbs(rel)
}

// Resolve turns a root-relative reference back into an absolute path and
// reports false when the result escapes root.
func Resolve(root, rel string) (string, bool) {
	parts := strings.Split(strings.ReplaceAll(rel, "\\", "/"), "/")
	abs := filepath.Join(append([]string{root}, parts...)...)
	if !IsWithin(abs, root) {
		return "", false
	}
	return abs, true
}

// ResolveRoots validates requested roots against the allow-list.
// A nil request yields the allowed roots. Requested entries are resolved
// against cwd, and the first one outside every allowed root fails with
// ROOT_NOT_ALLOWED. The result is sorted with duplicates removed.
func ResolveRoots(allowed, requested []string, cwd string) ([]string, error) {
	if requested == nil {
		return uniqueSorted(allowed), nil
	}

	resolved := make([]string, 0, len(requested))
	for _, r := range requested {
		abs := r
		if !filepath.IsAbs(abs) {
			abs = filepath.Join(cwd, abs)
		}
		abs = filepath.Clean(abs)

		ok := false
		for _, a := range allowed {
			if IsWithin(abs, a) {
				ok = true
				break
			}
		}
		if !ok {
			return nil, errors.NewRootNotAllowed(r)
		}
		resolved = append(resolved, abs)
	}
	return uniqueSorted(resolved), nil
}

func uniqueSorted(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, p := range in {
		p = filepath.Clean(p)
		if seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}
