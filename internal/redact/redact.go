// Package redact masks credentials in text before it leaves the process.
package redact

import (
	"regexp"
	"strings"
)

// Placeholder replaces every masked secret.
const Placeholder = "[REDACTED]"

// Pattern is one masking rule. Rules apply in table order.
type Pattern struct {
	Name  string
	Regex *regexp.Regexp
	// Accept filters candidate matches; nil accepts all.
	Accept func(match string) bool
	// Replace builds the replacement from submatches; nil yields Placeholder.
	Replace func(submatches []string) string
}

// BuiltinPatterns are applied by Text.
var BuiltinPatterns = []Pattern{
	{
		Name:  "url_credentials",
		Regex: regexp.MustCompile(`(?i)\b(https?://)([^/\s:@]+):([^/\s@]+)@`),
		Replace: func(sm []string) string {
			return sm[1] + Placeholder + "@"
		},
	},
	{
		// No leading word boundary: a token glued onto an identifier
		// (my_ghp_...) is still a token.
		Name:  "github_token",
		Regex: regexp.MustCompile(`gh[pousr]_[A-Za-z0-9_]{20,}`),
	},
	{
		Name:  "jwt",
		Regex: regexp.MustCompile(`\beyJ[A-Za-z0-9_=-]{10,}\.[A-Za-z0-9_=-]{10,}\.[A-Za-z0-9_=-]{10,}\b`),
	},
	{
		// Leftmost-first matching over a single character class always
		// consumes a maximal run, so the token is never part of a longer one.
		Name:   "generic_token",
		Regex:  regexp.MustCompile(`[A-Za-z0-9_=-]{24,}`),
		Accept: looksLikeToken,
	},
}

// looksLikeToken keeps long snake_case identifiers readable: a run is only
// masked when it carries padding, or an underscore plus a digit.
func looksLikeToken(s string) bool {
	if strings.Contains(s, "=") {
		return true
	}
	return strings.Contains(s, "_") && strings.ContainsAny(s, "0123456789")
}

// Text masks credentials in s. Empty input is returned unchanged.
func Text(s string) string {
	if s == "" {
		return s
	}
	for _, p := range BuiltinPatterns {
		s = p.apply(s)
	}
	return s
}

func (p Pattern) apply(s string) string {
	if p.Replace == nil && p.Accept == nil {
		return p.Regex.ReplaceAllLiteralString(s, Placeholder)
	}
	if p.Replace == nil {
		return p.Regex.ReplaceAllStringFunc(s, func(m string) string {
			if p.Accept(m) {
				return Placeholder
			}
			return m
		})
	}

	var b strings.Builder
	last := 0
	for _, loc := range p.Regex.FindAllStringSubmatchIndex(s, -1) {
		m := s[loc[0]:loc[1]]
		if p.Accept != nil && !p.Accept(m) {
			continue
		}
		sm := make([]string, len(loc)/2)
		for i := range sm {
			if loc[2*i] >= 0 {
				sm[i] = s[loc[2*i]:loc[2*i+1]]
			}
		}
		b.WriteString(s[last:loc[0]])
		b.WriteString(p.Replace(sm))
		last = loc[1]
	}
	if last == 0 {
		return s
	}
	b.WriteString(s[last:])
	return b.String()
}

// Value walks decoded JSON and masks every string, leaving structure and
// non-string scalars untouched.
func Value(v any) any {
	switch t := v.(type) {
	case string:
		return Text(t)
	case []string:
		out := make([]string, len(t))
		for i, s := range t {
			out[i] = Text(s)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, e := range t {
			out[i] = Value(e)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, e := range t {
			out[k] = Value(e)
		}
		return out
	default:
		return v
	}
}
