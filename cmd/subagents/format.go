package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/fatih/color"
	"gopkg.in/yaml.v3"

	"subagents/internal/project"
	"subagents/internal/redact"
	"subagents/internal/research"
	"subagents/internal/tasks"
)

// OutputFormat represents the output format type
type OutputFormat string

const (
	FormatJSON  OutputFormat = "json"
	FormatYAML  OutputFormat = "yaml"
	FormatHuman OutputFormat = "human"
)

// ParseOutputFormat validates a --format value.
func ParseOutputFormat(s string) (OutputFormat, error) {
	switch f := OutputFormat(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatJSON, FormatYAML, FormatHuman:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (valid: json, yaml, human)", s)
	}
}

// FormatReport renders a research report. JSON and YAML are produced from
// the redacted report.
func FormatReport(report *research.Report, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON, FormatYAML:
		v, err := report.Redacted()
		if err != nil {
			return "", err
		}
		return formatData(v, format)
	case FormatHuman:
		return formatReportHuman(report), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

// FormatListing renders a list_codebases result.
func FormatListing(listing *project.Listing, format OutputFormat) (string, error) {
	if format == FormatHuman {
		return formatListingHuman(listing), nil
	}
	return formatData(listing, format)
}

func formatData(v interface{}, format OutputFormat) (string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return "", fmt.Errorf("failed to marshal JSON: %w", err)
		}
		return string(data), nil
	case FormatYAML:
		// Round-trip through JSON so keys follow the json tags.
		raw, err := json.Marshal(v)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		var generic interface{}
		if err := json.Unmarshal(raw, &generic); err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		data, err := yaml.Marshal(generic)
		if err != nil {
			return "", fmt.Errorf("failed to marshal YAML: %w", err)
		}
		return strings.TrimRight(string(data), "\n"), nil
	default:
		return "", fmt.Errorf("unsupported format: %s", format)
	}
}

var (
	headerColor = color.New(color.FgCyan, color.Bold).SprintFunc()
	labelColor  = color.New(color.FgYellow).SprintFunc()
	okColor     = color.New(color.FgGreen).SprintFunc()
	failColor   = color.New(color.FgRed).SprintFunc()
	dimColor    = color.New(color.FgHiBlack).SprintFunc()
)

func statusLine(role string, r *tasks.Result) string {
	if r == nil {
		return fmt.Sprintf("  %s %s", dimColor("○"), role)
	}
	icon, paint := okColor("●"), okColor
	if !r.OK() {
		icon, paint = failColor("✗"), failColor
	}
	line := fmt.Sprintf("  %s %-15s %s %s", icon, role, paint(string(r.Status)), dimColor(fmt.Sprintf("(%dms)", r.Timing.ElapsedMs)))
	if r.Error != nil {
		line += " " + dimColor(redact.Text(r.Error.Message))
	}
	return line
}

func formatReportHuman(report *research.Report) string {
	var b strings.Builder
	syn := report.Synthesis

	fmt.Fprintf(&b, "%s\n", headerColor("=== "+redact.Text(report.Question)+" ==="))
	fmt.Fprintf(&b, "%s %s\n", labelColor("Report:"), report.ID)
	fmt.Fprintf(&b, "%s %s\n\n", labelColor("Roots:"), strings.Join(report.RootsSearched, ", "))

	fmt.Fprintf(&b, "%s\n", labelColor("Subagents:"))
	fmt.Fprintln(&b, statusLine("locator", report.Locator))
	fmt.Fprintln(&b, statusLine("analyzer", report.Analyzer))
	fmt.Fprintln(&b, statusLine("pattern_finder", report.Patterns))
	b.WriteString("\n")

	if syn != nil {
		fmt.Fprintf(&b, "%s %s\n", labelColor("Summary:"), syn.Summary)
		fmt.Fprintf(&b, "%s %s\n", labelColor("Confidence:"), syn.Confidence)

		if len(syn.KeyFindings) > 0 {
			fmt.Fprintf(&b, "\n%s\n", labelColor("Key findings:"))
			for _, f := range syn.KeyFindings {
				fmt.Fprintf(&b, "  - %s\n", f)
			}
		}
		if len(syn.References) > 0 {
			fmt.Fprintf(&b, "\n%s\n", labelColor("References:"))
			for _, r := range syn.References {
				fmt.Fprintf(&b, "  %s\n", r)
			}
		}
		if syn.Notes != nil {
			fmt.Fprintf(&b, "\n%s %s\n", labelColor("Notes:"), *syn.Notes)
		}
	}
	if report.Artifact != nil {
		fmt.Fprintf(&b, "\n%s %s\n", labelColor("Artifact:"), *report.Artifact)
	}
	return strings.TrimRight(b.String(), "\n")
}

func formatListingHuman(listing *project.Listing) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n", headerColor(fmt.Sprintf("=== %d codebase(s) ===", len(listing.Projects))))
	for _, p := range listing.Projects {
		marker := dimColor("○")
		if p.Git {
			marker = okColor("●")
		}
		tags := make([]string, 0, len(p.Tags))
		for _, t := range p.Tags {
			tags = append(tags, string(t))
		}
		fmt.Fprintf(&b, "  %s %-30s %s", marker, p.Name, dimColor(p.Root))
		if len(tags) > 0 {
			fmt.Fprintf(&b, " [%s]", strings.Join(tags, ", "))
		}
		b.WriteString("\n")
	}

	st := listing.Stats
	fmt.Fprintf(&b, "\n%s %d dirs scanned", labelColor("Stats:"), st.DirsScanned)
	if st.Truncated {
		fmt.Fprintf(&b, " %s", failColor("(truncated)"))
	}
	return b.String()
}
