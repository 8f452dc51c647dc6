package main

import (
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"subagents/internal/research"
)

var (
	researchFormat      string
	researchRoots       []string
	researchDeadline    time.Duration
	researchArtifact    bool
	researchArtifactDir string
)

var researchCmd = &cobra.Command{
	Use:   "research <question>",
	Short: "Run the research pipeline once and print the report",
	Long: `Run the locator, analyzer and pattern-finder subagents for one question
and print the synthesized report.

Examples:
  subagents research "Where is FooService implemented?"
  subagents research --root ./services --deadline 5s "how are retries configured"
  subagents research --format yaml --artifact "where is the config loaded"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runResearch,
}

func init() {
	researchCmd.Flags().StringVar(&researchFormat, "format", string(FormatHuman), "Output format (json, yaml, human)")
	researchCmd.Flags().StringSliceVar(&researchRoots, "root", nil, "Limit the search to these roots (must be inside the allow-list)")
	researchCmd.Flags().DurationVar(&researchDeadline, "deadline", 0, "Per-subagent deadline (default: runtime.defaultDeadlineMs)")
	researchCmd.Flags().BoolVar(&researchArtifact, "artifact", false, "Write the report to the artifacts directory")
	researchCmd.Flags().StringVar(&researchArtifactDir, "artifact-dir", "", "Override artifacts.dir (implies --artifact)")
	rootCmd.AddCommand(researchCmd)
}

func runResearch(cmd *cobra.Command, args []string) error {
	format, err := ParseOutputFormat(researchFormat)
	if err != nil {
		return err
	}

	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	req := research.Request{
		Question: strings.Join(args, " "),
		Roots:    researchRoots,
		Deadline: researchDeadline,
	}
	if researchArtifact || researchArtifactDir != "" {
		req.Artifact = &research.ArtifactRequest{Dir: researchArtifactDir}
	}

	report, err := a.service.Run(ctx, req)
	if err != nil {
		return err
	}

	out, err := FormatReport(report, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
