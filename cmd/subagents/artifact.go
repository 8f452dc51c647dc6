package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"subagents/internal/research"
)

var artifactFormat string

var artifactCmd = &cobra.Command{
	Use:   "artifact <path>",
	Short: "Print a saved research artifact",
	Long: `Print a report written by research --artifact or the research_codebase
tool. Compressed (.zst) artifacts are decompressed first.`,
	Args: cobra.ExactArgs(1),
	RunE: runArtifact,
}

func init() {
	artifactCmd.Flags().StringVar(&artifactFormat, "format", string(FormatJSON), "Output format (json, yaml)")
	rootCmd.AddCommand(artifactCmd)
}

func runArtifact(cmd *cobra.Command, args []string) error {
	format, err := ParseOutputFormat(artifactFormat)
	if err != nil {
		return err
	}
	if format == FormatHuman {
		return fmt.Errorf("artifact supports json or yaml output")
	}

	data, err := research.ReadArtifact(args[0])
	if err != nil {
		return fmt.Errorf("failed to read artifact: %w", err)
	}
	var report interface{}
	if err := json.Unmarshal(data, &report); err != nil {
		return fmt.Errorf("artifact %s is not a research report: %w", args[0], err)
	}

	out, err := formatData(report, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
