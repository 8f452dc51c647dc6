package main

import (
	"github.com/spf13/cobra"

	"subagents/internal/version"
)

var (
	// configPath is the --config flag; empty falls back to SUBAGENTS_CONFIG
	configPath string
	verbosity  int
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:   "subagents",
	Short: "subagents - bounded codebase research over MCP",
	Long: `subagents answers natural-language questions about local codebases by
running three budgeted subagents (locator, analyzer, pattern finder) under
a shared concurrency limit and returning one compact, referenced report.

It is usually started by an MCP client via "subagents mcp".`,
	Version:       version.Version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("subagents version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to config file (default: $SUBAGENTS_CONFIG or ./subagents.config.json)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress all logs")
}
