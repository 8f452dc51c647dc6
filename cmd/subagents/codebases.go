package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"subagents/internal/paths"
	"subagents/internal/project"
)

var (
	codebasesFormat string
	codebasesRoots  []string
	codebasesOpts   = project.DefaultOptions()
)

var codebasesCmd = &cobra.Command{
	Use:   "codebases",
	Short: "Discover codebases under the configured roots",
	Long: `Walk the configured roots breadth-first and report directories that look
like projects: a .git entry, or (unless --include-non-git=false) a known
manifest such as go.mod, package.json or Cargo.toml. No file contents are
searched.`,
	Args: cobra.NoArgs,
	RunE: runCodebases,
}

func init() {
	f := codebasesCmd.Flags()
	f.StringVar(&codebasesFormat, "format", string(FormatHuman), "Output format (json, yaml, human)")
	f.StringSliceVar(&codebasesRoots, "root", nil, "Limit discovery to these roots")
	f.IntVar(&codebasesOpts.MaxDepth, "max-depth", codebasesOpts.MaxDepth, "Maximum directory depth below each root")
	f.IntVar(&codebasesOpts.MaxDirs, "max-dirs", codebasesOpts.MaxDirs, "Maximum directories to visit")
	f.IntVar(&codebasesOpts.MaxProjects, "max-projects", codebasesOpts.MaxProjects, "Maximum projects to report")
	f.BoolVar(&codebasesOpts.IncludeNonGit, "include-non-git", codebasesOpts.IncludeNonGit, "Report manifest-only directories")
	f.BoolVar(&codebasesOpts.IncludeNested, "include-nested", codebasesOpts.IncludeNested, "Descend into git repositories")
	rootCmd.AddCommand(codebasesCmd)
}

func runCodebases(cmd *cobra.Command, args []string) error {
	format, err := ParseOutputFormat(codebasesFormat)
	if err != nil {
		return err
	}
	if codebasesOpts.MaxDepth < 0 || codebasesOpts.MaxDirs < 1 || codebasesOpts.MaxProjects < 1 {
		return fmt.Errorf("invalid limits: max-depth must be >= 0, max-dirs and max-projects >= 1")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}
	roots, err := paths.ResolveRoots(cfg.Roots, codebasesRoots, cwd)
	if err != nil {
		return err
	}

	listing, err := project.Discover(cmd.Context(), roots, codebasesOpts)
	if err != nil {
		return err
	}
	out, err := FormatListing(listing, format)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), out)
	return nil
}
