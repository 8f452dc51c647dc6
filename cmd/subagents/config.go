package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"subagents/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Inspect subagents configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the effective configuration",
	Long: `Display the configuration after defaults, environment fallbacks and
normalization have been applied. The provider API key is never printed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		data, err := cfg.JSON()
		if err != nil {
			return err
		}
		if cfg.Path == "" {
			fmt.Fprintln(cmd.ErrOrStderr(), "# no config file found; using defaults")
		} else {
			fmt.Fprintf(cmd.ErrOrStderr(), "# %s\n", cfg.Path)
		}
		fmt.Fprintln(cmd.OutOrStdout(), string(data))
		return nil
	},
}

// envVars lists every environment variable the loader reads.
var envVars = []struct {
	name string
	desc string
}{
	{config.ConfigEnvVar, "Config file path (overridden by --config)"},
	{"SUBAGENTS_LMSTUDIO_BASE_URL", "provider.baseUrl fallback"},
	{"SUBAGENTS_MODEL", "provider.model fallback"},
	{"SUBAGENTS_API_KEY", "provider.apiKey fallback"},
}

var configEnvCmd = &cobra.Command{
	Use:   "env",
	Short: "List supported environment variables",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		for _, v := range envVars {
			fmt.Fprintf(cmd.OutOrStdout(), "%-30s %s\n", v.name, v.desc)
		}
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configEnvCmd)
	rootCmd.AddCommand(configCmd)
}
