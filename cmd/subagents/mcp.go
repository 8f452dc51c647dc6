package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"subagents/internal/mcp"
	"subagents/internal/telemetry"
	"subagents/internal/version"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP stdio server",
	Long: `Start the Model Context Protocol (MCP) server.

The server communicates over stdio using newline-delimited JSON-RPC 2.0
and exposes these tools:
  - ping: health check
  - list_roots: the configured root allow-list
  - list_codebases: projects found under the roots by manifest scan
  - research_codebase: run the subagent pipeline for one question

Logs are written to stderr. When telemetry.metricsAddr is set, Prometheus
metrics are served on that address at /metrics.

This command is typically invoked by MCP clients and not directly by users.`,
	Args: cobra.NoArgs,
	RunE: runMCP,
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, args []string) error {
	// stdout is the protocol channel
	a, err := newApp(os.Stderr)
	if err != nil {
		return err
	}
	defer a.close()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a.logger.Info("Starting MCP server",
		"version", version.Short(),
		"config", a.cfg.Path,
	)

	g, gctx := errgroup.WithContext(ctx)
	if addr := a.cfg.Telemetry.MetricsAddr; addr != "" {
		ms, err := telemetry.ListenMetrics(addr, a.registry, a.logger)
		if err != nil {
			return err
		}
		metricsCtx, cancelMetrics := context.WithCancel(gctx)
		defer cancelMetrics()
		g.Go(func() error { return ms.Serve(metricsCtx) })
	}

	server := mcp.NewMCPServer(a.cfg, a.service, a.logger)
	g.Go(func() error {
		defer stop()
		if err := server.Start(gctx); err != nil {
			a.logger.Error("MCP server error", "error", err.Error())
			return err
		}
		return nil
	})

	return g.Wait()
}
