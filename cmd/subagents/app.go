package main

import (
	"context"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"subagents/internal/config"
	"subagents/internal/pool"
	"subagents/internal/provider"
	"subagents/internal/redact"
	"subagents/internal/research"
	"subagents/internal/slogutil"
	"subagents/internal/tasks"
	"subagents/internal/telemetry"
)

// app holds everything a command needs once configuration is loaded.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	registry *prometheus.Registry
	metrics  *telemetry.Metrics
	service  *research.Service

	closers []func(context.Context) error
}

// cliLevel returns the level implied by -v/-q, or nil when neither was given.
func cliLevel() *slog.Level {
	if verbosity == 0 && !quiet {
		return nil
	}
	level := slogutil.LevelFromVerbosity(verbosity, quiet)
	return &level
}

func loadConfig() (*config.Config, error) {
	return config.Load(config.LoadOptions{Path: configPath})
}

// newApp loads configuration and wires the research service. Logs go to
// logOut; stdout is reserved for command output.
func newApp(logOut io.Writer) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return buildApp(cfg, logOut)
}

func buildApp(cfg *config.Config, logOut io.Writer) (*app, error) {
	factory := slogutil.NewFactory(cfg.Logging, cliLevel(), redact.Text)
	logger, err := factory.Logger(logOut)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, logger: logger}
	a.closers = append(a.closers, func(context.Context) error { return factory.Close() })

	a.registry = prometheus.NewRegistry()
	a.registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	a.metrics = telemetry.NewMetrics(a.registry)

	tp, shutdown, err := telemetry.NewTracerProvider(cfg.Telemetry.Trace, os.Stderr)
	if err != nil {
		a.close()
		return nil, err
	}
	a.closers = append([]func(context.Context) error{shutdown}, a.closers...)
	tracer := tp.Tracer(telemetry.TracerName)

	completer, err := provider.FromConfig(cfg.Provider)
	if err != nil {
		a.close()
		return nil, err
	}

	p := pool.New(cfg.Runtime.MaxConcurrentTasks, pool.WithLogger(logger), pool.WithMetrics(a.metrics))
	rt := tasks.NewRuntime(p, time.Duration(cfg.Runtime.DefaultDeadlineMs)*time.Millisecond,
		tasks.WithLogger(logger),
		tasks.WithMetrics(a.metrics),
		tasks.WithTracer(tracer),
	)

	opts := []research.Option{
		research.WithLogger(logger),
		research.WithMetrics(a.metrics),
		research.WithTracer(tracer),
	}
	if completer != nil {
		opts = append(opts, research.WithProvider(completer))
		logger.Info("Keyword provider enabled", "kind", cfg.Provider.Kind, "model", cfg.Provider.Model)
	}
	a.service = research.NewService(cfg, rt, opts...)

	logger.Debug("Configuration loaded",
		"path", cfg.Path,
		"roots", cfg.Roots,
		"maxConcurrentTasks", cfg.Runtime.MaxConcurrentTasks,
	)
	return a, nil
}

// close flushes spans and closes log files.
func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	for _, fn := range a.closers {
		if err := fn(ctx); err != nil && a.logger != nil {
			a.logger.Warn("Shutdown step failed", "error", err.Error())
		}
	}
}
