package slogutil

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"subagents/internal/config"
)

// Factory builds loggers from the logging section of the configuration.
// CLI verbosity flags take precedence over the configured level.
type Factory struct {
	cfg      config.LoggingConfig
	cliLevel *slog.Level
	scrub    func(string) string
	closers  []io.Closer
}

// NewFactory creates a logger factory. cliLevel is nil when no CLI override was given.
func NewFactory(cfg config.LoggingConfig, cliLevel *slog.Level, scrub func(string) string) *Factory {
	return &Factory{cfg: cfg, cliLevel: cliLevel, scrub: scrub}
}

// Logger returns a logger writing to w, teed into logging.file when configured.
func (f *Factory) Logger(w io.Writer) (*slog.Logger, error) {
	level := f.EffectiveLevel()
	handler := f.handler(w, level)

	if f.cfg.File == "" {
		return slog.New(handler), nil
	}
	if err := os.MkdirAll(filepath.Dir(f.cfg.File), 0o755); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(f.cfg.File, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, err
	}
	f.closers = append(f.closers, file)
	return slog.New(NewTeeHandler(handler, f.handler(file, level))), nil
}

func (f *Factory) handler(w io.Writer, level slog.Level) slog.Handler {
	if f.cfg.Format == "json" {
		opts := &slog.HandlerOptions{Level: level}
		if f.scrub != nil {
			opts.ReplaceAttr = func(_ []string, a slog.Attr) slog.Attr {
				if a.Value.Kind() == slog.KindString {
					a.Value = slog.StringValue(f.scrub(a.Value.String()))
				}
				return a
			}
		}
		return slog.NewJSONHandler(w, opts)
	}
	h := NewTextHandler(w, &slog.HandlerOptions{Level: level})
	if f.scrub != nil {
		h = h.WithScrubber(f.scrub)
	}
	return h
}

// EffectiveLevel returns the log level after applying precedence:
// CLI flag > logging.level > info.
func (f *Factory) EffectiveLevel() slog.Level {
	if f.cliLevel != nil {
		return *f.cliLevel
	}
	if f.cfg.Level != "" {
		return LevelFromString(f.cfg.Level)
	}
	return slog.LevelInfo
}

// Close closes all open log files.
func (f *Factory) Close() error {
	var firstErr error
	for _, c := range f.closers {
		if err := c.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	f.closers = nil
	return firstErr
}
