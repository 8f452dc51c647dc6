// Package research runs the full pipeline for one question: Locator first,
// then Analyzer and Pattern-Finder concurrently, then synthesis.
package research

import (
	"context"
	"encoding/json"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"golang.org/x/sync/errgroup"

	"subagents/internal/config"
	"subagents/internal/errors"
	"subagents/internal/paths"
	"subagents/internal/provider"
	"subagents/internal/redact"
	"subagents/internal/slogutil"
	"subagents/internal/subagents"
	"subagents/internal/synthesis"
	"subagents/internal/tasks"
	"subagents/internal/telemetry"
)

// Request is one research question.
type Request struct {
	Question string
	// Roots limits the search; nil searches every allowed root.
	Roots []string
	// Deadline overrides the per-task default when positive.
	Deadline time.Duration
	// Artifact asks for the report to be written to disk; nil skips it.
	Artifact *ArtifactRequest
}

// ArtifactRequest optionally overrides artifacts.dir.
type ArtifactRequest struct {
	Dir string
}

// Report is built once per request and not persisted unless an artifact
// was requested.
type Report struct {
	ID            string            `json:"id"`
	Question      string            `json:"question"`
	RootsSearched []string          `json:"rootsSearched"`
	Locator       *tasks.Result     `json:"locator"`
	Analyzer      *tasks.Result     `json:"analyzer"`
	Patterns      *tasks.Result     `json:"patterns"`
	Synthesis     *subagents.Result `json:"synthesis"`
	Artifact      *string           `json:"artifact"`
}

// Partial reports whether any subagent did not succeed.
func (r *Report) Partial() bool {
	return synthesis.IsPartial(r.Locator, r.Analyzer, r.Patterns)
}

// Redacted returns the report as generic JSON with every string masked.
func (r *Report) Redacted() (any, error) {
	data, err := json.Marshal(r)
	if err != nil {
		return nil, err
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return nil, err
	}
	return redact.Value(v), nil
}

// Service owns the shared runtime and read-only configuration.
type Service struct {
	cfg      *config.Config
	runtime  *tasks.Runtime
	provider provider.Completer
	logger   *slog.Logger
	metrics  *telemetry.Metrics
	tracer   trace.Tracer
	cwd      string
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithProvider enables remote keyword extraction.
func WithProvider(c provider.Completer) Option {
	return func(s *Service) { s.provider = c }
}

// WithLogger sets the service logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// WithMetrics records request outcomes and scan volume.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithTracer wraps each request in a span.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) { s.tracer = t }
}

// WithWorkingDir resolves requested roots and artifact dirs against dir.
func WithWorkingDir(dir string) Option {
	return func(s *Service) { s.cwd = dir }
}

// NewService creates a research service.
func NewService(cfg *config.Config, rt *tasks.Runtime, opts ...Option) *Service {
	s := &Service{
		cfg:     cfg,
		runtime: rt,
		logger:  slogutil.NewDiscardLogger(),
		tracer:  noop.NewTracerProvider().Tracer(telemetry.TracerName),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.cwd == "" {
		if wd, err := os.Getwd(); err == nil {
			s.cwd = wd
		}
	}
	return s
}

// AllowedRoots returns the configured allow-list.
func (s *Service) AllowedRoots() []string {
	return append([]string(nil), s.cfg.Roots...)
}

// Run validates req and executes the pipeline. Input errors are returned
// before any subagent starts; every later failure is recorded in the
// report instead.
func (s *Service) Run(ctx context.Context, req Request) (*Report, error) {
	question := strings.TrimSpace(req.Question)
	if question == "" {
		return nil, errors.NewInvalidArgument("question is required")
	}
	roots, err := paths.ResolveRoots(s.cfg.Roots, req.Roots, s.cwd)
	if err != nil {
		return nil, err
	}

	ctx, span := s.tracer.Start(ctx, "research", trace.WithAttributes(attribute.Int("roots", len(roots))))
	defer span.End()

	report := &Report{
		ID:            uuid.NewString(),
		Question:      question,
		RootsSearched: roots,
	}
	log := s.logger.With("report", report.ID)
	log.Info("Research started", "question", question, "roots", len(roots))

	env := subagents.Env{Roots: roots, Logger: log, Metrics: s.metrics}

	report.Locator = s.runtime.Run(ctx, tasks.Task{
		Role:     subagents.RoleLocator,
		Deadline: req.Deadline,
		Run: func(ctx context.Context) (any, error) {
			return subagents.Locate(ctx, env, question, s.provider, subagents.LocatorOptions{
				MaxFiles: s.cfg.Limits.MaxFilesRead,
				MaxBytes: int64(s.cfg.Limits.MaxBytesRead),
			})
		},
	})

	candidates := []string{}
	keywords := subagents.HeuristicKeywords(question)
	if loc, ok := report.Locator.Value.(*subagents.LocatorResult); ok && report.Locator.OK() {
		candidates = loc.Files
		keywords = loc.Keywords
	}

	// Tasks never return errors; the group only joins the two branches.
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		report.Analyzer = s.runtime.Run(gctx, tasks.Task{
			Role:     subagents.RoleAnalyzer,
			Deadline: req.Deadline,
			Run: func(ctx context.Context) (any, error) {
				return subagents.Analyze(ctx, env, candidates, keywords, subagents.AnalyzerOptions{
					MaxFiles:    s.cfg.AnalyzerFiles(),
					MaxBytes:    int64(s.cfg.AnalyzerBytes()),
					MaxFindings: s.cfg.KeyFindings(),
				})
			},
		})
		return nil
	})
	g.Go(func() error {
		report.Patterns = s.runtime.Run(gctx, tasks.Task{
			Role:     subagents.RolePatternFinder,
			Deadline: req.Deadline,
			Run: func(ctx context.Context) (any, error) {
				return subagents.FindPatterns(ctx, env, candidates, keywords, subagents.PatternOptions{
					MaxFiles:     s.cfg.PatternFiles(),
					MaxBytes:     int64(s.cfg.PatternBytes()),
					MaxExamples:  s.cfg.Patterns(),
					ContextLines: s.cfg.Compaction.SnippetContextLines,
				})
			},
		})
		return nil
	})
	_ = g.Wait()

	report.Synthesis = synthesis.Synthesize(synthesis.Input{
		Question: question,
		Locator:  report.Locator,
		Analyzer: report.Analyzer,
		Patterns: report.Patterns,
	})

	if req.Artifact != nil && s.cfg.Artifacts.Enabled {
		path, err := s.writeArtifact(report, req.Artifact)
		if err != nil {
			log.Warn("Failed to write research artifact", "error", err.Error())
		} else {
			report.Artifact = &path
		}
	}

	outcome := "complete"
	if report.Partial() {
		outcome = "partial"
	}
	s.metrics.ObserveResearch(outcome)
	span.SetAttributes(attribute.String("outcome", outcome))
	log.Info("Research finished",
		"outcome", outcome,
		"locator", report.Locator.Status,
		"analyzer", report.Analyzer.Status,
		"patterns", report.Patterns.Status,
		"references", len(report.Synthesis.References),
	)
	return report, nil
}
