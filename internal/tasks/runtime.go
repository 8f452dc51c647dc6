package tasks

import (
	"context"
	stderrors "errors"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"subagents/internal/errors"
	"subagents/internal/pool"
	"subagents/internal/slogutil"
	"subagents/internal/telemetry"
)

// errTimedOut is the cancellation cause set by the deadline timer.
var errTimedOut = stderrors.New("deadline elapsed")

// Runtime wraps tasks with a deadline and a combined cancellation signal.
type Runtime struct {
	pool            *pool.Pool
	defaultDeadline time.Duration
	logger          *slog.Logger
	metrics         *telemetry.Metrics
	tracer          trace.Tracer
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithLogger sets the runtime logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runtime) { r.logger = l }
}

// WithMetrics records task counts and durations.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(r *Runtime) { r.metrics = m }
}

// WithTracer wraps every run in a span.
func WithTracer(t trace.Tracer) Option {
	return func(r *Runtime) { r.tracer = t }
}

// NewRuntime creates a runtime executing through p.
func NewRuntime(p *pool.Pool, defaultDeadline time.Duration, opts ...Option) *Runtime {
	r := &Runtime{
		pool:            p,
		defaultDeadline: defaultDeadline,
		logger:          slogutil.NewDiscardLogger(),
		tracer:          noop.NewTracerProvider().Tracer(telemetry.TracerName),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

type outcome struct {
	value any
	err   error
}

// Run executes task and never fails: every outcome, including a panic in
// the unit of work, is captured in the returned Result.
//
// The task sees a context canceled when either ctx is done or the deadline
// fires. If the deadline fires first Run returns a timeout immediately;
// the task is expected to observe cancellation and stop on its own.
func (r *Runtime) Run(ctx context.Context, task Task) *Result {
	started := time.Now()
	deadline := task.Deadline
	if deadline <= 0 {
		deadline = r.defaultDeadline
	}

	ctx, span := r.tracer.Start(ctx, "task."+task.Role,
		trace.WithAttributes(attribute.Int64("deadline_ms", deadline.Milliseconds())))
	defer span.End()

	runCtx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	timedOut := make(chan struct{})
	timer := time.AfterFunc(deadline, func() {
		cancel(errTimedOut)
		close(timedOut)
	})
	defer timer.Stop()

	done := make(chan outcome, 1)
	go func() {
		defer func() {
			if p := recover(); p != nil {
				done <- outcome{err: errors.NewInternal(fmt.Sprintf("panic: %v", p), nil)}
			}
		}()
		v, err := r.pool.Submit(runCtx, task.Run)
		done <- outcome{value: v, err: err}
	}()

	var res *Result
	select {
	case o := <-done:
		res = r.classify(runCtx, task.Role, deadline, o, started)
	case <-timedOut:
		res = failedResult(StatusTimeout, errors.NewTimeout(task.Role, deadline), started)
	}

	span.SetAttributes(attribute.String("status", string(res.Status)))
	if res.Status != StatusOK {
		span.SetStatus(codes.Error, res.Error.Message)
	}
	r.metrics.ObserveTask(task.Role, string(res.Status), time.Since(started))
	r.logger.Debug("Task settled",
		"role", task.Role,
		"status", res.Status,
		"elapsedMs", res.Timing.ElapsedMs,
	)
	return res
}

func (r *Runtime) classify(runCtx context.Context, role string, deadline time.Duration, o outcome, started time.Time) *Result {
	switch {
	case o.err == nil:
		return okResult(o.value, started)
	case stderrors.Is(context.Cause(runCtx), errTimedOut):
		return failedResult(StatusTimeout, errors.NewTimeout(role, deadline), started)
	case runCtx.Err() != nil:
		return failedResult(StatusCanceled, errors.NewCanceled(o.err), started)
	default:
		return failedResult(StatusError, o.err, started)
	}
}
