// Package pool provides the counted admission gate every task runs through.
package pool

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/semaphore"

	"subagents/internal/errors"
	"subagents/internal/slogutil"
	"subagents/internal/telemetry"
)

// Work is one unit of work. It must observe ctx at safe points.
type Work func(ctx context.Context) (any, error)

// Pool admits at most Capacity jobs at once. Waiting jobs start in
// submission order; completion order is unspecified.
type Pool struct {
	capacity int64
	sem      *semaphore.Weighted
	logger   *slog.Logger
	metrics  *telemetry.Metrics

	mu     sync.Mutex
	active int64
	queued int64
	peak   int64
}

// Option configures a Pool.
type Option func(*Pool)

// WithLogger sets the pool logger.
func WithLogger(l *slog.Logger) Option {
	return func(p *Pool) { p.logger = l }
}

// WithMetrics publishes active and queued gauges.
func WithMetrics(m *telemetry.Metrics) Option {
	return func(p *Pool) { p.metrics = m }
}

// New creates a pool. Capacities below 1 are raised to 1.
func New(capacity int, opts ...Option) *Pool {
	if capacity < 1 {
		capacity = 1
	}
	p := &Pool{
		capacity: int64(capacity),
		sem:      semaphore.NewWeighted(int64(capacity)),
		logger:   slogutil.NewDiscardLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Capacity returns the concurrency ceiling.
func (p *Pool) Capacity() int { return int(p.capacity) }

// Submit waits for a slot and runs work with ctx. A job whose ctx is done
// by the time it would start is rejected with a cancellation error and work
// is never invoked.
func (p *Pool) Submit(ctx context.Context, work Work) (any, error) {
	if err := ctx.Err(); err != nil {
		return nil, errors.NewCanceled(context.Cause(ctx))
	}

	p.update(0, 1)
	err := p.sem.Acquire(ctx, 1)
	p.update(0, -1)
	if err != nil {
		return nil, errors.NewCanceled(context.Cause(ctx))
	}
	// Acquire may win a race against a cancellation that arrived while queued.
	if ctx.Err() != nil {
		p.sem.Release(1)
		return nil, errors.NewCanceled(context.Cause(ctx))
	}

	p.update(1, 0)
	defer func() {
		p.update(-1, 0)
		p.sem.Release(1)
	}()
	return work(ctx)
}

func (p *Pool) update(dActive, dQueued int64) {
	p.mu.Lock()
	p.active += dActive
	p.queued += dQueued
	if p.active > p.peak {
		p.peak = p.active
	}
	active, queued := p.active, p.queued
	p.mu.Unlock()

	p.metrics.SetPool(active, queued)
	if dActive > 0 {
		p.logger.Debug("Job admitted", "active", active, "queued", queued)
	}
}

// Stats is a point-in-time view of the pool.
type Stats struct {
	Capacity int   `json:"capacity"`
	Active   int64 `json:"active"`
	Queued   int64 `json:"queued"`
	Peak     int64 `json:"peak"`
}

// Stats returns current counters. Peak is the highest Active seen.
func (p *Pool) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return Stats{Capacity: int(p.capacity), Active: p.active, Queued: p.queued, Peak: p.peak}
}
