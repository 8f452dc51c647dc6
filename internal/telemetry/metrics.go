// Package telemetry holds the Prometheus metrics and trace provider wiring.
package telemetry

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "subagents"

// Metrics holds all Prometheus metrics for the pool, runtime and pipeline.
//
// Every method is safe on a nil receiver so components can run unobserved.
type Metrics struct {
	// PoolActive is the number of jobs currently executing.
	PoolActive prometheus.Gauge
	// PoolQueued is the number of jobs waiting for admission.
	PoolQueued prometheus.Gauge
	// TasksTotal counts settled tasks by role and status.
	TasksTotal *prometheus.CounterVec
	// TaskDuration measures submission-to-settlement time by role.
	TaskDuration *prometheus.HistogramVec
	// ResearchTotal counts research requests by outcome.
	ResearchTotal *prometheus.CounterVec
	// ScanBytes counts bytes read by subagent scans, by role.
	ScanBytes *prometheus.CounterVec
}

// NewMetrics creates the metrics and registers them with reg.
// A nil reg registers with the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		PoolActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "active",
			Help:      "Jobs currently executing in the worker pool",
		}),
		PoolQueued: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pool",
			Name:      "queued",
			Help:      "Jobs waiting for a worker pool slot",
		}),
		TasksTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "tasks",
			Name:      "total",
			Help:      "Settled tasks by role and status",
		}, []string{"role", "status"}),
		TaskDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "task",
			Name:      "duration_seconds",
			Help:      "Task time from submission to settlement",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"role"}),
		ResearchTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "research",
			Name:      "total",
			Help:      "Research requests by outcome",
		}, []string{"outcome"}),
		ScanBytes: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "scan",
			Name:      "bytes_total",
			Help:      "Bytes read by subagent scans",
		}, []string{"role"}),
	}
}

// SetPool records the pool gauges.
func (m *Metrics) SetPool(active, queued int64) {
	if m == nil {
		return
	}
	m.PoolActive.Set(float64(active))
	m.PoolQueued.Set(float64(queued))
}

// ObserveTask records one settled task.
func (m *Metrics) ObserveTask(role, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.TasksTotal.WithLabelValues(role, status).Inc()
	m.TaskDuration.WithLabelValues(role).Observe(elapsed.Seconds())
}

// ObserveResearch records one research request outcome.
func (m *Metrics) ObserveResearch(outcome string) {
	if m == nil {
		return
	}
	m.ResearchTotal.WithLabelValues(outcome).Inc()
}

// AddScanBytes records bytes read by a role's scan.
func (m *Metrics) AddScanBytes(role string, n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.ScanBytes.WithLabelValues(role).Add(float64(n))
}
