package telemetry

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subagents/internal/slogutil"
)

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.SetPool(1, 2)
	m.ObserveTask("locator", "ok", time.Millisecond)
	m.ObserveResearch("complete")
	m.AddScanBytes("locator", 10)
}

func TestMetrics_Record(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	m.SetPool(2, 3)
	m.ObserveTask("analyzer", "timeout", 25*time.Millisecond)
	m.ObserveTask("analyzer", "timeout", 30*time.Millisecond)
	m.AddScanBytes("locator", 128)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.PoolActive))
	assert.Equal(t, 3.0, testutil.ToFloat64(m.PoolQueued))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.TasksTotal.WithLabelValues("analyzer", "timeout")))
	assert.Equal(t, 128.0, testutil.ToFloat64(m.ScanBytes.WithLabelValues("locator")))
}

func TestMetricsServer(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)
	m.ObserveResearch("partial")

	srv, err := ListenMetrics("127.0.0.1:0", reg, slogutil.NewDiscardLogger())
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx) }()

	resp, err := http.Get("http://" + srv.Addr() + "/metrics")
	require.NoError(t, err)
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	assert.Contains(t, string(body), `subagents_research_total{outcome="partial"} 1`)

	cancel()
	require.NoError(t, <-done)
}

func TestNewTracerProvider(t *testing.T) {
	tp, shutdown, err := NewTracerProvider(false, io.Discard)
	require.NoError(t, err)
	_, span := tp.Tracer(TracerName).Start(context.Background(), "noop")
	span.End()
	require.NoError(t, shutdown(context.Background()))

	var buf bytes.Buffer
	tp, shutdown, err = NewTracerProvider(true, &buf)
	require.NoError(t, err)
	_, span = tp.Tracer(TracerName).Start(context.Background(), "research")
	span.End()
	require.NoError(t, shutdown(context.Background()))
	assert.True(t, strings.Contains(buf.String(), `"Name":"research"`))
}
