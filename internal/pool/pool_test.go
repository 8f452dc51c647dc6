package pool

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"subagents/internal/errors"
	"subagents/internal/telemetry"
)

func TestPool_PeakConcurrency(t *testing.T) {
	p := New(2)
	var running, peak atomic.Int64

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
				n := running.Add(1)
				for {
					old := peak.Load()
					if n <= old || peak.CompareAndSwap(old, n) {
						break
					}
				}
				time.Sleep(30 * time.Millisecond)
				running.Add(-1)
				return nil, nil
			})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(2), peak.Load())
	assert.Equal(t, int64(2), p.Stats().Peak)
	assert.Zero(t, p.Stats().Active)
	assert.Zero(t, p.Stats().Queued)
}

func TestPool_FIFOAdmission(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	started := make(chan struct{})

	go func() {
		_, _ = p.Submit(context.Background(), func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, _ = p.Submit(context.Background(), func(ctx context.Context) (any, error) {
				mu.Lock()
				order = append(order, i)
				mu.Unlock()
				return nil, nil
			})
		}(i)
		require.Eventually(t, func() bool { return p.Stats().Queued == int64(i+1) }, time.Second, time.Millisecond)
		// Queued is counted just before the semaphore wait is registered.
		time.Sleep(10 * time.Millisecond)
	}

	close(release)
	wg.Wait()
	assert.Equal(t, []int{0, 1, 2, 3}, order)
}

func TestPool_RejectsCanceledBeforeStart(t *testing.T) {
	p := New(1)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	_, err := p.Submit(ctx, func(ctx context.Context) (any, error) {
		called = true
		return nil, nil
	})

	assert.False(t, called)
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
	assert.ErrorIs(t, err, context.Canceled)
}

func TestPool_RejectsCanceledWhileQueued(t *testing.T) {
	p := New(1)
	release := make(chan struct{})
	started := make(chan struct{})
	go func() {
		_, _ = p.Submit(context.Background(), func(ctx context.Context) (any, error) {
			close(started)
			<-release
			return nil, nil
		})
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	var called atomic.Bool
	errCh := make(chan error, 1)
	go func() {
		_, err := p.Submit(ctx, func(ctx context.Context) (any, error) {
			called.Store(true)
			return nil, nil
		})
		errCh <- err
	}()
	require.Eventually(t, func() bool { return p.Stats().Queued == 1 }, time.Second, time.Millisecond)

	cancel()
	err := <-errCh
	close(release)

	assert.False(t, called.Load())
	assert.Equal(t, errors.Canceled, errors.CodeOf(err))
}

func TestPool_ReturnsValueAndError(t *testing.T) {
	p := New(3)
	v, err := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, v)

	boom := errors.NewInternal("boom", nil)
	_, err = p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		return nil, boom
	})
	assert.ErrorIs(t, err, boom)
}

func TestPool_CapacityFloor(t *testing.T) {
	assert.Equal(t, 1, New(0).Capacity())
	assert.Equal(t, 1, New(-3).Capacity())
}

func TestPool_Metrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := telemetry.NewMetrics(reg)
	p := New(2, WithMetrics(m))

	_, err := p.Submit(context.Background(), func(ctx context.Context) (any, error) {
		assert.Equal(t, 1.0, testutil.ToFloat64(m.PoolActive))
		return nil, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.PoolActive))
}
