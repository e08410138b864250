package scheduler

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type poller struct{ calls atomic.Int32 }

func (p *poller) Poll(context.Context) { p.calls.Add(1) }

func TestNewValidates(t *testing.T) {
	_, err := New(0, func(context.Context) {})
	assert.Error(t, err)
	_, err = New(time.Second, nil)
	assert.Error(t, err)
}

func TestSchedulerRunsImmediatelyAndOnTicks(t *testing.T) {
	p := &poller{}
	s, err := New(20*time.Millisecond, p.Poll)
	require.NoError(t, err)
	assert.Equal(t, "Poll", s.name)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return p.calls.Load() >= 1 }, 500*time.Millisecond, time.Millisecond)
	assert.Eventually(t, func() bool { return p.calls.Load() >= 3 }, time.Second, 5*time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))

	after := p.calls.Load()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, after, p.calls.Load())
}

func TestSchedulerSkipsOverlappingRuns(t *testing.T) {
	var concurrent, maxConcurrent atomic.Int32
	release := make(chan struct{})
	s, err := New(5*time.Millisecond, func(ctx context.Context) {
		n := concurrent.Add(1)
		defer concurrent.Add(-1)
		for {
			m := maxConcurrent.Load()
			if n <= m || maxConcurrent.CompareAndSwap(m, n) {
				break
			}
		}
		select {
		case <-release:
		case <-ctx.Done():
		}
	})
	require.NoError(t, err)

	s.Start(context.Background())
	assert.Eventually(t, func() bool { return s.Skipped() >= 3 }, time.Second, time.Millisecond)
	close(release)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, s.Stop(ctx))
	assert.Equal(t, int32(1), maxConcurrent.Load())
}

func TestStopTimesOutOnStuckJob(t *testing.T) {
	block := make(chan struct{})
	defer close(block)
	s, err := New(time.Hour, func(context.Context) { <-block })
	require.NoError(t, err)
	s.Start(context.Background())
	time.Sleep(10 * time.Millisecond)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, s.Stop(ctx), context.DeadlineExceeded)
}

func TestInferNameFromFunc(t *testing.T) {
	assert.Equal(t, "TestInferNameFromFunc", InferNameFromFunc(TestInferNameFromFunc))
	assert.Equal(t, "unknown", InferNameFromFunc("not a func"))
}
