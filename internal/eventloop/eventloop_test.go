package eventloop

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func startLoop(t *testing.T, opts ...Option) *Loop {
	t.Helper()
	l := New(opts...)
	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(ctx) }()
	t.Cleanup(func() {
		cancel()
		<-errCh
	})
	return l
}

func TestLoopRunsTasksInOrder(t *testing.T) {
	l := startLoop(t)

	var order []int
	for i := 0; i < 5; i++ {
		l.Post(func() { order = append(order, i) })
	}
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Equal(t, []int{0, 1, 2, 3, 4}, order)
}

func TestLoopDo(t *testing.T) {
	l := startLoop(t)

	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	block := make(chan struct{})
	defer close(block)
	l.Post(func() { <-block })
	assert.ErrorIs(t, l.Do(ctx, func() {}), context.Canceled)
}

func TestLoopRequestFrame(t *testing.T) {
	l := startLoop(t, WithFrameDelay(time.Millisecond))

	var fired atomic.Int32
	l.RequestFrame(func() { fired.Add(1) })
	cancel := l.RequestFrame(func() { fired.Add(10) })
	cancel()
	cancel()

	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(10 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestLoopEvery(t *testing.T) {
	l := startLoop(t)

	var ticks atomic.Int32
	cancel := l.Every(time.Millisecond, func() { ticks.Add(1) })
	assert.Eventually(t, func() bool { return ticks.Load() >= 3 }, time.Second, time.Millisecond)

	cancel()
	cancel()
	require.NoError(t, l.Do(context.Background(), func() {}))
	after := ticks.Load()
	time.Sleep(10 * time.Millisecond)
	require.NoError(t, l.Do(context.Background(), func() {}))
	assert.Equal(t, after, ticks.Load())
}

func TestLoopStop(t *testing.T) {
	l := New()
	errCh := make(chan error, 1)
	go func() { errCh <- l.Run(context.Background()) }()

	require.NoError(t, l.Do(context.Background(), func() {}))
	l.Stop()
	l.Stop()

	select {
	case err := <-errCh:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Run did not return after Stop")
	}
	<-l.Done()

	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
	l.Post(func() { t.Error("task ran after stop") })
}

func TestLoopRunReturnsContextError(t *testing.T) {
	l := New()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, l.Run(ctx), context.Canceled)
	assert.ErrorIs(t, l.Do(context.Background(), func() {}), ErrStopped)
}

func TestLoopRecoversPanics(t *testing.T) {
	core, logs := observer.New(zap.ErrorLevel)
	l := startLoop(t, WithLogger(zap.New(core)))

	l.Post(func() { panic("boom") })
	ran := false
	require.NoError(t, l.Do(context.Background(), func() { ran = true }))
	assert.True(t, ran)
	assert.Equal(t, 1, logs.FilterMessage("Recovered panic in event loop task").Len())
}

func TestManualDrain(t *testing.T) {
	m := NewManual()

	var order []string
	m.Post(func() {
		order = append(order, "a")
		m.Post(func() { order = append(order, "c") })
	})
	m.Post(func() { order = append(order, "b") })

	assert.Equal(t, 3, m.Drain())
	assert.Equal(t, []string{"a", "b", "c"}, order)
	assert.Equal(t, 0, m.Drain())
}

func TestManualRunFrames(t *testing.T) {
	m := NewManual()

	count := 0
	m.RequestFrame(func() {
		count++
		m.RequestFrame(func() { count += 10 })
	})
	cancel := m.RequestFrame(func() { count += 100 })
	assert.Equal(t, 2, m.PendingFrames())
	cancel()
	assert.Equal(t, 1, m.PendingFrames())

	assert.Equal(t, 1, m.RunFrames())
	assert.Equal(t, 1, count)
	assert.Equal(t, 1, m.PendingFrames())

	assert.Equal(t, 1, m.RunFrames())
	assert.Equal(t, 11, count)
	assert.Equal(t, 0, m.RunFrames())
}

func TestManualTick(t *testing.T) {
	m := NewManual()

	var fired []string
	m.Every(2*time.Second, func() { fired = append(fired, "slow") })
	cancelFast := m.Every(time.Second, func() { fired = append(fired, "fast") })
	assert.Equal(t, 2, m.ActiveIntervals())

	assert.Equal(t, 0, m.Tick(500*time.Millisecond))
	assert.Equal(t, 1, m.Tick(time.Second))
	assert.Equal(t, []string{"fast"}, fired)

	// Intervals due at the same instant fire in registration order
	fired = nil
	assert.Equal(t, 2, m.Tick(time.Second))
	assert.Equal(t, []string{"slow", "fast"}, fired)

	fired = nil
	assert.Equal(t, 3, m.Tick(2*time.Second))
	assert.Equal(t, []string{"fast", "slow", "fast"}, fired)

	cancelFast()
	assert.Equal(t, 1, m.ActiveIntervals())
	fired = nil
	m.Tick(2 * time.Second)
	assert.Equal(t, []string{"slow"}, fired)
}

func TestManualDropsCancelled(t *testing.T) {
	m := NewManual()

	for range 5 {
		m.Every(time.Second, func() {})()
		m.RequestFrame(func() {})()
	}
	assert.Len(t, m.frames, 1)

	m.Every(time.Second, func() {})
	m.RequestFrame(func() {})
	assert.Len(t, m.intervals, 1)
	assert.Len(t, m.frames, 1)

	cancel := m.Every(2*time.Second, func() {})
	cancel()
	assert.Equal(t, 1, m.Tick(time.Second))
	assert.Len(t, m.intervals, 1)
}

func TestSchedulerImplementations(t *testing.T) {
	var _ Scheduler = New()
	var _ Scheduler = NewManual()
}
