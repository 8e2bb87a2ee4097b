package memory

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestMonitor returns a monitor over a 1000-byte budget whose samples
// come from the returned counter.
func newTestMonitor(t *testing.T) (*Monitor, *atomic.Uint64, *atomic.Int32) {
	t.Helper()
	var alloc atomic.Uint64
	var gcs atomic.Int32

	m := NewMonitor(Config{
		LimitBytes:        1000,
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     10 * time.Millisecond,
	})
	m.read = alloc.Load
	m.gc = func() { gcs.Add(1) }
	t.Cleanup(m.Stop)
	return m, &alloc, &gcs
}

func TestMonitorWatermarks(t *testing.T) {
	m, alloc, gcs := newTestMonitor(t)

	alloc.Store(500)
	m.check()
	assert.False(t, m.Paused())
	assert.InDelta(t, 0.5, m.Usage(), 1e-9)

	alloc.Store(900)
	m.check()
	assert.True(t, m.Paused())
	assert.Eventually(t, func() bool { return gcs.Load() == 1 }, time.Second, 5*time.Millisecond)

	// Between the watermarks the state holds.
	alloc.Store(800)
	m.check()
	assert.True(t, m.Paused())

	alloc.Store(600)
	m.check()
	assert.False(t, m.Paused())
	assert.Equal(t, int32(1), gcs.Load())
}

func TestMonitorWaitReleasesOnRecovery(t *testing.T) {
	m, alloc, _ := newTestMonitor(t)

	require.NoError(t, m.Wait(context.Background()), "an idle monitor never blocks")

	alloc.Store(950)
	m.check()
	require.True(t, m.Paused())

	done := make(chan error, 1)
	go func() { done <- m.Wait(context.Background()) }()

	select {
	case <-done:
		t.Fatal("Wait returned while paused")
	case <-time.After(30 * time.Millisecond):
	}

	alloc.Store(100)
	m.check()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("Wait did not return after recovery")
	}
}

func TestMonitorWaitHonoursContextAndStop(t *testing.T) {
	m, alloc, _ := newTestMonitor(t)
	alloc.Store(1000)
	m.check()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, m.Wait(ctx), context.DeadlineExceeded)

	m.Stop()
	m.Stop()
	assert.ErrorIs(t, m.Wait(context.Background()), ErrStopped)
}

func TestMonitorStartSamples(t *testing.T) {
	m, alloc, _ := newTestMonitor(t)
	alloc.Store(990)

	m.Start()
	m.Start()

	assert.Eventually(t, m.Paused, time.Second, 5*time.Millisecond)
}

func TestMonitorWithoutLimit(t *testing.T) {
	restoreLimit(t)
	m := NewMonitor(DefaultConfig())
	if m.limit != 0 {
		t.Skip("runtime soft limit is set in this environment")
	}
	m.read = func() uint64 { return 1 << 40 }
	m.Start()
	m.check()
	defer m.Stop()

	assert.False(t, m.Paused())
	assert.Zero(t, m.Usage())
	assert.NoError(t, m.Wait(context.Background()))
}
