package scheduler

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fastScheduler() *Scheduler {
	return New(Options{Poll: 5 * time.Millisecond, ErrorBackoff: 20 * time.Millisecond})
}

func TestStartValidation(t *testing.T) {
	s := fastScheduler()
	assert.Error(t, s.Start(0, func() error { return nil }))
	assert.Error(t, s.Start(time.Second, nil))
	assert.False(t, s.IsRunning())
}

func TestStartSetsDeadlineAndFires(t *testing.T) {
	s := fastScheduler()
	var fires atomic.Int32

	require.NoError(t, s.Start(30*time.Millisecond, func() error {
		fires.Add(1)
		return nil
	}))
	defer s.Stop()

	assert.True(t, s.IsRunning())
	assert.False(t, s.NextRun().IsZero())
	assert.Greater(t, s.Remaining(), time.Duration(0))

	require.Eventually(t, func() bool { return fires.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	assert.False(t, s.LastRun().IsZero())
}

func TestStopClearsDeadlineAndJoins(t *testing.T) {
	s := fastScheduler()
	require.NoError(t, s.Start(time.Hour, func() error { return nil }))
	s.Stop()

	assert.False(t, s.IsRunning())
	assert.True(t, s.NextRun().IsZero())
	assert.Equal(t, time.Duration(0), s.Remaining())

	// Idempotent.
	s.Stop()
}

func TestStopDoesNotFireAgain(t *testing.T) {
	s := fastScheduler()
	var fires atomic.Int32
	require.NoError(t, s.Start(20*time.Millisecond, func() error {
		fires.Add(1)
		return nil
	}))

	require.Eventually(t, func() bool { return fires.Load() >= 1 }, 2*time.Second, 5*time.Millisecond)
	s.Stop()
	seen := fires.Load()
	time.Sleep(100 * time.Millisecond)
	assert.Equal(t, seen, fires.Load())
}

func TestStartWhileRunningReplacesLoop(t *testing.T) {
	s := fastScheduler()
	var first, second atomic.Int32

	require.NoError(t, s.Start(15*time.Millisecond, func() error { first.Add(1); return nil }))
	require.NoError(t, s.Start(15*time.Millisecond, func() error { second.Add(1); return nil }))
	defer s.Stop()

	require.Eventually(t, func() bool { return second.Load() >= 2 }, 2*time.Second, 5*time.Millisecond)
	// The first loop is gone; it can have fired at most before the restart.
	assert.LessOrEqual(t, first.Load(), int32(1))
}

func TestSpacingRelativeToCompletion(t *testing.T) {
	s := fastScheduler()
	interval := 40 * time.Millisecond
	work := 30 * time.Millisecond

	var mu sync.Mutex
	var starts, ends []time.Time

	require.NoError(t, s.Start(interval, func() error {
		mu.Lock()
		starts = append(starts, time.Now())
		mu.Unlock()
		time.Sleep(work)
		mu.Lock()
		ends = append(ends, time.Now())
		mu.Unlock()
		return nil
	}))
	defer s.Stop()

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ends) >= 3
	}, 5*time.Second, 10*time.Millisecond)
	s.Stop()

	mu.Lock()
	defer mu.Unlock()
	for i := 1; i < len(starts) && i < len(ends)+1; i++ {
		gap := starts[i].Sub(ends[i-1])
		assert.GreaterOrEqual(t, gap, interval-time.Millisecond,
			"fire %d started %s after previous completion, want >= %s", i, gap, interval)
	}
}

func TestCallbackErrorBacksOffButKeepsLooping(t *testing.T) {
	s := New(Options{Poll: 5 * time.Millisecond, ErrorBackoff: 30 * time.Millisecond})
	var fires atomic.Int32

	require.NoError(t, s.Start(10*time.Millisecond, func() error {
		fires.Add(1)
		return errors.New("push failed")
	}))
	defer s.Stop()

	// The loop survives repeated failures.
	require.Eventually(t, func() bool { return fires.Load() >= 3 }, 5*time.Second, 10*time.Millisecond)
	assert.True(t, s.IsRunning())
}

func TestUpdateIntervalRecomputesDeadline(t *testing.T) {
	s := fastScheduler()
	require.NoError(t, s.Start(time.Hour, func() error { return nil }))
	defer s.Stop()

	before := s.NextRun()
	s.UpdateInterval(10 * time.Minute)
	after := s.NextRun()

	assert.True(t, after.Before(before), "new deadline must not wait for the old target")
	assert.InDelta(t, (10 * time.Minute).Seconds(), time.Until(after).Seconds(), 5)
}

func TestUpdateIntervalWhileStoppedOnlyStoresValue(t *testing.T) {
	s := fastScheduler()
	s.UpdateInterval(10 * time.Minute)
	assert.True(t, s.NextRun().IsZero())
	assert.False(t, s.IsRunning())
}

func TestRemainingClampedToZero(t *testing.T) {
	s := fastScheduler()
	s.mu.Lock()
	s.nextRun = time.Now().Add(-time.Minute)
	s.mu.Unlock()
	assert.Equal(t, time.Duration(0), s.Remaining())
}
