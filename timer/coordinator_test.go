package timer_test

import (
	"os"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/hollowforge/survivalgames/host"
	"github.com/hollowforge/survivalgames/timer"
)

func newCoordinator(t *testing.T) *timer.Coordinator {
	t.Helper()
	loop := host.NewLoop()
	t.Cleanup(loop.Close)
	sched := host.NewScheduler(loop)
	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	return timer.NewCoordinator(sched, logger, timer.WithTickInterval(5*time.Millisecond))
}

func TestCountdownElapsesAndFiresCallback(t *testing.T) {
	c := newCoordinator(t)

	var ticks, elapsed atomic.Int32
	c.StartCountdown(3, func(int) { ticks.Add(1) }, func() { elapsed.Add(1) })
	assert.Equal(t, timer.CountingDown, c.State())

	assert.Eventually(t, func() bool { return elapsed.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(2), ticks.Load())
	assert.Equal(t, timer.Idle, c.State())
}

func TestCancelCountdownRevertsToIdle(t *testing.T) {
	c := newCoordinator(t)

	var elapsed atomic.Int32
	c.StartCountdown(100, nil, func() { elapsed.Add(1) })
	c.CancelCountdown()
	assert.Equal(t, timer.Idle, c.State())
	assert.Equal(t, time.Duration(0), c.Remaining())

	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), elapsed.Load())
}

func TestStartCountdownReplacesRunningCountdown(t *testing.T) {
	c := newCoordinator(t)

	var first, second atomic.Int32
	c.StartCountdown(100, nil, func() { first.Add(1) })
	c.StartCountdown(2, nil, func() { second.Add(1) })

	assert.Eventually(t, func() bool { return second.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, int32(0), first.Load())
}

func TestRemainingReflectsCountdown(t *testing.T) {
	c := newCoordinator(t)
	c.StartCountdown(1000, nil, func() {})
	left := c.Remaining()
	assert.Greater(t, left, time.Duration(0))
	assert.LessOrEqual(t, left, 1000*5*time.Millisecond)
}

func TestGraceElapseRunsCallback(t *testing.T) {
	c := newCoordinator(t)

	var fired atomic.Int32
	c.StartGrace(10*time.Millisecond, func() { fired.Add(1) })
	assert.Equal(t, timer.Grace, c.State())
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	assert.Equal(t, timer.ActiveTimer, c.State())
}

func TestDeathmatchIsAnchoredToGraceEnd(t *testing.T) {
	c := newCoordinator(t)

	graceDone := make(chan struct{})
	c.StartGrace(10*time.Millisecond, func() { close(graceDone) })
	<-graceDone

	// Let some time pass between grace end and scheduling; the deathmatch
	// delay counts from grace end, so the effective wait shrinks.
	time.Sleep(20 * time.Millisecond)

	var dm, timeout atomic.Int32
	start := time.Now()
	c.ScheduleDeathmatch(25*time.Millisecond, 40*time.Millisecond,
		func() { dm.Add(1) }, func() { timeout.Add(1) })

	assert.Eventually(t, func() bool { return dm.Load() == 1 }, time.Second, time.Millisecond)
	assert.Less(t, time.Since(start), 25*time.Millisecond,
		"deathmatch must fire early because the delay is anchored at grace end")
	assert.Eventually(t, func() bool { return timeout.Load() == 1 }, time.Second, time.Millisecond)
}

func TestCleanupCancelsEverythingAndIsIdempotent(t *testing.T) {
	c := newCoordinator(t)

	var fired atomic.Int32
	c.StartCountdown(100, nil, func() { fired.Add(1) })
	c.Cleanup()
	c.Cleanup()
	assert.Equal(t, timer.Stopped, c.State())

	// Scheduling after cleanup is ignored.
	c.StartCountdown(1, nil, func() { fired.Add(1) })
	c.StartGrace(time.Millisecond, func() { fired.Add(1) })
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
}

func TestCleanupFromAnotherGoroutine(t *testing.T) {
	c := newCoordinator(t)
	c.StartCountdown(100, nil, func() {})

	done := make(chan struct{})
	go func() {
		c.Cleanup()
		close(done)
	}()
	<-done
	assert.Equal(t, timer.Stopped, c.State())
}
