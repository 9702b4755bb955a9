package host

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoopRunsJobsInOrder(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()

	var got []int
	done := make(chan struct{})
	for i := 0; i < 5; i++ {
		i := i
		loop.Post(func() { got = append(got, i) })
	}
	loop.Post(func() { close(done) })
	<-done
	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestCallCompletesFutureWithError(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()

	wantErr := ErrAwaitTimeout // any sentinel will do
	f := loop.Call(func() error { return wantErr })
	err := f.Await(context.Background())
	assert.ErrorIs(t, err, wantErr)
}

func TestCallAfterCloseFailsFast(t *testing.T) {
	loop := NewLoop()
	loop.Close()

	f := loop.Call(func() error { return nil })
	err := f.AwaitTimeout(time.Second)
	assert.ErrorIs(t, err, ErrLoopClosed)
}

func TestCloseDrainsQueuedWork(t *testing.T) {
	loop := NewLoop()
	var ran atomic.Int32
	f := loop.Call(func() error {
		ran.Add(1)
		return nil
	})
	loop.Close()
	require.NoError(t, f.AwaitTimeout(time.Second))
	assert.Equal(t, int32(1), ran.Load())
}

func TestLoopSurvivesPanickingJob(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()

	loop.Post(func() { panic("boom") })
	f := loop.Call(func() error { return nil })
	assert.NoError(t, f.AwaitTimeout(time.Second))
}

func TestFutureCancelWinsOnlyIfFirst(t *testing.T) {
	f := NewFuture()
	f.Complete(nil)
	f.Cancel()
	assert.NoError(t, f.Err())

	g := NewFuture()
	g.Cancel()
	g.Complete(nil)
	assert.ErrorIs(t, g.Err(), ErrFutureCancelled)
}

func TestFutureSetCancelAll(t *testing.T) {
	s := NewFutureSet()
	a := s.Track(NewFuture())
	b := s.Track(NewFuture())
	assert.Equal(t, 2, s.Len())

	s.CancelAll()
	assert.ErrorIs(t, a.AwaitTimeout(time.Second), ErrFutureCancelled)
	assert.ErrorIs(t, b.AwaitTimeout(time.Second), ErrFutureCancelled)
}

func TestFutureSetPrunesCompleted(t *testing.T) {
	s := NewFutureSet()
	f := s.Track(NewFuture())
	f.Complete(nil)
	assert.Eventually(t, func() bool { return s.Len() == 0 }, time.Second, time.Millisecond)
}

func TestAfterFiresOnce(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()
	sched := NewScheduler(loop)

	var fired atomic.Int32
	sched.After(10*time.Millisecond, func() { fired.Add(1) })
	assert.Eventually(t, func() bool { return fired.Load() == 1 }, time.Second, time.Millisecond)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, int32(1), fired.Load())
}

func TestCancelledAfterNeverFires(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()
	sched := NewScheduler(loop)

	var fired atomic.Int32
	ticket := sched.After(20*time.Millisecond, func() { fired.Add(1) })
	ticket.Cancel()
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.True(t, ticket.Cancelled())
}

func TestEveryRepeatsUntilCancelled(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()
	sched := NewScheduler(loop)

	var fired atomic.Int32
	ticket := sched.Every(5*time.Millisecond, func() { fired.Add(1) })
	assert.Eventually(t, func() bool { return fired.Load() >= 3 }, time.Second, time.Millisecond)
	ticket.Cancel()
	count := fired.Load()
	time.Sleep(30 * time.Millisecond)
	// One in-flight invocation may land after Cancel; no more after that.
	assert.LessOrEqual(t, fired.Load(), count+1)
}

func TestTicketCancelIsIdempotentCrossGoroutine(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()
	sched := NewScheduler(loop)

	ticket := sched.Every(time.Millisecond, func() {})
	done := make(chan struct{})
	for i := 0; i < 4; i++ {
		go func() {
			ticket.Cancel()
			done <- struct{}{}
		}()
	}
	for i := 0; i < 4; i++ {
		<-done
	}
	assert.True(t, ticket.Cancelled())
}

func TestTicketSetCancelAllTwice(t *testing.T) {
	loop := NewLoop()
	defer loop.Close()
	sched := NewScheduler(loop)

	set := NewTicketSet()
	var fired atomic.Int32
	set.Track(sched.After(20*time.Millisecond, func() { fired.Add(1) }))
	set.Track(sched.Every(5*time.Millisecond, func() { fired.Add(1) }))

	set.CancelAll()
	set.CancelAll()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, int32(0), fired.Load())
	assert.Equal(t, 0, set.Len())
}
