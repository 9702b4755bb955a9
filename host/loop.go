// Package host provides the cooperative execution model the match core runs
// on: a single privileged loop where player-visible world mutations execute,
// futures for cross-context hand-off, and cancellable tickets for scheduled
// work. Everything a match schedules is collected in per-match sets so that
// cleanup is a single "cancel all" pass.
package host

import (
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
)

const defaultQueueSize = 256

// Loop is the privileged single-threaded context. Teleports, inventory edits
// and block mutations must execute here; background workers hand work off via
// Call and await the returned future.
type Loop struct {
	jobs    chan func()
	quit    chan struct{}
	closed  atomic.Bool
	stopped sync.WaitGroup
}

func NewLoop() *Loop {
	l := &Loop{
		jobs: make(chan func(), defaultQueueSize),
		quit: make(chan struct{}),
	}
	l.stopped.Add(1)
	go l.run()
	return l
}

func (l *Loop) run() {
	defer l.stopped.Done()
	for {
		select {
		case job := <-l.jobs:
			l.invoke(job)
		case <-l.quit:
			// Drain whatever was already queued so callers awaiting a
			// future are not left hanging forever.
			for {
				select {
				case job := <-l.jobs:
					l.invoke(job)
				default:
					return
				}
			}
		}
	}
}

func (l *Loop) invoke(job func()) {
	defer func() {
		if r := recover(); r != nil {
			log.Error().Interface("panic", r).Msg("host job panicked")
		}
	}()
	job()
}

// Post enqueues fire-and-forget work. Work posted after Close is dropped.
func (l *Loop) Post(fn func()) {
	if l.closed.Load() {
		return
	}
	select {
	case l.jobs <- fn:
	case <-l.quit:
	}
}

// Call enqueues fn and returns a future that completes with fn's error. If
// the loop is closed the future completes immediately with ErrLoopClosed.
func (l *Loop) Call(fn func() error) *Future {
	f := NewFuture()
	if l.closed.Load() {
		f.Complete(ErrLoopClosed)
		return f
	}
	job := func() {
		f.Complete(fn())
	}
	select {
	case l.jobs <- job:
	case <-l.quit:
		f.Complete(ErrLoopClosed)
	}
	return f
}

// Close stops the loop after draining already-queued work. Safe to call more
// than once.
func (l *Loop) Close() {
	if !l.closed.CompareAndSwap(false, true) {
		return
	}
	close(l.quit)
	l.stopped.Wait()
}
