// Package timer owns every scheduled countdown, grace-period, and deathmatch
// timer for one match. The whole set is cancellable as a unit and reports the
// time remaining in the current timed span.
package timer

import (
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/hollowforge/survivalgames/host"
)

// State mirrors the match phases, but only the timed spans.
type State string

const (
	Idle            State = "idle"
	CountingDown    State = "counting-down"
	Grace           State = "grace"
	ActiveTimer     State = "active-timer"
	DeathmatchTimer State = "deathmatch-timer"
	Stopped         State = "stopped"
)

// Coordinator schedules all of a match's timers on the host loop. It is
// driven exclusively by the match state machine, but Cleanup can arrive from
// any goroutine.
type Coordinator struct {
	sched *host.Scheduler
	log   zerolog.Logger

	// tick is one countdown second; shortened in tests.
	tick time.Duration

	mu        sync.Mutex
	state     State
	tickets   *host.TicketSet
	remaining int
	deadline  time.Time
	graceEnd  time.Time
}

type Option func(*Coordinator)

// WithTickInterval overrides the one-second countdown tick. Tests use a
// shorter interval.
func WithTickInterval(d time.Duration) Option {
	return func(c *Coordinator) { c.tick = d }
}

func NewCoordinator(sched *host.Scheduler, logger zerolog.Logger, opts ...Option) *Coordinator {
	c := &Coordinator{
		sched:   sched,
		log:     logger,
		tick:    time.Second,
		state:   Idle,
		tickets: host.NewTicketSet(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Coordinator) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// StartCountdown arms a fresh countdown, replacing any countdown already
// running. onTick fires each elapsed second with the seconds left; onElapsed
// fires once when the countdown reaches zero.
func (c *Coordinator) StartCountdown(seconds int, onTick func(remaining int), onElapsed func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return
	}
	c.cancelAllLocked()
	c.state = CountingDown
	c.remaining = seconds
	c.deadline = time.Now().Add(time.Duration(seconds) * c.tick)

	var ticket *host.Ticket
	ticket = c.sched.Every(c.tick, func() {
		c.mu.Lock()
		if c.state != CountingDown {
			c.mu.Unlock()
			return
		}
		c.remaining--
		left := c.remaining
		c.mu.Unlock()

		if left > 0 {
			if onTick != nil {
				onTick(left)
			}
			return
		}
		ticket.Cancel()
		c.mu.Lock()
		if c.state == CountingDown {
			c.state = Idle
		}
		c.mu.Unlock()
		onElapsed()
	})
	c.tickets.Track(ticket)
}

// CancelCountdown reverts to idle. A no-op when no countdown is running.
func (c *Coordinator) CancelCountdown() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != CountingDown {
		return
	}
	c.cancelAllLocked()
	c.state = Idle
	c.remaining = 0
	c.deadline = time.Time{}
}

// StartGrace arms the grace-period timer. When it elapses the grace-end
// instant is recorded so later deathmatch scheduling is relative to it, not
// to match creation.
func (c *Coordinator) StartGrace(d time.Duration, onElapsed func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return
	}
	c.cancelAllLocked()
	c.state = Grace
	c.deadline = time.Now().Add(d)

	c.tickets.Track(c.sched.After(d, func() {
		c.mu.Lock()
		c.graceEnd = time.Now()
		if c.state == Grace {
			c.state = ActiveTimer
		}
		c.mu.Unlock()
		onElapsed()
	}))
}

// SkipGrace records the grace-end instant without waiting, for matches whose
// grace duration is zero.
func (c *Coordinator) SkipGrace() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return
	}
	c.graceEnd = time.Now()
	c.state = ActiveTimer
}

// ScheduleDeathmatch arms onDeathmatch and onTimeout relative to the recorded
// grace-end instant. Anchoring on grace end (rather than match creation)
// keeps the schedule correct when grace is skipped or phases are re-entered.
func (c *Coordinator) ScheduleDeathmatch(delay, timeout time.Duration, onDeathmatch, onTimeout func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Stopped {
		return
	}
	anchor := c.graceEnd
	if anchor.IsZero() {
		anchor = time.Now()
	}
	c.state = ActiveTimer
	c.deadline = anchor.Add(delay)

	until := time.Until(anchor.Add(delay))
	if until < 0 {
		until = 0
	}
	c.tickets.Track(c.sched.After(until, func() {
		c.mu.Lock()
		if c.state == ActiveTimer {
			c.state = DeathmatchTimer
			c.deadline = anchor.Add(delay + timeout)
		}
		c.mu.Unlock()
		onDeathmatch()
	}))

	untilTimeout := time.Until(anchor.Add(delay + timeout))
	if untilTimeout < 0 {
		untilTimeout = 0
	}
	c.tickets.Track(c.sched.After(untilTimeout, onTimeout))
}

// Remaining reports the time left in the current timed span, zero when idle
// or stopped.
func (c *Coordinator) Remaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state == Idle || c.state == Stopped || c.deadline.IsZero() {
		return 0
	}
	left := time.Until(c.deadline)
	if left < 0 {
		return 0
	}
	return left
}

// Cleanup cancels every outstanding scheduled callback. Idempotent and safe
// from a different goroutine than the one that scheduled the callbacks.
func (c *Coordinator) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cancelAllLocked()
	c.state = Stopped
	c.remaining = 0
	c.deadline = time.Time{}
}

func (c *Coordinator) cancelAllLocked() {
	c.tickets.CancelAll()
}
