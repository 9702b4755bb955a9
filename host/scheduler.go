package host

import (
	"sync"
	"sync/atomic"
	"time"
)

// Ticket is a cancellable handle to one scheduled callback. Cancellation is
// safe from any goroutine and after the callback has already fired.
type Ticket struct {
	cancelled atomic.Bool
	stop      func()
	stopOnce  sync.Once
}

// Cancel prevents any further invocations of the scheduled callback.
func (t *Ticket) Cancel() {
	t.cancelled.Store(true)
	t.stopOnce.Do(t.stop)
}

// Cancelled reports whether Cancel has been called.
func (t *Ticket) Cancelled() bool {
	return t.cancelled.Load()
}

// Scheduler arms delayed and repeating callbacks that execute on the host
// loop. Every schedule call returns a Ticket; there is no fire-and-forget.
type Scheduler struct {
	loop *Loop
}

func NewScheduler(loop *Loop) *Scheduler {
	return &Scheduler{loop: loop}
}

// After runs fn on the host loop once d has elapsed.
func (s *Scheduler) After(d time.Duration, fn func()) *Ticket {
	t := &Ticket{}
	timer := time.AfterFunc(d, func() {
		if t.cancelled.Load() {
			return
		}
		s.loop.Post(func() {
			if !t.cancelled.Load() {
				fn()
			}
		})
	})
	t.stop = func() { timer.Stop() }
	return t
}

// Every runs fn on the host loop at the given interval until cancelled.
func (s *Scheduler) Every(interval time.Duration, fn func()) *Ticket {
	t := &Ticket{}
	done := make(chan struct{})
	t.stop = func() { close(done) }
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if t.cancelled.Load() {
					return
				}
				s.loop.Post(func() {
					if !t.cancelled.Load() {
						fn()
					}
				})
			case <-done:
				return
			}
		}
	}()
	return t
}

// TicketSet collects every ticket a match creates so cleanup is a single
// cancel-all loop instead of scattered task-id bookkeeping.
type TicketSet struct {
	mu      sync.Mutex
	tickets map[*Ticket]struct{}
}

func NewTicketSet() *TicketSet {
	return &TicketSet{tickets: make(map[*Ticket]struct{})}
}

func (s *TicketSet) Track(t *Ticket) *Ticket {
	s.mu.Lock()
	s.tickets[t] = struct{}{}
	s.mu.Unlock()
	return t
}

func (s *TicketSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tickets)
}

// CancelAll cancels every tracked ticket. Idempotent.
func (s *TicketSet) CancelAll() {
	s.mu.Lock()
	all := make([]*Ticket, 0, len(s.tickets))
	for t := range s.tickets {
		all = append(all, t)
	}
	s.tickets = make(map[*Ticket]struct{})
	s.mu.Unlock()
	for _, t := range all {
		t.Cancel()
	}
}
