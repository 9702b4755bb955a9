package host

import (
	"context"
	"sync"
	"time"

	"github.com/rotisserie/eris"
)

var (
	ErrLoopClosed      = eris.New("host loop is closed")
	ErrFutureCancelled = eris.New("future cancelled")
	ErrAwaitTimeout    = eris.New("await timed out")
)

// Future is a one-shot completion handle for work running on another context.
type Future struct {
	once sync.Once
	done chan struct{}
	err  error
}

func NewFuture() *Future {
	return &Future{done: make(chan struct{})}
}

// Complete resolves the future. Only the first call has any effect.
func (f *Future) Complete(err error) {
	f.once.Do(func() {
		f.err = err
		close(f.done)
	})
}

// Cancel resolves the future with ErrFutureCancelled unless already complete.
func (f *Future) Cancel() {
	f.Complete(ErrFutureCancelled)
}

func (f *Future) Done() <-chan struct{} {
	return f.done
}

// Err returns the completion error. Only valid after Done is closed.
func (f *Future) Err() error {
	return f.err
}

// Await blocks until completion or context cancellation.
func (f *Future) Await(ctx context.Context) error {
	select {
	case <-f.done:
		return f.err
	case <-ctx.Done():
		return eris.Wrap(ctx.Err(), "await interrupted")
	}
}

// AwaitTimeout blocks up to d. The future itself is not cancelled on timeout.
func (f *Future) AwaitTimeout(d time.Duration) error {
	select {
	case <-f.done:
		return f.err
	case <-time.After(d):
		return ErrAwaitTimeout
	}
}

// FutureSet tracks every outstanding future a match owns so cleanup can
// cancel them deterministically.
type FutureSet struct {
	mu      sync.Mutex
	futures map[*Future]struct{}
}

func NewFutureSet() *FutureSet {
	return &FutureSet{futures: make(map[*Future]struct{})}
}

// Track registers f and prunes it automatically once it completes.
func (s *FutureSet) Track(f *Future) *Future {
	s.mu.Lock()
	s.futures[f] = struct{}{}
	s.mu.Unlock()
	go func() {
		<-f.Done()
		s.mu.Lock()
		delete(s.futures, f)
		s.mu.Unlock()
	}()
	return f
}

func (s *FutureSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.futures)
}

// CancelAll cancels every tracked future that has not yet completed.
func (s *FutureSet) CancelAll() {
	s.mu.Lock()
	pending := make([]*Future, 0, len(s.futures))
	for f := range s.futures {
		pending = append(pending, f)
	}
	s.mu.Unlock()
	for _, f := range pending {
		f.Cancel()
	}
}
