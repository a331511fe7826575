// Package platform defines the host primitives the hooks build on: a
// single-shot timer scheduler, a UI-thread dispatcher, and a clock.
//
// Timer callbacks are expected to run on the UI thread. SystemScheduler
// fires on a runtime timer goroutine and hands the callback to Dispatch, so
// once a loop is installed every fire is serialized with the rest of the UI
// work.
package platform

import (
	"sync"
	"time"

	"github.com/go-drift/hooks/pkg/errors"
)

// MaxTimerDelay is the largest delay a single platform timer accepts,
// 2^31-1 milliseconds (about 24.8 days). Longer waits must be chained.
const MaxTimerDelay = 2147483647 * time.Millisecond

// Handle identifies an outstanding platform timer. The zero Handle is never
// returned by a successful Schedule.
type Handle uint64

// Scheduler is the single-shot timer primitive.
type Scheduler interface {
	// Schedule arranges for fn to run once after delay. Negative delays are
	// treated as zero. Delays above MaxDelay fail with errors.ErrDelayTooLong.
	Schedule(fn func(), delay time.Duration) (Handle, error)
	// Cancel stops an outstanding timer. Unknown or fired handles are ignored.
	Cancel(h Handle)
	// MaxDelay reports the largest delay Schedule accepts.
	MaxDelay() time.Duration
}

// SystemScheduler schedules timers with time.AfterFunc.
type SystemScheduler struct {
	mu     sync.Mutex
	next   Handle
	timers map[Handle]*time.Timer
	closed bool
	max    time.Duration
}

// NewSystemScheduler creates a scheduler bounded by MaxTimerDelay.
func NewSystemScheduler() *SystemScheduler {
	return NewSystemSchedulerWithMax(MaxTimerDelay)
}

// NewSystemSchedulerWithMax creates a scheduler with a custom maximum delay.
// Non-positive values fall back to MaxTimerDelay.
func NewSystemSchedulerWithMax(max time.Duration) *SystemScheduler {
	if max <= 0 {
		max = MaxTimerDelay
	}
	return &SystemScheduler{
		timers: make(map[Handle]*time.Timer),
		max:    max,
	}
}

// Schedule implements Scheduler.
func (s *SystemScheduler) Schedule(fn func(), delay time.Duration) (Handle, error) {
	if delay < 0 {
		delay = 0
	}
	if delay > s.max {
		return 0, errors.ErrDelayTooLong
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errors.ErrSchedulerClosed
	}
	s.next++
	h := s.next
	s.timers[h] = time.AfterFunc(delay, func() {
		s.mu.Lock()
		_, live := s.timers[h]
		delete(s.timers, h)
		s.mu.Unlock()
		if live {
			DispatchOrRun(fn)
		}
	})
	return h, nil
}

// Cancel implements Scheduler.
func (s *SystemScheduler) Cancel(h Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[h]; ok {
		t.Stop()
		delete(s.timers, h)
	}
}

// MaxDelay implements Scheduler.
func (s *SystemScheduler) MaxDelay() time.Duration {
	return s.max
}

// Pending returns the number of outstanding timers.
func (s *SystemScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Close stops every outstanding timer. Later Schedule calls fail with
// errors.ErrSchedulerClosed.
func (s *SystemScheduler) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for h, t := range s.timers {
		t.Stop()
		delete(s.timers, h)
	}
}

var (
	defaultMu        sync.Mutex
	defaultScheduler Scheduler
)

// DefaultScheduler returns the process-wide scheduler, creating a
// SystemScheduler on first use.
func DefaultScheduler() Scheduler {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultScheduler == nil {
		defaultScheduler = NewSystemScheduler()
	}
	return defaultScheduler
}

// SetDefaultScheduler replaces the process-wide scheduler and returns the
// previous one. Passing nil resets to a lazily created SystemScheduler.
func SetDefaultScheduler(s Scheduler) Scheduler {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultScheduler
	defaultScheduler = s
	return prev
}
