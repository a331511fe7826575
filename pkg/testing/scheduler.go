package testing

import (
	"sync"
	"time"

	"github.com/go-drift/hooks/pkg/errors"
	"github.com/go-drift/hooks/pkg/platform"
)

type fakeTimer struct {
	when time.Time
	seq  uint64
	fn   func()
}

// FakeScheduler is a platform.Scheduler driven by virtual time.
// Timers fire synchronously inside Advance, in deadline order.
type FakeScheduler struct {
	mu        sync.Mutex
	clock     *FakeClock
	max       time.Duration
	next      platform.Handle
	seq       uint64
	timers    map[platform.Handle]*fakeTimer
	scheduled []time.Duration
	cancelled int
	fired     int
	failNext  error
}

// NewFakeScheduler creates a scheduler whose single timers may not exceed max.
// Non-positive max falls back to platform.MaxTimerDelay.
func NewFakeScheduler(max time.Duration) *FakeScheduler {
	if max <= 0 {
		max = platform.MaxTimerDelay
	}
	return &FakeScheduler{
		clock:  NewFakeClock(),
		max:    max,
		timers: make(map[platform.Handle]*fakeTimer),
	}
}

// Clock returns the scheduler's clock.
func (s *FakeScheduler) Clock() *FakeClock {
	return s.clock
}

// Now returns the current virtual time.
func (s *FakeScheduler) Now() time.Time {
	return s.clock.Now()
}

// Schedule implements platform.Scheduler.
func (s *FakeScheduler) Schedule(fn func(), delay time.Duration) (platform.Handle, error) {
	if delay < 0 {
		delay = 0
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failNext; err != nil {
		s.failNext = nil
		return 0, err
	}
	if delay > s.max {
		return 0, errors.ErrDelayTooLong
	}
	s.next++
	s.seq++
	s.timers[s.next] = &fakeTimer{
		when: s.clock.Now().Add(delay),
		seq:  s.seq,
		fn:   fn,
	}
	s.scheduled = append(s.scheduled, delay)
	return s.next, nil
}

// Cancel implements platform.Scheduler.
func (s *FakeScheduler) Cancel(h platform.Handle) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.timers[h]; ok {
		delete(s.timers, h)
		s.cancelled++
	}
}

// MaxDelay implements platform.Scheduler.
func (s *FakeScheduler) MaxDelay() time.Duration {
	return s.max
}

// FailNext makes the next Schedule call return err.
func (s *FakeScheduler) FailNext(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failNext = err
}

// Advance moves virtual time forward by d, firing every timer whose
// deadline falls inside the window, including timers scheduled by earlier
// fires. The clock reads each timer's deadline while its callback runs.
func (s *FakeScheduler) Advance(d time.Duration) {
	target := s.clock.Now().Add(d)
	for {
		t, ok := s.popDue(target)
		if !ok {
			break
		}
		t.fn()
	}
	if target.After(s.clock.Now()) {
		s.clock.Set(target)
	}
}

// Flush fires timers due at the current time without moving the clock.
func (s *FakeScheduler) Flush() {
	s.Advance(0)
}

func (s *FakeScheduler) popDue(target time.Time) (*fakeTimer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var (
		bestHandle platform.Handle
		best       *fakeTimer
	)
	for h, t := range s.timers {
		if t.when.After(target) {
			continue
		}
		if best == nil || t.when.Before(best.when) || (t.when.Equal(best.when) && t.seq < best.seq) {
			best, bestHandle = t, h
		}
	}
	if best == nil {
		return nil, false
	}
	delete(s.timers, bestHandle)
	s.fired++
	if best.when.After(s.clock.Now()) {
		s.clock.Set(best.when)
	}
	return best, true
}

// Pending returns the number of outstanding timers.
func (s *FakeScheduler) Pending() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.timers)
}

// Scheduled returns the delay of every successful Schedule call, in order.
func (s *FakeScheduler) Scheduled() []time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]time.Duration(nil), s.scheduled...)
}

// Fired returns how many timers have fired.
func (s *FakeScheduler) Fired() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fired
}

// Cancelled returns how many outstanding timers were cancelled.
func (s *FakeScheduler) Cancelled() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cancelled
}

var _ platform.Scheduler = (*FakeScheduler)(nil)
