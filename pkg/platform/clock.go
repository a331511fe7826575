package platform

import (
	"sync"
	"time"
)

// Clock is the time source for elapsed-time reporting around timers.
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to Clock.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock.
var SystemClock Clock = ClockFunc(time.Now)

var (
	clockMu sync.RWMutex
	clock   = SystemClock
)

// SetClock installs c as the process clock and returns the previous one.
// Passing nil restores SystemClock.
func SetClock(c Clock) Clock {
	if c == nil {
		c = SystemClock
	}
	clockMu.Lock()
	defer clockMu.Unlock()
	prev := clock
	clock = c
	return prev
}

// Now returns the time from the installed clock.
func Now() time.Time {
	clockMu.RLock()
	c := clock
	clockMu.RUnlock()
	return c.Now()
}

// Since returns the time elapsed on the installed clock since t.
func Since(t time.Time) time.Duration {
	return Now().Sub(t)
}
