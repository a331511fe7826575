// Package testing provides deterministic time for hook tests.
//
// FakeScheduler implements platform.Scheduler on top of a FakeClock. Timers
// only fire when the test advances virtual time, so delays of weeks run in
// microseconds:
//
//	sched := hookstest.NewFakeScheduler(platform.MaxTimerDelay)
//	timer := timeout.New(fire, 30*24*time.Hour, timeout.WithScheduler(sched))
//	sched.Advance(30 * 24 * time.Hour)
//
// # Import Alias
//
// Since this package has the same name as the standard library testing
// package, import it with an alias:
//
//	import hookstest "github.com/go-drift/hooks/pkg/testing"
package testing
