package timeout

import (
	"time"

	"github.com/go-drift/hooks/pkg/platform"
)

type options struct {
	scheduler     platform.Scheduler
	maxDelay      time.Duration
	startOnCreate bool
	chaining      bool
}

func defaultOptions() options {
	return options{
		startOnCreate: true,
		chaining:      true,
	}
}

// Option configures a Timer.
type Option func(*options)

// WithScheduler sets the platform timer primitive. Defaults to
// platform.DefaultScheduler().
func WithScheduler(s platform.Scheduler) Option {
	return func(o *options) {
		o.scheduler = s
	}
}

// WithMaxDelay caps the length of a single platform timer. Values above the
// scheduler's own maximum are clamped to it.
func WithMaxDelay(d time.Duration) Option {
	return func(o *options) {
		o.maxDelay = d
	}
}

// WithStartOnCreate controls whether New arms the timer immediately.
// Defaults to true.
func WithStartOnCreate(start bool) Option {
	return func(o *options) {
		o.startOnCreate = start
	}
}

// WithChaining controls whether delays longer than the maximum are split
// across consecutive platform timers. With chaining disabled a single timer
// is used and longer delays fail to start. Defaults to true.
func WithChaining(chain bool) Option {
	return func(o *options) {
		o.chaining = chain
	}
}
