// Package timeout provides a one-shot timer that honours delays longer than
// the platform's maximum single-timer duration.
//
// Host timers accept at most platform.MaxTimerDelay (about 24.8 days). A
// Timer splits longer delays into consecutive platform timers, re-arming
// from inside each fire, and invokes its callback once when the whole delay
// has elapsed. At most one platform timer is outstanding per Timer.
//
//	t := timeout.New(func(id string) { s.expire(id) }, 45*24*time.Hour,
//	    timeout.WithStartOnCreate(false))
//	t.Start("session-1")
//	defer t.Dispose()
package timeout

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/go-drift/hooks/pkg/callbackref"
	"github.com/go-drift/hooks/pkg/errors"
	"github.com/go-drift/hooks/pkg/log"
	"github.com/go-drift/hooks/pkg/platform"
)

// State is the timer's scheduling state.
type State int

const (
	// Idle means no platform timer is outstanding.
	Idle State = iota
	// Armed means exactly one platform timer is outstanding.
	Armed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Armed:
		return "armed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}

// Timer fires a callback once after a delay of any length.
//
// Start and Cancel may be called from any goroutine, but the callback runs
// wherever the scheduler fires, which is the UI loop when one is installed.
type Timer[A any] struct {
	mu        sync.Mutex
	id        string
	scheduler platform.Scheduler
	maxDelay  time.Duration
	chaining  bool
	callback  *callbackref.Handler[A]
	delay     time.Duration

	state     State
	handle    platform.Handle
	gen       uint64
	args      A
	remaining time.Duration
	chunks    int
	disposed  bool

	startRef *callbackref.Ref[A, error]
	cancelFn func()
}

// New creates a Timer that invokes callback after delay. Unless disabled with
// WithStartOnCreate(false), the timer is started immediately with the zero A.
// A failure to arm on creation is reported to the global error handler and
// leaves the timer idle; Start may be called again.
func New[A any](callback func(A), delay time.Duration, opts ...Option) *Timer[A] {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	if o.scheduler == nil {
		o.scheduler = platform.DefaultScheduler()
	}

	maxDelay := o.scheduler.MaxDelay()
	if o.maxDelay > 0 && o.maxDelay < maxDelay {
		maxDelay = o.maxDelay
	}

	t := &Timer[A]{
		id:        uuid.NewString(),
		scheduler: o.scheduler,
		maxDelay:  maxDelay,
		chaining:  o.chaining,
		callback:  callbackref.NewHandler(callback),
		delay:     delay,
	}
	t.startRef = callbackref.New(t.Start)
	cancelRef := callbackref.NewHandler(func(struct{}) { t.Cancel() })
	t.cancelFn = func() { cancelRef.Call(struct{}{}) }

	if o.startOnCreate {
		var zero A
		if err := t.Start(zero); err != nil {
			errors.Report(&errors.HookError{
				Op:   "timeout.New",
				Kind: errors.KindTimer,
				Err:  err,
			})
		}
	}
	return t
}

// ID returns the timer's unique identifier, used in log fields.
func (t *Timer[A]) ID() string {
	return t.id
}

// Start arms the timer with args, which are passed to the callback when it
// fires. Calling Start while the timer is armed, or after Dispose, does
// nothing. A non-positive delay fires on the next scheduler turn.
//
// If the platform refuses the timer, Start returns a
// *errors.TimerSchedulingError and the timer stays idle.
func (t *Timer[A]) Start(args A) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.disposed || t.state == Armed {
		return nil
	}
	t.args = args
	t.remaining = max(t.delay, 0)
	t.chunks = 0
	return t.arm()
}

// arm schedules the next chunk. Callers hold t.mu.
func (t *Timer[A]) arm() error {
	chunk := min(t.remaining, t.maxDelay)
	if !t.chaining {
		chunk = t.remaining
		if chunk > t.maxDelay {
			t.reset()
			return &errors.TimerSchedulingError{Delay: chunk, Err: errors.ErrDelayTooLong}
		}
	}

	t.gen++
	gen := t.gen
	h, err := t.scheduler.Schedule(func() { t.fire(gen, chunk) }, chunk)
	if err != nil {
		t.reset()
		return &errors.TimerSchedulingError{Delay: chunk, Err: err}
	}
	t.handle = h
	t.state = Armed
	t.chunks++
	t.logger().Debug("timer armed",
		zap.Duration("chunk", chunk),
		zap.Duration("remaining", t.remaining),
		zap.Int("chunk_index", t.chunks))
	return nil
}

func (t *Timer[A]) fire(gen uint64, chunk time.Duration) {
	t.mu.Lock()
	if t.state != Armed || gen != t.gen {
		// Fired after Cancel, or superseded by a later arm.
		t.mu.Unlock()
		return
	}
	t.handle = 0
	t.remaining -= chunk

	if t.remaining > 0 {
		// Re-arm before returning so no other fire for this timer can interleave.
		err := t.arm()
		t.mu.Unlock()
		if err != nil {
			errors.Report(&errors.HookError{
				Op:   "timeout.Timer.rearm",
				Kind: errors.KindTimer,
				Err:  err,
			})
		}
		return
	}

	args := t.args
	chunks := t.chunks
	t.reset()
	t.mu.Unlock()

	t.logger().Debug("timer fired", zap.Int("chunks", chunks))
	defer errors.Recover("timeout.Timer.callback")
	t.callback.Call(args)
}

// reset returns the timer to Idle. Callers hold t.mu.
func (t *Timer[A]) reset() {
	var zero A
	t.state = Idle
	t.handle = 0
	t.remaining = 0
	t.args = zero
}

// Cancel stops the outstanding timer, if any. Cancel is idempotent.
func (t *Timer[A]) Cancel() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cancelLocked()
}

func (t *Timer[A]) cancelLocked() {
	if t.state != Armed {
		return
	}
	t.scheduler.Cancel(t.handle)
	t.gen++
	t.reset()
	t.logger().Debug("timer cancelled")
}

// Dispose cancels the timer and makes later Start calls no-ops. The
// callback is never invoked after Dispose returns.
func (t *Timer[A]) Dispose() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.disposed = true
	t.cancelLocked()
}

func (t *Timer[A]) logger() *zap.Logger {
	return log.Named("timeout").With(zap.String("timer", t.id))
}

// Update replaces the callback and delay. A pending fire invokes the new
// callback; the new delay applies from the next Start.
func (t *Timer[A]) Update(callback func(A), delay time.Duration) {
	t.callback.Update(callback)
	t.mu.Lock()
	t.delay = delay
	t.mu.Unlock()
}

// StartFunc returns a function equivalent to Start whose identity never
// changes for the life of the timer.
func (t *Timer[A]) StartFunc() func(A) error {
	return t.startRef.Func()
}

// CancelFunc returns a function equivalent to Cancel whose identity never
// changes for the life of the timer.
func (t *Timer[A]) CancelFunc() func() {
	return t.cancelFn
}

// State returns the current scheduling state.
func (t *Timer[A]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Armed reports whether a platform timer is outstanding.
func (t *Timer[A]) Armed() bool {
	return t.State() == Armed
}

// Remaining returns the part of the delay not yet covered by completed
// platform timers, including the outstanding one. It is zero when idle.
func (t *Timer[A]) Remaining() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.remaining
}

// MaxDelay returns the longest single platform timer this Timer schedules.
func (t *Timer[A]) MaxDelay() time.Duration {
	return t.maxDelay
}
