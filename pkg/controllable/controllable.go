// Package controllable unifies controlled and uncontrolled component state
// behind one read/write interface.
//
// A component whose value can either be owned by its parent (controlled) or
// kept locally (uncontrolled) creates a State once and reads and writes
// through it regardless of mode:
//
//	// Controlled: the parent owns the value and learns about requested
//	// changes through OnChange.
//	s := controllable.New(controllable.Params[bool]{Value: &w.Open, OnChange: w.OnOpenChange})
//
//	// Uncontrolled: the state keeps the value, seeded from Initial, and
//	// reports transitions through OnChange.
//	s := controllable.New(controllable.Params[bool]{Initial: w.DefaultOpen, OnChange: w.OnOpenChange})
//
// The mode is fixed at construction. Re-supplying params with Sync may refresh
// the controlled value and the notifier but cannot switch modes.
package controllable

import (
	"sync"

	"go.uber.org/zap"

	"github.com/go-drift/hooks/pkg/callbackref"
	"github.com/go-drift/hooks/pkg/errors"
	"github.com/go-drift/hooks/pkg/log"
	"github.com/go-drift/hooks/pkg/platform"
)

// Mode says who owns the value of record.
type Mode int

const (
	// Uncontrolled means the State stores the value.
	Uncontrolled Mode = iota
	// Controlled means the owner stores the value and the State only
	// forwards change requests.
	Controlled
)

func (m Mode) String() string {
	if m == Controlled {
		return "controlled"
	}
	return "uncontrolled"
}

// Params are the owner-supplied inputs of a State.
type Params[T any] struct {
	// Value selects controlled mode when non-nil and holds the owner's value.
	Value *T
	// Initial seeds the stored value in uncontrolled mode. Ignored when
	// Value is set.
	Initial T
	// OnChange is notified of changes. May be nil.
	OnChange func(T)
}

type options struct {
	effects func(func())
}

// Option configures a State.
type Option func(*options)

// WithEffects sets how uncontrolled change notifications are deferred.
// schedule receives the change-detection pass and must run it later, after
// the current batch of writes. By default the pass is posted to the UI loop
// when one is installed; otherwise it stays pending until Flush is called.
func WithEffects(schedule func(effect func())) Option {
	return func(o *options) {
		o.effects = schedule
	}
}

// State holds one controllable value.
type State[T any] struct {
	mu       sync.Mutex
	mode     Mode
	external T
	internal T
	previous T
	pending  bool
	equal    func(a, b T) bool
	effects  func(func())
	onChange *callbackref.Handler[T]

	setRef    *callbackref.Handler[T]
	updateRef *callbackref.Handler[func(T) T]
}

// dispatchEffect posts effect to the UI loop. Without a loop the pass is
// left pending for the owner's next Flush.
func dispatchEffect(effect func()) {
	platform.Dispatch(effect)
}

func (s *State[T]) logger() *zap.Logger {
	return log.Named("controllable").With(zap.Stringer("mode", s.mode))
}

// New creates a State comparing values with ==.
func New[T comparable](p Params[T], opts ...Option) *State[T] {
	return NewFunc(p, func(a, b T) bool { return a == b }, opts...)
}

// NewFunc creates a State with a custom equality function, for value types
// that are not comparable or that need a looser notion of change.
func NewFunc[T any](p Params[T], equal func(a, b T) bool, opts ...Option) *State[T] {
	o := options{effects: dispatchEffect}
	for _, opt := range opts {
		opt(&o)
	}
	if o.effects == nil {
		o.effects = dispatchEffect
	}

	s := &State[T]{
		equal:    equal,
		effects:  o.effects,
		onChange: callbackref.NewHandler(p.OnChange),
	}
	if p.Value != nil {
		s.mode = Controlled
		s.external = *p.Value
	} else {
		s.mode = Uncontrolled
		s.internal = p.Initial
		s.previous = p.Initial
	}
	s.setRef = callbackref.NewHandler(s.Set)
	s.updateRef = callbackref.NewHandler(s.Update)
	return s
}

// Mode returns the mode chosen at construction.
func (s *State[T]) Mode() Mode {
	return s.mode
}

// Value returns the owner's value in controlled mode and the stored value
// otherwise.
func (s *State[T]) Value() T {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.mode == Controlled {
		return s.external
	}
	return s.internal
}

// Set requests v as the new value.
func (s *State[T]) Set(v T) {
	s.Update(func(T) T { return v })
}

// Update requests the value produced by fn from the current value.
//
// In controlled mode fn sees the owner's value and OnChange is called
// synchronously when the result differs from it; nothing is stored. In
// uncontrolled mode the result is stored immediately and OnChange runs from
// a deferred change-detection pass, once per observed transition.
func (s *State[T]) Update(fn func(prev T) T) {
	if fn == nil {
		return
	}
	if s.mode == Controlled {
		s.mu.Lock()
		current := s.external
		s.mu.Unlock()

		next := fn(current)
		if s.equal(next, current) {
			return
		}
		s.notify(next)
		return
	}

	s.mu.Lock()
	current := s.internal
	s.mu.Unlock()

	next := fn(current)

	s.mu.Lock()
	s.internal = next
	schedule := !s.pending
	s.pending = true
	s.mu.Unlock()

	if schedule {
		s.effects(func() { s.Flush() })
	}
}

// Flush runs change detection now. It reports whether OnChange was called.
// Controlled states never have pending changes.
func (s *State[T]) Flush() bool {
	s.mu.Lock()
	s.pending = false
	if s.mode == Controlled || s.equal(s.internal, s.previous) {
		s.mu.Unlock()
		return false
	}
	s.previous = s.internal
	v := s.internal
	s.mu.Unlock()

	s.notify(v)
	return true
}

// Pending reports whether a change-detection pass is queued.
func (s *State[T]) Pending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pending
}

func (s *State[T]) notify(v T) {
	if !s.onChange.IsSet() {
		return
	}
	s.logger().Debug("value changed", zap.Any("value", v))
	defer errors.Recover("controllable.State.onChange")
	s.onChange.Call(v)
}

// Sync re-supplies the owner's params, typically on every build. It refreshes
// the controlled value and the OnChange notifier. Switching between
// controlled and uncontrolled use is rejected with
// *errors.InvalidModeTransitionError, which is also reported to the global
// error handler; the State keeps its mode and ignores the params.
func (s *State[T]) Sync(p Params[T]) error {
	want := Uncontrolled
	if p.Value != nil {
		want = Controlled
	}
	if want != s.mode {
		err := &errors.InvalidModeTransitionError{From: s.mode.String(), To: want.String()}
		s.logger().Warn("rejected mode transition", zap.Stringer("requested", want))
		errors.Report(&errors.HookError{
			Op:   "controllable.State.Sync",
			Kind: errors.KindState,
			Err:  err,
		})
		return err
	}

	if want == Controlled {
		s.mu.Lock()
		s.external = *p.Value
		s.mu.Unlock()
	}
	s.onChange.Update(p.OnChange)
	return nil
}

// SetFunc returns a function equivalent to Set whose identity never changes.
func (s *State[T]) SetFunc() func(T) {
	return s.setRef.Func()
}

// UpdateFunc returns a function equivalent to Update whose identity never
// changes.
func (s *State[T]) UpdateFunc() func(func(T) T) {
	return s.updateRef.Func()
}
