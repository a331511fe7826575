package core

import (
	"time"

	"github.com/go-drift/hooks/pkg/callbackref"
	"github.com/go-drift/hooks/pkg/controllable"
	"github.com/go-drift/hooks/pkg/timeout"
)

// Disposable is implemented by controllers that hold resources.
type Disposable interface {
	Dispose()
}

// UseController creates a controller and registers it for automatic disposal.
// The controller will be disposed when the state is disposed.
//
// Example:
//
//	func (s *myState) InitState() {
//	    s.poller = core.UseController(s, func() *Poller {
//	        return NewPoller(time.Minute)
//	    })
//	}
func UseController[C Disposable](s stateBase, create func() C) C {
	base := s.state()
	controller := create()
	base.OnDispose(func() {
		controller.Dispose()
	})
	return controller
}

// UseCallbackRef wraps fn in a reference whose proxy keeps its identity for
// the life of the state. Call Update on the result from Build to point it at
// the latest callback. The reference is emptied on dispose, so late calls
// become no-ops.
func UseCallbackRef[A any](s stateBase, fn func(A)) *callbackref.Handler[A] {
	base := s.state()
	ref := callbackref.NewHandler(fn)
	base.OnDispose(func() {
		ref.Update(nil)
	})
	return ref
}

// UseControllableState creates a controllable state whose uncontrolled
// writes rebuild the owning state, with change notifications delivered
// after that rebuild. Several writes in one task produce one rebuild and at
// most one notification. Call Sync from Build to pass the latest params.
//
// Example:
//
//	func (s *switchState) InitState() {
//	    s.on = core.UseControllableState(s, s.params())
//	}
//
//	func (s *switchState) Build() {
//	    if err := s.on.Sync(s.params()); err != nil {
//	        // the owner switched between controlled and uncontrolled use
//	    }
//	}
func UseControllableState[T comparable](s stateBase, p controllable.Params[T]) *controllable.State[T] {
	return controllable.New(p, controllable.WithEffects(afterBuild(s.state())))
}

// UseControllableStateFunc is UseControllableState with a custom equality
// function.
func UseControllableStateFunc[T any](s stateBase, p controllable.Params[T], equal func(a, b T) bool) *controllable.State[T] {
	return controllable.NewFunc(p, equal, controllable.WithEffects(afterBuild(s.state())))
}

func afterBuild(base *StateBase) func(func()) {
	return func(effect func()) {
		base.AfterBuild(effect)
	}
}

// UseTimeout creates a long-delay timer that is cancelled when the state is
// disposed. Unless timeout.WithStartOnCreate(false) is passed, the timer is
// armed immediately, which in InitState means on mount.
//
// Example:
//
//	func (s *toastState) InitState() {
//	    s.dismiss = core.UseTimeout(s, func(struct{}) {
//	        s.SetState(func() { s.visible = false })
//	    }, 4*time.Second)
//	}
func UseTimeout[A any](s stateBase, callback func(A), delay time.Duration, opts ...timeout.Option) *timeout.Timer[A] {
	return UseController(s, func() *timeout.Timer[A] {
		return timeout.New(callback, delay, opts...)
	})
}
