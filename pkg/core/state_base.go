package core

import (
	"sync"

	"github.com/google/uuid"

	"github.com/go-drift/hooks/pkg/errors"
)

// State is a component instance with a lifecycle. Embed StateBase to
// satisfy it and override the methods you need.
type State interface {
	InitState()
	Build()
	Dispose()
	state() *StateBase
}

// stateBase is satisfied by any struct that embeds StateBase.
// Hooks accept stateBase so callers can pass s directly.
type stateBase interface {
	state() *StateBase
}

func (s *StateBase) state() *StateBase { return s }

// StateBase provides common functionality for component states.
// Embed this struct in your state to eliminate boilerplate.
//
// Example:
//
//	type toggleState struct {
//	    core.StateBase
//	    open *controllable.State[bool]
//	}
//
//	func (s *toggleState) InitState() {
//	    s.open = core.UseControllableState(s, controllable.Params[bool]{Initial: false})
//	}
type StateBase struct {
	id        string
	owner     *BuildOwner
	self      State
	disposers []func()
	effects   []func()
	builds    int
	mounted   bool
	disposed  bool
	mu        sync.Mutex
}

// ID returns the instance identifier assigned at mount. It is empty before
// Mount.
func (s *StateBase) ID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.id
}

// Owner returns the BuildOwner the state is mounted in, or nil.
func (s *StateBase) Owner() *BuildOwner {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.owner
}

// SetState executes the given function and schedules a rebuild.
// Safe to call even after disposal (becomes a no-op).
func (s *StateBase) SetState(fn func()) {
	if s.IsDisposed() {
		return
	}
	if fn != nil {
		fn()
	}
	if owner := s.Owner(); owner != nil {
		owner.ScheduleBuild(s)
	}
}

// AfterBuild queues effect to run once after the state's next build. An
// unmounted state runs the effect immediately. Effects queued after
// disposal are dropped.
func (s *StateBase) AfterBuild(effect func()) {
	if effect == nil {
		return
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	owner := s.owner
	if owner == nil {
		s.mu.Unlock()
		runEffect(effect)
		return
	}
	s.effects = append(s.effects, effect)
	s.mu.Unlock()
	owner.ScheduleBuild(s)
}

// OnDispose registers a cleanup function to be called when the state is disposed.
// Returns an unregister function that can be called to remove the disposer.
// The cleanup function will only be called once.
func (s *StateBase) OnDispose(cleanup func()) func() {
	if cleanup == nil {
		return func() {}
	}

	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		// Already disposed, run cleanup immediately
		cleanup()
		return func() {}
	}
	index := len(s.disposers)
	s.disposers = append(s.disposers, cleanup)
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		if index < len(s.disposers) {
			s.disposers[index] = nil
		}
	}
}

// RunDisposers executes all registered disposers in reverse order.
// This is called automatically by Dispose().
func (s *StateBase) RunDisposers() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	disposers := s.disposers
	s.disposers = nil
	s.effects = nil
	s.mu.Unlock()

	// Run disposers in reverse order (LIFO)
	for i := len(disposers) - 1; i >= 0; i-- {
		if disposers[i] != nil {
			disposers[i]()
		}
	}
}

// Dispose cleans up resources. Override this method if you need custom cleanup,
// but always call s.RunDisposers() or s.StateBase.Dispose() in your override.
func (s *StateBase) Dispose() {
	s.RunDisposers()
}

// InitState is a no-op default implementation.
// Override this method to initialize your state and call hooks.
func (s *StateBase) InitState() {}

// Build is a no-op default implementation.
// Override this method to re-read owner inputs on every update.
func (s *StateBase) Build() {}

// IsDisposed returns true if this state has been disposed.
func (s *StateBase) IsDisposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}

// IsMounted reports whether the state is mounted and not yet disposed.
func (s *StateBase) IsMounted() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mounted && !s.disposed
}

// BuildCount returns how many times the state has been built.
func (s *StateBase) BuildCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.builds
}

// rebuild runs Build on the embedding state.
func (s *StateBase) rebuild() {
	s.mu.Lock()
	self := s.self
	s.builds++
	s.mu.Unlock()
	if self != nil {
		self.Build()
	}
}

// takeEffects removes and returns the queued effects.
func (s *StateBase) takeEffects() []func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	effects := s.effects
	s.effects = nil
	return effects
}

func runEffect(effect func()) {
	defer errors.Recover("core.StateBase.effect")
	effect()
}

// Mount attaches state to owner, calls InitState, performs the first build,
// and runs the effects queued by that build.
func Mount(owner *BuildOwner, state State) {
	base := state.state()
	base.mu.Lock()
	base.id = uuid.NewString()
	base.owner = owner
	base.self = state
	base.mounted = true
	base.mu.Unlock()

	state.InitState()
	base.rebuild()
	for _, effect := range base.takeEffects() {
		runEffect(effect)
	}
}

// Unmount disposes state. Timers and subscriptions registered through hooks
// are released by their disposers.
func Unmount(state State) {
	state.Dispose()
	base := state.state()
	base.mu.Lock()
	base.mounted = false
	base.mu.Unlock()
}
