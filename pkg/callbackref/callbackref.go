// Package callbackref provides callback references with a stable identity.
//
// A component usually receives its callbacks anew on every build. Handing
// those function values straight to long-lived consumers (timers, effect
// queues, child components) either captures a stale closure or forces the
// consumer to re-subscribe each time. A Ref keeps one mutable slot holding
// the latest function and exposes a proxy that never changes:
//
//	ref := callbackref.NewHandler(w.OnChange)
//	timer.OnFire(ref.Func()) // registered once
//
//	// later, in Build:
//	ref.Update(w.OnChange)   // the timer now reaches the new callback
package callbackref

import "sync"

// Ref holds the most recently supplied func(A) R behind a stable proxy.
//
// The zero value is not usable; create refs with New.
type Ref[A, R any] struct {
	mu    sync.RWMutex
	fn    func(A) R
	proxy func(A) R
}

// New creates a Ref holding fn. fn may be nil.
func New[A, R any](fn func(A) R) *Ref[A, R] {
	r := &Ref[A, R]{fn: fn}
	r.proxy = r.Call
	return r
}

// Update replaces the held function. Calls made after Update returns reach fn.
func (r *Ref[A, R]) Update(fn func(A) R) {
	r.mu.Lock()
	r.fn = fn
	r.mu.Unlock()
}

// Current returns the held function, which may be nil.
func (r *Ref[A, R]) Current() func(A) R {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fn
}

// Call invokes the latest function. With no function held it returns the zero R.
func (r *Ref[A, R]) Call(arg A) R {
	fn := r.Current()
	if fn == nil {
		var zero R
		return zero
	}
	return fn(arg)
}

// Func returns the proxy. Every call returns the same function value.
func (r *Ref[A, R]) Func() func(A) R {
	return r.proxy
}

// Handler is a Ref for callbacks without a result, such as change notifiers.
type Handler[A any] struct {
	ref   *Ref[A, struct{}]
	proxy func(A)
}

// NewHandler creates a Handler holding fn. fn may be nil.
func NewHandler[A any](fn func(A)) *Handler[A] {
	h := &Handler[A]{ref: New[A, struct{}](nil)}
	h.Update(fn)
	h.proxy = h.Call
	return h
}

// Update replaces the held callback.
func (h *Handler[A]) Update(fn func(A)) {
	if fn == nil {
		h.ref.Update(nil)
		return
	}
	h.ref.Update(func(arg A) struct{} {
		fn(arg)
		return struct{}{}
	})
}

// IsSet reports whether a callback is currently held.
func (h *Handler[A]) IsSet() bool {
	return h.ref.Current() != nil
}

// Call invokes the latest callback, or does nothing if none is held.
func (h *Handler[A]) Call(arg A) {
	h.ref.Call(arg)
}

// Func returns the stable proxy.
func (h *Handler[A]) Func() func(A) {
	return h.proxy
}
