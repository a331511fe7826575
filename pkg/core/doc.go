// Package core provides the component lifecycle that the hooks attach to.
//
// A component instance is a State: it is mounted into a BuildOwner, built
// whenever SetState marks it dirty, and disposed on unmount. Hooks called
// from InitState tie resources to that lifecycle so they are released on
// dispose and so their deferred work runs after the owner's next build.
//
// # Stateful Components
//
// Embed StateBase in your state struct:
//
//	type toastState struct {
//	    core.StateBase
//	    visible bool
//	    dismiss *timeout.Timer[struct{}]
//	}
//
//	func (s *toastState) InitState() {
//	    s.visible = true
//	    s.dismiss = core.UseTimeout(s, func(struct{}) {
//	        s.SetState(func() { s.visible = false })
//	    }, 4*time.Second)
//	}
//
// # Update Cycle
//
// SetState and AfterBuild schedule the state on its BuildOwner. FlushBuild
// rebuilds every dirty state once and then runs the effects they queued, so
// several updates made in one UI loop task share a single rebuild. Hook the
// owner up to the loop with OnNeedsFrame:
//
//	owner.OnNeedsFrame = func() { l.Submit(owner.FlushBuild) }
//
// # Hooks
//
// UseController, UseCallbackRef, UseControllableState, and UseTimeout manage
// resources with automatic cleanup on disposal.
package core
