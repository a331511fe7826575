package core

import "sync"

// BuildOwner tracks states that need rebuilding and runs their post-build
// effects.
type BuildOwner struct {
	dirty    []*StateBase
	dirtySet map[*StateBase]bool
	mu       sync.Mutex

	// OnNeedsFrame is called when a state is scheduled for rebuild,
	// signalling the host that FlushBuild should run soon. Wire it to the
	// UI loop so updates made in one task are flushed together:
	//
	//	owner.OnNeedsFrame = func() { l.Submit(owner.FlushBuild) }
	OnNeedsFrame func()
}

// NewBuildOwner creates a new BuildOwner.
func NewBuildOwner() *BuildOwner {
	return &BuildOwner{}
}

// ScheduleBuild marks a state as needing rebuild.
func (b *BuildOwner) ScheduleBuild(state *StateBase) {
	added := func() bool {
		b.mu.Lock()
		defer b.mu.Unlock()
		if b.dirtySet[state] {
			return false
		}
		if b.dirtySet == nil {
			b.dirtySet = make(map[*StateBase]bool)
		}
		b.dirtySet[state] = true
		b.dirty = append(b.dirty, state)
		return true
	}()

	if added && b.OnNeedsFrame != nil {
		b.OnNeedsFrame()
	}
}

// NeedsWork returns true if there are dirty states.
func (b *BuildOwner) NeedsWork() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.dirty) > 0
}

// FlushBuild rebuilds all dirty states in scheduling order, then runs the
// effects they queued. Effects that dirty states again are handled in a
// further pass before FlushBuild returns.
func (b *BuildOwner) FlushBuild() {
	for {
		b.mu.Lock()
		if len(b.dirty) == 0 {
			b.mu.Unlock()
			return
		}
		dirty := b.dirty
		b.dirty = nil
		clear(b.dirtySet)
		b.mu.Unlock()

		built := dirty[:0]
		for _, state := range dirty {
			if !state.IsMounted() {
				continue
			}
			state.rebuild()
			built = append(built, state)
		}
		for _, state := range built {
			for _, effect := range state.takeEffects() {
				runEffect(effect)
			}
		}
	}
}
