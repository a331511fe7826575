package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/go-drift/hooks/pkg/controllable"
	"github.com/go-drift/hooks/pkg/loop"
	hookstest "github.com/go-drift/hooks/pkg/testing"
	"github.com/go-drift/hooks/pkg/timeout"
)

// MockDisposable for testing UseController
type mockDisposable struct {
	disposed bool
}

func (m *mockDisposable) Dispose() {
	m.disposed = true
}

func TestUseController(t *testing.T) {
	base := &StateBase{}

	controller := UseController(base, func() *mockDisposable {
		return &mockDisposable{}
	})

	if controller.disposed {
		t.Error("Controller should not be disposed initially")
	}

	base.Dispose()

	if !controller.disposed {
		t.Error("Controller should be disposed when StateBase is disposed")
	}
}

func TestUseCallbackRef(t *testing.T) {
	base := &StateBase{}
	var got []string
	ref := UseCallbackRef(base, func(s string) { got = append(got, "v1:"+s) })
	proxy := ref.Func()

	proxy("a")
	ref.Update(func(s string) { got = append(got, "v2:"+s) })
	proxy("b")

	base.Dispose()
	proxy("c")

	assert.Equal(t, []string{"v1:a", "v2:b"}, got)
}

// selectState is a component with a value that is either owned by its
// parent or kept locally.
type selectState struct {
	StateBase
	params   func() controllable.Params[string]
	selected *controllable.State[string]
	syncErr  error
	seen     []string
}

func (s *selectState) InitState() {
	s.selected = UseControllableState(s, s.params())
}

func (s *selectState) Build() {
	s.syncErr = s.selected.Sync(s.params())
	s.seen = append(s.seen, s.selected.Value())
}

func TestUseControllableState_UncontrolledBatches(t *testing.T) {
	owner := NewBuildOwner()
	var changes []string
	st := &selectState{params: func() controllable.Params[string] {
		return controllable.Params[string]{Initial: "a", OnChange: func(v string) { changes = append(changes, v) }}
	}}
	Mount(owner, st)
	require.Equal(t, 1, st.BuildCount())

	st.selected.Set("b")
	st.selected.Set("c")
	assert.Empty(t, changes, "notification waits for the rebuild")
	assert.True(t, owner.NeedsWork())

	owner.FlushBuild()
	assert.Equal(t, []string{"c"}, changes)
	assert.Equal(t, 2, st.BuildCount(), "two writes cause one rebuild")
	assert.Equal(t, []string{"a", "c"}, st.seen)
	assert.False(t, owner.NeedsWork())
}

func TestUseControllableState_Controlled(t *testing.T) {
	owner := NewBuildOwner()
	value := "x"
	var changes []string
	st := &selectState{params: func() controllable.Params[string] {
		v := value
		return controllable.Params[string]{Value: &v, OnChange: func(next string) { changes = append(changes, next) }}
	}}
	Mount(owner, st)

	st.selected.Set("y")
	assert.Equal(t, []string{"y"}, changes, "controlled requests are forwarded immediately")
	assert.Equal(t, "x", st.selected.Value())

	// Owner accepts the change and rebuilds the child.
	value = "y"
	st.SetState(nil)
	owner.FlushBuild()
	assert.Equal(t, "y", st.selected.Value())
	assert.NoError(t, st.syncErr)
}

func TestUseControllableState_ModeSwitchRejected(t *testing.T) {
	owner := NewBuildOwner()
	controlled := false
	st := &selectState{params: func() controllable.Params[string] {
		if controlled {
			v := "owner"
			return controllable.Params[string]{Value: &v}
		}
		return controllable.Params[string]{Initial: "local"}
	}}
	Mount(owner, st)

	controlled = true
	st.SetState(nil)
	owner.FlushBuild()

	assert.Error(t, st.syncErr)
	assert.Equal(t, controllable.Uncontrolled, st.selected.Mode())
	assert.Equal(t, "local", st.selected.Value())
}

func TestUseControllableState_NoNotifyAfterDispose(t *testing.T) {
	owner := NewBuildOwner()
	calls := 0
	st := &selectState{params: func() controllable.Params[string] {
		return controllable.Params[string]{OnChange: func(string) { calls++ }}
	}}
	Mount(owner, st)

	st.selected.Set("z")
	Unmount(st)
	owner.FlushBuild()
	assert.Zero(t, calls)
}

type sessionState struct {
	StateBase
	sched   *hookstest.FakeScheduler
	expired int
	timer   *timeout.Timer[struct{}]
}

func (s *sessionState) InitState() {
	s.timer = UseTimeout(s, func(struct{}) {
		s.SetState(func() { s.expired++ })
	}, 40*24*time.Hour, timeout.WithScheduler(s.sched))
}

func TestUseTimeout_FiresAndRebuilds(t *testing.T) {
	owner := NewBuildOwner()
	st := &sessionState{sched: hookstest.NewFakeScheduler(0)}
	Mount(owner, st)
	require.True(t, st.timer.Armed(), "armed on mount")

	st.sched.Advance(40 * 24 * time.Hour)
	assert.Equal(t, 1, st.expired)
	assert.Len(t, st.sched.Scheduled(), 2)

	owner.FlushBuild()
	assert.Equal(t, 2, st.BuildCount())
}

func TestUseTimeout_CancelledOnUnmount(t *testing.T) {
	owner := NewBuildOwner()
	st := &sessionState{sched: hookstest.NewFakeScheduler(0)}
	Mount(owner, st)

	st.sched.Advance(time.Hour)
	Unmount(st)
	assert.Equal(t, 0, st.sched.Pending())
	assert.False(t, st.IsMounted())

	st.sched.Advance(60 * 24 * time.Hour)
	assert.Zero(t, st.expired)
}

func TestBuildOwner_OnNeedsFrameWithLoop(t *testing.T) {
	l := loop.New()
	owner := NewBuildOwner()
	owner.OnNeedsFrame = func() { _ = l.Submit(owner.FlushBuild) }

	var changes []string
	st := &selectState{params: func() controllable.Params[string] {
		return controllable.Params[string]{OnChange: func(v string) { changes = append(changes, v) }}
	}}
	Mount(owner, st)

	require.NoError(t, l.Submit(func() {
		st.selected.Set("one")
		st.selected.Set("two")
	}))
	l.Drain()

	assert.Equal(t, []string{"two"}, changes)
	assert.Equal(t, 2, st.BuildCount())
}

func TestStateBase_AfterBuildUnmounted(t *testing.T) {
	base := &StateBase{}
	ran := false
	base.AfterBuild(func() { ran = true })
	assert.True(t, ran, "without an owner effects run immediately")

	base.Dispose()
	base.AfterBuild(func() { t.Error("effect ran after dispose") })
}

func TestStateBase_OnDispose(t *testing.T) {
	base := &StateBase{}
	var order []int
	base.OnDispose(func() { order = append(order, 1) })
	unregister := base.OnDispose(func() { order = append(order, 2) })
	base.OnDispose(func() { order = append(order, 3) })
	unregister()

	base.Dispose()
	base.Dispose()
	assert.Equal(t, []int{3, 1}, order)
	assert.True(t, base.IsDisposed())

	late := false
	base.OnDispose(func() { late = true })
	assert.True(t, late, "disposers registered after dispose run immediately")
}

func TestStateBase_SetStateAfterDispose(t *testing.T) {
	owner := NewBuildOwner()
	st := &selectState{params: func() controllable.Params[string] { return controllable.Params[string]{} }}
	Mount(owner, st)
	assert.NotEmpty(t, st.ID())
	assert.Same(t, owner, st.Owner())

	Unmount(st)
	called := false
	st.SetState(func() { called = true })
	assert.False(t, called)
	assert.False(t, owner.NeedsWork())
}
