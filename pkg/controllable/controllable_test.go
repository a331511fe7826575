package controllable

import (
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/go-drift/hooks/pkg/errors"
	"github.com/go-drift/hooks/pkg/log"
	"github.com/go-drift/hooks/pkg/platform"
)

// queue collects deferred effects so tests decide when a batch ends.
type queue struct {
	effects []func()
}

func (q *queue) schedule(effect func()) { q.effects = append(q.effects, effect) }

func (q *queue) run() {
	effects := q.effects
	q.effects = nil
	for _, fn := range effects {
		fn()
	}
}

func ptr[T any](v T) *T { return &v }

func TestControlled_NotifiesOnDifferentValue(t *testing.T) {
	var got []int
	s := New(Params[int]{Value: ptr(0), OnChange: func(v int) { got = append(got, v) }})
	require.Equal(t, Controlled, s.Mode())

	s.Set(1)
	assert.Equal(t, []int{1}, got)
	assert.Equal(t, 0, s.Value(), "controlled state never stores the requested value")
}

func TestControlled_SameValueIsSilent(t *testing.T) {
	calls := 0
	s := New(Params[string]{Value: ptr("a"), OnChange: func(string) { calls++ }})

	for i := 0; i < 3; i++ {
		s.Set("a")
	}
	assert.Zero(t, calls)
}

func TestControlled_FollowsOwner(t *testing.T) {
	var got []int
	onChange := func(v int) { got = append(got, v) }
	s := New(Params[int]{Value: ptr(1), OnChange: onChange})

	s.Set(2)
	require.NoError(t, s.Sync(Params[int]{Value: ptr(2), OnChange: onChange}))
	assert.Equal(t, 2, s.Value())

	s.Set(2)
	assert.Equal(t, []int{2}, got)
}

func TestControlled_WithoutOnChangeDropsValue(t *testing.T) {
	s := New(Params[int]{Value: ptr(3)})
	assert.NotPanics(t, func() { s.Set(4) })
	assert.Equal(t, 3, s.Value())
	assert.False(t, s.Flush())
}

func TestUncontrolled_ConvergesToOneNotification(t *testing.T) {
	q := &queue{}
	var got []int
	s := New(Params[int]{Initial: 0, OnChange: func(v int) { got = append(got, v) }}, WithEffects(q.schedule))
	require.Equal(t, Uncontrolled, s.Mode())

	s.Set(1)
	s.Set(1)
	assert.Equal(t, 1, s.Value(), "uncontrolled writes are visible immediately")
	assert.Empty(t, got, "notification is deferred")
	assert.Len(t, q.effects, 1)

	q.run()
	assert.Equal(t, []int{1}, got)

	s.Set(1)
	q.run()
	assert.Equal(t, []int{1}, got)
}

func TestUncontrolled_BatchCollapsesToLatest(t *testing.T) {
	q := &queue{}
	var got []string
	s := New(Params[string]{Initial: "a", OnChange: func(v string) { got = append(got, v) }}, WithEffects(q.schedule))

	s.Set("b")
	s.Set("c")
	s.Set("d")
	assert.True(t, s.Pending())
	q.run()
	assert.False(t, s.Pending())
	assert.Equal(t, []string{"d"}, got)
}

func TestUncontrolled_RoundTripIsSilent(t *testing.T) {
	q := &queue{}
	calls := 0
	s := New(Params[int]{Initial: 5, OnChange: func(int) { calls++ }}, WithEffects(q.schedule))

	s.Set(6)
	s.Set(5)
	q.run()
	assert.Zero(t, calls, "value returned to the last observed value before detection ran")
}

func TestUncontrolled_NoNotificationOnCreate(t *testing.T) {
	q := &queue{}
	calls := 0
	New(Params[int]{Initial: 9, OnChange: func(int) { calls++ }}, WithEffects(q.schedule))
	q.run()
	assert.Zero(t, calls)
}

func TestUncontrolled_DefaultEffectsWaitForFlush(t *testing.T) {
	platform.RegisterDispatch(nil)

	var got []int
	s := New(Params[int]{OnChange: func(v int) { got = append(got, v) }})

	s.Set(1)
	s.Set(2)
	s.Set(3)
	assert.Empty(t, got, "setters never notify inline")
	assert.True(t, s.Pending())

	assert.True(t, s.Flush())
	assert.Equal(t, []int{3}, got)
	assert.False(t, s.Flush())
}

func TestUncontrolled_DefaultEffectsUseDispatcher(t *testing.T) {
	q := &queue{}
	platform.RegisterDispatch(q.schedule)
	defer platform.RegisterDispatch(nil)

	var got []int
	s := New(Params[int]{OnChange: func(v int) { got = append(got, v) }})

	s.Set(1)
	s.Set(2)
	assert.Empty(t, got)
	require.Len(t, q.effects, 1)

	q.run()
	assert.Equal(t, []int{2}, got)
	assert.False(t, s.Pending())
}

func TestUncontrolled_UpdaterMayReadState(t *testing.T) {
	q := &queue{}
	s := New(Params[int]{Initial: 5}, WithEffects(q.schedule))

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.Update(func(int) int { return s.Value() + 1 })
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Update did not return")
	}
	assert.Equal(t, 6, s.Value())
	assert.True(t, s.Pending())
}

func TestLoggerFollowsReplacement(t *testing.T) {
	s := New(Params[int]{Initial: 1})

	core, logs := observer.New(zap.DebugLevel)
	prev := log.SetLogger(zap.New(core))
	defer log.SetLogger(prev)

	oldHandler := errors.DefaultHandler
	errors.SetHandler(&captureHandler{errs: new([]*errors.HookError)})
	defer errors.SetHandler(oldHandler)

	require.Error(t, s.Sync(Params[int]{Value: ptr(2)}))
	assert.Equal(t, 1, logs.FilterMessage("rejected mode transition").Len())
}

func TestUpdater_BothModes(t *testing.T) {
	inc := func(prev int) int { return prev + 1 }

	var controlledGot []int
	c := New(Params[int]{Value: ptr(5), OnChange: func(v int) { controlledGot = append(controlledGot, v) }})
	c.Update(inc)
	assert.Equal(t, []int{6}, controlledGot)
	require.NoError(t, c.Sync(Params[int]{Value: ptr(controlledGot[0])}))
	assert.Equal(t, 6, c.Value())

	q := &queue{}
	u := New(Params[int]{Initial: 5}, WithEffects(q.schedule))
	u.Update(inc)
	assert.Equal(t, 6, u.Value())
	u.Update(inc)
	assert.Equal(t, 7, u.Value(), "updaters chain against the stored value")
}

func TestUpdater_ControlledResolvesAgainstOwnerValue(t *testing.T) {
	var got []int
	s := New(Params[int]{Value: ptr(10), OnChange: func(v int) { got = append(got, v) }})

	s.Update(func(prev int) int { return prev * 2 })
	s.Update(func(prev int) int { return prev * 2 })
	assert.Equal(t, []int{20, 20}, got, "without an owner update both requests start from 10")
}

func TestSync_RejectsModeSwitch(t *testing.T) {
	oldHandler := errors.DefaultHandler
	var reported []*errors.HookError
	errors.SetHandler(&captureHandler{errs: &reported})
	defer errors.SetHandler(oldHandler)

	u := New(Params[int]{Initial: 1})
	err := u.Sync(Params[int]{Value: ptr(2)})

	var modeErr *errors.InvalidModeTransitionError
	require.ErrorAs(t, err, &modeErr)
	assert.Equal(t, "uncontrolled", modeErr.From)
	assert.Equal(t, "controlled", modeErr.To)
	assert.Equal(t, Uncontrolled, u.Mode())
	assert.Equal(t, 1, u.Value())

	c := New(Params[int]{Value: ptr(1)})
	err = c.Sync(Params[int]{Initial: 7})
	require.ErrorAs(t, err, &modeErr)
	assert.Equal(t, Controlled, c.Mode())

	require.Len(t, reported, 2)
	assert.Equal(t, errors.KindState, reported[0].Kind)
}

func TestSync_ReplacesOnChange(t *testing.T) {
	q := &queue{}
	var got []string
	s := New(Params[int]{OnChange: func(int) { got = append(got, "first") }}, WithEffects(q.schedule))

	s.Set(1)
	require.NoError(t, s.Sync(Params[int]{OnChange: func(int) { got = append(got, "second") }}))
	q.run()
	assert.Equal(t, []string{"second"}, got, "the notifier current at detection time is used")
}

func TestStableSetters(t *testing.T) {
	q := &queue{}
	s := New(Params[int]{}, WithEffects(q.schedule))
	set := s.SetFunc()
	update := s.UpdateFunc()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.Sync(Params[int]{OnChange: func(int) {}}))
		assert.Equal(t, reflect.ValueOf(set).Pointer(), reflect.ValueOf(s.SetFunc()).Pointer())
		assert.Equal(t, reflect.ValueOf(update).Pointer(), reflect.ValueOf(s.UpdateFunc()).Pointer())
	}

	set(3)
	update(func(v int) int { return v * 3 })
	assert.Equal(t, 9, s.Value())
}

func TestNewFunc_CustomEquality(t *testing.T) {
	type tags []string
	sameLen := func(a, b tags) bool { return len(a) == len(b) }

	q := &queue{}
	var got []tags
	s := NewFunc(Params[tags]{Initial: tags{"a"}, OnChange: func(v tags) { got = append(got, v) }}, sameLen, WithEffects(q.schedule))

	s.Set(tags{"b"})
	q.run()
	assert.Empty(t, got)

	s.Set(tags{"b", "c"})
	q.run()
	assert.Equal(t, []tags{{"b", "c"}}, got)
}

func TestOnChangePanicRecovered(t *testing.T) {
	oldHandler := errors.DefaultHandler
	var reported []*errors.HookError
	h := &captureHandler{errs: &reported}
	errors.SetHandler(h)
	defer errors.SetHandler(oldHandler)

	s := New(Params[int]{Value: ptr(0), OnChange: func(int) { panic("owner failed") }})
	assert.NotPanics(t, func() { s.Set(1) })
	assert.Equal(t, 1, h.panics)
}

func TestModeString(t *testing.T) {
	assert.Equal(t, "controlled", Controlled.String())
	assert.Equal(t, "uncontrolled", Uncontrolled.String())
}

type captureHandler struct {
	errs   *[]*errors.HookError
	panics int
}

func (h *captureHandler) HandleError(err *errors.HookError) { *h.errs = append(*h.errs, err) }

func (h *captureHandler) HandlePanic(*errors.PanicError) { h.panics++ }
