package poller

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"trackpad/internal/config"
	"trackpad/internal/feedback"
	"trackpad/internal/gesture"
	"trackpad/internal/hid"
	"trackpad/internal/metrics"
	"trackpad/internal/touch"
	"trackpad/internal/trace"
)

var geom = gesture.Geometry{HRes: 320, VRes: 240, ScrollZoneW: 40, ScrollZoneH: 40}

type recordingIndicator struct {
	states []bool
	err    error
}

func (r *recordingIndicator) SetDragIndicator(v bool) error {
	if r.err != nil {
		return r.err
	}
	r.states = append(r.states, v)
	return nil
}

type harness struct {
	svc       *Service
	src       *touch.Scripted
	out       *hid.Capture
	mouse     *hid.Mouse
	indicator *recordingIndicator
	metrics   *metrics.Trackpad
}

func newHarness(t *testing.T, rotation int, recorder *trace.Recorder, readings ...touch.Reading) *harness {
	t.Helper()
	h := &harness{
		src:       touch.NewScripted(readings...),
		out:       &hid.Capture{},
		indicator: &recordingIndicator{},
		metrics:   metrics.NewTrackpad(nil),
	}
	h.mouse = hid.NewMouse(h.out, hid.MouseOptions{})
	xf, err := touch.NewTransform(320, 240, rotation)
	require.NoError(t, err)

	h.svc, err = New(Options{
		Source:    h.src,
		Transform: xf,
		Engine:    gesture.New(geom, gesture.DefaultParams()),
		Mouse:     h.mouse,
		Tracker:   feedback.NewTracker(h.indicator),
		Recorder:  recorder,
		Metrics:   h.metrics,
	})
	require.NoError(t, err)
	return h
}

// steps runs cycles at 10 ms intervals over [from, to] and returns every
// action produced.
func (h *harness) steps(from, to uint32) []gesture.Action {
	var out []gesture.Action
	for now := from; now <= to; now += 10 {
		out = append(out, h.svc.Step(now)...)
	}
	return out
}

func held(n int, x, y int32) []touch.Reading {
	out := make([]touch.Reading, n)
	for i := range out {
		out[i] = touch.Reading{Touched: true, X: x, Y: y}
	}
	return out
}

func idle(n int) []touch.Reading {
	return make([]touch.Reading, n)
}

func concat(parts ...[]touch.Reading) []touch.Reading {
	var out []touch.Reading
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}

func kindsOf(actions []gesture.Action) []gesture.ActionKind {
	out := make([]gesture.ActionKind, 0, len(actions))
	for _, a := range actions {
		out = append(out, a.Kind)
	}
	return out
}

func TestNewRequiresParts(t *testing.T) {
	_, err := New(Options{})
	assert.Error(t, err)

	_, err = New(Options{Source: touch.NewScripted()})
	assert.Error(t, err)

	_, err = New(Options{Source: touch.NewScripted(), Engine: gesture.New(geom, gesture.DefaultParams())})
	assert.Error(t, err)
}

func TestTapBecomesClickPulse(t *testing.T) {
	h := newHarness(t, 0, nil, held(10, 100, 100)...)

	actions := h.steps(0, 600)

	assert.Equal(t, []gesture.ActionKind{gesture.ActionClick}, kindsOf(actions))
	assert.Equal(t, []hid.Report{{Buttons: gesture.ButtonLeft}, {}}, h.out.Reports())
	assert.Zero(t, h.mouse.PendingClicks())
	assert.Equal(t, uint64(11), h.metrics.SamplesTotal.Value())
	assert.Equal(t, uint64(1), h.metrics.Actions(gesture.ActionClick))
}

func TestSwipeMovesPointer(t *testing.T) {
	var readings []touch.Reading
	for i := int32(0); i < 10; i++ {
		readings = append(readings, touch.Reading{Touched: true, X: 50 + i*10, Y: 100})
	}
	h := newHarness(t, 0, nil, readings...)

	actions := h.steps(0, 600)

	require.NotEmpty(t, actions)
	for _, a := range actions {
		assert.Equal(t, gesture.ActionMove, a.Kind)
	}
	for _, r := range h.out.Reports() {
		assert.Positive(t, r.X)
		assert.Zero(t, r.Buttons)
	}
}

func TestStatusReflectsRotation(t *testing.T) {
	h := newHarness(t, 180, nil, touch.Reading{Touched: true, X: 100, Y: 50})

	h.svc.Step(0)
	st := h.svc.Status()
	assert.Equal(t, Status{
		X: 219, Y: 189, Touched: true,
		Zone: gesture.ZoneMain, Phase: gesture.PhaseDown, At: 0,
	}, st)

	h.svc.Step(10)
	st = h.svc.Status()
	assert.False(t, st.Touched)
	assert.Equal(t, gesture.PhaseIdle, st.Phase)
	assert.Equal(t, uint32(10), st.At)
}

func TestReadErrorStillTicks(t *testing.T) {
	h := newHarness(t, 0, nil, held(10, 100, 100)...)
	h.src.FailAt(3, errors.New("bus error"))

	actions := h.steps(0, 600)

	assert.Equal(t, []gesture.ActionKind{gesture.ActionClick}, kindsOf(actions))
	assert.Equal(t, uint64(1), h.metrics.SourceErrorsTotal.Value())
}

func TestHIDErrorsAreCounted(t *testing.T) {
	h := newHarness(t, 0, nil, held(10, 100, 100)...)
	h.out.FailWith(hid.ErrNotReady)

	actions := h.steps(0, 600)

	assert.Len(t, actions, 1, "engine output is unaffected")
	assert.Empty(t, h.out.Reports())
	assert.Equal(t, uint64(2), h.metrics.HIDErrorsTotal.Value(), "press and release pulses")
}

func TestTapHoldDragsAndReleases(t *testing.T) {
	h := newHarness(t, 0, nil, concat(held(10, 100, 100), idle(10), held(40, 100, 100))...)

	actions := h.steps(0, 700)

	assert.Equal(t, []gesture.ActionKind{
		gesture.ActionShowDragIndicator,
		gesture.ActionDragStart,
		gesture.ActionDragEnd,
	}, kindsOf(actions))
	assert.Equal(t, []hid.Report{{Buttons: gesture.ButtonLeft}, {}}, h.out.Reports())
	assert.Equal(t, []bool{true, false}, h.indicator.states)
}

func TestResetReleasesHeldButton(t *testing.T) {
	h := newHarness(t, 0, nil, concat(held(10, 100, 100), idle(10), held(40, 100, 100))...)

	h.steps(0, 550)
	require.Equal(t, gesture.ButtonLeft, h.mouse.Buttons())
	require.True(t, h.svc.Status().ButtonHeld)

	require.NoError(t, h.svc.Reset())

	assert.Zero(t, h.mouse.Buttons())
	reports := h.out.Reports()
	assert.Equal(t, hid.Report{}, reports[len(reports)-1])
	assert.Equal(t, []bool{true, false}, h.indicator.states)
	assert.Equal(t, gesture.PhaseIdle, h.svc.engine.Session().Phase)
}

func TestDeviceLossDuringDragReleasesButton(t *testing.T) {
	h := newHarness(t, 0, nil, concat(held(10, 100, 100), idle(10), held(40, 100, 100))...)
	h.src.FailFrom(51, touch.ErrNoDevice)

	actions := h.steps(0, 1000)

	assert.Equal(t, []gesture.ActionKind{
		gesture.ActionShowDragIndicator,
		gesture.ActionDragStart,
	}, kindsOf(actions))
	assert.Zero(t, h.mouse.Buttons())
	assert.Equal(t, []hid.Report{{Buttons: gesture.ButtonLeft}, {}}, h.out.Reports())
	assert.Equal(t, []bool{true, false}, h.indicator.states)

	sess := h.svc.engine.Session()
	assert.Equal(t, gesture.PhaseIdle, sess.Phase)
	assert.False(t, sess.Touching)
	assert.False(t, sess.ButtonHeld)
	assert.False(t, h.svc.Status().ButtonHeld)

	assert.Equal(t, uint64(1), h.metrics.DeviceLossesTotal.Value())
	assert.Equal(t, uint64(50), h.metrics.SourceErrorsTotal.Value())
}

func TestDeviceReopenResumesInput(t *testing.T) {
	h := newHarness(t, 0, nil, held(10, 100, 100)...)
	h.src.FailFrom(3, touch.ErrNoDevice)

	next := touch.NewScripted(held(10, 200, 200)...)
	attempts := 0
	h.svc.reopen = func() (touch.Source, error) {
		attempts++
		if attempts == 1 {
			return nil, touch.ErrNoDevice
		}
		return next, nil
	}
	h.svc.reopenMs = 100

	actions := h.steps(0, 1200)

	assert.Equal(t, 2, attempts, "tried at 130 and 230")
	assert.True(t, h.src.Closed())
	assert.Same(t, next, h.svc.src)
	assert.Equal(t, []gesture.ActionKind{gesture.ActionClick}, kindsOf(actions),
		"the interrupted touch is dropped, the one on the new device clicks")
	assert.Equal(t, uint64(1), h.metrics.DeviceLossesTotal.Value())
	assert.Equal(t, uint64(1), h.metrics.DeviceReopensTotal.Value())
	assert.Equal(t, uint64(1), h.metrics.SourceErrorsTotal.Value())
}

func TestShutdownClosesSource(t *testing.T) {
	h := newHarness(t, 0, nil)
	require.NoError(t, h.svc.Shutdown())
	assert.True(t, h.src.Closed())
}

func TestFeedbackErrorsAreCounted(t *testing.T) {
	h := newHarness(t, 0, nil, concat(held(10, 100, 100), idle(10), held(10, 100, 100))...)
	h.indicator.err = errors.New("bus gone")

	h.steps(0, 800)

	assert.Equal(t, uint64(1), h.metrics.FeedbackErrorsTotal.Value(), "only the show fails; hide is not a change")
}

func TestUpdateConfigWaitsForRelease(t *testing.T) {
	h := newHarness(t, 0, nil, held(10, 100, 100)...)

	h.steps(0, 50)
	cfg := config.DefaultConfig()
	cfg.Screen.Width = 640
	cfg.Touch.Rotation = 0
	require.NoError(t, h.svc.UpdateConfig(cfg))

	h.steps(60, 100)
	assert.Equal(t, uint16(320), h.svc.engine.Geometry().HRes, "contact still down at 90 ms")

	h.steps(110, 110)
	assert.Equal(t, uint16(640), h.svc.engine.Geometry().HRes)
	assert.Equal(t, uint64(1), h.metrics.ConfigReloadsTotal.Value())
}

func TestUpdateConfigRejectsInvalid(t *testing.T) {
	h := newHarness(t, 0, nil)

	cfg := config.DefaultConfig()
	cfg.Screen.Width = 0
	assert.Error(t, h.svc.UpdateConfig(cfg))

	h.steps(0, 20)
	assert.Equal(t, uint16(320), h.svc.engine.Geometry().HRes)
}

func TestRecorderCapturesSession(t *testing.T) {
	store, err := trace.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	defer store.Close()

	rec, err := trace.NewRecorder(store, geom, "poller", 1000)
	require.NoError(t, err)

	h := newHarness(t, 0, rec, held(10, 100, 100)...)
	h.steps(0, 600)
	require.NoError(t, h.svc.Shutdown())

	samples, err := store.Samples(rec.Session())
	require.NoError(t, err)
	assert.Len(t, samples, 11)

	recorded, err := store.Actions(rec.Session())
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, gesture.ActionClick, recorded[0].Action.Kind)
	assert.Equal(t, uint32(450), recorded[0].At)

	replayed := trace.Replay(gesture.New(geom, gesture.DefaultParams()), samples, 10, 500)
	assert.Equal(t, -1, trace.FirstDivergence(recorded, replayed, 0))
}

func TestTraceBacklogIsBounded(t *testing.T) {
	store, err := trace.Open(filepath.Join(t.TempDir(), "trace.db"))
	require.NoError(t, err)
	rec, err := trace.NewRecorder(store, geom, "poller", 1)
	require.NoError(t, err)
	require.NoError(t, store.Close())

	h := newHarness(t, 0, rec, held(30, 100, 100)...)
	actions := h.steps(0, 400)

	assert.Empty(t, actions, "a long press is not a tap")
	assert.Equal(t, uint64(31), h.metrics.TraceErrorsTotal.Value())
	assert.Equal(t, uint64(trace.BufferedFlushes), h.metrics.TraceDroppedTotal.Value())
	assert.Equal(t, 31-trace.BufferedFlushes, rec.Pending())
}

func TestRunStopsOnCancel(t *testing.T) {
	h := newHarness(t, 0, nil, held(1000, 100, 100)...)
	h.svc.interval = time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.svc.Run(ctx) }()

	require.Eventually(t, func() bool {
		return h.svc.Status().Touched
	}, 2*time.Second, time.Millisecond)
	cancel()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return")
	}
	reports := h.out.Reports()
	require.NotEmpty(t, reports)
	assert.Equal(t, hid.Report{}, reports[len(reports)-1])
}
