package gesture

import (
	"fmt"
	"strings"
	"testing"
)

// tickStepMs mirrors the 100 Hz poll loop that drives Tick in production.
const tickStepMs = 10

type recordedAction struct {
	Action
	At uint32
}

// recorder captures every non-empty action the engine produces.
type recorder struct {
	actions []recordedAction
}

func (r *recorder) add(a Action, at uint32) {
	if a.None() {
		return
	}
	r.actions = append(r.actions, recordedAction{Action: a, At: at})
}

func (r *recorder) count(kind ActionKind) int {
	n := 0
	for _, a := range r.actions {
		if a.Kind == kind {
			n++
		}
	}
	return n
}

func (r *recorder) has(kind ActionKind) bool {
	return r.count(kind) > 0
}

func (r *recorder) first(kind ActionKind) (recordedAction, bool) {
	for _, a := range r.actions {
		if a.Kind == kind {
			return a, true
		}
	}
	return recordedAction{}, false
}

func (r *recorder) kinds() []ActionKind {
	out := make([]ActionKind, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a.Kind)
	}
	return out
}

func (r *recorder) String() string {
	var b strings.Builder
	for i, a := range r.actions {
		fmt.Fprintf(&b, "[%d] t=%dms %s btn=0x%02x\n", i, a.At, a.Action, a.Buttons)
	}
	return b.String()
}

// testContext is a small DSL over an engine and a simulated clock.
type testContext struct {
	t      *testing.T
	engine *Engine
	rec    *recorder
	now    uint32
}

func newTestContext(t *testing.T, hres, vres uint16, scrollW, scrollH int32) *testContext {
	t.Helper()
	geom := Geometry{HRes: hres, VRes: vres, ScrollZoneW: scrollW, ScrollZoneH: scrollH}
	return &testContext{
		t:      t,
		engine: New(geom, DefaultParams()),
		rec:    &recorder{},
	}
}

func (c *testContext) input(kind EventKind, x, y int32) {
	a := c.engine.ProcessInput(Sample{Kind: kind, X: x, Y: y, TimestampMs: c.now})
	c.rec.add(a, c.now)
}

func (c *testContext) touchDown(x, y int32) { c.input(Pressed, x, y) }
func (c *testContext) touchMove(x, y int32) { c.input(Pressing, x, y) }
func (c *testContext) touchUp(x, y int32)   { c.input(Released, x, y) }

// advance moves the clock forward, ticking at the poll rate on the way.
func (c *testContext) advance(ms uint32) {
	end := c.now + ms
	for c.now < end {
		step := uint32(tickStepMs)
		if end-c.now < step {
			step = end - c.now
		}
		c.now += step
		c.rec.add(c.engine.Tick(c.now), c.now)
	}
}

// settle lets any pending tap window expire.
func (c *testContext) settle() {
	c.advance(c.engine.Params().MultiTapWindowMs + tickStepMs)
}

func (c *testContext) tapAt(x, y int32, durationMs uint32) {
	c.touchDown(x, y)
	c.advance(durationMs)
	c.touchUp(x, y)
}

// swipe moves from (x1,y1) to (x2,y2) in ten evenly timed steps.
func (c *testContext) swipe(x1, y1, x2, y2 int32, durationMs uint32) {
	const steps = 10
	c.touchDown(x1, y1)
	stepTime := durationMs / steps
	for i := int32(1); i <= steps; i++ {
		c.advance(stepTime)
		c.touchMove(x1+(x2-x1)*i/steps, y1+(y2-y1)*i/steps)
	}
	c.touchUp(x2, y2)
}
