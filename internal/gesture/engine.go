// Package gesture turns a stream of touch samples into pointer actions.
//
// The Engine is a pure, time-driven state machine. It performs no I/O and
// never reads a clock: every timestamp arrives with the input, so a
// recorded sample stream replays to the same actions. Each call returns
// at most one Action.
//
// An Engine is not safe for concurrent use. A single producer (normally a
// fixed-rate polling loop) calls ProcessInput for every touch sample and
// Tick once per cycle whether or not the panel is touched; Tick catches
// the transitions that depend on time alone (tap window expiry and
// tap-then-hold drags).
package gesture

import "math"

// Phase is the state of the gesture state machine.
type Phase uint8

const (
	PhaseIdle          Phase = iota // No contact, nothing pending
	PhaseDown                       // Contact, not yet moved past the tap threshold
	PhaseMoving                     // Contact moving the pointer
	PhaseScrolling                  // Contact started in a scroll band
	PhaseWaitingForTap              // Tap chain pending; contact may be armed for drag
	PhaseDragging                   // Left button held by the engine
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseDown:
		return "down"
	case PhaseMoving:
		return "moving"
	case PhaseScrolling:
		return "scrolling"
	case PhaseWaitingForTap:
		return "waiting_for_tap"
	case PhaseDragging:
		return "dragging"
	default:
		return "unknown"
	}
}

// Session is the mutable state of one logical input device.
type Session struct {
	Phase    Phase
	Touching bool // Contact currently down
	Armed    bool // Current contact joined a pending tap chain

	TouchStart Point
	LastPos    Point

	TouchDownTime   uint32
	LastSampleTime  uint32
	LastReleaseTime uint32

	// Sum of |dx|+|dy| since the last Pressed.
	TotalPathLength int32
	// Qualifying taps not yet flushed into a click.
	TapChainLength int

	Velocity Velocity

	// Fractional wheel units carried between samples, always within ±1.
	ScrollAccumV float64
	ScrollAccumH float64

	// Fractional pointer pixels carried between samples, always within ±1.
	SubpixelX float64
	SubpixelY float64

	ButtonHeld bool
}

// Engine is the gesture state machine for one touch surface.
type Engine struct {
	geom   Geometry
	params Params
	s      Session
}

// New returns an idle engine for geom tuned by params.
func New(geom Geometry, params Params) *Engine {
	return &Engine{geom: geom, params: params}
}

// Geometry returns the current surface geometry.
func (e *Engine) Geometry() Geometry { return e.geom }

// Params returns the current tuning.
func (e *Engine) Params() Params { return e.params }

// SetGeometry replaces the surface geometry. Changing it while a contact
// is down changes the zone of that contact; callers switch between
// sessions.
func (e *Engine) SetGeometry(g Geometry) { e.geom = g }

// SetParams replaces the tuning. The same caveat as SetGeometry applies.
func (e *Engine) SetParams(p Params) { e.params = p }

// Session returns a copy of the current session state.
func (e *Engine) Session() Session { return e.s }

// Reset returns the engine to idle and zeroes every accumulator and the
// tap chain. A held button is forgotten; the caller must release it on
// the HID side.
func (e *Engine) Reset() {
	e.s = Session{}
}

// ProcessInput feeds one touch sample and returns the resulting action.
func (e *Engine) ProcessInput(in Sample) Action {
	switch in.Kind {
	case Pressed:
		return e.press(in)
	case Pressing:
		return e.move(in)
	case Released:
		return e.release(in)
	default:
		return Action{}
	}
}

// Tick advances time to nowMs without a touch sample.
func (e *Engine) Tick(nowMs uint32) Action {
	if e.s.Phase != PhaseWaitingForTap {
		return Action{}
	}
	if e.s.Touching {
		if nowMs-e.s.TouchDownTime >= e.params.DragHoldMs {
			return e.startDrag()
		}
		return Action{}
	}
	if nowMs-e.s.LastReleaseTime >= e.params.MultiTapWindowMs {
		e.s.Phase = PhaseIdle
		return e.flushChain()
	}
	return Action{}
}

func (e *Engine) press(in Sample) Action {
	var out Action
	if e.s.ButtonHeld {
		// Release was never reported; do not leave the button stuck.
		e.s.ButtonHeld = false
		out = Action{Kind: ActionDragEnd}
	}

	armed := e.s.Phase == PhaseWaitingForTap &&
		e.s.TapChainLength > 0 &&
		in.TimestampMs-e.s.LastReleaseTime < e.params.MultiTapWindowMs &&
		e.geom.Zone(in.X, in.Y) == ZoneMain
	if !armed && out.None() {
		out = e.flushChain()
	}

	e.s.Touching = true
	e.s.Armed = armed
	e.s.TouchStart = Point{X: in.X, Y: in.Y}
	e.s.LastPos = e.s.TouchStart
	e.s.TouchDownTime = in.TimestampMs
	e.s.LastSampleTime = in.TimestampMs
	e.s.TotalPathLength = 0
	e.s.ScrollAccumV, e.s.ScrollAccumH = 0, 0
	e.s.SubpixelX, e.s.SubpixelY = 0, 0

	if armed {
		return Action{Kind: ActionShowDragIndicator}
	}
	e.s.Phase = PhaseDown
	return out
}

func (e *Engine) move(in Sample) Action {
	if !e.s.Touching {
		return Action{}
	}

	dx := in.X - e.s.LastPos.X
	dy := in.Y - e.s.LastPos.Y
	dt := in.TimestampMs - e.s.LastSampleTime
	e.s.TotalPathLength = addSat(e.s.TotalPathLength, abs32(dx)+abs32(dy))

	thr := e.params.JitterThreshold
	if IsJitter(dx, dy, thr) {
		e.advance(in)
		return Action{}
	}
	fdx, fdy := FilterJitter(dx, thr), FilterJitter(dy, thr)

	// The zone of a gesture is fixed by where it started.
	var out Action
	if zone := e.geom.Zone(e.s.TouchStart.X, e.s.TouchStart.Y); zone.IsScroll() {
		out = e.scroll(zone, fdx, fdy)
	} else {
		out = e.point(fdx, fdy, dt)
	}
	e.advance(in)
	return out
}

func (e *Engine) scroll(zone Zone, fdx, fdy int32) Action {
	e.s.Phase = PhaseScrolling

	div := e.params.ScrollDivisor
	if div <= 0 {
		div = 1
	}

	if zone == ZoneScrollH {
		units := takeWhole(&e.s.ScrollAccumH, float64(fdx)/div, math.MaxInt8)
		if units == 0 {
			return Action{}
		}
		return Action{Kind: ActionScrollH, Scroll: int8(units)}
	}

	// Vertical band and corner both scroll vertically.
	units := takeWhole(&e.s.ScrollAccumV, float64(fdy)/div, math.MaxInt8)
	if units == 0 {
		return Action{}
	}
	if e.params.NaturalScroll {
		units = -units
	}
	return Action{Kind: ActionScrollV, Scroll: int8(units)}
}

func (e *Engine) point(fdx, fdy int32, dtMs uint32) Action {
	e.s.Velocity.Update(fdx, fdy, dtMs, e.params.VelocityAlpha)
	speed := e.s.Velocity.Speed()

	switch e.s.Phase {
	case PhaseWaitingForTap:
		if e.s.TotalPathLength > e.params.DragMoveThreshold {
			return e.startDrag()
		}
	case PhaseDown:
		if e.s.TotalPathLength > e.params.Tap.MoveThreshold {
			e.s.Phase = PhaseMoving
		}
	}

	ox := takeWhole(&e.s.SubpixelX, e.params.Curve.Apply(float64(fdx), speed), math.MaxInt16)
	oy := takeWhole(&e.s.SubpixelY, e.params.Curve.Apply(float64(fdy), speed), math.MaxInt16)
	if ox == 0 && oy == 0 {
		return Action{}
	}

	if e.s.Phase == PhaseDragging {
		return Action{Kind: ActionDragMove, DX: int16(ox), DY: int16(oy), Buttons: ButtonLeft}
	}
	return Action{Kind: ActionMove, DX: int16(ox), DY: int16(oy)}
}

func (e *Engine) release(in Sample) Action {
	if !e.s.Touching {
		return Action{}
	}

	duration := in.TimestampMs - e.s.TouchDownTime
	net := abs32(in.X-e.s.TouchStart.X) + abs32(in.Y-e.s.TouchStart.Y)
	armed := e.s.Armed

	e.s.Touching = false
	e.s.Armed = false
	e.s.LastPos = Point{X: in.X, Y: in.Y}
	e.s.LastSampleTime = in.TimestampMs
	e.s.LastReleaseTime = in.TimestampMs
	e.s.Velocity.Reset()
	e.s.ScrollAccumV, e.s.ScrollAccumH = 0, 0
	e.s.SubpixelX, e.s.SubpixelY = 0, 0

	switch e.s.Phase {
	case PhaseDragging:
		e.s.ButtonHeld = false
		e.s.TapChainLength = 0
		e.s.Phase = PhaseIdle
		return Action{Kind: ActionDragEnd}
	case PhaseScrolling:
		e.s.TapChainLength = 0
		e.s.Phase = PhaseIdle
		return Action{}
	}

	if e.params.Tap.Classify(duration, net, e.s.TotalPathLength, e.s.TapChainLength) != TapNone {
		// Hold the click back: the next tap may extend the chain.
		e.s.TapChainLength++
		e.s.Phase = PhaseWaitingForTap
		if armed {
			return Action{Kind: ActionHideDragIndicator}
		}
		return Action{}
	}

	out := e.flushChain()
	e.s.Phase = PhaseIdle
	if out.None() && armed {
		return Action{Kind: ActionHideDragIndicator}
	}
	return out
}

func (e *Engine) startDrag() Action {
	e.s.Phase = PhaseDragging
	e.s.ButtonHeld = true
	e.s.TapChainLength = 0
	e.s.SubpixelX, e.s.SubpixelY = 0, 0
	return Action{Kind: ActionDragStart, Buttons: ButtonLeft}
}

func (e *Engine) flushChain() Action {
	out := clickAction(ChainResult(e.s.TapChainLength))
	e.s.TapChainLength = 0
	return out
}

func (e *Engine) advance(in Sample) {
	e.s.LastPos = Point{X: in.X, Y: in.Y}
	e.s.LastSampleTime = in.TimestampMs
}

// takeWhole adds delta to *acc, removes the whole part and returns it
// saturated to ±limit. The remainder left in *acc is within ±1.
func takeWhole(acc *float64, delta, limit float64) float64 {
	*acc += delta
	whole := math.Trunc(*acc)
	*acc -= whole
	return math.Max(-limit, math.Min(limit, whole))
}

func addSat(a, b int32) int32 {
	if b > 0 && a > math.MaxInt32-b {
		return math.MaxInt32
	}
	return a + b
}
