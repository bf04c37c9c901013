package hid

import (
	"fmt"

	"trackpad/internal/gesture"
	"trackpad/internal/logging"
)

// Default click pulse timing in milliseconds.
const (
	DefaultClickPressMs = 10
	DefaultClickGapMs   = 30
)

type pulsePhase uint8

const (
	pulseIdle pulsePhase = iota
	pulsePressed
	pulseGap
)

// Mouse turns gesture actions into HID reports. Clicks are queued as a
// train of press/release pulses advanced by Service, so a double click
// reaches the host as two distinct presses. Mouse is not safe for
// concurrent use; the poll loop owns it.
type Mouse struct {
	w       ReportWriter
	log     *logging.Logger
	pressMs uint32
	gapMs   uint32

	held uint8 // Buttons held by a drag

	pending int // Clicks not yet released
	phase   pulsePhase
	phaseAt uint32
}

// MouseOptions configures NewMouse. Zero timings select the defaults.
type MouseOptions struct {
	ClickPressMs uint32
	ClickGapMs   uint32
	Logger       *logging.Logger
}

// NewMouse returns a mouse writing to w.
func NewMouse(w ReportWriter, opts MouseOptions) *Mouse {
	if opts.ClickPressMs == 0 {
		opts.ClickPressMs = DefaultClickPressMs
	}
	if opts.ClickGapMs == 0 {
		opts.ClickGapMs = DefaultClickGapMs
	}
	if opts.Logger == nil {
		opts.Logger = logging.Nop()
	}
	return &Mouse{
		w:       w,
		log:     opts.Logger.WithComponent("hid"),
		pressMs: opts.ClickPressMs,
		gapMs:   opts.ClickGapMs,
	}
}

// SetTiming replaces the click pulse timing for future pulses.
func (m *Mouse) SetTiming(pressMs, gapMs uint32) {
	if pressMs > 0 {
		m.pressMs = pressMs
	}
	if gapMs > 0 {
		m.gapMs = gapMs
	}
}

// Buttons returns the button mask currently reported to the host.
func (m *Mouse) Buttons() uint8 {
	if m.phase == pulsePressed {
		return m.held | gesture.ButtonLeft
	}
	return m.held
}

// PendingClicks returns the number of click pulses not yet completed.
func (m *Mouse) PendingClicks() int { return m.pending }

// Handle applies a at now. Click kinds are queued; everything else is
// written immediately.
func (m *Mouse) Handle(a gesture.Action, now uint32) error {
	switch a.Kind {
	case gesture.ActionMove:
		return m.write(MoveReport(m.Buttons(), a.DX, a.DY))
	case gesture.ActionDragStart:
		m.held |= buttonsOr(a.Buttons, gesture.ButtonLeft)
		return m.write(Report{Buttons: m.Buttons()})
	case gesture.ActionDragMove:
		m.held |= buttonsOr(a.Buttons, gesture.ButtonLeft)
		return m.write(MoveReport(m.Buttons(), a.DX, a.DY))
	case gesture.ActionDragEnd:
		m.held &^= gesture.ButtonLeft
		return m.write(Report{Buttons: m.Buttons()})
	case gesture.ActionScrollV:
		return m.write(Report{Buttons: m.Buttons(), Wheel: a.Scroll})
	case gesture.ActionScrollH:
		return m.write(Report{Buttons: m.Buttons(), Pan: a.Scroll})
	case gesture.ActionClick, gesture.ActionDoubleClick, gesture.ActionTripleClick, gesture.ActionQuadClick:
		if m.pending == 0 {
			m.phase = pulseIdle
			m.phaseAt = now
		}
		m.pending += a.Kind.ClickCount()
		m.log.Debug("clicks queued", "kind", a.Kind.String(), "pending", m.pending)
		return nil
	default:
		return nil
	}
}

// Service advances the click pulse train to now. Call it once per poll
// cycle.
func (m *Mouse) Service(now uint32) error {
	if m.pending == 0 {
		m.phase = pulseIdle
		return nil
	}

	elapsed := now - m.phaseAt
	switch m.phase {
	case pulseIdle:
		return m.press(now)
	case pulsePressed:
		if elapsed < m.pressMs {
			return nil
		}
		m.phase = pulseGap
		m.phaseAt = now
		m.pending--
		return m.write(Report{Buttons: m.held})
	case pulseGap:
		if elapsed < m.gapMs {
			return nil
		}
		return m.press(now)
	}
	return nil
}

func (m *Mouse) press(now uint32) error {
	m.phase = pulsePressed
	m.phaseAt = now
	return m.write(Report{Buttons: m.held | gesture.ButtonLeft})
}

// ReleaseAll drops held buttons and queued clicks and reports all
// buttons up.
func (m *Mouse) ReleaseAll() error {
	m.held = 0
	m.pending = 0
	m.phase = pulseIdle
	return m.write(Report{})
}

func (m *Mouse) write(r Report) error {
	if err := m.w.WriteReport(r); err != nil {
		return fmt.Errorf("hid report %s: %w", r, err)
	}
	return nil
}

func buttonsOr(b, fallback uint8) uint8 {
	if b == 0 {
		return fallback
	}
	return b
}
