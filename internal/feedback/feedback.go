// Package feedback shows the user when a tap has armed a drag.
package feedback

import (
	"fmt"

	"trackpad/internal/gesture"
	"trackpad/internal/logging"
)

// Indicator displays or hides the drag indicator.
type Indicator interface {
	SetDragIndicator(visible bool) error
}

// Tracker derives indicator visibility from the action stream and forwards
// changes only.
type Tracker struct {
	ind     Indicator
	visible bool
}

// NewTracker returns a tracker driving ind. A nil ind behaves like Nop.
func NewTracker(ind Indicator) *Tracker {
	if ind == nil {
		ind = Nop{}
	}
	return &Tracker{ind: ind}
}

// Visible reports the last state sent to the indicator.
func (t *Tracker) Visible() bool { return t.visible }

// Observe updates the indicator for a. The indicator is shown when a tap
// arms a drag and while the drag lasts; it is hidden when the armed touch
// ends without dragging, when the drag ends and when the chain is flushed
// into a click.
func (t *Tracker) Observe(a gesture.Action) error {
	switch {
	case a.Kind == gesture.ActionShowDragIndicator, a.Kind == gesture.ActionDragStart:
		return t.set(true)
	case a.Kind == gesture.ActionHideDragIndicator, a.Kind == gesture.ActionDragEnd, a.Kind.IsClick():
		return t.set(false)
	}
	return nil
}

// Hide forces the indicator off, for resets and shutdown.
func (t *Tracker) Hide() error {
	return t.set(false)
}

func (t *Tracker) set(visible bool) error {
	if visible == t.visible {
		return nil
	}
	if err := t.ind.SetDragIndicator(visible); err != nil {
		return fmt.Errorf("drag indicator: %w", err)
	}
	t.visible = visible
	return nil
}

// Nop is an Indicator that does nothing.
type Nop struct{}

// SetDragIndicator implements Indicator.
func (Nop) SetDragIndicator(bool) error { return nil }

// Log is an Indicator that logs visibility changes, for headless setups.
type Log struct {
	log *logging.Logger
}

// NewLog returns a logging indicator.
func NewLog(log *logging.Logger) *Log {
	if log == nil {
		log = logging.Nop()
	}
	return &Log{log: log.WithComponent("feedback")}
}

// SetDragIndicator implements Indicator.
func (l *Log) SetDragIndicator(visible bool) error {
	l.log.Info("drag indicator", "visible", visible)
	return nil
}

// Backend names accepted by New.
const (
	BackendDBus = "dbus"
	BackendLog  = "log"
	BackendNone = "none"
)

// New builds the indicator for backend. The returned close function
// releases backend resources and is never nil.
func New(backend, busName string, log *logging.Logger) (Indicator, func() error, error) {
	noop := func() error { return nil }
	switch backend {
	case BackendDBus:
		d, err := NewDBus(busName, log)
		if err != nil {
			return nil, noop, err
		}
		return d, d.Close, nil
	case BackendLog:
		return NewLog(log), noop, nil
	case BackendNone, "":
		return Nop{}, noop, nil
	default:
		return nil, noop, fmt.Errorf("feedback: unknown backend %q", backend)
	}
}
