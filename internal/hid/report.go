// Package hid drives a USB HID boot-protocol style mouse from gesture
// actions.
package hid

import (
	"errors"
	"fmt"
	"math"
)

// ReportSize is the length of an encoded mouse report.
const ReportSize = 5

// ErrNotReady is returned while the USB host has not configured the gadget.
var ErrNotReady = errors.New("hid: device not ready")

// Report is one relative mouse report: buttons, X, Y, wheel and AC pan.
type Report struct {
	Buttons uint8
	X       int8
	Y       int8
	Wheel   int8
	Pan     int8
}

// MoveReport builds a report carrying buttons and a pointer delta clamped
// to the int8 range of the descriptor.
func MoveReport(buttons uint8, dx, dy int16) Report {
	return Report{Buttons: buttons, X: clamp8(dx), Y: clamp8(dy)}
}

func clamp8(v int16) int8 {
	if v > math.MaxInt8 {
		return math.MaxInt8
	}
	if v < -math.MaxInt8 {
		return -math.MaxInt8
	}
	return int8(v)
}

// MarshalBinary encodes r in descriptor order.
func (r Report) MarshalBinary() ([]byte, error) {
	return []byte{r.Buttons, byte(r.X), byte(r.Y), byte(r.Wheel), byte(r.Pan)}, nil
}

// UnmarshalBinary decodes a report written by MarshalBinary.
func (r *Report) UnmarshalBinary(b []byte) error {
	if len(b) != ReportSize {
		return fmt.Errorf("hid: report is %d bytes, want %d", len(b), ReportSize)
	}
	*r = Report{
		Buttons: b[0],
		X:       int8(b[1]),
		Y:       int8(b[2]),
		Wheel:   int8(b[3]),
		Pan:     int8(b[4]),
	}
	return nil
}

func (r Report) String() string {
	return fmt.Sprintf("btn=0x%02x x=%d y=%d wheel=%d pan=%d", r.Buttons, r.X, r.Y, r.Wheel, r.Pan)
}
