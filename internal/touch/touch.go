// Package touch reads a single-contact touch panel and turns polls into
// gesture samples.
package touch

import (
	"errors"
	"sync"

	"trackpad/internal/gesture"
)

var (
	// ErrNoDevice is returned when no touch device can be found or opened.
	ErrNoDevice = errors.New("touch: no device")
	// ErrUnsupported is returned on platforms without an input backend.
	ErrUnsupported = errors.New("touch: unsupported platform")
)

// Reading is one poll of the panel in screen pixels.
type Reading struct {
	Touched bool
	X       int32
	Y       int32
}

// Source is a polled touch panel. Read never blocks; it returns the most
// recent state of the contact.
type Source interface {
	Read() (Reading, error)
	Close() error
}

// Options configures Open.
type Options struct {
	// Device is an evdev node. Empty autodetects.
	Device string
	// Width and Height are the screen size raw panel coordinates are
	// scaled to.
	Width  int
	Height int
}

// EdgeDetector converts level readings into edge-triggered samples.
type EdgeDetector struct {
	touched bool
	last    gesture.Point
}

// Next returns the sample for r at now. A rising edge is Pressed, a held
// contact is Pressing and a falling edge is Released at the last touched
// position, since panels report no coordinates on lift. The boolean is
// false when the panel stays untouched.
func (d *EdgeDetector) Next(r Reading, now uint32) (gesture.Sample, bool) {
	switch {
	case r.Touched && !d.touched:
		d.touched = true
		d.last = gesture.Point{X: r.X, Y: r.Y}
		return gesture.Sample{Kind: gesture.Pressed, X: r.X, Y: r.Y, TimestampMs: now}, true
	case r.Touched:
		d.last = gesture.Point{X: r.X, Y: r.Y}
		return gesture.Sample{Kind: gesture.Pressing, X: r.X, Y: r.Y, TimestampMs: now}, true
	case d.touched:
		d.touched = false
		return gesture.Sample{Kind: gesture.Released, X: d.last.X, Y: d.last.Y, TimestampMs: now}, true
	default:
		return gesture.Sample{}, false
	}
}

// Touched reports whether the last reading was a contact.
func (d *EdgeDetector) Touched() bool { return d.touched }

// Reset forgets the current contact without emitting a release.
func (d *EdgeDetector) Reset() { *d = EdgeDetector{} }

// Scripted is a Source that plays back a fixed list of readings, one per
// Read, and then reports no contact. It is used for dry runs and tests.
type Scripted struct {
	mu       sync.Mutex
	readings []Reading
	pos      int
	err      map[int]error
	failFrom int
	failErr  error
	closed   bool
}

// NewScripted returns a source that plays readings in order.
func NewScripted(readings ...Reading) *Scripted {
	return &Scripted{readings: readings, err: map[int]error{}}
}

// FailAt makes the i-th Read (0-based) return err instead of a reading.
func (s *Scripted) FailAt(i int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err[i] = err
}

// FailFrom makes every Read from the i-th on return err, the way a
// removed device keeps failing.
func (s *Scripted) FailFrom(i int, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failFrom = i
	s.failErr = err
}

// Read implements Source.
func (s *Scripted) Read() (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.pos
	s.pos++
	if err, ok := s.err[i]; ok {
		return Reading{}, err
	}
	if s.failErr != nil && i >= s.failFrom {
		return Reading{}, s.failErr
	}
	if i < len(s.readings) {
		return s.readings[i], nil
	}
	return Reading{}, nil
}

// Done reports whether every scripted reading has been consumed.
func (s *Scripted) Done() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.pos >= len(s.readings)
}

// Closed reports whether Close was called.
func (s *Scripted) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// Close implements Source.
func (s *Scripted) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
