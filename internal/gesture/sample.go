package gesture

// EventKind is the kind of a touch sample.
type EventKind uint8

const (
	Pressed  EventKind = iota // Contact began
	Pressing                  // Contact held, possibly moved
	Released                  // Contact ended
)

func (k EventKind) String() string {
	switch k {
	case Pressed:
		return "pressed"
	case Pressing:
		return "pressing"
	case Released:
		return "released"
	default:
		return "unknown"
	}
}

// Sample is one touch observation supplied by the caller.
//
// TimestampMs comes from a free-running millisecond clock owned by the
// caller. Samples must be delivered in non-decreasing timestamp order;
// the engine never reads a clock of its own, which keeps it replayable.
// Supplying timestamps that go backwards is a caller error with
// unspecified results.
type Sample struct {
	Kind        EventKind
	X           int32
	Y           int32
	TimestampMs uint32
}

// Point is a position in screen pixels.
type Point struct {
	X int32
	Y int32
}

// Geometry describes the touch surface of one session.
type Geometry struct {
	HRes        uint16 // Horizontal resolution in pixels
	VRes        uint16 // Vertical resolution in pixels
	ScrollZoneW int32  // Width of the right-edge vertical scroll band (0 disables)
	ScrollZoneH int32  // Height of the bottom-edge horizontal scroll band (0 disables)
}

// Zone reports which zone of g contains (x, y).
func (g Geometry) Zone(x, y int32) Zone {
	return ClassifyZone(x, y, g.HRes, g.VRes, g.ScrollZoneW, g.ScrollZoneH)
}
