package gesture

// Zone is a region of the touch surface.
type Zone uint8

const (
	ZoneMain         Zone = iota // Pointer movement area
	ZoneScrollV                  // Right edge band, vertical wheel
	ZoneScrollH                  // Bottom edge band, horizontal wheel
	ZoneScrollCorner             // Bottom-right overlap of both bands
)

func (z Zone) String() string {
	switch z {
	case ZoneMain:
		return "main"
	case ZoneScrollV:
		return "scroll_v"
	case ZoneScrollH:
		return "scroll_h"
	case ZoneScrollCorner:
		return "scroll_corner"
	default:
		return "unknown"
	}
}

// IsScroll reports whether z is one of the scroll bands.
func (z Zone) IsScroll() bool {
	return z != ZoneMain
}

// ClassifyZone maps a point to its zone. Scroll bands sit on the right
// and bottom edges; both boundaries are inclusive. A zero extent leaves
// its band outside the screen, and extents at or beyond the resolution
// simply cover the whole axis.
func ClassifyZone(x, y int32, hres, vres uint16, scrollW, scrollH int32) Zone {
	inRight := x >= int32(hres)-scrollW
	inBottom := y >= int32(vres)-scrollH

	switch {
	case inRight && inBottom:
		return ZoneScrollCorner
	case inRight:
		return ZoneScrollV
	case inBottom:
		return ZoneScrollH
	default:
		return ZoneMain
	}
}
