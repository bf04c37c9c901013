package touch

import "fmt"

// Transform maps panel coordinates onto the screen for a panel mounted
// at a multiple of 90 degrees. Width and Height are the screen size.
type Transform struct {
	Width    int32
	Height   int32
	Rotation int
}

// NewTransform validates rotation and returns the transform.
func NewTransform(width, height int32, rotation int) (Transform, error) {
	switch rotation {
	case 0, 90, 180, 270:
	default:
		return Transform{}, fmt.Errorf("touch: invalid rotation %d", rotation)
	}
	return Transform{Width: width, Height: height, Rotation: rotation}, nil
}

// Apply rotates r clockwise by the configured angle and clamps it to the
// screen. Untouched readings pass through unchanged.
func (t Transform) Apply(r Reading) Reading {
	if !r.Touched {
		return r
	}
	maxX, maxY := t.Width-1, t.Height-1
	x, y := r.X, r.Y
	switch t.Rotation {
	case 90:
		x, y = maxX-r.Y, r.X
	case 180:
		x, y = maxX-r.X, maxY-r.Y
	case 270:
		x, y = r.Y, maxY-r.X
	}
	r.X, r.Y = clamp(x, 0, maxX), clamp(y, 0, maxY)
	return r
}

func clamp(v, lo, hi int32) int32 {
	if hi < lo {
		return lo
	}
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
