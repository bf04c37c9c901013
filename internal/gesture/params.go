package gesture

// Params holds the engine tuning. The zero value is not useful; start
// from DefaultParams.
type Params struct {
	JitterThreshold int32   // Dead zone per axis, pixels
	VelocityAlpha   float64 // EWMA factor for velocity smoothing, (0, 1]
	Curve           Curve
	Tap             TapRules

	MultiTapWindowMs  uint32 // Release-to-press gap that keeps a tap chain alive
	DragMoveThreshold int32  // Path length that turns an armed touch into a drag
	DragHoldMs        uint32 // Hold time that turns an armed touch into a drag

	ScrollDivisor float64 // Filtered pixels per wheel unit
	NaturalScroll bool    // Invert vertical wheel direction
}

// DefaultParams returns the tuning used by the reference firmware.
func DefaultParams() Params {
	return Params{
		JitterThreshold:   3,
		VelocityAlpha:     0.3,
		Curve:             DefaultCurve(),
		Tap:               DefaultTapRules(),
		MultiTapWindowMs:  350,
		DragMoveThreshold: 25,
		DragHoldMs:        300,
		ScrollDivisor:     20,
		NaturalScroll:     true,
	}
}
