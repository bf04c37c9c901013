package gesture

import "math"

// subPixel is the magnitude below which deltas bypass the curve.
const subPixel = 0.5

// Curve is a three-zone pointer acceleration curve. Speeds are in pixels
// per second.
//
//	speed < PrecisionThreshold               PrecisionSensitivity
//	PrecisionThreshold .. LinearThreshold    linear up to BaseSensitivity
//	LinearThreshold .. MaxThreshold          sqrt ease up to MaxMultiplier
//	speed >= MaxThreshold                    MaxMultiplier
type Curve struct {
	PrecisionSensitivity float64
	BaseSensitivity      float64
	MaxMultiplier        float64
	PrecisionThreshold   float64
	LinearThreshold      float64
	MaxThreshold         float64
}

// DefaultCurve returns the curve tuned for a 320x240 panel.
func DefaultCurve() Curve {
	return Curve{
		PrecisionSensitivity: 0.5,
		BaseSensitivity:      1.0,
		MaxMultiplier:        5.0,
		PrecisionThreshold:   100,
		LinearThreshold:      400,
		MaxThreshold:         1500,
	}
}

// Multiplier returns the gain applied at speed. It is continuous and
// non-decreasing in speed as long as the thresholds are ordered and the
// sensitivities ascend.
func (c Curve) Multiplier(speed float64) float64 {
	switch {
	case speed < c.PrecisionThreshold:
		return c.PrecisionSensitivity
	case speed < c.LinearThreshold:
		t := (speed - c.PrecisionThreshold) / (c.LinearThreshold - c.PrecisionThreshold)
		return c.PrecisionSensitivity + t*(c.BaseSensitivity-c.PrecisionSensitivity)
	case speed < c.MaxThreshold:
		t := (speed - c.LinearThreshold) / (c.MaxThreshold - c.LinearThreshold)
		return c.BaseSensitivity + math.Sqrt(t)*(c.MaxMultiplier-c.BaseSensitivity)
	default:
		return c.MaxMultiplier
	}
}

// Apply scales delta by the multiplier for speed. Sub-pixel deltas pass
// through so sensor noise is never amplified.
func (c Curve) Apply(delta, speed float64) float64 {
	if math.Abs(delta) < subPixel {
		return delta
	}
	return delta * c.Multiplier(speed)
}
