package gesture

import "math"

// minDtMs keeps instantaneous velocity finite for back-to-back samples.
const minDtMs = 1

// EWMA returns one exponential smoothing step.
// alpha = 1 tracks the instant value exactly; alpha = 0 never moves.
func EWMA(smoothed, instant, alpha float64) float64 {
	return alpha*instant + (1-alpha)*smoothed
}

// Velocity holds the smoothed pointer velocity in pixels per second.
type Velocity struct {
	X float64
	Y float64
}

// Update folds a filtered delta observed over dtMs milliseconds into v.
func (v *Velocity) Update(dx, dy int32, dtMs uint32, alpha float64) {
	if dtMs < minDtMs {
		dtMs = minDtMs
	}
	dt := float64(dtMs) / 1000
	v.X = EWMA(v.X, float64(dx)/dt, alpha)
	v.Y = EWMA(v.Y, float64(dy)/dt, alpha)
}

// Speed returns the magnitude of v.
func (v Velocity) Speed() float64 {
	return math.Hypot(v.X, v.Y)
}

// Reset zeroes both axes.
func (v *Velocity) Reset() {
	v.X, v.Y = 0, 0
}
