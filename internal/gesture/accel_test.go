package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCurveApply(t *testing.T) {
	c := DefaultCurve()

	tests := []struct {
		name  string
		delta float64
		speed float64
		want  float64
		tol   float64
	}{
		{"sub-pixel passthrough", 0.3, 500, 0.3, 0.01},
		{"precision zone", 10, 50, 5, 0.1},
		{"max zone", 10, 2000, 50, 0.1},
		{"linear midpoint", 10, 250, 7.5, 0.2},
		{"negative delta", -10, 50, -5, 0.1},
		{"precision threshold is linear start", 10, 100, 5, 0.1},
		{"linear threshold hits base", 10, 400, 10, 0.01},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.InDelta(t, tc.want, c.Apply(tc.delta, tc.speed), tc.tol)
		})
	}
}

func TestCurveMonotonic(t *testing.T) {
	c := DefaultCurve()
	prev := c.Multiplier(0)
	for speed := 1.0; speed <= 2500; speed++ {
		m := c.Multiplier(speed)
		assert.GreaterOrEqual(t, m, prev, "speed=%v", speed)
		prev = m
	}
}

func TestCurveContinuousAtBoundaries(t *testing.T) {
	c := DefaultCurve()
	const eps = 1e-9

	for _, b := range []float64{c.PrecisionThreshold, c.LinearThreshold, c.MaxThreshold} {
		below := c.Multiplier(b - eps)
		at := c.Multiplier(b)
		// The sqrt segment is steep just past LinearThreshold, so allow for
		// sqrt(eps) worth of slope there.
		assert.InDelta(t, below, at, 1e-3, "boundary=%v", b)
	}
}

func TestCurveEndpoints(t *testing.T) {
	c := DefaultCurve()
	assert.Equal(t, c.PrecisionSensitivity, c.Multiplier(0))
	assert.Equal(t, c.MaxMultiplier, c.Multiplier(c.MaxThreshold))
	assert.Equal(t, c.MaxMultiplier, c.Multiplier(1e9))
}
