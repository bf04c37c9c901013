package gesture

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEWMAInitialStep(t *testing.T) {
	assert.InDelta(t, 30.0, EWMA(0, 100, 0.3), 0.01)
}

func TestEWMAConvergence(t *testing.T) {
	for _, alpha := range []float64{0.05, 0.3, 0.5, 0.9, 1.0} {
		smooth := 0.0
		for i := 0; i < 200; i++ {
			smooth = EWMA(smooth, 100, alpha)
		}
		assert.InDelta(t, 100.0, smooth, 1.0, "alpha=%v", alpha)
	}

	smooth := 0.0
	for i := 0; i < 20; i++ {
		smooth = EWMA(smooth, 100, 0.3)
	}
	assert.InDelta(t, 100.0, smooth, 1.0)
}

func TestEWMAAlphaExtremes(t *testing.T) {
	assert.InDelta(t, 100.0, EWMA(50, 100, 1.0), 0.01)
	assert.InDelta(t, 50.0, EWMA(50, 100, 0.0), 0.01)
}

func TestVelocityUpdate(t *testing.T) {
	var v Velocity
	v.Update(2, 0, 20, 1.0)
	assert.InDelta(t, 100.0, v.X, 1e-9)
	assert.Zero(t, v.Y)

	v.Update(0, 0, 20, 0.5)
	assert.InDelta(t, 50.0, v.X, 1e-9)

	v.Reset()
	assert.Zero(t, v.Speed())
}

func TestVelocityZeroDtIsClamped(t *testing.T) {
	var v Velocity
	v.Update(3, 4, 0, 1.0)

	assert.False(t, math.IsInf(v.X, 0) || math.IsNaN(v.X))
	assert.InDelta(t, 3000.0, v.X, 1e-9)
	assert.InDelta(t, 5000.0, v.Speed(), 1e-9)
}
