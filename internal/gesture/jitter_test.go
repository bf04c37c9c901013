package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterJitterDeadZone(t *testing.T) {
	assert.Equal(t, int32(0), FilterJitter(2, 3))
	assert.Equal(t, int32(0), FilterJitter(-2, 3))
	assert.Equal(t, int32(0), FilterJitter(3, 3))
	assert.Equal(t, int32(0), FilterJitter(-3, 3))
	assert.Equal(t, int32(0), FilterJitter(0, 3))
}

func TestFilterJitterOutsideDeadZone(t *testing.T) {
	assert.Equal(t, int32(2), FilterJitter(5, 3))
	assert.Equal(t, int32(7), FilterJitter(10, 3))
	assert.Equal(t, int32(-2), FilterJitter(-5, 3))
	assert.Equal(t, int32(-7), FilterJitter(-10, 3))
}

func TestFilterJitterProperty(t *testing.T) {
	for thr := int32(0); thr <= 6; thr++ {
		for d := int32(-40); d <= 40; d++ {
			got := FilterJitter(d, thr)
			if abs32(d) <= thr {
				assert.Zero(t, got, "d=%d thr=%d", d, thr)
				continue
			}
			sign := int32(1)
			if d < 0 {
				sign = -1
			}
			assert.Equal(t, d, got+sign*thr, "d=%d thr=%d", d, thr)
		}
	}
}

func TestIsJitter(t *testing.T) {
	assert.True(t, IsJitter(2, 2, 3))
	assert.True(t, IsJitter(3, 3, 3))
	assert.True(t, IsJitter(0, 0, 3))
	assert.True(t, IsJitter(-2, 2, 3))

	assert.False(t, IsJitter(4, 0, 3))
	assert.False(t, IsJitter(0, 4, 3))
	assert.False(t, IsJitter(4, 4, 3))
	assert.False(t, IsJitter(-4, 1, 3))
}
