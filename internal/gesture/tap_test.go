package gesture

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTapClassify(t *testing.T) {
	r := DefaultTapRules()

	tests := []struct {
		name     string
		duration uint32
		net      int32
		path     int32
		chain    int
		want     TapResult
	}{
		{"too short is bounce", 30, 5, 10, 0, TapNone},
		{"at min duration", 50, 5, 10, 0, TapSingle},
		{"too long is hold", 250, 5, 10, 0, TapNone},
		{"at max duration is hold", 200, 5, 10, 0, TapNone},
		{"valid tap", 100, 10, 15, 0, TapSingle},
		{"swipe cancels", 100, 50, 60, 0, TapNone},
		{"net at threshold is swipe", 100, 15, 20, 0, TapNone},
		{"jitter with low net", 100, 10, 50, 0, TapSingle},
		{"jitter above move threshold", 100, 20, 90, 0, TapSingle},
		{"second tap", 100, 5, 10, 1, TapDouble},
		{"third tap", 100, 5, 10, 2, TapTriple},
		{"fourth tap", 100, 5, 10, 3, TapQuadruple},
		{"fifth tap stays quadruple", 100, 5, 10, 4, TapQuadruple},
		{"chain does not rescue a swipe", 100, 50, 60, 2, TapNone},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, r.Classify(tc.duration, tc.net, tc.path, tc.chain))
		})
	}
}

func TestTapJitterNeedsMinimumPath(t *testing.T) {
	r := DefaultTapRules()
	// Ratio satisfied but the path is too short to count as tremor.
	assert.False(t, r.Qualifies(100, 16, 30))
	assert.True(t, r.Qualifies(100, 16, 48))
}

func TestChainResult(t *testing.T) {
	assert.Equal(t, TapNone, ChainResult(0))
	assert.Equal(t, TapSingle, ChainResult(1))
	assert.Equal(t, TapDouble, ChainResult(2))
	assert.Equal(t, TapTriple, ChainResult(3))
	assert.Equal(t, TapQuadruple, ChainResult(4))
	assert.Equal(t, TapQuadruple, ChainResult(9))
	assert.Equal(t, "triple", ChainResult(3).String())
}
