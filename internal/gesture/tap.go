package gesture

// TapResult classifies a release.
type TapResult uint8

const (
	TapNone TapResult = iota
	TapSingle
	TapDouble
	TapTriple
	TapQuadruple
)

func (r TapResult) String() string {
	switch r {
	case TapNone:
		return "none"
	case TapSingle:
		return "single"
	case TapDouble:
		return "double"
	case TapTriple:
		return "triple"
	case TapQuadruple:
		return "quadruple"
	default:
		return "unknown"
	}
}

// TapRules decide whether a touch qualifies as a tap.
type TapRules struct {
	MinDurationMs uint32 // Shorter contacts are bounce
	MaxDurationMs uint32 // Contacts this long or longer are holds
	MoveThreshold int32  // Net displacement at or above this is a swipe

	// A contact whose cumulative path is at least JitterRatio times its net
	// displacement (and longer than JitterMinPath) wandered in place: it is
	// treated as tremor and may still qualify.
	JitterRatio   float64
	JitterMinPath int32
}

// DefaultTapRules returns the tap thresholds used by the firmware.
func DefaultTapRules() TapRules {
	return TapRules{
		MinDurationMs: 50,
		MaxDurationMs: 200,
		MoveThreshold: 15,
		JitterRatio:   3.0,
		JitterMinPath: 30,
	}
}

// Qualifies reports whether a contact of the given duration, net
// (Manhattan) displacement and cumulative path length is a tap.
func (r TapRules) Qualifies(durationMs uint32, net, path int32) bool {
	if durationMs < r.MinDurationMs || durationMs >= r.MaxDurationMs {
		return false
	}
	if net < r.MoveThreshold {
		return true
	}
	return r.isJitter(net, path)
}

func (r TapRules) isJitter(net, path int32) bool {
	return path > r.JitterMinPath && float64(path) >= r.JitterRatio*float64(net)
}

// Classify returns the tap result for a release, given the number of
// qualifying taps already chained before it. A non-qualifying release
// returns TapNone regardless of the chain.
func (r TapRules) Classify(durationMs uint32, net, path int32, chain int) TapResult {
	if !r.Qualifies(durationMs, net, path) {
		return TapNone
	}
	return ChainResult(chain + 1)
}

// ChainResult maps a chain length to its result. Chains of four or more
// collapse to TapQuadruple.
func ChainResult(n int) TapResult {
	switch {
	case n <= 0:
		return TapNone
	case n == 1:
		return TapSingle
	case n == 2:
		return TapDouble
	case n == 3:
		return TapTriple
	default:
		return TapQuadruple
	}
}
