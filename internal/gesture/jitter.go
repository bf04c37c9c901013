package gesture

// FilterJitter applies a dead zone of threshold pixels to a raw delta.
// Deltas inside the dead zone become 0. Larger deltas have the threshold
// subtracted (sign preserved) so motion resumes continuously past the
// edge of the dead zone.
func FilterJitter(raw, threshold int32) int32 {
	if abs32(raw) <= threshold {
		return 0
	}
	if raw > 0 {
		return raw - threshold
	}
	return raw + threshold
}

// IsJitter reports whether both axes of a delta are inside the dead zone.
func IsJitter(dx, dy, threshold int32) bool {
	return abs32(dx) <= threshold && abs32(dy) <= threshold
}

func abs32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}
