package trace

import "trackpad/internal/gesture"

// Replay drives e with samples the way the poll loop does: ProcessInput
// for each sample followed by Tick at the same time, with bare ticks every
// tickStepMs in between. After the last sample it keeps ticking for
// drainMs so that pending tap chains expire. Non-empty actions are
// returned with their times.
func Replay(e *gesture.Engine, samples []gesture.Sample, tickStepMs, drainMs uint32) []TimedAction {
	if tickStepMs == 0 {
		tickStepMs = 10
	}

	var out []TimedAction
	emit := func(a gesture.Action, at uint32) {
		if !a.None() {
			out = append(out, TimedAction{At: at, Action: a})
		}
	}

	if len(samples) == 0 {
		return nil
	}

	next := samples[0].TimestampMs
	for _, s := range samples {
		// Signed distance keeps the loop correct across counter wrap.
		for int32(s.TimestampMs-next) > 0 {
			emit(e.Tick(next), next)
			next += tickStepMs
		}
		emit(e.ProcessInput(s), s.TimestampMs)
		emit(e.Tick(s.TimestampMs), s.TimestampMs)
		next = s.TimestampMs + tickStepMs
	}

	end := samples[len(samples)-1].TimestampMs + drainMs
	for int32(end-next) >= 0 {
		emit(e.Tick(next), next)
		next += tickStepMs
	}
	return out
}

// FirstDivergence returns the index of the first action that differs
// between a and b, or -1 when they match. Actions match when they are equal
// and their times lie within toleranceMs of each other: a live loop ticks
// when its ticker fires, so a recorded tap-window flush can land up to one
// poll interval after the grid Replay ticks on.
func FirstDivergence(a, b []TimedAction, toleranceMs uint32) int {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	for i := 0; i < n; i++ {
		if !sameAction(a[i], b[i], toleranceMs) {
			return i
		}
	}
	if len(a) != len(b) {
		return n
	}
	return -1
}

func sameAction(x, y TimedAction, toleranceMs uint32) bool {
	if x.Action != y.Action {
		return false
	}
	d := int64(int32(x.At - y.At))
	if d < 0 {
		d = -d
	}
	return d <= int64(toleranceMs)
}
