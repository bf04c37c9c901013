package health

import (
	"context"
	"sync"
)

// PingCheck reports whether ping succeeds, for the trace database.
func PingCheck(ping func(ctx context.Context) error) Check {
	return func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			return CheckResult{Status: StatusUnhealthy, Message: "ping failed", Error: err.Error()}
		}
		return CheckResult{Status: StatusHealthy, Message: "ping ok"}
	}
}

// ProgressCheck reports unhealthy when counter has not moved since the
// previous check. The first check only records a baseline.
func ProgressCheck(counter func() uint64) Check {
	var mu sync.Mutex
	var last uint64
	var seen bool

	return func(ctx context.Context) CheckResult {
		mu.Lock()
		defer mu.Unlock()

		now := counter()
		prev, first := last, !seen
		last, seen = now, true

		details := map[string]any{"count": now}
		if !first && now == prev {
			return CheckResult{Status: StatusUnhealthy, Message: "no progress since last check", Details: details}
		}
		return CheckResult{Status: StatusHealthy, Details: details}
	}
}

// FailureCheck compares failures against attempts since the previous
// check: some failures degrade, failing every attempt is unhealthy.
func FailureCheck(failures, attempts func() uint64) Check {
	var mu sync.Mutex
	var lastF, lastA uint64

	return func(ctx context.Context) CheckResult {
		mu.Lock()
		defer mu.Unlock()

		f, a := failures(), attempts()
		df, da := f-lastF, a-lastA
		lastF, lastA = f, a

		details := map[string]any{"failures": df, "attempts": da}
		switch {
		case df == 0:
			return CheckResult{Status: StatusHealthy, Details: details}
		case df >= da:
			return CheckResult{Status: StatusUnhealthy, Message: "every attempt failed", Details: details}
		default:
			return CheckResult{Status: StatusDegraded, Message: "some attempts failed", Details: details}
		}
	}
}
