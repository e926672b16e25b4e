package payment

import "time"

// Timer is a pending deferred call.
type Timer interface {
	Stop() bool
}

// Scheduler runs f once after d. The orchestrator uses it for the delayed
// re-entry into the confirming step.
type Scheduler interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type systemScheduler struct{}

func (systemScheduler) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// SystemScheduler schedules on the runtime timer.
var SystemScheduler Scheduler = systemScheduler{}

// RetryPolicy bounds the automatic PENDING re-checks. A zero MaxAttempts or
// MaxDuration disables that bound.
type RetryPolicy struct {
	Delay       time.Duration
	MaxAttempts int
	MaxDuration time.Duration
}

// DefaultRetryPolicy re-checks every 3s for at most 200 attempts or 15 minutes.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{Delay: 3 * time.Second, MaxAttempts: 200, MaxDuration: 15 * time.Minute}
}

func (p RetryPolicy) exhausted(attempts int, elapsed time.Duration) bool {
	if p.MaxAttempts > 0 && attempts >= p.MaxAttempts {
		return true
	}
	return p.MaxDuration > 0 && elapsed >= p.MaxDuration
}
