package worker

import "time"

// RetryPolicy controls how failed sheet writes are retried. Zero fields take
// the value from DefaultRetryPolicy.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

var DefaultRetryPolicy = RetryPolicy{
	MaxRetries:    5,
	InitialDelay:  2 * time.Second,
	MaxDelay:      time.Minute,
	BackoffFactor: 2,
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	if r.MaxRetries <= 0 {
		r.MaxRetries = DefaultRetryPolicy.MaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = DefaultRetryPolicy.InitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = DefaultRetryPolicy.MaxDelay
	}
	if r.BackoffFactor < 1 {
		r.BackoffFactor = DefaultRetryPolicy.BackoffFactor
	}
	return r
}

// NextDelay is the wait after the given failed attempt (1-based): the initial
// delay grown by BackoffFactor per attempt, capped at MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	r = r.withDefaults()
	delay := float64(r.InitialDelay)
	for i := 1; i < attempt && delay < float64(r.MaxDelay); i++ {
		delay *= r.BackoffFactor
	}
	return min(time.Duration(delay), r.MaxDelay)
}

// Exhausted reports whether a task that has failed attempt times is dead.
func (r RetryPolicy) Exhausted(attempt int) bool {
	return attempt >= r.withDefaults().MaxRetries
}
