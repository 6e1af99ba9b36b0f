package runtime

import (
	"math"
	"time"
)

// RetryPolicy controls retry behavior for a step's execution.
// Backoff is deterministic; jitter, if wanted, is a caller-side addition.
type RetryPolicy struct {
	// Maximum number of attempts, including the first one.
	MaxAttempts int `json:"max_attempts" yaml:"max_attempts"`

	// Delay before the first retry.
	InitialDelay time.Duration `json:"initial_delay" yaml:"initial_delay"`

	// Cap on any individual retry delay. Zero means no cap.
	MaxDelay time.Duration `json:"max_delay" yaml:"max_delay"`

	// Coefficient for computing the next retry delay.
	Multiplier float64 `json:"multiplier" yaml:"multiplier"`
}

// DefaultRetryPolicy matches the step contract default: 3 attempts,
// 1s initial delay, 10s cap, doubling.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:  3,
	InitialDelay: time.Second,
	MaxDelay:     10 * time.Second,
	Multiplier:   2,
}

// DelayForAttempt returns the wait before retrying after the given attempt.
// Attempt 0 (the first try) always waits zero; attempt n waits
// InitialDelay × Multiplier^(n−1), capped at MaxDelay.
func (p RetryPolicy) DelayForAttempt(attempt int) time.Duration {
	if attempt <= 0 || p.InitialDelay <= 0 {
		return 0
	}

	mult := p.Multiplier
	if mult < 1 {
		mult = 1
	}

	// Cap in float space: converting an out-of-range float64 to Duration
	// is implementation-defined and can go negative.
	f := float64(p.InitialDelay) * math.Pow(mult, float64(attempt-1))
	if p.MaxDelay > 0 && f >= float64(p.MaxDelay) {
		return p.MaxDelay
	}
	if f >= float64(math.MaxInt64) {
		return time.Duration(math.MaxInt64)
	}
	return time.Duration(f)
}

// Attempts returns MaxAttempts normalized to at least one attempt.
func (p RetryPolicy) Attempts() int {
	if p.MaxAttempts < 1 {
		return 1
	}
	return p.MaxAttempts
}
