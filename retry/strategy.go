// Package retry provides the exponential backoff strategy for relay message
// delivery. Delays grow by powers of the exponential base from a base delay,
// capped at a maximum.
package retry

import (
	"fmt"
	"math"
	"time"
)

// Strategy defines the retry behavior configuration for failed deliveries.
//
// The delay for a retry is computed from the attempt count *prior to* the
// failed attempt's increment: delay = min(BaseDelay * ExponentialBase^prior, MaxDelay).
//
// With the defaults (1s base, 2.0 exponential, 3 attempts) consecutive
// failures schedule retries after 1s and 2s, and the third failure is
// terminal; a hypothetical fourth would have waited 4s.
type Strategy struct {
	MaxAttempts     int           // Maximum delivery attempts before giving up
	BaseDelay       time.Duration // Delay after the first failed attempt
	MaxDelay        time.Duration // Maximum retry delay cap
	ExponentialBase float64       // Backoff multiplier (e.g., 2.0 for doubling)
}

// DefaultStrategy returns the default relay retry strategy:
// 3 attempts, 1s → 2s → 4s exponential backoff, capped at 1 minute.
func DefaultStrategy() Strategy {
	return Strategy{
		MaxAttempts:     3,
		BaseDelay:       1 * time.Second,
		MaxDelay:        1 * time.Minute,
		ExponentialBase: 2.0,
	}
}

// Delay calculates the backoff delay given the attempt count recorded before
// the failed attempt was charged. priorAttempts=0 yields BaseDelay,
// priorAttempts=1 yields BaseDelay*ExponentialBase, and so on.
func (s Strategy) Delay(priorAttempts int) time.Duration {
	if priorAttempts <= 0 {
		return s.BaseDelay
	}

	delay := float64(s.BaseDelay) * math.Pow(s.ExponentialBase, float64(priorAttempts))

	if delay > float64(s.MaxDelay) {
		return s.MaxDelay
	}

	return time.Duration(delay)
}

// IsRetryable checks if another delivery attempt is allowed.
// Returns true if the attempt count is below the maximum attempts limit.
func (s Strategy) IsRetryable(attemptCount int) bool {
	return attemptCount < s.MaxAttempts
}

// Schedule returns a human-readable description of the retry schedule.
// Useful for debugging and displaying retry behavior in logs.
//
// Example output:
//
//	Retry Schedule:
//	  Attempt 2: after 1s
//	  Attempt 3: after 2s
//	  → FAILED
func (s Strategy) Schedule() string {
	schedule := "Retry Schedule:\n"
	for prior := 1; prior < s.MaxAttempts; prior++ {
		schedule += fmt.Sprintf("  Attempt %d: after %v\n", prior+1, s.Delay(prior-1))
	}
	schedule += "  → FAILED\n"
	return schedule
}
