// ABOUTME: Backoff math shared by the retry executor, send guard and supervisor
// ABOUTME: Deterministic capped exponential schedule, no jitter
package util

import (
	"math"
	"time"
)

// CalculateBackoff returns the delay before the given attempt.
// Attempt 0 has no delay; attempt i waits min(initial * 2^(i-1), max).
// A non-positive max disables the cap.
func CalculateBackoff(initial, max time.Duration, attempt int) time.Duration {
	if attempt <= 0 || initial <= 0 {
		return 0
	}
	backoff := initial
	for i := 1; i < attempt; i++ {
		if max > 0 && backoff >= max {
			return max
		}
		// Saturate instead of overflowing
		if backoff > math.MaxInt64/2 {
			return time.Duration(math.MaxInt64)
		}
		backoff *= 2
	}
	if max > 0 && backoff > max {
		backoff = max
	}
	return backoff
}
