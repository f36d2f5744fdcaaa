package retry

import (
	"math/rand/v2"
	"time"
)

// NextDelay returns the delay that follows current:
// min(maxDelay, current*2 + jitter). A negative jitter is treated as zero.
func NextDelay(current, maxDelay, jitter time.Duration) time.Duration {
	jitter = max(0, jitter)
	if current > (maxDelay-jitter)/2 {
		return maxDelay
	}
	return min(maxDelay, current*2+jitter)
}

// RandomJitter returns a uniformly distributed duration in [0, MaxJitter).
func RandomJitter() time.Duration {
	return rand.N(MaxJitter)
}
