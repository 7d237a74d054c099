package sync

import (
	"math/rand"
	"time"
)

var jitterSource = rand.New(rand.NewSource(time.Now().UnixNano()))

// backoffForAttempt doubles the base delay per prior attempt, capped at max.
// Attempt 0 is the first failure.
func backoffForAttempt(attempt int, base, max time.Duration) time.Duration {
	if base <= 0 {
		return 0
	}
	delay := base
	for i := 0; i < attempt; i++ {
		delay *= 2
		if delay >= max {
			return max
		}
	}
	if delay > max {
		return max
	}
	return delay
}

func withJitter(d, window time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if window <= 0 {
		return d
	}
	jitter := time.Duration(jitterSource.Int63n(int64(window)))
	return d + jitter
}
