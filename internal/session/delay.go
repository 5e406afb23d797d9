package session

import (
	"math"
	"math/rand"
	"time"
)

const (
	baseTradeDelay  = 1000 * time.Millisecond
	maxTradeDelay   = 15000 * time.Millisecond
	delayRescaleCap = 10000 * time.Millisecond

	maxRetryBackoff = 30 * time.Second
)

// nextTradeDelay schedules the pause before the next trade. A win keeps the
// base delay; a loss draws 3000ms plus up to 2000ms of jitter, grows it by
// 1.5 per consecutive loss, and once the scaled delay passes 10s it is
// rescaled to min(delay*(losses+1), 10s). The result never exceeds 15s.
func nextTradeDelay(won bool, consecutiveLosses int, rng *rand.Rand) time.Duration {
	if won {
		return baseTradeDelay
	}

	ms := 3000 + rng.Float64()*2000
	ms *= math.Pow(1.5, float64(consecutiveLosses))

	d := time.Duration(ms * float64(time.Millisecond))
	if d > delayRescaleCap {
		d = time.Duration(float64(d) * float64(consecutiveLosses+1))
		if d > delayRescaleCap {
			d = delayRescaleCap
		}
	}
	if d > maxTradeDelay {
		d = maxTradeDelay
	}
	return d
}

// retryBackoff is the exponential backoff between recoverable-error retries:
// min(1s * 2^attempt, 30s). Attempts count from zero.
func retryBackoff(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	d := time.Second * time.Duration(1<<uint(min(attempt, 10)))
	if d > maxRetryBackoff {
		d = maxRetryBackoff
	}
	return d
}
