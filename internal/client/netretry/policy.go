package netretry

import (
	"math"
	"math/rand"
	"time"

	"github.com/sethvargo/go-retry"
)

// Policy describes how a failed request is retried. Each policy produces a
// fresh retry.Backoff sequence per request; the executor drives attempts
// through retry.Do.
type Policy interface {
	// Backoff returns a new backoff sequence for one request.
	Backoff() retry.Backoff

	// AllowsRetry reports whether the policy permits more than one attempt.
	// Only retryable requests are queued while offline.
	AllowsRetry() bool
}

// NoRetry performs exactly one attempt.
type NoRetry struct{}

func (NoRetry) Backoff() retry.Backoff {
	return retry.BackoffFunc(func() (time.Duration, bool) {
		return 0, true
	})
}

func (NoRetry) AllowsRetry() bool { return false }

// ExponentialBackoff retries with geometrically growing, jittered delays.
// The n-th retry waits min(BaseDelay * Multiplier^(n-1), MaxDelay),
// perturbed by a uniformly random factor within ±JitterRatio.
type ExponentialBackoff struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	Multiplier  float64
	JitterRatio float64
	MaxRetries  int
}

// DefaultExponential is the policy used for sync calls unless overridden.
func DefaultExponential() ExponentialBackoff {
	return ExponentialBackoff{
		BaseDelay:   time.Second,
		Multiplier:  2.0,
		MaxDelay:    30 * time.Second,
		JitterRatio: 0.1,
		MaxRetries:  3,
	}
}

func (p ExponentialBackoff) Backoff() retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		if attempt > p.MaxRetries {
			return 0, true
		}
		raw := float64(p.BaseDelay) * math.Pow(p.Multiplier, float64(attempt-1))
		if capped := float64(p.MaxDelay); raw > capped {
			raw = capped
		}
		if p.JitterRatio > 0 {
			raw *= 1 + (rand.Float64()*2-1)*p.JitterRatio
		}
		return time.Duration(raw), false
	})
}

func (p ExponentialBackoff) AllowsRetry() bool { return p.MaxRetries > 0 }

// immediateRetryDelay keeps immediate retries from busy-looping.
const immediateRetryDelay = 50 * time.Millisecond

// ImmediateRetry retries with a fixed small delay, up to MaxAttempts total
// attempts.
type ImmediateRetry struct {
	MaxAttempts int
}

func (p ImmediateRetry) Backoff() retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		if attempt > p.MaxAttempts-1 {
			return 0, true
		}
		return immediateRetryDelay, false
	})
}

func (p ImmediateRetry) AllowsRetry() bool { return p.MaxAttempts > 1 }

// CustomDelay waits Delays[n-1] before the n-th retry; past the end of the
// list the last value repeats. MaxRetries of zero means one retry per listed
// delay.
type CustomDelay struct {
	Delays     []time.Duration
	MaxRetries int
}

func (p CustomDelay) maxRetries() int {
	if p.MaxRetries > 0 {
		return p.MaxRetries
	}
	return len(p.Delays)
}

func (p CustomDelay) Backoff() retry.Backoff {
	attempt := 0
	return retry.BackoffFunc(func() (time.Duration, bool) {
		attempt++
		if len(p.Delays) == 0 || attempt > p.maxRetries() {
			return 0, true
		}
		idx := attempt - 1
		if idx >= len(p.Delays) {
			idx = len(p.Delays) - 1
		}
		return p.Delays[idx], false
	})
}

func (p CustomDelay) AllowsRetry() bool {
	return len(p.Delays) > 0 && p.maxRetries() > 0
}
