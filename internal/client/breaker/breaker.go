// Package breaker implements a circuit breaker guarding one remote endpoint.
// It stops sending requests to a failing dependency until it appears to have
// recovered.
package breaker

import (
	"log/slog"
	"sync"
	"time"
)

// Phase is the breaker state machine phase.
type Phase int

const (
	// PhaseClosed allows all requests (healthy endpoint).
	PhaseClosed Phase = iota
	// PhaseOpen rejects all requests until the open timeout elapses.
	PhaseOpen
	// PhaseHalfOpen lets trial requests through to probe for recovery.
	PhaseHalfOpen
)

// String returns the phase name for logging.
func (p Phase) String() string {
	switch p {
	case PhaseClosed:
		return "closed"
	case PhaseOpen:
		return "open"
	case PhaseHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// halfOpenSuccessThreshold is the number of consecutive half-open successes
// required before the breaker closes again.
const halfOpenSuccessThreshold = 3

// State is a snapshot of the breaker's counters.
type State struct {
	LastFailureTime time.Time
	Phase           Phase
	FailureCount    int
	SuccessCount    int // meaningful only in half-open
}

// Breaker tracks the health of one remote endpoint. All state transitions
// are serialized behind a single mutex; callers never mutate counters
// directly.
type Breaker struct {
	now              func() time.Time
	logger           *slog.Logger
	name             string
	lastFailureTime  time.Time
	failureThreshold int
	timeout          time.Duration
	failureCount     int
	successCount     int
	phase            Phase
	mu               sync.Mutex
}

// New creates a breaker that opens after failureThreshold consecutive
// failures and probes for recovery once timeout has elapsed.
func New(name string, failureThreshold int, timeout time.Duration, logger *slog.Logger) *Breaker {
	return &Breaker{
		name:             name,
		failureThreshold: failureThreshold,
		timeout:          timeout,
		logger:           logger,
		now:              time.Now,
	}
}

// Allow reports whether a request may be attempted right now. In the open
// phase it returns false until the timeout has elapsed, at which point the
// breaker moves to half-open and this one call is permitted as a trial.
func (b *Breaker) Allow() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case PhaseClosed:
		return true
	case PhaseOpen:
		if b.now().Sub(b.lastFailureTime) > b.timeout {
			b.transition(PhaseHalfOpen)
			return true
		}
		return false
	case PhaseHalfOpen:
		return true
	default:
		return false
	}
}

// ReportSuccess records a successful attempt.
func (b *Breaker) ReportSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case PhaseClosed:
		// Failures must be consecutive to trip the breaker.
		b.failureCount = 0
	case PhaseHalfOpen:
		b.successCount++
		if b.successCount >= halfOpenSuccessThreshold {
			b.failureCount = 0
			b.successCount = 0
			b.lastFailureTime = time.Time{}
			b.transition(PhaseClosed)
		}
	case PhaseOpen:
		// A success can only arrive here from a request that was already in
		// flight when the breaker opened; it does not reopen the gate.
	}
}

// ReportFailure records a failed attempt.
func (b *Breaker) ReportFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.phase {
	case PhaseClosed:
		b.failureCount++
		if b.failureCount >= b.failureThreshold {
			b.lastFailureTime = b.now()
			b.transition(PhaseOpen)
		}
	case PhaseHalfOpen:
		// Any failure during the trial period sends us straight back.
		b.successCount = 0
		b.lastFailureTime = b.now()
		b.transition(PhaseOpen)
	case PhaseOpen:
		b.lastFailureTime = b.now()
	}
}

// State returns a snapshot of the breaker state.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return State{
		Phase:           b.phase,
		FailureCount:    b.failureCount,
		SuccessCount:    b.successCount,
		LastFailureTime: b.lastFailureTime,
	}
}

// Reset returns the breaker to closed with all counters cleared.
func (b *Breaker) Reset() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failureCount = 0
	b.successCount = 0
	b.lastFailureTime = time.Time{}
	if b.phase != PhaseClosed {
		b.transition(PhaseClosed)
	}
}

// transition switches phases and logs the change. Caller holds the mutex.
func (b *Breaker) transition(to Phase) {
	from := b.phase
	b.phase = to
	if b.logger != nil {
		b.logger.Info("Circuit breaker state transition",
			"breaker", b.name,
			"from", from.String(),
			"to", to.String(),
			"failure_count", b.failureCount)
	}
}
