// Package netretry executes requests against the sync server with retry
// policies, a circuit breaker gate, and an offline replay queue. Every sync
// and CRUD call goes through the Executor; the breaker and the queue are
// never mutated by callers directly.
package netretry

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/ozarkdata/parcelsync/internal/client/breaker"
	"github.com/ozarkdata/parcelsync/internal/client/connectivity"
	"github.com/ozarkdata/parcelsync/internal/syncerr"
)

// RequestFunc performs one network attempt.
type RequestFunc func(ctx context.Context) error

// Request is one logical call to the remote service.
type Request struct {
	Do       RequestFunc
	Policy   Policy
	Name     string
	Priority Priority
}

// drainDelay spaces out replayed requests so a reconnect does not burst the
// server.
const drainDelay = 250 * time.Millisecond

// Executor runs requests through the circuit breaker and retry policy,
// queueing them while the transport is offline.
type Executor struct {
	breaker *breaker.Breaker
	monitor connectivity.Monitor
	logger  *slog.Logger
	queue   *requestQueue
	stats   statsCounter
	drainMu sync.Mutex
}

// NewExecutor creates an executor. monitor may be nil, in which case
// requests are always sent immediately and nothing is ever queued.
func NewExecutor(b *breaker.Breaker, monitor connectivity.Monitor, logger *slog.Logger) *Executor {
	return &Executor{
		breaker: b,
		monitor: monitor,
		logger:  logger,
		queue:   newRequestQueue(),
	}
}

// Start subscribes to connectivity transitions and drains the offline queue
// whenever the link comes back. It returns immediately.
func (e *Executor) Start(ctx context.Context) {
	if e.monitor == nil {
		return
	}
	events := e.monitor.Subscribe()
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case connected, ok := <-events:
				if !ok {
					return
				}
				if connected {
					go e.drain(ctx)
				}
			}
		}
	}()
}

// Execute runs one request. While offline, retryable requests are buffered
// in the priority queue and Execute blocks until the queued item completes
// (after reconnect) or ctx is cancelled.
func (e *Executor) Execute(ctx context.Context, req Request) error {
	if req.Do == nil {
		return errors.New("netretry: request has no handler")
	}
	if req.Policy == nil {
		req.Policy = NoRetry{}
	}

	if e.monitor != nil && !e.monitor.IsConnected() && req.Policy.AllowsRetry() {
		item := e.queue.push(req, time.Now())
		e.logger.Info("Queued request while offline",
			"request", req.Name,
			"priority", req.Priority.String(),
			"queue_len", e.queue.length())
		select {
		case err := <-item.done:
			return err
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return e.run(ctx, req)
}

// run drives one request through the breaker gate and its retry policy.
func (e *Executor) run(ctx context.Context, req Request) error {
	attempt := 0
	err := retry.Do(ctx, req.Policy.Backoff(), func(ctx context.Context) error {
		attempt++
		if attempt > 1 {
			e.stats.recordRetry()
		}

		// Breaker rejection is not a network failure: fail fast without an
		// attempt and without touching breaker counters.
		if !e.breaker.Allow() {
			return syncerr.ErrServiceUnavailable
		}

		err := req.Do(ctx)
		if err == nil {
			e.breaker.ReportSuccess()
			return nil
		}

		if syncerr.IsRetryable(err) {
			e.breaker.ReportFailure()
			e.logger.Warn("Request attempt failed",
				"request", req.Name,
				"attempt", attempt,
				"error", err)
			return retry.RetryableError(err)
		}

		// Non-retryable outcomes (4xx, decoding errors) surface immediately.
		// They say nothing about transport health, so the breaker is not
		// informed either way.
		return err
	})

	switch {
	case err == nil:
		e.stats.recordSuccess()
	case errors.Is(err, syncerr.ErrServiceUnavailable):
		e.stats.recordRejection()
	default:
		e.stats.recordFailure()
	}
	return err
}

// drain replays queued requests highest-priority-first until the queue is
// empty or connectivity drops again. It never runs concurrently with itself.
func (e *Executor) drain(ctx context.Context) {
	if !e.drainMu.TryLock() {
		return
	}
	defer e.drainMu.Unlock()

	for {
		if ctx.Err() != nil {
			return
		}
		if e.monitor != nil && !e.monitor.IsConnected() {
			// Remaining items stay queued for the next reconnect.
			return
		}
		item := e.queue.pop()
		if item == nil {
			return
		}

		err := e.run(ctx, item.request)
		item.complete(err)
		e.logger.Info("Drained queued request",
			"request", item.request.Name,
			"priority", item.request.Priority.String(),
			"queued_for", time.Since(item.enqueuedAt).String(),
			"error", err)

		select {
		case <-ctx.Done():
			return
		case <-time.After(drainDelay):
		}
	}
}

// QueueLen returns the number of requests waiting for reconnect.
func (e *Executor) QueueLen() int {
	return e.queue.length()
}

// Stats returns a snapshot of the request counters.
func (e *Executor) Stats() Stats {
	return e.stats.snapshot()
}

// ResetStats zeroes the request counters.
func (e *Executor) ResetStats() {
	e.stats.reset()
}

// BreakerState returns the current circuit breaker snapshot.
func (e *Executor) BreakerState() breaker.State {
	return e.breaker.State()
}

// Reset fails every pending queued request with a network-unavailable error
// and returns the breaker to closed. Requests already dispatched run to
// completion.
func (e *Executor) Reset() {
	for _, item := range e.queue.reset() {
		item.complete(syncerr.ErrNetworkUnavailable)
	}
	e.breaker.Reset()
}
