package netretry

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozarkdata/parcelsync/internal/client/breaker"
	"github.com/ozarkdata/parcelsync/internal/client/connectivity"
	"github.com/ozarkdata/parcelsync/internal/syncerr"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestExecutor(mon connectivity.Monitor) *Executor {
	b := breaker.New("test", 5, time.Minute, testLogger())
	return NewExecutor(b, mon, testLogger())
}

// fastRetry keeps executor tests quick.
func fastRetry(retries int) Policy {
	return CustomDelay{Delays: []time.Duration{time.Millisecond}, MaxRetries: retries}
}

func TestExecutor_SuccessFirstAttempt(t *testing.T) {
	e := newTestExecutor(nil)

	calls := 0
	err := e.Execute(context.Background(), Request{
		Name:   "ping",
		Policy: fastRetry(3),
		Do: func(ctx context.Context) error {
			calls++
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, Stats{Successful: 1}, e.Stats())
}

func TestExecutor_RetriesRetryableErrors(t *testing.T) {
	e := newTestExecutor(nil)

	calls := 0
	err := e.Execute(context.Background(), Request{
		Name:   "delta",
		Policy: fastRetry(5),
		Do: func(ctx context.Context) error {
			calls++
			if calls < 3 {
				return &syncerr.ServerError{StatusCode: 503, Message: "overloaded"}
			}
			return nil
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Equal(t, Stats{Successful: 1, TotalRetries: 2}, e.Stats())
}

func TestExecutor_NonRetryableFailsImmediately(t *testing.T) {
	e := newTestExecutor(nil)

	calls := 0
	err := e.Execute(context.Background(), Request{
		Name:   "delta",
		Policy: fastRetry(5),
		Do: func(ctx context.Context) error {
			calls++
			return &syncerr.ServerError{StatusCode: 404, Message: "unknown parcel"}
		},
	})

	var serverErr *syncerr.ServerError
	require.ErrorAs(t, err, &serverErr)
	assert.Equal(t, 1, calls, "4xx must not be retried")
	assert.Equal(t, Stats{Failed: 1}, e.Stats())

	// Non-retryable outcomes say nothing about transport health.
	assert.Equal(t, 0, e.BreakerState().FailureCount)
}

func TestExecutor_ExhaustsRetries(t *testing.T) {
	e := newTestExecutor(nil)

	calls := 0
	err := e.Execute(context.Background(), Request{
		Name:   "delta",
		Policy: fastRetry(2),
		Do: func(ctx context.Context) error {
			calls++
			return syncerr.ErrTimeout
		},
	})

	require.ErrorIs(t, err, syncerr.ErrTimeout)
	assert.Equal(t, 3, calls, "initial attempt plus two retries")
	assert.Equal(t, Stats{Failed: 1, TotalRetries: 2}, e.Stats())
	assert.Equal(t, 3, e.BreakerState().FailureCount)
}

func TestExecutor_OpenBreakerRejectsWithoutAttempt(t *testing.T) {
	e := newTestExecutor(nil)

	// Trip the breaker with real failures.
	for i := 0; i < 5; i++ {
		_ = e.Execute(context.Background(), Request{
			Name:   "delta",
			Policy: NoRetry{},
			Do: func(ctx context.Context) error {
				return syncerr.ErrTimeout
			},
		})
	}
	require.Equal(t, breaker.PhaseOpen, e.BreakerState().Phase)

	calls := 0
	err := e.Execute(context.Background(), Request{
		Name:   "delta",
		Policy: fastRetry(3),
		Do: func(ctx context.Context) error {
			calls++
			return nil
		},
	})

	require.ErrorIs(t, err, syncerr.ErrServiceUnavailable)
	assert.Equal(t, 0, calls, "no network attempt while open")

	stats := e.Stats()
	assert.Equal(t, 1, stats.Rejected)
	assert.Equal(t, 5, stats.Failed, "rejections are not failures")
	assert.Equal(t, 0, stats.TotalRetries, "rejections consume no retries")
}

func TestExecutor_OfflineQueueDrainOrdering(t *testing.T) {
	mon := connectivity.NewManual(false)
	e := newTestExecutor(mon)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	e.Start(ctx)

	var mu sync.Mutex
	var ran []string
	var wg sync.WaitGroup

	queued := 0
	for _, p := range []Priority{PriorityLow, PriorityCritical, PriorityNormal, PriorityHigh} {
		p := p
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := e.Execute(ctx, Request{
				Name:     p.String(),
				Priority: p,
				Policy:   fastRetry(1),
				Do: func(ctx context.Context) error {
					mu.Lock()
					ran = append(ran, p.String())
					mu.Unlock()
					return nil
				},
			})
			assert.NoError(t, err)
		}()
		// Wait for the item to land in the queue so enqueue order is fixed.
		queued++
		require.Eventually(t, func() bool { return e.QueueLen() == queued }, time.Second, time.Millisecond)
	}

	mon.SetConnected(true)
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, []string{"critical", "high", "normal", "low"}, ran)
}

func TestExecutor_ResetFailsPendingItems(t *testing.T) {
	mon := connectivity.NewManual(false)
	e := newTestExecutor(mon)

	errCh := make(chan error, 1)
	go func() {
		errCh <- e.Execute(context.Background(), Request{
			Name:     "queued",
			Priority: PriorityNormal,
			Policy:   fastRetry(1),
			Do:       func(ctx context.Context) error { return nil },
		})
	}()
	require.Eventually(t, func() bool { return e.QueueLen() == 1 }, time.Second, time.Millisecond)

	e.Reset()

	select {
	case err := <-errCh:
		assert.ErrorIs(t, err, syncerr.ErrNetworkUnavailable)
	case <-time.After(time.Second):
		t.Fatal("queued request was not failed by Reset")
	}
	assert.Equal(t, 0, e.QueueLen())
}

func TestExecutor_NoRetryOfflineStillAttempts(t *testing.T) {
	mon := connectivity.NewManual(false)
	e := newTestExecutor(mon)

	calls := 0
	err := e.Execute(context.Background(), Request{
		Name:   "one-shot",
		Policy: NoRetry{},
		Do: func(ctx context.Context) error {
			calls++
			return syncerr.ErrNetworkUnavailable
		},
	})

	require.ErrorIs(t, err, syncerr.ErrNetworkUnavailable)
	assert.Equal(t, 1, calls, "non-retryable requests are never queued")
	assert.Equal(t, 0, e.QueueLen())
}

func TestExecutor_ResetStats(t *testing.T) {
	e := newTestExecutor(nil)

	_ = e.Execute(context.Background(), Request{
		Name:   "x",
		Policy: NoRetry{},
		Do:     func(ctx context.Context) error { return nil },
	})
	require.Equal(t, Stats{Successful: 1}, e.Stats())

	e.ResetStats()
	assert.Equal(t, Stats{}, e.Stats())
}

func TestExecutor_MissingHandler(t *testing.T) {
	e := newTestExecutor(nil)
	err := e.Execute(context.Background(), Request{Name: "broken"})
	assert.Error(t, err)
	assert.False(t, errors.Is(err, syncerr.ErrServiceUnavailable))
}
