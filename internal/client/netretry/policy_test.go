package netretry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExponentialBackoff_DelayBounds(t *testing.T) {
	p := ExponentialBackoff{
		BaseDelay:   time.Second,
		Multiplier:  2.0,
		MaxDelay:    30 * time.Second,
		JitterRatio: 0.1,
		MaxRetries:  5,
	}

	// Jitter is random, so sample the sequence a few times.
	for i := 0; i < 50; i++ {
		b := p.Backoff()

		bounds := []struct {
			lo, hi time.Duration
		}{
			{900 * time.Millisecond, 1100 * time.Millisecond},
			{1800 * time.Millisecond, 2200 * time.Millisecond},
			{3600 * time.Millisecond, 4400 * time.Millisecond},
			{7200 * time.Millisecond, 8800 * time.Millisecond}, // before attempt 4
		}
		for n, want := range bounds {
			d, stop := b.Next()
			require.False(t, stop)
			assert.GreaterOrEqual(t, d, want.lo, "retry %d", n+1)
			assert.LessOrEqual(t, d, want.hi, "retry %d", n+1)
		}
	}
}

func TestExponentialBackoff_CapsAtMaxDelay(t *testing.T) {
	p := ExponentialBackoff{
		BaseDelay:  time.Second,
		Multiplier: 2.0,
		MaxDelay:   5 * time.Second,
		MaxRetries: 10,
	}
	b := p.Backoff()

	var last time.Duration
	for i := 0; i < 10; i++ {
		d, stop := b.Next()
		require.False(t, stop)
		last = d
	}
	assert.Equal(t, 5*time.Second, last)
}

func TestExponentialBackoff_StopsAfterMaxRetries(t *testing.T) {
	p := ExponentialBackoff{BaseDelay: time.Millisecond, Multiplier: 2.0, MaxDelay: time.Second, MaxRetries: 2}
	b := p.Backoff()

	_, stop := b.Next()
	require.False(t, stop)
	_, stop = b.Next()
	require.False(t, stop)
	_, stop = b.Next()
	assert.True(t, stop)
}

func TestImmediateRetry(t *testing.T) {
	p := ImmediateRetry{MaxAttempts: 3}
	assert.True(t, p.AllowsRetry())

	b := p.Backoff()
	d, stop := b.Next()
	require.False(t, stop)
	assert.Equal(t, immediateRetryDelay, d)
	assert.Positive(t, d, "immediate retries must not busy-loop")

	_, stop = b.Next()
	require.False(t, stop)
	_, stop = b.Next()
	assert.True(t, stop, "three attempts means two retries")
}

func TestCustomDelay_ReusesLastValue(t *testing.T) {
	p := CustomDelay{
		Delays:     []time.Duration{time.Second, 2 * time.Second},
		MaxRetries: 4,
	}
	b := p.Backoff()

	want := []time.Duration{time.Second, 2 * time.Second, 2 * time.Second, 2 * time.Second}
	for _, w := range want {
		d, stop := b.Next()
		require.False(t, stop)
		assert.Equal(t, w, d)
	}
	_, stop := b.Next()
	assert.True(t, stop)
}

func TestCustomDelay_DefaultsToOneRetryPerDelay(t *testing.T) {
	p := CustomDelay{Delays: []time.Duration{time.Second, time.Second, time.Second}}
	b := p.Backoff()

	for i := 0; i < 3; i++ {
		_, stop := b.Next()
		require.False(t, stop)
	}
	_, stop := b.Next()
	assert.True(t, stop)
}

func TestNoRetry(t *testing.T) {
	p := NoRetry{}
	assert.False(t, p.AllowsRetry())

	_, stop := p.Backoff().Next()
	assert.True(t, stop)
}
