package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestManual_Transitions(t *testing.T) {
	m := NewManual(false)
	assert.False(t, m.IsConnected())

	ch := m.Subscribe()

	m.SetConnected(true)
	assert.True(t, m.IsConnected())

	select {
	case v := <-ch:
		assert.True(t, v)
	case <-time.After(time.Second):
		t.Fatal("expected a transition notification")
	}
}

func TestManual_NoNotificationWithoutTransition(t *testing.T) {
	m := NewManual(true)
	ch := m.Subscribe()

	// Same state again: no event.
	m.SetConnected(true)

	select {
	case <-ch:
		t.Fatal("unexpected notification for a non-transition")
	case <-time.After(50 * time.Millisecond):
	}
}

func TestManual_SlowSubscriberStillSeesLatestState(t *testing.T) {
	m := NewManual(false)
	ch := m.Subscribe()

	// Flap well past the buffer size without the subscriber reading.
	for i := 0; i < 8; i++ {
		m.SetConnected(true)
		m.SetConnected(false)
	}
	m.SetConnected(true)

	// Intermediate flaps may be lost, the final state may not.
	var last bool
	var got bool
	for {
		select {
		case v := <-ch:
			last = v
			got = true
			continue
		default:
		}
		break
	}
	require.True(t, got, "expected at least one notification")
	assert.True(t, last, "latest buffered event must match the final state")
}

func TestPinger_DerivesStateFromHealthEndpoint(t *testing.T) {
	healthy := true
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if healthy {
			w.WriteHeader(http.StatusOK)
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewPinger(srv.URL, time.Hour, testLogger())

	p.probe(context.Background())
	require.True(t, p.IsConnected())

	healthy = false
	p.probe(context.Background())
	assert.False(t, p.IsConnected())
}

func TestPinger_UnreachableServer(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := srv.URL
	srv.Close()

	p := NewPinger(url, time.Hour, testLogger())
	p.probe(context.Background())
	assert.False(t, p.IsConnected())
}
