// Package connectivity tracks whether the sync server is reachable and
// publishes transitions on subscribed channels. The offline queue drains on
// the offline-to-online edge.
package connectivity

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"
)

//go:generate go tool moq -out monitor_mock.go . Monitor

// Monitor exposes a single boolean "is connected" signal with change
// notifications.
type Monitor interface {
	// IsConnected reports the current connectivity state.
	IsConnected() bool

	// Subscribe returns a channel that receives the new state on every
	// transition. The channel is buffered; slow consumers miss intermediate
	// flaps, never the latest state.
	Subscribe() <-chan bool
}

// state is the shared connected flag plus subscriber list.
type state struct {
	mu        sync.Mutex
	subs      []chan bool
	connected bool
}

func (s *state) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.connected
}

func (s *state) Subscribe() <-chan bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan bool, 4)
	s.subs = append(s.subs, ch)
	return ch
}

// set updates the flag and notifies subscribers on transitions.
func (s *state) set(connected bool) {
	s.mu.Lock()
	if s.connected == connected {
		s.mu.Unlock()
		return
	}
	s.connected = connected
	subs := make([]chan bool, len(s.subs))
	copy(subs, s.subs)
	s.mu.Unlock()

	for _, ch := range subs {
		select {
		case ch <- connected:
		default:
			// Full buffer: evict the oldest entry so the latest state
			// always lands. Slow consumers lose intermediate flaps only.
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- connected:
			default:
			}
		}
	}
}

// Manual is a monitor whose state is set explicitly. Used in tests and as
// an override when the caller already knows the link state.
type Manual struct {
	state
}

// NewManual creates a manual monitor with the given initial state.
func NewManual(connected bool) *Manual {
	m := &Manual{}
	m.connected = connected
	return m
}

// SetConnected flips the state and notifies subscribers.
func (m *Manual) SetConnected(connected bool) {
	m.set(connected)
}

// Pinger probes the server health endpoint on a fixed interval and derives
// the connectivity state from the result.
type Pinger struct {
	logger   *slog.Logger
	client   *http.Client
	url      string
	interval time.Duration
	state
}

// NewPinger creates a pinger for the given health URL. The first probe runs
// when Start is called; until then the state is disconnected.
func NewPinger(url string, interval time.Duration, logger *slog.Logger) *Pinger {
	return &Pinger{
		url:      url,
		interval: interval,
		logger:   logger,
		client:   &http.Client{Timeout: 5 * time.Second},
	}
}

// Start probes immediately and then on every interval until ctx is done.
func (p *Pinger) Start(ctx context.Context) {
	go func() {
		p.probe(ctx)
		ticker := time.NewTicker(p.interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				p.probe(ctx)
			}
		}
	}()
}

func (p *Pinger) probe(ctx context.Context) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.url, nil)
	if err != nil {
		p.logger.Error("Failed to build health probe request", "error", err)
		return
	}

	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("Health probe failed", "url", p.url, "error", err)
		p.set(false)
		return
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	connected := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !connected {
		p.logger.Debug("Health probe returned non-2xx", "status", resp.StatusCode)
	}
	p.set(connected)
}
