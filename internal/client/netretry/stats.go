package netretry

import "sync"

// Stats is a snapshot of executor counters. Rejected counts breaker
// fast-fails, which are deliberately excluded from Failed: "remote is
// known-bad" is not the same signal as "this specific call failed".
type Stats struct {
	Successful   int
	Failed       int
	Rejected     int
	TotalRetries int
}

// statsCounter serializes counter updates.
type statsCounter struct {
	mu    sync.Mutex
	stats Stats
}

func (c *statsCounter) recordSuccess() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Successful++
}

func (c *statsCounter) recordFailure() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Failed++
}

func (c *statsCounter) recordRejection() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.Rejected++
}

func (c *statsCounter) recordRetry() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats.TotalRetries++
}

func (c *statsCounter) snapshot() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stats
}

func (c *statsCounter) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stats = Stats{}
}
