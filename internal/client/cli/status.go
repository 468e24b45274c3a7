package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ozarkdata/parcelsync/internal/client/storage"
)

func (c *Cli) runStatus(ctx context.Context) error {
	fmt.Println("=== Sync Status ===")
	fmt.Println()

	auth, err := c.store.GetDeviceAuth(ctx)
	switch {
	case errors.Is(err, storage.ErrAuthNotFound):
		fmt.Println("Device: not registered")
		fmt.Println()
		fmt.Println("Run 'parcelsync register' to register this device.")
		return nil
	case err != nil:
		return fmt.Errorf("failed to read device credential: %w", err)
	}

	fmt.Printf("Device ID: %s\n", auth.DeviceID)
	remaining := time.Until(auth.ExpiresAt)
	if remaining > 0 {
		fmt.Printf("Token expires: %s (%s remaining)\n",
			auth.ExpiresAt.Format(time.RFC3339), remaining.Round(time.Second))
	} else {
		fmt.Println("Token has expired. Run 'parcelsync register' to refresh it.")
	}

	cp, err := c.store.GetCheckpoint(ctx)
	switch {
	case errors.Is(err, storage.ErrCheckpointNotFound):
		fmt.Println("Last sync: never (first sync will be a full download)")
	case err != nil:
		return fmt.Errorf("failed to read checkpoint: %w", err)
	default:
		fmt.Printf("Last sync: %s\n", cp.LastSyncTimestamp.Format(time.RFC3339))
		fmt.Printf("Algorithm version: %s\n", cp.AlgorithmVersion)
	}

	pending, err := c.syncService.PendingCount(ctx)
	if err != nil {
		fmt.Printf("\nWarning: failed to get pending change count: %v\n", err)
	} else if pending > 0 {
		fmt.Printf("Pending changes: %d waiting for upload\n", pending)
	} else {
		fmt.Println("Pending changes: none")
	}

	fmt.Println()
	state := c.executor.BreakerState()
	fmt.Printf("Circuit breaker: %s", state.Phase)
	if state.FailureCount > 0 {
		fmt.Printf(" (%d consecutive failures)", state.FailureCount)
	}
	fmt.Println()

	if queued := c.executor.QueueLen(); queued > 0 {
		fmt.Printf("Offline queue: %d request(s) waiting for connectivity\n", queued)
	}

	stats := c.executor.Stats()
	fmt.Printf("Requests: %d ok, %d failed, %d rejected, %d retries\n",
		stats.Successful, stats.Failed, stats.Rejected, stats.TotalRetries)

	return nil
}
