package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/ozarkdata/parcelsync/internal/client/sync"
	"github.com/ozarkdata/parcelsync/internal/syncerr"
)

func (c *Cli) runSync(ctx context.Context) error {
	fmt.Println("=== Synchronization ===")
	fmt.Println()
	fmt.Println("Starting sync with server...")

	result, err := c.syncService.Sync(ctx)
	if err != nil {
		return syncError(err)
	}

	printResult(result)
	return nil
}

func (c *Cli) runFullSync(ctx context.Context) error {
	fmt.Println("=== Full Synchronization ===")
	fmt.Println()
	fmt.Println("Downloading the complete parcel dataset...")

	result, err := c.syncService.FullSync(ctx)
	if err != nil {
		return syncError(err)
	}

	printResult(result)
	return nil
}

func printResult(result *sync.Result) {
	fmt.Println()
	fmt.Println("Sync completed.")
	fmt.Println()
	fmt.Printf("Status:   %s\n", result.Status)
	fmt.Printf("Pushed:   %d change(s)\n", result.Pushed)
	fmt.Printf("Pulled:   %d record(s)\n", result.Pulled)
	fmt.Printf("Applied:  %d\n", result.Applied)

	if result.Rejected > 0 {
		fmt.Printf("Rejected: %d\n", result.Rejected)
		for _, r := range result.Rejections {
			fmt.Printf("  - %s (%s): %s\n", r.ParcelID, r.Operation, r.Reason)
		}
	}

	if len(result.Conflicts) > 0 {
		fmt.Printf("Conflicts resolved: %d\n", len(result.Conflicts))
		for _, conflict := range result.Conflicts {
			winner := "local"
			if conflict.RemoteWon {
				winner = "server"
			}
			fmt.Printf("  - %s: %s version kept\n", conflict.ParcelID, winner)
		}
	}
}

// syncError rewrites taxonomy errors into actionable messages.
func syncError(err error) error {
	switch {
	case errors.Is(err, syncerr.ErrAuthenticationFailed):
		return fmt.Errorf("not authenticated: run 'parcelsync register' first")
	case errors.Is(err, syncerr.ErrSyncInFlight):
		return fmt.Errorf("a sync is already running")
	case errors.Is(err, syncerr.ErrServiceUnavailable):
		return fmt.Errorf("server is temporarily unavailable, try again later")
	case errors.Is(err, syncerr.ErrNetworkUnavailable):
		return fmt.Errorf("no network connectivity: changes stay queued locally")
	}

	var mismatch *syncerr.AlgorithmMismatchError
	if errors.As(err, &mismatch) {
		return fmt.Errorf("sync blocked: %s (update the app to continue syncing)", mismatch.Message)
	}

	return err
}
