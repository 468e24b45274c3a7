// Package cli implements the parcelsync command line interface.
package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"syscall"

	"golang.org/x/term"

	httpclient "github.com/ozarkdata/parcelsync/internal/client/api"
	"github.com/ozarkdata/parcelsync/internal/client/netretry"
	"github.com/ozarkdata/parcelsync/internal/client/storage/boltdb"
	"github.com/ozarkdata/parcelsync/internal/client/sync"
	"github.com/ozarkdata/parcelsync/internal/client/tracker"
)

type Cli struct {
	apiClient   httpclient.SyncAPI
	store       *boltdb.Storage
	syncService sync.Service
	tracker     *tracker.Tracker
	executor    *netretry.Executor
}

func New(
	apiClient httpclient.SyncAPI,
	store *boltdb.Storage,
	syncService sync.Service,
	tr *tracker.Tracker,
	executor *netretry.Executor,
) *Cli {
	return &Cli{
		apiClient:   apiClient,
		store:       store,
		syncService: syncService,
		tracker:     tr,
		executor:    executor,
	}
}

func PrintUsage() {
	fmt.Println("ParcelSync Client")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  parcelsync [OPTIONS] COMMAND")
	fmt.Println()
	fmt.Println("Options:")
	fmt.Println("  --version            Show version information")
	fmt.Println("  --server URL         Server URL (default: http://localhost:8080)")
	fmt.Println("  --db PATH            Path to local database (default: parcelsync-client.db)")
	fmt.Println("  --account-key KEY    Account key (not recommended, use env var or prompt)")
	fmt.Println()
	fmt.Println("Account Key Priority (highest to lowest):")
	fmt.Println("  1. PARCELSYNC_ACCOUNT_KEY environment variable")
	fmt.Println("  2. --account-key (command line)")
	fmt.Println("  3. Interactive prompt (fallback)")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  register                Register this device with the server")
	fmt.Println("  put <parcel-id> <json>  Save a parcel record locally")
	fmt.Println("  delete <parcel-id>      Delete a parcel record (soft delete)")
	fmt.Println("  list                    List local parcel records")
	fmt.Println("  status                  Show sync and connectivity status")
	fmt.Println("  sync                    Run a delta sync with the server")
	fmt.Println("  full-sync               Re-download and verify the full dataset")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  parcelsync register")
	fmt.Println("  parcelsync put 001-01234-000 '{\"county\":\"Marion\",\"acreage\":4.2}'")
	fmt.Println("  parcelsync list")
	fmt.Println("  parcelsync sync")
	fmt.Println("  parcelsync --server https://sync.example.com full-sync")
}

// readInput reads one line from stdin
func readInput(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	input, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(input), nil
}

// readPassword reads a secret without echoing it
func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	secret, err := term.ReadPassword(int(syscall.Stdin))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return string(secret), nil
}
