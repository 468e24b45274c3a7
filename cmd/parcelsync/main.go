package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	httpclient "github.com/ozarkdata/parcelsync/internal/client/api"
	"github.com/ozarkdata/parcelsync/internal/client/breaker"
	"github.com/ozarkdata/parcelsync/internal/client/cli"
	"github.com/ozarkdata/parcelsync/internal/client/connectivity"
	"github.com/ozarkdata/parcelsync/internal/client/netretry"
	"github.com/ozarkdata/parcelsync/internal/client/storage"
	"github.com/ozarkdata/parcelsync/internal/client/storage/boltdb"
	"github.com/ozarkdata/parcelsync/internal/client/sync"
	"github.com/ozarkdata/parcelsync/internal/client/tracker"
	"github.com/ozarkdata/parcelsync/pkg/api"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const (
	breakerFailureThreshold = 5
	breakerTimeout          = 30 * time.Second
	pingInterval            = 15 * time.Second
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	serverURL := flag.String("server", "http://localhost:8080", "Server URL")
	dbPath := flag.String("db", "parcelsync-client.db", "Path to local database")
	accountKey := flag.String("account-key", "", "Account key (env var PARCELSYNC_ACCOUNT_KEY takes precedence)")
	verbose := flag.Bool("verbose", false, "Enable debug logging")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	args := flag.Args()
	if len(args) == 0 {
		cli.PrintUsage()
		os.Exit(1)
	}
	command := args[0]

	logLevel := slog.LevelWarn
	if *verbose {
		logLevel = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: logLevel}))

	cli.AccountKeyArg = *accountKey

	ctx := context.Background()

	store, err := boltdb.New(ctx, *dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	// The device id is fixed at registration. Before registration it is
	// empty; every command that needs it fails with a clear message.
	deviceID := ""
	if auth, err := store.GetDeviceAuth(ctx); err == nil {
		deviceID = auth.DeviceID
	} else if !errors.Is(err, storage.ErrAuthNotFound) {
		fmt.Fprintf(os.Stderr, "Failed to read device credential: %v\n", err)
		os.Exit(1)
	}

	apiClient := httpclient.NewClient(*serverURL)

	circuit := breaker.New("sync-server", breakerFailureThreshold, breakerTimeout, logger)
	monitor := connectivity.NewPinger(*serverURL+"/health", pingInterval, logger)
	executor := netretry.NewExecutor(circuit, monitor, logger)

	monitorCtx, cancelMonitor := context.WithCancel(ctx)
	defer cancelMonitor()
	monitor.Start(monitorCtx)
	executor.Start(monitorCtx)

	tr := tracker.New(store, store, deviceID, logger)
	syncService := sync.NewService(apiClient, store, store, store, store, executor, sync.Config{
		DeviceID:         deviceID,
		AlgorithmVersion: api.AlgorithmVersion,
		AppVersion:       Version,
	}, logger)

	c := cli.New(apiClient, store, syncService, tr, executor)
	c.Run(ctx, command, args[1:])
}

func printVersion() {
	fmt.Printf("ParcelSync Client\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
