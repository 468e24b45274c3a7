package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/ozarkdata/parcelsync/internal/server/handlers"
	"github.com/ozarkdata/parcelsync/internal/server/jwt"
	"github.com/ozarkdata/parcelsync/internal/server/keyhash"
	"github.com/ozarkdata/parcelsync/internal/server/middleware"
	"github.com/ozarkdata/parcelsync/internal/server/storage/sqlite"
	"github.com/ozarkdata/parcelsync/pkg/api"
)

var (
	// Version information set via ldflags during build
	Version   = "dev"
	BuildDate = "unknown"
	GitCommit = "unknown"
)

const (
	shutdownTimeout = 10 * time.Second

	// Device enrollment is rate limited per client IP to slow down account
	// key guessing.
	enrollRateLimit  = 10
	enrollRateWindow = time.Minute
)

func main() {
	showVersion := flag.Bool("version", false, "Show version information")
	addr := flag.String("addr", ":8080", "Listen address")
	dbPath := flag.String("db", "parcelsync-server.db", "Path to SQLite database")
	tokenTTL := flag.Duration("token-ttl", 24*time.Hour, "Device token lifetime")

	flag.Parse()

	if *showVersion {
		printVersion()
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(*addr, *dbPath, *tokenTTL, logger); err != nil {
		logger.Error("Server failed", "error", err)
		os.Exit(1)
	}
}

func run(addr, dbPath string, tokenTTL time.Duration, logger *slog.Logger) error {
	jwtSecret := os.Getenv("PARCELSYNC_JWT_SECRET")
	if jwtSecret == "" {
		return fmt.Errorf("PARCELSYNC_JWT_SECRET environment variable is required")
	}

	accountKeyHash := os.Getenv("PARCELSYNC_ACCOUNT_KEY_HASH")
	if accountKeyHash == "" {
		// Accept a plain key for development setups and hash it at startup.
		accountKey := os.Getenv("PARCELSYNC_ACCOUNT_KEY")
		if accountKey == "" {
			return fmt.Errorf("PARCELSYNC_ACCOUNT_KEY_HASH or PARCELSYNC_ACCOUNT_KEY environment variable is required")
		}
		var err error
		accountKeyHash, err = keyhash.Hash(accountKey)
		if err != nil {
			return fmt.Errorf("failed to hash account key: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	store, err := sqlite.New(ctx, dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	tokens := jwt.NewService(jwtSecret, tokenTTL)

	authHandler := handlers.NewAuthHandler(store, tokens, accountKeyHash, logger)
	syncHandler := handlers.NewSyncHandler(store, store, store, []string{api.AlgorithmVersion}, logger)
	healthHandler := handlers.NewHealthHandler(logger)

	requireAuth := middleware.AuthMiddleware(logger, tokens)
	enrollLimit := middleware.RateLimitMiddleware(enrollRateLimit, enrollRateWindow, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", healthHandler.HandleHealth)
	mux.Handle("POST /api/v1/auth/device-key", enrollLimit(http.HandlerFunc(authHandler.HandleDeviceKey)))
	mux.Handle("POST /api/v1/sync/delta", requireAuth(http.HandlerFunc(syncHandler.HandleDeltaSync)))
	mux.Handle("POST /api/v1/sync/full", requireAuth(http.HandlerFunc(syncHandler.HandleFullSync)))

	handler := middleware.RecoveryMiddleware(logger)(
		middleware.LoggingWithSkip(logger, []string{"/health"})(mux),
	)

	server := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", addr, "version", Version)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-ctx.Done():
	}

	logger.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown failed: %w", err)
	}

	logger.Info("Server stopped")
	return nil
}

func printVersion() {
	fmt.Printf("ParcelSync Server\n")
	fmt.Printf("Version:    %s\n", Version)
	fmt.Printf("Build Date: %s\n", BuildDate)
	fmt.Printf("Git Commit: %s\n", GitCommit)
}
