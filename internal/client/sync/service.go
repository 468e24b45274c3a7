// Package sync implements the client side of the parcel sync protocol:
// delta rounds that exchange changes since the last checkpoint, full rounds
// that re-verify the whole local dataset, and last-write-wins conflict
// resolution with the server as tie-break authority.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	httpclient "github.com/ozarkdata/parcelsync/internal/client/api"
	"github.com/ozarkdata/parcelsync/internal/client/netretry"
	"github.com/ozarkdata/parcelsync/internal/client/storage"
	"github.com/ozarkdata/parcelsync/internal/models"
	"github.com/ozarkdata/parcelsync/internal/syncerr"
	"github.com/ozarkdata/parcelsync/pkg/api"
)

//go:generate go tool moq -out service_mock.go . Service

// Service runs sync rounds against the server.
type Service interface {
	// Sync picks the round type: a full sync if the device has never
	// synced, a delta sync otherwise
	Sync(ctx context.Context) (*Result, error)

	// DeltaSync exchanges changes accumulated since the last checkpoint
	DeltaSync(ctx context.Context) (*Result, error)

	// FullSync downloads and re-verifies the complete record set
	FullSync(ctx context.Context) (*Result, error)

	// PendingCount returns the number of local changes awaiting upload
	PendingCount(ctx context.Context) (int, error)
}

// Runner dispatches requests through the network resilience layer.
type Runner interface {
	Execute(ctx context.Context, req netretry.Request) error
}

// ResolvedConflict reports how one concurrent edit was settled.
type ResolvedConflict struct {
	LocalTimestamp    time.Time
	RemoteTimestamp   time.Time
	ParcelID          string
	ConflictingFields []string
	RemoteWon         bool
}

// Result summarizes one sync round.
type Result struct {
	Status     api.SyncStatus
	Conflicts  []ResolvedConflict
	Rejections []api.RejectedChange
	Pushed     int
	Pulled     int
	Applied    int
	Rejected   int
}

type service struct {
	apiClient        httpclient.SyncAPI
	parcels          storage.ParcelStore
	changes          storage.ChangeLog
	checkpoints      storage.CheckpointStore
	auth             storage.AuthStore
	runner           Runner
	logger           *slog.Logger
	deviceID         string
	algorithmVersion string
	appVersion       string
	mu               gosync.Mutex
}

// Config carries the device identity baked into every sync request.
type Config struct {
	DeviceID         string
	AlgorithmVersion string
	AppVersion       string
}

// NewService creates a sync service.
func NewService(
	apiClient httpclient.SyncAPI,
	parcels storage.ParcelStore,
	changes storage.ChangeLog,
	checkpoints storage.CheckpointStore,
	auth storage.AuthStore,
	runner Runner,
	cfg Config,
	logger *slog.Logger,
) Service {
	return &service{
		apiClient:        apiClient,
		parcels:          parcels,
		changes:          changes,
		checkpoints:      checkpoints,
		auth:             auth,
		runner:           runner,
		logger:           logger,
		deviceID:         cfg.DeviceID,
		algorithmVersion: cfg.AlgorithmVersion,
		appVersion:       cfg.AppVersion,
	}
}

// Sync runs a full sync if the device has never synced, a delta sync
// otherwise.
func (s *service) Sync(ctx context.Context) (*Result, error) {
	if !s.mu.TryLock() {
		return nil, syncerr.ErrSyncInFlight
	}
	defer s.mu.Unlock()

	_, err := s.checkpoints.GetCheckpoint(ctx)
	if errors.Is(err, storage.ErrCheckpointNotFound) {
		return s.fullSync(ctx)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	}
	return s.deltaSync(ctx)
}

// DeltaSync exchanges changes accumulated since the last checkpoint.
func (s *service) DeltaSync(ctx context.Context) (*Result, error) {
	if !s.mu.TryLock() {
		return nil, syncerr.ErrSyncInFlight
	}
	defer s.mu.Unlock()
	return s.deltaSync(ctx)
}

// FullSync downloads and re-verifies the complete record set.
func (s *service) FullSync(ctx context.Context) (*Result, error) {
	if !s.mu.TryLock() {
		return nil, syncerr.ErrSyncInFlight
	}
	defer s.mu.Unlock()
	return s.fullSync(ctx)
}

// PendingCount returns the number of local changes awaiting upload.
func (s *service) PendingCount(ctx context.Context) (int, error) {
	return s.changes.PendingCount(ctx)
}

func (s *service) deltaSync(ctx context.Context) (*Result, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	var lastSync time.Time
	cp, err := s.checkpoints.GetCheckpoint(ctx)
	switch {
	case errors.Is(err, storage.ErrCheckpointNotFound):
		// First delta without a checkpoint pulls everything since epoch.
	case err != nil:
		return nil, fmt.Errorf("failed to read checkpoint: %w", err)
	default:
		lastSync = cp.LastSyncTimestamp
	}

	pending, err := s.changes.PendingChanges(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to collect pending changes: %w", err)
	}

	s.logger.Info("Starting delta sync",
		"device_id", s.deviceID,
		"pending_changes", len(pending),
		"last_sync", lastSync)

	req := api.DeltaSyncRequest{
		DeviceID:          s.deviceID,
		LastSyncTimestamp: lastSync,
		AlgorithmVersion:  s.algorithmVersion,
		AppVersion:        s.appVersion,
		Changes:           changesToAPI(pending),
	}

	var resp *api.DeltaSyncResponse
	err = s.runner.Execute(ctx, netretry.Request{
		Name:     "delta-sync",
		Priority: netretry.PriorityHigh,
		Policy:   netretry.DefaultExponential(),
		Do: func(ctx context.Context) error {
			var doErr error
			resp, doErr = s.apiClient.DeltaSync(ctx, token, req)
			return doErr
		},
	})
	if err != nil {
		return nil, err
	}

	// The compatibility gate runs before any data is touched. An
	// incompatible response leaves the store and checkpoint exactly as
	// they were.
	if !resp.AlgorithmCompatible {
		return nil, &syncerr.AlgorithmMismatchError{Message: resp.AlgorithmValidationMessage}
	}

	result := &Result{
		Status:     resp.SyncStatus,
		Pushed:     len(pending),
		Pulled:     len(resp.ServerChanges),
		Applied:    resp.ChangesApplied,
		Rejected:   resp.ChangesRejected,
		Rejections: resp.RejectedDetails,
	}

	batch := storage.ServerBatch{
		Checkpoint: &models.SyncCheckpoint{
			LastSyncTimestamp: resp.NewSyncTimestamp,
			DeviceID:          s.deviceID,
			AlgorithmVersion:  s.algorithmVersion,
			AppVersion:        s.appVersion,
		},
	}

	for _, conflict := range resp.Conflicts {
		resolved := s.resolveConflict(conflict)
		result.Conflicts = append(result.Conflicts, resolved)
		if resolved.RemoteWon {
			batch.Upserts = append(batch.Upserts, &models.Parcel{
				ID:        conflict.ParcelID,
				Payload:   conflict.RemotePayload,
				UpdatedAt: conflict.RemoteTimestamp,
				UpdatedBy: "server",
			})
		}
	}

	for _, change := range resp.ServerChanges {
		apply, err := s.remoteWins(ctx, change)
		if err != nil {
			return nil, err
		}
		if !apply {
			continue
		}
		if change.Operation == api.OpDelete {
			batch.Tombstones = append(batch.Tombstones, change.ParcelID)
			continue
		}
		batch.Upserts = append(batch.Upserts, &models.Parcel{
			ID:        change.ParcelID,
			Payload:   change.Payload,
			UpdatedAt: change.Timestamp,
			CreatedAt: change.Timestamp,
			UpdatedBy: change.DeviceID,
		})
	}

	if err := s.parcels.ApplyServerBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to apply server changes: %w", err)
	}

	// The server has ruled on every pushed change; rejected ones are
	// surfaced in the result rather than replayed.
	if len(pending) > 0 {
		ids := make([]string, 0, len(pending))
		for _, change := range pending {
			ids = append(ids, change.ID)
		}
		if err := s.changes.AcknowledgeChanges(ctx, ids); err != nil {
			s.logger.Warn("Failed to prune acknowledged changes", "error", err)
		}
	}

	s.logger.Info("Delta sync completed",
		"status", string(result.Status),
		"pushed", result.Pushed,
		"pulled", result.Pulled,
		"applied", result.Applied,
		"rejected", result.Rejected,
		"conflicts", len(result.Conflicts))

	return result, nil
}

func (s *service) fullSync(ctx context.Context) (*Result, error) {
	token, err := s.accessToken(ctx)
	if err != nil {
		return nil, err
	}

	s.logger.Info("Starting full sync", "device_id", s.deviceID)

	req := api.FullSyncRequest{
		DeviceID:         s.deviceID,
		AlgorithmVersion: s.algorithmVersion,
		AppVersion:       s.appVersion,
		IncludeDeleted:   true,
	}

	var resp *api.FullSyncResponse
	err = s.runner.Execute(ctx, netretry.Request{
		Name:     "full-sync",
		Priority: netretry.PriorityHigh,
		Policy:   netretry.DefaultExponential(),
		Do: func(ctx context.Context) error {
			var doErr error
			resp, doErr = s.apiClient.FullSync(ctx, token, req)
			return doErr
		},
	})
	if err != nil {
		return nil, err
	}

	if !resp.AlgorithmCompatible {
		return nil, &syncerr.AlgorithmMismatchError{Message: resp.AlgorithmValidationMessage}
	}

	batch := storage.ServerBatch{
		MarkPendingVerification: true,
		Tombstones:              resp.DeletedParcelIDs,
		Checkpoint: &models.SyncCheckpoint{
			LastSyncTimestamp: resp.SyncTimestamp,
			DeviceID:          s.deviceID,
			AlgorithmVersion:  s.algorithmVersion,
			AppVersion:        s.appVersion,
		},
	}
	for _, record := range resp.Parcels {
		batch.Upserts = append(batch.Upserts, &models.Parcel{
			ID:        record.ParcelID,
			Payload:   record.Payload,
			UpdatedAt: record.UpdatedAt,
			CreatedAt: record.UpdatedAt,
			UpdatedBy: "server",
			Deleted:   record.Deleted,
		})
	}

	if err := s.parcels.ApplyServerBatch(ctx, batch); err != nil {
		return nil, fmt.Errorf("failed to apply full sync: %w", err)
	}

	result := &Result{
		Status:  api.SyncStatusSuccess,
		Pulled:  len(resp.Parcels),
		Applied: len(resp.Parcels),
	}

	s.logger.Info("Full sync completed",
		"pulled", result.Pulled,
		"deleted", len(resp.DeletedParcelIDs),
		"total_parcels", resp.TotalParcels)

	return result, nil
}

// accessToken loads the stored device credential. A missing credential is an
// authentication failure, never retried.
func (s *service) accessToken(ctx context.Context) (string, error) {
	auth, err := s.auth.GetDeviceAuth(ctx)
	if errors.Is(err, storage.ErrAuthNotFound) {
		return "", fmt.Errorf("%w: device is not registered", syncerr.ErrAuthenticationFailed)
	}
	if err != nil {
		return "", fmt.Errorf("failed to load device auth: %w", err)
	}
	return auth.AccessToken, nil
}

// resolveConflict settles a concurrent edit with last-write-wins. Equal
// timestamps go to the remote side: the server is the tie-break authority.
func (s *service) resolveConflict(conflict api.SyncConflict) ResolvedConflict {
	remoteWon := !conflict.RemoteTimestamp.Before(conflict.LocalTimestamp)

	s.logger.Info("Resolved sync conflict",
		"parcel_id", conflict.ParcelID,
		"remote_won", remoteWon,
		"fields", conflict.ConflictingFields)

	return ResolvedConflict{
		ParcelID:          conflict.ParcelID,
		LocalTimestamp:    conflict.LocalTimestamp,
		RemoteTimestamp:   conflict.RemoteTimestamp,
		ConflictingFields: conflict.ConflictingFields,
		RemoteWon:         remoteWon,
	}
}

// remoteWins reports whether a server change should overwrite the local
// record. A strictly newer local record is kept; ties go to the server.
func (s *service) remoteWins(ctx context.Context, change api.ParcelChange) (bool, error) {
	local, err := s.parcels.GetParcel(ctx, change.ParcelID)
	if errors.Is(err, storage.ErrParcelNotFound) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to load parcel %s: %w", change.ParcelID, err)
	}
	return !local.UpdatedAt.After(change.Timestamp), nil
}

func changesToAPI(changes []*models.ChangeRecord) []api.ParcelChange {
	out := make([]api.ParcelChange, 0, len(changes))
	for _, change := range changes {
		out = append(out, api.ParcelChange{
			ParcelID:  change.ParcelID,
			Operation: api.ChangeOperation(change.Operation),
			Payload:   change.Payload,
			Timestamp: change.Timestamp,
			DeviceID:  change.OriginDeviceID,
		})
	}
	return out
}
