// Package tracker records local parcel mutations so they can be replayed to
// the server on the next sync round. Every write goes through the tracker;
// writing to the parcel store directly would bypass the changelog.
package tracker

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/ozarkdata/parcelsync/internal/client/storage"
	"github.com/ozarkdata/parcelsync/internal/models"
)

// Tracker pairs parcel writes with changelog records.
type Tracker struct {
	parcels  storage.ParcelStore
	changes  storage.ChangeLog
	logger   *slog.Logger
	deviceID string
	now      func() time.Time
}

// New creates a change tracker for the given device.
func New(parcels storage.ParcelStore, changes storage.ChangeLog, deviceID string, logger *slog.Logger) *Tracker {
	return &Tracker{
		parcels:  parcels,
		changes:  changes,
		logger:   logger,
		deviceID: deviceID,
		now:      time.Now,
	}
}

// RecordUpsert saves a parcel payload locally and appends the matching change
// record. The operation is create or update depending on whether the parcel
// already exists.
func (t *Tracker) RecordUpsert(ctx context.Context, parcelID string, payload map[string]any) (*models.Parcel, error) {
	now := t.now().UTC()
	op := models.OpUpdate

	parcel, err := t.parcels.GetParcel(ctx, parcelID)
	switch {
	case errors.Is(err, storage.ErrParcelNotFound):
		op = models.OpCreate
		parcel = &models.Parcel{
			ID:        parcelID,
			CreatedAt: now,
		}
	case err != nil:
		return nil, fmt.Errorf("failed to load parcel: %w", err)
	case parcel.Deleted:
		// Re-creating a tombstoned parcel revives it.
		op = models.OpCreate
		parcel.Deleted = false
	}

	parcel.Payload = payload
	parcel.UpdatedAt = now
	parcel.UpdatedBy = t.deviceID
	parcel.PendingVerification = false

	if err := t.parcels.SaveParcel(ctx, parcel); err != nil {
		return nil, fmt.Errorf("failed to save parcel: %w", err)
	}

	change := &models.ChangeRecord{
		ID:             uuid.New().String(),
		ParcelID:       parcelID,
		Operation:      op,
		Payload:        payload,
		Timestamp:      now,
		OriginDeviceID: t.deviceID,
	}
	if err := t.changes.AppendChange(ctx, change); err != nil {
		return nil, fmt.Errorf("failed to record change: %w", err)
	}

	t.logger.Debug("Recorded local change",
		"parcel_id", parcelID,
		"operation", string(op))

	return parcel, nil
}

// RecordDelete tombstones a parcel and records the deletion.
func (t *Tracker) RecordDelete(ctx context.Context, parcelID string) error {
	change := &models.ChangeRecord{
		ID:             uuid.New().String(),
		ParcelID:       parcelID,
		Operation:      models.OpDelete,
		Timestamp:      t.now().UTC(),
		OriginDeviceID: t.deviceID,
	}

	if err := t.parcels.TombstoneParcel(ctx, parcelID, change); err != nil {
		return fmt.Errorf("failed to tombstone parcel: %w", err)
	}

	t.logger.Debug("Recorded local deletion", "parcel_id", parcelID)
	return nil
}

// PendingChanges returns the unacknowledged local mutations in order.
func (t *Tracker) PendingChanges(ctx context.Context) ([]*models.ChangeRecord, error) {
	return t.changes.PendingChanges(ctx)
}

// PendingCount returns the number of unacknowledged local mutations.
func (t *Tracker) PendingCount(ctx context.Context) (int, error) {
	return t.changes.PendingCount(ctx)
}

// Acknowledge prunes changes the server has accepted.
func (t *Tracker) Acknowledge(ctx context.Context, ids []string) error {
	return t.changes.AcknowledgeChanges(ctx, ids)
}
