package storage

import (
	"context"

	"github.com/ozarkdata/parcelsync/internal/models"
)

//go:generate go tool moq -out parcels_mock.go . ParcelStore

// ServerBatch is the outcome of one sync round, applied to the local store
// in a single transaction. A failed application leaves the previous
// checkpoint and every local record untouched.
type ServerBatch struct {
	Checkpoint *models.SyncCheckpoint
	Upserts    []*models.Parcel
	Tombstones []string

	// MarkPendingVerification runs the full-sync protocol: before applying
	// the batch every local record is marked pending-verification, and each
	// upserted record is unmarked. Records absent from the batch stay marked.
	MarkPendingVerification bool
}

// ParcelStore is the local parcel table.
type ParcelStore interface {
	// SaveParcel stores or replaces a parcel
	SaveParcel(ctx context.Context, parcel *models.Parcel) error

	// GetParcel retrieves a parcel by ID
	// Returns ErrParcelNotFound if the parcel doesn't exist
	GetParcel(ctx context.Context, id string) (*models.Parcel, error)

	// ListParcels returns all parcels; deleted (tombstoned) records are
	// included only when includeDeleted is true
	ListParcels(ctx context.Context, includeDeleted bool) ([]*models.Parcel, error)

	// TombstoneParcel marks a parcel as deleted (soft delete)
	TombstoneParcel(ctx context.Context, id string, change *models.ChangeRecord) error

	// ApplyServerBatch applies a sync round's server changes and the new
	// checkpoint atomically
	ApplyServerBatch(ctx context.Context, batch ServerBatch) error

	// Clear removes all parcels. Used for testing and full re-sync
	Clear(ctx context.Context) error
}
