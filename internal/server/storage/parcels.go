// Package storage defines the server persistence interfaces.
package storage

import (
	"context"
	"time"
)

// ParcelRow is one parcel record as the server stores it.
type ParcelRow struct {
	UpdatedAt time.Time
	Payload   map[string]any
	ID        string
	UpdatedBy string
	Deleted   bool
}

// ParcelStorage persists the authoritative parcel table.
type ParcelStorage interface {
	// UpsertParcel applies a change with last-write-wins semantics: the
	// row is written only if it is strictly newer than the stored one.
	// Returns false when the stored row wins (stale or concurrent change).
	UpsertParcel(ctx context.Context, row *ParcelRow) (bool, error)

	// GetParcel retrieves a parcel by ID, tombstoned rows included
	// Returns ErrParcelNotFound if the parcel doesn't exist
	GetParcel(ctx context.Context, id string) (*ParcelRow, error)

	// ChangesSince returns all rows (tombstones included) modified after
	// the given time, excluding rows last written by excludeDevice.
	// Ordered by modification time ascending
	ChangesSince(ctx context.Context, since time.Time, excludeDevice string) ([]*ParcelRow, error)

	// ListParcels returns all rows; tombstoned rows only when includeDeleted
	ListParcels(ctx context.Context, includeDeleted bool) ([]*ParcelRow, error)

	// DeletedParcelIDs returns the IDs of all tombstoned rows
	DeletedParcelIDs(ctx context.Context) ([]string, error)

	// MarkDeleted tombstones a parcel with the given timestamp
	// Returns ErrParcelNotFound if the parcel doesn't exist
	MarkDeleted(ctx context.Context, id string, timestamp time.Time, deviceID string) error
}
