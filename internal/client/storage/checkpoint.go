package storage

import (
	"context"

	"github.com/ozarkdata/parcelsync/internal/models"
)

//go:generate go tool moq -out checkpoint_mock.go . CheckpointStore

// CheckpointStore persists the sync checkpoint. The checkpoint is written
// through ParcelStore.ApplyServerBatch during a sync round; the direct
// SaveCheckpoint is for the initial device setup.
type CheckpointStore interface {
	// SaveCheckpoint persists the checkpoint
	SaveCheckpoint(ctx context.Context, cp *models.SyncCheckpoint) error

	// GetCheckpoint retrieves the current checkpoint
	// Returns ErrCheckpointNotFound before the first successful sync
	GetCheckpoint(ctx context.Context) (*models.SyncCheckpoint, error)
}
