package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/ozarkdata/parcelsync/internal/client/storage"
	"github.com/ozarkdata/parcelsync/internal/models"
)

// checkpointKey is the single key holding the device's sync checkpoint.
var checkpointKey = []byte("current")

// SaveCheckpoint persists the sync checkpoint
func (s *Storage) SaveCheckpoint(ctx context.Context, cp *models.SyncCheckpoint) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return saveCheckpointTx(tx, cp)
	})
	if err != nil {
		return fmt.Errorf("failed to save checkpoint: %w", err)
	}

	return nil
}

func saveCheckpointTx(tx *bbolt.Tx, cp *models.SyncCheckpoint) error {
	data, err := json.Marshal(cp)
	if err != nil {
		return fmt.Errorf("failed to marshal checkpoint: %w", err)
	}
	return tx.Bucket(bucketCheckpoint).Put(checkpointKey, data)
}

// GetCheckpoint retrieves the current sync checkpoint
func (s *Storage) GetCheckpoint(ctx context.Context) (*models.SyncCheckpoint, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var cp *models.SyncCheckpoint

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketCheckpoint).Get(checkpointKey)
		if data == nil {
			return storage.ErrCheckpointNotFound
		}

		cp = &models.SyncCheckpoint{}
		if err := json.Unmarshal(data, cp); err != nil {
			return fmt.Errorf("failed to unmarshal checkpoint: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return cp, nil
}
