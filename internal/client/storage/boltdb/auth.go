package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/ozarkdata/parcelsync/internal/client/storage"
	"github.com/ozarkdata/parcelsync/internal/models"
)

// authKey is the single key holding the device credential.
var authKey = []byte("device")

// SaveDeviceAuth stores the device credential
func (s *Storage) SaveDeviceAuth(ctx context.Context, auth *models.DeviceAuth) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(auth)
	if err != nil {
		return fmt.Errorf("failed to marshal device auth: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAuth).Put(authKey, data)
	})
	if err != nil {
		return fmt.Errorf("failed to save device auth: %w", err)
	}

	return nil
}

// GetDeviceAuth retrieves the stored device credential
func (s *Storage) GetDeviceAuth(ctx context.Context) (*models.DeviceAuth, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var auth *models.DeviceAuth

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketAuth).Get(authKey)
		if data == nil {
			return storage.ErrAuthNotFound
		}

		auth = &models.DeviceAuth{}
		if err := json.Unmarshal(data, auth); err != nil {
			return fmt.Errorf("failed to unmarshal device auth: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return auth, nil
}

// DeleteDeviceAuth removes the stored device credential
func (s *Storage) DeleteDeviceAuth(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketAuth).Delete(authKey)
	})
}
