// Package boltdb implements the client storage interfaces on BoltDB.
package boltdb

import (
	"context"
	"fmt"

	"go.etcd.io/bbolt"
)

var (
	// BoltDB bucket names
	bucketParcels    = []byte("parcels")
	bucketChangelog  = []byte("changelog")
	bucketCheckpoint = []byte("checkpoint")
	bucketAuth       = []byte("auth")
)

// Storage represents BoltDB storage implementation for the client. One
// instance implements ParcelStore, ChangeLog, CheckpointStore and AuthStore
// over a single database file, which is what lets a sync round commit data
// and checkpoint in one transaction.
type Storage struct {
	db *bbolt.DB
}

// New creates a new BoltDB storage instance
// dbPath is the path to the BoltDB database file
func New(ctx context.Context, dbPath string) (*Storage, error) {
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	storage := &Storage{db: db}

	if err := storage.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return storage, nil
}

// Close closes the database connection
func (s *Storage) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// initBuckets creates the required buckets if they do not exist yet
func (s *Storage) initBuckets() error {
	return s.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketParcels, bucketChangelog, bucketCheckpoint, bucketAuth} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}
