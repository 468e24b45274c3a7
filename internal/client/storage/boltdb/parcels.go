package boltdb

import (
	"context"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/ozarkdata/parcelsync/internal/client/storage"
	"github.com/ozarkdata/parcelsync/internal/models"
)

// SaveParcel stores or replaces a parcel in BoltDB
func (s *Storage) SaveParcel(ctx context.Context, parcel *models.Parcel) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	data, err := json.Marshal(parcel)
	if err != nil {
		return fmt.Errorf("failed to marshal parcel: %w", err)
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketParcels).Put([]byte(parcel.ID), data)
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	return nil
}

// GetParcel retrieves a parcel by ID
func (s *Storage) GetParcel(ctx context.Context, id string) (*models.Parcel, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var parcel *models.Parcel

	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketParcels).Get([]byte(id))
		if data == nil {
			return storage.ErrParcelNotFound
		}

		parcel = &models.Parcel{}
		if err := json.Unmarshal(data, parcel); err != nil {
			return fmt.Errorf("failed to unmarshal parcel: %w", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return parcel, nil
}

// ListParcels returns all parcels, optionally including tombstoned ones
func (s *Storage) ListParcels(ctx context.Context, includeDeleted bool) ([]*models.Parcel, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var parcels []*models.Parcel

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketParcels).ForEach(func(k, v []byte) error {
			var parcel models.Parcel
			if err := json.Unmarshal(v, &parcel); err != nil {
				return fmt.Errorf("failed to unmarshal parcel: %w", err)
			}
			if parcel.Deleted && !includeDeleted {
				return nil
			}
			parcels = append(parcels, &parcel)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list parcels: %w", err)
	}

	return parcels, nil
}

// TombstoneParcel marks a parcel as deleted and records the change in the
// same transaction, so the tombstone and its change record never diverge.
func (s *Storage) TombstoneParcel(ctx context.Context, id string, change *models.ChangeRecord) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketParcels)
		data := bucket.Get([]byte(id))
		if data == nil {
			return storage.ErrParcelNotFound
		}

		var parcel models.Parcel
		if err := json.Unmarshal(data, &parcel); err != nil {
			return fmt.Errorf("failed to unmarshal parcel: %w", err)
		}

		parcel.Deleted = true
		parcel.UpdatedAt = change.Timestamp
		parcel.UpdatedBy = change.OriginDeviceID

		updated, err := json.Marshal(&parcel)
		if err != nil {
			return fmt.Errorf("failed to marshal parcel: %w", err)
		}
		if err := bucket.Put([]byte(id), updated); err != nil {
			return fmt.Errorf("failed to save tombstone: %w", err)
		}

		return appendChangeTx(tx, change)
	})
	if err != nil {
		return err
	}

	return nil
}

// ApplyServerBatch applies one sync round atomically: server upserts,
// tombstones, the pending-verification pass for full syncs, and the new
// checkpoint all commit or roll back together.
func (s *Storage) ApplyServerBatch(ctx context.Context, batch storage.ServerBatch) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketParcels)

		if batch.MarkPendingVerification {
			if err := markAllPendingTx(bucket); err != nil {
				return err
			}
		}

		for _, parcel := range batch.Upserts {
			p := parcel.Clone()
			p.PendingVerification = false

			// A remote update never rewrites the local creation time.
			if prev := bucket.Get([]byte(p.ID)); prev != nil {
				var existing models.Parcel
				if err := json.Unmarshal(prev, &existing); err != nil {
					return fmt.Errorf("failed to unmarshal parcel %s: %w", p.ID, err)
				}
				if !existing.CreatedAt.IsZero() {
					p.CreatedAt = existing.CreatedAt
				}
			} else if p.CreatedAt.IsZero() {
				p.CreatedAt = p.UpdatedAt
			}

			data, err := json.Marshal(p)
			if err != nil {
				return fmt.Errorf("failed to marshal parcel %s: %w", p.ID, err)
			}
			if err := bucket.Put([]byte(p.ID), data); err != nil {
				return fmt.Errorf("failed to upsert parcel %s: %w", p.ID, err)
			}
		}

		for _, id := range batch.Tombstones {
			if err := bucket.Delete([]byte(id)); err != nil {
				return fmt.Errorf("failed to delete parcel %s: %w", id, err)
			}
		}

		if batch.Checkpoint != nil {
			if err := saveCheckpointTx(tx, batch.Checkpoint); err != nil {
				return err
			}
		}

		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to apply server batch: %w", err)
	}

	return nil
}

// markAllPendingTx flags every stored parcel as pending verification.
// Writes happen after the cursor scan: mutating a bucket invalidates an
// open cursor.
func markAllPendingTx(bucket *bbolt.Bucket) error {
	type update struct {
		key  []byte
		data []byte
	}
	var updates []update

	cursor := bucket.Cursor()
	for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
		var parcel models.Parcel
		if err := json.Unmarshal(v, &parcel); err != nil {
			return fmt.Errorf("failed to unmarshal parcel: %w", err)
		}
		if parcel.PendingVerification {
			continue
		}
		parcel.PendingVerification = true
		data, err := json.Marshal(&parcel)
		if err != nil {
			return fmt.Errorf("failed to marshal parcel: %w", err)
		}
		key := make([]byte, len(k))
		copy(key, k)
		updates = append(updates, update{key: key, data: data})
	}

	for _, u := range updates {
		if err := bucket.Put(u.key, u.data); err != nil {
			return fmt.Errorf("failed to mark parcel: %w", err)
		}
	}
	return nil
}

// Clear removes all parcels from storage
func (s *Storage) Clear(ctx context.Context) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		if err := tx.DeleteBucket(bucketParcels); err != nil {
			return fmt.Errorf("failed to delete parcels bucket: %w", err)
		}
		if _, err := tx.CreateBucket(bucketParcels); err != nil {
			return fmt.Errorf("failed to recreate parcels bucket: %w", err)
		}
		return nil
	})
}
