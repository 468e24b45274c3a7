package boltdb

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"

	"go.etcd.io/bbolt"

	"github.com/ozarkdata/parcelsync/internal/client/storage"
	"github.com/ozarkdata/parcelsync/internal/models"
)

// changelogEntry pairs a change record with its stable bucket key so it can
// be acknowledged later.
type changelogEntry struct {
	Change *models.ChangeRecord `json:"change"`
}

// AppendChange records a local mutation in the changelog
func (s *Storage) AppendChange(ctx context.Context, change *models.ChangeRecord) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		return appendChangeTx(tx, change)
	})
	if err != nil {
		return fmt.Errorf("failed to append change: %w", err)
	}

	return nil
}

// appendChangeTx writes one change record under a monotonically increasing
// key, preserving mutation order across the bucket.
func appendChangeTx(tx *bbolt.Tx, change *models.ChangeRecord) error {
	bucket := tx.Bucket(bucketChangelog)

	seq, err := bucket.NextSequence()
	if err != nil {
		return fmt.Errorf("failed to get changelog sequence: %w", err)
	}

	data, err := json.Marshal(changelogEntry{Change: change})
	if err != nil {
		return fmt.Errorf("failed to marshal change record: %w", err)
	}

	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, seq)
	return bucket.Put(key, data)
}

// PendingChanges returns all unacknowledged changes in mutation order
func (s *Storage) PendingChanges(ctx context.Context) ([]*models.ChangeRecord, error) {
	if s.db == nil {
		return nil, storage.ErrStorageClosed
	}

	var changes []*models.ChangeRecord

	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketChangelog).ForEach(func(k, v []byte) error {
			var entry changelogEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal change record: %w", err)
			}
			changes = append(changes, entry.Change)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read changelog: %w", err)
	}

	return changes, nil
}

// PendingCount returns the number of unacknowledged changes
func (s *Storage) PendingCount(ctx context.Context) (int, error) {
	if s.db == nil {
		return 0, storage.ErrStorageClosed
	}

	count := 0
	err := s.db.View(func(tx *bbolt.Tx) error {
		count = tx.Bucket(bucketChangelog).Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}

	return count, nil
}

// AcknowledgeChanges removes changes accepted by the server
func (s *Storage) AcknowledgeChanges(ctx context.Context, ids []string) error {
	if s.db == nil {
		return storage.ErrStorageClosed
	}
	if len(ids) == 0 {
		return nil
	}

	acked := make(map[string]bool, len(ids))
	for _, id := range ids {
		acked[id] = true
	}

	err := s.db.Update(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket(bucketChangelog)
		cursor := bucket.Cursor()

		var stale [][]byte
		for k, v := cursor.First(); k != nil; k, v = cursor.Next() {
			var entry changelogEntry
			if err := json.Unmarshal(v, &entry); err != nil {
				return fmt.Errorf("failed to unmarshal change record: %w", err)
			}
			if acked[entry.Change.ID] {
				key := make([]byte, len(k))
				copy(key, k)
				stale = append(stale, key)
			}
		}

		for _, key := range stale {
			if err := bucket.Delete(key); err != nil {
				return fmt.Errorf("failed to delete change record: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("failed to acknowledge changes: %w", err)
	}

	return nil
}
