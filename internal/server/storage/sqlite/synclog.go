package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/ozarkdata/parcelsync/internal/server/storage"
)

// RecordSync appends one sync round to the audit log
func (s *Storage) RecordSync(ctx context.Context, entry *storage.SyncLogEntry) error {
	query := `
		INSERT INTO sync_log (device_id, sync_type, changes_applied, changes_rejected, conflicts, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		entry.DeviceID,
		entry.SyncType,
		entry.ChangesApplied,
		entry.ChangesRejected,
		entry.Conflicts,
		entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to record sync: %w", err)
	}
	return nil
}

// DeviceHistory returns the most recent sync rounds for a device
func (s *Storage) DeviceHistory(ctx context.Context, deviceID string, limit int) ([]*storage.SyncLogEntry, error) {
	query := `
		SELECT device_id, sync_type, changes_applied, changes_rejected, conflicts, created_at
		FROM sync_log
		WHERE device_id = ?
		ORDER BY created_at DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, deviceID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query sync log: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var entries []*storage.SyncLogEntry
	for rows.Next() {
		entry := &storage.SyncLogEntry{}
		var createdAt int64
		err := rows.Scan(
			&entry.DeviceID,
			&entry.SyncType,
			&entry.ChangesApplied,
			&entry.ChangesRejected,
			&entry.Conflicts,
			&createdAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan sync log entry: %w", err)
		}
		entry.CreatedAt = time.Unix(0, createdAt)
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return entries, nil
}
