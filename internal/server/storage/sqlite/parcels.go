package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ozarkdata/parcelsync/internal/server/storage"
)

// UpsertParcel applies a change with last-write-wins semantics. Timestamps
// are stored as unix nanoseconds so sub-second writes order correctly.
// The comparison and the write are one conditional statement, so two
// concurrent syncs for the same parcel cannot interleave a read and a
// write: the older timestamp loses regardless of arrival order, and the
// stored row wins ties.
func (s *Storage) UpsertParcel(ctx context.Context, row *storage.ParcelRow) (bool, error) {
	payload, err := json.Marshal(row.Payload)
	if err != nil {
		return false, fmt.Errorf("failed to marshal payload: %w", err)
	}

	query := `
		INSERT INTO parcels (id, payload, updated_at, updated_by, deleted)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			payload = excluded.payload,
			updated_at = excluded.updated_at,
			updated_by = excluded.updated_by,
			deleted = excluded.deleted
		WHERE excluded.updated_at > parcels.updated_at
	`
	result, err := s.db.ExecContext(ctx, query,
		row.ID,
		string(payload),
		row.UpdatedAt.UnixNano(),
		row.UpdatedBy,
		boolToInt(row.Deleted),
	)
	if err != nil {
		return false, fmt.Errorf("failed to upsert parcel: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return affected > 0, nil
}

// GetParcel retrieves a parcel by ID, tombstoned rows included
func (s *Storage) GetParcel(ctx context.Context, id string) (*storage.ParcelRow, error) {
	query := `
		SELECT id, payload, updated_at, updated_by, deleted
		FROM parcels
		WHERE id = ?
	`

	row, err := scanParcel(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrParcelNotFound
		}
		return nil, fmt.Errorf("failed to get parcel: %w", err)
	}
	return row, nil
}

// ChangesSince returns all rows modified after the given time, excluding
// rows last written by excludeDevice
func (s *Storage) ChangesSince(ctx context.Context, since time.Time, excludeDevice string) ([]*storage.ParcelRow, error) {
	query := `
		SELECT id, payload, updated_at, updated_by, deleted
		FROM parcels
		WHERE updated_at > ? AND updated_by != ?
		ORDER BY updated_at ASC
	`

	rows, err := s.db.QueryContext(ctx, query, since.UnixNano(), excludeDevice)
	if err != nil {
		return nil, fmt.Errorf("failed to query changes: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanParcels(rows)
}

// ListParcels returns all rows, tombstoned rows only when includeDeleted
func (s *Storage) ListParcels(ctx context.Context, includeDeleted bool) ([]*storage.ParcelRow, error) {
	query := `
		SELECT id, payload, updated_at, updated_by, deleted
		FROM parcels
		ORDER BY id ASC
	`
	if !includeDeleted {
		query = `
			SELECT id, payload, updated_at, updated_by, deleted
			FROM parcels
			WHERE deleted = 0
			ORDER BY id ASC
		`
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query parcels: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	return scanParcels(rows)
}

// DeletedParcelIDs returns the IDs of all tombstoned rows
func (s *Storage) DeletedParcelIDs(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM parcels WHERE deleted = 1 ORDER BY id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query deleted parcels: %w", err)
	}
	defer func() {
		_ = rows.Close()
	}()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan parcel id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return ids, nil
}

// MarkDeleted tombstones a parcel with the given timestamp
func (s *Storage) MarkDeleted(ctx context.Context, id string, timestamp time.Time, deviceID string) error {
	query := `
		UPDATE parcels
		SET deleted = 1, updated_at = ?, updated_by = ?
		WHERE id = ?
	`

	result, err := s.db.ExecContext(ctx, query, timestamp.UnixNano(), deviceID, id)
	if err != nil {
		return fmt.Errorf("failed to mark parcel deleted: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrParcelNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanParcel(scanner rowScanner) (*storage.ParcelRow, error) {
	row := &storage.ParcelRow{}
	var payload string
	var updatedAt int64
	var deleted int

	if err := scanner.Scan(&row.ID, &payload, &updatedAt, &row.UpdatedBy, &deleted); err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(payload), &row.Payload); err != nil {
		return nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	row.UpdatedAt = time.Unix(0, updatedAt)
	row.Deleted = intToBool(deleted)
	return row, nil
}

func scanParcels(rows *sql.Rows) ([]*storage.ParcelRow, error) {
	var parcels []*storage.ParcelRow
	for rows.Next() {
		row, err := scanParcel(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan parcel: %w", err)
		}
		parcels = append(parcels, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration error: %w", err)
	}
	return parcels, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

func intToBool(i int) bool {
	return i != 0
}
