package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ozarkdata/parcelsync/internal/server/storage"
)

// SaveDevice creates or replaces a device registration
func (s *Storage) SaveDevice(ctx context.Context, device *storage.Device) error {
	query := `
		INSERT INTO devices (device_id, account_key_hash, app_version, registered_at, last_seen_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			account_key_hash = excluded.account_key_hash,
			app_version = excluded.app_version,
			last_seen_at = excluded.last_seen_at
	`

	_, err := s.db.ExecContext(ctx, query,
		device.DeviceID,
		device.AccountKeyHash,
		device.AppVersion,
		device.RegisteredAt.UnixNano(),
		device.LastSeenAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to save device: %w", err)
	}
	return nil
}

// GetDevice retrieves a device by ID
func (s *Storage) GetDevice(ctx context.Context, deviceID string) (*storage.Device, error) {
	query := `
		SELECT device_id, account_key_hash, app_version, registered_at, last_seen_at
		FROM devices
		WHERE device_id = ?
	`

	device := &storage.Device{}
	var registeredAt, lastSeenAt int64

	err := s.db.QueryRowContext(ctx, query, deviceID).Scan(
		&device.DeviceID,
		&device.AccountKeyHash,
		&device.AppVersion,
		&registeredAt,
		&lastSeenAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, storage.ErrDeviceNotFound
		}
		return nil, fmt.Errorf("failed to get device: %w", err)
	}

	device.RegisteredAt = time.Unix(0, registeredAt)
	device.LastSeenAt = time.Unix(0, lastSeenAt)
	return device, nil
}

// TouchDevice updates the device's last-seen time
func (s *Storage) TouchDevice(ctx context.Context, deviceID string, at time.Time) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE devices SET last_seen_at = ? WHERE device_id = ?`,
		at.UnixNano(), deviceID)
	if err != nil {
		return fmt.Errorf("failed to touch device: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return storage.ErrDeviceNotFound
	}
	return nil
}
