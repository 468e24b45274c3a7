package storage

import (
	"context"
	"time"
)

// SyncLogEntry is one audit record of a sync round.
type SyncLogEntry struct {
	CreatedAt       time.Time
	DeviceID        string
	SyncType        string // "delta" or "full"
	ChangesApplied  int
	ChangesRejected int
	Conflicts       int
}

// SyncLogStorage records sync rounds for auditing.
type SyncLogStorage interface {
	// RecordSync appends one sync round to the log
	RecordSync(ctx context.Context, entry *SyncLogEntry) error

	// DeviceHistory returns the most recent sync rounds for a device,
	// newest first
	DeviceHistory(ctx context.Context, deviceID string, limit int) ([]*SyncLogEntry, error)
}
