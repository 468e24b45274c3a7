package storage

import (
	"context"

	"github.com/ozarkdata/parcelsync/internal/models"
)

//go:generate go tool moq -out changelog_mock.go . ChangeLog

// ChangeLog buffers local mutations until a sync round acknowledges them.
type ChangeLog interface {
	// AppendChange records a local mutation. Records are immutable once
	// written.
	AppendChange(ctx context.Context, change *models.ChangeRecord) error

	// PendingChanges returns all unacknowledged changes in mutation order
	PendingChanges(ctx context.Context) ([]*models.ChangeRecord, error)

	// PendingCount returns the number of unacknowledged changes
	PendingCount(ctx context.Context) (int, error)

	// AcknowledgeChanges removes changes accepted by the server
	AcknowledgeChanges(ctx context.Context, ids []string) error
}
