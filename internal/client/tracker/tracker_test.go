package tracker

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozarkdata/parcelsync/internal/client/storage"
	"github.com/ozarkdata/parcelsync/internal/client/storage/boltdb"
	"github.com/ozarkdata/parcelsync/internal/models"
)

func newTestTracker(t *testing.T) (*Tracker, *boltdb.Storage) {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	store, err := boltdb.New(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = store.Close()
	})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return New(store, store, "device-1", logger), store
}

func TestTracker_RecordUpsert_Create(t *testing.T) {
	tr, store := newTestTracker(t)
	ctx := context.Background()

	parcel, err := tr.RecordUpsert(ctx, "parcel-1", map[string]any{"county": "Marion"})
	require.NoError(t, err)
	assert.Equal(t, "device-1", parcel.UpdatedBy)
	assert.False(t, parcel.CreatedAt.IsZero())

	got, err := store.GetParcel(ctx, "parcel-1")
	require.NoError(t, err)
	assert.Equal(t, "Marion", got.Payload["county"])

	pending, err := tr.PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, models.OpCreate, pending[0].Operation)
	assert.Equal(t, "parcel-1", pending[0].ParcelID)
	assert.NotEmpty(t, pending[0].ID)
}

func TestTracker_RecordUpsert_Update(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.RecordUpsert(ctx, "parcel-1", map[string]any{"status": "delinquent"})
	require.NoError(t, err)

	updated, err := tr.RecordUpsert(ctx, "parcel-1", map[string]any{"status": "redeemed"})
	require.NoError(t, err)
	assert.Equal(t, "redeemed", updated.Payload["status"])

	pending, err := tr.PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, models.OpCreate, pending[0].Operation)
	assert.Equal(t, models.OpUpdate, pending[1].Operation)
}

func TestTracker_RecordUpsert_RevivesTombstone(t *testing.T) {
	tr, store := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.RecordUpsert(ctx, "parcel-1", map[string]any{"county": "Marion"})
	require.NoError(t, err)
	require.NoError(t, tr.RecordDelete(ctx, "parcel-1"))

	revived, err := tr.RecordUpsert(ctx, "parcel-1", map[string]any{"county": "Marion"})
	require.NoError(t, err)
	assert.False(t, revived.Deleted)

	got, err := store.GetParcel(ctx, "parcel-1")
	require.NoError(t, err)
	assert.False(t, got.Deleted)

	pending, err := tr.PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	assert.Equal(t, models.OpCreate, pending[2].Operation)
}

func TestTracker_RecordDelete(t *testing.T) {
	tr, store := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.RecordUpsert(ctx, "parcel-1", map[string]any{"county": "Marion"})
	require.NoError(t, err)
	require.NoError(t, tr.RecordDelete(ctx, "parcel-1"))

	got, err := store.GetParcel(ctx, "parcel-1")
	require.NoError(t, err)
	assert.True(t, got.Deleted)

	count, err := tr.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestTracker_RecordDelete_NotFound(t *testing.T) {
	tr, _ := newTestTracker(t)

	err := tr.RecordDelete(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrParcelNotFound)
}

func TestTracker_Acknowledge(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	_, err := tr.RecordUpsert(ctx, "parcel-1", map[string]any{"a": 1})
	require.NoError(t, err)
	_, err = tr.RecordUpsert(ctx, "parcel-2", map[string]any{"b": 2})
	require.NoError(t, err)

	pending, err := tr.PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 2)

	require.NoError(t, tr.Acknowledge(ctx, []string{pending[0].ID}))

	count, err := tr.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestTracker_TimestampsAdvance(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()

	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	calls := 0
	tr.now = func() time.Time {
		calls++
		return base.Add(time.Duration(calls) * time.Second)
	}

	first, err := tr.RecordUpsert(ctx, "parcel-1", map[string]any{"v": 1})
	require.NoError(t, err)
	second, err := tr.RecordUpsert(ctx, "parcel-1", map[string]any{"v": 2})
	require.NoError(t, err)

	assert.True(t, second.UpdatedAt.After(first.UpdatedAt))
	assert.True(t, first.CreatedAt.Equal(second.CreatedAt))
}
