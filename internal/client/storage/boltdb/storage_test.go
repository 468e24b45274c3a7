package boltdb

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ozarkdata/parcelsync/internal/client/storage"
	"github.com/ozarkdata/parcelsync/internal/models"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()

	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	t.Cleanup(func() {
		_ = s.Close()
	})

	return s
}

func testParcel(id string, updatedAt time.Time) *models.Parcel {
	return &models.Parcel{
		ID:        id,
		Payload:   map[string]any{"county": "Marion", "acreage": 4.2},
		CreatedAt: updatedAt,
		UpdatedAt: updatedAt,
		UpdatedBy: "device-1",
	}
}

func TestStorage_SaveAndGetParcel(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	now := time.Now().UTC().Truncate(time.Millisecond)
	parcel := testParcel("parcel-1", now)

	require.NoError(t, s.SaveParcel(ctx, parcel))

	got, err := s.GetParcel(ctx, "parcel-1")
	require.NoError(t, err)
	assert.Equal(t, parcel.ID, got.ID)
	assert.Equal(t, "Marion", got.Payload["county"])
	assert.True(t, parcel.UpdatedAt.Equal(got.UpdatedAt))
}

func TestStorage_GetParcel_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetParcel(context.Background(), "missing")
	assert.ErrorIs(t, err, storage.ErrParcelNotFound)
}

func TestStorage_ListParcels_ExcludesTombstones(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	require.NoError(t, s.SaveParcel(ctx, testParcel("parcel-1", now)))
	require.NoError(t, s.SaveParcel(ctx, testParcel("parcel-2", now)))

	change := &models.ChangeRecord{
		ID:             "change-1",
		ParcelID:       "parcel-2",
		Operation:      models.OpDelete,
		Timestamp:      now,
		OriginDeviceID: "device-1",
	}
	require.NoError(t, s.TombstoneParcel(ctx, "parcel-2", change))

	visible, err := s.ListParcels(ctx, false)
	require.NoError(t, err)
	require.Len(t, visible, 1)
	assert.Equal(t, "parcel-1", visible[0].ID)

	all, err := s.ListParcels(ctx, true)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestStorage_TombstoneParcel_RecordsChange(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.SaveParcel(ctx, testParcel("parcel-1", now.Add(-time.Hour))))

	change := &models.ChangeRecord{
		ID:             "change-1",
		ParcelID:       "parcel-1",
		Operation:      models.OpDelete,
		Timestamp:      now,
		OriginDeviceID: "device-9",
	}
	require.NoError(t, s.TombstoneParcel(ctx, "parcel-1", change))

	got, err := s.GetParcel(ctx, "parcel-1")
	require.NoError(t, err)
	assert.True(t, got.Deleted)
	assert.Equal(t, "device-9", got.UpdatedBy)
	assert.True(t, now.Equal(got.UpdatedAt))

	pending, err := s.PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "change-1", pending[0].ID)
}

func TestStorage_TombstoneParcel_NotFound(t *testing.T) {
	s := newTestStorage(t)

	change := &models.ChangeRecord{ID: "change-1", ParcelID: "missing", Operation: models.OpDelete}
	err := s.TombstoneParcel(context.Background(), "missing", change)
	assert.ErrorIs(t, err, storage.ErrParcelNotFound)

	// The failed transaction must not leave a change record behind.
	count, err := s.PendingCount(context.Background())
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestStorage_Changelog_OrderAndAck(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC()

	ids := []string{"change-a", "change-b", "change-c"}
	for i, id := range ids {
		change := &models.ChangeRecord{
			ID:        id,
			ParcelID:  "parcel-1",
			Operation: models.OpUpdate,
			Timestamp: now.Add(time.Duration(i) * time.Second),
		}
		require.NoError(t, s.AppendChange(ctx, change))
	}

	pending, err := s.PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)
	for i, id := range ids {
		assert.Equal(t, id, pending[i].ID)
	}

	require.NoError(t, s.AcknowledgeChanges(ctx, []string{"change-a", "change-c"}))

	pending, err = s.PendingChanges(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, "change-b", pending[0].ID)

	count, err := s.PendingCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStorage_AcknowledgeChanges_Empty(t *testing.T) {
	s := newTestStorage(t)

	assert.NoError(t, s.AcknowledgeChanges(context.Background(), nil))
}

func TestStorage_Checkpoint_RoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetCheckpoint(ctx)
	assert.ErrorIs(t, err, storage.ErrCheckpointNotFound)

	cp := &models.SyncCheckpoint{
		LastSyncTimestamp: time.Now().UTC().Truncate(time.Millisecond),
		DeviceID:          "device-1",
		AlgorithmVersion:  "2.1.0",
		AppVersion:        "1.4.0",
	}
	require.NoError(t, s.SaveCheckpoint(ctx, cp))

	got, err := s.GetCheckpoint(ctx)
	require.NoError(t, err)
	assert.Equal(t, cp.DeviceID, got.DeviceID)
	assert.Equal(t, cp.AlgorithmVersion, got.AlgorithmVersion)
	assert.True(t, cp.LastSyncTimestamp.Equal(got.LastSyncTimestamp))
}

func TestStorage_DeviceAuth_RoundTrip(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	_, err := s.GetDeviceAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)

	auth := &models.DeviceAuth{
		DeviceID:    "device-1",
		AccessToken: "token-abc",
		ExpiresAt:   time.Now().Add(time.Hour).UTC().Truncate(time.Millisecond),
	}
	require.NoError(t, s.SaveDeviceAuth(ctx, auth))

	got, err := s.GetDeviceAuth(ctx)
	require.NoError(t, err)
	assert.Equal(t, "token-abc", got.AccessToken)

	require.NoError(t, s.DeleteDeviceAuth(ctx))
	_, err = s.GetDeviceAuth(ctx)
	assert.ErrorIs(t, err, storage.ErrAuthNotFound)
}

func TestStorage_ApplyServerBatch_Atomic(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	require.NoError(t, s.SaveParcel(ctx, testParcel("parcel-old", now.Add(-time.Hour))))
	require.NoError(t, s.SaveParcel(ctx, testParcel("parcel-gone", now.Add(-time.Hour))))

	batch := storage.ServerBatch{
		Upserts: []*models.Parcel{
			testParcel("parcel-old", now),
			testParcel("parcel-new", now),
		},
		Tombstones: []string{"parcel-gone"},
		Checkpoint: &models.SyncCheckpoint{
			LastSyncTimestamp: now,
			DeviceID:          "device-1",
			AlgorithmVersion:  "2.1.0",
		},
	}
	require.NoError(t, s.ApplyServerBatch(ctx, batch))

	got, err := s.GetParcel(ctx, "parcel-old")
	require.NoError(t, err)
	assert.True(t, now.Equal(got.UpdatedAt))

	_, err = s.GetParcel(ctx, "parcel-new")
	require.NoError(t, err)

	_, err = s.GetParcel(ctx, "parcel-gone")
	assert.ErrorIs(t, err, storage.ErrParcelNotFound)

	cp, err := s.GetCheckpoint(ctx)
	require.NoError(t, err)
	assert.True(t, now.Equal(cp.LastSyncTimestamp))
}

func TestStorage_ApplyServerBatch_PendingVerification(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	// parcel-kept comes back from the server, parcel-stale does not.
	require.NoError(t, s.SaveParcel(ctx, testParcel("parcel-kept", now.Add(-time.Hour))))
	require.NoError(t, s.SaveParcel(ctx, testParcel("parcel-stale", now.Add(-time.Hour))))

	batch := storage.ServerBatch{
		Upserts:                 []*models.Parcel{testParcel("parcel-kept", now)},
		MarkPendingVerification: true,
		Checkpoint: &models.SyncCheckpoint{
			LastSyncTimestamp: now,
			DeviceID:          "device-1",
		},
	}
	require.NoError(t, s.ApplyServerBatch(ctx, batch))

	kept, err := s.GetParcel(ctx, "parcel-kept")
	require.NoError(t, err)
	assert.False(t, kept.PendingVerification)

	stale, err := s.GetParcel(ctx, "parcel-stale")
	require.NoError(t, err)
	assert.True(t, stale.PendingVerification, "absent records stay marked rather than deleted")
}

func TestStorage_ApplyServerBatch_MarksManyRecords(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	for i := 0; i < 25; i++ {
		require.NoError(t, s.SaveParcel(ctx, testParcel(fmt.Sprintf("parcel-%02d", i), now.Add(-time.Hour))))
	}

	batch := storage.ServerBatch{
		MarkPendingVerification: true,
		Checkpoint: &models.SyncCheckpoint{
			LastSyncTimestamp: now,
			DeviceID:          "device-1",
		},
	}
	require.NoError(t, s.ApplyServerBatch(ctx, batch))

	parcels, err := s.ListParcels(ctx, true)
	require.NoError(t, err)
	require.Len(t, parcels, 25)
	for _, p := range parcels {
		assert.True(t, p.PendingVerification, "parcel %s", p.ID)
	}
}

func TestStorage_ApplyServerBatch_PreservesCreatedAt(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()
	created := time.Now().UTC().Truncate(time.Millisecond).Add(-24 * time.Hour)
	now := created.Add(24 * time.Hour)

	require.NoError(t, s.SaveParcel(ctx, testParcel("parcel-1", created)))

	// A server-side update carries its own timestamps; the local creation
	// time must survive it.
	update := testParcel("parcel-1", now)
	update.UpdatedBy = "server"
	batch := storage.ServerBatch{
		Upserts: []*models.Parcel{update, testParcel("parcel-new", now)},
		Checkpoint: &models.SyncCheckpoint{
			LastSyncTimestamp: now,
			DeviceID:          "device-1",
		},
	}
	require.NoError(t, s.ApplyServerBatch(ctx, batch))

	got, err := s.GetParcel(ctx, "parcel-1")
	require.NoError(t, err)
	assert.True(t, created.Equal(got.CreatedAt), "creation time rewritten by remote update")
	assert.True(t, now.Equal(got.UpdatedAt))

	// Records new to this client keep the incoming creation time.
	fresh, err := s.GetParcel(ctx, "parcel-new")
	require.NoError(t, err)
	assert.True(t, now.Equal(fresh.CreatedAt))
}

func TestStorage_Clear(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	require.NoError(t, s.SaveParcel(ctx, testParcel("parcel-1", time.Now())))
	require.NoError(t, s.Clear(ctx))

	parcels, err := s.ListParcels(ctx, true)
	require.NoError(t, err)
	assert.Empty(t, parcels)
}

func TestStorage_ClosedErrors(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := New(context.Background(), dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Close())
	s.db = nil

	ctx := context.Background()
	assert.ErrorIs(t, s.SaveParcel(ctx, testParcel("p", time.Now())), storage.ErrStorageClosed)
	_, err = s.GetParcel(ctx, "p")
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
	_, err = s.PendingChanges(ctx)
	assert.ErrorIs(t, err, storage.ErrStorageClosed)
}
