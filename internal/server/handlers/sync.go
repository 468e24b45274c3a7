package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"reflect"
	"sort"
	"time"

	"github.com/ozarkdata/parcelsync/internal/server/middleware"
	"github.com/ozarkdata/parcelsync/internal/server/storage"
	"github.com/ozarkdata/parcelsync/internal/validation"
	"github.com/ozarkdata/parcelsync/pkg/api"
)

// SyncHandler serves the delta and full sync endpoints.
type SyncHandler struct {
	parcels   storage.ParcelStorage
	devices   storage.DeviceStorage
	syncLog   storage.SyncLogStorage
	logger    *slog.Logger
	supported map[string]struct{}
	now       func() time.Time
}

// NewSyncHandler creates a sync handler. supportedAlgorithms lists the
// reconciliation algorithm versions this server can exchange data with.
func NewSyncHandler(
	parcels storage.ParcelStorage,
	devices storage.DeviceStorage,
	syncLog storage.SyncLogStorage,
	supportedAlgorithms []string,
	logger *slog.Logger,
) *SyncHandler {
	supported := make(map[string]struct{}, len(supportedAlgorithms))
	for _, v := range supportedAlgorithms {
		supported[v] = struct{}{}
	}

	return &SyncHandler{
		parcels:   parcels,
		devices:   devices,
		syncLog:   syncLog,
		supported: supported,
		logger:    logger,
		now:       time.Now,
	}
}

func (h *SyncHandler) algorithmCompatible(version string) bool {
	_, ok := h.supported[version]
	return ok
}

// HandleDeltaSync applies the client's pending changes and returns server
// changes since the client's checkpoint. POST /api/v1/sync/delta
func (h *SyncHandler) HandleDeltaSync(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := middleware.DeviceIDFromContext(r.Context())
	if !ok {
		sendError(w, h.logger, http.StatusUnauthorized, "unauthorized", "missing device identity")
		return
	}

	var req api.DeltaSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	if req.DeviceID != deviceID {
		h.logger.Warn("Device ID mismatch",
			"token_device", deviceID,
			"request_device", req.DeviceID,
		)
		sendError(w, h.logger, http.StatusForbidden, "forbidden", "device ID does not match token")
		return
	}

	// Compatibility is checked before any change is applied: an incompatible
	// client must not modify server state.
	if !h.algorithmCompatible(req.AlgorithmVersion) {
		h.logger.Warn("Incompatible algorithm version",
			"device_id", deviceID,
			"algorithm_version", req.AlgorithmVersion,
		)
		sendJSON(w, h.logger, http.StatusOK, api.DeltaSyncResponse{
			SyncStatus:          api.SyncStatusFailed,
			AlgorithmCompatible: false,
			AlgorithmValidationMessage: fmt.Sprintf(
				"algorithm version %q is not supported by this server; please update the application",
				req.AlgorithmVersion,
			),
			NewSyncTimestamp: h.now(),
		})
		return
	}

	resp := api.DeltaSyncResponse{
		AlgorithmCompatible: true,
		ServerChanges:       []api.ParcelChange{},
		Conflicts:           []api.SyncConflict{},
	}

	for _, change := range req.Changes {
		outcome, err := h.applyChange(r.Context(), deviceID, change)
		if err != nil {
			h.logger.Error("Failed to apply change",
				"device_id", deviceID,
				"parcel_id", change.ParcelID,
				"error", err,
			)
			sendError(w, h.logger, http.StatusInternalServerError, "internal_error", "failed to apply changes")
			return
		}

		switch {
		case outcome.rejected != nil:
			resp.RejectedDetails = append(resp.RejectedDetails, *outcome.rejected)
			resp.ChangesRejected++
		case outcome.conflict != nil:
			resp.Conflicts = append(resp.Conflicts, *outcome.conflict)
		default:
			resp.ChangesApplied++
		}
	}

	serverRows, err := h.parcels.ChangesSince(r.Context(), req.LastSyncTimestamp, deviceID)
	if err != nil {
		h.logger.Error("Failed to load server changes", "device_id", deviceID, "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, "internal_error", "failed to load server changes")
		return
	}
	for _, row := range serverRows {
		resp.ServerChanges = append(resp.ServerChanges, rowToChange(row))
	}

	resp.NewSyncTimestamp = h.now()
	resp.SyncStatus = deltaStatus(&resp)

	h.recordSync(r.Context(), &storage.SyncLogEntry{
		DeviceID:        deviceID,
		SyncType:        "delta",
		ChangesApplied:  resp.ChangesApplied,
		ChangesRejected: resp.ChangesRejected,
		Conflicts:       len(resp.Conflicts),
		CreatedAt:       resp.NewSyncTimestamp,
	})
	h.touchDevice(r.Context(), deviceID)

	h.logger.Info("Delta sync completed",
		"device_id", deviceID,
		"applied", resp.ChangesApplied,
		"rejected", resp.ChangesRejected,
		"conflicts", len(resp.Conflicts),
		"server_changes", len(resp.ServerChanges),
	)

	sendJSON(w, h.logger, http.StatusOK, resp)
}

// HandleFullSync returns the complete authoritative record set.
// POST /api/v1/sync/full
func (h *SyncHandler) HandleFullSync(w http.ResponseWriter, r *http.Request) {
	deviceID, ok := middleware.DeviceIDFromContext(r.Context())
	if !ok {
		sendError(w, h.logger, http.StatusUnauthorized, "unauthorized", "missing device identity")
		return
	}

	var req api.FullSyncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	if req.DeviceID != deviceID {
		sendError(w, h.logger, http.StatusForbidden, "forbidden", "device ID does not match token")
		return
	}

	if !h.algorithmCompatible(req.AlgorithmVersion) {
		sendJSON(w, h.logger, http.StatusOK, api.FullSyncResponse{
			AlgorithmCompatible: false,
			AlgorithmValidationMessage: fmt.Sprintf(
				"algorithm version %q is not supported by this server; please update the application",
				req.AlgorithmVersion,
			),
			SyncTimestamp: h.now(),
		})
		return
	}

	rows, err := h.parcels.ListParcels(r.Context(), false)
	if err != nil {
		h.logger.Error("Failed to list parcels", "device_id", deviceID, "error", err)
		sendError(w, h.logger, http.StatusInternalServerError, "internal_error", "failed to load parcels")
		return
	}

	resp := api.FullSyncResponse{
		AlgorithmCompatible: true,
		SyncTimestamp:       h.now(),
		Parcels:             make([]api.ParcelRecord, 0, len(rows)),
	}
	for _, row := range rows {
		resp.Parcels = append(resp.Parcels, api.ParcelRecord{
			ParcelID:  row.ID,
			Payload:   row.Payload,
			UpdatedAt: row.UpdatedAt,
			Deleted:   row.Deleted,
		})
	}
	resp.TotalParcels = len(resp.Parcels)

	if req.IncludeDeleted {
		deleted, err := h.parcels.DeletedParcelIDs(r.Context())
		if err != nil {
			h.logger.Error("Failed to list deleted parcels", "device_id", deviceID, "error", err)
			sendError(w, h.logger, http.StatusInternalServerError, "internal_error", "failed to load parcels")
			return
		}
		resp.DeletedParcelIDs = deleted
	}

	h.recordSync(r.Context(), &storage.SyncLogEntry{
		DeviceID:  deviceID,
		SyncType:  "full",
		CreatedAt: resp.SyncTimestamp,
	})
	h.touchDevice(r.Context(), deviceID)

	h.logger.Info("Full sync completed",
		"device_id", deviceID,
		"parcels", resp.TotalParcels,
		"deleted", len(resp.DeletedParcelIDs),
	)

	sendJSON(w, h.logger, http.StatusOK, resp)
}

// changeOutcome is the result of applying one client change. Exactly one of
// the fields is set for non-applied changes; both nil means applied.
type changeOutcome struct {
	rejected *api.RejectedChange
	conflict *api.SyncConflict
}

func (h *SyncHandler) applyChange(ctx context.Context, deviceID string, change api.ParcelChange) (changeOutcome, error) {
	if err := validation.ValidateParcelID(change.ParcelID); err != nil {
		return changeOutcome{rejected: &api.RejectedChange{
			ParcelID:    change.ParcelID,
			Operation:   change.Operation,
			Reason:      err.Error(),
			Recoverable: false,
		}}, nil
	}

	switch change.Operation {
	case api.OpCreate, api.OpUpdate:
		return h.applyUpsert(ctx, deviceID, change)
	case api.OpDelete:
		return h.applyDelete(ctx, deviceID, change)
	default:
		return changeOutcome{rejected: &api.RejectedChange{
			ParcelID:    change.ParcelID,
			Operation:   change.Operation,
			Reason:      fmt.Sprintf("unknown operation %q", change.Operation),
			Recoverable: false,
		}}, nil
	}
}

func (h *SyncHandler) applyUpsert(ctx context.Context, deviceID string, change api.ParcelChange) (changeOutcome, error) {
	applied, err := h.parcels.UpsertParcel(ctx, &storage.ParcelRow{
		ID:        change.ParcelID,
		Payload:   change.Payload,
		UpdatedAt: change.Timestamp,
		UpdatedBy: deviceID,
	})
	if err != nil {
		return changeOutcome{}, err
	}
	if applied {
		return changeOutcome{}, nil
	}

	// The stored row won the last-write-wins comparison. Report a conflict so
	// the client can reconcile against the authoritative copy.
	stored, err := h.parcels.GetParcel(ctx, change.ParcelID)
	if err != nil {
		return changeOutcome{}, err
	}

	return changeOutcome{conflict: &api.SyncConflict{
		ParcelID:          change.ParcelID,
		LocalTimestamp:    change.Timestamp,
		RemoteTimestamp:   stored.UpdatedAt,
		LocalPayload:      change.Payload,
		RemotePayload:     stored.Payload,
		ConflictingFields: conflictingFields(change.Payload, stored.Payload),
	}}, nil
}

func (h *SyncHandler) applyDelete(ctx context.Context, deviceID string, change api.ParcelChange) (changeOutcome, error) {
	stored, err := h.parcels.GetParcel(ctx, change.ParcelID)
	if errors.Is(err, storage.ErrParcelNotFound) {
		return changeOutcome{rejected: &api.RejectedChange{
			ParcelID:    change.ParcelID,
			Operation:   change.Operation,
			Reason:      "parcel does not exist",
			Recoverable: false,
		}}, nil
	}
	if err != nil {
		return changeOutcome{}, err
	}

	// A delete loses to a newer (or concurrent) write, same as an update.
	if !change.Timestamp.After(stored.UpdatedAt) {
		return changeOutcome{conflict: &api.SyncConflict{
			ParcelID:          change.ParcelID,
			LocalTimestamp:    change.Timestamp,
			RemoteTimestamp:   stored.UpdatedAt,
			LocalPayload:      change.Payload,
			RemotePayload:     stored.Payload,
			ConflictingFields: conflictingFields(change.Payload, stored.Payload),
		}}, nil
	}

	if err := h.parcels.MarkDeleted(ctx, change.ParcelID, change.Timestamp, deviceID); err != nil {
		return changeOutcome{}, err
	}
	return changeOutcome{}, nil
}

func (h *SyncHandler) recordSync(ctx context.Context, entry *storage.SyncLogEntry) {
	if err := h.syncLog.RecordSync(ctx, entry); err != nil {
		h.logger.Warn("Failed to record sync log entry", "device_id", entry.DeviceID, "error", err)
	}
}

func (h *SyncHandler) touchDevice(ctx context.Context, deviceID string) {
	if err := h.devices.TouchDevice(ctx, deviceID, h.now()); err != nil {
		h.logger.Warn("Failed to update device last-seen time", "device_id", deviceID, "error", err)
	}
}

func rowToChange(row *storage.ParcelRow) api.ParcelChange {
	op := api.OpUpdate
	if row.Deleted {
		op = api.OpDelete
	}
	return api.ParcelChange{
		ParcelID:  row.ID,
		Operation: op,
		Payload:   row.Payload,
		Timestamp: row.UpdatedAt,
		DeviceID:  row.UpdatedBy,
	}
}

func deltaStatus(resp *api.DeltaSyncResponse) api.SyncStatus {
	switch {
	case len(resp.Conflicts) > 0:
		return api.SyncStatusConflict
	case resp.ChangesRejected > 0:
		return api.SyncStatusPartial
	default:
		return api.SyncStatusSuccess
	}
}

// conflictingFields returns the payload keys whose values differ between the
// two copies, sorted for stable output.
func conflictingFields(local, remote map[string]any) []string {
	seen := make(map[string]struct{})
	var fields []string

	for key, lv := range local {
		rv, ok := remote[key]
		if !ok || !reflect.DeepEqual(lv, rv) {
			fields = append(fields, key)
			seen[key] = struct{}{}
		}
	}
	for key := range remote {
		if _, ok := local[key]; !ok {
			if _, dup := seen[key]; !dup {
				fields = append(fields, key)
			}
		}
	}

	sort.Strings(fields)
	return fields
}
