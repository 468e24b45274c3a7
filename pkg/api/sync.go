package api

import "time"

// AlgorithmVersion is the reconciliation algorithm version implemented by
// this module. Client and server exchange it on every sync request; a server
// refuses to trade data with a client running an unknown version.
const AlgorithmVersion = "2.1.0"

// ChangeOperation is the kind of mutation carried by a ParcelChange.
type ChangeOperation string

const (
	OpCreate ChangeOperation = "create"
	OpUpdate ChangeOperation = "update"
	OpDelete ChangeOperation = "delete"
)

// SyncStatus is the overall outcome of one sync round as reported by the server.
type SyncStatus string

const (
	SyncStatusSuccess  SyncStatus = "success"
	SyncStatusPartial  SyncStatus = "partial"
	SyncStatusConflict SyncStatus = "conflict"
	SyncStatusFailed   SyncStatus = "failed"
)

// ParcelChange is one mutation of a parcel record, on either side of the wire.
// Payload is an opaque key/value map; the engine never interprets individual
// fields beyond conflict diffing.
type ParcelChange struct {
	Timestamp time.Time       `json:"timestamp"`
	Payload   map[string]any  `json:"payload,omitempty"`
	ParcelID  string          `json:"parcel_id"`
	Operation ChangeOperation `json:"operation"`
	DeviceID  string          `json:"device_id"`
}

// SyncConflict describes a parcel modified on both replicas since the last
// checkpoint. Conflicts exist only for the duration of one sync exchange.
type SyncConflict struct {
	LocalTimestamp    time.Time      `json:"local_timestamp"`
	RemoteTimestamp   time.Time      `json:"remote_timestamp"`
	LocalPayload      map[string]any `json:"local_payload"`
	RemotePayload     map[string]any `json:"remote_payload"`
	ParcelID          string         `json:"parcel_id"`
	ConflictingFields []string       `json:"conflicting_fields"`
}

// RejectedChange explains why the server refused one client change.
type RejectedChange struct {
	ParcelID    string          `json:"parcel_id"`
	Operation   ChangeOperation `json:"operation"`
	Reason      string          `json:"reason"`
	Recoverable bool            `json:"recoverable"`
}

// DeltaSyncRequest carries local changes since the last successful sync.
type DeltaSyncRequest struct {
	LastSyncTimestamp time.Time      `json:"last_sync_timestamp"`
	DeviceID          string         `json:"device_id"`
	AlgorithmVersion  string         `json:"algorithm_version"`
	AppVersion        string         `json:"app_version"`
	Changes           []ParcelChange `json:"changes"`
}

// DeltaSyncResponse is the server's reply to a delta sync.
type DeltaSyncResponse struct {
	NewSyncTimestamp           time.Time        `json:"new_sync_timestamp"`
	SyncStatus                 SyncStatus       `json:"sync_status"`
	AlgorithmValidationMessage string           `json:"algorithm_validation_message,omitempty"`
	ServerChanges              []ParcelChange   `json:"server_changes"`
	Conflicts                  []SyncConflict   `json:"conflicts"`
	RejectedDetails            []RejectedChange `json:"rejected_details,omitempty"`
	ChangesApplied             int              `json:"changes_applied"`
	ChangesRejected            int              `json:"changes_rejected"`
	AlgorithmCompatible        bool             `json:"algorithm_compatible"`
}

// FullSyncRequest asks for the complete authoritative record set.
type FullSyncRequest struct {
	DeviceID         string `json:"device_id"`
	AlgorithmVersion string `json:"algorithm_version"`
	AppVersion       string `json:"app_version"`
	IncludeDeleted   bool   `json:"include_deleted"`
}

// ParcelRecord is one full parcel as the server knows it.
type ParcelRecord struct {
	UpdatedAt time.Time      `json:"updated_at"`
	Payload   map[string]any `json:"payload"`
	ParcelID  string         `json:"parcel_id"`
	Deleted   bool           `json:"deleted"`
}

// FullSyncResponse is the server's reply to a full sync.
type FullSyncResponse struct {
	SyncTimestamp              time.Time      `json:"sync_timestamp"`
	AlgorithmValidationMessage string         `json:"algorithm_validation_message,omitempty"`
	Parcels                    []ParcelRecord `json:"parcels"`
	DeletedParcelIDs           []string       `json:"deleted_parcel_ids,omitempty"`
	TotalParcels               int            `json:"total_parcels"`
	AlgorithmCompatible        bool           `json:"algorithm_compatible"`
}
