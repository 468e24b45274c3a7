package models

import "time"

// Operation is a local mutation kind recorded by the change tracker.
type Operation string

const (
	OpCreate Operation = "create"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
)

// ChangeRecord is one local mutation awaiting upload. Records are immutable
// once created and are pruned after the server acknowledges them.
type ChangeRecord struct {
	Timestamp      time.Time      `json:"timestamp"`
	Payload        map[string]any `json:"payload,omitempty"`
	ID             string         `json:"id"` // unique record id, changelog key
	ParcelID       string         `json:"parcel_id"`
	Operation      Operation      `json:"operation"`
	OriginDeviceID string         `json:"origin_device_id"`
}
