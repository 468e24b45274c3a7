package models

import "time"

// SyncCheckpoint records the last successful sync exchange. It is owned
// exclusively by the sync service, persisted after every successful round,
// and never advanced on a failed or rejected one.
type SyncCheckpoint struct {
	LastSyncTimestamp time.Time `json:"last_sync_timestamp"`
	DeviceID          string    `json:"device_id"`
	AlgorithmVersion  string    `json:"algorithm_version"`
	AppVersion        string    `json:"app_version"`
}

// DeviceAuth is the locally stored device credential.
type DeviceAuth struct {
	ExpiresAt   time.Time `json:"expires_at"`
	DeviceID    string    `json:"device_id"`
	AccessToken string    `json:"access_token"`
}
