package storage

import "errors"

// Common client storage errors
var (
	// ErrParcelNotFound indicates the parcel does not exist locally
	ErrParcelNotFound = errors.New("parcel not found")

	// ErrCheckpointNotFound indicates no sync has completed yet
	ErrCheckpointNotFound = errors.New("sync checkpoint not found")

	// ErrAuthNotFound indicates the device has not been registered
	ErrAuthNotFound = errors.New("device authentication data not found")

	// ErrStorageClosed indicates that storage is closed
	ErrStorageClosed = errors.New("storage is closed")
)
