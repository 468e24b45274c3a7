package storage

import "errors"

var (
	// ErrParcelNotFound is returned when a parcel doesn't exist
	ErrParcelNotFound = errors.New("parcel not found")

	// ErrDeviceNotFound is returned when a device is not registered
	ErrDeviceNotFound = errors.New("device not found")
)
