package storage

import (
	"context"
	"time"
)

// Device is one registered sync device.
type Device struct {
	RegisteredAt   time.Time
	LastSeenAt     time.Time
	DeviceID       string
	AccountKeyHash string
	AppVersion     string
}

// DeviceStorage persists registered devices.
type DeviceStorage interface {
	// SaveDevice creates or replaces a device registration
	SaveDevice(ctx context.Context, device *Device) error

	// GetDevice retrieves a device by ID
	// Returns ErrDeviceNotFound if the device is not registered
	GetDevice(ctx context.Context, deviceID string) (*Device, error)

	// TouchDevice updates the device's last-seen time
	TouchDevice(ctx context.Context, deviceID string, at time.Time) error
}
