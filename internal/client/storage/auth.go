package storage

import (
	"context"

	"github.com/ozarkdata/parcelsync/internal/models"
)

//go:generate go tool moq -out auth_mock.go . AuthStore

// AuthStore persists the device credential issued by the server.
type AuthStore interface {
	// SaveDeviceAuth stores the device credential
	SaveDeviceAuth(ctx context.Context, auth *models.DeviceAuth) error

	// GetDeviceAuth retrieves the stored credential
	// Returns ErrAuthNotFound if the device has not registered
	GetDeviceAuth(ctx context.Context) (*models.DeviceAuth, error)

	// DeleteDeviceAuth removes the stored credential
	DeleteDeviceAuth(ctx context.Context) error
}
