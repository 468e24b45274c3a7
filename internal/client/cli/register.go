package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"

	"github.com/ozarkdata/parcelsync/internal/client/storage"
	"github.com/ozarkdata/parcelsync/internal/models"
	"github.com/ozarkdata/parcelsync/internal/validation"
	"github.com/ozarkdata/parcelsync/pkg/api"
)

// AccountKeyArg is the account key passed on the command line, if any.
// The environment variable and the interactive prompt take precedence
// and fall back respectively.
var AccountKeyArg string

func (c *Cli) runRegister(ctx context.Context) error {
	fmt.Println("=== Device Registration ===")
	fmt.Println()

	// Reuse the existing device id if this device was registered before,
	// so re-registering refreshes the token instead of forking the device.
	deviceID := uuid.New().String()
	if auth, err := c.store.GetDeviceAuth(ctx); err == nil {
		deviceID = auth.DeviceID
		fmt.Printf("Device already registered as %s, refreshing token...\n", deviceID)
	} else if !errors.Is(err, storage.ErrAuthNotFound) {
		return fmt.Errorf("failed to check existing registration: %w", err)
	}

	if err := validation.ValidateDeviceID(deviceID); err != nil {
		return fmt.Errorf("invalid device id: %w", err)
	}

	accountKey, err := getAccountKey()
	if err != nil {
		return err
	}
	if err := validation.ValidateAccountKey(accountKey); err != nil {
		return fmt.Errorf("invalid account key: %w", err)
	}

	fmt.Println()
	fmt.Println("Registering device...")

	resp, err := c.apiClient.DeviceKey(ctx, api.DeviceKeyRequest{
		DeviceID:   deviceID,
		AccountKey: accountKey,
	})
	if err != nil {
		return err
	}

	auth := &models.DeviceAuth{
		DeviceID:    deviceID,
		AccessToken: resp.AccessToken,
		ExpiresAt:   time.Now().Add(time.Duration(resp.ExpiresIn) * time.Second),
	}
	if err := c.store.SaveDeviceAuth(ctx, auth); err != nil {
		return fmt.Errorf("failed to save device credential: %w", err)
	}

	fmt.Println()
	fmt.Println("Registration successful!")
	fmt.Printf("Device ID: %s\n", deviceID)
	fmt.Printf("Token expires: %s\n", auth.ExpiresAt.Format(time.RFC3339))
	fmt.Println()
	fmt.Println("Run 'parcelsync sync' to download your parcel data.")

	return nil
}

// getAccountKey retrieves the account key from various sources with priority:
// 1. Environment variable PARCELSYNC_ACCOUNT_KEY
// 2. Command-line parameter
// 3. Interactive prompt (fallback)
func getAccountKey() (string, error) {
	if envKey := os.Getenv("PARCELSYNC_ACCOUNT_KEY"); envKey != "" {
		return envKey, nil
	}

	if AccountKeyArg != "" {
		return AccountKeyArg, nil
	}

	key, err := readPassword("Account key: ")
	if err != nil {
		return "", fmt.Errorf("failed to read account key: %w", err)
	}
	if key == "" {
		return "", fmt.Errorf("account key cannot be empty")
	}
	return key, nil
}
