package validation

import (
	"fmt"
	"regexp"
)

// DeviceIDPattern defines the accepted device identifier format: a lowercase
// UUID as produced during registration.
var DeviceIDPattern = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

const (
	// MinAccountKeyLen is the minimum account key length
	MinAccountKeyLen = 12
	// MaxParcelIDLen is the maximum parcel identifier length
	MaxParcelIDLen = 64
)

// ParcelIDPattern restricts parcel identifiers to county-assessor style IDs:
// letters, digits, dashes, and dots.
var ParcelIDPattern = regexp.MustCompile(`^[a-zA-Z0-9.\-]{1,64}$`)

// ValidateDeviceID checks that a device identifier is a lowercase UUID.
func ValidateDeviceID(deviceID string) error {
	if deviceID == "" {
		return fmt.Errorf("device id cannot be empty")
	}

	if !DeviceIDPattern.MatchString(deviceID) {
		return fmt.Errorf("device id must be a lowercase UUID")
	}

	return nil
}

// ValidateAccountKey checks the minimum requirements for an account key.
func ValidateAccountKey(key string) error {
	if key == "" {
		return fmt.Errorf("account key cannot be empty")
	}

	if len(key) < MinAccountKeyLen {
		return fmt.Errorf("account key must be at least %d characters long", MinAccountKeyLen)
	}

	return nil
}

// ValidateParcelID checks that a parcel identifier is well formed.
func ValidateParcelID(parcelID string) error {
	if parcelID == "" {
		return fmt.Errorf("parcel id cannot be empty")
	}

	if len(parcelID) > MaxParcelIDLen {
		return fmt.Errorf("parcel id must not exceed %d characters", MaxParcelIDLen)
	}

	if !ParcelIDPattern.MatchString(parcelID) {
		return fmt.Errorf("parcel id can only contain letters, numbers, dots, and dashes")
	}

	return nil
}
