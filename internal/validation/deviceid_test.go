package validation

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateDeviceID(t *testing.T) {
	tests := []struct {
		name     string
		deviceID string
		wantErr  bool
	}{
		{"valid uuid", "b692f5c0-2d88-4aa1-a9e1-13aa6e4976d5", false},
		{"empty", "", true},
		{"uppercase", "B692F5C0-2D88-4AA1-A9E1-13AA6E4976D5", true},
		{"not a uuid", "device-1", true},
		{"missing segment", "b692f5c0-2d88-4aa1-a9e1", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateDeviceID(tt.deviceID)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestValidateAccountKey(t *testing.T) {
	assert.Error(t, ValidateAccountKey(""))
	assert.Error(t, ValidateAccountKey("short"))
	assert.NoError(t, ValidateAccountKey("long-enough-key"))
}

func TestValidateParcelID(t *testing.T) {
	tests := []struct {
		name     string
		parcelID string
		wantErr  bool
	}{
		{"assessor style", "001-01234-000", false},
		{"with dots", "35.12.100.004", false},
		{"alphanumeric", "AR72015X", false},
		{"empty", "", true},
		{"spaces", "001 01234", true},
		{"too long", strings.Repeat("a", 65), true},
		{"slash", "001/234", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateParcelID(tt.parcelID)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
