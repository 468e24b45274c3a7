package handlers

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/ozarkdata/parcelsync/internal/server/jwt"
	"github.com/ozarkdata/parcelsync/internal/server/keyhash"
	"github.com/ozarkdata/parcelsync/internal/server/storage"
	"github.com/ozarkdata/parcelsync/internal/validation"
	"github.com/ozarkdata/parcelsync/pkg/api"
)

// AuthHandler enrolls devices and issues access tokens.
type AuthHandler struct {
	devices        storage.DeviceStorage
	tokens         *jwt.Service
	logger         *slog.Logger
	accountKeyHash string
	now            func() time.Time
}

// NewAuthHandler creates an auth handler. accountKeyHash is the argon2id hash
// of the shared account key that authorizes device enrollment.
func NewAuthHandler(devices storage.DeviceStorage, tokens *jwt.Service, accountKeyHash string, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		devices:        devices,
		tokens:         tokens,
		accountKeyHash: accountKeyHash,
		logger:         logger,
		now:            time.Now,
	}
}

// HandleDeviceKey registers a device (or refreshes an existing registration)
// and returns a bearer token. POST /api/v1/auth/device-key
func (h *AuthHandler) HandleDeviceKey(w http.ResponseWriter, r *http.Request) {
	var req api.DeviceKeyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, "invalid_request", "malformed request body")
		return
	}

	if err := validation.ValidateDeviceID(req.DeviceID); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}
	if err := validation.ValidateAccountKey(req.AccountKey); err != nil {
		sendError(w, h.logger, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	if err := keyhash.Verify(req.AccountKey, h.accountKeyHash); err != nil {
		if errors.Is(err, keyhash.ErrMismatch) {
			h.logger.WarnContext(r.Context(), "Device enrollment rejected",
				slog.String("device_id", req.DeviceID),
				slog.String("remote_addr", r.RemoteAddr),
			)
			sendError(w, h.logger, http.StatusUnauthorized, "unauthorized", "invalid account key")
			return
		}
		h.logger.ErrorContext(r.Context(), "Account key verification failed", slog.Any("error", err))
		sendError(w, h.logger, http.StatusInternalServerError, "internal_error", "failed to verify account key")
		return
	}

	now := h.now()
	if err := h.devices.SaveDevice(r.Context(), &storage.Device{
		DeviceID:       req.DeviceID,
		AccountKeyHash: h.accountKeyHash,
		AppVersion:     req.AppVersion,
		RegisteredAt:   now,
		LastSeenAt:     now,
	}); err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to save device",
			slog.String("device_id", req.DeviceID),
			slog.Any("error", err),
		)
		sendError(w, h.logger, http.StatusInternalServerError, "internal_error", "failed to register device")
		return
	}

	token, expiresIn, err := h.tokens.GenerateToken(req.DeviceID)
	if err != nil {
		h.logger.ErrorContext(r.Context(), "Failed to generate token",
			slog.String("device_id", req.DeviceID),
			slog.Any("error", err),
		)
		sendError(w, h.logger, http.StatusInternalServerError, "internal_error", "failed to issue token")
		return
	}

	h.logger.InfoContext(r.Context(), "Device enrolled",
		slog.String("device_id", req.DeviceID),
		slog.String("app_version", req.AppVersion),
	)

	sendJSON(w, h.logger, http.StatusOK, api.TokenResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   expiresIn,
	})
}
