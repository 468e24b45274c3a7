package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/ozarkdata/parcelsync/internal/server/jwt"
)

type contextKey string

// deviceIDKey carries the authenticated device id through the request context.
const deviceIDKey contextKey = "device_id"

// WithDeviceID returns a context carrying the given device identity.
func WithDeviceID(ctx context.Context, deviceID string) context.Context {
	return context.WithValue(ctx, deviceIDKey, deviceID)
}

// DeviceIDFromContext returns the authenticated device id, if any.
func DeviceIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(deviceIDKey).(string)
	return id, ok
}

// AuthMiddleware validates the bearer token and stores the device identity
// in the request context.
func AuthMiddleware(logger *slog.Logger, tokens *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				logger.Warn("Missing Authorization header")
				http.Error(w, "Unauthorized: missing token", http.StatusUnauthorized)
				return
			}

			// Expect "Bearer <token>"
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
				logger.Warn("Invalid Authorization header format")
				http.Error(w, "Unauthorized: invalid token format", http.StatusUnauthorized)
				return
			}

			claims, err := tokens.ValidateToken(parts[1])
			if err != nil {
				logger.Warn("Invalid access token", "error", err)
				http.Error(w, "Unauthorized: invalid token", http.StatusUnauthorized)
				return
			}

			ctx := WithDeviceID(r.Context(), claims.DeviceID)

			logger.Debug("Device authenticated", "device_id", claims.DeviceID)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
