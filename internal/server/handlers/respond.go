// Package handlers implements the HTTP API of the sync server.
package handlers

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/ozarkdata/parcelsync/pkg/api"
)

func sendJSON(w http.ResponseWriter, logger *slog.Logger, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func sendError(w http.ResponseWriter, logger *slog.Logger, status int, errMsg, message string) {
	sendJSON(w, logger, status, api.ErrorResponse{
		Error:   errMsg,
		Message: message,
	})
}
