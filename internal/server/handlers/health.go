package handlers

import (
	"log/slog"
	"net/http"
)

// HealthHandler answers liveness probes. It is also the endpoint clients poll
// to detect connectivity restoration, so it stays cheap and unauthenticated.
type HealthHandler struct {
	logger *slog.Logger
}

func NewHealthHandler(logger *slog.Logger) *HealthHandler {
	return &HealthHandler{logger: logger}
}

// HandleHealth reports service liveness. GET /health
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	sendJSON(w, h.logger, http.StatusOK, map[string]string{"status": "ok"})
}
