package handler

import (
	"net/http"
	"time"
)

// handleHealth handles GET /healthz.
func (h *Handler) handleHealth(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, HealthResponse{
		Status: "healthy",
		Time:   time.Now().UTC().Format(time.RFC3339),
	})
}

// handleReady handles GET /readyz.
func (h *Handler) handleReady(w http.ResponseWriter, r *http.Request) {
	now := time.Now().UTC().Format(time.RFC3339)
	if h.cfg.Ready != nil {
		if err := h.cfg.Ready(); err != nil {
			h.writeJSON(w, http.StatusServiceUnavailable, HealthResponse{
				Status: "not_ready",
				Time:   now,
				Reason: err.Error(),
			})
			return
		}
	}
	h.writeJSON(w, http.StatusOK, HealthResponse{Status: "ready", Time: now})
}
