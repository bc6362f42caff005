package handler

import (
	"log/slog"
	"net/http"
)

type healthResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
	Version  string `json:"version"`
	Total    *int64 `json:"total_contactos,omitempty"`
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if err := h.db.Ping(r.Context()); err != nil {
		slog.Warn("health: database ping failed", "error", err)
		writeJSON(w, http.StatusInternalServerError, healthResponse{
			Status:   "unhealthy",
			Database: "disconnected",
			Version:  h.version,
		})
		return
	}

	resp := healthResponse{
		Status:   "healthy",
		Database: "connected",
		Version:  h.version,
	}
	// The total is informational; a failing count does not make the service unhealthy.
	if n, err := h.contacts.Count(r.Context()); err == nil {
		resp.Total = &n
	} else {
		slog.Warn("health: count contacts failed", "error", err)
	}
	writeJSON(w, http.StatusOK, resp)
}
