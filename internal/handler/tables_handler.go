package handlers

import (
	"net/http"
)

type HealthResponse struct {
	Status    string         `json:"status"`
	Documents map[string]int `json:"documents"`
	Sessions  int            `json:"sessions"`
}

func (h *Handlers) HealthHandler(w http.ResponseWriter, r *http.Request) {
	counts, err := h.StatsService.CountDocuments(r.Context())
	if err != nil {
		h.Logger.Warn("Health check failed", "error", err)
		WriteError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}

	writeSuccess(w, HealthResponse{
		Status:    "ok",
		Documents: counts,
		Sessions:  h.Sessions.Count(),
	}, http.StatusOK)
}
