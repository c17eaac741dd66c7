package handler

import (
	"net/http"

	"github.com/mtlprog/taskpulse/internal/handler/dto"
)

// handleGetStats returns task counts by status and priority.
func (h *Handler) handleGetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.taskService.Stats(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToStatsResponse(stats))
}
