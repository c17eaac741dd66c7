package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/mtlprog/taskpulse/internal/handler/dto"
	"github.com/mtlprog/taskpulse/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	Ping(ctx context.Context) error
}

// Handler holds dependencies for HTTP handlers.
type Handler struct {
	taskService *service.TaskService
	pinger      Pinger
}

// New creates a new Handler. pinger may be nil when storage has nothing to ping.
func New(taskService *service.TaskService, pinger Pinger) *Handler {
	return &Handler{
		taskService: taskService,
		pinger:      pinger,
	}
}

// RegisterRoutes registers all HTTP routes.
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	// Health check
	mux.HandleFunc("GET /healthz", h.handleHealthz)

	// API v1 routes
	mux.HandleFunc("GET /api/v1/tasks", h.handleListTasks)
	mux.HandleFunc("POST /api/v1/tasks", h.handleCreateTask)
	mux.HandleFunc("GET /api/v1/tasks/{id}", h.handleGetTask)
	mux.HandleFunc("PATCH /api/v1/tasks/{id}", h.handleUpdateTask)
	mux.HandleFunc("DELETE /api/v1/tasks/{id}", h.handleDeleteTask)
	mux.HandleFunc("PATCH /api/v1/tasks/{id}/status", h.handleChangeStatus)
	mux.HandleFunc("POST /api/v1/tasks/{id}/comments", h.handleAddComment)
	mux.HandleFunc("DELETE /api/v1/tasks/{id}/comments/{commentId}", h.handleRemoveComment)
	mux.HandleFunc("GET /api/v1/stats", h.handleGetStats)
}

// handleHealthz returns 200 OK if the storage is reachable.
func (h *Handler) handleHealthz(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.Ping(r.Context()); err != nil {
			slog.Error("database health check failed", "error", err)
			http.Error(w, "database unavailable", http.StatusServiceUnavailable)
			return
		}
	}

	w.WriteHeader(http.StatusOK)
}

// respondJSON writes a JSON response with the given status code.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode JSON response", "error", err)
	}
}

// respondError writes a standard error response.
func respondError(w http.ResponseWriter, status int, code, message string) {
	respondJSON(w, status, dto.NewErrorResponse(code, message))
}

// respondDomainError maps err and writes it.
func respondDomainError(w http.ResponseWriter, err error) {
	status, code, message := dto.MapDomainError(err)
	respondError(w, status, code, message)
}

// extractID extracts and validates a UUID path parameter.
// Returns (id, true) if valid, ("", false) if invalid (error already sent to client).
func extractID(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	id := r.PathValue(name)
	if id == "" {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", name+" is required")
		return "", false
	}

	if _, err := uuid.Parse(id); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_REQUEST", name+" must be a valid UUID")
		return "", false
	}

	return id, true
}

// decodeJSON decodes the request body into dst.
// Returns false if the body is malformed (error already sent to client).
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		respondError(w, http.StatusBadRequest, "INVALID_JSON", "Invalid request body")
		return false
	}
	return true
}
