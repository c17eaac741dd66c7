package handler

import (
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/mtlprog/taskpulse/internal/domain"
	"github.com/mtlprog/taskpulse/internal/handler/dto"
	"github.com/mtlprog/taskpulse/internal/service"
	"github.com/mtlprog/taskpulse/internal/specification"
)

// defaultPriority is used when a create request leaves priority out.
const defaultPriority = domain.TaskPriorityMedium

// handleCreateTask creates a new task.
func (h *Handler) handleCreateTask(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.DueDate.IsZero() {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "due_date is required")
		return
	}

	priority := req.Priority
	if priority == "" {
		priority = string(defaultPriority)
	}

	task, err := h.taskService.CreateTask(r.Context(), service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, h.detail(task))
}

// handleListTasks lists tasks.
// Query: ?status=New&priority=High&filter=overdue,active,high-priority,completable
func (h *Handler) handleListTasks(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	query := r.URL.Query()

	filters := splitList(query.Get("filter"))
	if len(filters) == 0 {
		tasks, err := h.taskService.ListTasks(ctx, service.ListFilters{
			Status:   query.Get("status"),
			Priority: query.Get("priority"),
		})
		if err != nil {
			respondDomainError(w, err)
			return
		}
		respondJSON(w, http.StatusOK, dto.ToTasksListResponse(tasks))
		return
	}

	spec, err := taskSpec(query, filters)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	tasks, err := h.taskService.FindTasks(ctx, spec)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, dto.ToTasksListResponse(tasks))
}

// handleGetTask retrieves a task with its comments.
func (h *Handler) handleGetTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractID(w, r, "id")
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(r.Context(), taskID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.detail(task))
}

// handleUpdateTask applies a partial update.
func (h *Handler) handleUpdateTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractID(w, r, "id")
	if !ok {
		return
	}

	var req dto.UpdateTaskRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), taskID, service.UpdateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.detail(task))
}

// handleChangeStatus moves a task to another status.
func (h *Handler) handleChangeStatus(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractID(w, r, "id")
	if !ok {
		return
	}

	var req dto.ChangeStatusRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if req.Status == "" {
		respondError(w, http.StatusUnprocessableEntity, "VALIDATION_ERROR", "status is required")
		return
	}

	task, err := h.taskService.ChangeStatus(r.Context(), taskID, req.Status)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.detail(task))
}

// handleDeleteTask removes a task. ?force=true skips the in-progress and comment checks.
func (h *Handler) handleDeleteTask(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractID(w, r, "id")
	if !ok {
		return
	}

	force := false
	if raw := r.URL.Query().Get("force"); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			respondError(w, http.StatusBadRequest, "INVALID_REQUEST", "force must be a boolean")
			return
		}
		force = v
	}

	if err := h.taskService.DeleteTask(r.Context(), taskID, force); err != nil {
		respondDomainError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// handleAddComment attaches a comment to a task.
func (h *Handler) handleAddComment(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractID(w, r, "id")
	if !ok {
		return
	}

	var req dto.AddCommentRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	comment, err := h.taskService.AddComment(r.Context(), taskID, req.Text)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, dto.ToCommentResponse(comment))
}

// handleRemoveComment deletes a comment and returns the updated task.
func (h *Handler) handleRemoveComment(w http.ResponseWriter, r *http.Request) {
	taskID, ok := extractID(w, r, "id")
	if !ok {
		return
	}
	commentID, ok := extractID(w, r, "commentId")
	if !ok {
		return
	}

	task, err := h.taskService.RemoveComment(r.Context(), taskID, commentID)
	if err != nil {
		respondDomainError(w, err)
		return
	}

	respondJSON(w, http.StatusOK, h.detail(task))
}

func (h *Handler) detail(task *domain.Task) dto.TaskDetailResponse {
	return dto.ToTaskDetailResponse(task, h.taskService.Validator().ValidateState(task))
}

// taskSpec combines the named filters with the status and priority query parameters.
func taskSpec(query url.Values, filters []string) (specification.Spec[*domain.Task], error) {
	specs := make([]specification.Spec[*domain.Task], 0, len(filters)+2)

	for _, name := range filters {
		switch name {
		case "overdue":
			specs = append(specs, domain.OverdueTasks[*domain.Task]())
		case "active":
			specs = append(specs, domain.ActiveTasks[*domain.Task]())
		case "high-priority":
			specs = append(specs, domain.HighPriorityTasks[*domain.Task]())
		case "completable":
			specs = append(specs, domain.CompletableTasks[*domain.Task]())
		default:
			return nil, fmt.Errorf("%w: unknown filter %q", domain.ErrValidation, name)
		}
	}

	if raw := query.Get("status"); raw != "" {
		status, err := domain.ParseTaskStatus(raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, domain.StatusIs[*domain.Task](status))
	}
	if raw := query.Get("priority"); raw != "" {
		priority, err := domain.ParseTaskPriority(raw)
		if err != nil {
			return nil, err
		}
		specs = append(specs, domain.PriorityIs[*domain.Task](priority))
	}

	return specification.And(specs...), nil
}

func splitList(raw string) []string {
	var out []string
	for part := range strings.SplitSeq(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
