package dto

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/mtlprog/taskpulse/internal/domain"
)

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error code and message.
type ErrorDetail struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewErrorResponse creates a new error response.
func NewErrorResponse(code, message string) ErrorResponse {
	return ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
		},
	}
}

// MapDomainError maps domain errors to HTTP status codes and error codes.
func MapDomainError(err error) (status int, code string, message string) {
	message = err.Error()

	var transitionErr *domain.InvalidStatusTransitionError

	switch {
	// Lookup errors
	case errors.Is(err, domain.ErrTaskNotFound):
		return http.StatusNotFound, "TASK_NOT_FOUND", message
	case errors.Is(err, domain.ErrCommentNotFound):
		return http.StatusNotFound, "COMMENT_NOT_FOUND", message

	// State errors
	case errors.As(err, &transitionErr):
		return http.StatusConflict, "INVALID_TRANSITION",
			fmt.Sprintf("cannot move task from %s to %s", transitionErr.Current, transitionErr.Requested)
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "INVALID_TRANSITION", message
	case errors.Is(err, domain.ErrTaskInProgress):
		return http.StatusConflict, "TASK_IN_PROGRESS", message
	case errors.Is(err, domain.ErrTaskHasComments):
		return http.StatusConflict, "TASK_HAS_COMMENTS", message

	// Validation errors
	case errors.Is(err, domain.ErrInvalidDueDate):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", message
	case errors.Is(err, domain.ErrValidation):
		return http.StatusUnprocessableEntity, "VALIDATION_ERROR", message

	// Default: internal server error
	default:
		slog.Error("unmapped domain error returned to client",
			"error", err,
			"error_type", fmt.Sprintf("%T", err),
		)
		return http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error"
	}
}
