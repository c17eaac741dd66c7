package domain

import (
	"errors"
	"fmt"
	"time"
)

// Domain-specific errors for business logic validation.
var (
	// Task errors
	ErrTaskNotFound      = errors.New("task not found")
	ErrInvalidTransition = errors.New("invalid status transition")
	ErrInvalidDueDate    = errors.New("invalid due date")
	ErrTaskInProgress    = errors.New("task is in progress")
	ErrTaskHasComments   = errors.New("task has comments")

	// Comment errors
	ErrCommentNotFound = errors.New("comment not found")

	// Validation errors
	ErrValidation         = errors.New("validation failed")
	ErrEmptyTitle         = fmt.Errorf("%w: title is required", ErrValidation)
	ErrTitleTooLong       = fmt.Errorf("%w: title exceeds %d characters", ErrValidation, MaxTitleLength)
	ErrDescriptionTooLong = fmt.Errorf("%w: description exceeds %d characters", ErrValidation, MaxDescriptionLength)
	ErrDueDateInPast      = fmt.Errorf("%w: due date cannot be in the past", ErrValidation)
	ErrEmptyComment       = fmt.Errorf("%w: comment is required", ErrValidation)
	ErrInvalidStatus      = fmt.Errorf("%w: invalid task status", ErrValidation)
	ErrInvalidPriority    = fmt.Errorf("%w: invalid task priority", ErrValidation)
)

// InvalidStatusTransitionError is returned when a status change is not an allowed edge.
type InvalidStatusTransitionError struct {
	Current   TaskStatus
	Requested TaskStatus
}

func (e *InvalidStatusTransitionError) Error() string {
	return fmt.Sprintf("cannot transition task from %s to %s", e.Current, e.Requested)
}

func (e *InvalidStatusTransitionError) Unwrap() error { return ErrInvalidTransition }

// InvalidDueDateError is returned when a task's due date is moved into the past.
type InvalidDueDateError struct {
	DueDate time.Time
}

func (e *InvalidDueDateError) Error() string {
	return fmt.Sprintf("due date %s is in the past", e.DueDate.Format(time.RFC3339))
}

func (e *InvalidDueDateError) Unwrap() error { return ErrInvalidDueDate }

// CommentNotFoundError is returned when a comment id is not part of the task.
type CommentNotFoundError struct {
	CommentID string
}

func (e *CommentNotFoundError) Error() string {
	return fmt.Sprintf("comment %s not found", e.CommentID)
}

func (e *CommentNotFoundError) Unwrap() error { return ErrCommentNotFound }

// TaskNotFoundError is returned by storage when no task has the given id.
type TaskNotFoundError struct {
	TaskID string
}

func (e *TaskNotFoundError) Error() string {
	return fmt.Sprintf("task %s not found", e.TaskID)
}

func (e *TaskNotFoundError) Unwrap() error { return ErrTaskNotFound }
