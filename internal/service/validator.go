package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/mtlprog/taskpulse/internal/domain"
)

// Task state warnings reported by ValidateState.
var (
	ErrTaskOverdue    = errors.New("task is overdue")
	ErrDueDateTooFar  = errors.New("due date is more than 1 year in the future")
	ErrAlreadyInState = errors.New("task is already in that status")
)

// Validator checks business rules that callers apply before mutating a task.
type Validator struct {
	now func() time.Time
}

// NewValidator creates a new Validator.
func NewValidator() *Validator {
	return &Validator{now: time.Now}
}

// CanChangeStatus validates a requested transition without applying it.
// Unlike Task.ChangeStatus, asking for the current status is reported as an error.
func (v *Validator) CanChangeStatus(task *domain.Task, next domain.TaskStatus) error {
	if task.Status() == next {
		return fmt.Errorf("%w: task %s is %s", ErrAlreadyInState, task.ID(), next)
	}
	if !task.Status().CanTransitionTo(next) {
		return &domain.InvalidStatusTransitionError{Current: task.Status(), Requested: next}
	}
	return nil
}

// CanDelete validates that a task may be removed.
func (v *Validator) CanDelete(task *domain.Task) error {
	// In-progress work is never deleted
	if task.Status() == domain.TaskStatusInProgress {
		return fmt.Errorf("%w: task %s cannot be deleted", domain.ErrTaskInProgress, task.ID())
	}

	if n := task.CommentCount(); n > 0 {
		return fmt.Errorf("%w: task %s has %d comment(s)", domain.ErrTaskHasComments, task.ID(), n)
	}

	return nil
}

// CanComplete validates that a task may move to Done.
func (v *Validator) CanComplete(task *domain.Task) error {
	if task.Status() != domain.TaskStatusInProgress {
		return fmt.Errorf("%w: task %s is in %s status, expected %s",
			domain.ErrInvalidTransition, task.ID(), task.Status(), domain.TaskStatusInProgress)
	}
	return nil
}

// ValidateState returns every warning that applies to the task, joined, or nil.
func (v *Validator) ValidateState(task *domain.Task) error {
	var errs []error

	if task.IsOverdue() {
		errs = append(errs, ErrTaskOverdue)
	}

	if task.DueDate().Time().After(v.now().AddDate(1, 0, 0)) {
		errs = append(errs, ErrDueDateTooFar)
	}

	return errors.Join(errs...)
}
