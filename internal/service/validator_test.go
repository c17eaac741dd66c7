package service

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/taskpulse/internal/domain"
)

func taskDueIn(t *testing.T, status domain.TaskStatus, priority domain.TaskPriority, due time.Duration, comments int) *domain.Task {
	t.Helper()
	created := time.Now().Add(-24 * time.Hour)
	state := domain.TaskState{
		ID:        "t-" + string(status) + string(priority),
		Title:     "task",
		Priority:  priority,
		Status:    status,
		DueDate:   time.Now().Add(due),
		CreatedAt: created,
		UpdatedAt: created,
	}
	for i := range comments {
		state.Comments = append(state.Comments, domain.CommentState{
			ID: string(rune('a' + i)), TaskID: state.ID, Text: "note", CreatedAt: created,
		})
	}
	return domain.ReconstituteTask(state)
}

func TestValidatorCanChangeStatus(t *testing.T) {
	v := NewValidator()

	tests := []struct {
		name    string
		current domain.TaskStatus
		next    domain.TaskStatus
		wantErr error
	}{
		{"new to in progress", domain.TaskStatusNew, domain.TaskStatusInProgress, nil},
		{"in progress to done", domain.TaskStatusInProgress, domain.TaskStatusDone, nil},
		{"done to in progress", domain.TaskStatusDone, domain.TaskStatusInProgress, nil},
		{"in progress to new", domain.TaskStatusInProgress, domain.TaskStatusNew, domain.ErrInvalidTransition},
		{"new to done", domain.TaskStatusNew, domain.TaskStatusDone, domain.ErrInvalidTransition},
		{"done to new", domain.TaskStatusDone, domain.TaskStatusNew, domain.ErrInvalidTransition},
		{"same status", domain.TaskStatusNew, domain.TaskStatusNew, ErrAlreadyInState},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			task := taskDueIn(t, tt.current, domain.TaskPriorityLow, 48*time.Hour, 0)
			err := v.CanChangeStatus(task, tt.next)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestValidatorCanDelete(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.CanDelete(taskDueIn(t, domain.TaskStatusNew, domain.TaskPriorityLow, time.Hour, 0)))
	assert.NoError(t, v.CanDelete(taskDueIn(t, domain.TaskStatusDone, domain.TaskPriorityLow, time.Hour, 0)))
	assert.ErrorIs(t, v.CanDelete(taskDueIn(t, domain.TaskStatusInProgress, domain.TaskPriorityLow, time.Hour, 0)), domain.ErrTaskInProgress)

	err := v.CanDelete(taskDueIn(t, domain.TaskStatusNew, domain.TaskPriorityLow, time.Hour, 2))
	assert.ErrorIs(t, err, domain.ErrTaskHasComments)
	assert.Contains(t, err.Error(), "2 comment(s)")
}

func TestValidatorCanComplete(t *testing.T) {
	v := NewValidator()

	assert.NoError(t, v.CanComplete(taskDueIn(t, domain.TaskStatusInProgress, domain.TaskPriorityLow, time.Hour, 0)))
	assert.ErrorIs(t, v.CanComplete(taskDueIn(t, domain.TaskStatusNew, domain.TaskPriorityLow, time.Hour, 0)), domain.ErrInvalidTransition)
}

func TestValidatorValidateState(t *testing.T) {
	fixed := time.Now()
	v := &Validator{now: func() time.Time { return fixed }}

	assert.NoError(t, v.ValidateState(taskDueIn(t, domain.TaskStatusNew, domain.TaskPriorityLow, 48*time.Hour, 0)))

	err := v.ValidateState(taskDueIn(t, domain.TaskStatusNew, domain.TaskPriorityLow, -48*time.Hour, 0))
	assert.ErrorIs(t, err, ErrTaskOverdue)
	assert.False(t, errors.Is(err, ErrDueDateTooFar))

	err = v.ValidateState(taskDueIn(t, domain.TaskStatusNew, domain.TaskPriorityLow, 400*24*time.Hour, 0))
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDueDateTooFar)

	// Finished tasks are never overdue.
	assert.NoError(t, v.ValidateState(taskDueIn(t, domain.TaskStatusDone, domain.TaskPriorityLow, -48*time.Hour, 0)))
}
