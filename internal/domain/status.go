package domain

import "fmt"

// TaskStatus represents the status of a task in the state machine.
type TaskStatus string

const (
	TaskStatusNew        TaskStatus = "New"
	TaskStatusInProgress TaskStatus = "InProgress"
	TaskStatusDone       TaskStatus = "Done"
)

// allowedTransitions lists the edges of the status state machine.
var allowedTransitions = map[TaskStatus][]TaskStatus{
	TaskStatusNew:        {TaskStatusInProgress},
	TaskStatusInProgress: {TaskStatusDone},
	TaskStatusDone:       {TaskStatusInProgress},
}

// IsValid checks if the status is one of the allowed values.
func (s TaskStatus) IsValid() bool {
	_, ok := allowedTransitions[s]
	return ok
}

// CanTransitionTo reports whether next is an allowed edge from s.
// A status never transitions to itself.
func (s TaskStatus) CanTransitionTo(next TaskStatus) bool {
	for _, allowed := range allowedTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// ParseTaskStatus converts an external value to a TaskStatus.
func ParseTaskStatus(raw string) (TaskStatus, error) {
	s := TaskStatus(raw)
	if !s.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
	}
	return s, nil
}

// AllTaskStatuses returns every status in lifecycle order.
func AllTaskStatuses() []TaskStatus {
	return []TaskStatus{TaskStatusNew, TaskStatusInProgress, TaskStatusDone}
}

// TaskPriority represents the priority level of a task.
type TaskPriority string

const (
	TaskPriorityLow    TaskPriority = "Low"
	TaskPriorityMedium TaskPriority = "Medium"
	TaskPriorityHigh   TaskPriority = "High"
)

// IsValid checks if the priority is one of the allowed values.
func (p TaskPriority) IsValid() bool {
	switch p {
	case TaskPriorityLow, TaskPriorityMedium, TaskPriorityHigh:
		return true
	default:
		return false
	}
}

// ParseTaskPriority converts an external value to a TaskPriority.
func ParseTaskPriority(raw string) (TaskPriority, error) {
	p := TaskPriority(raw)
	if !p.IsValid() {
		return "", fmt.Errorf("%w: %q", ErrInvalidPriority, raw)
	}
	return p, nil
}
