package domain

import "github.com/mtlprog/taskpulse/internal/specification"

// StatusView is the minimal read-only view needed by status-based specifications.
type StatusView interface {
	Status() TaskStatus
}

// PriorityView is the minimal read-only view needed by priority-based specifications.
type PriorityView interface {
	Priority() TaskPriority
}

// DeadlineView is the minimal read-only view needed by the overdue specification.
type DeadlineView interface {
	StatusView
	DueDate() DueDate
}

// ActiveTasks matches anything not yet Done.
func ActiveTasks[T StatusView]() specification.Spec[T] {
	return specification.New(func(t T) bool {
		return t.Status() != TaskStatusDone
	})
}

// CompletableTasks matches tasks that may move to Done right now.
func CompletableTasks[T StatusView]() specification.Spec[T] {
	return specification.New(func(t T) bool {
		return t.Status().CanTransitionTo(TaskStatusDone)
	})
}

// HighPriorityTasks matches High priority.
func HighPriorityTasks[T PriorityView]() specification.Spec[T] {
	return specification.New(func(t T) bool {
		return t.Priority() == TaskPriorityHigh
	})
}

// OverdueTasks matches unfinished tasks whose due date is before the time of evaluation.
func OverdueTasks[T DeadlineView]() specification.Spec[T] {
	return specification.New(func(t T) bool {
		return t.Status() != TaskStatusDone && t.DueDate().IsPastAt(now())
	})
}

// PriorityIs matches a specific priority.
func PriorityIs[T PriorityView](p TaskPriority) specification.Spec[T] {
	return specification.New(func(t T) bool {
		return t.Priority() == p
	})
}

// StatusIs matches a specific status.
func StatusIs[T StatusView](s TaskStatus) specification.Spec[T] {
	return specification.New(func(t T) bool {
		return t.Status() == s
	})
}
