package service

import (
	"github.com/mtlprog/taskpulse/internal/domain"
	"github.com/mtlprog/taskpulse/internal/specification"
)

// highPriorityLimit is the number of active High tasks above which a task due within
// a week is no longer promoted to High.
const highPriorityLimit = 5

// PriorityPolicy adjusts task priorities from due dates and workload.
// It only mutates the given aggregates; persisting them is up to the caller.
type PriorityPolicy struct{}

// NewPriorityPolicy creates a new PriorityPolicy.
func NewPriorityPolicy() *PriorityPolicy {
	return &PriorityPolicy{}
}

// EscalateOverdue raises overdue tasks one level (Low to Medium, Medium to High)
// and returns the tasks it changed.
func (p *PriorityPolicy) EscalateOverdue(tasks []*domain.Task) []*domain.Task {
	var escalated []*domain.Task

	overdue := domain.OverdueTasks[*domain.Task]()
	for _, task := range specification.Filter(tasks, overdue) {
		var next domain.TaskPriority
		switch task.Priority() {
		case domain.TaskPriorityLow:
			next = domain.TaskPriorityMedium
		case domain.TaskPriorityMedium:
			next = domain.TaskPriorityHigh
		default:
			continue
		}

		if err := task.ChangePriority(next); err != nil {
			continue
		}
		escalated = append(escalated, task)
	}

	return escalated
}

// DynamicPriority suggests a priority for task given every other task in the system.
func (p *PriorityPolicy) DynamicPriority(task *domain.Task, all []*domain.Task) domain.TaskPriority {
	days := task.DaysUntilDue()

	activeHigh := specification.And(domain.ActiveTasks[*domain.Task](), domain.HighPriorityTasks[*domain.Task]())
	highCount := len(specification.Filter(all, activeHigh))

	switch {
	case days <= 2:
		return domain.TaskPriorityHigh
	case days <= 7 && highCount < highPriorityLimit:
		return domain.TaskPriorityHigh
	case days <= 14:
		return domain.TaskPriorityMedium
	default:
		return domain.TaskPriorityLow
	}
}

// Rebalance applies DynamicPriority to every active task and returns the tasks it changed.
func (p *PriorityPolicy) Rebalance(tasks []*domain.Task) []*domain.Task {
	var changed []*domain.Task

	active := specification.Filter(tasks, domain.ActiveTasks[*domain.Task]())
	for _, task := range active {
		suggested := p.DynamicPriority(task, active)
		if suggested == task.Priority() {
			continue
		}
		if err := task.ChangePriority(suggested); err != nil {
			continue
		}
		changed = append(changed, task)
	}

	return changed
}
