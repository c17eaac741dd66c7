package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/mtlprog/taskpulse/internal/domain"
	"github.com/mtlprog/taskpulse/internal/repository"
	"github.com/mtlprog/taskpulse/internal/specification"
)

// TaskRepository persists task aggregates. Writes dispatch the aggregate's events after commit.
type TaskRepository interface {
	Create(ctx context.Context, task *domain.Task) error
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, taskID string) (bool, error)
	FindByID(ctx context.Context, taskID string) (*domain.Task, error)
	FindByIDWithComments(ctx context.Context, taskID string) (*domain.Task, error)
	FindAll(ctx context.Context, filters repository.TaskFilters) ([]*domain.Task, error)
	FindBySpecification(ctx context.Context, spec specification.Spec[*domain.Task]) ([]*domain.Task, error)
	Stats(ctx context.Context) (*repository.TaskStats, error)
}

// EventDispatcher delivers events that are raised outside a repository write.
type EventDispatcher interface {
	DispatchAll(ctx context.Context, events []domain.Event)
}

// CreateTaskInput holds raw values for a new task.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
	DueDate     time.Time
}

// UpdateTaskInput holds optional raw values. Nil fields are left unchanged.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *string
	DueDate     *time.Time
}

// ListFilters holds raw list filters. Empty fields are ignored.
type ListFilters struct {
	Status   string
	Priority string
}

// TaskService coordinates task use cases: it turns raw input into value objects,
// applies them to the aggregate and hands the result to the repository.
type TaskService struct {
	repo       TaskRepository
	dispatcher EventDispatcher
	validator  *Validator
	priority   *PriorityPolicy
}

// NewTaskService creates a new TaskService. dispatcher may be nil.
func NewTaskService(repo TaskRepository, dispatcher EventDispatcher) *TaskService {
	return &TaskService{
		repo:       repo,
		dispatcher: dispatcher,
		validator:  NewValidator(),
		priority:   NewPriorityPolicy(),
	}
}

// Validator returns the rules the service applies.
func (s *TaskService) Validator() *Validator {
	return s.validator
}

// CreateTask validates input and stores a new task.
func (s *TaskService) CreateTask(ctx context.Context, in CreateTaskInput) (*domain.Task, error) {
	title, err := domain.NewTitle(in.Title)
	if err != nil {
		return nil, err
	}
	description, err := domain.NewDescription(in.Description)
	if err != nil {
		return nil, err
	}
	priority, err := domain.ParseTaskPriority(in.Priority)
	if err != nil {
		return nil, err
	}
	dueDate, err := domain.NewDueDate(in.DueDate)
	if err != nil {
		return nil, err
	}

	task, err := domain.NewTask(title, priority, dueDate, description)
	if err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	slog.Info("task created", "task_id", task.ID(), "priority", task.Priority())

	return task, nil
}

// GetTask returns a task with its comments.
func (s *TaskService) GetTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return s.repo.FindByIDWithComments(ctx, taskID)
}

// ListTasks returns tasks matching the optional status and priority filters.
func (s *TaskService) ListTasks(ctx context.Context, filters ListFilters) ([]*domain.Task, error) {
	var repoFilters repository.TaskFilters

	if filters.Status != "" {
		status, err := domain.ParseTaskStatus(filters.Status)
		if err != nil {
			return nil, err
		}
		repoFilters.Status = &status
	}
	if filters.Priority != "" {
		priority, err := domain.ParseTaskPriority(filters.Priority)
		if err != nil {
			return nil, err
		}
		repoFilters.Priority = &priority
	}

	return s.repo.FindAll(ctx, repoFilters)
}

// FindTasks returns tasks satisfying spec.
func (s *TaskService) FindTasks(ctx context.Context, spec specification.Spec[*domain.Task]) ([]*domain.Task, error) {
	return s.repo.FindBySpecification(ctx, spec)
}

// UpdateTask applies a partial update. All input is validated before the task is touched.
func (s *TaskService) UpdateTask(ctx context.Context, taskID string, in UpdateTaskInput) (*domain.Task, error) {
	var (
		title       *domain.Title
		description *domain.Description
		priority    *domain.TaskPriority
		dueDate     *domain.DueDate
	)

	if in.Title != nil {
		v, err := domain.NewTitle(*in.Title)
		if err != nil {
			return nil, err
		}
		title = &v
	}
	if in.Description != nil {
		v, err := domain.NewDescription(*in.Description)
		if err != nil {
			return nil, err
		}
		description = &v
	}
	if in.Priority != nil {
		v, err := domain.ParseTaskPriority(*in.Priority)
		if err != nil {
			return nil, err
		}
		priority = &v
	}
	if in.DueDate != nil {
		v, err := domain.NewDueDate(*in.DueDate)
		if err != nil {
			return nil, err
		}
		dueDate = &v
	}

	return s.mutate(ctx, taskID, func(task *domain.Task) error {
		if title != nil {
			task.UpdateTitle(*title)
		}
		if description != nil {
			task.UpdateDescription(*description)
		}
		if priority != nil {
			if err := task.ChangePriority(*priority); err != nil {
				return err
			}
		}
		if dueDate != nil {
			if err := task.ChangeDueDate(*dueDate); err != nil {
				return err
			}
		}
		return nil
	})
}

// ChangeStatus moves a task to the given status.
func (s *TaskService) ChangeStatus(ctx context.Context, taskID, rawStatus string) (*domain.Task, error) {
	status, err := domain.ParseTaskStatus(rawStatus)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, taskID, func(task *domain.Task) error {
		return task.ChangeStatus(status)
	})
}

// CompleteTask moves an in-progress task to Done.
func (s *TaskService) CompleteTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return s.mutate(ctx, taskID, func(task *domain.Task) error {
		if err := s.validator.CanComplete(task); err != nil {
			return err
		}
		return task.Complete()
	})
}

// ReopenTask moves a task to InProgress, typically a finished one.
func (s *TaskService) ReopenTask(ctx context.Context, taskID string) (*domain.Task, error) {
	return s.mutate(ctx, taskID, func(task *domain.Task) error {
		return task.Reopen()
	})
}

// AddComment attaches a comment to a task.
func (s *TaskService) AddComment(ctx context.Context, taskID, rawText string) (*domain.Comment, error) {
	text, err := domain.NewCommentText(rawText)
	if err != nil {
		return nil, err
	}

	var comment *domain.Comment
	_, err = s.mutate(ctx, taskID, func(task *domain.Task) error {
		comment = task.AddComment(text)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return comment, nil
}

// RemoveComment deletes a comment from a task.
func (s *TaskService) RemoveComment(ctx context.Context, taskID, commentID string) (*domain.Task, error) {
	return s.mutate(ctx, taskID, func(task *domain.Task) error {
		return task.RemoveComment(commentID)
	})
}

// DeleteTask removes a task. Unless force is set, in-progress tasks and tasks
// with comments are refused. TaskDeleted is dispatched after the delete commits.
func (s *TaskService) DeleteTask(ctx context.Context, taskID string, force bool) error {
	task, err := s.repo.FindByIDWithComments(ctx, taskID)
	if err != nil {
		return err
	}

	if !force {
		if err := s.validator.CanDelete(task); err != nil {
			return err
		}
	}

	existed, err := s.repo.Delete(ctx, taskID)
	if err != nil {
		return fmt.Errorf("delete task: %w", err)
	}
	if !existed {
		return &domain.TaskNotFoundError{TaskID: taskID}
	}

	task.MarkDeleted()
	if s.dispatcher != nil {
		s.dispatcher.DispatchAll(ctx, task.DrainEvents())
	}

	slog.Info("task deleted", "task_id", taskID, "forced", force)

	return nil
}

// Stats returns task counts.
func (s *TaskService) Stats(ctx context.Context) (*repository.TaskStats, error) {
	return s.repo.Stats(ctx)
}

// EscalateOverdueTasks raises the priority of overdue tasks by one level.
// Returns the number of tasks updated, and an error if any tasks failed.
func (s *TaskService) EscalateOverdueTasks(ctx context.Context) (int, error) {
	tasks, err := s.repo.FindBySpecification(ctx, domain.OverdueTasks[*domain.Task]())
	if err != nil {
		return 0, fmt.Errorf("find overdue tasks: %w", err)
	}

	if len(tasks) == 0 {
		slog.Info("no overdue tasks found")
		return 0, nil
	}

	return s.persistPriorities(ctx, "escalate overdue", s.priority.EscalateOverdue(tasks))
}

// RebalancePriorities recomputes priorities of all active tasks from their due dates.
// Returns the number of tasks updated, and an error if any tasks failed.
func (s *TaskService) RebalancePriorities(ctx context.Context) (int, error) {
	tasks, err := s.repo.FindBySpecification(ctx, domain.ActiveTasks[*domain.Task]())
	if err != nil {
		return 0, fmt.Errorf("find active tasks: %w", err)
	}

	return s.persistPriorities(ctx, "rebalance priorities", s.priority.Rebalance(tasks))
}

// persistPriorities stores the new priority of each changed task in its own transaction.
// The listed tasks were loaded without comments, so each one is reloaded in full first.
func (s *TaskService) persistPriorities(ctx context.Context, job string, changed []*domain.Task) (int, error) {
	count := 0
	var errs []error // Accumulate errors
	for _, t := range changed {
		target := t.Priority()
		_, err := s.mutate(ctx, t.ID(), func(task *domain.Task) error {
			return task.ChangePriority(target)
		})
		if err != nil {
			slog.Error("failed to update task priority",
				"job", job,
				"task_id", t.ID(),
				"error", err,
			)
			errs = append(errs, fmt.Errorf("task %s: %w", t.ID(), err))
			continue
		}
		count++
	}

	failedCount := len(changed) - count
	slog.Info("priority job finished",
		"job", job,
		"total", len(changed),
		"successful", count,
		"failed", failedCount,
	)

	if len(errs) > 0 {
		return count, fmt.Errorf("%s: updated %d/%d tasks: %w", job, count, len(changed), errors.Join(errs...))
	}

	return count, nil
}

// mutate loads a task with its comments, applies fn and stores the result.
// Comments must be loaded because an update replaces the stored comment set.
func (s *TaskService) mutate(ctx context.Context, taskID string, fn func(task *domain.Task) error) (*domain.Task, error) {
	task, err := s.repo.FindByIDWithComments(ctx, taskID)
	if err != nil {
		return nil, err
	}

	if err := fn(task); err != nil {
		return nil, err
	}

	if len(task.PendingEvents()) == 0 {
		return task, nil
	}

	if err := s.repo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}

	return task, nil
}
