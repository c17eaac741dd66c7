package repository

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/mtlprog/taskpulse/internal/domain"
	"github.com/mtlprog/taskpulse/internal/specification"
)

// MemoryTaskRepository keeps tasks in process memory.
// It follows the same contract as TaskRepository: a write is applied as a whole
// under the lock, and events are dispatched only after it is applied.
type MemoryTaskRepository struct {
	mu         sync.RWMutex
	tasks      map[string]domain.TaskState
	dispatcher EventDispatcher
}

// NewMemoryTaskRepository creates an empty repository. dispatcher may be nil.
func NewMemoryTaskRepository(dispatcher EventDispatcher) *MemoryTaskRepository {
	return &MemoryTaskRepository{
		tasks:      make(map[string]domain.TaskState),
		dispatcher: dispatcher,
	}
}

func (r *MemoryTaskRepository) Create(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	r.tasks[task.ID()] = task.State()
	r.mu.Unlock()

	dispatchEvents(ctx, r.dispatcher, task)
	return nil
}

func (r *MemoryTaskRepository) Update(ctx context.Context, task *domain.Task) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	r.mu.Lock()
	if _, ok := r.tasks[task.ID()]; !ok {
		r.mu.Unlock()
		return &domain.TaskNotFoundError{TaskID: task.ID()}
	}
	r.tasks[task.ID()] = task.State()
	r.mu.Unlock()

	dispatchEvents(ctx, r.dispatcher, task)
	return nil
}

func (r *MemoryTaskRepository) Delete(ctx context.Context, taskID string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.tasks[taskID]
	delete(r.tasks, taskID)
	return ok, nil
}

func (r *MemoryTaskRepository) FindByID(ctx context.Context, taskID string) (*domain.Task, error) {
	state, err := r.find(ctx, taskID)
	if err != nil {
		return nil, err
	}
	state.Comments = nil
	return domain.ReconstituteTask(state), nil
}

func (r *MemoryTaskRepository) FindByIDWithComments(ctx context.Context, taskID string) (*domain.Task, error) {
	state, err := r.find(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return domain.ReconstituteTask(state), nil
}

func (r *MemoryTaskRepository) FindAll(ctx context.Context, filters TaskFilters) ([]*domain.Task, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	states := make([]domain.TaskState, 0, len(r.tasks))
	for _, s := range r.tasks {
		if filters.Status != nil && s.Status != *filters.Status {
			continue
		}
		if filters.Priority != nil && s.Priority != *filters.Priority {
			continue
		}
		states = append(states, s)
	}
	r.mu.RUnlock()

	slices.SortFunc(states, func(a, b domain.TaskState) int {
		if c := a.DueDate.Compare(b.DueDate); c != 0 {
			return c
		}
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	tasks := make([]*domain.Task, 0, len(states))
	for _, s := range states {
		s.Comments = nil
		tasks = append(tasks, domain.ReconstituteTask(s))
	}
	return tasks, nil
}

func (r *MemoryTaskRepository) FindBySpecification(ctx context.Context, spec specification.Spec[*domain.Task]) ([]*domain.Task, error) {
	tasks, err := r.FindAll(ctx, TaskFilters{})
	if err != nil {
		return nil, err
	}
	return specification.Filter(tasks, spec), nil
}

func (r *MemoryTaskRepository) Stats(ctx context.Context) (*TaskStats, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	stats := newTaskStats()
	at := time.Now()

	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, s := range r.tasks {
		stats.Total++
		stats.ByStatus[s.Status]++
		stats.ByPriority[s.Priority]++
		if s.Status != domain.TaskStatusDone && s.DueDate.Before(at) {
			stats.Overdue++
		}
	}
	return stats, nil
}

func (r *MemoryTaskRepository) find(ctx context.Context, taskID string) (domain.TaskState, error) {
	if err := ctx.Err(); err != nil {
		return domain.TaskState{}, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	state, ok := r.tasks[taskID]
	if !ok {
		return domain.TaskState{}, &domain.TaskNotFoundError{TaskID: taskID}
	}
	state.Comments = slices.Clone(state.Comments)
	return state, nil
}
