package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	sq "github.com/Masterminds/squirrel"
	"github.com/jackc/pgx/v5"

	"github.com/mtlprog/taskpulse/internal/domain"
	"github.com/mtlprog/taskpulse/internal/specification"
)

// psql builds PostgreSQL statements with $n placeholders.
var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// taskColumns is the shared list of columns for task queries.
var taskColumns = []string{
	"id", "title", "description", "priority", "status", "due_date",
	"created_at", "updated_at",
}

// commentColumns is the shared list of columns for comment queries.
var commentColumns = []string{"id", "task_id", "text", "created_at"}

// DB is the part of pgxpool.Pool the repository uses.
type DB interface {
	Begin(ctx context.Context) (pgx.Tx, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// EventDispatcher delivers events after a successful commit.
type EventDispatcher interface {
	DispatchAll(ctx context.Context, events []domain.Event)
}

// TaskFilters narrows FindAll. Nil fields are ignored.
type TaskFilters struct {
	Status   *domain.TaskStatus
	Priority *domain.TaskPriority
}

// TaskRepository stores task aggregates in PostgreSQL.
// Each write runs in one transaction; buffered events are dispatched only after commit.
type TaskRepository struct {
	db         DB
	dispatcher EventDispatcher
	logger     *slog.Logger
}

// NewTaskRepository creates a new TaskRepository. dispatcher may be nil.
func NewTaskRepository(db DB, dispatcher EventDispatcher) *TaskRepository {
	return &TaskRepository{db: db, dispatcher: dispatcher, logger: slog.Default()}
}

// scanTask scans a single row into a TaskState.
func scanTask(row pgx.Row) (domain.TaskState, error) {
	var (
		state       domain.TaskState
		description *string
	)
	err := row.Scan(
		&state.ID,
		&state.Title,
		&description,
		&state.Priority,
		&state.Status,
		&state.DueDate,
		&state.CreatedAt,
		&state.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.TaskState{}, domain.ErrTaskNotFound
		}
		return domain.TaskState{}, fmt.Errorf("scan task: %w", err)
	}
	if description != nil {
		state.Description = *description
	}
	return state, nil
}

// scanTasks scans multiple rows into aggregates.
func scanTasks(rows pgx.Rows) ([]*domain.Task, error) {
	defer rows.Close()

	var tasks []*domain.Task
	for rows.Next() {
		state, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, domain.ReconstituteTask(state))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return tasks, nil
}

// Create inserts a new task and its comments.
func (r *TaskRepository) Create(ctx context.Context, task *domain.Task) error {
	state := task.State()

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		query, args, err := psql.
			Insert("tasks").
			Columns(taskColumns...).
			Values(
				state.ID,
				state.Title,
				nullable(state.Description),
				state.Priority,
				state.Status,
				state.DueDate,
				state.CreatedAt,
				state.UpdatedAt,
			).
			ToSql()
		if err != nil {
			return fmt.Errorf("build Create query for task: %w", err)
		}

		if _, err := tx.Exec(ctx, query, args...); err != nil {
			return fmt.Errorf("create task: %w", err)
		}

		return insertComments(ctx, tx, state.Comments)
	})
	if err != nil {
		return err
	}

	r.dispatchEvents(ctx, task)
	return nil
}

// Update writes the task row and replaces its comment set.
func (r *TaskRepository) Update(ctx context.Context, task *domain.Task) error {
	state := task.State()

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		query, args, err := psql.
			Update("tasks").
			Set("title", state.Title).
			Set("description", nullable(state.Description)).
			Set("priority", state.Priority).
			Set("status", state.Status).
			Set("due_date", state.DueDate).
			Set("updated_at", state.UpdatedAt).
			Where(sq.Eq{"id": state.ID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build Update query for task %s: %w", state.ID, err)
		}

		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("update task: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return &domain.TaskNotFoundError{TaskID: state.ID}
		}

		if err := deleteComments(ctx, tx, state.ID); err != nil {
			return err
		}
		return insertComments(ctx, tx, state.Comments)
	})
	if err != nil {
		return err
	}

	r.dispatchEvents(ctx, task)
	return nil
}

// Delete removes the task's comments and then the task.
// It reports whether a task row existed.
func (r *TaskRepository) Delete(ctx context.Context, taskID string) (bool, error) {
	var existed bool

	err := r.inTx(ctx, func(tx pgx.Tx) error {
		if err := deleteComments(ctx, tx, taskID); err != nil {
			return err
		}

		query, args, err := psql.
			Delete("tasks").
			Where(sq.Eq{"id": taskID}).
			ToSql()
		if err != nil {
			return fmt.Errorf("build Delete query for task %s: %w", taskID, err)
		}

		tag, err := tx.Exec(ctx, query, args...)
		if err != nil {
			return fmt.Errorf("delete task: %w", err)
		}
		existed = tag.RowsAffected() > 0
		return nil
	})
	if err != nil {
		return false, err
	}
	return existed, nil
}

// FindByID retrieves a task without its comments.
func (r *TaskRepository) FindByID(ctx context.Context, taskID string) (*domain.Task, error) {
	state, err := r.findState(ctx, taskID)
	if err != nil {
		return nil, err
	}
	return domain.ReconstituteTask(state), nil
}

// FindByIDWithComments retrieves a task and its comments in creation order.
func (r *TaskRepository) FindByIDWithComments(ctx context.Context, taskID string) (*domain.Task, error) {
	state, err := r.findState(ctx, taskID)
	if err != nil {
		return nil, err
	}

	query, args, err := psql.
		Select(commentColumns...).
		From("comments").
		Where(sq.Eq{"task_id": taskID}).
		OrderBy("created_at ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build comments query for task %s: %w", taskID, err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query comments: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var c domain.CommentState
		if err := rows.Scan(&c.ID, &c.TaskID, &c.Text, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		state.Comments = append(state.Comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comment rows: %w", err)
	}

	return domain.ReconstituteTask(state), nil
}

// FindAll lists tasks matching filters, soonest due first and newest first within a due date.
func (r *TaskRepository) FindAll(ctx context.Context, filters TaskFilters) ([]*domain.Task, error) {
	builder := psql.
		Select(taskColumns...).
		From("tasks").
		OrderBy("due_date ASC", "created_at DESC")

	if filters.Status != nil {
		builder = builder.Where(sq.Eq{"status": *filters.Status})
	}
	if filters.Priority != nil {
		builder = builder.Where(sq.Eq{"priority": *filters.Priority})
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return nil, fmt.Errorf("build FindAll query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}

	return scanTasks(rows)
}

// FindBySpecification loads every task and keeps those satisfying spec.
func (r *TaskRepository) FindBySpecification(ctx context.Context, spec specification.Spec[*domain.Task]) ([]*domain.Task, error) {
	tasks, err := r.FindAll(ctx, TaskFilters{})
	if err != nil {
		return nil, err
	}
	return specification.Filter(tasks, spec), nil
}

func (r *TaskRepository) findState(ctx context.Context, taskID string) (domain.TaskState, error) {
	query, args, err := psql.
		Select(taskColumns...).
		From("tasks").
		Where(sq.Eq{"id": taskID}).
		ToSql()
	if err != nil {
		return domain.TaskState{}, fmt.Errorf("build FindByID query for task: %w", err)
	}

	state, err := scanTask(r.db.QueryRow(ctx, query, args...))
	if errors.Is(err, domain.ErrTaskNotFound) {
		return domain.TaskState{}, &domain.TaskNotFoundError{TaskID: taskID}
	}
	return state, err
}

// inTx runs fn in a transaction and commits when it succeeds.
func (r *TaskRepository) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			r.logger.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func (r *TaskRepository) dispatchEvents(ctx context.Context, recorder domain.EventRecorder) {
	dispatchEvents(ctx, r.dispatcher, recorder)
}

func insertComments(ctx context.Context, tx pgx.Tx, comments []domain.CommentState) error {
	if len(comments) == 0 {
		return nil
	}

	builder := psql.Insert("comments").Columns(commentColumns...)
	for _, c := range comments {
		builder = builder.Values(c.ID, c.TaskID, c.Text, c.CreatedAt)
	}

	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build insert comments query: %w", err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("insert comments: %w", err)
	}
	return nil
}

func deleteComments(ctx context.Context, tx pgx.Tx, taskID string) error {
	query, args, err := psql.
		Delete("comments").
		Where(sq.Eq{"task_id": taskID}).
		ToSql()
	if err != nil {
		return fmt.Errorf("build delete comments query for task %s: %w", taskID, err)
	}

	if _, err := tx.Exec(ctx, query, args...); err != nil {
		return fmt.Errorf("delete comments: %w", err)
	}
	return nil
}

// dispatchEvents drains the recorder and hands the events to the dispatcher in order.
// Called only after a commit; failures inside handlers never reach the caller.
func dispatchEvents(ctx context.Context, dispatcher EventDispatcher, recorder domain.EventRecorder) {
	events := recorder.DrainEvents()
	if dispatcher == nil || len(events) == 0 {
		return
	}
	dispatcher.DispatchAll(ctx, events)
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
