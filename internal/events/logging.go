package events

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/mtlprog/taskpulse/internal/domain"
)

// RegisterLoggingHandlers registers handlers that write a log line for the main task events.
func RegisterLoggingHandlers(d *Dispatcher, logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	d.RegisterFunc(domain.EventTaskCreated, func(ctx context.Context, e domain.Event) error {
		ev, ok := e.(domain.TaskCreated)
		if !ok {
			return unexpectedEvent(e)
		}
		logger.InfoContext(ctx, "task created",
			"task_id", ev.AggregateID(),
			"title", ev.Title,
			"priority", ev.Priority,
			"due_date", ev.DueDate,
		)
		return nil
	})

	d.RegisterFunc(domain.EventTaskStatusChanged, func(ctx context.Context, e domain.Event) error {
		ev, ok := e.(domain.TaskStatusChanged)
		if !ok {
			return unexpectedEvent(e)
		}
		logger.InfoContext(ctx, "task status changed",
			"task_id", ev.AggregateID(),
			"old_status", ev.OldStatus,
			"new_status", ev.NewStatus,
		)
		return nil
	})

	d.RegisterFunc(domain.EventTaskCompleted, func(ctx context.Context, e domain.Event) error {
		ev, ok := e.(domain.TaskCompleted)
		if !ok {
			return unexpectedEvent(e)
		}
		logger.InfoContext(ctx, "task completed",
			"task_id", ev.AggregateID(),
			"completed_at", ev.CompletedAt,
		)
		return nil
	})

	d.RegisterFunc(domain.EventTaskPriorityChanged, func(ctx context.Context, e domain.Event) error {
		ev, ok := e.(domain.TaskPriorityChanged)
		if !ok {
			return unexpectedEvent(e)
		}
		level := slog.LevelInfo
		if ev.NewPriority == domain.TaskPriorityHigh {
			level = slog.LevelWarn
		}
		logger.Log(ctx, level, "task priority changed",
			"task_id", ev.AggregateID(),
			"old_priority", ev.OldPriority,
			"new_priority", ev.NewPriority,
		)
		return nil
	})

	d.RegisterFunc(domain.EventCommentAdded, func(ctx context.Context, e domain.Event) error {
		ev, ok := e.(domain.CommentAdded)
		if !ok {
			return unexpectedEvent(e)
		}
		logger.InfoContext(ctx, "comment added",
			"task_id", ev.AggregateID(),
			"comment_id", ev.CommentID,
		)
		return nil
	})
}

// ErrUnexpectedEvent is returned when a handler receives a type it was not registered for.
var ErrUnexpectedEvent = errors.New("unexpected event type")

func unexpectedEvent(e domain.Event) error {
	return fmt.Errorf("%w: %s is %T", ErrUnexpectedEvent, e.EventName(), e)
}
