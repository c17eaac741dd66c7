package repository

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"

	"github.com/mtlprog/taskpulse/internal/domain"
)

// TaskStats holds counts over all stored tasks.
type TaskStats struct {
	Total      int
	ByStatus   map[domain.TaskStatus]int
	ByPriority map[domain.TaskPriority]int
	Overdue    int
}

func newTaskStats() *TaskStats {
	return &TaskStats{
		ByStatus:   make(map[domain.TaskStatus]int),
		ByPriority: make(map[domain.TaskPriority]int),
	}
}

// Stats retrieves task counts grouped by status and priority plus the overdue count.
func (r *TaskRepository) Stats(ctx context.Context) (*TaskStats, error) {
	stats := newTaskStats()

	// Tasks by status and priority in one pass
	query, args, err := psql.
		Select("status", "priority", "COUNT(*)").
		From("tasks").
		GroupBy("status", "priority").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build stats query: %w", err)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query task counts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			status   domain.TaskStatus
			priority domain.TaskPriority
			count    int
		)
		if err := rows.Scan(&status, &priority, &count); err != nil {
			return nil, fmt.Errorf("scan task count: %w", err)
		}
		stats.ByStatus[status] += count
		stats.ByPriority[priority] += count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate task count rows: %w", err)
	}

	// Overdue: unfinished and past due right now
	query, args, err = psql.
		Select("COUNT(*)").
		From("tasks").
		Where(sq.NotEq{"status": domain.TaskStatusDone}).
		Where("due_date < NOW()").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overdue query: %w", err)
	}

	if err := r.db.QueryRow(ctx, query, args...).Scan(&stats.Overdue); err != nil {
		return nil, fmt.Errorf("count overdue tasks: %w", err)
	}

	return stats, nil
}
