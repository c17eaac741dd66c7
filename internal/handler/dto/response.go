package dto

import (
	"time"

	"github.com/mtlprog/taskpulse/internal/domain"
	"github.com/mtlprog/taskpulse/internal/repository"
)

// TaskResponse represents a task in the list view. List queries do not load comments,
// so comment fields only appear in TaskDetailResponse.
type TaskResponse struct {
	ID           string    `json:"id"`
	Title        string    `json:"title"`
	Description  *string   `json:"description"`
	Status       string    `json:"status"`
	Priority     string    `json:"priority"`
	DueDate      time.Time `json:"due_date"`
	IsOverdue    bool      `json:"is_overdue"`
	DaysUntilDue int       `json:"days_until_due"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// TasksListResponse represents the response for GET /tasks.
type TasksListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Total int            `json:"total"`
}

// TaskDetailResponse represents full task details with comments.
type TaskDetailResponse struct {
	TaskResponse
	CommentCount int               `json:"comment_count"`
	Comments     []CommentResponse `json:"comments"`
	Warnings     []string          `json:"warnings,omitempty"`
}

// CommentResponse represents a single comment.
type CommentResponse struct {
	ID        string    `json:"id"`
	TaskID    string    `json:"task_id"`
	Text      string    `json:"text"`
	CreatedAt time.Time `json:"created_at"`
}

// StatsResponse represents task counts.
type StatsResponse struct {
	Total      int            `json:"total"`
	ByStatus   map[string]int `json:"by_status"`
	ByPriority map[string]int `json:"by_priority"`
	Overdue    int            `json:"overdue"`
}

// ToTaskResponse converts domain.Task to TaskResponse.
func ToTaskResponse(task *domain.Task) TaskResponse {
	var description *string
	if v, ok := task.Description().Value(); ok {
		description = &v
	}

	return TaskResponse{
		ID:           task.ID(),
		Title:        task.Title().String(),
		Description:  description,
		Status:       string(task.Status()),
		Priority:     string(task.Priority()),
		DueDate:      task.DueDate().Time(),
		IsOverdue:    task.IsOverdue(),
		DaysUntilDue: task.DaysUntilDue(),
		CreatedAt:    task.CreatedAt(),
		UpdatedAt:    task.UpdatedAt(),
	}
}

// ToTasksListResponse converts a task slice to TasksListResponse.
func ToTasksListResponse(tasks []*domain.Task) TasksListResponse {
	resp := TasksListResponse{
		Tasks: make([]TaskResponse, 0, len(tasks)),
		Total: len(tasks),
	}
	for _, task := range tasks {
		resp.Tasks = append(resp.Tasks, ToTaskResponse(task))
	}
	return resp
}

// ToTaskDetailResponse converts domain.Task to TaskDetailResponse.
// warnings is the joined result of a state check and may be nil.
func ToTaskDetailResponse(task *domain.Task, warnings error) TaskDetailResponse {
	resp := TaskDetailResponse{
		TaskResponse: ToTaskResponse(task),
		CommentCount: task.CommentCount(),
		Comments:     make([]CommentResponse, 0, task.CommentCount()),
	}
	for _, c := range task.Comments() {
		resp.Comments = append(resp.Comments, ToCommentResponse(c))
	}

	if warnings != nil {
		if joined, ok := warnings.(interface{ Unwrap() []error }); ok {
			for _, w := range joined.Unwrap() {
				resp.Warnings = append(resp.Warnings, w.Error())
			}
		} else {
			resp.Warnings = append(resp.Warnings, warnings.Error())
		}
	}

	return resp
}

// ToCommentResponse converts domain.Comment to CommentResponse.
func ToCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:        c.ID(),
		TaskID:    c.TaskID(),
		Text:      c.Text().String(),
		CreatedAt: c.CreatedAt(),
	}
}

// ToStatsResponse converts repository.TaskStats to StatsResponse.
func ToStatsResponse(stats *repository.TaskStats) StatsResponse {
	resp := StatsResponse{
		Total:      stats.Total,
		ByStatus:   make(map[string]int, len(stats.ByStatus)),
		ByPriority: make(map[string]int, len(stats.ByPriority)),
		Overdue:    stats.Overdue,
	}
	for status, n := range stats.ByStatus {
		resp.ByStatus[string(status)] = n
	}
	for priority, n := range stats.ByPriority {
		resp.ByPriority[string(priority)] = n
	}
	return resp
}
