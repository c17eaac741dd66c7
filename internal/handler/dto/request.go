package dto

import "time"

// CreateTaskRequest represents the request body for POST /tasks.
type CreateTaskRequest struct {
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	Priority    string    `json:"priority,omitempty"`
	DueDate     time.Time `json:"due_date"`
}

// UpdateTaskRequest represents the request body for PATCH /tasks/:id.
// Omitted fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	Priority    *string    `json:"priority,omitempty"`
	DueDate     *time.Time `json:"due_date,omitempty"`
}

// ChangeStatusRequest represents the request body for PATCH /tasks/:id/status.
type ChangeStatusRequest struct {
	Status string `json:"status"`
}

// AddCommentRequest represents the request body for POST /tasks/:id/comments.
type AddCommentRequest struct {
	Text string `json:"text"`
}
