package domain

import (
	"time"

	"github.com/google/uuid"
)

// Comment is a note attached to a task. It only exists inside its task and
// is created or removed through Task methods.
type Comment struct {
	id        string
	taskID    string
	text      CommentText
	createdAt time.Time
}

// CommentState is the stored shape of a comment.
type CommentState struct {
	ID        string
	TaskID    string
	Text      string
	CreatedAt time.Time
}

func newComment(taskID string, text CommentText, at time.Time) *Comment {
	return &Comment{
		id:        uuid.NewString(),
		taskID:    taskID,
		text:      text,
		createdAt: at,
	}
}

// ReconstituteComment rebuilds a stored comment.
func ReconstituteComment(s CommentState) *Comment {
	return &Comment{
		id:        s.ID,
		taskID:    s.TaskID,
		text:      CommentText{value: s.Text},
		createdAt: s.CreatedAt,
	}
}

// State returns the storable shape of the comment.
func (c *Comment) State() CommentState {
	return CommentState{
		ID:        c.id,
		TaskID:    c.taskID,
		Text:      c.text.String(),
		CreatedAt: c.createdAt,
	}
}

func (c *Comment) ID() string           { return c.id }
func (c *Comment) TaskID() string       { return c.taskID }
func (c *Comment) Text() CommentText    { return c.text }
func (c *Comment) CreatedAt() time.Time { return c.createdAt }
