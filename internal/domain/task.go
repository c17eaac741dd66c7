package domain

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// Task is the aggregate root of the tracker. All state changes go through its
// methods, and each one records the matching event for dispatch after persistence.
type Task struct {
	eventBuffer

	id          string
	title       Title
	description Description
	priority    TaskPriority
	status      TaskStatus
	dueDate     DueDate
	comments    []*Comment
	createdAt   time.Time
	updatedAt   time.Time
}

// TaskState is the stored shape of a task, used to rebuild it without raising events.
type TaskState struct {
	ID          string
	Title       string
	Description string
	Priority    TaskPriority
	Status      TaskStatus
	DueDate     time.Time
	Comments    []CommentState
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// NewTask creates a task in status New and records TaskCreated.
func NewTask(title Title, priority TaskPriority, dueDate DueDate, description Description) (*Task, error) {
	if !priority.IsValid() {
		return nil, ErrInvalidPriority
	}

	createdAt := now()
	t := &Task{
		id:          uuid.NewString(),
		title:       title,
		description: description,
		priority:    priority,
		status:      TaskStatusNew,
		dueDate:     dueDate,
		createdAt:   createdAt,
		updatedAt:   createdAt,
	}
	t.record(TaskCreated{
		EventBase: newEventBase(t.id, createdAt),
		Title:     title.String(),
		Priority:  priority,
		DueDate:   dueDate.Time(),
	})
	return t, nil
}

// ReconstituteTask rebuilds a task from storage. Stored values are trusted and no events are recorded.
func ReconstituteTask(s TaskState) *Task {
	t := &Task{
		id:          s.ID,
		title:       Title{value: s.Title},
		description: Description{value: s.Description},
		priority:    s.Priority,
		status:      s.Status,
		dueDate:     ReconstituteDueDate(s.DueDate),
		createdAt:   s.CreatedAt,
		updatedAt:   s.UpdatedAt,
	}
	for _, c := range s.Comments {
		t.comments = append(t.comments, ReconstituteComment(c))
	}
	return t
}

// State returns the storable shape of the task. Pending events are not part of it.
func (t *Task) State() TaskState {
	s := TaskState{
		ID:          t.id,
		Title:       t.title.String(),
		Description: t.description.String(),
		Priority:    t.priority,
		Status:      t.status,
		DueDate:     t.dueDate.Time(),
		CreatedAt:   t.createdAt,
		UpdatedAt:   t.updatedAt,
	}
	for _, c := range t.comments {
		s.Comments = append(s.Comments, c.State())
	}
	return s
}

func (t *Task) ID() string               { return t.id }
func (t *Task) Title() Title             { return t.title }
func (t *Task) Description() Description { return t.description }
func (t *Task) Priority() TaskPriority   { return t.priority }
func (t *Task) Status() TaskStatus       { return t.status }
func (t *Task) DueDate() DueDate         { return t.dueDate }
func (t *Task) CreatedAt() time.Time     { return t.createdAt }
func (t *Task) UpdatedAt() time.Time     { return t.updatedAt }
func (t *Task) CommentCount() int        { return len(t.comments) }
func (t *Task) HasComments() bool        { return len(t.comments) > 0 }
func (t *Task) Comments() []*Comment     { return slices.Clone(t.comments) }

// ChangeStatus moves the task along the state machine.
// Requesting the current status does nothing. Moving to Done also records TaskCompleted.
func (t *Task) ChangeStatus(next TaskStatus) error {
	if next == t.status {
		return nil
	}
	if !t.status.CanTransitionTo(next) {
		return &InvalidStatusTransitionError{Current: t.status, Requested: next}
	}

	old := t.status
	t.status = next
	at := t.touch()

	t.record(TaskStatusChanged{
		EventBase: newEventBase(t.id, at),
		OldStatus: old,
		NewStatus: next,
	})
	if next == TaskStatusDone {
		t.record(TaskCompleted{
			EventBase:   newEventBase(t.id, at),
			CompletedAt: at,
		})
	}
	return nil
}

// Start moves a new or reopened task to InProgress.
func (t *Task) Start() error { return t.ChangeStatus(TaskStatusInProgress) }

// Complete moves the task to Done.
func (t *Task) Complete() error { return t.ChangeStatus(TaskStatusDone) }

// Reopen moves the task to InProgress. It is ChangeStatus(InProgress):
// a finished or new task moves, an in-progress one is left as is.
func (t *Task) Reopen() error { return t.ChangeStatus(TaskStatusInProgress) }

// ChangePriority sets a new priority. Any direction is allowed.
func (t *Task) ChangePriority(priority TaskPriority) error {
	if !priority.IsValid() {
		return ErrInvalidPriority
	}
	if priority == t.priority {
		return nil
	}

	old := t.priority
	t.priority = priority
	at := t.touch()

	t.record(TaskPriorityChanged{
		EventBase:   newEventBase(t.id, at),
		OldPriority: old,
		NewPriority: priority,
	})
	return nil
}

func (t *Task) UpdateTitle(title Title) {
	if title.Equal(t.title) {
		return
	}

	old := t.title
	t.title = title
	at := t.touch()

	t.record(TaskTitleChanged{
		EventBase: newEventBase(t.id, at),
		OldTitle:  old.String(),
		NewTitle:  title.String(),
	})
}

func (t *Task) UpdateDescription(description Description) {
	if description.Equal(t.description) {
		return
	}

	old := t.description
	t.description = description
	at := t.touch()

	t.record(TaskDescriptionChanged{
		EventBase:      newEventBase(t.id, at),
		OldDescription: optional(old),
		NewDescription: optional(description),
	})
}

// ChangeDueDate moves the due date. Unlike NewDueDate this compares exact instants,
// so a time earlier today is rejected.
func (t *Task) ChangeDueDate(dueDate DueDate) error {
	if dueDate.Equal(t.dueDate) {
		return nil
	}
	if dueDate.IsPastAt(now()) {
		return &InvalidDueDateError{DueDate: dueDate.Time()}
	}

	old := t.dueDate
	t.dueDate = dueDate
	at := t.touch()

	t.record(TaskDueDateChanged{
		EventBase:  newEventBase(t.id, at),
		OldDueDate: old.Time(),
		NewDueDate: dueDate.Time(),
	})
	return nil
}

// AddComment appends a comment and returns it.
func (t *Task) AddComment(text CommentText) *Comment {
	// Comments are ordered by created_at, which storage keeps at microsecond precision.
	touched := t.touch()
	at := touched.Truncate(time.Microsecond)
	if at.Before(touched) {
		at = at.Add(time.Microsecond)
	}
	if n := len(t.comments); n > 0 {
		if last := t.comments[n-1].createdAt; !at.After(last) {
			at = last.Add(time.Microsecond)
		}
	}
	if at.After(t.updatedAt) {
		t.updatedAt = at
	}
	c := newComment(t.id, text, at)
	t.comments = append(t.comments, c)

	t.record(CommentAdded{
		EventBase: newEventBase(t.id, at),
		CommentID: c.id,
		Text:      text.String(),
	})
	return c
}

// RemoveComment deletes the comment with the given id.
// Unknown ids fail and leave the task untouched.
func (t *Task) RemoveComment(commentID string) error {
	idx := slices.IndexFunc(t.comments, func(c *Comment) bool { return c.id == commentID })
	if idx < 0 {
		return &CommentNotFoundError{CommentID: commentID}
	}

	t.comments = slices.Delete(t.comments, idx, idx+1)
	at := t.touch()

	t.record(CommentDeleted{
		EventBase: newEventBase(t.id, at),
		CommentID: commentID,
	})
	return nil
}

// MarkDeleted records TaskDeleted. Removing the row is up to the repository.
func (t *Task) MarkDeleted() {
	at := now()
	t.record(TaskDeleted{
		EventBase: newEventBase(t.id, at),
		DeletedAt: at,
	})
}

// IsOverdue reports whether the due date has passed on an unfinished task.
func (t *Task) IsOverdue() bool {
	return t.isOverdueAt(now())
}

func (t *Task) isOverdueAt(at time.Time) bool {
	return t.status != TaskStatusDone && t.dueDate.IsPastAt(at)
}

// DaysUntilDue returns whole calendar days until the due date; negative when overdue.
func (t *Task) DaysUntilDue() int {
	return t.dueDate.DaysUntilAt(now())
}

// touch bumps updatedAt, never letting it fall behind createdAt.
func (t *Task) touch() time.Time {
	at := now()
	if at.Before(t.createdAt) {
		at = t.createdAt
	}
	t.updatedAt = at
	return at
}

func optional(d Description) *string {
	v, ok := d.Value()
	if !ok {
		return nil
	}
	return &v
}
