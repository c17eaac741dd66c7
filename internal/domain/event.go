package domain

import "time"

// Event names.
const (
	EventTaskCreated            = "TaskCreated"
	EventTaskStatusChanged      = "TaskStatusChanged"
	EventTaskCompleted          = "TaskCompleted"
	EventTaskPriorityChanged    = "TaskPriorityChanged"
	EventTaskTitleChanged       = "TaskTitleChanged"
	EventTaskDescriptionChanged = "TaskDescriptionChanged"
	EventTaskDueDateChanged     = "TaskDueDateChanged"
	EventTaskDeleted            = "TaskDeleted"
	EventCommentAdded           = "CommentAdded"
	EventCommentDeleted         = "CommentDeleted"
)

// AllEventNames lists every event the task aggregate can raise.
func AllEventNames() []string {
	return []string{
		EventTaskCreated,
		EventTaskStatusChanged,
		EventTaskCompleted,
		EventTaskPriorityChanged,
		EventTaskTitleChanged,
		EventTaskDescriptionChanged,
		EventTaskDueDateChanged,
		EventTaskDeleted,
		EventCommentAdded,
		EventCommentDeleted,
	}
}

// Event is something that happened to an aggregate.
// Events are transient: raised in memory, dispatched once, then discarded.
type Event interface {
	EventName() string
	AggregateID() string
	OccurredOn() time.Time
}

// EventBase carries the envelope shared by every event.
// Payload fields live on the embedding struct.
type EventBase struct {
	aggregateID string
	occurredOn  time.Time
}

func newEventBase(aggregateID string, at time.Time) EventBase {
	return EventBase{aggregateID: aggregateID, occurredOn: at}
}

// AggregateID returns the id of the aggregate that raised the event.
func (e EventBase) AggregateID() string { return e.aggregateID }

// OccurredOn returns when the event was raised.
func (e EventBase) OccurredOn() time.Time { return e.occurredOn }

type TaskCreated struct {
	EventBase
	Title    string       `json:"title"`
	Priority TaskPriority `json:"priority"`
	DueDate  time.Time    `json:"due_date"`
}

func (TaskCreated) EventName() string { return EventTaskCreated }

type TaskStatusChanged struct {
	EventBase
	OldStatus TaskStatus `json:"old_status"`
	NewStatus TaskStatus `json:"new_status"`
}

func (TaskStatusChanged) EventName() string { return EventTaskStatusChanged }

type TaskCompleted struct {
	EventBase
	CompletedAt time.Time `json:"completed_at"`
}

func (TaskCompleted) EventName() string { return EventTaskCompleted }

type TaskPriorityChanged struct {
	EventBase
	OldPriority TaskPriority `json:"old_priority"`
	NewPriority TaskPriority `json:"new_priority"`
}

func (TaskPriorityChanged) EventName() string { return EventTaskPriorityChanged }

type TaskTitleChanged struct {
	EventBase
	OldTitle string `json:"old_title"`
	NewTitle string `json:"new_title"`
}

func (TaskTitleChanged) EventName() string { return EventTaskTitleChanged }

// TaskDescriptionChanged uses nil for an absent description.
type TaskDescriptionChanged struct {
	EventBase
	OldDescription *string `json:"old_description"`
	NewDescription *string `json:"new_description"`
}

func (TaskDescriptionChanged) EventName() string { return EventTaskDescriptionChanged }

type TaskDueDateChanged struct {
	EventBase
	OldDueDate time.Time `json:"old_due_date"`
	NewDueDate time.Time `json:"new_due_date"`
}

func (TaskDueDateChanged) EventName() string { return EventTaskDueDateChanged }

type TaskDeleted struct {
	EventBase
	DeletedAt time.Time `json:"deleted_at"`
}

func (TaskDeleted) EventName() string { return EventTaskDeleted }

type CommentAdded struct {
	EventBase
	CommentID string `json:"comment_id"`
	Text      string `json:"text"`
}

func (CommentAdded) EventName() string { return EventCommentAdded }

type CommentDeleted struct {
	EventBase
	CommentID string `json:"comment_id"`
}

func (CommentDeleted) EventName() string { return EventCommentDeleted }

// EventRecorder is implemented by aggregates that buffer events until they are persisted.
type EventRecorder interface {
	PendingEvents() []Event
	DrainEvents() []Event
}

// eventBuffer is embedded by aggregates to collect raised events in order.
type eventBuffer struct {
	events []Event
}

func (b *eventBuffer) record(e Event) {
	b.events = append(b.events, e)
}

// PendingEvents returns a copy of the buffered events without clearing them.
func (b *eventBuffer) PendingEvents() []Event {
	out := make([]Event, len(b.events))
	copy(out, b.events)
	return out
}

// DrainEvents returns the buffered events and empties the buffer.
func (b *eventBuffer) DrainEvents() []Event {
	out := b.events
	b.events = nil
	return out
}
