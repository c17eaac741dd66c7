package domain

import (
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxTitleLength is the maximum title length in characters.
	MaxTitleLength = 200

	// MaxDescriptionLength is the maximum description length in characters.
	MaxDescriptionLength = 2000
)

// now is the clock used by the domain. Tests replace it.
var now = time.Now

// Title is a non-empty task title.
type Title struct {
	value string
}

// NewTitle validates and trims raw. The length limit applies to the untrimmed input.
func NewTitle(raw string) (Title, error) {
	if utf8.RuneCountInString(raw) > MaxTitleLength {
		return Title{}, ErrTitleTooLong
	}
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return Title{}, ErrEmptyTitle
	}
	return Title{value: trimmed}, nil
}

func (t Title) String() string { return t.value }

// Equal reports whether both titles hold the same text.
func (t Title) Equal(other Title) bool { return t.value == other.value }

// Description is optional task text. Blank input becomes an empty description.
type Description struct {
	value string
}

// NewDescription validates and trims raw.
func NewDescription(raw string) (Description, error) {
	if utf8.RuneCountInString(raw) > MaxDescriptionLength {
		return Description{}, ErrDescriptionTooLong
	}
	return Description{value: strings.TrimSpace(raw)}, nil
}

// Value returns the text and whether a description is present.
func (d Description) Value() (string, bool) {
	return d.value, d.value != ""
}

// IsEmpty reports whether no description is set.
func (d Description) IsEmpty() bool { return d.value == "" }

func (d Description) String() string { return d.value }

// Equal reports whether both descriptions hold the same text.
func (d Description) Equal(other Description) bool { return d.value == other.value }

// DueDate is the moment a task is due.
type DueDate struct {
	value time.Time
}

// NewDueDate rejects dates whose calendar day is before today.
func NewDueDate(t time.Time) (DueDate, error) {
	current := now()
	if civilDay(t, current.Location()).Before(civilDay(current, current.Location())) {
		return DueDate{}, ErrDueDateInPast
	}
	return DueDate{value: t}, nil
}

// ReconstituteDueDate restores a stored due date without validation.
// Persisted tasks may legitimately be past due.
func ReconstituteDueDate(t time.Time) DueDate {
	return DueDate{value: t}
}

// Time returns the underlying timestamp.
func (d DueDate) Time() time.Time { return d.value }

// Equal reports whether both due dates denote the same instant.
func (d DueDate) Equal(other DueDate) bool { return d.value.Equal(other.value) }

// Before reports whether the due date is earlier than t.
func (d DueDate) Before(t time.Time) bool { return d.value.Before(t) }

// IsPastAt reports whether the due date is strictly before at.
func (d DueDate) IsPastAt(at time.Time) bool { return d.value.Before(at) }

// DaysUntilAt returns whole calendar days from at to the due date.
// Due today yields 0, due yesterday yields -1.
func (d DueDate) DaysUntilAt(at time.Time) int {
	loc := at.Location()
	return int(civilDay(d.value, loc).Sub(civilDay(at, loc)).Hours() / 24)
}

func (d DueDate) String() string { return d.value.Format(time.RFC3339) }

// civilDay maps t to midnight UTC of its calendar day in loc so day arithmetic is DST-free.
func civilDay(t time.Time, loc *time.Location) time.Time {
	y, m, day := t.In(loc).Date()
	return time.Date(y, m, day, 0, 0, 0, 0, time.UTC)
}

// CommentText is the non-empty body of a comment.
type CommentText struct {
	value string
}

// NewCommentText validates and trims raw.
func NewCommentText(raw string) (CommentText, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return CommentText{}, ErrEmptyComment
	}
	return CommentText{value: trimmed}, nil
}

func (c CommentText) String() string { return c.value }
