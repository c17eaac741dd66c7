package events

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mtlprog/taskpulse/internal/domain"
)

func TestLoggingHandlers(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	d := NewDispatcher(WithLogger(logger))
	RegisterLoggingHandlers(d, logger)

	for _, name := range []string{
		domain.EventTaskCreated,
		domain.EventTaskStatusChanged,
		domain.EventTaskCompleted,
		domain.EventTaskPriorityChanged,
		domain.EventCommentAdded,
	} {
		assert.Equal(t, 1, d.HandlerCount(name), name)
	}
	assert.Zero(t, d.HandlerCount(domain.EventTaskDeleted))

	event := newTaskCreated(t)
	d.Dispatch(context.Background(), event)
	require.Contains(t, buf.String(), `"msg":"task created"`)
	assert.Contains(t, buf.String(), event.AggregateID())
}

func TestLoggingHandlerRejectsForeignType(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	d := NewDispatcher(WithLogger(logger))
	RegisterLoggingHandlers(d, logger)

	d.Dispatch(context.Background(), testEvent{name: domain.EventTaskCompleted, id: "t-1"})
	assert.Contains(t, buf.String(), "unexpected event type")
}
