package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingHandler struct {
	events []*TaskEvent
	err    error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *TaskEvent) error {
	h.events = append(h.events, event)
	return h.err
}

type taskPayload struct {
	Title string `json:"title"`
}

func TestNewTaskEvent(t *testing.T) {
	t.Parallel()

	event, err := NewTaskEvent(EventTaskCreated, taskPayload{Title: "Pay rent"})
	require.NoError(t, err)

	assert.Equal(t, EventTaskCreated, event.Type)
	assert.NotZero(t, event.ID)
	assert.False(t, event.CreatedAt.IsZero())

	var decoded taskPayload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, "Pay rent", decoded.Title)
}

func TestEmitEventDispatchesToAllHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(nil)
	first := &recordingHandler{}
	second := &recordingHandler{}
	emitter.RegisterHandler(first)
	emitter.RegisterHandler(second)

	event, err := NewTaskEvent(EventTaskCompleted, taskPayload{Title: "Done"})
	require.NoError(t, err)

	require.NoError(t, emitter.EmitEvent(context.Background(), event))
	require.Len(t, first.events, 1)
	require.Len(t, second.events, 1)
	assert.Equal(t, event.ID, first.events[0].ID)
}

func TestEmitEventNoHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(nil)
	event, err := NewTaskEvent(EventTaskCreated, taskPayload{})
	require.NoError(t, err)

	assert.NoError(t, emitter.EmitEvent(context.Background(), event))
}

func TestEmitEventReturnsFirstErrorButDispatchesAll(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(nil)
	firstErr := errors.New("first failure")
	failing := &recordingHandler{err: firstErr}
	alsoFailing := &recordingHandler{err: errors.New("second failure")}
	healthy := &recordingHandler{}
	emitter.RegisterHandler(failing)
	emitter.RegisterHandler(alsoFailing)
	emitter.RegisterHandler(healthy)

	event, err := NewTaskEvent(EventTaskCreated, taskPayload{})
	require.NoError(t, err)

	err = emitter.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, err, firstErr)
	// A failing handler never blocks the ones after it
	assert.Len(t, healthy.events, 1)
}
