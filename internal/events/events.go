package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Task event types emitted by the task service.
const (
	// EventTaskCreated is emitted after a task is successfully created.
	EventTaskCreated = "task.created"

	// EventTaskCompleted is emitted after a task is marked completed.
	EventTaskCompleted = "task.completed"
)

// TaskEvent is a domain notification about a task. Emission is
// fire-and-forget: handlers must never be able to fail the operation that
// produced the event.
type TaskEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type is one of the Event* constants
	Type string `json:"type"`

	// Payload contains the event data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *TaskEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewTaskEvent creates a new TaskEvent with the specified type and payload.
func NewTaskEvent(eventType string, payload interface{}) (*TaskEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &TaskEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *TaskEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows services to publish events without direct knowledge of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *TaskEvent) error
}
