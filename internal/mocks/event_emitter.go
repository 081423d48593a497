package mocks

import (
	"context"
	"sync"

	"github.com/mnperrone/tasks-api/internal/events"
)

// MockEventEmitter implements events.EventEmitter for testing
type MockEventEmitter struct {
	// Custom behavior functions
	EmitEventFn func(ctx context.Context, event *events.TaskEvent) error

	// Default response values
	Err error

	// Call tracking for verification
	mu            sync.Mutex
	EmitCount     int
	EmittedEvents []*events.TaskEvent
}

var _ events.EventEmitter = (*MockEventEmitter)(nil)

// EmitEvent implements the events.EventEmitter interface
func (m *MockEventEmitter) EmitEvent(ctx context.Context, event *events.TaskEvent) error {
	m.mu.Lock()
	m.EmitCount++
	m.EmittedEvents = append(m.EmittedEvents, event)
	m.mu.Unlock()

	if m.EmitEventFn != nil {
		return m.EmitEventFn(ctx, event)
	}
	return m.Err
}

// EventTypes returns the types of all emitted events in order.
func (m *MockEventEmitter) EventTypes() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	types := make([]string, 0, len(m.EmittedEvents))
	for _, e := range m.EmittedEvents {
		types = append(types, e.Type)
	}
	return types
}
