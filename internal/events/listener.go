package events

import (
	"context"
	"log/slog"

	"github.com/mnperrone/tasks-api/internal/domain"
)

// LogListener writes a structured log entry for every task event. It is
// the default sink for domain notifications: delivery is observability
// only, never part of the operation's outcome.
type LogListener struct {
	logger *slog.Logger
}

// NewLogListener creates a listener that records task events via the given
// logger.
func NewLogListener(logger *slog.Logger) *LogListener {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogListener{
		logger: logger.With("component", "task_event_log"),
	}
}

// Ensure LogListener implements EventHandler
var _ EventHandler = (*LogListener)(nil)

// HandleEvent implements EventHandler.HandleEvent
func (l *LogListener) HandleEvent(_ context.Context, event *TaskEvent) error {
	var task domain.Task
	if err := event.UnmarshalPayload(&task); err != nil {
		l.logger.Warn("task event with undecodable payload",
			"event_id", event.ID,
			"event_type", event.Type,
			"error", err)
		return nil
	}

	l.logger.Info("task event",
		"event_id", event.ID,
		"event_type", event.Type,
		"task_id", task.ID,
		"owner_id", task.OwnerID,
		"title", task.Title,
		"is_completed", task.IsCompleted)
	return nil
}
