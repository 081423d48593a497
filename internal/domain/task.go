package domain

import (
	"errors"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
)

// Title and description limits, counted in UTF-8 code units to match the
// column definitions in the tasks table.
const (
	MaxTitleLength       = 255
	MaxDescriptionLength = 5000
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskOwnerIDEmpty is returned when a task's owner ID is empty or nil.
	ErrTaskOwnerIDEmpty = errors.New("task owner ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task's title is empty.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskTitleTooLong is returned when a task's title exceeds MaxTitleLength.
	ErrTaskTitleTooLong = errors.New("task title cannot exceed 255 characters")

	// ErrTaskDescriptionTooLong is returned when a task's description exceeds MaxDescriptionLength.
	ErrTaskDescriptionTooLong = errors.New("task description cannot exceed 5000 characters")

	// ErrTaskPriorityInvalid is returned when a task's priority is not a known value.
	ErrTaskPriorityInvalid = errors.New("task priority must be one of: low, medium, high")
)

// Priority is the urgency level of a task.
type Priority string

// Valid priority values.
const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// IsValid reports whether p is a known priority value.
func (p Priority) IsValid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh:
		return true
	}
	return false
}

// Task represents a single tracked task owned by exactly one user.
// Ownership never transfers: OwnerID is immutable after creation, as is ID.
type Task struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsCompleted bool      `json:"is_completed"`
	Priority    Priority  `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// NewTask creates a new Task owned by ownerID with the given title.
// It generates a new UUID for the task ID, defaults the priority to medium,
// marks the task incomplete and sets the creation/update timestamps.
// Returns an error if validation fails.
func NewTask(ownerID uuid.UUID, title, description string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:          uuid.New(),
		OwnerID:     ownerID,
		Title:       title,
		Description: description,
		IsCompleted: false,
		Priority:    PriorityMedium,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.OwnerID == uuid.Nil {
		return ErrTaskOwnerIDEmpty
	}

	if t.Title == "" {
		return ErrTaskTitleEmpty
	}

	if utf8.RuneCountInString(t.Title) > MaxTitleLength {
		return ErrTaskTitleTooLong
	}

	if utf8.RuneCountInString(t.Description) > MaxDescriptionLength {
		return ErrTaskDescriptionTooLong
	}

	if !t.Priority.IsValid() {
		return ErrTaskPriorityInvalid
	}

	return nil
}

// Complete marks the task as completed and advances the UpdatedAt timestamp.
func (t *Task) Complete() {
	t.IsCompleted = true
	t.UpdatedAt = time.Now().UTC()
}

// Incomplete marks the task as not completed and advances the UpdatedAt timestamp.
func (t *Task) Incomplete() {
	t.IsCompleted = false
	t.UpdatedAt = time.Now().UTC()
}

// TruncateTitle shortens s to at most MaxTitleLength runes.
// Used when normalizing externally sourced records whose titles may exceed
// the local column width.
func TruncateTitle(s string) string {
	if utf8.RuneCountInString(s) <= MaxTitleLength {
		return s
	}
	runes := []rune(s)
	return string(runes[:MaxTitleLength])
}
