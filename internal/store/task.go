package store

import (
	"context"
	"database/sql"
	"strings"

	"github.com/google/uuid"
	"github.com/mnperrone/tasks-api/internal/domain"
)

// TaskFilter narrows a task query. Nil fields are ignored.
type TaskFilter struct {
	// Priority restricts results to a single priority level.
	Priority *domain.Priority

	// Completed restricts results by completion state.
	Completed *bool
}

// ParseCompleted interprets a raw, caller-supplied completion filter value.
// "1", "true" and "yes" (case-insensitive) mean completed; every other
// string resolves to false rather than an error, since filter parameters
// arrive as untrusted query strings.
func ParseCompleted(raw string) bool {
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	}
	return false
}

// TaskPage is one page of a filtered task query.
type TaskPage struct {
	Tasks   []*domain.Task
	Total   int
	Page    int
	PerPage int
}

// HasMore reports whether pages beyond this one exist.
func (p *TaskPage) HasMore() bool {
	return p.Page*p.PerPage < p.Total
}

// TaskUpdate describes a partial update. Only non-nil fields are applied;
// ID, OwnerID and CreatedAt are never updatable.
type TaskUpdate struct {
	Title       *string
	Description *string
	IsCompleted *bool
	Priority    *domain.Priority
}

// UpsertRow is one incoming record for BulkUpsert. (OwnerID, Title) is the
// conflict key: a row matching an existing task updates only that task's
// mutable columns, anything else inserts a new task.
type UpsertRow struct {
	OwnerID     uuid.UUID
	Title       string
	Description string
	IsCompleted bool
	Priority    domain.Priority
}

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Query returns one page of the owner's tasks matching the filter,
	// ordered by creation time descending with a stable tie-break on
	// insertion order. An out-of-range page yields an empty page, not an
	// error.
	Query(ctx context.Context, ownerID uuid.UUID, filter TaskFilter, page, pageSize int) (*TaskPage, error)

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Create saves a new task, assigning a fresh UUID if the task carries
	// none. Returns ErrInvalidEntity if the owner does not exist.
	Create(ctx context.Context, task *domain.Task) error

	// Update applies the non-nil fields of the update to the task and
	// refreshes its updated_at timestamp.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, id uuid.UUID, update TaskUpdate) error

	// Delete permanently removes a task.
	// Returns ErrTaskNotFound if the task does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// BulkUpsert reconciles the rows against existing tasks using the
	// (owner_id, title) conflict key, updating only description,
	// is_completed, priority and updated_at on matches and inserting the
	// rest. The whole batch runs inside a single transaction: either every
	// row lands or none do. Returns the number of rows affected.
	BulkUpsert(ctx context.Context, rows []UpsertRow) (int64, error)

	// CountExistingTitles returns how many of the given titles already have
	// at least one task for the owner. Duplicate titles in the input are
	// counted once.
	CountExistingTitles(ctx context.Context, ownerID uuid.UUID, titles []string) (int, error)

	// WithTx returns a TaskStore bound to the given transaction so multiple
	// operations can share one atomic unit. The transaction is created and
	// managed by the caller, typically via RunInTransaction.
	WithTx(tx *sql.Tx) TaskStore

	// DB returns the underlying database connection for callers that need
	// to open their own transactions around store operations.
	DB() *sql.DB
}
