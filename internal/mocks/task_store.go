package mocks

import (
	"context"
	"database/sql"
	"sync"

	"github.com/google/uuid"
	"github.com/mnperrone/tasks-api/internal/domain"
	"github.com/mnperrone/tasks-api/internal/store"
)

// MockTaskStore implements store.TaskStore for testing
type MockTaskStore struct {
	// Custom behavior functions
	QueryFn               func(ctx context.Context, ownerID uuid.UUID, filter store.TaskFilter, page, pageSize int) (*store.TaskPage, error)
	GetByIDFn             func(ctx context.Context, id uuid.UUID) (*domain.Task, error)
	CreateFn              func(ctx context.Context, task *domain.Task) error
	UpdateFn              func(ctx context.Context, id uuid.UUID, update store.TaskUpdate) error
	DeleteFn              func(ctx context.Context, id uuid.UUID) error
	BulkUpsertFn          func(ctx context.Context, rows []store.UpsertRow) (int64, error)
	CountExistingTitlesFn func(ctx context.Context, ownerID uuid.UUID, titles []string) (int, error)

	// Default response values
	Page          *store.TaskPage
	Task          *domain.Task
	AffectedRows  int64
	ExistingCount int
	Err           error

	// Call tracking for verification
	mu                       sync.Mutex
	QueryCount               int
	GetByIDCount             int
	CreateCount              int
	UpdateCount              int
	DeleteCount              int
	BulkUpsertCount          int
	CountExistingTitlesCount int
	CreatedTasks             []*domain.Task
	UpdatedIDs               []uuid.UUID
	Updates                  []store.TaskUpdate
	DeletedIDs               []uuid.UUID
	UpsertedRows             [][]store.UpsertRow
}

var _ store.TaskStore = (*MockTaskStore)(nil)

// Query implements the store.TaskStore interface
func (m *MockTaskStore) Query(
	ctx context.Context,
	ownerID uuid.UUID,
	filter store.TaskFilter,
	page, pageSize int,
) (*store.TaskPage, error) {
	m.mu.Lock()
	m.QueryCount++
	m.mu.Unlock()

	if m.QueryFn != nil {
		return m.QueryFn(ctx, ownerID, filter, page, pageSize)
	}
	if m.Page != nil {
		return m.Page, m.Err
	}
	return &store.TaskPage{Tasks: []*domain.Task{}, Page: page, PerPage: pageSize}, m.Err
}

// GetByID implements the store.TaskStore interface
func (m *MockTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	m.mu.Lock()
	m.GetByIDCount++
	m.mu.Unlock()

	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.Task == nil {
		return nil, store.ErrTaskNotFound
	}
	return m.Task, nil
}

// Create implements the store.TaskStore interface
func (m *MockTaskStore) Create(ctx context.Context, task *domain.Task) error {
	m.mu.Lock()
	m.CreateCount++
	m.CreatedTasks = append(m.CreatedTasks, task)
	m.mu.Unlock()

	if m.CreateFn != nil {
		return m.CreateFn(ctx, task)
	}
	return m.Err
}

// Update implements the store.TaskStore interface
func (m *MockTaskStore) Update(ctx context.Context, id uuid.UUID, update store.TaskUpdate) error {
	m.mu.Lock()
	m.UpdateCount++
	m.UpdatedIDs = append(m.UpdatedIDs, id)
	m.Updates = append(m.Updates, update)
	m.mu.Unlock()

	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, id, update)
	}
	return m.Err
}

// Delete implements the store.TaskStore interface
func (m *MockTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	m.mu.Lock()
	m.DeleteCount++
	m.DeletedIDs = append(m.DeletedIDs, id)
	m.mu.Unlock()

	if m.DeleteFn != nil {
		return m.DeleteFn(ctx, id)
	}
	return m.Err
}

// BulkUpsert implements the store.TaskStore interface
func (m *MockTaskStore) BulkUpsert(ctx context.Context, rows []store.UpsertRow) (int64, error) {
	m.mu.Lock()
	m.BulkUpsertCount++
	m.UpsertedRows = append(m.UpsertedRows, rows)
	m.mu.Unlock()

	if m.BulkUpsertFn != nil {
		return m.BulkUpsertFn(ctx, rows)
	}
	if m.Err != nil {
		return 0, m.Err
	}
	if m.AffectedRows != 0 {
		return m.AffectedRows, nil
	}
	return int64(len(rows)), nil
}

// CountExistingTitles implements the store.TaskStore interface
func (m *MockTaskStore) CountExistingTitles(
	ctx context.Context,
	ownerID uuid.UUID,
	titles []string,
) (int, error) {
	m.mu.Lock()
	m.CountExistingTitlesCount++
	m.mu.Unlock()

	if m.CountExistingTitlesFn != nil {
		return m.CountExistingTitlesFn(ctx, ownerID, titles)
	}
	return m.ExistingCount, m.Err
}

// WithTx implements the store.TaskStore interface. The mock has no real
// transaction so it returns itself.
func (m *MockTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return m
}

// DB implements the store.TaskStore interface
func (m *MockTaskStore) DB() *sql.DB {
	return nil
}
