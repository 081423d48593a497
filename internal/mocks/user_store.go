package mocks

import (
	"context"
	"sync"

	"github.com/google/uuid"
	"github.com/mnperrone/tasks-api/internal/domain"
	"github.com/mnperrone/tasks-api/internal/store"
)

// MockUserStore implements store.UserStore for testing
type MockUserStore struct {
	// Custom behavior functions
	CreateFn     func(ctx context.Context, user *domain.User) error
	GetByIDFn    func(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmailFn func(ctx context.Context, email string) (*domain.User, error)

	// Default response values
	User *domain.User
	Err  error

	// Call tracking for verification
	mu           sync.Mutex
	CreateCount  int
	CreatedUsers []*domain.User
}

var _ store.UserStore = (*MockUserStore)(nil)

// Create implements the store.UserStore interface
func (m *MockUserStore) Create(ctx context.Context, user *domain.User) error {
	m.mu.Lock()
	m.CreateCount++
	m.CreatedUsers = append(m.CreatedUsers, user)
	m.mu.Unlock()

	if m.CreateFn != nil {
		return m.CreateFn(ctx, user)
	}
	return m.Err
}

// GetByID implements the store.UserStore interface
func (m *MockUserStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.User == nil {
		return nil, store.ErrUserNotFound
	}
	return m.User, nil
}

// GetByEmail implements the store.UserStore interface
func (m *MockUserStore) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	if m.Err != nil {
		return nil, m.Err
	}
	if m.User == nil {
		return nil, store.ErrUserNotFound
	}
	return m.User, nil
}
