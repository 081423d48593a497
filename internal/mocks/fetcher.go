package mocks

import (
	"context"
	"sync"

	"github.com/mnperrone/tasks-api/internal/service/taskimport"
)

// MockFetcher implements taskimport.Fetcher for testing
type MockFetcher struct {
	// Custom behavior functions
	FetchFn func(ctx context.Context) ([]taskimport.Record, error)

	// Default response values
	Records []taskimport.Record
	Err     error

	// Call tracking for verification
	mu         sync.Mutex
	FetchCount int
}

var _ taskimport.Fetcher = (*MockFetcher)(nil)

// Fetch implements the taskimport.Fetcher interface
func (m *MockFetcher) Fetch(ctx context.Context) ([]taskimport.Record, error) {
	m.mu.Lock()
	m.FetchCount++
	m.mu.Unlock()

	if m.FetchFn != nil {
		return m.FetchFn(ctx)
	}
	return m.Records, m.Err
}
