package postgres_test

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnperrone/tasks-api/internal/domain"
	"github.com/mnperrone/tasks-api/internal/platform/postgres"
	"github.com/mnperrone/tasks-api/internal/store"
	"github.com/mnperrone/tasks-api/internal/testdb"
)

// taskStoreInTx binds a task store to the test transaction.
func taskStoreInTx(db *sql.DB, tx *sql.Tx) store.TaskStore {
	return postgres.NewPostgresTaskStore(db, nil).WithTx(tx)
}

func insertTestTask(t *testing.T, ts store.TaskStore, ownerID uuid.UUID, title string, mutate func(*domain.Task)) *domain.Task {
	t.Helper()

	task, err := domain.NewTask(ownerID, title, "")
	require.NoError(t, err)
	if mutate != nil {
		mutate(task)
	}
	require.NoError(t, ts.Create(context.Background(), task))
	return task
}

func TestPostgresTaskStoreCreateAndGet(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		owner := insertTestUser(t, tx, "task-create@example.com")
		ts := taskStoreInTx(db, tx)

		task := insertTestTask(t, ts, owner.ID, "Buy groceries", func(task *domain.Task) {
			task.Description = "milk and eggs"
			task.Priority = domain.PriorityHigh
		})
		require.NotEqual(t, uuid.Nil, task.ID)

		got, err := ts.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Equal(t, task.ID, got.ID)
		assert.Equal(t, owner.ID, got.OwnerID)
		assert.Equal(t, "Buy groceries", got.Title)
		assert.Equal(t, "milk and eggs", got.Description)
		assert.Equal(t, domain.PriorityHigh, got.Priority)
		assert.False(t, got.IsCompleted)
	})
}

func TestPostgresTaskStoreEmptyDescriptionRoundTrip(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		owner := insertTestUser(t, tx, "task-nulldesc@example.com")
		ts := taskStoreInTx(db, tx)

		task := insertTestTask(t, ts, owner.ID, "No description", nil)

		got, err := ts.GetByID(context.Background(), task.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Description)
	})
}

func TestPostgresTaskStoreGetByIDNotFound(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ts := taskStoreInTx(db, tx)

		_, err := ts.GetByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestPostgresTaskStoreCreateUnknownOwner(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ts := taskStoreInTx(db, tx)

		task, err := domain.NewTask(uuid.New(), "Orphan task", "")
		require.NoError(t, err)

		err = ts.Create(context.Background(), task)
		assert.ErrorIs(t, err, store.ErrInvalidEntity)
	})
}

func TestPostgresTaskStoreQuery(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		owner := insertTestUser(t, tx, "task-query@example.com")
		other := insertTestUser(t, tx, "task-query-other@example.com")
		ts := taskStoreInTx(db, tx)
		ctx := context.Background()

		// Seven tasks with descending recency: task 0 is the newest.
		base := time.Now().UTC().Truncate(time.Second)
		for i := 0; i < 7; i++ {
			insertTestTask(t, ts, owner.ID, fmt.Sprintf("Task %d", i), func(task *domain.Task) {
				task.CreatedAt = base.Add(-time.Duration(i) * time.Minute)
				task.UpdatedAt = task.CreatedAt
				task.IsCompleted = i%2 == 0
				if i < 2 {
					task.Priority = domain.PriorityHigh
				}
			})
		}
		insertTestTask(t, ts, other.ID, "Not mine", nil)

		page, err := ts.Query(ctx, owner.ID, store.TaskFilter{}, 1, 3)
		require.NoError(t, err)
		assert.Equal(t, 7, page.Total)
		require.Len(t, page.Tasks, 3)
		assert.Equal(t, "Task 0", page.Tasks[0].Title)
		assert.Equal(t, "Task 2", page.Tasks[2].Title)
		assert.True(t, page.HasMore())

		page, err = ts.Query(ctx, owner.ID, store.TaskFilter{}, 3, 3)
		require.NoError(t, err)
		require.Len(t, page.Tasks, 1)
		assert.Equal(t, "Task 6", page.Tasks[0].Title)
		assert.False(t, page.HasMore())

		// Pages past the end are empty, not an error
		page, err = ts.Query(ctx, owner.ID, store.TaskFilter{}, 10, 3)
		require.NoError(t, err)
		assert.Empty(t, page.Tasks)

		completed := true
		page, err = ts.Query(ctx, owner.ID, store.TaskFilter{Completed: &completed}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 4, page.Total)

		high := domain.PriorityHigh
		page, err = ts.Query(ctx, owner.ID, store.TaskFilter{Priority: &high}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)

		incomplete := false
		page, err = ts.Query(ctx, owner.ID, store.TaskFilter{Priority: &high, Completed: &incomplete}, 1, 10)
		require.NoError(t, err)
		require.Len(t, page.Tasks, 1)
		assert.Equal(t, "Task 1", page.Tasks[0].Title)
	})
}

func TestPostgresTaskStoreUpdate(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		owner := insertTestUser(t, tx, "task-update@example.com")
		ts := taskStoreInTx(db, tx)
		ctx := context.Background()

		task := insertTestTask(t, ts, owner.ID, "Original", func(task *domain.Task) {
			task.Description = "before"
		})

		stored, err := ts.GetByID(ctx, task.ID)
		require.NoError(t, err)

		newTitle := "Renamed"
		completed := true
		err = ts.Update(ctx, task.ID, store.TaskUpdate{Title: &newTitle, IsCompleted: &completed})
		require.NoError(t, err)

		got, err := ts.GetByID(ctx, task.ID)
		require.NoError(t, err)
		assert.Equal(t, "Renamed", got.Title)
		assert.True(t, got.IsCompleted)
		// Untouched fields survive a partial update
		assert.Equal(t, "before", got.Description)
		assert.Equal(t, domain.PriorityMedium, got.Priority)
		assert.True(t, got.UpdatedAt.After(stored.UpdatedAt),
			"updated_at must advance past its pre-update value")
	})
}

func TestPostgresTaskStoreUpdateNotFound(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ts := taskStoreInTx(db, tx)

		title := "No such task"
		err := ts.Update(context.Background(), uuid.New(), store.TaskUpdate{Title: &title})
		assert.ErrorIs(t, err, store.ErrTaskNotFound)
	})
}

func TestPostgresTaskStoreDelete(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		owner := insertTestUser(t, tx, "task-delete@example.com")
		ts := taskStoreInTx(db, tx)
		ctx := context.Background()

		task := insertTestTask(t, ts, owner.ID, "Doomed", nil)

		require.NoError(t, ts.Delete(ctx, task.ID))
		_, err := ts.GetByID(ctx, task.ID)
		assert.ErrorIs(t, err, store.ErrTaskNotFound)

		assert.ErrorIs(t, ts.Delete(ctx, task.ID), store.ErrTaskNotFound)
	})
}

func TestPostgresTaskStoreBulkUpsert(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		owner := insertTestUser(t, tx, "task-upsert@example.com")
		ts := taskStoreInTx(db, tx)
		ctx := context.Background()

		existing := insertTestTask(t, ts, owner.ID, "delectus aut autem", func(task *domain.Task) {
			task.Description = "stale"
		})

		rows := []store.UpsertRow{
			{
				OwnerID:     owner.ID,
				Title:       "delectus aut autem",
				Description: "refreshed",
				IsCompleted: true,
				Priority:    domain.PriorityMedium,
			},
			{
				OwnerID:     owner.ID,
				Title:       "quis ut nam facilis",
				Description: "brand new",
				IsCompleted: false,
				Priority:    domain.PriorityMedium,
			},
		}

		affected, err := ts.BulkUpsert(ctx, rows)
		require.NoError(t, err)
		assert.Equal(t, int64(2), affected)

		// The matching row was updated in place, not duplicated
		got, err := ts.GetByID(ctx, existing.ID)
		require.NoError(t, err)
		assert.Equal(t, "refreshed", got.Description)
		assert.True(t, got.IsCompleted)

		page, err := ts.Query(ctx, owner.ID, store.TaskFilter{}, 1, 10)
		require.NoError(t, err)
		assert.Equal(t, 2, page.Total)
	})
}

func TestPostgresTaskStoreBulkUpsertEmpty(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		ts := taskStoreInTx(db, tx)

		affected, err := ts.BulkUpsert(context.Background(), nil)
		require.NoError(t, err)
		assert.Zero(t, affected)
	})
}

func TestPostgresTaskStoreCountExistingTitles(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		owner := insertTestUser(t, tx, "task-count@example.com")
		other := insertTestUser(t, tx, "task-count-other@example.com")
		ts := taskStoreInTx(db, tx)
		ctx := context.Background()

		insertTestTask(t, ts, owner.ID, "alpha", nil)
		insertTestTask(t, ts, owner.ID, "beta", nil)
		insertTestTask(t, ts, other.ID, "gamma", nil)

		count, err := ts.CountExistingTitles(ctx, owner.ID, []string{"alpha", "beta", "gamma", "delta"})
		require.NoError(t, err)
		// gamma belongs to another owner, delta does not exist
		assert.Equal(t, 2, count)

		count, err = ts.CountExistingTitles(ctx, owner.ID, nil)
		require.NoError(t, err)
		assert.Zero(t, count)
	})
}
