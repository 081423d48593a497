package postgres_test

import (
	"context"
	"database/sql"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnperrone/tasks-api/internal/domain"
	"github.com/mnperrone/tasks-api/internal/platform/postgres"
	"github.com/mnperrone/tasks-api/internal/store"
	"github.com/mnperrone/tasks-api/internal/testdb"
)

// insertTestUser creates and persists a user within the transaction.
func insertTestUser(t *testing.T, tx *sql.Tx, email string) *domain.User {
	t.Helper()

	user, err := domain.NewUser("Test User", email, "a-valid-password")
	require.NoError(t, err)
	user.HashedPassword = "not-a-real-hash"
	user.Password = ""

	userStore := postgres.NewPostgresUserStore(tx, nil)
	require.NoError(t, userStore.Create(context.Background(), user))
	return user
}

func TestPostgresUserStoreCreateAndGet(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		userStore := postgres.NewPostgresUserStore(tx, nil)
		created := insertTestUser(t, tx, "roundtrip@example.com")

		byID, err := userStore.GetByID(context.Background(), created.ID)
		require.NoError(t, err)
		assert.Equal(t, created.ID, byID.ID)
		assert.Equal(t, "roundtrip@example.com", byID.Email)
		assert.Equal(t, "not-a-real-hash", byID.HashedPassword)
		assert.Equal(t, []domain.Role{domain.RoleUser}, byID.Roles)

		byEmail, err := userStore.GetByEmail(context.Background(), "roundtrip@example.com")
		require.NoError(t, err)
		assert.Equal(t, created.ID, byEmail.ID)
	})
}

func TestPostgresUserStoreDuplicateEmail(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		userStore := postgres.NewPostgresUserStore(tx, nil)
		insertTestUser(t, tx, "taken@example.com")

		dupe, err := domain.NewUser("Second User", "taken@example.com", "a-valid-password")
		require.NoError(t, err)
		dupe.HashedPassword = "another-hash"
		dupe.Password = ""

		err = userStore.Create(context.Background(), dupe)
		assert.ErrorIs(t, err, store.ErrEmailExists)
	})
}

func TestPostgresUserStoreNotFound(t *testing.T) {
	t.Parallel()
	db := testdb.Connect(t)

	testdb.WithTx(t, db, func(t *testing.T, tx *sql.Tx) {
		userStore := postgres.NewPostgresUserStore(tx, nil)

		_, err := userStore.GetByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, store.ErrUserNotFound)

		_, err = userStore.GetByEmail(context.Background(), "ghost@example.com")
		assert.ErrorIs(t, err, store.ErrUserNotFound)
	})
}
