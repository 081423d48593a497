// Package testdb provides utilities for database-backed tests. Tests that
// need a real Postgres instance call Connect, which skips the test when no
// test database is configured, and WithTx, which rolls every change back
// so tests stay isolated and parallelizable.
package testdb

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Environment variables checked for the test database URL, in order.
var urlEnvVars = []string{"TASKS_TEST_DATABASE_URL", "DATABASE_URL"}

// URL returns the configured test database URL, or "" when none is set.
func URL() string {
	for _, name := range urlEnvVars {
		if v := os.Getenv(name); v != "" {
			return v
		}
	}
	return ""
}

// Connect opens a connection to the test database, skipping the test when
// no URL is configured or the database cannot be reached. The connection
// is closed automatically when the test finishes.
func Connect(t *testing.T) *sql.DB {
	t.Helper()

	dbURL := URL()
	if dbURL == "" {
		t.Skip("no test database configured, set TASKS_TEST_DATABASE_URL or DATABASE_URL")
	}

	db, err := sql.Open("pgx", dbURL)
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() {
		if err := db.Close(); err != nil {
			t.Logf("warning: failed to close test database: %v", err)
		}
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		t.Skipf("test database not reachable: %v", err)
	}

	return db
}

// WithTx runs the provided function within a database transaction. The
// transaction is always rolled back after the function completes, so tests
// can write freely without persisting anything.
func WithTx(t *testing.T, db *sql.DB, fn func(t *testing.T, tx *sql.Tx)) {
	t.Helper()

	tx, err := db.BeginTx(context.Background(), nil)
	if err != nil {
		t.Fatalf("failed to begin transaction: %v", err)
	}

	defer func() {
		if r := recover(); r != nil {
			if rollbackErr := tx.Rollback(); rollbackErr != nil && !errors.Is(rollbackErr, sql.ErrTxDone) {
				t.Logf("warning: failed to rollback transaction after panic: %v", rollbackErr)
			}
			panic(r)
		}
		if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
			t.Logf("warning: failed to rollback transaction: %v", err)
		}
	}()

	fn(t, tx)
}
