package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/mnperrone/tasks-api/internal/domain"
	"github.com/mnperrone/tasks-api/internal/platform/logger"
	"github.com/mnperrone/tasks-api/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	conn   *sql.DB // nil when the store is bound to a transaction
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection that should be
// initialized and managed by the caller. If logger is nil, a default
// logger will be used.
func NewPostgresTaskStore(db *sql.DB, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		conn:   db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		conn:   nil,
		logger: s.logger,
	}
}

// DB implements store.TaskStore.DB
func (s *PostgresTaskStore) DB() *sql.DB {
	return s.conn
}

const taskColumns = "id, owner_id, title, description, is_completed, priority, created_at, updated_at"

// defaultPageSize guards against non-positive page sizes from callers that
// skipped validation.
const defaultPageSize = 15

// Query implements store.TaskStore.Query
// Results are ordered by created_at descending; ties are broken by the seq
// column, which preserves insertion order. Pages past the end of the result
// set come back empty rather than failing.
func (s *PostgresTaskStore) Query(
	ctx context.Context,
	ownerID uuid.UUID,
	filter store.TaskFilter,
	page, pageSize int,
) (*store.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}

	where := []string{"owner_id = $1"}
	args := []any{ownerID}

	if filter.Priority != nil {
		args = append(args, string(*filter.Priority))
		where = append(where, fmt.Sprintf("priority = $%d", len(args)))
	}
	if filter.Completed != nil {
		args = append(args, *filter.Completed)
		where = append(where, fmt.Sprintf("is_completed = $%d", len(args)))
	}

	whereClause := strings.Join(where, " AND ")

	var total int
	countQuery := "SELECT COUNT(*) FROM tasks WHERE " + whereClause
	if err := s.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		log.Error("failed to count tasks",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, fmt.Errorf("failed to count tasks: %w", err)
	}

	offset := (page - 1) * pageSize
	args = append(args, pageSize, offset)
	query := fmt.Sprintf(
		"SELECT %s FROM tasks WHERE %s ORDER BY created_at DESC, seq ASC LIMIT $%d OFFSET $%d",
		taskColumns, whereClause, len(args)-1, len(args),
	)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to query tasks",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer func() { _ = rows.Close() }()

	tasks := make([]*domain.Task, 0, pageSize)
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			log.Error("failed to scan task row",
				slog.String("error", err.Error()),
				slog.String("owner_id", ownerID.String()))
			return nil, fmt.Errorf("failed to scan task row: %w", err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating task rows: %w", err)
	}

	return &store.TaskPage{
		Tasks:   tasks,
		Total:   total,
		Page:    page,
		PerPage: pageSize,
	}, nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := "SELECT " + taskColumns + " FROM tasks WHERE id = $1"

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		s.logger.Error("failed to get task by ID",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return nil, err
	}

	return task, nil
}

// Create implements store.TaskStore.Create
// It assigns a fresh UUID when the task carries none, mirroring the
// id-on-create step that would otherwise live in a lifecycle hook.
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if task.ID == uuid.Nil {
		task.ID = uuid.New()
	}
	now := time.Now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	if task.UpdatedAt.IsZero() {
		task.UpdatedAt = now
	}

	if err := task.Validate(); err != nil {
		log.Warn("task validation failed during create",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	query := `
		INSERT INTO tasks (id, owner_id, title, description, is_completed, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(
		ctx,
		query,
		task.ID,
		task.OwnerID,
		task.Title,
		nullableString(task.Description),
		task.IsCompleted,
		string(task.Priority),
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		if isForeignKeyViolation(err) {
			log.Warn("foreign key violation during task creation",
				slog.String("task_id", task.ID.String()),
				slog.String("owner_id", task.OwnerID.String()))
			return fmt.Errorf("%w: owner with ID %s not found",
				store.ErrInvalidEntity, task.OwnerID)
		}
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return err
	}

	log.Debug("task created",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", task.OwnerID.String()))
	return nil
}

// Update implements store.TaskStore.Update
// Only the non-nil fields of the update are written; updated_at is always
// refreshed. Returns store.ErrTaskNotFound if no row matched.
func (s *PostgresTaskStore) Update(ctx context.Context, id uuid.UUID, update store.TaskUpdate) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	var (
		fields []string
		args   []any
	)
	if update.Title != nil {
		args = append(args, *update.Title)
		fields = append(fields, fmt.Sprintf("title = $%d", len(args)))
	}
	if update.Description != nil {
		args = append(args, nullableString(*update.Description))
		fields = append(fields, fmt.Sprintf("description = $%d", len(args)))
	}
	if update.IsCompleted != nil {
		args = append(args, *update.IsCompleted)
		fields = append(fields, fmt.Sprintf("is_completed = $%d", len(args)))
	}
	if update.Priority != nil {
		args = append(args, string(*update.Priority))
		fields = append(fields, fmt.Sprintf("priority = $%d", len(args)))
	}

	args = append(args, time.Now().UTC())
	fields = append(fields, fmt.Sprintf("updated_at = $%d", len(args)))

	args = append(args, id)
	query := fmt.Sprintf("UPDATE tasks SET %s WHERE id = $%d",
		strings.Join(fields, ", "), len(args))

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		log.Error("failed to update task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return fmt.Errorf("failed to update task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrTaskNotFound
	}

	return nil
}

// Delete implements store.TaskStore.Delete
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	result, err := s.db.ExecContext(ctx, "DELETE FROM tasks WHERE id = $1", id)
	if err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", id.String()))
		return fmt.Errorf("failed to delete task: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if affected == 0 {
		return store.ErrTaskNotFound
	}

	log.Debug("task deleted", slog.String("task_id", id.String()))
	return nil
}

// BulkUpsert implements store.TaskStore.BulkUpsert
// (owner_id, title) carries no uniqueness constraint in the schema, so the
// reconciliation runs as update-then-insert per row inside one transaction
// instead of ON CONFLICT. The transaction makes the batch all-or-nothing.
func (s *PostgresTaskStore) BulkUpsert(ctx context.Context, rows []store.UpsertRow) (int64, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	if s.conn == nil {
		// Already inside a caller-managed transaction.
		return s.bulkUpsertRows(ctx, s.db, rows)
	}

	var affected int64
	err := store.RunInTransaction(ctx, s.conn, func(ctx context.Context, tx *sql.Tx) error {
		var err error
		affected, err = s.bulkUpsertRows(ctx, tx, rows)
		return err
	})
	if err != nil {
		return 0, err
	}
	return affected, nil
}

func (s *PostgresTaskStore) bulkUpsertRows(ctx context.Context, db store.DBTX, rows []store.UpsertRow) (int64, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	const updateQuery = `
		UPDATE tasks
		SET description = $1, is_completed = $2, priority = $3, updated_at = $4
		WHERE owner_id = $5 AND title = $6
	`
	const insertQuery = `
		INSERT INTO tasks (id, owner_id, title, description, is_completed, priority, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	var affected int64
	for _, row := range rows {
		now := time.Now().UTC()

		result, err := db.ExecContext(ctx, updateQuery,
			nullableString(row.Description),
			row.IsCompleted,
			string(row.Priority),
			now,
			row.OwnerID,
			row.Title,
		)
		if err != nil {
			log.Error("bulk upsert update failed",
				slog.String("error", err.Error()),
				slog.String("owner_id", row.OwnerID.String()))
			return 0, fmt.Errorf("bulk upsert update failed: %w", err)
		}

		updated, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("failed to get rows affected: %w", err)
		}
		if updated > 0 {
			affected += updated
			continue
		}

		_, err = db.ExecContext(ctx, insertQuery,
			uuid.New(),
			row.OwnerID,
			row.Title,
			nullableString(row.Description),
			row.IsCompleted,
			string(row.Priority),
			now,
			now,
		)
		if err != nil {
			log.Error("bulk upsert insert failed",
				slog.String("error", err.Error()),
				slog.String("owner_id", row.OwnerID.String()))
			return 0, fmt.Errorf("bulk upsert insert failed: %w", err)
		}
		affected++
	}

	log.Debug("bulk upsert completed",
		slog.Int("rows", len(rows)),
		slog.Int64("affected", affected))
	return affected, nil
}

// CountExistingTitles implements store.TaskStore.CountExistingTitles
func (s *PostgresTaskStore) CountExistingTitles(
	ctx context.Context,
	ownerID uuid.UUID,
	titles []string,
) (int, error) {
	if len(titles) == 0 {
		return 0, nil
	}

	query := `
		SELECT COUNT(DISTINCT title)
		FROM tasks
		WHERE owner_id = $1 AND title = ANY($2)
	`

	var count int
	if err := s.db.QueryRowContext(ctx, query, ownerID, titles).Scan(&count); err != nil {
		s.logger.Error("failed to count existing titles",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return 0, fmt.Errorf("failed to count existing titles: %w", err)
	}

	return count, nil
}

// rowScanner is satisfied by both *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task        domain.Task
		description sql.NullString
		priority    string
	)

	err := row.Scan(
		&task.ID,
		&task.OwnerID,
		&task.Title,
		&description,
		&task.IsCompleted,
		&priority,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if description.Valid {
		task.Description = description.String
	}
	task.Priority = domain.Priority(priority)

	return &task, nil
}

func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}
