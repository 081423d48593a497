package taskimport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/mnperrone/tasks-api/internal/domain"
	"github.com/mnperrone/tasks-api/internal/platform/logger"
	"github.com/mnperrone/tasks-api/internal/store"
)

// placeholderTitle replaces empty upstream titles so every imported task
// satisfies domain validation.
const placeholderTitle = "Untitled"

// Result summarizes one reconciliation run. Inserted and Updated are
// estimates taken before the upsert; concurrent writers can skew them.
type Result struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// CacheFlusher drops every cached view of one owner's tasks.
type CacheFlusher interface {
	FlushUserCache(ctx context.Context, ownerID uuid.UUID)
}

// Reconciler pulls the external task list and folds it into one owner's
// local tasks. Matching is by title: an existing task with the same title
// is updated in place, anything else is inserted.
type Reconciler struct {
	fetcher   Fetcher
	taskStore store.TaskStore
	flusher   CacheFlusher
	logger    *slog.Logger
}

// NewReconciler creates a new Reconciler.
// It returns an error if any of the required dependencies are nil.
func NewReconciler(
	fetcher Fetcher,
	taskStore store.TaskStore,
	flusher CacheFlusher,
	log *slog.Logger,
) (*Reconciler, error) {
	if fetcher == nil {
		return nil, errors.New("fetcher cannot be nil")
	}
	if taskStore == nil {
		return nil, errors.New("taskStore cannot be nil")
	}
	if flusher == nil {
		return nil, errors.New("flusher cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Reconciler{
		fetcher:   fetcher,
		taskStore: taskStore,
		flusher:   flusher,
		logger:    log.With(slog.String("component", "task_reconciler")),
	}, nil
}

// Populate fetches the upstream task list and upserts it for the given
// owner. Nothing is written when the fetch fails, so a dead upstream
// leaves local state untouched. On success the owner's cached views are
// flushed wholesale since any number of rows may have changed.
func (r *Reconciler) Populate(ctx context.Context, ownerID uuid.UUID) (*Result, error) {
	log := logger.FromContextOrDefault(ctx, r.logger)

	records, err := r.fetcher.Fetch(ctx)
	if err != nil {
		log.Error("failed to fetch upstream tasks",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, err
	}

	rows, titles := normalize(ownerID, records)
	result := &Result{Received: len(records)}
	if len(rows) == 0 {
		log.Info("upstream returned no tasks",
			slog.String("owner_id", ownerID.String()))
		return result, nil
	}

	existing, err := r.taskStore.CountExistingTitles(ctx, ownerID, titles)
	if err != nil {
		return nil, fmt.Errorf("failed to count existing titles: %w", err)
	}

	if _, err := r.taskStore.BulkUpsert(ctx, rows); err != nil {
		log.Error("bulk upsert failed",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
		return nil, fmt.Errorf("failed to upsert tasks: %w", err)
	}

	result.Updated = existing
	result.Inserted = len(rows) - existing

	r.flusher.FlushUserCache(ctx, ownerID)

	log.Info("tasks reconciled",
		slog.String("owner_id", ownerID.String()),
		slog.Int("received", result.Received),
		slog.Int("inserted", result.Inserted),
		slog.Int("updated", result.Updated))
	return result, nil
}

// normalize converts upstream records into upsert rows. Titles are
// truncated to the domain limit, empty ones replaced by a placeholder,
// and later records win when the upstream repeats a title.
func normalize(ownerID uuid.UUID, records []Record) ([]store.UpsertRow, []string) {
	index := make(map[string]int, len(records))
	rows := make([]store.UpsertRow, 0, len(records))

	for _, rec := range records {
		title := domain.TruncateTitle(rec.Title)
		if title == "" {
			title = placeholderTitle
		}

		row := store.UpsertRow{
			OwnerID:     ownerID,
			Title:       title,
			Description: fmt.Sprintf("Imported from external source (id %d)", rec.ID),
			IsCompleted: rec.Completed,
			Priority:    domain.PriorityMedium,
		}

		if at, ok := index[title]; ok {
			rows[at] = row
			continue
		}
		index[title] = len(rows)
		rows = append(rows, row)
	}

	titles := make([]string, 0, len(rows))
	for _, row := range rows {
		titles = append(titles, row.Title)
	}
	return rows, titles
}
