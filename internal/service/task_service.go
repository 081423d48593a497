package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
	"github.com/mnperrone/tasks-api/internal/cache"
	"github.com/mnperrone/tasks-api/internal/domain"
	"github.com/mnperrone/tasks-api/internal/events"
	"github.com/mnperrone/tasks-api/internal/platform/logger"
	"github.com/mnperrone/tasks-api/internal/policy"
	"github.com/mnperrone/tasks-api/internal/store"
)

// Pagination bounds for GetPaginatedForUser.
const (
	DefaultPerPage = 15
	MaxPerPage     = 100
)

// CreateTaskInput is the payload for CreateTask. Priority defaults to
// medium when empty.
type CreateTaskInput struct {
	Title       string
	Description string
	Priority    string
}

// UpdateTaskInput is the partial payload for UpdateTask. Nil fields are
// left untouched.
type UpdateTaskInput struct {
	Title       *string
	Description *string
	Priority    *string
	IsCompleted *bool
}

// ListFilters are the raw, caller-supplied filter parameters for the
// paginated query. Values arrive as untrusted strings from the transport
// layer and are parsed defensively.
type ListFilters struct {
	// Priority filters to one priority level; unknown values are ignored.
	Priority string

	// Completed filters by completion state when set; "1"/"true"/"yes"
	// (case-insensitive) mean completed, anything else not completed.
	Completed *string
}

// TaskService is the single entry point for task operations. Every
// mutation runs the access policy first, writes through the store, emits
// its domain event and invalidates the owner's cached views before
// returning the re-read entity.
type TaskService interface {
	// ListForUser returns all of the actor's tasks, optionally filtered by
	// completion state, newest first. Results are served through the cache.
	ListForUser(ctx context.Context, actor *domain.User, completed *bool) ([]*domain.Task, error)

	// GetPaginatedForUser returns one page of the actor's tasks matching
	// the filters. Results are served through the cache; the cache key
	// covers every filter and pagination parameter.
	GetPaginatedForUser(ctx context.Context, actor *domain.User, filters ListFilters, perPage, page int) (*store.TaskPage, error)

	// GetTask retrieves a single task, subject to the view policy.
	// A syntactically malformed id resolves to store.ErrTaskNotFound.
	GetTask(ctx context.Context, actor *domain.User, id string) (*domain.Task, error)

	// CreateTask validates the payload and creates a task owned by the actor.
	CreateTask(ctx context.Context, actor *domain.User, input CreateTaskInput) (*domain.Task, error)

	// UpdateTask applies a partial update, subject to the update policy.
	UpdateTask(ctx context.Context, actor *domain.User, id string, input UpdateTaskInput) (*domain.Task, error)

	// CompleteTask marks the task completed, subject to the update policy.
	CompleteTask(ctx context.Context, actor *domain.User, id string) (*domain.Task, error)

	// IncompleteTask marks the task not completed, subject to the update policy.
	IncompleteTask(ctx context.Context, actor *domain.User, id string) (*domain.Task, error)

	// DeleteTask permanently removes the task, subject to the delete policy.
	DeleteTask(ctx context.Context, actor *domain.User, id string) error

	// FlushUserCache drops every cached view of the given owner's tasks.
	// Used by the sync reconciler after a bulk upsert, where arbitrarily
	// many rows may have changed.
	FlushUserCache(ctx context.Context, ownerID uuid.UUID)
}

// taskServiceImpl implements the TaskService interface
type taskServiceImpl struct {
	taskStore store.TaskStore
	taskCache cache.TagCache
	emitter   events.EventEmitter
	logger    *slog.Logger
}

// NewTaskService creates a new TaskService.
// It returns an error if any of the required dependencies are nil.
func NewTaskService(
	taskStore store.TaskStore,
	taskCache cache.TagCache,
	emitter events.EventEmitter,
	logger *slog.Logger,
) (TaskService, error) {
	if taskStore == nil {
		return nil, errors.New("taskStore cannot be nil")
	}
	if taskCache == nil {
		return nil, errors.New("taskCache cannot be nil")
	}
	if emitter == nil {
		return nil, errors.New("emitter cannot be nil")
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &taskServiceImpl{
		taskStore: taskStore,
		taskCache: taskCache,
		emitter:   emitter,
		logger:    logger.With(slog.String("component", "task_service")),
	}, nil
}

// ListForUser implements TaskService.ListForUser
func (s *taskServiceImpl) ListForUser(
	ctx context.Context,
	actor *domain.User,
	completed *bool,
) ([]*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	params := map[string]string{}
	if completed != nil {
		params["completed"] = strconv.FormatBool(*completed)
	}
	key := cache.Key(actor.ID, "list", params)

	data, err := s.taskCache.GetOrCompute(ctx, key, s.ownerTags(actor.ID), cache.DefaultTTL,
		func(ctx context.Context) ([]byte, error) {
			filter := store.TaskFilter{Completed: completed}
			page, err := s.taskStore.Query(ctx, actor.ID, filter, 1, MaxPerPage)
			if err != nil {
				return nil, err
			}
			// One unpaginated view: pull the remaining pages if any.
			tasks := page.Tasks
			for p := 2; len(tasks) < page.Total; p++ {
				next, err := s.taskStore.Query(ctx, actor.ID, filter, p, MaxPerPage)
				if err != nil {
					return nil, err
				}
				if len(next.Tasks) == 0 {
					break
				}
				tasks = append(tasks, next.Tasks...)
			}
			return json.Marshal(tasks)
		})
	if err != nil {
		log.Error("failed to list tasks",
			slog.String("error", err.Error()),
			slog.String("owner_id", actor.ID.String()))
		return nil, NewTaskServiceError("list", "failed to list tasks", err)
	}

	var tasks []*domain.Task
	if err := json.Unmarshal(data, &tasks); err != nil {
		return nil, NewTaskServiceError("list", "failed to decode cached tasks", err)
	}
	return tasks, nil
}

// GetPaginatedForUser implements TaskService.GetPaginatedForUser
func (s *taskServiceImpl) GetPaginatedForUser(
	ctx context.Context,
	actor *domain.User,
	filters ListFilters,
	perPage, page int,
) (*store.TaskPage, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if page < 1 {
		page = 1
	}

	filter := store.TaskFilter{}
	params := map[string]string{
		"per_page": strconv.Itoa(perPage),
		"page":     strconv.Itoa(page),
	}
	if p := domain.Priority(filters.Priority); p.IsValid() {
		filter.Priority = &p
		params["priority"] = string(p)
	}
	if filters.Completed != nil {
		completed := store.ParseCompleted(*filters.Completed)
		filter.Completed = &completed
		params["completed"] = strconv.FormatBool(completed)
	}

	key := cache.Key(actor.ID, "paginate", params)

	data, err := s.taskCache.GetOrCompute(ctx, key, s.ownerTags(actor.ID), cache.DefaultTTL,
		func(ctx context.Context) ([]byte, error) {
			result, err := s.taskStore.Query(ctx, actor.ID, filter, page, perPage)
			if err != nil {
				return nil, err
			}
			return json.Marshal(result)
		})
	if err != nil {
		log.Error("failed to paginate tasks",
			slog.String("error", err.Error()),
			slog.String("owner_id", actor.ID.String()))
		return nil, NewTaskServiceError("paginate", "failed to query tasks", err)
	}

	var result store.TaskPage
	if err := json.Unmarshal(data, &result); err != nil {
		return nil, NewTaskServiceError("paginate", "failed to decode cached page", err)
	}
	if result.Tasks == nil {
		result.Tasks = []*domain.Task{}
	}
	return &result, nil
}

// GetTask implements TaskService.GetTask
func (s *taskServiceImpl) GetTask(
	ctx context.Context,
	actor *domain.User,
	id string,
) (*domain.Task, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanView(actor, task) {
		return nil, ErrForbidden
	}

	return task, nil
}

// CreateTask implements TaskService.CreateTask
func (s *taskServiceImpl) CreateTask(
	ctx context.Context,
	actor *domain.User,
	input CreateTaskInput,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if !policy.CanCreate(actor) {
		return nil, ErrForbidden
	}

	task, err := newTaskFromInput(actor.ID, input)
	if err != nil {
		return nil, err
	}

	if err := s.taskStore.Create(ctx, task); err != nil {
		log.Error("failed to create task",
			slog.String("error", err.Error()),
			slog.String("owner_id", actor.ID.String()))
		return nil, NewTaskServiceError("create", "failed to save task", err)
	}

	created, err := s.taskStore.GetByID(ctx, task.ID)
	if err != nil {
		return nil, NewTaskServiceError("create", "failed to re-read task", err)
	}

	s.emit(ctx, events.EventTaskCreated, created)
	s.FlushUserCache(ctx, created.OwnerID)

	log.Info("task created",
		slog.String("task_id", created.ID.String()),
		slog.String("owner_id", created.OwnerID.String()))
	return created, nil
}

// UpdateTask implements TaskService.UpdateTask
func (s *taskServiceImpl) UpdateTask(
	ctx context.Context,
	actor *domain.User,
	id string,
	input UpdateTaskInput,
) (*domain.Task, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanUpdate(actor, task) {
		return nil, ErrForbidden
	}

	update, err := storeUpdateFromInput(input)
	if err != nil {
		return nil, err
	}

	return s.applyUpdate(ctx, "update", task, update, "")
}

// CompleteTask implements TaskService.CompleteTask
func (s *taskServiceImpl) CompleteTask(
	ctx context.Context,
	actor *domain.User,
	id string,
) (*domain.Task, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanUpdate(actor, task) {
		return nil, ErrForbidden
	}

	completed := true
	return s.applyUpdate(ctx, "complete", task,
		store.TaskUpdate{IsCompleted: &completed}, events.EventTaskCompleted)
}

// IncompleteTask implements TaskService.IncompleteTask
func (s *taskServiceImpl) IncompleteTask(
	ctx context.Context,
	actor *domain.User,
	id string,
) (*domain.Task, error) {
	task, err := s.loadTask(ctx, id)
	if err != nil {
		return nil, err
	}

	if !policy.CanUpdate(actor, task) {
		return nil, ErrForbidden
	}

	completed := false
	return s.applyUpdate(ctx, "incomplete", task,
		store.TaskUpdate{IsCompleted: &completed}, "")
}

// DeleteTask implements TaskService.DeleteTask
func (s *taskServiceImpl) DeleteTask(
	ctx context.Context,
	actor *domain.User,
	id string,
) error {
	log := logger.FromContextOrDefault(ctx, s.logger)

	task, err := s.loadTask(ctx, id)
	if err != nil {
		return err
	}

	if !policy.CanDelete(actor, task) {
		return ErrForbidden
	}

	if err := s.taskStore.Delete(ctx, task.ID); err != nil {
		log.Error("failed to delete task",
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		return NewTaskServiceError("delete", "failed to delete task", err)
	}

	s.FlushUserCache(ctx, task.OwnerID)

	log.Info("task deleted",
		slog.String("task_id", task.ID.String()),
		slog.String("owner_id", task.OwnerID.String()))
	return nil
}

// FlushUserCache implements TaskService.FlushUserCache
// Cache trouble never fails the caller's operation: a dropped invalidation
// is bounded by the entry TTL and the store remains authoritative.
func (s *taskServiceImpl) FlushUserCache(ctx context.Context, ownerID uuid.UUID) {
	if err := s.taskCache.Invalidate(ctx, s.ownerTags(ownerID)); err != nil {
		logger.FromContextOrDefault(ctx, s.logger).Warn("cache invalidation failed",
			slog.String("error", err.Error()),
			slog.String("owner_id", ownerID.String()))
	}
}

// applyUpdate writes the update, re-reads the task, emits the optional
// event and invalidates the affected owner's cached views.
func (s *taskServiceImpl) applyUpdate(
	ctx context.Context,
	operation string,
	task *domain.Task,
	update store.TaskUpdate,
	eventType string,
) (*domain.Task, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	if err := s.taskStore.Update(ctx, task.ID, update); err != nil {
		log.Error("failed to update task",
			slog.String("operation", operation),
			slog.String("error", err.Error()),
			slog.String("task_id", task.ID.String()))
		if errors.Is(err, store.ErrNotFound) {
			return nil, store.ErrTaskNotFound
		}
		return nil, NewTaskServiceError(operation, "failed to update task", err)
	}

	updated, err := s.taskStore.GetByID(ctx, task.ID)
	if err != nil {
		return nil, NewTaskServiceError(operation, "failed to re-read task", err)
	}

	if eventType != "" {
		s.emit(ctx, eventType, updated)
	}
	s.FlushUserCache(ctx, updated.OwnerID)

	return updated, nil
}

// loadTask resolves an id string to a stored task. Malformed ids get the
// same not-found answer as missing ones so the id space is not probeable.
func (s *taskServiceImpl) loadTask(ctx context.Context, id string) (*domain.Task, error) {
	taskID, err := uuid.Parse(id)
	if err != nil {
		return nil, store.ErrTaskNotFound
	}

	task, err := s.taskStore.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, store.ErrTaskNotFound
		}
		return nil, NewTaskServiceError("get", "failed to retrieve task", err)
	}
	return task, nil
}

// emit publishes a task event. Emission is fire-and-forget: a failing
// handler is logged and the operation proceeds.
func (s *taskServiceImpl) emit(ctx context.Context, eventType string, task *domain.Task) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	event, err := events.NewTaskEvent(eventType, task)
	if err != nil {
		log.Warn("failed to build task event",
			slog.String("event_type", eventType),
			slog.String("error", err.Error()))
		return
	}
	if err := s.emitter.EmitEvent(ctx, event); err != nil {
		log.Warn("task event delivery failed",
			slog.String("event_type", eventType),
			slog.String("event_id", event.ID.String()),
			slog.String("error", err.Error()))
	}
}

func (s *taskServiceImpl) ownerTags(ownerID uuid.UUID) []string {
	return []string{cache.OwnerTag(ownerID)}
}

// newTaskFromInput validates the create payload and builds the task.
func newTaskFromInput(ownerID uuid.UUID, input CreateTaskInput) (*domain.Task, error) {
	task, err := domain.NewTask(ownerID, input.Title, input.Description)
	if err != nil {
		return nil, validationError(err)
	}

	if input.Priority != "" {
		p := domain.Priority(input.Priority)
		if !p.IsValid() {
			return nil, domain.NewValidationError("priority", "must be one of: low, medium, high")
		}
		task.Priority = p
	}

	return task, nil
}

// storeUpdateFromInput validates the partial update payload.
func storeUpdateFromInput(input UpdateTaskInput) (store.TaskUpdate, error) {
	update := store.TaskUpdate{
		Description: input.Description,
		IsCompleted: input.IsCompleted,
	}

	if input.Title != nil {
		probe := domain.Task{
			ID:       uuid.New(),
			OwnerID:  uuid.New(),
			Title:    *input.Title,
			Priority: domain.PriorityMedium,
		}
		if err := probe.Validate(); err != nil {
			return store.TaskUpdate{}, validationError(err)
		}
		update.Title = input.Title
	}

	if input.Description != nil {
		if len(*input.Description) > 0 {
			probe := domain.Task{
				ID:          uuid.New(),
				OwnerID:     uuid.New(),
				Title:       "x",
				Description: *input.Description,
				Priority:    domain.PriorityMedium,
			}
			if err := probe.Validate(); err != nil {
				return store.TaskUpdate{}, validationError(err)
			}
		}
	}

	if input.Priority != nil {
		p := domain.Priority(*input.Priority)
		if !p.IsValid() {
			return store.TaskUpdate{}, domain.NewValidationError("priority", "must be one of: low, medium, high")
		}
		update.Priority = &p
	}

	return update, nil
}

// validationError wraps domain validation failures so errors.Is matches
// domain.ErrValidation regardless of which sentinel the entity returned.
func validationError(err error) error {
	var ve *domain.ValidationError
	if errors.As(err, &ve) || errors.Is(err, domain.ErrValidation) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrValidation, err)
}
