package api

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/mnperrone/tasks-api/internal/api/shared"
	"github.com/mnperrone/tasks-api/internal/domain"
	"github.com/mnperrone/tasks-api/internal/service"
	"github.com/mnperrone/tasks-api/internal/service/taskimport"
	"github.com/mnperrone/tasks-api/internal/store"
)

// TaskHandler handles task-related API requests.
type TaskHandler struct {
	taskService service.TaskService
	reconciler  *taskimport.Reconciler
	userStore   store.UserStore
	validator   *validator.Validate
	logger      *slog.Logger
}

// NewTaskHandler creates a new TaskHandler with the given dependencies.
func NewTaskHandler(
	taskService service.TaskService,
	reconciler *taskimport.Reconciler,
	userStore store.UserStore,
	logger *slog.Logger,
) *TaskHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &TaskHandler{
		taskService: taskService,
		reconciler:  reconciler,
		userStore:   userStore,
		validator:   validator.New(),
		logger:      logger.With(slog.String("component", "task_handler")),
	}
}

// Index handles GET /tasks. Results are paginated and filterable by
// priority and completion state via query parameters.
func (h *TaskHandler) Index(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	q := r.URL.Query()
	filters := service.ListFilters{Priority: q.Get("priority")}
	if q.Has("completed") {
		raw := q.Get("completed")
		filters.Completed = &raw
	}

	perPage, _ := strconv.Atoi(q.Get("per_page"))
	page, _ := strconv.Atoi(q.Get("page"))

	result, err := h.taskService.GetPaginatedForUser(r.Context(), actor, filters, perPage, page)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toPaginatedResponse(result))
}

// List handles GET /tasks/all, the unpaginated task listing with an
// optional completed filter.
func (h *TaskHandler) List(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var completed *bool
	if r.URL.Query().Has("completed") {
		v := store.ParseCompleted(r.URL.Query().Get("completed"))
		completed = &v
	}

	tasks, err := h.taskService.ListForUser(r.Context(), actor, completed)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, TaskListResponse{
		Tasks: toTaskResponses(tasks),
		Count: len(tasks),
	})
}

// Show handles GET /tasks/{id}.
func (h *TaskHandler) Show(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	task, err := h.taskService.GetTask(r.Context(), actor, chi.URLParam(r, "id"))
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toTaskResponse(task))
}

// Store handles POST /tasks.
func (h *TaskHandler) Store(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req CreateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.taskService.CreateTask(r.Context(), actor, service.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Priority:    req.Priority,
	})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusCreated, toTaskResponse(task))
}

// Update handles PUT and PATCH /tasks/{id}. Both verbs apply the same
// partial update semantics.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	var req UpdateTaskRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid request format")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		shared.RespondWithError(w, r, http.StatusBadRequest, SanitizeValidationError(err))
		return
	}

	task, err := h.taskService.UpdateTask(r.Context(), actor, chi.URLParam(r, "id"),
		service.UpdateTaskInput{
			Title:       req.Title,
			Description: req.Description,
			Priority:    req.Priority,
			IsCompleted: req.IsCompleted,
		})
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toTaskResponse(task))
}

// Complete handles PATCH /tasks/{id}/complete.
func (h *TaskHandler) Complete(w http.ResponseWriter, r *http.Request) {
	h.setCompletion(w, r, true)
}

// Incomplete handles PATCH /tasks/{id}/incomplete.
func (h *TaskHandler) Incomplete(w http.ResponseWriter, r *http.Request) {
	h.setCompletion(w, r, false)
}

// Destroy handles DELETE /tasks/{id}.
func (h *TaskHandler) Destroy(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	if err := h.taskService.DeleteTask(r.Context(), actor, chi.URLParam(r, "id")); err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Populate handles POST /tasks/populate: pull the external task source
// and reconcile it into the caller's tasks. The route is additionally
// gated by the API key middleware.
func (h *TaskHandler) Populate(w http.ResponseWriter, r *http.Request) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	result, err := h.reconciler.Populate(r.Context(), actor.ID)
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, PopulateResponse{
		Received: result.Received,
		Inserted: result.Inserted,
		Updated:  result.Updated,
	})
}

func (h *TaskHandler) setCompletion(w http.ResponseWriter, r *http.Request, completed bool) {
	actor, ok := h.requireActor(w, r)
	if !ok {
		return
	}

	id := chi.URLParam(r, "id")
	var (
		task *domain.Task
		err  error
	)
	if completed {
		task, err = h.taskService.CompleteTask(r.Context(), actor, id)
	} else {
		task, err = h.taskService.IncompleteTask(r.Context(), actor, id)
	}
	if err != nil {
		HandleAPIError(w, r, err, "")
		return
	}

	shared.RespondWithJSON(w, r, http.StatusOK, toTaskResponse(task))
}

// requireActor resolves the authenticated user for policy decisions.
// A token whose user no longer exists is treated as unauthenticated.
func (h *TaskHandler) requireActor(w http.ResponseWriter, r *http.Request) (*domain.User, bool) {
	userID, ok := getUserIDFromContext(r)
	if !ok {
		HandleAPIError(w, r, domain.ErrUnauthorized, "")
		return nil, false
	}

	actor, err := h.userStore.GetByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			HandleAPIError(w, r, domain.ErrUnauthorized, "")
			return nil, false
		}
		HandleAPIError(w, r, err, "Failed to load user")
		return nil, false
	}

	return actor, true
}
