package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/mnperrone/tasks-api/internal/domain"
	"github.com/mnperrone/tasks-api/internal/store"
)

// Common request/response structures

// RegisterRequest defines the payload for the user registration endpoint.
type RegisterRequest struct {
	Name     string `json:"name"     validate:"required,min=1,max=255"`
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=8,max=72"`
}

// LoginRequest defines the payload for the user login endpoint.
type LoginRequest struct {
	Email    string `json:"email"    validate:"required,email"`
	Password string `json:"password" validate:"required,min=1"`
}

// AuthResponse defines the successful response for authentication endpoints.
type AuthResponse struct {
	// UserID is the unique identifier for the authenticated user
	UserID uuid.UUID `json:"user_id"`

	// AccessToken is the JWT token used for API authorization
	AccessToken string `json:"token"`

	// RefreshToken is the JWT token used to obtain new access tokens
	RefreshToken string `json:"refresh_token,omitempty"`
}

// UserResponse is the JSON shape of the authenticated user, without any
// credential material.
type UserResponse struct {
	ID        uuid.UUID     `json:"id"`
	Name      string        `json:"name"`
	Email     string        `json:"email"`
	Roles     []domain.Role `json:"roles"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// toUserResponse maps a domain user to its API representation.
func toUserResponse(u *domain.User) UserResponse {
	return UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Email:     u.Email,
		Roles:     u.Roles,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// MessageResponse carries a plain informational message.
type MessageResponse struct {
	Message string `json:"message"`
}

// RefreshTokenRequest defines the payload for the token refresh endpoint.
type RefreshTokenRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// RefreshTokenResponse defines the successful response for the token refresh endpoint.
type RefreshTokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}

// CreateTaskRequest defines the payload for creating a task.
type CreateTaskRequest struct {
	Title       string `json:"title"       validate:"required,min=1,max=255"`
	Description string `json:"description" validate:"omitempty,max=5000"`
	Priority    string `json:"priority"    validate:"omitempty,oneof=low medium high"`
}

// UpdateTaskRequest defines the payload for partially updating a task.
// Absent fields are left unchanged.
type UpdateTaskRequest struct {
	Title       *string `json:"title"        validate:"omitempty,min=1,max=255"`
	Description *string `json:"description"  validate:"omitempty,max=5000"`
	Priority    *string `json:"priority"     validate:"omitempty,oneof=low medium high"`
	IsCompleted *bool   `json:"is_completed"`
}

// TaskResponse is the JSON shape of a single task.
type TaskResponse struct {
	ID          uuid.UUID `json:"id"`
	OwnerID     uuid.UUID `json:"owner_id"`
	Title       string    `json:"title"`
	Description string    `json:"description,omitempty"`
	IsCompleted bool      `json:"is_completed"`
	Priority    string    `json:"priority"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TaskListResponse is the unpaginated task collection response.
type TaskListResponse struct {
	Tasks []TaskResponse `json:"tasks"`
	Count int            `json:"count"`
}

// PaginatedTasksResponse is one page of a task collection.
type PaginatedTasksResponse struct {
	Tasks    []TaskResponse `json:"tasks"`
	Total    int            `json:"total"`
	Page     int            `json:"page"`
	PerPage  int            `json:"per_page"`
	HasMore  bool           `json:"has_more"`
}

// PopulateResponse reports the outcome of a sync run against the external
// task source.
type PopulateResponse struct {
	Received int `json:"received"`
	Inserted int `json:"inserted"`
	Updated  int `json:"updated"`
}

// toTaskResponse converts a domain task to its response shape.
func toTaskResponse(t *domain.Task) TaskResponse {
	return TaskResponse{
		ID:          t.ID,
		OwnerID:     t.OwnerID,
		Title:       t.Title,
		Description: t.Description,
		IsCompleted: t.IsCompleted,
		Priority:    string(t.Priority),
		CreatedAt:   t.CreatedAt,
		UpdatedAt:   t.UpdatedAt,
	}
}

// toTaskResponses converts a task slice, never returning nil.
func toTaskResponses(tasks []*domain.Task) []TaskResponse {
	out := make([]TaskResponse, 0, len(tasks))
	for _, t := range tasks {
		out = append(out, toTaskResponse(t))
	}
	return out
}

// toPaginatedResponse converts a store page to its response shape.
func toPaginatedResponse(page *store.TaskPage) PaginatedTasksResponse {
	return PaginatedTasksResponse{
		Tasks:   toTaskResponses(page.Tasks),
		Total:   page.Total,
		Page:    page.Page,
		PerPage: page.PerPage,
		HasMore: page.HasMore(),
	}
}
