package api

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/mnperrone/tasks-api/internal/domain"
	"github.com/mnperrone/tasks-api/internal/service"
	"github.com/mnperrone/tasks-api/internal/service/auth"
	"github.com/mnperrone/tasks-api/internal/service/taskimport"
	"github.com/mnperrone/tasks-api/internal/store"
)

func TestMapErrorToStatusCode(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  error
		want int
	}{
		{name: "invalid token", err: auth.ErrInvalidToken, want: http.StatusUnauthorized},
		{name: "expired token", err: auth.ErrExpiredToken, want: http.StatusUnauthorized},
		{name: "unauthorized", err: domain.ErrUnauthorized, want: http.StatusUnauthorized},
		{name: "forbidden", err: service.ErrForbidden, want: http.StatusForbidden},
		{name: "task not found", err: store.ErrTaskNotFound, want: http.StatusNotFound},
		{name: "user not found", err: store.ErrUserNotFound, want: http.StatusNotFound},
		{name: "wrapped not found", err: fmt.Errorf("lookup: %w", store.ErrTaskNotFound), want: http.StatusNotFound},
		{name: "email exists", err: store.ErrEmailExists, want: http.StatusConflict},
		{name: "validation", err: domain.ErrValidation, want: http.StatusBadRequest},
		{name: "invalid entity", err: store.ErrInvalidEntity, want: http.StatusBadRequest},
		{name: "upstream down", err: taskimport.ErrUpstreamUnavailable, want: http.StatusBadGateway},
		{name: "unknown", err: errors.New("boom"), want: http.StatusInternalServerError},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, MapErrorToStatusCode(tc.err))
		})
	}
}

func TestGetSafeErrorMessage(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "Task not found", GetSafeErrorMessage(store.ErrTaskNotFound))
	assert.Equal(t, "You do not have access to this task", GetSafeErrorMessage(service.ErrForbidden))
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(nil))

	// Internal detail never leaks through the safe message
	leaky := errors.New("pq: connection to postgres://app:secret@db failed")
	assert.Equal(t, "An unexpected error occurred", GetSafeErrorMessage(leaky))
}

func TestSanitizeValidationError(t *testing.T) {
	t.Parallel()

	v := validator.New()

	err := v.Struct(LoginRequest{Password: "pw"})
	assert.Equal(t, "Invalid Email: required field", SanitizeValidationError(err))

	err = v.Struct(LoginRequest{Email: "not-an-email", Password: "pw"})
	assert.Equal(t, "Invalid Email: invalid email format", SanitizeValidationError(err))

	err = v.Struct(CreateTaskRequest{Title: "ok", Priority: "urgent"})
	assert.Equal(t, "Invalid Priority: invalid value", SanitizeValidationError(err))

	assert.Equal(t, "Validation error", SanitizeValidationError(errors.New("arbitrary")))
}
