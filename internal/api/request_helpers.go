package api

import (
	"net/http"

	"github.com/google/uuid"
	"github.com/mnperrone/tasks-api/internal/api/shared"
)

// getUserIDFromContext extracts the authenticated user's UUID from the
// request context. The user ID is placed there by the authentication
// middleware; a missing or zero value means the request is unauthenticated.
func getUserIDFromContext(r *http.Request) (uuid.UUID, bool) {
	userID, ok := r.Context().Value(shared.UserIDContextKey).(uuid.UUID)
	if !ok || userID == uuid.Nil {
		return uuid.Nil, false
	}
	return userID, true
}
