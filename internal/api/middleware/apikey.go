package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/mnperrone/tasks-api/internal/api/shared"
)

// APIKeyMiddleware gates routes behind a static X-API-KEY header check.
// Used for the sync endpoint, which talks to an external source and is
// not meant to be open to every authenticated user.
type APIKeyMiddleware struct {
	apiKey string
}

// NewAPIKeyMiddleware creates a new APIKeyMiddleware for the given key.
func NewAPIKeyMiddleware(apiKey string) *APIKeyMiddleware {
	return &APIKeyMiddleware{apiKey: apiKey}
}

// Require rejects requests whose X-API-KEY header does not match the
// configured key. An empty configured key rejects everything.
func (m *APIKeyMiddleware) Require(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		provided := r.Header.Get("X-API-KEY")
		if m.apiKey == "" || provided == "" ||
			subtle.ConstantTimeCompare([]byte(provided), []byte(m.apiKey)) != 1 {
			shared.RespondWithError(w, r, http.StatusUnauthorized, "Invalid API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}
