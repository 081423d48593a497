package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnperrone/tasks-api/internal/api/shared"
	"github.com/mnperrone/tasks-api/internal/domain"
	"github.com/mnperrone/tasks-api/internal/mocks"
	"github.com/mnperrone/tasks-api/internal/service/auth"
	"github.com/mnperrone/tasks-api/internal/store"
)

// stubHasher avoids the cost of real bcrypt in handler tests.
type stubHasher struct {
	err error
}

func (h *stubHasher) Hash(password string) (string, error) {
	if h.err != nil {
		return "", h.err
	}
	return "hashed:" + password, nil
}

type stubVerifier struct{}

func (v *stubVerifier) Compare(hashedPassword, password string) error {
	if hashedPassword != "hashed:"+password {
		return errors.New("password mismatch")
	}
	return nil
}

type authFixture struct {
	userStore *mocks.MockUserStore
	jwt       *mocks.MockJWTService
	hasher    *stubHasher
	handler   *AuthHandler
}

func newAuthFixture() *authFixture {
	f := &authFixture{
		userStore: &mocks.MockUserStore{},
		jwt:       &mocks.MockJWTService{Token: "access-token", RefreshToken: "refresh-token"},
		hasher:    &stubHasher{},
	}
	f.handler = NewAuthHandler(f.userStore, f.jwt, f.hasher, &stubVerifier{})
	return f
}

func postJSON(t *testing.T, handler http.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, json.NewEncoder(&buf).Encode(body))

	req := httptest.NewRequest(http.MethodPost, "/", &buf)
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestRegister(t *testing.T) {
	t.Parallel()

	f := newAuthFixture()

	rec := postJSON(t, f.handler.Register, map[string]string{
		"name":     "Ada Lovelace",
		"email":    "ada@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)

	require.Len(t, f.userStore.CreatedUsers, 1)
	created := f.userStore.CreatedUsers[0]
	assert.Equal(t, "ada@example.com", created.Email)
	assert.Equal(t, "hashed:correct-horse", created.HashedPassword)
	// The plaintext never reaches the store
	assert.Empty(t, created.Password)
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		body map[string]string
	}{
		{name: "missing email", body: map[string]string{"name": "Ada", "password": "correct-horse"}},
		{name: "bad email", body: map[string]string{"name": "Ada", "email": "nope", "password": "correct-horse"}},
		{name: "short password", body: map[string]string{"name": "Ada", "email": "ada@example.com", "password": "short"}},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			f := newAuthFixture()
			rec := postJSON(t, f.handler.Register, tc.body)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, 0, f.userStore.CreateCount)
		})
	}
}

func TestRegisterDuplicateEmail(t *testing.T) {
	t.Parallel()

	f := newAuthFixture()
	f.userStore.Err = store.ErrEmailExists

	rec := postJSON(t, f.handler.Register, map[string]string{
		"name":     "Ada Lovelace",
		"email":    "ada@example.com",
		"password": "correct-horse",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestLogin(t *testing.T) {
	t.Parallel()

	f := newAuthFixture()
	f.userStore.User = &domain.User{
		ID:             uuid.New(),
		Email:          "ada@example.com",
		HashedPassword: "hashed:correct-horse",
	}

	rec := postJSON(t, f.handler.Login, map[string]string{
		"email":    "ada@example.com",
		"password": "correct-horse",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, f.userStore.User.ID, resp.UserID)
	assert.Equal(t, "access-token", resp.AccessToken)
}

func TestLoginBadCredentials(t *testing.T) {
	t.Parallel()

	f := newAuthFixture()
	f.userStore.User = &domain.User{
		ID:             uuid.New(),
		Email:          "ada@example.com",
		HashedPassword: "hashed:correct-horse",
	}

	// Wrong password and unknown user produce the same response
	rec := postJSON(t, f.handler.Login, map[string]string{
		"email":    "ada@example.com",
		"password": "wrong",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	f.userStore.User = nil
	rec = postJSON(t, f.handler.Login, map[string]string{
		"email":    "ghost@example.com",
		"password": "correct-horse",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

// doAuthenticated invokes handler with userID injected the way the
// authentication middleware would.
func doAuthenticated(t *testing.T, handler http.HandlerFunc, userID uuid.UUID) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if userID != uuid.Nil {
		req = req.WithContext(context.WithValue(req.Context(), shared.UserIDContextKey, userID))
	}
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func TestMe(t *testing.T) {
	t.Parallel()

	f := newAuthFixture()
	f.userStore.User = &domain.User{
		ID:    uuid.New(),
		Name:  "Ada Lovelace",
		Email: "ada@example.com",
		Roles: []domain.Role{domain.RoleUser},
	}

	rec := doAuthenticated(t, f.handler.Me, f.userStore.User.ID)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, f.userStore.User.ID, resp.ID)
	assert.Equal(t, "ada@example.com", resp.Email)
	assert.Equal(t, []domain.Role{domain.RoleUser}, resp.Roles)
	// Credential fields never appear in the payload
	assert.NotContains(t, rec.Body.String(), "password")
}

func TestMeUnauthenticated(t *testing.T) {
	t.Parallel()

	f := newAuthFixture()

	// No user in the request context
	rec := doAuthenticated(t, f.handler.Me, uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// A token for a deleted user is rejected the same way
	rec = doAuthenticated(t, f.handler.Me, uuid.New())
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	t.Parallel()

	f := newAuthFixture()

	rec := doAuthenticated(t, f.handler.Logout, uuid.New())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp MessageResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Successfully logged out", resp.Message)

	rec = doAuthenticated(t, f.handler.Logout, uuid.Nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshToken(t *testing.T) {
	t.Parallel()

	f := newAuthFixture()
	f.jwt.Claims = &auth.Claims{UserID: uuid.New(), TokenType: "refresh"}

	rec := postJSON(t, f.handler.RefreshToken, map[string]string{
		"refresh_token": "some-refresh-token",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp RefreshTokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "access-token", resp.AccessToken)
	assert.Equal(t, "refresh-token", resp.RefreshToken)
}

func TestRefreshTokenInvalid(t *testing.T) {
	t.Parallel()

	f := newAuthFixture()
	f.jwt.Err = auth.ErrExpiredRefreshToken

	rec := postJSON(t, f.handler.RefreshToken, map[string]string{
		"refresh_token": "stale",
	})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
