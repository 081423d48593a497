package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mnperrone/tasks-api/internal/config"
)

func testAuthConfig() config.AuthConfig {
	return config.AuthConfig{
		JWTSecret:                   "test-secret-thats-32-characters!",
		TokenLifetimeMinutes:        60,
		RefreshTokenLifetimeMinutes: 10080,
	}
}

func TestNewJWTServiceRejectsShortSecret(t *testing.T) {
	t.Parallel()

	cfg := testAuthConfig()
	cfg.JWTSecret = "too-short"
	_, err := NewJWTService(cfg)
	assert.Error(t, err)
}

func TestAccessTokenRoundTrip(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()

	token, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	claims, err := svc.ValidateToken(ctx, token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
	assert.Equal(t, userID.String(), claims.Subject)
	assert.NotEmpty(t, claims.ID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))
}

func TestRefreshTokenRoundTrip(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()

	token, err := svc.GenerateRefreshToken(ctx, userID)
	require.NoError(t, err)

	claims, err := svc.ValidateRefreshToken(ctx, token)
	require.NoError(t, err)

	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "refresh", claims.TokenType)
}

func TestTokenTypeMismatch(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()
	userID := uuid.New()

	accessToken, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)
	refreshToken, err := svc.GenerateRefreshToken(ctx, userID)
	require.NoError(t, err)

	// An access token is not a refresh token and vice versa
	_, err = svc.ValidateRefreshToken(ctx, accessToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = svc.ValidateToken(ctx, refreshToken)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestExpiredAccessToken(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	impl, ok := svc.(*hmacJWTService)
	require.True(t, ok)

	ctx := context.Background()
	userID := uuid.New()

	// Issue a token in the past, then validate with real time
	issuedAt := time.Now().Add(-24 * time.Hour)
	impl.timeFunc = func() time.Time { return issuedAt }
	token, err := svc.GenerateToken(ctx, userID)
	require.NoError(t, err)

	impl.timeFunc = time.Now
	_, err = svc.ValidateToken(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredToken)
}

func TestExpiredRefreshToken(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	impl, ok := svc.(*hmacJWTService)
	require.True(t, ok)

	ctx := context.Background()

	issuedAt := time.Now().Add(-30 * 24 * time.Hour)
	impl.timeFunc = func() time.Time { return issuedAt }
	token, err := svc.GenerateRefreshToken(ctx, uuid.New())
	require.NoError(t, err)

	impl.timeFunc = time.Now
	_, err = svc.ValidateRefreshToken(ctx, token)
	assert.ErrorIs(t, err, ErrExpiredRefreshToken)
}

func TestClockSkewTolerance(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	impl, ok := svc.(*hmacJWTService)
	require.True(t, ok)

	ctx := context.Background()

	// A token that expired one minute ago is still inside the 2 minute skew
	issuedAt := time.Now().Add(-61 * time.Minute)
	impl.timeFunc = func() time.Time { return issuedAt }
	token, err := svc.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	impl.timeFunc = time.Now
	_, err = svc.ValidateToken(ctx, token)
	assert.NoError(t, err)
}

func TestInvalidTokens(t *testing.T) {
	t.Parallel()

	svc, err := NewJWTService(testAuthConfig())
	require.NoError(t, err)

	ctx := context.Background()

	_, err = svc.ValidateToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.ValidateRefreshToken(ctx, "garbage")
	assert.ErrorIs(t, err, ErrInvalidRefreshToken)

	// A token signed with a different key must be rejected
	otherCfg := testAuthConfig()
	otherCfg.JWTSecret = "another-secret-with-32-characters"
	other, err := NewJWTService(otherCfg)
	require.NoError(t, err)

	foreign, err := other.GenerateToken(ctx, uuid.New())
	require.NoError(t, err)

	_, err = svc.ValidateToken(ctx, foreign)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
