package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecretKey = "test-secret-key-with-enough-length-for-hmac"

func newTestTokenService(t *testing.T, accessTTL, refreshTTL time.Duration) TokenService {
	t.Helper()

	svc, err := NewTokenService(accessTTL, refreshTTL, "casaflow-test", "casaflow-api", testSecretKey)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Run("RequiresSecretKey", func(t *testing.T) {
		_, err := NewTokenService(time.Hour, 24*time.Hour, "iss", "aud", "")
		require.Error(t, err)
	})

	t.Run("Valid", func(t *testing.T) {
		svc, err := NewTokenService(time.Hour, 24*time.Hour, "iss", "aud", testSecretKey)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})
}

func TestTokenRoundTrip(t *testing.T) {
	svc := newTestTokenService(t, time.Hour, 24*time.Hour)

	accessToken, refreshToken, err := svc.GenerateTokens(42)
	require.NoError(t, err)
	assert.NotEmpty(t, accessToken)
	assert.NotEmpty(t, refreshToken)
	assert.NotEqual(t, accessToken, refreshToken)

	claims, err := svc.ValidateToken(accessToken)
	require.NoError(t, err)
	assert.Equal(t, uint(42), claims.UserID)
	assert.Equal(t, "access", claims.TokenType)
	assert.NotEmpty(t, claims.TokenID)
	assert.True(t, claims.ExpiresAt.After(claims.IssuedAt))

	refreshClaims, err := svc.ValidateToken(refreshToken)
	require.NoError(t, err)
	assert.Equal(t, "refresh", refreshClaims.TokenType)
	assert.NotEqual(t, claims.TokenID, refreshClaims.TokenID)
}

func TestValidateTokenRejections(t *testing.T) {
	svc := newTestTokenService(t, time.Hour, 24*time.Hour)

	t.Run("Garbage", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("WrongKey", func(t *testing.T) {
		other := newTestTokenService(t, time.Hour, 24*time.Hour)
		otherImpl := other.(*TokenServiceImpl)
		otherImpl.secretKey = []byte("a-completely-different-secret-key")

		token, _, err := other.GenerateTokens(7)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("Expired", func(t *testing.T) {
		shortLived := newTestTokenService(t, -time.Minute, -time.Minute)
		token, _, err := shortLived.GenerateTokens(7)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})
}

func TestRefreshToken(t *testing.T) {
	svc := newTestTokenService(t, time.Hour, 24*time.Hour)

	t.Run("IssuesNewPair", func(t *testing.T) {
		_, refreshToken, err := svc.GenerateTokens(9)
		require.NoError(t, err)

		newAccess, newRefresh, err := svc.RefreshToken(refreshToken)
		require.NoError(t, err)
		assert.NotEmpty(t, newAccess)
		assert.NotEmpty(t, newRefresh)

		claims, err := svc.ValidateToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(9), claims.UserID)
		assert.Equal(t, "access", claims.TokenType)
	})

	t.Run("RejectsAccessToken", func(t *testing.T) {
		accessToken, _, err := svc.GenerateTokens(9)
		require.NoError(t, err)

		_, _, err = svc.RefreshToken(accessToken)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not a refresh token")
	})
}
