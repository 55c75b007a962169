package services

import (
	"testing"
	"time"

	"github.com/dealdesk/deal-desk/utils"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-for-unit-tests-only"

func newTestTokenService(t *testing.T) TokenService {
	t.Helper()
	svc, err := NewTokenService(15*time.Minute, 24*time.Hour, "dealdesk-test", "dealdesk-api", testSecret)
	require.NoError(t, err)
	return svc
}

func TestNewTokenService(t *testing.T) {
	t.Run("ValidConfiguration", func(t *testing.T) {
		svc, err := NewTokenService(time.Minute, time.Hour, "issuer", "audience", testSecret)
		require.NoError(t, err)
		assert.NotNil(t, svc)
	})

	t.Run("EmptySecretKey", func(t *testing.T) {
		svc, err := NewTokenService(time.Minute, time.Hour, "issuer", "audience", "")
		assert.Error(t, err)
		assert.Nil(t, svc)
	})
}

func TestGenerateTokens(t *testing.T) {
	svc := newTestTokenService(t)

	t.Run("AccessAndRefreshDiffer", func(t *testing.T) {
		access, refresh, err := svc.GenerateTokens(42, "seller", nil)
		require.NoError(t, err)
		assert.NotEmpty(t, access)
		assert.NotEmpty(t, refresh)
		assert.NotEqual(t, access, refresh)
	})

	t.Run("ClaimsRoundTrip", func(t *testing.T) {
		dept := "finance"
		access, refresh, err := svc.GenerateTokens(7, "department_reviewer", &dept)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(access)
		require.NoError(t, err)
		assert.Equal(t, uint(7), claims.UserID)
		assert.Equal(t, "department_reviewer", claims.Role)
		require.NotNil(t, claims.Department)
		assert.Equal(t, "finance", *claims.Department)
		assert.Equal(t, "access", claims.TokenType)
		assert.NotEmpty(t, claims.TokenID)

		refreshClaims, err := svc.ValidateToken(refresh)
		require.NoError(t, err)
		assert.Equal(t, "refresh", refreshClaims.TokenType)
		assert.NotEqual(t, claims.TokenID, refreshClaims.TokenID)
	})

	t.Run("NoDepartmentClaimWhenNil", func(t *testing.T) {
		access, _, err := svc.GenerateTokens(9, "seller", nil)
		require.NoError(t, err)

		claims, err := svc.ValidateToken(access)
		require.NoError(t, err)
		assert.Nil(t, claims.Department)
	})
}

func TestValidateToken(t *testing.T) {
	svc := newTestTokenService(t)

	t.Run("GarbageToken", func(t *testing.T) {
		_, err := svc.ValidateToken("not-a-jwt")
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("WrongSecret", func(t *testing.T) {
		other, err := NewTokenService(time.Minute, time.Hour, "dealdesk-test", "dealdesk-api", "some-other-secret")
		require.NoError(t, err)

		access, _, err := other.GenerateTokens(1, "seller", nil)
		require.NoError(t, err)

		_, err = svc.ValidateToken(access)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})

	t.Run("ExpiredToken", func(t *testing.T) {
		expired, err := NewTokenService(-time.Minute, time.Hour, "dealdesk-test", "dealdesk-api", testSecret)
		require.NoError(t, err)

		access, _, err := expired.GenerateTokens(1, "seller", nil)
		require.NoError(t, err)

		_, err = svc.ValidateToken(access)
		assert.ErrorIs(t, err, ErrTokenExpired)
	})

	t.Run("RejectsNonHMACSigningMethod", func(t *testing.T) {
		unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
			"user_id":    float64(1),
			"role":       "admin",
			"token_type": "access",
			"jti":        "forged",
			"iat":        utils.UTCNow().Unix(),
			"exp":        utils.UTCNow().Add(time.Hour).Unix(),
		})
		token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
		require.NoError(t, err)

		_, err = svc.ValidateToken(token)
		assert.ErrorIs(t, err, ErrTokenInvalid)
	})
}

func TestRefreshToken(t *testing.T) {
	svc := newTestTokenService(t)

	t.Run("IssuesFreshPair", func(t *testing.T) {
		_, refresh, err := svc.GenerateTokens(3, "seller", nil)
		require.NoError(t, err)

		newAccess, newRefresh, err := svc.RefreshToken(refresh)
		require.NoError(t, err)
		assert.NotEmpty(t, newAccess)
		assert.NotEqual(t, refresh, newRefresh)

		claims, err := svc.ValidateToken(newAccess)
		require.NoError(t, err)
		assert.Equal(t, uint(3), claims.UserID)
		assert.Equal(t, "access", claims.TokenType)
	})

	t.Run("AccessTokenRejected", func(t *testing.T) {
		access, _, err := svc.GenerateTokens(3, "seller", nil)
		require.NoError(t, err)

		_, _, err = svc.RefreshToken(access)
		assert.Error(t, err)
	})
}

func TestRevokeToken(t *testing.T) {
	svc := newTestTokenService(t)

	access, _, err := svc.GenerateTokens(5, "admin", nil)
	require.NoError(t, err)

	assert.False(t, svc.IsTokenRevoked(access))

	require.NoError(t, svc.RevokeToken(access))

	assert.True(t, svc.IsTokenRevoked(access))
	_, err = svc.ValidateToken(access)
	assert.ErrorIs(t, err, ErrTokenRevoked)

	t.Run("OtherTokensUnaffected", func(t *testing.T) {
		other, _, err := svc.GenerateTokens(5, "admin", nil)
		require.NoError(t, err)
		assert.False(t, svc.IsTokenRevoked(other))
		_, err = svc.ValidateToken(other)
		assert.NoError(t, err)
	})
}
