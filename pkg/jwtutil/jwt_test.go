package jwtutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestUtil() *JWTUtil {
	return NewJWTUtil(&JWTConfig{
		SigningKey:      "test-signing-key",
		Issuer:          "marketplace",
		AccessTokenTTL:  time.Hour,
		RefreshTokenTTL: 30 * 24 * time.Hour,
	})
}

func TestGenerateTokenPair_RoundTrip(t *testing.T) {
	util := newTestUtil()

	pair, err := util.GenerateTokenPair(42, "provider")
	require.NoError(t, err)

	claims, err := util.ValidateToken(pair.AccessToken, TokenTypeAccess)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "provider", claims.Role)
	assert.Equal(t, "42", claims.Subject)

	claims, err = util.ValidateToken(pair.RefreshToken, TokenTypeRefresh)
	require.NoError(t, err)
	assert.Equal(t, TokenTypeRefresh, claims.TokenType)
}

func TestValidateToken_RejectsWrongType(t *testing.T) {
	util := newTestUtil()
	pair, err := util.GenerateTokenPair(7, "customer")
	require.NoError(t, err)

	_, err = util.ValidateToken(pair.RefreshToken, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrWrongTokenType)

	_, err = util.ValidateToken(pair.AccessToken, TokenTypeRefresh)
	assert.ErrorIs(t, err, ErrWrongTokenType)
}

func TestValidateToken_Expired(t *testing.T) {
	util := newTestUtil()
	issued := time.Now().Add(-2 * time.Hour)
	util.now = func() time.Time { return issued }

	token, err := util.GenerateToken(7, "customer", TokenTypeAccess)
	require.NoError(t, err)

	util.now = time.Now
	_, err = util.ValidateToken(token, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_WrongKey(t *testing.T) {
	token, err := newTestUtil().GenerateToken(7, "customer", TokenTypeAccess)
	require.NoError(t, err)

	other := NewJWTUtil(&JWTConfig{SigningKey: "another-key", Issuer: "marketplace", AccessTokenTTL: time.Hour, RefreshTokenTTL: time.Hour})
	_, err = other.ValidateToken(token, TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestValidateToken_Garbage(t *testing.T) {
	_, err := newTestUtil().ValidateToken("not-a-token", TokenTypeAccess)
	assert.ErrorIs(t, err, ErrInvalidToken)
}
