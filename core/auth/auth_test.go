package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashAndVerifyPassword(t *testing.T) {
	hash, err := HashPassword("somesecurepassword")
	require.NoError(t, err)
	require.NotEmpty(t, hash)

	assert.True(t, VerifyPassword("somesecurepassword", hash))
	assert.False(t, VerifyPassword("wrongpassword", hash))
}

func TestTokenRoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("test-signing-key", 40*time.Minute)

	token, jti, err := issuer.GenerateToken(42, "metauser")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	require.NotEmpty(t, jti)

	claims, err := issuer.ParseToken(token)
	require.NoError(t, err)
	assert.Equal(t, int64(42), claims.UserID)
	assert.Equal(t, "metauser", claims.Username)
	assert.Equal(t, jti, claims.ID)
}

func TestParseTokenRejectsWrongKey(t *testing.T) {
	issuer := NewTokenIssuer("key-one", 40*time.Minute)
	other := NewTokenIssuer("key-two", 40*time.Minute)

	token, _, err := issuer.GenerateToken(1, "u")
	require.NoError(t, err)

	_, err = other.ParseToken(token)
	assert.Error(t, err)
}

func TestParseTokenRejectsExpired(t *testing.T) {
	issuer := NewTokenIssuer("key", -time.Minute)

	token, _, err := issuer.GenerateToken(1, "u")
	require.NoError(t, err)

	_, err = issuer.ParseToken(token)
	assert.Error(t, err)
}
