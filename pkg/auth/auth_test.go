package auth

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateAndValidateToken(t *testing.T) {
	m := NewJWTManager("secret", time.Hour)
	userID := uuid.New()

	token, err := m.GenerateToken(userID, "ana@finscale.app", "doctor")
	require.NoError(t, err)

	claims, err := m.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, userID, claims.UserID)
	assert.Equal(t, "ana@finscale.app", claims.Email)
	assert.Equal(t, "doctor", claims.Role)
	assert.Equal(t, "finscale", claims.Issuer)
	assert.WithinDuration(t, time.Now().Add(time.Hour), claims.ExpiresAt.Time, 5*time.Second)
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	token, err := NewJWTManager("secret", time.Hour).GenerateToken(uuid.New(), "a@b.c", "doctor")
	require.NoError(t, err)

	_, err = NewJWTManager("other", time.Hour).ValidateToken(token)
	assert.Error(t, err)
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	m := NewJWTManager("secret", time.Minute)
	issued := time.Now().Add(-2 * time.Hour)
	m.now = func() time.Time { return issued }

	token, err := m.GenerateToken(uuid.New(), "a@b.c", "doctor")
	require.NoError(t, err)

	m.now = time.Now
	_, err = m.ValidateToken(token)
	assert.Error(t, err)
}

func TestPasswordHashing(t *testing.T) {
	hash, err := HashPassword("plantao123")
	require.NoError(t, err)

	assert.NotEqual(t, "plantao123", hash)
	assert.True(t, CheckPassword(hash, "plantao123"))
	assert.False(t, CheckPassword(hash, "wrong"))
	assert.False(t, CheckPassword("", "plantao123"))
}

func TestMemoryBlacklist(t *testing.T) {
	ctx := context.Background()
	b := NewMemoryBlacklist()
	now := time.Now()
	b.now = func() time.Time { return now }

	require.NoError(t, b.Revoke(ctx, "tok", time.Minute))
	require.NoError(t, b.Revoke(ctx, "ignored", 0))

	revoked, err := b.IsRevoked(ctx, "tok")
	require.NoError(t, err)
	assert.True(t, revoked)

	revoked, _ = b.IsRevoked(ctx, "ignored")
	assert.False(t, revoked)

	now = now.Add(2 * time.Minute)
	revoked, _ = b.IsRevoked(ctx, "tok")
	assert.False(t, revoked)
}
