package auth

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJWTService_RoundTrip(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	session := &Session{
		ID:        "s1",
		UserID:    "u1",
		Email:     "a@b.com",
		ExpiresAt: time.Now().Add(time.Hour),
	}

	token, expiresAt, err := svc.GenerateAccessToken(session)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expiresAt, time.Minute)

	account, err := svc.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, "u1", account.UserID)
	assert.Equal(t, "s1", account.SessionID)
	assert.Equal(t, "a@b.com", account.Email)
}

func TestJWTService_TokenClampedToSessionExpiry(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))

	session := &Session{
		ID:        "s1",
		UserID:    "u1",
		ExpiresAt: time.Now().Add(time.Minute),
	}

	_, expiresAt, err := svc.GenerateAccessToken(session)
	require.NoError(t, err)
	assert.WithinDuration(t, session.ExpiresAt, expiresAt, time.Second,
		"token must not outlive the session it names")
}

func TestJWTService_RejectsWrongKey(t *testing.T) {
	svc := NewJWTService(DefaultJWTConfig("test-secret"))
	other := NewJWTService(DefaultJWTConfig("other-secret"))

	session := &Session{ID: "s1", UserID: "u1", ExpiresAt: time.Now().Add(time.Hour)}
	token, _, err := svc.GenerateAccessToken(session)
	require.NoError(t, err)

	_, err = other.ValidateToken(token)
	assert.Error(t, err)

	_, err = svc.ValidateToken("not-a-token")
	assert.Error(t, err)
}
