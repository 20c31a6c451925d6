package auth

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	"github.com/JosipBeDa/alchemy/internal/core/cache"
	"github.com/JosipBeDa/alchemy/internal/infrastructure/cache/redis"
)

func newTestCache(t *testing.T) (*Cache, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	c, err := NewCache(redis.NewWithClient(client), DefaultCacheConfig())
	require.NoError(t, err)
	return c, mr
}

func TestCache_LoginAttempts(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	_, err := c.GetLoginAttempts(ctx, "u1")
	assert.True(t, apperror.IsCacheMiss(err), "fresh key should read as a miss")

	for i := int64(1); i <= 3; i++ {
		n, err := c.CacheLoginAttempt(ctx, "u1")
		require.NoError(t, err)
		assert.Equal(t, i, n)
	}

	n, err := c.GetLoginAttempts(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	require.NoError(t, c.DeleteLoginAttempts(ctx, "u1"))

	_, err = c.GetLoginAttempts(ctx, "u1")
	assert.True(t, apperror.IsCacheMiss(err), "deleted key should read as a miss")
}

func TestCache_LoginAttemptsExpire(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	_, err := c.CacheLoginAttempt(ctx, "u1")
	require.NoError(t, err)

	mr.FastForward(DefaultCacheConfig().WrongPasswordTTL + time.Second)

	_, err = c.GetLoginAttempts(ctx, "u1")
	assert.True(t, apperror.IsCacheMiss(err))
}

func TestCache_OTPThrottle(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	before := time.Now()

	n, err := c.CacheOTPAttempt(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = c.CacheOTPAttempt(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	attempts, err := c.GetOTPAttempts(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, int64(2), attempts)

	last, err := c.GetOTPThrottle(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, last.Before(before.Truncate(time.Second)))

	require.NoError(t, c.DeleteOTPThrottle(ctx, "u1"))

	_, err = c.GetOTPAttempts(ctx, "u1")
	assert.True(t, apperror.IsCacheMiss(err), "counter should clear with the timestamp")
	_, err = c.GetOTPThrottle(ctx, "u1")
	assert.True(t, apperror.IsCacheMiss(err))
}

func TestCache_SessionRoundTrip(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	session := &Session{
		ID:        "s1",
		UserID:    "u1",
		CSRF:      "csrf-token",
		AuthType:  AuthNative,
		ExpiresAt: time.Now().Add(time.Hour).Truncate(time.Second).UTC(),
	}

	require.NoError(t, c.SetSession(ctx, session.ID, session))

	got, err := c.GetSession(ctx, session.ID)
	require.NoError(t, err)
	assert.Equal(t, session.UserID, got.UserID)
	assert.Equal(t, session.CSRF, got.CSRF)
	assert.Equal(t, session.ExpiresAt, got.ExpiresAt)

	require.NoError(t, c.DeleteSession(ctx, session.ID))

	_, err = c.GetSession(ctx, session.ID)
	assert.True(t, apperror.IsCacheMiss(err))
}

func TestCache_Tokens(t *testing.T) {
	c, _ := newTestCache(t)
	ctx := context.Background()

	require.NoError(t, c.SetToken(ctx, cache.RegistrationToken, "tok", "u1"))

	val, err := c.GetToken(ctx, cache.RegistrationToken, "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", val)

	require.NoError(t, c.DeleteToken(ctx, cache.RegistrationToken, "tok"))

	_, err = c.GetToken(ctx, cache.RegistrationToken, "tok")
	assert.True(t, apperror.IsCacheMiss(err))
}

func TestCache_EmailThrottle(t *testing.T) {
	c, mr := newTestCache(t)
	ctx := context.Background()

	throttled, err := c.EmailThrottled(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, throttled)

	require.NoError(t, c.SetEmailThrottle(ctx, "u1"))

	throttled, err = c.EmailThrottled(ctx, "u1")
	require.NoError(t, err)
	assert.True(t, throttled)

	mr.FastForward(DefaultCacheConfig().EmailThrottleTTL + time.Second)

	throttled, err = c.EmailThrottled(ctx, "u1")
	require.NoError(t, err)
	assert.False(t, throttled)
}
