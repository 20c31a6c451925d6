package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	"github.com/JosipBeDa/alchemy/internal/core/cache"
	"github.com/JosipBeDa/alchemy/pkg/logger"
)

// CacheConfig holds TTLs for the auth keyspace. Throttle entries are
// advisory: losing one weakens the rate limit but never corrupts durable
// state.
type CacheConfig struct {
	SessionTTL           time.Duration
	WrongPasswordTTL     time.Duration
	OTPThrottleTTL       time.Duration
	OTPTokenTTL          time.Duration
	RegistrationTokenTTL time.Duration
	PasswordTokenTTL     time.Duration
	EmailThrottleTTL     time.Duration
}

// DefaultCacheConfig returns the standard durations.
func DefaultCacheConfig() CacheConfig {
	return CacheConfig{
		SessionTTL:           30 * time.Minute,
		WrongPasswordTTL:     5 * time.Minute,
		OTPThrottleTTL:       5 * time.Minute,
		OTPTokenTTL:          2 * time.Minute,
		RegistrationTokenTTL: 24 * time.Hour,
		PasswordTokenTTL:     15 * time.Minute,
		EmailThrottleTTL:     time.Minute,
	}
}

// Cache is the auth-domain view over the cache primitive: session copies,
// one-time tokens and the attempt throttles. It only tracks counts and
// timestamps; thresholds and cool-down decisions stay with the service.
type Cache struct {
	store cache.Store
	keys  cache.Keyspace
	cfg   CacheConfig

	encoder *zstd.Encoder
	decoder *zstd.Decoder

	now func() time.Time
}

// NewCache creates the auth cache over the given store.
func NewCache(store cache.Store, cfg CacheConfig) (*Cache, error) {
	encoder, err := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	if err != nil {
		return nil, fmt.Errorf("create zstd encoder: %w", err)
	}

	decoder, err := zstd.NewReader(nil)
	if err != nil {
		return nil, fmt.Errorf("create zstd decoder: %w", err)
	}

	return &Cache{
		store:   store,
		keys:    cache.Keyspace{Domain: "auth"},
		cfg:     cfg,
		encoder: encoder,
		decoder: decoder,
		now:     time.Now,
	}, nil
}

// --- Sessions ---

// cachedSession mirrors Session without the json omissions, so secrets
// like the CSRF token survive the round trip. The cache value never
// leaves the server.
type cachedSession struct {
	ID         string        `json:"id"`
	UserID     string        `json:"user_id"`
	Username   string        `json:"username"`
	Email      string        `json:"email"`
	CSRF       string        `json:"csrf"`
	AuthType   AuthType      `json:"auth_type"`
	Provider   OAuthProvider `json:"provider,omitempty"`
	OAuthToken *string       `json:"oauth_token,omitempty"`
	ExpiresAt  time.Time     `json:"expires_at"`
	CreatedAt  time.Time     `json:"created_at"`
}

// SetSession caches a session copy behind its ID, zstd-compressed.
func (c *Cache) SetSession(ctx context.Context, sessionID string, session *Session) error {
	payload, err := json.Marshal(cachedSession(*session))
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	compressed := c.encoder.EncodeAll(payload, nil)
	return c.store.Set(ctx, c.keys.Key(cache.Session, sessionID), compressed, c.cfg.SessionTTL)
}

// GetSession returns the cached session copy, or CACHE_MISS.
func (c *Cache) GetSession(ctx context.Context, sessionID string) (*Session, error) {
	val, err := c.store.Get(ctx, c.keys.Key(cache.Session, sessionID))
	if err != nil {
		return nil, err
	}

	payload, err := c.decoder.DecodeAll(val, nil)
	if err != nil {
		return nil, fmt.Errorf("decompress session: %w", err)
	}

	var record cachedSession
	if err := json.Unmarshal(payload, &record); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	session := Session(record)
	return &session, nil
}

// DeleteSession drops the cached session copy.
func (c *Cache) DeleteSession(ctx context.Context, sessionID string) error {
	return c.store.Delete(ctx, c.keys.Key(cache.Session, sessionID))
}

// --- One-time tokens ---

// SetToken stores value behind a one-time token of the given category.
func (c *Cache) SetToken(ctx context.Context, category cache.Category, token, value string) error {
	return c.store.Set(ctx, c.keys.Key(category, token), []byte(value), c.tokenTTL(category))
}

// GetToken returns the value behind a one-time token, or CACHE_MISS.
func (c *Cache) GetToken(ctx context.Context, category cache.Category, token string) (string, error) {
	val, err := c.store.Get(ctx, c.keys.Key(category, token))
	if err != nil {
		return "", err
	}
	return string(val), nil
}

// DeleteToken consumes a one-time token.
func (c *Cache) DeleteToken(ctx context.Context, category cache.Category, token string) error {
	return c.store.Delete(ctx, c.keys.Key(category, token))
}

func (c *Cache) tokenTTL(category cache.Category) time.Duration {
	switch category {
	case cache.OTPToken:
		return c.cfg.OTPTokenTTL
	case cache.RegistrationToken:
		return c.cfg.RegistrationTokenTTL
	case cache.PasswordToken:
		return c.cfg.PasswordTokenTTL
	default:
		return c.cfg.OTPTokenTTL
	}
}

// --- Login attempt throttle ---

// CacheLoginAttempt records a failed login and returns the running count.
// The first attempt creates the entry with its TTL in the same logical
// step, so concurrent callers cannot double-initialize past the limit.
func (c *Cache) CacheLoginAttempt(ctx context.Context, userID string) (int64, error) {
	logger.Debug(ctx, "caching login attempt", "user_id", userID)
	return c.store.IncrOrInit(ctx, c.keys.Key(cache.LoginAttempts, userID), c.cfg.WrongPasswordTTL)
}

// GetLoginAttempts returns the current count, or CACHE_MISS when fresh.
func (c *Cache) GetLoginAttempts(ctx context.Context, userID string) (int64, error) {
	val, err := c.store.Get(ctx, c.keys.Key(cache.LoginAttempts, userID))
	if err != nil {
		return 0, err
	}
	return parseCount(val)
}

// DeleteLoginAttempts clears the user's attempt counter.
func (c *Cache) DeleteLoginAttempts(ctx context.Context, userID string) error {
	logger.Debug(ctx, "deleting login attempts", "user_id", userID)
	return c.store.Delete(ctx, c.keys.Key(cache.LoginAttempts, userID))
}

// --- One-time-code throttle ---

// CacheOTPAttempt records a verification attempt regardless of outcome:
// the attempt counter is incremented and the last-attempt timestamp is
// refreshed together. Returns the running attempt count.
func (c *Cache) CacheOTPAttempt(ctx context.Context, userID string) (int64, error) {
	logger.Debug(ctx, "throttling one-time-code attempt", "user_id", userID)

	attempts, err := c.store.IncrOrInit(ctx, c.keys.Key(cache.OTPAttempts, userID), c.cfg.OTPThrottleTTL)
	if err != nil {
		return 0, err
	}

	stamp := strconv.FormatInt(c.now().Unix(), 10)
	err = c.store.Set(ctx, c.keys.Key(cache.OTPThrottle, userID), []byte(stamp), c.cfg.OTPThrottleTTL)
	if err != nil {
		return attempts, err
	}

	return attempts, nil
}

// GetOTPAttempts returns the attempt count, or CACHE_MISS when fresh.
func (c *Cache) GetOTPAttempts(ctx context.Context, userID string) (int64, error) {
	val, err := c.store.Get(ctx, c.keys.Key(cache.OTPAttempts, userID))
	if err != nil {
		return 0, err
	}
	return parseCount(val)
}

// GetOTPThrottle returns the last attempt time, or CACHE_MISS when fresh.
func (c *Cache) GetOTPThrottle(ctx context.Context, userID string) (time.Time, error) {
	val, err := c.store.Get(ctx, c.keys.Key(cache.OTPThrottle, userID))
	if err != nil {
		return time.Time{}, err
	}
	unix, err := parseCount(val)
	if err != nil {
		return time.Time{}, err
	}
	return time.Unix(unix, 0), nil
}

// DeleteOTPThrottle clears the attempt counter and the last-attempt
// timestamp together.
func (c *Cache) DeleteOTPThrottle(ctx context.Context, userID string) error {
	if err := c.store.Delete(ctx, c.keys.Key(cache.OTPAttempts, userID)); err != nil {
		return err
	}
	return c.store.Delete(ctx, c.keys.Key(cache.OTPThrottle, userID))
}

// --- Email throttle ---

// SetEmailThrottle opens the cool-down window for outbound email to the
// user.
func (c *Cache) SetEmailThrottle(ctx context.Context, userID string) error {
	return c.store.Set(ctx, c.keys.Key(cache.EmailThrottle, userID), []byte("1"), c.cfg.EmailThrottleTTL)
}

// EmailThrottled reports whether the cool-down window is still open.
// A cache-unreachable condition is surfaced, never treated as "no
// throttle".
func (c *Cache) EmailThrottled(ctx context.Context, userID string) (bool, error) {
	_, err := c.store.Get(ctx, c.keys.Key(cache.EmailThrottle, userID))
	if apperror.IsCacheMiss(err) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func parseCount(val []byte) (int64, error) {
	n, err := strconv.ParseInt(string(val), 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parse cached counter: %w", err)
	}
	return n, nil
}
