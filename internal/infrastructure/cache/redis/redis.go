// Package redis implements the cache primitive over Redis. It keeps the
// "key absent" and "cache unreachable" conditions apart so callers can
// choose their failure policy.
package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	"github.com/JosipBeDa/alchemy/internal/core/cache"
)

// Config holds client configuration.
type Config struct {
	Addr     string
	Username string
	Password string
	DB       int

	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolSize     int
}

// DefaultConfig returns sensible defaults for production.
func DefaultConfig(addr string) Config {
	return Config{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
		ReadTimeout: 3 * time.Second,
		PoolSize:    10,
	}
}

// incrOrInit increments the counter, attaching the TTL in the same logical
// step when this increment created the key. Concurrent callers cannot lose
// updates and the TTL is set exactly once.
var incrOrInit = redis.NewScript(`
local n = redis.call('INCR', KEYS[1])
if n == 1 then
  redis.call('EXPIRE', KEYS[1], ARGV[1])
end
return n
`)

// Store implements cache.Store over a go-redis client.
type Store struct {
	client *redis.Client
}

var _ cache.Store = (*Store)(nil)

// New creates a store and verifies connectivity.
func New(ctx context.Context, cfg Config) (*Store, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr,
		Username:     cfg.Username,
		Password:     cfg.Password,
		DB:           cfg.DB,
		DialTimeout:  cfg.DialTimeout,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		PoolSize:     cfg.PoolSize,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}

	return &Store{client: client}, nil
}

// NewWithClient wraps an existing client (used by tests).
func NewWithClient(client *redis.Client) *Store {
	return &Store{client: client}
}

// Close tears down the client's pool.
func (s *Store) Close() error {
	return s.client.Close()
}

// Ping checks connectivity, for readiness probes.
func (s *Store) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

// Get returns the value stored under key. An absent key surfaces
// CACHE_MISS; a transport failure surfaces CACHE_UNAVAILABLE.
func (s *Store) Get(ctx context.Context, key string) ([]byte, error) {
	val, err := s.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, apperror.NewCacheMiss(key)
	}
	if err != nil {
		return nil, apperror.NewCacheUnavailable(err)
	}
	return val, nil
}

// Set stores value under key. A zero ttl means no expiry.
func (s *Store) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := s.client.Set(ctx, key, value, ttl).Err(); err != nil {
		return apperror.NewCacheUnavailable(err)
	}
	return nil
}

// Delete removes key. Deleting an absent key succeeds.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, key).Err(); err != nil {
		return apperror.NewCacheUnavailable(err)
	}
	return nil
}

// IncrOrInit increments the integer at key, initializing it to 1 with ttl
// when absent, and returns the new count.
func (s *Store) IncrOrInit(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	// EXPIRE takes whole seconds and treats 0 as immediate deletion, so
	// sub-second ttls round up.
	seconds := int64((ttl + time.Second - 1) / time.Second)
	n, err := incrOrInit.Run(ctx, s.client, []string{key}, seconds).Int64()
	if err != nil {
		return 0, apperror.NewCacheUnavailable(err)
	}
	return n, nil
}
