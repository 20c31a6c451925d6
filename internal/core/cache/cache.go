// Package cache defines the keyed get/set/delete primitive the rate
// limiter and session cache are layered on. The store tracks bytes and
// counters with TTLs; every policy decision (thresholds, cool-downs) stays
// with the caller.
package cache

import (
	"context"
	"fmt"
	"time"
)

// Category tags what a key holds within a keyspace.
type Category string

const (
	Session           Category = "session"
	LoginAttempts     Category = "login_attempts"
	OTPAttempts       Category = "otp_attempts"
	OTPThrottle       Category = "otp_throttle"
	EmailThrottle     Category = "email_throttle"
	OTPToken          Category = "otp"
	RegistrationToken Category = "registration_token"
	PasswordToken     Category = "set_pw"
)

// Keyspace derives cache keys for one domain. The mapping
// (domain, category, identity) -> key is injective and stable.
type Keyspace struct {
	Domain string
}

// Key builds the cache key for a category and caller-supplied identity.
func (k Keyspace) Key(cat Category, identity string) string {
	return fmt.Sprintf("%s:%s:%s", k.Domain, cat, identity)
}

// Store is the cache primitive implemented once over the chosen cache
// technology. Keys are plain strings; values are opaque payloads.
//
// Implementations must keep "key absent" and "cache unreachable" apart:
// Get returns apperror.CodeCacheMiss for the former and
// apperror.CodeCacheUnavailable for the latter, so callers can choose to
// fail open or closed.
type Store interface {
	// Get returns the value stored under key, or a CACHE_MISS error.
	Get(ctx context.Context, key string) ([]byte, error)

	// Set stores value under key. A zero ttl means no expiry.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error

	// Delete removes key. Deleting an absent key succeeds.
	Delete(ctx context.Context, key string) error

	// IncrOrInit increments the integer at key, initializing it to 1 with
	// ttl in the same logical step when absent, and returns the new count.
	// Concurrent callers on a fresh key must not lose updates and the TTL
	// must be set exactly once.
	IncrOrInit(ctx context.Context, key string, ttl time.Duration) (int64, error)
}
