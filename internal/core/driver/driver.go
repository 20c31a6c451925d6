// Package driver defines the contract for acquiring pooled backend
// connections. A Driver is a typed binding between one connection pool and
// the connection type it produces; it is the only component allowed to
// check out raw connections.
//
// Concrete implementations live in infrastructure/storage. Domain services
// depend on these interfaces, never on pool types directly.
package driver

import (
	"context"
)

// Driver produces live connections of exactly one type C on demand.
//
// Connect must not block indefinitely: implementations enforce a bounded
// acquire wait and return apperror.CodePoolExhausted on pool timeout,
// distinguished from apperror.CodeConnectionFailed on establishment
// failures, so callers can decide whether to retry.
//
// The caller owns the returned connection and must release it on every
// exit path.
type Driver[C any] interface {
	// Name identifies the backend, used in errors and logs.
	Name() string

	// Connect checks out a connection from the underlying pool.
	Connect(ctx context.Context) (C, error)
}
