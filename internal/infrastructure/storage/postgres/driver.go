package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	"github.com/JosipBeDa/alchemy/internal/core/driver"
)

const backendName = "postgres"

// Compile-time check that Driver satisfies the driver contract.
var _ driver.Driver[*pgxpool.Conn] = (*Driver)(nil)

// Driver binds the Postgres pool to the connection type it produces. It is
// the only component that checks out raw connections; callers must call
// Release on every exit path.
type Driver struct {
	pool *Pool
}

// NewDriver creates a driver over the shared pool.
func NewDriver(pool *Pool) *Driver {
	return &Driver{pool: pool}
}

// Name identifies the backend.
func (d *Driver) Name() string { return backendName }

// Pool exposes the underlying pool for repositories' non-transactional
// query path.
func (d *Driver) Pool() *Pool { return d.pool }

// Connect checks out a connection, waiting at most the configured acquire
// timeout. Exhaustion surfaces POOL_EXHAUSTED (retryable with backoff);
// anything else surfaces CONNECTION_FAILED.
func (d *Driver) Connect(ctx context.Context) (*pgxpool.Conn, error) {
	acquireCtx := ctx
	if timeout := d.pool.Config().AcquireTimeout; timeout > 0 {
		var cancel context.CancelFunc
		acquireCtx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	conn, err := d.pool.Acquire(acquireCtx)
	if err != nil {
		return nil, classifyAcquireError(ctx, err)
	}
	return conn, nil
}

// classifyAcquireError maps a failed Acquire to the error taxonomy. The
// acquire context expiring while the caller's context is still live means
// the wait for a free connection timed out.
func classifyAcquireError(callerCtx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) && callerCtx.Err() == nil {
		return apperror.NewPoolExhausted(backendName, err)
	}
	return apperror.NewConnectionFailed(backendName, err)
}
