package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/JosipBeDa/alchemy/internal/core/atomic"
)

// Postgres transactions are connection-rooted: BEGIN puts the checked-out
// connection into transaction mode and the pgx.Tx stands in for the
// connection until COMMIT or ROLLBACK. The Tx below owns both the pooled
// connection and the pgx.Tx; terminating the transaction releases the
// connection on every path.

// TxOptions configures transaction behavior.
type TxOptions struct {
	// IsolationLevel: pgx.Serializable, pgx.RepeatableRead, pgx.ReadCommitted
	IsolationLevel pgx.TxIsoLevel

	// AccessMode: pgx.ReadWrite, pgx.ReadOnly
	AccessMode pgx.TxAccessMode

	// StatementTimeout protects against long-running queries (default 30s)
	StatementTimeout time.Duration
}

// DefaultTxOptions returns production-safe defaults.
func DefaultTxOptions() TxOptions {
	return TxOptions{
		IsolationLevel:   pgx.ReadCommitted,
		AccessMode:       pgx.ReadWrite,
		StatementTimeout: 30 * time.Second,
	}
}

// Compile-time check against the coordinator contract.
var _ atomic.Beginner = (*TxBeginner)(nil)

// TxBeginner starts connection-rooted transactions for atomic scopes.
type TxBeginner struct {
	driver *Driver
	opts   TxOptions
}

// NewTxBeginner creates a Beginner over the driver.
func NewTxBeginner(driver *Driver, opts TxOptions) *TxBeginner {
	return &TxBeginner{driver: driver, opts: opts}
}

// Name identifies the backend.
func (b *TxBeginner) Name() string { return backendName }

// Begin checks out a connection and starts a transaction on it. The
// connection is released immediately when the transaction cannot start.
func (b *TxBeginner) Begin(ctx context.Context) (atomic.Tx, error) {
	conn, err := b.driver.Connect(ctx)
	if err != nil {
		return nil, err
	}

	tx, err := conn.BeginTx(ctx, pgx.TxOptions{
		IsoLevel:   b.opts.IsolationLevel,
		AccessMode: b.opts.AccessMode,
	})
	if err != nil {
		conn.Release()
		return nil, err
	}

	if b.opts.StatementTimeout > 0 {
		// SET is a utility statement and rejects bind parameters, so the
		// timeout is interpolated as a literal.
		_, err = tx.Exec(ctx, statementTimeoutSQL(b.opts.StatementTimeout))
		if err != nil {
			_ = tx.Rollback(ctx)
			conn.Release()
			return nil, err
		}
	}

	return &Tx{tx: tx, release: conn.Release}, nil
}

func statementTimeoutSQL(timeout time.Duration) string {
	return fmt.Sprintf("SET LOCAL statement_timeout = '%dms'", timeout.Milliseconds())
}

// Tx is an in-flight connection-rooted transaction.
type Tx struct {
	tx      pgx.Tx
	release func()
}

type txKey struct{}

// Bind attaches the transactional connection to ctx; repositories resolve
// it in place of the pool.
func (t *Tx) Bind(ctx context.Context) context.Context {
	return context.WithValue(ctx, txKey{}, t.tx)
}

// Commit commits the transaction and releases the connection.
func (t *Tx) Commit(ctx context.Context) error {
	defer t.release()
	return t.tx.Commit(ctx)
}

// Abort rolls back the transaction and releases the connection.
func (t *Tx) Abort(ctx context.Context) error {
	defer t.release()
	return t.tx.Rollback(ctx)
}

// Querier is the query surface shared by the pool and an in-flight
// transaction, letting repositories work both inside and outside an atomic
// scope.
type Querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// QuerierFrom returns the bound transaction when ctx carries one, otherwise
// the fallback (normally the pool).
func QuerierFrom(ctx context.Context, fallback Querier) Querier {
	if tx, ok := ctx.Value(txKey{}).(pgx.Tx); ok {
		return tx
	}
	return fallback
}
