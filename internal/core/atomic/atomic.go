// Package atomic coordinates commit-or-abort semantics over one or more
// backends with incompatible transaction models. Connection-rooted
// transactions (Postgres: the transaction is the connection in a special
// mode) and session-rooted transactions (Mongo: a distinct session object
// tied to a connection) are both represented by the Tx interface; the
// coordinator never inspects which variant it holds.
//
// Consistency across independent backends is best-effort sequential, not
// distributed-atomic: there is no two-phase commit. A commit failure after
// earlier commits succeeded leaves those commits in place and is surfaced
// as a partial-success condition.
package atomic

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
	"github.com/JosipBeDa/alchemy/pkg/logger"
)

var tracer = otel.Tracer("alchemy/atomic")

// cleanupTimeout bounds abort/commit calls issued after the caller's
// context is gone.
const cleanupTimeout = 5 * time.Second

// Tx is a live, backend-specific in-flight transaction. It is terminal via
// Commit or Abort exactly once; a handle that is neither committed nor
// aborted can hold a row lock indefinitely, which is a correctness bug,
// not just a resource leak.
//
// A Tx is exclusively owned by the single in-flight scope that created it
// and is never shared across goroutines or scopes.
type Tx interface {
	// Bind attaches the transactional handle to ctx so repositories
	// resolve it instead of a plain connection.
	Bind(ctx context.Context) context.Context

	// Commit makes the transaction's effects durable and returns the
	// underlying connection to its pool.
	Commit(ctx context.Context) error

	// Abort discards the transaction's effects and returns the underlying
	// connection to its pool.
	Abort(ctx context.Context) error
}

// Beginner starts a transaction on one backend, producing a Tx. Implemented
// per backend over its Driver.
type Beginner interface {
	// Name identifies the backend, used in errors and logs.
	Name() string

	// Begin acquires a connection and starts a transaction on it.
	Begin(ctx context.Context) (Tx, error)
}

// Scope runs operations against a fixed set of backends with commit-or-abort
// semantics per backend. Participants are begun, and later committed or
// aborted, in declaration order; all concurrent users of the same scope
// acquire backends in the same relative order, which bounds lock-ordering
// deadlock risk.
//
// A Scope is immutable after construction and safe for concurrent use; each
// Run owns its own transaction handles.
type Scope struct {
	participants []Beginner
}

// NewScope creates a scope over the given participants. Order is
// significant and preserved. A scope with no participants is valid: Run
// degenerates to invoking the body with no transactions.
func NewScope(participants ...Beginner) *Scope {
	return &Scope{participants: participants}
}

type opened struct {
	name string
	tx   Tx
}

// Run executes fn inside one transaction per participant.
//
// Every participant is begun in order; a begin failure aborts the already
// opened handles in reverse order and surfaces TX_START_FAILED, leaving no
// partial scope open. Each handle is bound into the context passed to fn.
//
// If fn returns nil and the caller's context is still live, all handles are
// committed in order. The first commit failure is surfaced as COMMIT_FAILED:
// handles committed before it stay committed (no rollback of a commit is
// attempted), handles after it are aborted.
//
// If fn returns an error, panics, or the context is cancelled, all handles
// are aborted in reverse order. Abort failures are logged, never masking
// the original error. Panics are re-raised after cleanup.
func (s *Scope) Run(ctx context.Context, fn func(ctx context.Context) error) error {
	ctx, span := tracer.Start(ctx, "atomic.scope",
		trace.WithAttributes(
			attribute.Int("scope.participants", len(s.participants)),
		))
	defer span.End()

	if len(s.participants) == 0 {
		return fn(ctx)
	}

	handles := make([]opened, 0, len(s.participants))

	txCtx := ctx
	for _, p := range s.participants {
		tx, err := p.Begin(txCtx)
		if err != nil {
			s.abortAll(ctx, handles)
			return apperror.NewTxStartFailed(p.Name(), err)
		}
		handles = append(handles, opened{name: p.Name(), tx: tx})
		txCtx = tx.Bind(txCtx)
	}

	panicked := true
	var fnErr error
	defer func() {
		// Reached on panic or runtime.Goexit from fn: the recover in the
		// caller frame does not run, so clean up here before unwinding.
		if panicked {
			s.abortAll(ctx, handles)
		}
	}()

	fnErr = fn(txCtx)
	panicked = false

	// Cancellation between the body returning and the commits must not
	// leak a half-committed scope.
	if fnErr == nil {
		fnErr = ctx.Err()
	}

	if fnErr != nil {
		s.abortAll(ctx, handles)
		return fnErr
	}

	for i, h := range handles {
		if err := h.tx.Commit(ctx); err != nil {
			// Earlier commits stand; later handles are still abortable.
			s.abortAll(ctx, handles[i+1:])
			return apperror.NewCommitFailed(h.name, err).
				WithDetail("committed", i)
		}
	}

	return nil
}

// abortAll aborts handles in reverse order of opening. A detached context
// is used so the caller's cancellation cannot skip cleanup (an unaborted
// transaction may hold a lock on the backend). Abort errors indicate a
// potentially leaked lock and are logged, not returned.
func (s *Scope) abortAll(ctx context.Context, handles []opened) {
	if len(handles) == 0 {
		return
	}

	abortCtx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	for i := len(handles) - 1; i >= 0; i-- {
		h := handles[i]
		if err := h.tx.Abort(abortCtx); err != nil {
			logger.Error(ctx, "transaction abort failed",
				"backend", h.name,
				"error", apperror.NewAbortFailed(h.name, err))
		}
	}
}

// Run is a convenience for a one-off scope over the given participants.
func Run(ctx context.Context, fn func(ctx context.Context) error, participants ...Beginner) error {
	return NewScope(participants...).Run(ctx, fn)
}

// String describes the scope's participant order, for logs.
func (s *Scope) String() string {
	names := make([]string, len(s.participants))
	for i, p := range s.participants {
		names[i] = p.Name()
	}
	return fmt.Sprintf("atomic.Scope%v", names)
}
