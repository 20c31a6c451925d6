package atomic

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
)

// recorder collects the begin/commit/abort order across fake participants.
type recorder struct {
	mu     sync.Mutex
	events []string
}

func (r *recorder) add(e string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

type fakeTxKey string

type fakeTx struct {
	name      string
	rec       *recorder
	commitErr error
	abortErr  error
}

func (t *fakeTx) Bind(ctx context.Context) context.Context {
	return context.WithValue(ctx, fakeTxKey(t.name), t)
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.rec.add(t.name + ".commit")
	return t.commitErr
}

func (t *fakeTx) Abort(_ context.Context) error {
	t.rec.add(t.name + ".abort")
	return t.abortErr
}

type fakeBeginner struct {
	name      string
	rec       *recorder
	beginErr  error
	commitErr error
	abortErr  error
}

func (b *fakeBeginner) Name() string { return b.name }

func (b *fakeBeginner) Begin(_ context.Context) (Tx, error) {
	if b.beginErr != nil {
		b.rec.add(b.name + ".begin_err")
		return nil, b.beginErr
	}
	b.rec.add(b.name + ".begin")
	return &fakeTx{name: b.name, rec: b.rec, commitErr: b.commitErr, abortErr: b.abortErr}, nil
}

func TestScopeRun(t *testing.T) {
	t.Run("Should commit every participant in order on success", func(t *testing.T) {
		rec := &recorder{}
		scope := NewScope(
			&fakeBeginner{name: "pg", rec: rec},
			&fakeBeginner{name: "mongo", rec: rec},
		)

		err := scope.Run(context.Background(), func(ctx context.Context) error {
			return nil
		})

		require.NoError(t, err)
		assert.Equal(t, []string{
			"pg.begin", "mongo.begin",
			"pg.commit", "mongo.commit",
		}, rec.all())
	})

	t.Run("Should abort every participant in reverse order on failure", func(t *testing.T) {
		rec := &recorder{}
		scope := NewScope(
			&fakeBeginner{name: "pg", rec: rec},
			&fakeBeginner{name: "mongo", rec: rec},
		)

		bodyErr := errors.New("adapter call failed")
		err := scope.Run(context.Background(), func(ctx context.Context) error {
			return bodyErr
		})

		require.ErrorIs(t, err, bodyErr)
		assert.Equal(t, []string{
			"pg.begin", "mongo.begin",
			"mongo.abort", "pg.abort",
		}, rec.all())
	})

	t.Run("Should unwind opened handles when a later begin fails", func(t *testing.T) {
		rec := &recorder{}
		scope := NewScope(
			&fakeBeginner{name: "pg", rec: rec},
			&fakeBeginner{name: "mongo", rec: rec, beginErr: errors.New("no session")},
		)

		ran := false
		err := scope.Run(context.Background(), func(ctx context.Context) error {
			ran = true
			return nil
		})

		require.Error(t, err)
		assert.False(t, ran, "body must not run when the scope could not open")
		assert.True(t, apperror.IsCode(err, apperror.CodeTxStartFailed))
		assert.Equal(t, []string{"pg.begin", "mongo.begin_err", "pg.abort"}, rec.all())
	})

	t.Run("Should abort all handles when the body panics", func(t *testing.T) {
		rec := &recorder{}
		scope := NewScope(
			&fakeBeginner{name: "pg", rec: rec},
			&fakeBeginner{name: "mongo", rec: rec},
		)

		assert.Panics(t, func() {
			_ = scope.Run(context.Background(), func(ctx context.Context) error {
				panic("boom")
			})
		})
		assert.Equal(t, []string{
			"pg.begin", "mongo.begin",
			"mongo.abort", "pg.abort",
		}, rec.all())
	})

	t.Run("Should abort when the context is cancelled during the body", func(t *testing.T) {
		rec := &recorder{}
		scope := NewScope(&fakeBeginner{name: "pg", rec: rec})

		ctx, cancel := context.WithCancel(context.Background())
		err := scope.Run(ctx, func(ctx context.Context) error {
			cancel()
			return nil
		})

		require.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, []string{"pg.begin", "pg.abort"}, rec.all())
	})

	t.Run("Should be a no-op with zero participants", func(t *testing.T) {
		ran := false
		err := NewScope().Run(context.Background(), func(ctx context.Context) error {
			ran = true
			return nil
		})
		require.NoError(t, err)
		assert.True(t, ran)
	})

	t.Run("Should surface partial success when a commit fails", func(t *testing.T) {
		rec := &recorder{}
		scope := NewScope(
			&fakeBeginner{name: "pg", rec: rec},
			&fakeBeginner{name: "mongo", rec: rec, commitErr: errors.New("io timeout")},
			&fakeBeginner{name: "audit", rec: rec},
		)

		err := scope.Run(context.Background(), func(ctx context.Context) error {
			return nil
		})

		require.Error(t, err)
		assert.True(t, apperror.IsCode(err, apperror.CodeCommitFailed))
		// pg stays committed, audit is aborted, mongo's failure is surfaced.
		assert.Equal(t, []string{
			"pg.begin", "mongo.begin", "audit.begin",
			"pg.commit", "mongo.commit", "audit.abort",
		}, rec.all())
	})

	t.Run("Should not mask the body error with an abort failure", func(t *testing.T) {
		rec := &recorder{}
		scope := NewScope(
			&fakeBeginner{name: "pg", rec: rec, abortErr: errors.New("conn reset")},
		)

		bodyErr := errors.New("original failure")
		err := scope.Run(context.Background(), func(ctx context.Context) error {
			return bodyErr
		})

		require.ErrorIs(t, err, bodyErr)
		assert.Equal(t, []string{"pg.begin", "pg.abort"}, rec.all())
	})

	t.Run("Should bind every handle into the body context", func(t *testing.T) {
		rec := &recorder{}
		scope := NewScope(
			&fakeBeginner{name: "pg", rec: rec},
			&fakeBeginner{name: "mongo", rec: rec},
		)

		err := scope.Run(context.Background(), func(ctx context.Context) error {
			assert.NotNil(t, ctx.Value(fakeTxKey("pg")))
			assert.NotNil(t, ctx.Value(fakeTxKey("mongo")))
			return nil
		})
		require.NoError(t, err)
	})
}
