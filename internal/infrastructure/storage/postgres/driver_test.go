package postgres

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JosipBeDa/alchemy/internal/core/apperror"
)

func TestClassifyAcquireError(t *testing.T) {
	t.Run("Should report pool exhaustion when only the acquire wait timed out", func(t *testing.T) {
		err := classifyAcquireError(context.Background(), context.DeadlineExceeded)
		assert.True(t, apperror.IsPoolExhausted(err))
	})

	t.Run("Should report connection failure when the caller's context is done", func(t *testing.T) {
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		err := classifyAcquireError(ctx, context.DeadlineExceeded)
		assert.True(t, apperror.IsCode(err, apperror.CodeConnectionFailed))
		assert.False(t, apperror.IsPoolExhausted(err))
	})

	t.Run("Should report connection failure for any other acquire error", func(t *testing.T) {
		err := classifyAcquireError(context.Background(), errors.New("dial tcp: connection refused"))
		assert.True(t, apperror.IsCode(err, apperror.CodeConnectionFailed))
		assert.False(t, apperror.IsPoolExhausted(err))
	})
}
