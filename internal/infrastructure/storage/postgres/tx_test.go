package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStatementTimeoutSQL(t *testing.T) {
	t.Run("Should interpolate the timeout as a millisecond literal", func(t *testing.T) {
		sql := statementTimeoutSQL(30 * time.Second)
		assert.Equal(t, "SET LOCAL statement_timeout = '30000ms'", sql)
	})

	t.Run("Should never emit a bind placeholder", func(t *testing.T) {
		// SET is a utility statement; the server rejects $n parameters in it.
		for _, timeout := range []time.Duration{time.Millisecond, time.Second, 5 * time.Minute} {
			assert.NotContains(t, statementTimeoutSQL(timeout), "$")
		}
	})

	t.Run("Should match the configured default", func(t *testing.T) {
		sql := statementTimeoutSQL(DefaultTxOptions().StatementTimeout)
		assert.Equal(t, "SET LOCAL statement_timeout = '30000ms'", sql)
	})
}
