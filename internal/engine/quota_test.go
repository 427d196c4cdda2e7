package engine

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRowQuota_Limit(t *testing.T) {
	q := NewRowQuota(2)
	require.NoError(t, q.Check("q-1"))
	require.NoError(t, q.Check("q-1"))

	err := q.Check("q-1")
	require.Error(t, err)
	var rows *RowsExceededError
	require.True(t, errors.As(err, &rows))
	assert.Equal(t, 3, rows.Rows)
	assert.Equal(t, 2, rows.Limit)
	assert.Equal(t, ErrCodeQuotaExceeded, codeOf(err))
}

func TestRowQuota_Unlimited(t *testing.T) {
	q := NewRowQuota(0)
	for i := 0; i < 1000; i++ {
		require.NoError(t, q.Check("q-1"))
	}
	assert.Equal(t, 1000, q.Current())
}
