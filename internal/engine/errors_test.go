package engine

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/solver"
)

func TestQueryError_Codes(t *testing.T) {
	interrupted := errors.Mark(errors.Wrap(context.Canceled, "pull"), cursor.ErrInterrupted)

	tests := []struct {
		name string
		err  error
		want QueryErrorCode
	}{
		{"interrupted", interrupted, ErrCodeInterrupted},
		{"optimize", errors.Mark(errors.New("examine"), solver.ErrOptimize), ErrCodeOptimizeFailed},
		{"unsupported", errors.Wrap(ErrUnsupportedOp, "property function"), ErrCodeUnsupportedOp},
		{"quota", &RowsExceededError{QueryID: "q", Rows: 2, Limit: 1}, ErrCodeQuotaExceeded},
		{"other", errors.New("disk full"), ErrCodeExecutionFailed},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := queryError("q-1", tt.err)
			assert.Equal(t, tt.want, CodeOf(err))
			assert.Contains(t, err.Error(), "query=q-1")
			assert.True(t, errors.Is(err, tt.err))
		})
	}
}

func TestQueryError_Passthrough(t *testing.T) {
	assert.NoError(t, queryError("q", nil))

	inner := &QueryError{Code: ErrCodeInterrupted, QueryID: "q-0", Err: context.Canceled}
	assert.Same(t, inner, queryError("q-1", errors.Wrap(inner, "outer")).(*QueryError))
	assert.True(t, IsInterrupted(inner))
	assert.Equal(t, QueryErrorCode(""), CodeOf(errors.New("plain")))
}
