package engine

import (
	"context"
	"fmt"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/solver"
)

// ErrUnsupportedOp marks algebra the executor cannot evaluate, such as a
// property function call with no registered function.
var ErrUnsupportedOp = errors.New("unsupported operation")

// QueryError is the error returned by Engine.Query and Engine.Explain.
//
// The code tells the caller how to react:
//   - INTERRUPTED: the query was cancelled or timed out; results are
//     discarded, never partial
//   - OPTIMIZE_FAILED: planning failed, e.g. an index querier errored
//     while examining the pattern
//   - UNSUPPORTED_OP: the query uses algebra the executor cannot run
//   - QUOTA_EXCEEDED: the query produced more rows than allowed
//   - EXECUTION_FAILED: anything else, typically a store or index failure
type QueryError struct {
	// Code identifies the error category.
	Code QueryErrorCode

	// QueryID identifies the tracked query, when one was started.
	QueryID string

	// Err is the underlying failure.
	Err error
}

// QueryErrorCode categorizes query errors.
type QueryErrorCode string

const (
	ErrCodeInterrupted     QueryErrorCode = "INTERRUPTED"
	ErrCodeOptimizeFailed  QueryErrorCode = "OPTIMIZE_FAILED"
	ErrCodeUnsupportedOp   QueryErrorCode = "UNSUPPORTED_OP"
	ErrCodeQuotaExceeded   QueryErrorCode = "QUOTA_EXCEEDED"
	ErrCodeExecutionFailed QueryErrorCode = "EXECUTION_FAILED"
)

// Error implements the error interface.
func (e *QueryError) Error() string {
	if e.QueryID != "" {
		return fmt.Sprintf("%s: %v (query=%s)", e.Code, e.Err, e.QueryID)
	}
	return fmt.Sprintf("%s: %v", e.Code, e.Err)
}

func (e *QueryError) Unwrap() error { return e.Err }

// codeOf returns the category of a query failure.
func codeOf(err error) QueryErrorCode {
	var rows *RowsExceededError
	switch {
	case cursor.IsInterrupted(err), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrCodeInterrupted
	case errors.Is(err, solver.ErrOptimize):
		return ErrCodeOptimizeFailed
	case errors.Is(err, ErrUnsupportedOp):
		return ErrCodeUnsupportedOp
	case errors.As(err, &rows):
		return ErrCodeQuotaExceeded
	default:
		return ErrCodeExecutionFailed
	}
}

// queryError wraps err as a QueryError. nil stays nil and a QueryError
// already in the chain is returned as is.
func queryError(queryID string, err error) error {
	if err == nil {
		return nil
	}
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe
	}
	return &QueryError{Code: codeOf(err), QueryID: queryID, Err: err}
}

// CodeOf returns the QueryError code carried by err, or "" if err is not a
// QueryError.
func CodeOf(err error) QueryErrorCode {
	var qe *QueryError
	if errors.As(err, &qe) {
		return qe.Code
	}
	return ""
}

// IsInterrupted reports whether err is a cancelled query.
func IsInterrupted(err error) bool {
	return CodeOf(err) == ErrCodeInterrupted || cursor.IsInterrupted(err)
}
