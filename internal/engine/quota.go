package engine

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// DefaultMaxRows is the default result row limit per query.
const DefaultMaxRows = 100000

// RowQuota counts the rows a query has produced and enforces a maximum.
// A limit of zero or less disables the check.
//
// Each query gets its own RowQuota; it is not safe for concurrent use.
type RowQuota struct {
	maxRows int
	current int
}

// NewRowQuota returns a quota allowing maxRows rows.
func NewRowQuota(maxRows int) *RowQuota {
	return &RowQuota{maxRows: maxRows}
}

// Check counts one more row and fails once the limit is passed.
func (q *RowQuota) Check(queryID string) error {
	q.current++
	if q.maxRows > 0 && q.current > q.maxRows {
		return errors.WithStack(&RowsExceededError{QueryID: queryID, Rows: q.current, Limit: q.maxRows})
	}
	return nil
}

// Current returns the number of rows counted so far.
func (q *RowQuota) Current() int {
	return q.current
}

// RowsExceededError is returned when a query produces more rows than its
// quota allows. The query is aborted; no rows are returned.
type RowsExceededError struct {
	QueryID string
	Rows    int
	Limit   int
}

func (e *RowsExceededError) Error() string {
	return fmt.Sprintf("query %s exceeded row quota: %d rows > %d limit", e.QueryID, e.Rows, e.Limit)
}
