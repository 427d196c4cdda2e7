package index

import (
	"context"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Querier is the capability object that lets the optimizer use one index.
type Querier interface {
	// Examine returns the subset of p this index can answer. The result
	// only contains triples from p.
	Examine(p ir.Pattern) (ir.Pattern, error)

	// Estimate returns an upper bound on the number of results of a claimed
	// sub-pattern.
	Estimate(p ir.Pattern) (int64, error)

	// Query evaluates a claimed sub-pattern for every input binding.
	Query(ctx context.Context, p ir.Pattern, input cursor.Cursor) cursor.Cursor
}

// Function is an index-backed property function. Its triple has the
// function URI as predicate.
type Function interface {
	Querier

	// URI is the predicate that invokes the function.
	URI() ir.URI
}

// IsFunctionTriple reports whether t invokes f.
func IsFunctionTriple(f Function, t ir.Triple) bool {
	return t.Predicate == ir.Term(f.URI())
}
