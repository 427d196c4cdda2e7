package numeric

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// StatementCounter counts the stored statements matching a triple
// pattern. The count must be exact.
type StatementCounter interface {
	Estimate(ctx context.Context, t ir.Triple) (int64, error)
}

// Querier answers `?s <predicate> ?o` triple patterns from a numeric index.
//
// The index keeps one record per subject and skips non-numeric objects, so
// it only stands in for the store while it holds one record for every
// statement of the predicate. Statements supplies that count; when it is
// nil the index is taken to be complete.
type Querier struct {
	Predicate  ir.URI
	Index      index.RangeIndex
	Statements StatementCounter
}

// Examine claims triples with the indexed predicate and variable subject
// and object, provided the index is complete.
func (q *Querier) Examine(p ir.Pattern) (ir.Pattern, error) {
	var claimed ir.Pattern
	for _, t := range p {
		if t.IsReified() {
			continue
		}
		if ir.IsVar(t.Subject) && t.Predicate == ir.Term(q.Predicate) && ir.IsVar(t.Object) {
			claimed = append(claimed, t)
		}
	}
	if len(claimed) == 0 {
		return nil, nil
	}
	complete, err := q.complete(context.Background())
	if err != nil || !complete {
		return nil, err
	}
	return claimed, nil
}

// complete reports whether every statement of the predicate has a record.
// Records are distinct live statements, so equal counts mean full coverage.
func (q *Querier) complete(ctx context.Context) (bool, error) {
	if q.Statements == nil {
		return true, nil
	}
	want, err := q.Statements.Estimate(ctx, ir.NewTriple(ir.Variable("s"), q.Predicate, ir.Variable("o")))
	if err != nil {
		return false, errors.Wrapf(err, "count %s statements", q.Predicate)
	}
	have, err := q.Index.Size()
	if err != nil {
		return false, err
	}
	return have == want, nil
}

// Estimate returns the number of indexed records.
func (q *Querier) Estimate(ir.Pattern) (int64, error) {
	return q.Index.Size()
}

// Query evaluates every triple of p against the index for each input
// binding, chaining triples left to right.
func (q *Querier) Query(ctx context.Context, p ir.Pattern, input cursor.Cursor) cursor.Cursor {
	out := input
	for _, t := range p {
		out = cursor.RepeatApply(ctx, out, func(b ir.Binding) cursor.Cursor {
			return q.evalTriple(t, b)
		})
	}
	return out
}

func (q *Querier) evalTriple(t ir.Triple, b ir.Binding) cursor.Cursor {
	s := b.Resolve(t.Subject)
	o := b.Resolve(t.Object)
	sVar, sIsVar := s.(ir.Variable)
	oVar, oIsVar := o.(ir.Variable)

	switch {
	case sIsVar && oIsVar:
		it, err := q.Index.Iterate()
		if err != nil {
			return cursor.Fail(err)
		}
		return recordCursor(it, b, sVar, oVar)

	case sIsVar:
		if _, ok := number(o); !ok {
			return cursor.Empty()
		}
		it, err := q.Index.Query(o)
		if err != nil {
			return cursor.Fail(err)
		}
		return recordCursor(it, b, sVar, "")

	case oIsVar:
		rec, found, err := q.Index.Find(s)
		if err != nil {
			return cursor.Fail(err)
		}
		if !found {
			return cursor.Empty()
		}
		if nb, ok := b.Extend(map[ir.Variable]ir.Term{oVar: rec.Value}); ok {
			return cursor.Single(nb)
		}
		return cursor.Empty()

	default:
		rec, found, err := q.Index.Find(s)
		if err != nil {
			return cursor.Fail(err)
		}
		if found && sameValue(rec.Value, o) {
			return cursor.Single(b)
		}
		return cursor.Empty()
	}
}

// recordCursor binds each record's key to keyVar and, when valueVar is set,
// its value to valueVar. Records incompatible with b are skipped.
func recordCursor(it index.RecordIterator, b ir.Binding, keyVar, valueVar ir.Variable) cursor.Cursor {
	return cursor.FromFunc(func() (ir.Binding, bool, error) {
		for it.Next() {
			rec := it.Record()
			m := map[ir.Variable]ir.Term{keyVar: rec.Key}
			if valueVar != "" {
				m[valueVar] = rec.Value
			}
			if nb, ok := b.Extend(m); ok {
				return nb, true, nil
			}
		}
		return ir.Binding{}, false, it.Err()
	}, it.Close)
}

var _ index.Querier = (*Querier)(nil)
