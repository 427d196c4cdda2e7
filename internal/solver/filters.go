package solver

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// rangeFilter is a comparison answered by scanning a range index.
type rangeFilter struct {
	expr     ir.Compare
	index    index.RangeIndex
	resource ir.Variable
	value    ir.Variable
	lower    ir.Term
	upper    ir.Term
}

// rangeCandidate is a range index with the triples its querier claims.
type rangeCandidate struct {
	index   index.RangeIndex
	claimed ir.Pattern
}

// SolveFilters evaluates a filtered basic graph pattern. Numeric range
// comparisons on a variable that a range index claims as a value are
// turned into index range scans ahead of the pattern; each scan is
// followed by the exact comparison, since scans are inclusive. The full
// pattern is then solved as usual and the remaining filters applied.
//
// Filters that cannot be pushed are logged at debug with
// ErrUnsupportedFilter and applied as ordinary filters.
func (s *Solver) SolveFilters(ctx context.Context, exprs []ir.Expr, p ir.Pattern, input cursor.Cursor) cursor.Cursor {
	candidates, err := s.rangeCandidates(p)
	if err != nil {
		input.Close()
		return cursor.Fail(errors.Mark(err, ErrOptimize))
	}

	var pushed []rangeFilter
	var residual []ir.Expr
	for _, e := range exprs {
		rf, err := pushdown(e, candidates)
		if err != nil {
			if len(candidates) > 0 {
				s.logger().Debug("filter not pushed to index", "filter", e.String(), "reason", err.Error())
			}
			residual = append(residual, e)
			continue
		}
		pushed = append(pushed, rf)
	}

	out := input
	for _, rf := range pushed {
		out = cursor.RepeatApply(ctx, out, rf.scan)
		out = cursor.FilterExpr(out, rf.expr)
	}
	out = s.Solve(ctx, p, out)
	for _, e := range residual {
		out = cursor.FilterExpr(out, e)
	}
	return out
}

func (s *Solver) rangeCandidates(p ir.Pattern) ([]rangeCandidate, error) {
	if !s.hasIndexes() {
		return nil, nil
	}
	var out []rangeCandidate
	for _, e := range s.entries() {
		ri, ok := e.Index.(index.RangeIndex)
		if !ok || e.Querier == nil {
			continue
		}
		claimed, err := e.Querier.Examine(p)
		if err != nil {
			return nil, errors.Wrapf(err, "examine pattern with index %q", e.Index.Name())
		}
		if len(claimed) > 0 {
			out = append(out, rangeCandidate{index: ri, claimed: claimed})
		}
	}
	return out, nil
}

// pushdown matches e against the candidates. The first index whose claimed
// triple has e's variable as object and a variable subject wins.
func pushdown(e ir.Expr, candidates []rangeCandidate) (rangeFilter, error) {
	c, ok := e.(ir.Compare)
	if !ok || !c.Op.IsRange() {
		return rangeFilter{}, errors.Wrap(ErrUnsupportedFilter, "not a range comparison")
	}
	v, constant, varFirst, ok := c.VarConstant()
	if !ok {
		return rangeFilter{}, errors.Wrap(ErrUnsupportedFilter, "needs one variable and one constant")
	}
	lit, ok := constant.(ir.Literal)
	if !ok {
		return rangeFilter{}, errors.Wrapf(ErrUnsupportedFilter, "constant %s is not numeric", constant)
	}
	if _, ok := lit.Number(); !ok {
		return rangeFilter{}, errors.Wrapf(ErrUnsupportedFilter, "constant %s is not numeric", constant)
	}

	for _, cand := range candidates {
		for _, t := range cand.claimed {
			subj, ok := t.Subject.(ir.Variable)
			if !ok || t.Object != ir.Term(v) || subj == v {
				continue
			}
			rf := rangeFilter{expr: c, index: cand.index, resource: subj, value: v}
			upperBound := (c.Op == ir.OpLT || c.Op == ir.OpLE) == varFirst
			if upperBound {
				rf.upper = lit
			} else {
				rf.lower = lit
			}
			return rf, nil
		}
	}
	return rangeFilter{}, errors.Wrapf(ErrUnsupportedFilter, "no range index holds %s", v)
}

// scan produces the bindings of one input binding that may satisfy the
// comparison.
func (rf rangeFilter) scan(b ir.Binding) cursor.Cursor {
	if b.Contains(rf.value) {
		if ir.Satisfied(rf.expr, b) {
			return cursor.Single(b)
		}
		return cursor.Empty()
	}

	if res, ok := b.Get(rf.resource); ok {
		rec, found, err := rf.index.Find(res)
		if err != nil {
			return cursor.Fail(err)
		}
		if !found || !rf.inBounds(rec.Value) {
			return cursor.Empty()
		}
		if nb, ok := b.Extend(map[ir.Variable]ir.Term{rf.value: rec.Value}); ok {
			return cursor.Single(nb)
		}
		return cursor.Empty()
	}

	it, err := rf.index.Range(rf.lower, rf.upper)
	if err != nil {
		return cursor.Fail(err)
	}
	return cursor.FromFunc(func() (ir.Binding, bool, error) {
		for it.Next() {
			rec := it.Record()
			nb, ok := b.Extend(map[ir.Variable]ir.Term{rf.resource: rec.Key, rf.value: rec.Value})
			if ok {
				return nb, true, nil
			}
		}
		return ir.Binding{}, false, it.Err()
	}, it.Close)
}

func (rf rangeFilter) inBounds(value ir.Term) bool {
	if rf.lower != nil {
		if c, err := ir.CompareTerms(value, rf.lower); err != nil || c < 0 {
			return false
		}
	}
	if rf.upper != nil {
		if c, err := ir.CompareTerms(value, rf.upper); err != nil || c > 0 {
			return false
		}
	}
	return true
}
