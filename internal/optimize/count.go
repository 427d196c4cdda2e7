package optimize

import (
	"context"
	"log/slog"
	"math"

	"github.com/raytheonbbn/parliament-sub002/internal/estimate"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// CountSource supplies the statistics the count transformations order by.
// The base store implements it.
type CountSource interface {
	// NodeCountInPosition returns how many live statements hold term in pos.
	NodeCountInPosition(ctx context.Context, term ir.Term, pos ir.Position) (int64, error)

	// Estimate returns the number of statements matching t in isolation.
	Estimate(ctx context.Context, t ir.Triple) (int64, error)
}

// Reorderer returns a permutation of a pattern in evaluation order.
type Reorderer interface {
	Reorder(ctx context.Context, p ir.Pattern) (ir.Pattern, error)
}

// tripleCount pairs a triple with its count.
type tripleCount struct {
	triple ir.Triple
	count  int64
	vars   []ir.Variable
}

// TripleMinimum returns the smallest position count over the concrete terms
// of t. Reification statements are counted by the slot their value occupies
// in the reified statement. A triple with no concrete term counts as
// math.MaxInt64.
func TripleMinimum(ctx context.Context, src CountSource, t ir.Triple) (int64, error) {
	least := int64(math.MaxInt64)
	check := func(term ir.Term, pos ir.Position) error {
		if !ir.IsConcrete(term) {
			return nil
		}
		n, err := src.NodeCountInPosition(ctx, term, pos)
		if err != nil {
			return err
		}
		least = min(least, n)
		return nil
	}

	if isReificationPart(t) {
		if err := check(t.Subject, ir.PositionObject); err != nil {
			return 0, err
		}
		switch t.Predicate {
		case ir.RDFSubject:
			return least, check(t.Object, ir.PositionSubject)
		case ir.RDFPredicate:
			return least, check(t.Object, ir.PositionPredicate)
		case ir.RDFObject:
			return least, check(t.Object, ir.PositionObject)
		}
		return least, nil
	}

	for _, c := range []struct {
		term ir.Term
		pos  ir.Position
	}{
		{t.Subject, ir.PositionSubject},
		{t.Predicate, ir.PositionPredicate},
		{t.Object, ir.PositionObject},
		{t.Name, ir.PositionObject},
	} {
		if err := check(c.term, c.pos); err != nil {
			return 0, err
		}
	}
	return least, nil
}

// isReificationPart reports whether t is one of the four statements that
// make up a reification: rdf:subject, rdf:predicate, rdf:object or
// rdf:type rdf:Statement.
func isReificationPart(t ir.Triple) bool {
	if t.IsReified() || !ir.IsConcrete(t.Predicate) {
		return false
	}
	if ir.IsReificationPredicate(t.Predicate) {
		return true
	}
	return t.Predicate == ir.Term(ir.RDFType) && t.Object == ir.Term(ir.RDFStatement)
}

// DefaultCountTransformation orders triples greedily by static position
// counts. Each step picks the triple whose join with the triples already
// chosen has the smallest estimated result size.
type DefaultCountTransformation struct {
	Source CountSource
	Logger *slog.Logger
}

// Reorder implements Reorderer.
func (d *DefaultCountTransformation) Reorder(ctx context.Context, p ir.Pattern) (ir.Pattern, error) {
	counts, err := minimumCounts(ctx, d.Source, p)
	if err != nil {
		return nil, err
	}
	logger(d.Logger).Debug("beginning count ordering", "triples", len(p), "heuristic", "default")
	order, _ := orderByCounts(counts, false, nil, 0)
	return order, nil
}

// EstimateSelectivity returns the running estimate after the first three
// greedy steps of the default ordering of p.
func (d *DefaultCountTransformation) EstimateSelectivity(ctx context.Context, p ir.Pattern) (int64, error) {
	counts, err := minimumCounts(ctx, d.Source, p)
	if err != nil {
		return 0, err
	}
	_, est := orderByCounts(counts, false, nil, selectivitySteps)
	return est, nil
}

// selectivitySteps bounds EstimateSelectivity.
const selectivitySteps = 3

// UpdatedCountTransformation orders triples by live store estimates using
// the updated result-size heuristic. The running estimate is capped by the
// cost estimator's width over the triples chosen so far.
type UpdatedCountTransformation struct {
	Source CountSource
	Logger *slog.Logger
}

// Reorder implements Reorderer.
func (u *UpdatedCountTransformation) Reorder(ctx context.Context, p ir.Pattern) (ir.Pattern, error) {
	counts := make([]tripleCount, len(p))
	for i, t := range p {
		n, err := u.Source.Estimate(ctx, t)
		if err != nil {
			return nil, err
		}
		counts[i] = tripleCount{triple: t, count: n, vars: t.Vars()}
	}
	logger(u.Logger).Debug("beginning count ordering", "triples", len(p), "heuristic", "updated")
	order, _ := orderByCounts(counts, true, estimate.New(), 0)
	return order, nil
}

func minimumCounts(ctx context.Context, src CountSource, p ir.Pattern) ([]tripleCount, error) {
	counts := make([]tripleCount, len(p))
	for i, t := range p {
		n, err := TripleMinimum(ctx, src, t)
		if err != nil {
			return nil, err
		}
		counts[i] = tripleCount{triple: t, count: n, vars: t.Vars()}
	}
	return counts, nil
}

// orderByCounts runs the greedy selection. maxSteps of zero orders every
// triple. est, when non-nil, receives one constraint per chosen triple and
// caps the running estimate.
func orderByCounts(counts []tripleCount, updated bool, est *estimate.Estimator, maxSteps int) (ir.Pattern, int64) {
	remaining := append([]tripleCount(nil), counts...)
	var order ir.Pattern
	var bound []ir.Variable
	current := int64(1)

	for len(remaining) > 0 && (maxSteps == 0 || len(order) < maxSteps) {
		best, bestEstimate := 0, int64(0)
		for i, tc := range remaining {
			var e int64
			if updated {
				e = updatedSetEstimate(tc, bound, current)
			} else {
				e = setEstimate(tc, bound, current)
			}
			if i == 0 || e < bestEstimate {
				best, bestEstimate = i, e
			}
		}

		chosen := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
		order = append(order, chosen.triple)
		bound = appendNew(bound, chosen.vars)

		current = bestEstimate
		if est != nil {
			est.Push(estimate.Constraint{Vars: varNames(chosen.vars), Max: chosen.count})
			if w := est.Width(); w < current {
				current = w
			}
		}
		if current <= 0 {
			current = 1
		}
	}
	return order, current
}

// setEstimate is the result size after joining tc onto a result of size
// current: a triple sharing a bound variable is assumed to be selective
// enough to yield at most its own count, anything else is a cross product.
func setEstimate(tc tripleCount, bound []ir.Variable, current int64) int64 {
	if ir.SharesVar(tc.vars, bound) {
		return tc.count
	}
	return estimate.MulSaturating(tc.count, current)
}

// updatedSetEstimate distinguishes how the triple's variables relate to
// the bound set.
func updatedSetEstimate(tc tripleCount, bound []ir.Variable, current int64) int64 {
	if len(bound) == 0 {
		return tc.count
	}
	newInOld := subsetOf(tc.vars, bound)
	oldInNew := subsetOf(bound, tc.vars)
	shares := ir.SharesVar(tc.vars, bound)

	switch {
	case len(bound) == 1 && newInOld:
		return min(current, tc.count)
	case newInOld:
		return current
	case shares && oldInNew:
		return max(current, tc.count)
	case shares:
		p := estimate.MulSaturating(tc.count, current)
		if p == math.MaxInt64 {
			return p
		}
		return p / 2
	default:
		return estimate.MulSaturating(tc.count, current)
	}
}

func subsetOf(vars, of []ir.Variable) bool {
	for _, v := range vars {
		found := false
		for _, o := range of {
			if o == v {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func varNames(vars []ir.Variable) []string {
	out := make([]string, len(vars))
	for i, v := range vars {
		out[i] = string(v)
	}
	return out
}

func appendNew(vars, add []ir.Variable) []ir.Variable {
	for _, v := range add {
		if !subsetOf([]ir.Variable{v}, vars) {
			vars = append(vars, v)
		}
	}
	return vars
}

func logger(l *slog.Logger) *slog.Logger {
	if l == nil {
		return slog.New(slog.DiscardHandler)
	}
	return l
}
