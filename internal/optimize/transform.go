package optimize

import (
	"context"
	"log/slog"
	"math"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// SelectivityEstimator estimates the result size of a pattern the base
// store answers.
type SelectivityEstimator interface {
	EstimateSelectivity(ctx context.Context, p ir.Pattern) (int64, error)
}

// SubPattern is a piece of a plan: either triples claimed by one index
// querier, the triples of an index-backed property function call, or a
// remainder left for the base store (Querier is nil).
type SubPattern struct {
	Querier  index.Querier
	Pattern  ir.Pattern
	Function index.Function

	vars      []ir.Variable
	estimated bool
	estimate  int64
	err       error
}

// NewSubPattern returns a sub-pattern of p answered by q. A nil q makes a
// remainder.
func NewSubPattern(q index.Querier, p ir.Pattern) *SubPattern {
	return &SubPattern{Querier: q, Pattern: p}
}

// NewFunctionSubPattern returns the sub-pattern for the call triples of f.
func NewFunctionSubPattern(f index.Function, p ir.Pattern) *SubPattern {
	return &SubPattern{Querier: f, Pattern: p, Function: f}
}

// IsRemainder reports whether the base store answers this sub-pattern.
func (sp *SubPattern) IsRemainder() bool {
	return sp.Querier == nil
}

// Vars returns the variables of the sub-pattern. The result is cached.
func (sp *SubPattern) Vars() []ir.Variable {
	if sp.vars == nil {
		sp.vars = sp.Pattern.Vars()
		if sp.vars == nil {
			sp.vars = []ir.Variable{}
		}
	}
	return sp.vars
}

// Estimate returns the sub-pattern's estimated result size. The querier (or
// rest for a remainder) is consulted once; later calls return the memoized
// result.
func (sp *SubPattern) Estimate(ctx context.Context, rest SelectivityEstimator) (int64, error) {
	if sp.estimated {
		return sp.estimate, sp.err
	}
	sp.estimated = true
	switch {
	case sp.Querier != nil:
		sp.estimate, sp.err = sp.Querier.Estimate(sp.Pattern)
	case rest != nil:
		sp.estimate, sp.err = rest.EstimateSelectivity(ctx, sp.Pattern)
	default:
		sp.estimate = math.MaxInt64
	}
	return sp.estimate, sp.err
}

func (sp *SubPattern) kind() string {
	switch {
	case sp.Function != nil:
		return "function " + string(sp.Function.URI())
	case sp.Querier != nil:
		return "index"
	default:
		return "store"
	}
}

// Plan is an ordered list of sub-patterns. Evaluating them left to right,
// each fed the bindings of the previous one, answers the original pattern.
type Plan struct {
	SubPatterns []*SubPattern
}

// Pattern returns the plan's triples in evaluation order.
func (p Plan) Pattern() ir.Pattern {
	var out ir.Pattern
	for _, sp := range p.SubPatterns {
		out = append(out, sp.Pattern...)
	}
	return out
}

// String renders one sub-pattern per block, tagged by who answers it.
func (p Plan) String() string {
	var sb strings.Builder
	for i, sp := range p.SubPatterns {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString("[" + sp.kind() + "]")
		for _, t := range sp.Pattern {
			sb.WriteString("\n  " + t.String() + " .")
		}
	}
	return sb.String()
}

// IndexTransformation partitions a pattern between the registered index
// queriers and the base store, then orders the pieces by estimated size.
type IndexTransformation struct {
	// Entries are consulted in registration order; the first querier to
	// claim a triple owns it.
	Entries []index.Entry

	// Rest estimates remainder sub-patterns.
	Rest SelectivityEstimator

	// Function, when set, is an index-backed property function call solved
	// together with the pattern.
	Function *SubPattern

	Logger *slog.Logger
}

// Reorder builds the plan for p:
//  1. each querier examines the unclaimed triples; claimed triples form
//     its sub-pattern
//  2. unclaimed triples form one remainder sub-pattern
//  3. every sub-pattern is split into variable-connected components
//  4. the property function call, if any, joins the set
//  5. with more than one sub-pattern, the plan starts at the smallest
//     estimate and then takes every sub-pattern sharing a variable with
//     the one just placed, until none remain
//
// An Examine or Estimate failure aborts the transformation.
func (it *IndexTransformation) Reorder(ctx context.Context, p ir.Pattern) (Plan, error) {
	working := p.Clone()
	var subs []*SubPattern

	for _, e := range it.Entries {
		if e.Querier == nil || len(working) == 0 {
			continue
		}
		claimed, err := e.Querier.Examine(working)
		if err != nil {
			return Plan{}, errors.Wrapf(err, "examine pattern with index %q", indexName(e))
		}
		claimed = intersect(claimed, working)
		if len(claimed) == 0 {
			continue
		}
		working = working.Without(claimed)
		subs = append(subs, NewSubPattern(e.Querier, claimed))
	}
	if len(working) > 0 {
		subs = append(subs, NewSubPattern(nil, working))
	}

	var split []*SubPattern
	for _, sp := range subs {
		split = append(split, splitBySubgraph(sp)...)
	}
	if it.Function != nil {
		split = append(split, it.Function)
	}

	if len(split) > 1 {
		var err error
		split, err = it.order(ctx, split)
		if err != nil {
			return Plan{}, err
		}
	}

	plan := Plan{SubPatterns: split}
	logger(it.Logger).Debug("index transformation", "subpatterns", len(split))
	return plan, nil
}

func (it *IndexTransformation) order(ctx context.Context, subs []*SubPattern) ([]*SubPattern, error) {
	remaining := append([]*SubPattern(nil), subs...)
	out := make([]*SubPattern, 0, len(subs))

	for len(remaining) > 0 {
		best, bestEstimate := -1, int64(math.MaxInt64)
		for i, sp := range remaining {
			n, err := sp.Estimate(ctx, it.Rest)
			if err != nil {
				return nil, errors.Wrap(err, "estimate sub-pattern")
			}
			if best < 0 || n < bestEstimate {
				best, bestEstimate = i, n
			}
		}
		picked := remaining[best]
		remaining = append(remaining[:best], remaining[best+1:]...)
		out = append(out, picked)

		var rest []*SubPattern
		for _, sp := range remaining {
			if ir.SharesVar(sp.Vars(), picked.Vars()) {
				out = append(out, sp)
			} else {
				rest = append(rest, sp)
			}
		}
		remaining = rest
	}
	return out, nil
}

// splitBySubgraph breaks sp into components whose triples are connected
// through shared variables. Triples without variables become singletons,
// except that a sub-pattern with a single variable component is returned
// unchanged.
func splitBySubgraph(sp *SubPattern) []*SubPattern {
	var partitions [][]ir.Variable
	for _, t := range sp.Pattern {
		partitions = addToPartitions(partitions, t.Vars())
	}
	if len(partitions) == 1 {
		return []*SubPattern{sp}
	}

	var out []*SubPattern
	for _, part := range partitions {
		var linked ir.Pattern
		for _, t := range sp.Pattern {
			if ir.SharesVar(t.Vars(), part) {
				linked = append(linked, t)
			}
		}
		out = append(out, &SubPattern{Querier: sp.Querier, Pattern: linked, Function: sp.Function})
	}
	for _, t := range sp.Pattern {
		if len(t.Vars()) == 0 {
			out = append(out, &SubPattern{Querier: sp.Querier, Pattern: ir.Pattern{t}, Function: sp.Function})
		}
	}
	return out
}

// addToPartitions merges vars into the partition set, fusing every
// partition vars touches.
func addToPartitions(partitions [][]ir.Variable, vars []ir.Variable) [][]ir.Variable {
	if len(vars) == 0 {
		return partitions
	}
	merged := append([]ir.Variable(nil), vars...)
	var out [][]ir.Variable
	for _, part := range partitions {
		if ir.SharesVar(part, vars) {
			merged = appendNew(part, merged)
			continue
		}
		out = append(out, part)
	}
	return append(out, merged)
}

func intersect(claimed, working ir.Pattern) ir.Pattern {
	var out ir.Pattern
	avail := working.Clone()
	for _, t := range claimed {
		for i, w := range avail {
			if w == t {
				out = append(out, t)
				avail = append(avail[:i], avail[i+1:]...)
				break
			}
		}
	}
	return out
}

func indexName(e index.Entry) string {
	if e.Index == nil {
		return "<querier>"
	}
	return e.Index.Name()
}
