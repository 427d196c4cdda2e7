package optimize

import (
	"log/slog"
	"strconv"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
	"github.com/raytheonbbn/parliament-sub002/internal/queryir"
)

// Options switches individual rewrite steps on or off.
type Options struct {
	IndexFunctions    bool `yaml:"index_functions" json:"index_functions"`
	PropertyFunctions bool `yaml:"property_functions" json:"property_functions"`
	FilterConjunction bool `yaml:"filter_conjunction" json:"filter_conjunction"`
	ExpandOneOf       bool `yaml:"expand_one_of" json:"expand_one_of"`
	FilterEquality    bool `yaml:"filter_equality" json:"filter_equality"`
	FilterDisjunction bool `yaml:"filter_disjunction" json:"filter_disjunction"`
	JoinStrategy      bool `yaml:"join_strategy" json:"join_strategy"`
	FilterPlacement   bool `yaml:"filter_placement" json:"filter_placement"`
	PathFlattening    bool `yaml:"path_flattening" json:"path_flattening"`
}

// DefaultOptions enables every step.
func DefaultOptions() Options {
	return Options{
		IndexFunctions:    true,
		PropertyFunctions: true,
		FilterConjunction: true,
		ExpandOneOf:       true,
		FilterEquality:    true,
		FilterDisjunction: true,
		JoinStrategy:      true,
		FilterPlacement:   true,
		PathFlattening:    true,
	}
}

// Pipeline rewrites algebra trees before execution. Steps run in a fixed
// order:
//  1. index property functions move to the end of their BGP
//  2. property function triples become PropFunc operations
//  3. index property functions take their connected triples along
//  4. filter simplification: conjunction, one-of, equality, disjunction
//  5. joins with a linear right side become sequences
//  6. filters move to where their variables are first bound
//  7. property paths become triple patterns
type Pipeline struct {
	Options Options

	// IsFunction reports whether a predicate invokes an index-backed
	// property function.
	IsFunction func(ir.URI) bool

	// HasIndexes gates the index steps.
	HasIndexes bool

	Logger *slog.Logger
}

type step struct {
	name    string
	enabled bool
	apply   func(queryir.Op) queryir.Op
}

// Rewrite returns the optimized form of op. op itself is not modified.
func (p *Pipeline) Rewrite(op queryir.Op) queryir.Op {
	if op == nil {
		return nil
	}
	o := p.Options
	indexSteps := p.HasIndexes && o.IndexFunctions && p.IsFunction != nil
	fresh := freshVars()

	steps := []step{
		{"index-functions", indexSteps, p.functionsLast},
		{"property-functions", o.PropertyFunctions && p.IsFunction != nil, p.expandFunctions},
		{"index-functions", indexSteps, indexFunctions},
		{"filter-conjunction", o.FilterConjunction, filterConjunction},
		{"expand-one-of", o.ExpandOneOf, expandOneOf},
		{"filter-equality", o.FilterEquality, filterEquality},
		{"filter-disjunction", o.FilterDisjunction, filterDisjunction},
		{"join-strategy", o.JoinStrategy, joinStrategy},
		{"filter-placement", o.FilterPlacement, filterPlacement},
		{"path-flattening", o.PathFlattening, func(op queryir.Op) queryir.Op { return flattenPaths(op, fresh) }},
	}

	log := logger(p.Logger)
	for _, s := range steps {
		if !s.enabled {
			continue
		}
		op = s.apply(op)
		log.Debug("optimizer step", "step", s.name)
	}
	return op
}

func freshVars() func() ir.Variable {
	n := 0
	return func() ir.Variable {
		v := ir.Variable("_path" + strconv.Itoa(n))
		n++
		return v
	}
}

func (p *Pipeline) isFunctionTriple(t ir.Triple) bool {
	u, ok := t.Predicate.(ir.URI)
	return ok && !t.IsReified() && p.IsFunction(u)
}

// functionsLast moves function triples behind the other triples of each
// BGP, keeping relative order.
func (p *Pipeline) functionsLast(op queryir.Op) queryir.Op {
	return queryir.Transform(op, func(n queryir.Op) queryir.Op {
		b, ok := n.(queryir.BGP)
		if !ok {
			return n
		}
		var plain, calls ir.Pattern
		for _, t := range b.Pattern {
			if p.isFunctionTriple(t) {
				calls = append(calls, t)
			} else {
				plain = append(plain, t)
			}
		}
		if len(calls) == 0 {
			return n
		}
		return queryir.BGP{Pattern: append(plain, calls...)}
	})
}

// expandFunctions splits each BGP at its function triples. Triples before
// a call feed it; triples after it run in sequence on its output.
func (p *Pipeline) expandFunctions(op queryir.Op) queryir.Op {
	return queryir.Transform(op, func(n queryir.Op) queryir.Op {
		b, ok := n.(queryir.BGP)
		if !ok {
			return n
		}
		var cur queryir.Op
		var pending ir.Pattern
		found := false
		for _, t := range b.Pattern {
			if !p.isFunctionTriple(t) {
				pending = append(pending, t)
				continue
			}
			found = true
			cur = queryir.PropFunc{
				Function: t.Predicate.(ir.URI),
				Subject:  t.Subject,
				Object:   t.Object,
				Sub:      chain(cur, pending),
			}
			pending = nil
		}
		if !found {
			return n
		}
		return chain(cur, pending)
	})
}

func chain(cur queryir.Op, pending ir.Pattern) queryir.Op {
	switch {
	case len(pending) == 0:
		return cur
	case cur == nil:
		return queryir.BGP{Pattern: pending}
	default:
		return queryir.Sequence{Ops: []queryir.Op{cur, queryir.BGP{Pattern: pending}}}
	}
}

// indexFunctions turns property function calls over a BGP into index
// function calls carrying the triples connected to the call.
func indexFunctions(op queryir.Op) queryir.Op {
	return queryir.Transform(op, func(n queryir.Op) queryir.Op {
		pf, ok := n.(queryir.PropFunc)
		if !ok {
			return n
		}
		out := queryir.IndexPropFunc{Function: pf.Function, Subject: pf.Subject, Object: pf.Object, Sub: pf.Sub}
		b, ok := pf.Sub.(queryir.BGP)
		if !ok {
			return out
		}
		linked, rest := connected(pf.Triple().Vars(), b.Pattern)
		out.Pattern = linked
		out.Sub = nil
		if len(rest) > 0 {
			out.Sub = queryir.BGP{Pattern: rest}
		}
		return out
	})
}

// connected splits p into the triples transitively sharing a variable with
// vars and the rest, keeping order.
func connected(vars []ir.Variable, p ir.Pattern) (linked, rest ir.Pattern) {
	reach := append([]ir.Variable(nil), vars...)
	in := make([]bool, len(p))
	for changed := true; changed; {
		changed = false
		for i, t := range p {
			if !in[i] && ir.SharesVar(t.Vars(), reach) {
				in[i] = true
				reach = appendNew(reach, t.Vars())
				changed = true
			}
		}
	}
	for i, t := range p {
		if in[i] {
			linked = append(linked, t)
		} else {
			rest = append(rest, t)
		}
	}
	return linked, rest
}

// filterConjunction flattens && into separate filter expressions and merges
// directly nested filters.
func filterConjunction(op queryir.Op) queryir.Op {
	return queryir.Transform(op, func(n queryir.Op) queryir.Op {
		f, ok := n.(queryir.Filter)
		if !ok {
			return n
		}
		exprs := flattenAnd(f.Exprs)
		if inner, ok := f.Sub.(queryir.Filter); ok {
			return queryir.Filter{Exprs: append(append([]ir.Expr(nil), inner.Exprs...), exprs...), Sub: inner.Sub}
		}
		return queryir.Filter{Exprs: exprs, Sub: f.Sub}
	})
}

func flattenAnd(exprs []ir.Expr) []ir.Expr {
	var out []ir.Expr
	for _, e := range exprs {
		if a, ok := e.(ir.And); ok {
			out = append(out, flattenAnd(a.Exprs)...)
			continue
		}
		out = append(out, e)
	}
	return out
}

// expandOneOf rewrites IN as a disjunction of equalities and NOT IN as a
// list of inequalities.
func expandOneOf(op queryir.Op) queryir.Op {
	return queryir.Transform(op, func(n queryir.Op) queryir.Op {
		f, ok := n.(queryir.Filter)
		if !ok {
			return n
		}
		var exprs []ir.Expr
		for _, e := range f.Exprs {
			in, ok := e.(ir.OneOf)
			if !ok {
				exprs = append(exprs, e)
				continue
			}
			if in.Negated {
				for _, v := range in.Values {
					exprs = append(exprs, ir.Compare{Op: ir.OpNE, Left: in.Var, Right: v})
				}
				continue
			}
			or := ir.Or{}
			for _, v := range in.Values {
				or.Exprs = append(or.Exprs, ir.Compare{Op: ir.OpEQ, Left: in.Var, Right: v})
			}
			exprs = append(exprs, or)
		}
		return queryir.Filter{Exprs: exprs, Sub: f.Sub}
	})
}

// uriEquality matches ?v = <uri> in either operand order. Literals are
// excluded because their equality is by value, not by term.
func uriEquality(e ir.Expr) (ir.Variable, ir.URI, bool) {
	c, ok := e.(ir.Compare)
	if !ok || c.Op != ir.OpEQ {
		return "", "", false
	}
	v, constant, _, ok := c.VarConstant()
	if !ok {
		return "", "", false
	}
	u, ok := constant.(ir.URI)
	return v, u, ok
}

func substituteBGP(b queryir.BGP, v ir.Variable, value ir.Term) queryir.BGP {
	binding := ir.EmptyBinding().With(v, value)
	out := make(ir.Pattern, len(b.Pattern))
	for i, t := range b.Pattern {
		out[i] = t.Substitute(binding)
	}
	return queryir.BGP{Pattern: out}
}

func wrapFilter(exprs []ir.Expr, sub queryir.Op) queryir.Op {
	if len(exprs) == 0 {
		return sub
	}
	return queryir.Filter{Exprs: exprs, Sub: sub}
}

// filterEquality substitutes ?v = <uri> into the BGP below the filter and
// binds ?v with an Extend.
func filterEquality(op queryir.Op) queryir.Op {
	return queryir.Transform(op, func(n queryir.Op) queryir.Op {
		f, ok := n.(queryir.Filter)
		if !ok {
			return n
		}
		b, ok := f.Sub.(queryir.BGP)
		if !ok {
			return n
		}
		for i, e := range f.Exprs {
			v, u, ok := uriEquality(e)
			if !ok || !containsVar(b.Pattern.Vars(), v) {
				continue
			}
			rest := append(append([]ir.Expr(nil), f.Exprs[:i]...), f.Exprs[i+1:]...)
			return wrapFilter(rest, queryir.Extend{Sub: substituteBGP(b, v, u), Var: v, Value: u})
		}
		return n
	})
}

// filterDisjunction turns ?v = <a> || ?v = <b> || ... over a BGP into a
// union of substituted branches. Every disjunct must test the same
// variable against a distinct URI so the branches are disjoint.
func filterDisjunction(op queryir.Op) queryir.Op {
	return queryir.Transform(op, func(n queryir.Op) queryir.Op {
		f, ok := n.(queryir.Filter)
		if !ok {
			return n
		}
		b, ok := f.Sub.(queryir.BGP)
		if !ok {
			return n
		}
		for i, e := range f.Exprs {
			or, ok := e.(ir.Or)
			if !ok {
				continue
			}
			v, values, ok := disjointEqualities(or)
			if !ok || !containsVar(b.Pattern.Vars(), v) {
				continue
			}
			var union queryir.Op
			for _, u := range values {
				branch := queryir.Extend{Sub: substituteBGP(b, v, u), Var: v, Value: u}
				if union == nil {
					union = branch
				} else {
					union = queryir.Union{Left: union, Right: branch}
				}
			}
			rest := append(append([]ir.Expr(nil), f.Exprs[:i]...), f.Exprs[i+1:]...)
			return wrapFilter(rest, union)
		}
		return n
	})
}

func disjointEqualities(or ir.Or) (ir.Variable, []ir.URI, bool) {
	if len(or.Exprs) < 2 {
		return "", nil, false
	}
	var v ir.Variable
	var values []ir.URI
	seen := make(map[ir.URI]bool)
	for i, d := range or.Exprs {
		dv, u, ok := uriEquality(d)
		if !ok || (i > 0 && dv != v) || seen[u] {
			return "", nil, false
		}
		v = dv
		seen[u] = true
		values = append(values, u)
	}
	return v, values, true
}

// joinStrategy replaces joins whose right side can be evaluated with the
// left bindings as input by their substitution forms.
func joinStrategy(op queryir.Op) queryir.Op {
	return queryir.Transform(op, func(n queryir.Op) queryir.Op {
		switch o := n.(type) {
		case queryir.Join:
			if !linear(o.Right) {
				return n
			}
			return queryir.Sequence{Ops: append(seqOps(o.Left), seqOps(o.Right)...)}
		case queryir.LeftJoin:
			if !linear(o.Right) {
				return n
			}
			return queryir.Conditional{Left: o.Left, Right: o.Right, Exprs: o.Exprs}
		}
		return n
	})
}

func seqOps(op queryir.Op) []queryir.Op {
	if s, ok := op.(queryir.Sequence); ok {
		return append([]queryir.Op(nil), s.Ops...)
	}
	return []queryir.Op{op}
}

// linear reports whether op gives the same answer when evaluated once per
// input binding as when evaluated alone and joined.
func linear(op queryir.Op) bool {
	switch o := op.(type) {
	case queryir.BGP, queryir.Path:
		return true
	case queryir.Extend:
		return linear(o.Sub)
	case queryir.PropFunc:
		return o.Sub == nil || linear(o.Sub)
	case queryir.IndexPropFunc:
		return o.Sub == nil || linear(o.Sub)
	case queryir.Sequence:
		for _, c := range o.Ops {
			if !linear(c) {
				return false
			}
		}
		return true
	case queryir.Filter:
		fixed := fixedVars(o.Sub)
		for _, e := range o.Exprs {
			if !ir.CoveredBy(e, fixed) {
				return false
			}
		}
		return linear(o.Sub)
	default:
		return false
	}
}

// fixedVars returns the variables op binds on every solution.
func fixedVars(op queryir.Op) []ir.Variable {
	switch o := op.(type) {
	case queryir.BGP:
		return o.Pattern.Vars()
	case queryir.Path:
		return queryir.Vars(o)
	case queryir.Filter:
		return fixedVars(o.Sub)
	case queryir.Extend:
		return appendNew(fixedVars(o.Sub), []ir.Variable{o.Var})
	case queryir.PropFunc:
		return appendNew(fixedVars(o.Sub), o.Triple().Vars())
	case queryir.IndexPropFunc:
		return appendNew(appendNew(fixedVars(o.Sub), o.Pattern.Vars()), o.Triple().Vars())
	case queryir.Join:
		return appendNew(fixedVars(o.Left), fixedVars(o.Right))
	case queryir.Sequence:
		var out []ir.Variable
		for _, c := range o.Ops {
			out = appendNew(out, fixedVars(c))
		}
		return out
	case queryir.LeftJoin:
		return fixedVars(o.Left)
	case queryir.Conditional:
		return fixedVars(o.Left)
	case queryir.Union:
		left, right := fixedVars(o.Left), fixedVars(o.Right)
		var out []ir.Variable
		for _, v := range left {
			if containsVar(right, v) {
				out = append(out, v)
			}
		}
		return out
	default:
		return nil
	}
}

// filterPlacement pushes every filter down to the earliest point where all
// of its variables are bound.
func filterPlacement(op queryir.Op) queryir.Op {
	return queryir.Transform(op, func(n queryir.Op) queryir.Op {
		f, ok := n.(queryir.Filter)
		if !ok {
			return n
		}
		return place(f.Exprs, f.Sub, nil)
	})
}

// place positions exprs over op given the variables bound by op's input.
func place(exprs []ir.Expr, op queryir.Op, bound []ir.Variable) queryir.Op {
	if len(exprs) == 0 {
		return op
	}
	switch o := op.(type) {
	case queryir.BGP:
		return placeBGP(exprs, o, bound)
	case queryir.Sequence:
		return placeSequence(exprs, o, bound)
	case queryir.Conditional:
		push, keep := partition(exprs, appendNew(append([]ir.Variable(nil), bound...), fixedVars(o.Left)))
		o.Left = place(push, o.Left, bound)
		return wrapFilter(keep, o)
	case queryir.LeftJoin:
		push, keep := partition(exprs, appendNew(append([]ir.Variable(nil), bound...), fixedVars(o.Left)))
		o.Left = place(push, o.Left, bound)
		return wrapFilter(keep, o)
	case queryir.Filter:
		return place(append(append([]ir.Expr(nil), o.Exprs...), exprs...), o.Sub, bound)
	default:
		return queryir.Filter{Exprs: exprs, Sub: op}
	}
}

func partition(exprs []ir.Expr, vars []ir.Variable) (covered, rest []ir.Expr) {
	for _, e := range exprs {
		if ir.CoveredBy(e, vars) {
			covered = append(covered, e)
		} else {
			rest = append(rest, e)
		}
	}
	return covered, rest
}

// placeBGP splits the BGP after the first triple that completes an
// expression's variables.
func placeBGP(exprs []ir.Expr, b queryir.BGP, bound []ir.Variable) queryir.Op {
	if len(b.Pattern) <= 1 {
		return queryir.Filter{Exprs: exprs, Sub: b}
	}
	vars := append([]ir.Variable(nil), bound...)
	remaining := exprs
	var ops []queryir.Op
	start := 0
	for i, t := range b.Pattern {
		vars = appendNew(vars, t.Vars())
		var ready []ir.Expr
		ready, remaining = partition(remaining, vars)
		if len(ready) == 0 {
			continue
		}
		ops = append(ops, queryir.Filter{Exprs: ready, Sub: queryir.BGP{Pattern: b.Pattern[start : i+1]}})
		start = i + 1
	}
	if start < len(b.Pattern) {
		ops = append(ops, queryir.BGP{Pattern: b.Pattern[start:]})
	}
	if len(ops) == 1 {
		return wrapFilter(remaining, ops[0])
	}
	return wrapFilter(remaining, queryir.Sequence{Ops: ops})
}

// placeSequence hands each expression to the first element after which its
// variables are bound.
func placeSequence(exprs []ir.Expr, s queryir.Sequence, bound []ir.Variable) queryir.Op {
	var ops []queryir.Op
	vars := append([]ir.Variable(nil), bound...)
	remaining := exprs
	for _, c := range s.Ops {
		before := append([]ir.Variable(nil), vars...)
		vars = appendNew(vars, fixedVars(c))
		var ready []ir.Expr
		ready, remaining = partition(remaining, vars)
		if len(ready) == 0 {
			ops = append(ops, c)
			continue
		}
		ops = append(ops, seqOps(place(ready, c, before))...)
	}
	return wrapFilter(remaining, queryir.Sequence{Ops: ops})
}

// flattenPaths rewrites property paths as triple patterns, introducing a
// fresh variable at each sequence step.
func flattenPaths(op queryir.Op, fresh func() ir.Variable) queryir.Op {
	return queryir.Transform(op, func(n queryir.Op) queryir.Op {
		p, ok := n.(queryir.Path)
		if !ok || p.Path == nil {
			return n
		}
		return queryir.BGP{Pattern: pathTriples(p.Subject, p.Path, p.Object, fresh)}
	})
}

// PathPattern expands a property path into triple patterns, naming each
// intermediate node with fresh.
func PathPattern(p queryir.Path, fresh func() ir.Variable) ir.Pattern {
	return pathTriples(p.Subject, p.Path, p.Object, fresh)
}

func pathTriples(s ir.Term, p queryir.PathExpr, o ir.Term, fresh func() ir.Variable) ir.Pattern {
	switch x := p.(type) {
	case queryir.Link:
		return ir.Pattern{ir.NewTriple(s, x.Predicate, o)}
	case queryir.Inverse:
		return pathTriples(o, x.Path, s, fresh)
	case queryir.Seq:
		mid := fresh()
		return append(pathTriples(s, x.Left, mid, fresh), pathTriples(mid, x.Right, o, fresh)...)
	default:
		return nil
	}
}

func containsVar(vars []ir.Variable, v ir.Variable) bool {
	for _, x := range vars {
		if x == v {
			return true
		}
	}
	return false
}
