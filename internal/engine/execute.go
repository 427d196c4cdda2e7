package engine

import (
	"context"
	"strconv"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
	"github.com/raytheonbbn/parliament-sub002/internal/optimize"
	"github.com/raytheonbbn/parliament-sub002/internal/queryir"
)

// Execute evaluates op for every binding of input. op is run as given;
// call Optimize first for the rewritten form. The returned cursor stops
// with an interruption once ctx is done.
func (e *Engine) Execute(ctx context.Context, op queryir.Op, input cursor.Cursor) cursor.Cursor {
	x := &executor{engine: e, ctx: ctx}
	return cursor.Guard(ctx, x.eval(op, input))
}

// executor carries the state of one evaluation.
type executor struct {
	engine *Engine
	ctx    context.Context
	paths  int
}

func (x *executor) eval(op queryir.Op, input cursor.Cursor) cursor.Cursor {
	switch o := op.(type) {
	case nil:
		return input

	case queryir.BGP:
		if len(o.Pattern) == 0 {
			return input
		}
		return x.engine.solver.Solve(x.ctx, o.Pattern, input)

	case queryir.Filter:
		if b, ok := o.Sub.(queryir.BGP); ok && len(b.Pattern) > 0 {
			return x.engine.solver.SolveFilters(x.ctx, o.Exprs, b.Pattern, input)
		}
		out := x.eval(o.Sub, input)
		for _, expr := range o.Exprs {
			out = cursor.FilterExpr(out, expr)
		}
		return out

	case queryir.Sequence:
		out := input
		for _, sub := range o.Ops {
			out = x.eval(sub, out)
		}
		return out

	case queryir.Join:
		right, err := x.independent(o.Right)
		if err != nil {
			input.Close()
			return cursor.Fail(err)
		}
		return cursor.RepeatApply(x.ctx, x.eval(o.Left, input), func(b ir.Binding) cursor.Cursor {
			return cursor.FromSlice(joinAll(b, right, nil))
		})

	case queryir.LeftJoin:
		right, err := x.independent(o.Right)
		if err != nil {
			input.Close()
			return cursor.Fail(err)
		}
		return cursor.RepeatApply(x.ctx, x.eval(o.Left, input), func(b ir.Binding) cursor.Cursor {
			if joined := joinAll(b, right, o.Exprs); len(joined) > 0 {
				return cursor.FromSlice(joined)
			}
			return cursor.Single(b)
		})

	case queryir.Conditional:
		return cursor.RepeatApply(x.ctx, x.eval(o.Left, input), func(b ir.Binding) cursor.Cursor {
			out := x.eval(o.Right, cursor.Single(b))
			for _, expr := range o.Exprs {
				out = cursor.FilterExpr(out, expr)
			}
			return orElse(out, b)
		})

	case queryir.Union:
		in, err := cursor.Collect(input)
		if err != nil {
			return cursor.Fail(err)
		}
		return cursor.Concat(x.eval(o.Left, cursor.FromSlice(in)), x.eval(o.Right, cursor.FromSlice(in)))

	case queryir.Extend:
		return cursor.RepeatApply(x.ctx, x.eval(o.Sub, input), func(b ir.Binding) cursor.Cursor {
			if nb, ok := b.Extend(map[ir.Variable]ir.Term{o.Var: o.Value}); ok {
				return cursor.Single(nb)
			}
			return cursor.Empty()
		})

	case queryir.PropFunc:
		fn, ok := x.engine.registry.Function(x.engine.graph, o.Function)
		if !ok {
			input.Close()
			return cursor.Fail(errors.Wrapf(ErrUnsupportedOp, "no property function %s", o.Function))
		}
		return fn.Query(x.ctx, ir.Pattern{o.Triple()}, x.eval(o.Sub, input))

	case queryir.IndexPropFunc:
		fn, ok := x.engine.registry.Function(x.engine.graph, o.Function)
		if !ok {
			input.Close()
			return cursor.Fail(errors.Wrapf(ErrUnsupportedOp, "no property function %s", o.Function))
		}
		call := optimize.NewFunctionSubPattern(fn, ir.Pattern{o.Triple()})
		return x.engine.solver.SolveFunction(x.ctx, call, o.Pattern, x.eval(o.Sub, input))

	case queryir.Path:
		return x.path(o, input)

	default:
		input.Close()
		return cursor.Fail(errors.Wrapf(ErrUnsupportedOp, "%T", op))
	}
}

// independent evaluates op once from the empty binding and collects it.
func (x *executor) independent(op queryir.Op) ([]ir.Binding, error) {
	return cursor.Collect(x.eval(op, cursor.Single(ir.EmptyBinding())))
}

// path evaluates an unflattened property path as a pattern whose
// intermediate variables are dropped from the results.
func (x *executor) path(p queryir.Path, input cursor.Cursor) cursor.Cursor {
	var hidden []ir.Variable
	pattern := optimize.PathPattern(p, func() ir.Variable {
		v := ir.Variable("_xpath" + strconv.Itoa(x.paths))
		x.paths++
		hidden = append(hidden, v)
		return v
	})
	if len(pattern) == 0 {
		input.Close()
		return cursor.Fail(errors.Wrap(ErrUnsupportedOp, "empty property path"))
	}
	out := x.engine.solver.Solve(x.ctx, pattern, input)
	return cursor.RepeatApply(x.ctx, out, func(b ir.Binding) cursor.Cursor {
		return cursor.Single(without(b, hidden))
	})
}

// joinAll merges b with every compatible right binding that satisfies
// exprs.
func joinAll(b ir.Binding, right []ir.Binding, exprs []ir.Expr) []ir.Binding {
	var out []ir.Binding
	for _, r := range right {
		merged, ok := b.Extend(r.Map())
		if !ok || !satisfiesAll(merged, exprs) {
			continue
		}
		out = append(out, merged)
	}
	return out
}

func satisfiesAll(b ir.Binding, exprs []ir.Expr) bool {
	for _, e := range exprs {
		if !ir.Satisfied(e, b) {
			return false
		}
	}
	return true
}

// orElse yields c, or b alone if c is empty.
func orElse(c cursor.Cursor, b ir.Binding) cursor.Cursor {
	produced, fellBack := false, false
	return cursor.FromFunc(func() (ir.Binding, bool, error) {
		if fellBack {
			return ir.Binding{}, false, nil
		}
		if c.Next() {
			produced = true
			return c.Binding(), true, nil
		}
		if err := c.Err(); err != nil {
			return ir.Binding{}, false, err
		}
		if produced {
			return ir.Binding{}, false, nil
		}
		fellBack = true
		return b, true, nil
	}, c.Close)
}

func without(b ir.Binding, hidden []ir.Variable) ir.Binding {
	keep := make([]ir.Variable, 0, b.Len())
	for _, v := range b.Vars() {
		drop := false
		for _, h := range hidden {
			if v == h {
				drop = true
				break
			}
		}
		if !drop {
			keep = append(keep, v)
		}
	}
	return b.Project(keep)
}
