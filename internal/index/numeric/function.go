package numeric

import (
	"context"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Function is a property function backed by a numeric index. A triple
// `?s <uri> N` binds ?s to every indexed subject whose value v satisfies
// `v Op N`.
type Function struct {
	Name  ir.URI
	Op    ir.CompareOp
	Index index.RangeIndex
}

func (f *Function) URI() ir.URI { return f.Name }

// Examine claims the triples that call this function.
func (f *Function) Examine(p ir.Pattern) (ir.Pattern, error) {
	var claimed ir.Pattern
	for _, t := range p {
		if index.IsFunctionTriple(f, t) {
			claimed = append(claimed, t)
		}
	}
	return claimed, nil
}

func (f *Function) Estimate(ir.Pattern) (int64, error) {
	return f.Index.Size()
}

func (f *Function) Query(ctx context.Context, p ir.Pattern, input cursor.Cursor) cursor.Cursor {
	out := input
	for _, t := range p {
		if !index.IsFunctionTriple(f, t) {
			continue
		}
		out = cursor.RepeatApply(ctx, out, func(b ir.Binding) cursor.Cursor {
			return f.evalCall(t, b)
		})
	}
	return out
}

func (f *Function) evalCall(t ir.Triple, b ir.Binding) cursor.Cursor {
	arg := b.Resolve(t.Object)
	if _, ok := number(arg); !ok {
		return cursor.Empty()
	}
	check := ir.Compare{Op: f.Op, Left: ir.Variable("value"), Right: arg}
	accept := func(rec index.Record) bool {
		return ir.Satisfied(check, ir.EmptyBinding().With("value", rec.Value))
	}

	subject := b.Resolve(t.Subject)
	if !ir.IsVar(subject) {
		rec, found, err := f.Index.Find(subject)
		if err != nil {
			return cursor.Fail(err)
		}
		if found && accept(rec) {
			return cursor.Single(b)
		}
		return cursor.Empty()
	}

	var lower, upper ir.Term
	switch f.Op {
	case ir.OpLT, ir.OpLE:
		upper = arg
	case ir.OpGT, ir.OpGE:
		lower = arg
	case ir.OpEQ:
		lower, upper = arg, arg
	}
	it, err := f.Index.Range(lower, upper)
	if err != nil {
		return cursor.Fail(err)
	}
	sVar := subject.(ir.Variable)
	return cursor.FromFunc(func() (ir.Binding, bool, error) {
		for it.Next() {
			rec := it.Record()
			if !accept(rec) {
				continue
			}
			if nb, ok := b.Extend(map[ir.Variable]ir.Term{sVar: rec.Key}); ok {
				return nb, true, nil
			}
		}
		return ir.Binding{}, false, it.Err()
	}, it.Close)
}

var _ index.Function = (*Function)(nil)
