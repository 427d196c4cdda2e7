package solver

import (
	"context"
	"log/slog"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
	"github.com/raytheonbbn/parliament-sub002/internal/optimize"
	"github.com/raytheonbbn/parliament-sub002/internal/store"
)

// Store is the part of the base store the evaluator reads.
type Store interface {
	optimize.CountSource
	Find(ctx context.Context, t ir.Triple) (*store.MatchCursor, error)
	FindReifications(ctx context.Context, name, subj, pred, obj ir.Term) ([]store.Reification, error)
}

// StoreEvaluator answers triple patterns from the base store. For each
// input binding it substitutes the bound variables and, when that changed
// the pattern, re-runs the default count ordering on the result before
// chaining one matcher per triple.
type StoreEvaluator struct {
	Store  Store
	Logger *slog.Logger
}

// Evaluate implements TripleEvaluator.
func (e *StoreEvaluator) Evaluate(ctx context.Context, p ir.Pattern, input cursor.Cursor) cursor.Cursor {
	vars := p.Vars()
	counts := &optimize.DefaultCountTransformation{Source: e.Store, Logger: e.Logger}

	return cursor.RepeatApply(ctx, input, func(b ir.Binding) cursor.Cursor {
		order := p
		if boundAny(b, vars) && len(p) > 1 {
			substituted := make(ir.Pattern, len(p))
			for i, t := range p {
				substituted[i] = t.Substitute(b)
			}
			var err error
			if order, err = counts.Reorder(ctx, substituted); err != nil {
				return cursor.Fail(err)
			}
		}

		out := cursor.Single(b)
		for _, t := range order {
			if t.IsReified() {
				out = cursor.RepeatApply(ctx, out, e.reified(ctx, t))
			} else {
				out = cursor.RepeatApply(ctx, out, e.triple(ctx, t))
			}
		}
		return out
	})
}

func boundAny(b ir.Binding, vars []ir.Variable) bool {
	for _, v := range vars {
		if b.Contains(v) {
			return true
		}
	}
	return false
}

// triple matches one ordinary triple pattern.
func (e *StoreEvaluator) triple(ctx context.Context, t ir.Triple) cursor.Stage {
	return func(b ir.Binding) cursor.Cursor {
		st := t.Substitute(b)
		mc, err := e.Store.Find(ctx, st)
		if err != nil {
			return cursor.Fail(err)
		}
		return cursor.FromFunc(func() (ir.Binding, bool, error) {
			for mc.Next() {
				m := mc.Match()
				if nb, ok := bindSlots(b, []ir.Term{st.Subject, st.Predicate, st.Object}, []ir.Term{m.Subject, m.Predicate, m.Object}); ok {
					return nb, true, nil
				}
			}
			return ir.Binding{}, false, mc.Err()
		}, mc.Close)
	}
}

// reified matches a reified triple pattern against complete reifications.
func (e *StoreEvaluator) reified(ctx context.Context, t ir.Triple) cursor.Stage {
	return func(b ir.Binding) cursor.Cursor {
		st := t.Substitute(b)
		rs, err := e.Store.FindReifications(ctx, st.Name, st.Subject, st.Predicate, st.Object)
		if err != nil {
			return cursor.Fail(err)
		}
		var out []ir.Binding
		for _, r := range rs {
			pattern := []ir.Term{st.Name, st.Subject, st.Predicate, st.Object}
			values := []ir.Term{r.Name, r.Subject, r.Predicate, r.Object}
			if nb, ok := bindSlots(b, pattern, values); ok {
				out = append(out, nb)
			}
		}
		return cursor.FromSlice(out)
	}
}

// bindSlots binds the variables of pattern to the matching values. A
// variable repeated across slots must receive the same value each time.
func bindSlots(b ir.Binding, pattern, values []ir.Term) (ir.Binding, bool) {
	for i, term := range pattern {
		v, ok := term.(ir.Variable)
		if !ok {
			continue
		}
		if !b.Compatible(v, values[i]) {
			return b, false
		}
		b = b.With(v, values[i])
	}
	return b, true
}
