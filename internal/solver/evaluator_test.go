package solver

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
	"github.com/raytheonbbn/parliament-sub002/internal/store"
)

func openStore(t *testing.T, triples ...ir.Triple) *store.Store {
	t.Helper()
	st, err := store.Open(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })
	for _, tr := range triples {
		_, err := st.AddStatement(context.Background(), tr, false)
		require.NoError(t, err)
	}
	return st
}

func reify(name, subj, pred, obj ir.Term) []ir.Triple {
	return []ir.Triple{
		ir.NewTriple(name, ir.RDFType, ir.RDFStatement),
		ir.NewTriple(name, ir.RDFSubject, subj),
		ir.NewTriple(name, ir.RDFPredicate, pred),
		ir.NewTriple(name, ir.RDFObject, obj),
	}
}

func TestStoreEvaluator_Joins(t *testing.T) {
	st := openStore(t,
		ir.NewTriple(alice, knowsPred, bob),
		ir.NewTriple(bob, knowsPred, carol),
		ir.NewTriple(carol, agePred, ir.IntLiteral(30)),
	)
	sv := &Solver{Graph: graph, Counts: st, Evaluator: &StoreEvaluator{Store: st}, Options: DefaultOptions()}
	p := ir.Pattern{
		ir.NewTriple(s, knowsPred, o),
		ir.NewTriple(o, agePred, age),
	}

	got := run(t, sv.Solve(context.Background(), p, cursor.Single(ir.EmptyBinding())))

	require.Len(t, got, 1)
	assert.Equal(t, []string{bob.String()}, values(got, s))
	assert.Equal(t, []string{ir.IntLiteral(30).String()}, values(got, age))
}

func TestStoreEvaluator_ReordersPerBinding(t *testing.T) {
	st := openStore(t,
		ir.NewTriple(alice, knowsPred, bob),
		ir.NewTriple(bob, knowsPred, carol),
		ir.NewTriple(carol, knowsPred, dave),
		ir.NewTriple(bob, agePred, ir.IntLiteral(18)),
	)
	ev := &StoreEvaluator{Store: st}
	p := ir.Pattern{
		ir.NewTriple(s, knowsPred, o),
		ir.NewTriple(o, agePred, age),
	}
	input := cursor.FromSlice([]ir.Binding{
		ir.EmptyBinding().With(s, alice),
		ir.EmptyBinding().With(s, carol),
	})

	got := run(t, ev.Evaluate(context.Background(), p, input))

	require.Len(t, got, 1)
	assert.Equal(t, []string{alice.String()}, values(got, s))
	assert.Equal(t, []string{bob.String()}, values(got, o))
}

func TestStoreEvaluator_RepeatedVariable(t *testing.T) {
	st := openStore(t,
		ir.NewTriple(alice, knowsPred, alice),
		ir.NewTriple(alice, knowsPred, bob),
	)
	ev := &StoreEvaluator{Store: st}

	got := run(t, ev.Evaluate(context.Background(), ir.Pattern{ir.NewTriple(s, knowsPred, s)}, cursor.Single(ir.EmptyBinding())))

	assert.Equal(t, []string{alice.String()}, values(got, s))
}

func TestStoreEvaluator_Reification(t *testing.T) {
	stmt := exURI("stmt1")
	partial := exURI("stmt2")
	triples := reify(stmt, alice, knowsPred, bob)
	triples = append(triples, reify(partial, bob, knowsPred, carol)[1:]...)
	triples = append(triples, ir.NewTriple(stmt, exURI("source"), exURI("census")))
	st := openStore(t, triples...)

	name := ir.Variable("st")
	src := ir.Variable("src")
	p := ir.Pattern{
		ir.NewTriple(name, ir.RDFType, ir.RDFStatement),
		ir.NewTriple(name, ir.RDFSubject, s),
		ir.NewTriple(name, ir.RDFPredicate, knowsPred),
		ir.NewTriple(name, ir.RDFObject, o),
		ir.NewTriple(name, exURI("source"), src),
	}
	sv := &Solver{Graph: graph, Counts: st, Evaluator: &StoreEvaluator{Store: st}, Options: DefaultOptions()}

	plan, err := sv.Plan(context.Background(), p)
	require.NoError(t, err)
	assert.Contains(t, plan.Pattern(), ir.NewReifiedTriple(name, s, knowsPred, o))
	assert.Len(t, plan.Pattern(), 2)

	got := run(t, sv.Solve(context.Background(), p, cursor.Single(ir.EmptyBinding())))

	require.Len(t, got, 1)
	assert.Equal(t, []string{stmt.String()}, values(got, name))
	assert.Equal(t, []string{alice.String()}, values(got, s))
	assert.Equal(t, []string{bob.String()}, values(got, o))
	assert.Equal(t, []string{exURI("census").String()}, values(got, src))
}
