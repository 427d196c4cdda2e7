package optimize

import (
	"testing"

	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
	"github.com/raytheonbbn/parliament-sub002/internal/queryir"
)

var (
	within = exURI("within")
	bob    = exURI("bob")
	carol  = exURI("carol")
)

func bgp(triples ...ir.Triple) queryir.BGP {
	return queryir.BGP{Pattern: ir.Pattern(triples)}
}

func gt(v ir.Variable, n int64) ir.Expr {
	return ir.Compare{Op: ir.OpGT, Left: v, Right: ir.IntLiteral(n)}
}

func eq(v ir.Variable, t ir.Term) ir.Expr {
	return ir.Compare{Op: ir.OpEQ, Left: v, Right: t}
}

func isWithin(u ir.URI) bool { return u == within }

func assertGolden(t *testing.T, name string, op queryir.Op) {
	t.Helper()
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, []byte(queryir.Format(op)))
}

func TestPipeline_FiltersJoinsPaths(t *testing.T) {
	op := queryir.Filter{
		Exprs: []ir.Expr{ir.And{Exprs: []ir.Expr{gt(age, 18), eq(o, bob)}}},
		Sub: queryir.Join{
			Left: bgp(ir.NewTriple(s, exURI("age"), age), ir.NewTriple(s, exURI("knows"), o)),
			Right: queryir.Path{
				Subject: o,
				Path: queryir.Seq{
					Left:  queryir.Link{Predicate: exURI("knows")},
					Right: queryir.Inverse{Path: queryir.Link{Predicate: exURI("knows")}},
				},
				Object: ir.Variable("f"),
			},
		},
	}

	p := &Pipeline{Options: DefaultOptions()}
	assertGolden(t, "filters_joins_paths", p.Rewrite(op))
}

func TestPipeline_IndexFunction(t *testing.T) {
	op := bgp(
		ir.NewTriple(s, within, ir.IntLiteral(5)),
		ir.NewTriple(s, exURI("age"), age),
		ir.NewTriple(x, exURI("label"), l),
	)

	p := &Pipeline{Options: DefaultOptions(), IsFunction: isWithin, HasIndexes: true}
	assertGolden(t, "index_function", p.Rewrite(op))
}

func TestPipeline_SingleFunctionTriple(t *testing.T) {
	call := ir.NewTriple(s, within, ir.IntLiteral(5))
	p := &Pipeline{Options: DefaultOptions(), IsFunction: isWithin, HasIndexes: true}

	got := p.Rewrite(bgp(call))

	assert.Equal(t, queryir.IndexPropFunc{Function: within, Subject: s, Object: ir.IntLiteral(5)}, got)
}

func TestPipeline_FunctionWithoutIndexes(t *testing.T) {
	call := ir.NewTriple(s, within, ir.IntLiteral(5))
	ages := ir.NewTriple(s, exURI("age"), age)
	p := &Pipeline{Options: DefaultOptions(), IsFunction: isWithin}

	got := p.Rewrite(bgp(call, ages))

	want := queryir.Sequence{Ops: []queryir.Op{
		queryir.PropFunc{Function: within, Subject: s, Object: ir.IntLiteral(5)},
		bgp(ages),
	}}
	assert.Equal(t, want, got, "without indexes calls keep their position")
}

func TestPipeline_AllStepsOff(t *testing.T) {
	op := queryir.Filter{
		Exprs: []ir.Expr{ir.And{Exprs: []ir.Expr{gt(age, 18), eq(o, bob)}}},
		Sub:   queryir.Join{Left: bgp(ir.NewTriple(s, exURI("age"), age)), Right: bgp(ir.NewTriple(s, exURI("knows"), o))},
	}
	p := &Pipeline{IsFunction: isWithin, HasIndexes: true}

	assert.Equal(t, op, p.Rewrite(op))
	assert.Nil(t, p.Rewrite(nil))
}

func TestExpandOneOf(t *testing.T) {
	sub := bgp(ir.NewTriple(s, exURI("knows"), o))
	op := queryir.Filter{
		Exprs: []ir.Expr{
			ir.OneOf{Var: o, Values: []ir.Term{bob, carol}},
			ir.OneOf{Var: s, Values: []ir.Term{bob, carol}, Negated: true},
		},
		Sub: sub,
	}

	got := expandOneOf(op)

	want := queryir.Filter{
		Exprs: []ir.Expr{
			ir.Or{Exprs: []ir.Expr{eq(o, bob), eq(o, carol)}},
			ir.Compare{Op: ir.OpNE, Left: s, Right: bob},
			ir.Compare{Op: ir.OpNE, Left: s, Right: carol},
		},
		Sub: sub,
	}
	assert.Equal(t, want, got)
}

func TestFilterConjunction_MergesNestedFilters(t *testing.T) {
	sub := bgp(ir.NewTriple(s, exURI("age"), age))
	op := queryir.Filter{
		Exprs: []ir.Expr{gt(age, 1)},
		Sub:   queryir.Filter{Exprs: []ir.Expr{ir.And{Exprs: []ir.Expr{gt(age, 2), gt(age, 3)}}}, Sub: sub},
	}

	got := filterConjunction(op)

	assert.Equal(t, queryir.Filter{Exprs: []ir.Expr{gt(age, 2), gt(age, 3), gt(age, 1)}, Sub: sub}, got)
}

func TestFilterEquality(t *testing.T) {
	op := queryir.Filter{
		Exprs: []ir.Expr{eq(o, bob), gt(age, 18)},
		Sub:   bgp(ir.NewTriple(s, exURI("knows"), o), ir.NewTriple(s, exURI("age"), age)),
	}

	got := filterEquality(op)

	want := queryir.Filter{
		Exprs: []ir.Expr{gt(age, 18)},
		Sub: queryir.Extend{
			Sub:   bgp(ir.NewTriple(s, exURI("knows"), bob), ir.NewTriple(s, exURI("age"), age)),
			Var:   o,
			Value: bob,
		},
	}
	assert.Equal(t, want, got)
}

func TestFilterEquality_LiteralsUntouched(t *testing.T) {
	op := queryir.Filter{
		Exprs: []ir.Expr{eq(age, ir.IntLiteral(30))},
		Sub:   bgp(ir.NewTriple(s, exURI("age"), age)),
	}

	assert.Equal(t, op, filterEquality(op), "1 and 1.0 are equal values but different terms")
}

func TestFilterDisjunction(t *testing.T) {
	knows := ir.NewTriple(s, exURI("knows"), o)
	op := queryir.Filter{
		Exprs: []ir.Expr{ir.Or{Exprs: []ir.Expr{eq(o, bob), eq(o, carol)}}},
		Sub:   bgp(knows),
	}

	got := filterDisjunction(op)

	want := queryir.Union{
		Left:  queryir.Extend{Sub: bgp(ir.NewTriple(s, exURI("knows"), bob)), Var: o, Value: bob},
		Right: queryir.Extend{Sub: bgp(ir.NewTriple(s, exURI("knows"), carol)), Var: o, Value: carol},
	}
	assert.Equal(t, want, got)
}

func TestFilterDisjunction_MixedVariablesUntouched(t *testing.T) {
	op := queryir.Filter{
		Exprs: []ir.Expr{ir.Or{Exprs: []ir.Expr{eq(o, bob), eq(s, carol)}}},
		Sub:   bgp(ir.NewTriple(s, exURI("knows"), o)),
	}

	assert.Equal(t, op, filterDisjunction(op))
}

func TestJoinStrategy(t *testing.T) {
	left := bgp(ir.NewTriple(s, exURI("knows"), o))
	right := bgp(ir.NewTriple(o, exURI("name"), n))

	t.Run("linear right side", func(t *testing.T) {
		got := joinStrategy(queryir.Join{Left: left, Right: right})
		assert.Equal(t, queryir.Sequence{Ops: []queryir.Op{left, right}}, got)
	})

	t.Run("union stays a join", func(t *testing.T) {
		op := queryir.Join{Left: left, Right: queryir.Union{Left: right, Right: right}}
		assert.Equal(t, op, joinStrategy(op))
	})

	t.Run("filter on outer variable stays a join", func(t *testing.T) {
		op := queryir.Join{Left: left, Right: queryir.Filter{Exprs: []ir.Expr{eq(s, bob)}, Sub: right}}
		assert.Equal(t, op, joinStrategy(op))
	})

	t.Run("optional becomes conditional", func(t *testing.T) {
		got := joinStrategy(queryir.LeftJoin{Left: left, Right: right})
		assert.Equal(t, queryir.Conditional{Left: left, Right: right}, got)
	})

	t.Run("nested sequences flatten", func(t *testing.T) {
		third := bgp(ir.NewTriple(n, exURI("label"), l))
		got := joinStrategy(queryir.Join{Left: queryir.Join{Left: left, Right: right}, Right: third})
		assert.Equal(t, queryir.Sequence{Ops: []queryir.Op{left, right, third}}, got)
	})
}

func TestFilterPlacement_Conditional(t *testing.T) {
	left := bgp(ir.NewTriple(s, exURI("age"), age))
	right := bgp(ir.NewTriple(s, exURI("knows"), o))
	op := queryir.Filter{
		Exprs: []ir.Expr{gt(age, 18), ir.Bound{Var: o}},
		Sub:   queryir.Conditional{Left: left, Right: right},
	}

	got := filterPlacement(op)

	want := queryir.Filter{
		Exprs: []ir.Expr{ir.Bound{Var: o}},
		Sub: queryir.Conditional{
			Left:  queryir.Filter{Exprs: []ir.Expr{gt(age, 18)}, Sub: left},
			Right: right,
		},
	}
	assert.Equal(t, want, got)
}

func TestFilterPlacement_SplitsBGP(t *testing.T) {
	ages := ir.NewTriple(s, exURI("age"), age)
	knows := ir.NewTriple(s, exURI("knows"), o)
	name := ir.NewTriple(o, exURI("name"), n)
	op := queryir.Filter{Exprs: []ir.Expr{gt(age, 18)}, Sub: bgp(ages, knows, name)}

	got := filterPlacement(op)

	want := queryir.Sequence{Ops: []queryir.Op{
		queryir.Filter{Exprs: []ir.Expr{gt(age, 18)}, Sub: bgp(ages)},
		bgp(knows, name),
	}}
	assert.Equal(t, want, got)
}

func TestFilterPlacement_UnboundStaysOnTop(t *testing.T) {
	sub := bgp(ir.NewTriple(s, exURI("age"), age), ir.NewTriple(s, exURI("knows"), o))
	op := queryir.Filter{Exprs: []ir.Expr{ir.Bound{Var: "missing"}}, Sub: sub}

	got := filterPlacement(op)

	require.IsType(t, queryir.Filter{}, got)
	assert.Equal(t, sub, got.(queryir.Filter).Sub)
}

func TestFlattenPaths(t *testing.T) {
	op := queryir.Path{
		Subject: s,
		Path: queryir.Inverse{Path: queryir.Seq{
			Left:  queryir.Link{Predicate: exURI("a")},
			Right: queryir.Link{Predicate: exURI("b")},
		}},
		Object: o,
	}

	got := flattenPaths(op, freshVars())

	want := bgp(
		ir.NewTriple(o, exURI("a"), ir.Variable("_path0")),
		ir.NewTriple(ir.Variable("_path0"), exURI("b"), s),
	)
	assert.Equal(t, want, got)
}

func TestConnected(t *testing.T) {
	ages := ir.NewTriple(s, exURI("age"), age)
	knows := ir.NewTriple(o, exURI("knows"), s)
	name := ir.NewTriple(o, exURI("name"), n)
	label := ir.NewTriple(x, exURI("label"), l)

	linked, rest := connected([]ir.Variable{s}, ir.Pattern{label, name, ages, knows})

	assert.Equal(t, ir.Pattern{name, ages, knows}, linked, "reached through ?o transitively")
	assert.Equal(t, ir.Pattern{label}, rest)
}
