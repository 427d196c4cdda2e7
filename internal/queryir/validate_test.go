package queryir

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

func TestValidate_WellFormed(t *testing.T) {
	op := Filter{
		Exprs: []ir.Expr{ir.Compare{Op: ir.OpLT, Left: age, Right: ir.IntLiteral(65)}},
		Sub: Sequence{Ops: []Op{
			bgp(ir.NewTriple(s, hasAge, age)),
			IndexPropFunc{Function: within, Subject: s, Object: ir.IntLiteral(5)},
		}},
	}

	result := Validate(op)

	assert.True(t, result.OK)
	assert.Empty(t, result.Warnings)
}

func TestValidate_Nil(t *testing.T) {
	result := Validate(nil)

	assert.False(t, result.OK)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "nil operation")
}

func TestValidate_FilterProblems(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		want string
	}{
		{
			name: "no expressions",
			op:   Filter{Sub: bgp(ir.NewTriple(s, knows, o))},
			want: "filter without expressions",
		},
		{
			name: "unbound variable",
			op:   Filter{Exprs: []ir.Expr{ir.Bound{Var: "missing"}}, Sub: bgp(ir.NewTriple(s, knows, o))},
			want: "filter variable ?missing is never bound",
		},
		{
			name: "nil sub",
			op:   Filter{Exprs: []ir.Expr{ir.Bound{Var: s}}},
			want: "nil operation",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.op)
			assert.False(t, result.OK)
			assert.Contains(t, result.Warnings, tt.want)
		})
	}
}

func TestValidate_LeftJoinExprScope(t *testing.T) {
	op := LeftJoin{
		Left:  bgp(ir.NewTriple(s, knows, o)),
		Right: bgp(ir.NewTriple(o, hasAge, age)),
		Exprs: []ir.Expr{ir.Compare{Op: ir.OpGT, Left: age, Right: ir.IntLiteral(1)}},
	}

	assert.True(t, Validate(op).OK, "right side variables are in scope")
}

func TestValidate_Leaves(t *testing.T) {
	tests := []struct {
		name string
		op   Op
		want string
	}{
		{"literal predicate", bgp(ir.NewTriple(s, ir.NewPlainLiteral("p"), o)), "literal in predicate position"},
		{"missing slot", bgp(ir.Triple{Subject: s, Object: o}), "missing slot"},
		{"extend variable", Extend{Sub: bgp(), Value: ir.IntLiteral(1)}, "extend without a variable"},
		{"extend value", Extend{Sub: bgp(), Var: s, Value: o}, "must be a constant"},
		{"function uri", PropFunc{Subject: s, Object: o}, "without a URI"},
		{"path expr", Path{Subject: s, Object: o}, "without a path expression"},
		{"empty sequence", Sequence{}, "empty sequence"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(tt.op)
			assert.False(t, result.OK)
			found := false
			for _, w := range result.Warnings {
				found = found || strings.Contains(w, tt.want)
			}
			assert.True(t, found, "warnings %v should mention %q", result.Warnings, tt.want)
		})
	}
}
