package queryir

import (
	"fmt"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// ValidationResult contains the structural analysis of an algebra tree.
type ValidationResult struct {
	// OK is true when the tree has no structural problems.
	OK bool

	// Warnings lists the problems found, in traversal order.
	Warnings []string
}

// Validate checks an algebra tree for structural problems the executor
// would otherwise hit at run time:
//  1. nil operations where an operand is required
//  2. filters without expressions
//  3. filter variables that nothing below the filter can bind
//  4. property functions and paths missing their function or path
//
// Validate is a pure function with no side effects.
func Validate(op Op) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validateOp(op)

	return ValidationResult{
		OK:       len(v.warnings) == 0,
		Warnings: v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

// validateOp recursively validates an operation node.
func (v *validator) validateOp(op Op) {
	if op == nil {
		v.addWarning("nil operation")
		return
	}

	switch o := op.(type) {
	case BGP:
		v.validateTriples(o.Pattern)
	case Filter:
		if len(o.Exprs) == 0 {
			v.addWarning("filter without expressions")
		}
		v.validateExprVars("filter", o.Exprs, o.Sub)
		v.validateOp(o.Sub)
	case Join:
		v.validateOp(o.Left)
		v.validateOp(o.Right)
	case LeftJoin:
		v.validateOp(o.Left)
		v.validateOp(o.Right)
		v.validateExprVars("leftjoin", o.Exprs, Sequence{Ops: []Op{o.Left, o.Right}})
	case Conditional:
		v.validateOp(o.Left)
		v.validateOp(o.Right)
		v.validateExprVars("conditional", o.Exprs, Sequence{Ops: []Op{o.Left, o.Right}})
	case Sequence:
		if len(o.Ops) == 0 {
			v.addWarning("empty sequence")
		}
		for _, c := range o.Ops {
			v.validateOp(c)
		}
	case Union:
		v.validateOp(o.Left)
		v.validateOp(o.Right)
	case Extend:
		if o.Var == "" {
			v.addWarning("extend without a variable")
		}
		if !ir.IsConcrete(o.Value) {
			v.addWarning("extend %s: value must be a constant", o.Var)
		}
		v.validateOp(o.Sub)
	case PropFunc:
		v.validateFunction(o.Function, o.Subject, o.Object)
		if o.Sub != nil {
			v.validateOp(o.Sub)
		}
	case IndexPropFunc:
		v.validateFunction(o.Function, o.Subject, o.Object)
		v.validateTriples(o.Pattern)
		if o.Sub != nil {
			v.validateOp(o.Sub)
		}
	case Path:
		if o.Path == nil {
			v.addWarning("path %s ... %s without a path expression", o.Subject, o.Object)
		}
		if o.Subject == nil || o.Object == nil {
			v.addWarning("path with a missing endpoint")
		}
	default:
		v.addWarning("unknown operation type: %T", op)
	}
}

func (v *validator) validateTriples(p ir.Pattern) {
	for _, t := range p {
		if t.Subject == nil || t.Predicate == nil || t.Object == nil {
			v.addWarning("triple pattern with a missing slot")
			continue
		}
		if _, isLit := t.Predicate.(ir.Literal); isLit {
			v.addWarning("literal in predicate position: %s", t)
		}
	}
}

func (v *validator) validateFunction(fn ir.URI, subj, obj ir.Term) {
	if fn == "" {
		v.addWarning("property function without a URI")
	}
	if subj == nil || obj == nil {
		v.addWarning("property function %s with a missing argument", fn)
	}
}

func (v *validator) validateExprVars(kind string, exprs []ir.Expr, scope Op) {
	if scope == nil {
		return
	}
	bound := Vars(scope)
	for _, e := range exprs {
		for _, x := range e.Vars() {
			if !containsVar(bound, x) {
				v.addWarning("%s variable %s is never bound", kind, x)
			}
		}
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
