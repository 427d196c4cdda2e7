package ir

import (
	"errors"
	"fmt"
	"strings"
)

// ErrUnbound is returned when an expression reads a variable the binding
// does not contain. Filters treat it as false.
var ErrUnbound = errors.New("unbound variable")

// ErrIncomparable is returned when two terms have no defined ordering.
var ErrIncomparable = errors.New("incomparable terms")

// Expr is a sealed interface for filter expressions.
//
// Expr types:
//   - Compare: binary comparison of two terms (<, <=, >, >=, =, !=)
//   - And, Or: n-ary logical connectives
//   - Not: negation
//   - Bound: tests whether a variable is bound
//   - OneOf: IN / NOT IN membership
type Expr interface {
	exprNode() // Marker method - seals interface to this package

	// Eval evaluates the expression against b.
	Eval(b Binding) (bool, error)

	// Vars returns the variables the expression mentions.
	Vars() []Variable

	String() string
}

// CompareOp is a binary comparison operator.
type CompareOp string

const (
	OpLT CompareOp = "<"
	OpLE CompareOp = "<="
	OpGT CompareOp = ">"
	OpGE CompareOp = ">="
	OpEQ CompareOp = "="
	OpNE CompareOp = "!="
)

// IsRange reports whether op is one of the ordering comparisons that a
// range index can answer.
func (op CompareOp) IsRange() bool {
	switch op {
	case OpLT, OpLE, OpGT, OpGE:
		return true
	}
	return false
}

// Compare is a binary comparison. Either side may be a variable or a constant.
type Compare struct {
	Op    CompareOp
	Left  Term
	Right Term
}

func (Compare) exprNode() {}

// Eval implements Expr.
func (c Compare) Eval(b Binding) (bool, error) {
	l, err := resolveOperand(b, c.Left)
	if err != nil {
		return false, err
	}
	r, err := resolveOperand(b, c.Right)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case OpEQ:
		return termsEqual(l, r), nil
	case OpNE:
		return !termsEqual(l, r), nil
	}
	cmp, err := CompareTerms(l, r)
	if err != nil {
		return false, err
	}
	switch c.Op {
	case OpLT:
		return cmp < 0, nil
	case OpLE:
		return cmp <= 0, nil
	case OpGT:
		return cmp > 0, nil
	case OpGE:
		return cmp >= 0, nil
	default:
		return false, fmt.Errorf("unknown operator %q", c.Op)
	}
}

// Vars implements Expr.
func (c Compare) Vars() []Variable {
	return termVars(c.Left, c.Right)
}

func (c Compare) String() string {
	return "(" + c.Left.String() + " " + string(c.Op) + " " + c.Right.String() + ")"
}

// VarConstant splits a comparison into its variable and constant operands.
// varFirst is true when the variable is the left operand. ok is false unless
// exactly one side is a variable and the other a constant.
func (c Compare) VarConstant() (v Variable, constant Term, varFirst, ok bool) {
	if lv, isVar := c.Left.(Variable); isVar && IsConcrete(c.Right) {
		return lv, c.Right, true, true
	}
	if rv, isVar := c.Right.(Variable); isVar && IsConcrete(c.Left) {
		return rv, c.Left, false, true
	}
	return "", nil, false, false
}

// And is true when every operand is true.
type And struct {
	Exprs []Expr
}

func (And) exprNode() {}

// Eval implements Expr.
func (a And) Eval(b Binding) (bool, error) {
	for _, e := range a.Exprs {
		ok, err := e.Eval(b)
		if err != nil || !ok {
			return false, err
		}
	}
	return true, nil
}

// Vars implements Expr.
func (a And) Vars() []Variable { return exprListVars(a.Exprs) }

func (a And) String() string { return joinExprs(a.Exprs, " && ") }

// Or is true when any operand is true. An operand error is ignored if
// another operand is true.
type Or struct {
	Exprs []Expr
}

func (Or) exprNode() {}

// Eval implements Expr.
func (o Or) Eval(b Binding) (bool, error) {
	var firstErr error
	for _, e := range o.Exprs {
		ok, err := e.Eval(b)
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			continue
		}
		if ok {
			return true, nil
		}
	}
	return false, firstErr
}

// Vars implements Expr.
func (o Or) Vars() []Variable { return exprListVars(o.Exprs) }

func (o Or) String() string { return joinExprs(o.Exprs, " || ") }

// Not negates its operand. Errors propagate.
type Not struct {
	Expr Expr
}

func (Not) exprNode() {}

// Eval implements Expr.
func (n Not) Eval(b Binding) (bool, error) {
	ok, err := n.Expr.Eval(b)
	if err != nil {
		return false, err
	}
	return !ok, nil
}

// Vars implements Expr.
func (n Not) Vars() []Variable { return n.Expr.Vars() }

func (n Not) String() string { return "!" + n.Expr.String() }

// Bound tests whether Var is bound.
type Bound struct {
	Var Variable
}

func (Bound) exprNode() {}

// Eval implements Expr.
func (bd Bound) Eval(b Binding) (bool, error) { return b.Contains(bd.Var), nil }

// Vars implements Expr.
func (bd Bound) Vars() []Variable { return []Variable{bd.Var} }

func (bd Bound) String() string { return "bound(" + bd.Var.String() + ")" }

// OneOf tests membership of Var's value in Values (IN), or its absence
// when Negated (NOT IN).
type OneOf struct {
	Var     Variable
	Values  []Term
	Negated bool
}

func (OneOf) exprNode() {}

// Eval implements Expr.
func (o OneOf) Eval(b Binding) (bool, error) {
	val, ok := b.Get(o.Var)
	if !ok {
		return false, fmt.Errorf("%w: %s", ErrUnbound, o.Var)
	}
	for _, candidate := range o.Values {
		if termsEqual(val, candidate) {
			return !o.Negated, nil
		}
	}
	return o.Negated, nil
}

// Vars implements Expr.
func (o OneOf) Vars() []Variable { return []Variable{o.Var} }

func (o OneOf) String() string {
	parts := make([]string, len(o.Values))
	for i, v := range o.Values {
		parts[i] = v.String()
	}
	kw := " IN "
	if o.Negated {
		kw = " NOT IN "
	}
	return "(" + o.Var.String() + kw + "(" + strings.Join(parts, ", ") + "))"
}

// Satisfied evaluates e and folds errors into false, which is how filters
// treat type errors and unbound variables.
func Satisfied(e Expr, b Binding) bool {
	ok, err := e.Eval(b)
	return err == nil && ok
}

// CompareTerms orders two constants. Numeric literals compare by value,
// plain and xsd:string literals compare lexically, and IRIs compare by text.
func CompareTerms(a, b Term) (int, error) {
	la, aLit := a.(Literal)
	lb, bLit := b.(Literal)
	if aLit && bLit {
		if IsNumericDatatype(la.Datatype) || IsNumericDatatype(lb.Datatype) {
			fa, okA := la.Number()
			fb, okB := lb.Number()
			if !okA || !okB {
				// NaN or a malformed lexical never orders against anything.
				return 0, fmt.Errorf("%w: %s and %s", ErrIncomparable, a, b)
			}
			switch {
			case fa < fb:
				return -1, nil
			case fa > fb:
				return 1, nil
			default:
				return 0, nil
			}
		}
		if isStringLiteral(la) && isStringLiteral(lb) {
			return strings.Compare(la.Lexical, lb.Lexical), nil
		}
		if la.Datatype != "" && la.Datatype == lb.Datatype {
			return strings.Compare(la.Lexical, lb.Lexical), nil
		}
		return 0, fmt.Errorf("%w: %s and %s", ErrIncomparable, a, b)
	}
	ua, aURI := a.(URI)
	ub, bURI := b.(URI)
	if aURI && bURI {
		return strings.Compare(string(ua), string(ub)), nil
	}
	return 0, fmt.Errorf("%w: %s and %s", ErrIncomparable, a, b)
}

func isStringLiteral(l Literal) bool {
	return l.Lang == "" && (l.Datatype == "" || l.Datatype == XSDString)
}

// termsEqual is RDF term equality with numeric value equality for
// numeric literals, so "5"^^xsd:int = "5.0"^^xsd:double.
func termsEqual(a, b Term) bool {
	if a == b {
		return true
	}
	la, aLit := a.(Literal)
	lb, bLit := b.(Literal)
	if aLit && bLit {
		fa, okA := la.Number()
		fb, okB := lb.Number()
		return okA && okB && fa == fb
	}
	return false
}

func resolveOperand(b Binding, t Term) (Term, error) {
	v, ok := t.(Variable)
	if !ok {
		return t, nil
	}
	val, bound := b.Get(v)
	if !bound {
		return nil, fmt.Errorf("%w: %s", ErrUnbound, v)
	}
	return val, nil
}

func termVars(terms ...Term) []Variable {
	var vars []Variable
	for _, t := range terms {
		if v, ok := t.(Variable); ok && !containsVar(vars, v) {
			vars = append(vars, v)
		}
	}
	return vars
}

func exprListVars(exprs []Expr) []Variable {
	var vars []Variable
	for _, e := range exprs {
		for _, v := range e.Vars() {
			if !containsVar(vars, v) {
				vars = append(vars, v)
			}
		}
	}
	return vars
}

func containsVar(vars []Variable, v Variable) bool {
	for _, x := range vars {
		if x == v {
			return true
		}
	}
	return false
}

func joinExprs(exprs []Expr, sep string) string {
	parts := make([]string, len(exprs))
	for i, e := range exprs {
		parts[i] = e.String()
	}
	return "(" + strings.Join(parts, sep) + ")"
}

// CoveredBy reports whether every variable of e is in vars.
func CoveredBy(e Expr, vars []Variable) bool {
	for _, v := range e.Vars() {
		if !containsVar(vars, v) {
			return false
		}
	}
	return true
}
