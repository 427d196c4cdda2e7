package queryir

import "github.com/raytheonbbn/parliament-sub002/internal/ir"

// Op is a node of the query algebra.
//
// This is a sealed interface - only types in this package implement it.
// The marker method pattern prevents external implementations and enables
// exhaustive type switches in the optimizer and the executor.
//
// Op types:
//   - BGP: a basic graph pattern (conjunction of triple patterns)
//   - Filter: keeps the bindings of Sub that satisfy every expression
//   - Join, LeftJoin: general joins of independently evaluated sides
//   - Sequence, Conditional: their substitution forms, where each binding
//     produced on the left is fed into the right as input
//   - Union: bindings of either side
//   - Extend: binds a variable to a constant
//   - PropFunc, IndexPropFunc: property function calls
//   - Path: a property path between two terms
type Op interface {
	opNode() // Marker method - seals interface to this package
}

// BGP is a basic graph pattern.
//
// Semantics: every triple pattern must hold. An empty BGP passes its input
// through unchanged.
type BGP struct {
	Pattern ir.Pattern
}

func (BGP) opNode() {}

// Filter keeps the bindings of Sub for which every expression is true.
// An expression that errors (type error, unbound variable) counts as false.
type Filter struct {
	Exprs []ir.Expr
	Sub   Op
}

func (Filter) opNode() {}

// Join is the inner join of two independently evaluated operands.
type Join struct {
	Left  Op
	Right Op
}

func (Join) opNode() {}

// LeftJoin is an optional join: each left binding is extended by every
// compatible right binding satisfying Exprs, or kept as is when none does.
type LeftJoin struct {
	Left  Op
	Right Op
	Exprs []ir.Expr
}

func (LeftJoin) opNode() {}

// Conditional is the substitution form of LeftJoin: Right is evaluated
// once per left binding with that binding as input.
type Conditional struct {
	Left  Op
	Right Op
	Exprs []ir.Expr
}

func (Conditional) opNode() {}

// Sequence is the substitution form of a chain of joins: the output of each
// element is the input of the next.
type Sequence struct {
	Ops []Op
}

func (Sequence) opNode() {}

// Union produces the bindings of Left followed by those of Right.
type Union struct {
	Left  Op
	Right Op
}

func (Union) opNode() {}

// Extend binds Var to Value on every binding of Sub. A binding where Var
// already holds a different value is dropped.
type Extend struct {
	Sub   Op
	Var   ir.Variable
	Value ir.Term
}

func (Extend) opNode() {}

// PropFunc calls the property function Function with Subject and Object
// on every binding of Sub.
type PropFunc struct {
	Function ir.URI
	Subject  ir.Term
	Object   ir.Term
	Sub      Op
}

func (PropFunc) opNode() {}

// Triple returns the function call in triple form.
func (p PropFunc) Triple() ir.Triple {
	return ir.NewTriple(p.Subject, p.Function, p.Object)
}

// IndexPropFunc is a property function answered by an index. Pattern holds
// the triple patterns connected to the call; they are solved together with
// the function so the index can pick the evaluation order. Sub is evaluated
// first and feeds its bindings in.
type IndexPropFunc struct {
	Function ir.URI
	Subject  ir.Term
	Object   ir.Term
	Pattern  ir.Pattern
	Sub      Op
}

func (IndexPropFunc) opNode() {}

// Triple returns the function call in triple form.
func (p IndexPropFunc) Triple() ir.Triple {
	return ir.NewTriple(p.Subject, p.Function, p.Object)
}

// Path relates Subject and Object through a property path.
type Path struct {
	Subject ir.Term
	Path    PathExpr
	Object  ir.Term
}

func (Path) opNode() {}

// PathExpr is a property path expression.
//
// This is a sealed interface - only Link, Seq and Inverse implement it.
type PathExpr interface {
	pathNode() // Marker method - seals interface to this package
}

// Link is a single predicate step.
type Link struct {
	Predicate ir.URI
}

func (Link) pathNode() {}

// Seq is Left followed by Right.
type Seq struct {
	Left  PathExpr
	Right PathExpr
}

func (Seq) pathNode() {}

// Inverse traverses Path backwards.
type Inverse struct {
	Path PathExpr
}

func (Inverse) pathNode() {}

// Children returns the direct sub-operations of op in evaluation order.
func Children(op Op) []Op {
	switch o := op.(type) {
	case Filter:
		return []Op{o.Sub}
	case Join:
		return []Op{o.Left, o.Right}
	case LeftJoin:
		return []Op{o.Left, o.Right}
	case Conditional:
		return []Op{o.Left, o.Right}
	case Sequence:
		return o.Ops
	case Union:
		return []Op{o.Left, o.Right}
	case Extend:
		return []Op{o.Sub}
	case PropFunc:
		return nonNil(o.Sub)
	case IndexPropFunc:
		return nonNil(o.Sub)
	default:
		return nil
	}
}

func nonNil(op Op) []Op {
	if op == nil {
		return nil
	}
	return []Op{op}
}

// Vars returns the variables op may bind, in first-seen order.
// For LeftJoin and Conditional the right side's variables are included
// even though they may stay unbound.
func Vars(op Op) []ir.Variable {
	var out []ir.Variable
	seen := make(map[ir.Variable]bool)
	add := func(vars ...ir.Variable) {
		for _, v := range vars {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	Walk(op, func(n Op) bool {
		switch o := n.(type) {
		case BGP:
			add(o.Pattern.Vars()...)
		case Extend:
			add(o.Var)
		case PropFunc:
			add(o.Triple().Vars()...)
		case IndexPropFunc:
			add(o.Triple().Vars()...)
			add(o.Pattern.Vars()...)
		case Path:
			for _, t := range []ir.Term{o.Subject, o.Object} {
				if v, ok := t.(ir.Variable); ok {
					add(v)
				}
			}
		}
		return true
	})
	return out
}

// FromQuery turns a parsed pattern and its filters into an algebra tree.
func FromQuery(q *ir.Query) Op {
	var op Op = BGP{Pattern: q.Pattern}
	if len(q.Filters) > 0 {
		op = Filter{Exprs: q.Filters, Sub: op}
	}
	return op
}
