// Package queryir provides the query algebra that the optimizer rewrites
// and the engine executes.
//
// A query is a tree of Op nodes. Leaves are basic graph patterns (BGP),
// property paths (Path) and property function calls; inner nodes filter,
// join, union and extend their operands.
//
// SEALED INTERFACES:
//
// Op and PathExpr are sealed interfaces using the marker method pattern.
// Only types in this package can implement them, so type switches over
// them in the optimizer and executor are exhaustive.
//
//	switch o := op.(type) {
//	case queryir.BGP:
//	    // solve the pattern
//	case queryir.Filter:
//	    // push range filters into indexes
//	...
//	}
//
// JOIN FORMS:
//
// Join and LeftJoin evaluate both sides independently and combine the
// results. Sequence and Conditional are their substitution forms: every
// binding produced on the left becomes the input of the right, so the
// right side sees the left side's variables already bound. The optimizer
// turns the former into the latter when the right side is safe to evaluate
// that way.
//
// REWRITING:
//
// Transform rebuilds a tree bottom-up through a rewrite function; Walk
// visits it top-down. Both treat Op values as immutable: a rewrite returns
// a new node rather than changing its argument.
//
// Format renders a tree as an indented S-expression for explain output and
// golden tests. Validate reports structural problems without executing.
package queryir
