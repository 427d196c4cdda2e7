// Package solver evaluates basic graph patterns.
//
// A Solver plans a pattern with the optimize package and runs the plan:
// sub-patterns claimed by an index go to that index's querier, the rest to
// a TripleEvaluator, chained left to right so each stage sees the bindings
// produced so far. StoreEvaluator is the evaluator over the base store.
//
// SolveFilters additionally turns numeric range filters into range scans
// over a claiming range index, and SolveFunction places an index-backed
// property function call among the sub-patterns it joins with.
package solver
