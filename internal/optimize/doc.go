// Package optimize decides how a query is evaluated.
//
// It works at two levels. Within a basic graph pattern, the count
// transformations order triple patterns greedily by estimated result
// size, CollapseReifications folds reification statements into reified
// triple patterns, and IndexTransformation splits the pattern between the
// registered index queriers and the base store. Above that, Pipeline
// rewrites the query algebra tree: property function expansion, filter
// simplification and placement, join strategy and path flattening.
//
// Every rewrite preserves the set of solutions. Orderings are deterministic
// for fixed statistics: ties keep the input order.
package optimize
