// Package engine runs queries over a store and its secondary indexes.
//
// An Engine owns the pieces a query needs around the optimizer and solver:
// the index registry for its graph, a reader/writer LockController, a
// Tracker of running queries and a PlanCache of count orderings.
//
// Query flow:
//  1. Query registers the query with the Tracker, which hands out an id and
//     a cancellable context
//  2. the read lock is taken for the whole run
//  3. Optimize rewrites the algebra tree
//  4. Execute evaluates it; basic graph patterns go to the solver, other
//     operators are evaluated here
//  5. rows are collected under a RowQuota and projected onto the query's
//     variables
//
// Writes (Add, Delete) and index changes take the write lock, keep indexes
// consistent through the registry and advance the Generation, which makes
// every cached plan stale.
//
// Cancellation is observed at cursor pulls: a cancelled query fails with a
// QueryError coded INTERRUPTED and never returns partial rows.
package engine
