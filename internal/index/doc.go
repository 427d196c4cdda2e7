// Package index defines pluggable secondary indexes and the per-graph
// registry that keeps them attached to a graph store.
//
// An Index holds records (key term → indexed value) derived from the subset
// of stored triples its RecordFactory accepts. Indexes are long-lived: the
// registry opens them on registration, keeps them consistent with the write
// path through NotifyAdd/NotifyDelete, and closes them at shutdown.
//
// # Lifecycle
//
// Every index starts closed. Open acquires the backing storage; Close is
// idempotent. While closed, every operation except Open and Delete fails
// with ErrIndexClosed. Delete permanently removes backing storage and fails
// with ErrIllegalState while the index is open. Guarded enforces these rules
// around a Backend so concrete storage engines only implement the data path.
//
// # Querying
//
// Each registered index is paired with a Querier. The optimizer asks every
// querier, in registration order, which still-unclaimed triple patterns it
// can answer (Examine), how many results a claimed sub-pattern may produce
// (Estimate), and finally asks it to evaluate the claimed sub-pattern over a
// stream of input bindings (Query).
//
// RangeIndex is the optional refinement for indexes ordered by value. The
// solver uses it to push comparison filters into bounded scans.
//
// # Registry
//
// Registry is owned by a graph store and passed explicitly to the optimizer
// and solver. It is not a process-wide singleton. Registration calls are
// serialized by an internal mutex; callers still hold the store's write lock
// around anything that mutates index contents.
package index
