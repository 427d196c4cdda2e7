// Package store provides SQLite-backed durable storage for the base triple
// store that the optimizer and solver query.
//
// The store keeps two tables:
//   - resources: a dictionary interning every URI, blank node and literal
//   - statements: subject/predicate/object resource ids plus deleted and
//     inferred flags
//
// # Critical Patterns
//
// Stable statement ids
//   - Deleting a statement marks it deleted; the row and its id remain
//   - Re-adding a deleted statement revives the same id
//
// Deterministic query results
//   - All row queries include ORDER BY (see internal/querysql)
//   - Finds return matches in statement id order
//
// Materialized reads
//   - The pool holds a single connection, so every read drains its rows
//     before returning and callers may issue nested lookups freely
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Terms are NFC-normalized before they are interned (see internal/ir), so
// two spellings of the same IRI resolve to one resource id.
package store
