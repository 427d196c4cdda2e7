package engine

import "sync/atomic"

// Generation counts committed writes. Every write that can change the
// statistics the optimizer reads advances it; cached plans remember the
// generation they were computed at and are stale once it moves.
//
// Thread-safety: Generation is safe for concurrent use (atomic operations).
type Generation struct {
	n atomic.Int64
}

// Advance bumps the generation and returns the new value.
func (g *Generation) Advance() int64 {
	return g.n.Add(1)
}

// Current returns the generation without changing it.
func (g *Generation) Current() int64 {
	return g.n.Load()
}
