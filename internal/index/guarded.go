package index

import (
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Backend is the storage engine behind an index. Backends implement only
// the data path; Guarded enforces lifecycle rules.
type Backend interface {
	Open() error
	Close() error
	Clear() error
	Delete() error
	Size() (int64, error)

	// Put upserts r and reports whether the record set changed.
	Put(r Record) (bool, error)

	// Remove deletes the entry for r.Key and reports whether one existed.
	Remove(r Record) (bool, error)

	// Scan iterates all records.
	Scan() (RecordIterator, error)
}

// RangeBackend is a Backend ordered by value.
type RangeBackend interface {
	Backend
	Get(key ir.Term) (Record, bool, error)
	Equal(value ir.Term) (RecordIterator, error)
	Between(lower, upper ir.Term) (RecordIterator, error)
}

// Guarded wraps a Backend with open/closed state checks.
type Guarded struct {
	name    string
	factory RecordFactory
	backend Backend

	mu     sync.RWMutex
	closed bool
}

// NewGuarded returns a closed index named name over backend.
func NewGuarded(name string, factory RecordFactory, backend Backend) *Guarded {
	return &Guarded{name: name, factory: factory, backend: backend, closed: true}
}

func (g *Guarded) Name() string                 { return g.name }
func (g *Guarded) RecordFactory() RecordFactory { return g.factory }

// IsClosed reports whether the index is closed.
func (g *Guarded) IsClosed() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.closed
}

// Open acquires backend resources. Opening an open index is a no-op.
func (g *Guarded) Open() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		return nil
	}
	if err := g.backend.Open(); err != nil {
		return storageErr(g.name, "open", err)
	}
	g.closed = false
	return nil
}

// Close releases backend resources. Closing a closed index is a no-op.
func (g *Guarded) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.closed {
		return nil
	}
	g.closed = true
	return storageErr(g.name, "close", g.backend.Close())
}

// Delete removes backing storage.
func (g *Guarded) Delete() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.closed {
		return errors.Wrapf(ErrIllegalState, "delete %s: index open", g.name)
	}
	return storageErr(g.name, "delete", g.backend.Delete())
}

// check must be called with g.mu held.
func (g *Guarded) check(op string) error {
	if g.closed {
		return errors.Wrapf(ErrIndexClosed, "%s %s", op, g.name)
	}
	return nil
}

func (g *Guarded) Clear() error {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check("clear"); err != nil {
		return err
	}
	return storageErr(g.name, "clear", g.backend.Clear())
}

func (g *Guarded) Size() (int64, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check("size"); err != nil {
		return 0, err
	}
	n, err := g.backend.Size()
	return n, storageErr(g.name, "size", err)
}

func (g *Guarded) Add(r Record) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check("add"); err != nil {
		return false, err
	}
	changed, err := g.backend.Put(r)
	return changed, storageErr(g.name, "add", err)
}

func (g *Guarded) Remove(r Record) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check("remove"); err != nil {
		return false, err
	}
	changed, err := g.backend.Remove(r)
	return changed, storageErr(g.name, "remove", err)
}

func (g *Guarded) Iterate() (RecordIterator, error) {
	return g.iterator("iterate", g.backend.Scan)
}

func (g *Guarded) iterator(op string, open func() (RecordIterator, error)) (RecordIterator, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check(op); err != nil {
		return nil, err
	}
	it, err := open()
	if err != nil {
		return nil, storageErr(g.name, op, err)
	}
	return &guardedIterator{owner: g, op: op, inner: it}, nil
}

// guardedIterator fails with ErrIndexClosed once its index closes.
type guardedIterator struct {
	owner *Guarded
	op    string
	inner RecordIterator
	err   error
}

func (it *guardedIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if it.owner.IsClosed() {
		it.err = errors.Wrapf(ErrIndexClosed, "%s %s", it.op, it.owner.name)
		return false
	}
	return it.inner.Next()
}

func (it *guardedIterator) Record() Record { return it.inner.Record() }

func (it *guardedIterator) Err() error {
	if it.err != nil {
		return it.err
	}
	return storageErr(it.owner.name, it.op, it.inner.Err())
}

func (it *guardedIterator) Close() error { return it.inner.Close() }

// GuardedRange is a Guarded index over a RangeBackend.
type GuardedRange struct {
	*Guarded
	ranged RangeBackend
}

// NewGuardedRange returns a closed range index named name over backend.
func NewGuardedRange(name string, factory RecordFactory, backend RangeBackend) *GuardedRange {
	return &GuardedRange{Guarded: NewGuarded(name, factory, backend), ranged: backend}
}

func (g *GuardedRange) Find(key ir.Term) (Record, bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	if err := g.check("find"); err != nil {
		return Record{}, false, err
	}
	r, ok, err := g.ranged.Get(key)
	return r, ok, storageErr(g.name, "find", err)
}

func (g *GuardedRange) Query(value ir.Term) (RecordIterator, error) {
	return g.iterator("query", func() (RecordIterator, error) { return g.ranged.Equal(value) })
}

func (g *GuardedRange) Range(lower, upper ir.Term) (RecordIterator, error) {
	return g.iterator("range", func() (RecordIterator, error) { return g.ranged.Between(lower, upper) })
}

var (
	_ Index      = (*Guarded)(nil)
	_ RangeIndex = (*GuardedRange)(nil)
)
