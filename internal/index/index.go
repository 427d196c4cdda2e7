package index

import (
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Record is one index entry: a key term (usually a subject) and the value
// the index orders or looks up by.
type Record struct {
	Key   ir.Term
	Value ir.Term
}

func (r Record) String() string {
	if r.Value == nil {
		return "(" + r.Key.String() + ")"
	}
	return "(" + r.Key.String() + " " + r.Value.String() + ")"
}

// RecordFactory decides which triples an index covers.
type RecordFactory interface {
	// CreateRecord returns the record derived from t, or false when t is not
	// covered by the index.
	CreateRecord(t ir.Triple) (Record, bool)

	// Matchers returns the triple patterns whose store matches feed the
	// index during a rebuild.
	Matchers() []ir.Triple
}

// RecordIterator is a lazy, one-shot sequence of records.
type RecordIterator interface {
	Next() bool
	Record() Record
	Err() error
	Close() error
}

// Index is a named secondary structure over records.
type Index interface {
	Name() string
	Open() error
	Close() error
	IsClosed() bool

	// Clear removes all records but keeps the backing structure.
	Clear() error

	// Delete permanently removes backing storage. The index must be closed.
	Delete() error

	Size() (int64, error)

	// Add upserts r by key. It reports whether the record set changed.
	Add(r Record) (bool, error)

	// Remove deletes the record stored under r.Key. A missing key is a no-op.
	Remove(r Record) (bool, error)

	// Iterate returns all records. The iterator fails with ErrIndexClosed if
	// the index is closed before it is drained.
	Iterate() (RecordIterator, error)

	RecordFactory() RecordFactory
}

// RangeIndex is an index ordered by value.
type RangeIndex interface {
	Index

	// Find returns the record stored under key.
	Find(key ir.Term) (Record, bool, error)

	// Query returns every record whose value equals value.
	Query(value ir.Term) (RecordIterator, error)

	// Range returns records with lower <= value <= upper in value order.
	// A nil bound is open.
	Range(lower, upper ir.Term) (RecordIterator, error)
}

// sliceIterator iterates a materialized record slice.
type sliceIterator struct {
	records []Record
	pos     int
	cur     Record
}

// IterateSlice returns an iterator over records.
func IterateSlice(records []Record) RecordIterator {
	return &sliceIterator{records: records}
}

func (it *sliceIterator) Next() bool {
	if it.pos >= len(it.records) {
		return false
	}
	it.cur = it.records[it.pos]
	it.pos++
	return true
}

func (it *sliceIterator) Record() Record { return it.cur }
func (it *sliceIterator) Err() error     { return nil }
func (it *sliceIterator) Close() error {
	it.pos = len(it.records)
	return nil
}

// CollectRecords drains it into a slice and closes it.
func CollectRecords(it RecordIterator) ([]Record, error) {
	var out []Record
	for it.Next() {
		out = append(out, it.Record())
	}
	err := it.Err()
	if closeErr := it.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
