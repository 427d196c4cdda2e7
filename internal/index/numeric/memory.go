package numeric

import (
	"math"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/google/btree"

	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

const btreeDegree = 32

// keyItem orders entries by encoded key.
type keyItem struct {
	key   string
	value float64
	rec   index.Record
}

func (i keyItem) Less(than btree.Item) bool {
	return i.key < than.(keyItem).key
}

// valueItem orders entries by value, then key.
type valueItem struct {
	value float64
	key   string
	rec   index.Record
}

func (i valueItem) Less(than btree.Item) bool {
	o := than.(valueItem)
	if i.value != o.value {
		return i.value < o.value
	}
	return i.key < o.key
}

// MemoryBackend keeps records in two B-trees: one by key for point
// lookups and one by value for ordered scans.
type MemoryBackend struct {
	mu      sync.RWMutex
	byKey   *btree.BTree
	byValue *btree.BTree
}

// NewMemoryBackend returns an empty in-memory backend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{
		byKey:   btree.New(btreeDegree),
		byValue: btree.New(btreeDegree),
	}
}

func (m *MemoryBackend) Open() error  { return nil }
func (m *MemoryBackend) Close() error { return nil }

func (m *MemoryBackend) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.byKey.Clear(false)
	m.byValue.Clear(false)
	return nil
}

// Delete drops all records; there is no backing storage to remove.
func (m *MemoryBackend) Delete() error { return m.Clear() }

func (m *MemoryBackend) Size() (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return int64(m.byKey.Len()), nil
}

func encodeKey(t ir.Term) (string, error) {
	b, err := index.EncodeTerm(t)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (m *MemoryBackend) Put(r index.Record) (bool, error) {
	key, err := encodeKey(r.Key)
	if err != nil {
		return false, err
	}
	v, ok := number(r.Value)
	if !ok {
		return false, errors.Newf("record value %v is not numeric", r.Value)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if old := m.byKey.Get(keyItem{key: key}); old != nil {
		prev := old.(keyItem)
		if prev.rec == r {
			return false, nil
		}
		m.byValue.Delete(valueItem{value: prev.value, key: key})
	}
	m.byKey.ReplaceOrInsert(keyItem{key: key, value: v, rec: r})
	m.byValue.ReplaceOrInsert(valueItem{value: v, key: key, rec: r})
	return true, nil
}

func (m *MemoryBackend) Remove(r index.Record) (bool, error) {
	key, err := encodeKey(r.Key)
	if err != nil {
		return false, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	old := m.byKey.Get(keyItem{key: key})
	if old == nil {
		return false, nil
	}
	prev := old.(keyItem)
	if r.Value != nil && !sameValue(prev.rec.Value, r.Value) {
		return false, nil
	}
	m.byKey.Delete(prev)
	m.byValue.Delete(valueItem{value: prev.value, key: key})
	return true, nil
}

func (m *MemoryBackend) Get(key ir.Term) (index.Record, bool, error) {
	k, err := encodeKey(key)
	if err != nil {
		return index.Record{}, false, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	item := m.byKey.Get(keyItem{key: k})
	if item == nil {
		return index.Record{}, false, nil
	}
	return item.(keyItem).rec, true, nil
}

func (m *MemoryBackend) Scan() (index.RecordIterator, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]index.Record, 0, m.byValue.Len())
	m.byValue.Ascend(func(i btree.Item) bool {
		out = append(out, i.(valueItem).rec)
		return true
	})
	return index.IterateSlice(out), nil
}

func (m *MemoryBackend) Equal(value ir.Term) (index.RecordIterator, error) {
	return m.Between(value, value)
}

func (m *MemoryBackend) Between(lower, upper ir.Term) (index.RecordIterator, error) {
	lo, hi, err := bounds(lower, upper)
	if err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []index.Record
	m.byValue.AscendGreaterOrEqual(valueItem{value: lo}, func(i btree.Item) bool {
		item := i.(valueItem)
		if item.value > hi {
			return false
		}
		out = append(out, item.rec)
		return true
	})
	return index.IterateSlice(out), nil
}

// bounds converts inclusive range terms to floats; nil is open.
func bounds(lower, upper ir.Term) (float64, float64, error) {
	lo, hi := math.Inf(-1), math.Inf(1)
	if lower != nil {
		v, ok := number(lower)
		if !ok {
			return 0, 0, errors.Newf("lower bound %v is not numeric", lower)
		}
		lo = v
	}
	if upper != nil {
		v, ok := number(upper)
		if !ok {
			return 0, 0, errors.Newf("upper bound %v is not numeric", upper)
		}
		hi = v
	}
	return lo, hi, nil
}

func sameValue(a, b ir.Term) bool {
	x, ok1 := number(a)
	y, ok2 := number(b)
	return ok1 && ok2 && x == y
}

var _ index.RangeBackend = (*MemoryBackend)(nil)
