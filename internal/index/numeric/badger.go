package numeric

import (
	"bytes"
	"os"
	"sync"
	"sync/atomic"

	"github.com/cockroachdb/errors"
	"github.com/dgraph-io/badger/v4"

	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Key layout:
//
//	'k' + term(key)                → float(value) + term(value)
//	'v' + float(value) + term(key) → term(value)
//
// float is EncodeFloat, so the 'v' prefix scans in value order.
const (
	prefixKey   = 'k'
	prefixValue = 'v'
	pageSize    = 256
)

// BadgerBackend persists records in a badger database. An empty Dir runs
// badger in memory. The record count is taken once on Open and kept up to
// date by Put and Remove.
type BadgerBackend struct {
	Dir string

	mu   sync.RWMutex
	db   *badger.DB
	size atomic.Int64
}

// NewBadgerBackend returns a backend rooted at dir.
func NewBadgerBackend(dir string) *BadgerBackend {
	return &BadgerBackend{Dir: dir}
}

func (b *BadgerBackend) Open() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db != nil {
		return nil
	}
	opts := badger.DefaultOptions(b.Dir).WithLogger(nil)
	if b.Dir == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return errors.Wrapf(err, "open badger at %q", b.Dir)
	}
	n, err := countKeys(db)
	if err != nil {
		_ = db.Close()
		return errors.Wrapf(err, "count records at %q", b.Dir)
	}
	b.db = db
	b.size.Store(n)
	return nil
}

func (b *BadgerBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.db == nil {
		return nil
	}
	err := b.db.Close()
	b.db = nil
	return err
}

func (b *BadgerBackend) Clear() error {
	db, err := b.handle()
	if err != nil {
		return err
	}
	if err := db.DropAll(); err != nil {
		return err
	}
	b.size.Store(0)
	return nil
}

// Delete removes the database directory.
func (b *BadgerBackend) Delete() error {
	b.size.Store(0)
	if b.Dir == "" {
		return nil
	}
	return os.RemoveAll(b.Dir)
}

func (b *BadgerBackend) handle() (*badger.DB, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	if b.db == nil {
		return nil, errors.New("badger backend not open")
	}
	return b.db, nil
}

func keyKey(encodedKey []byte) []byte {
	return append([]byte{prefixKey}, encodedKey...)
}

func valueKey(v float64, encodedKey []byte) []byte {
	out := make([]byte, 0, 9+len(encodedKey))
	out = append(out, prefixValue)
	out = append(out, index.EncodeFloat(v)...)
	return append(out, encodedKey...)
}

func (b *BadgerBackend) Size() (int64, error) {
	if _, err := b.handle(); err != nil {
		return 0, err
	}
	return b.size.Load(), nil
}

func countKeys(db *badger.DB) (int64, error) {
	var n int64
	err := db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		prefix := []byte{prefixKey}
		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			n++
		}
		return nil
	})
	return n, err
}

func (b *BadgerBackend) Put(r index.Record) (bool, error) {
	db, err := b.handle()
	if err != nil {
		return false, err
	}
	ek, err := index.EncodeTerm(r.Key)
	if err != nil {
		return false, err
	}
	ev, err := index.EncodeTerm(r.Value)
	if err != nil {
		return false, err
	}
	v, ok := number(r.Value)
	if !ok {
		return false, errors.Newf("record value %v is not numeric", r.Value)
	}

	changed, inserted := false, false
	err = db.Update(func(txn *badger.Txn) error {
		changed, inserted = false, false
		item, err := txn.Get(keyKey(ek))
		switch {
		case err == nil:
			var prevFloat []byte
			var prevTerm []byte
			if err := item.Value(func(val []byte) error {
				prevFloat = append([]byte(nil), val[:8]...)
				prevTerm = append([]byte(nil), val[8:]...)
				return nil
			}); err != nil {
				return err
			}
			if bytes.Equal(prevTerm, ev) {
				return nil
			}
			if err := txn.Delete(valueKey(index.DecodeFloat(prevFloat), ek)); err != nil {
				return err
			}
		case errors.Is(err, badger.ErrKeyNotFound):
			inserted = true
		default:
			return err
		}
		changed = true
		val := append(index.EncodeFloat(v), ev...)
		if err := txn.Set(keyKey(ek), val); err != nil {
			return err
		}
		return txn.Set(valueKey(v, ek), ev)
	})
	if err != nil {
		return false, err
	}
	if inserted {
		b.size.Add(1)
	}
	return changed, nil
}

func (b *BadgerBackend) Remove(r index.Record) (bool, error) {
	db, err := b.handle()
	if err != nil {
		return false, err
	}
	ek, err := index.EncodeTerm(r.Key)
	if err != nil {
		return false, err
	}

	removed := false
	err = db.Update(func(txn *badger.Txn) error {
		removed = false
		item, err := txn.Get(keyKey(ek))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		var prev index.Record
		var prevValue float64
		if err := item.Value(func(val []byte) error {
			prevValue = index.DecodeFloat(val[:8])
			t, err := index.DecodeTerm(val[8:])
			prev.Value = t
			return err
		}); err != nil {
			return err
		}
		if r.Value != nil && !sameValue(prev.Value, r.Value) {
			return nil
		}
		if err := txn.Delete(keyKey(ek)); err != nil {
			return err
		}
		removed = true
		return txn.Delete(valueKey(prevValue, ek))
	})
	if err != nil {
		return false, err
	}
	if removed {
		b.size.Add(-1)
	}
	return removed, nil
}

func (b *BadgerBackend) Get(key ir.Term) (index.Record, bool, error) {
	db, err := b.handle()
	if err != nil {
		return index.Record{}, false, err
	}
	ek, err := index.EncodeTerm(key)
	if err != nil {
		return index.Record{}, false, err
	}
	var rec index.Record
	found := false
	err = db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(keyKey(ek))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			v, err := index.DecodeTerm(val[8:])
			if err != nil {
				return err
			}
			rec = index.Record{Key: key, Value: v}
			found = true
			return nil
		})
	})
	return rec, found, err
}

func (b *BadgerBackend) Scan() (index.RecordIterator, error) {
	return b.Between(nil, nil)
}

func (b *BadgerBackend) Equal(value ir.Term) (index.RecordIterator, error) {
	return b.Between(value, value)
}

func (b *BadgerBackend) Between(lower, upper ir.Term) (index.RecordIterator, error) {
	db, err := b.handle()
	if err != nil {
		return nil, err
	}
	lo, hi, err := bounds(lower, upper)
	if err != nil {
		return nil, err
	}
	return &pageIterator{
		db:   db,
		seek: append([]byte{prefixValue}, index.EncodeFloat(lo)...),
		hi:   hi,
	}, nil
}

// pageIterator reads the value prefix in short read transactions so no
// transaction stays open between pulls.
type pageIterator struct {
	db   *badger.DB
	seek []byte
	hi   float64
	skip []byte

	page []index.Record
	cur  index.Record
	done bool
	err  error
}

func (it *pageIterator) Next() bool {
	if it.err != nil {
		return false
	}
	if len(it.page) == 0 && !it.done {
		it.fill()
	}
	if len(it.page) == 0 {
		return false
	}
	it.cur = it.page[0]
	it.page = it.page[1:]
	return true
}

func (it *pageIterator) fill() {
	prefix := []byte{prefixValue}
	err := it.db.View(func(txn *badger.Txn) error {
		iter := txn.NewIterator(badger.DefaultIteratorOptions)
		defer iter.Close()
		for iter.Seek(it.seek); iter.ValidForPrefix(prefix); iter.Next() {
			item := iter.Item()
			k := item.KeyCopy(nil)
			if it.skip != nil && bytes.Equal(k, it.skip) {
				continue
			}
			if index.DecodeFloat(k[1:9]) > it.hi {
				it.done = true
				return nil
			}
			if len(it.page) == pageSize {
				return nil
			}
			key, err := index.DecodeTerm(k[9:])
			if err != nil {
				return err
			}
			var value ir.Term
			if err := item.Value(func(val []byte) error {
				value, err = index.DecodeTerm(val)
				return err
			}); err != nil {
				return err
			}
			it.page = append(it.page, index.Record{Key: key, Value: value})
			it.seek = k
			it.skip = k
		}
		it.done = true
		return nil
	})
	if err != nil {
		it.err = errors.Wrap(err, "badger scan")
	}
}

func (it *pageIterator) Record() index.Record { return it.cur }
func (it *pageIterator) Err() error           { return it.err }
func (it *pageIterator) Close() error {
	it.done = true
	it.page = nil
	return nil
}

var _ index.RangeBackend = (*BadgerBackend)(nil)
