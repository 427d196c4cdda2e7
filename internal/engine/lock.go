package engine

import "sync"

// LockController is the reader/writer lock around the store and its
// indexes. Queries hold the read lock for their whole run; writes and
// index changes hold the write lock.
//
// Both acquisitions return a release function that is safe to call more
// than once, so callers can defer it and also release early.
type LockController struct {
	mu sync.RWMutex
}

// ReadLock acquires the shared lock.
func (l *LockController) ReadLock() (release func()) {
	l.mu.RLock()
	var once sync.Once
	return func() { once.Do(l.mu.RUnlock) }
}

// WriteLock acquires the exclusive lock.
func (l *LockController) WriteLock() (release func()) {
	l.mu.Lock()
	var once sync.Once
	return func() { once.Do(l.mu.Unlock) }
}
