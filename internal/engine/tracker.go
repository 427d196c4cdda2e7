package engine

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
)

// ErrCancelled is the cancellation cause recorded when a query is
// cancelled through the Tracker.
var ErrCancelled = errors.New("query cancelled")

// QueryInfo describes a running query.
type QueryInfo struct {
	ID      string
	Query   string
	Started time.Time
}

type running struct {
	info   QueryInfo
	cancel context.CancelCauseFunc
}

// Tracker is the registry of running queries. Each query gets its own
// cancellable context; Cancel by id makes the query's next stream pull fail
// with an interruption.
//
// Entries are removed by the end function returned from Begin, which
// callers defer so that success, error and cancellation all clean up.
//
// Thread-safe: all methods may be called concurrently.
type Tracker struct {
	mu      sync.Mutex
	ids     QueryIDGenerator
	now     func() time.Time
	running map[string]*running
}

// NewTracker returns an empty tracker. A nil generator uses UUIDv7 ids.
func NewTracker(ids QueryIDGenerator) *Tracker {
	if ids == nil {
		ids = UUIDv7Generator{}
	}
	return &Tracker{ids: ids, now: time.Now, running: make(map[string]*running)}
}

// Begin registers a query and returns its id, its context and the function
// that ends tracking. end is idempotent and also releases the context.
func (t *Tracker) Begin(ctx context.Context, query string) (string, context.Context, func()) {
	qctx, cancel := context.WithCancelCause(ctx)
	id := t.ids.Generate()

	t.mu.Lock()
	t.running[id] = &running{info: QueryInfo{ID: id, Query: query, Started: t.now()}, cancel: cancel}
	t.mu.Unlock()

	var once sync.Once
	end := func() {
		once.Do(func() {
			t.mu.Lock()
			delete(t.running, id)
			t.mu.Unlock()
			cancel(nil)
		})
	}
	return id, qctx, end
}

// Cancel interrupts the query with the given id. It reports whether the
// query was running.
func (t *Tracker) Cancel(id string) bool {
	t.mu.Lock()
	r, ok := t.running[id]
	t.mu.Unlock()
	if !ok {
		return false
	}
	r.cancel(ErrCancelled)
	return true
}

// CancelAll interrupts every running query and returns how many there were.
func (t *Tracker) CancelAll() int {
	t.mu.Lock()
	rs := make([]*running, 0, len(t.running))
	for _, r := range t.running {
		rs = append(rs, r)
	}
	t.mu.Unlock()
	for _, r := range rs {
		r.cancel(ErrCancelled)
	}
	return len(rs)
}

// Running lists the running queries ordered by id.
func (t *Tracker) Running() []QueryInfo {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]QueryInfo, 0, len(t.running))
	for _, r := range t.running {
		out = append(out, r.info)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Len returns the number of running queries.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.running)
}
