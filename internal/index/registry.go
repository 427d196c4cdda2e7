package index

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Provider builds an index and its querier for a graph.
type Provider interface {
	Create(graph string) (Index, Querier, error)
}

// ProviderFunc adapts a function to Provider.
type ProviderFunc func(graph string) (Index, Querier, error)

func (f ProviderFunc) Create(graph string) (Index, Querier, error) { return f(graph) }

// TripleSource enumerates stored triples matching a pattern. The base store
// implements it so indexes can be rebuilt from current contents.
type TripleSource interface {
	Triples(ctx context.Context, matcher ir.Triple, fn func(ir.Triple) error) error
}

// Entry is one registered index.
type Entry struct {
	Index    Index
	Querier  Querier
	Provider Provider
}

// Registry tracks the indexes and index-backed functions attached to each
// graph, in registration order.
type Registry struct {
	mu        sync.Mutex
	graphs    map[string][]Entry
	functions map[string]map[ir.URI]Function
	logger    *slog.Logger
}

// NewRegistry returns an empty registry. A nil logger discards output.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Registry{
		graphs:    make(map[string][]Entry),
		functions: make(map[string]map[ir.URI]Function),
		logger:    logger,
	}
}

// Size returns the number of graphs with at least one index.
func (r *Registry) Size() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.graphs)
}

// Graphs returns the graphs with indexes, sorted.
func (r *Registry) Graphs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.graphs))
	for g := range r.graphs {
		out = append(out, g)
	}
	sort.Strings(out)
	return out
}

// CreateAndRegister builds an index with p and registers it on graph.
func (r *Registry) CreateAndRegister(graph string, p Provider) (Entry, error) {
	idx, q, err := p.Create(graph)
	if err != nil {
		return Entry{}, errors.Wrapf(err, "create index for graph %q", graph)
	}
	e := Entry{Index: idx, Querier: q, Provider: p}
	if err := r.Register(graph, e); err != nil {
		return Entry{}, err
	}
	return e, nil
}

// Register attaches e to graph and opens its index if it is closed. Index
// names are unique per graph.
func (r *Registry) Register(graph string, e Entry) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.graphs[graph] {
		if existing.Index.Name() == e.Index.Name() {
			return errors.Wrapf(ErrIllegalState, "index %q already registered on graph %q", e.Index.Name(), graph)
		}
	}
	if e.Index.IsClosed() {
		if err := e.Index.Open(); err != nil {
			return errors.Wrapf(err, "open index %q", e.Index.Name())
		}
	}
	r.graphs[graph] = append(r.graphs[graph], e)
	r.logger.Debug("index registered", "graph", graph, "index", e.Index.Name())
	return nil
}

// Unregister detaches the named index, closes it and deletes its storage.
func (r *Registry) Unregister(graph, name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	entries := r.graphs[graph]
	pos := -1
	for i, e := range entries {
		if e.Index.Name() == name {
			pos = i
			break
		}
	}
	if pos < 0 {
		return errors.Wrapf(ErrUnknownIndex, "index %q on graph %q", name, graph)
	}
	idx := entries[pos].Index

	rest := make([]Entry, 0, len(entries)-1)
	rest = append(rest, entries[:pos]...)
	rest = append(rest, entries[pos+1:]...)
	if len(rest) == 0 {
		delete(r.graphs, graph)
	} else {
		r.graphs[graph] = rest
	}

	if err := idx.Close(); err != nil {
		return errors.Wrapf(err, "close index %q", name)
	}
	if err := idx.Delete(); err != nil {
		return errors.Wrapf(err, "delete index %q", name)
	}
	r.logger.Debug("index unregistered", "graph", graph, "index", name)
	return nil
}

// UnregisterAll detaches and deletes every index on graph.
func (r *Registry) UnregisterAll(graph string) error {
	var errs error
	for _, idx := range r.Indexes(graph) {
		errs = errors.CombineErrors(errs, r.Unregister(graph, idx.Name()))
	}
	return errs
}

// HasIndexes reports whether graph has at least one index.
func (r *Registry) HasIndexes(graph string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.graphs[graph]) > 0
}

// Entries returns a copy of graph's entries in registration order.
func (r *Registry) Entries(graph string) []Entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Entry(nil), r.graphs[graph]...)
}

// Indexes returns graph's indexes in registration order.
func (r *Registry) Indexes(graph string) []Index {
	entries := r.Entries(graph)
	out := make([]Index, len(entries))
	for i, e := range entries {
		out[i] = e.Index
	}
	return out
}

// Lookup finds a registered index by name.
func (r *Registry) Lookup(graph, name string) (Entry, bool) {
	for _, e := range r.Entries(graph) {
		if e.Index.Name() == name {
			return e, true
		}
	}
	return Entry{}, false
}

// OpenAll opens every closed index on graph.
func (r *Registry) OpenAll(graph string) error {
	var errs error
	for _, idx := range r.Indexes(graph) {
		if idx.IsClosed() {
			errs = errors.CombineErrors(errs, idx.Open())
		}
	}
	return errs
}

// CloseAll closes every index on graph. Indexes stay registered.
func (r *Registry) CloseAll(graph string) error {
	var errs error
	for _, idx := range r.Indexes(graph) {
		if err := idx.Close(); err != nil {
			r.logger.Error("closing index", "graph", graph, "index", idx.Name(), "error", err)
			errs = errors.CombineErrors(errs, err)
		}
	}
	return errs
}

// Rebuild clears every index on graph and refills it from src.
func (r *Registry) Rebuild(ctx context.Context, graph string, src TripleSource) error {
	for _, idx := range r.Indexes(graph) {
		if err := rebuildIndex(ctx, idx, src); err != nil {
			return errors.Wrapf(err, "rebuild index %q", idx.Name())
		}
		r.logger.Debug("index rebuilt", "graph", graph, "index", idx.Name())
	}
	return nil
}

// RebuildIndex clears the named index and refills it from src.
func (r *Registry) RebuildIndex(ctx context.Context, graph, name string, src TripleSource) error {
	e, ok := r.Lookup(graph, name)
	if !ok {
		return errors.Wrapf(ErrUnknownIndex, "index %q on graph %q", name, graph)
	}
	if err := rebuildIndex(ctx, e.Index, src); err != nil {
		return errors.Wrapf(err, "rebuild index %q", name)
	}
	r.logger.Debug("index rebuilt", "graph", graph, "index", name)
	return nil
}

func rebuildIndex(ctx context.Context, idx Index, src TripleSource) error {
	if idx.IsClosed() {
		if err := idx.Open(); err != nil {
			return err
		}
	}
	if err := idx.Clear(); err != nil {
		return err
	}
	factory := idx.RecordFactory()
	for _, m := range factory.Matchers() {
		err := src.Triples(ctx, m, func(t ir.Triple) error {
			rec, ok := factory.CreateRecord(t)
			if !ok {
				return nil
			}
			_, err := idx.Add(rec)
			return err
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// NotifyAdd forwards a stored triple to every index on graph that covers it.
func (r *Registry) NotifyAdd(graph string, t ir.Triple) error {
	var errs error
	for _, idx := range r.Indexes(graph) {
		rec, ok := idx.RecordFactory().CreateRecord(t)
		if !ok {
			continue
		}
		added, err := idx.Add(rec)
		if err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "add %s to %q", rec, idx.Name()))
			continue
		}
		if !added {
			r.logger.Debug("record not added", "index", idx.Name(), "record", rec.String())
		}
	}
	return errs
}

// NotifyDelete removes a deleted triple's record from every index on graph.
func (r *Registry) NotifyDelete(graph string, t ir.Triple) error {
	var errs error
	for _, idx := range r.Indexes(graph) {
		rec, ok := idx.RecordFactory().CreateRecord(t)
		if !ok {
			continue
		}
		if _, err := idx.Remove(rec); err != nil {
			errs = errors.CombineErrors(errs, errors.Wrapf(err, "remove %s from %q", rec, idx.Name()))
		}
	}
	return errs
}

// RegisterFunction makes an index-backed property function available on
// graph. A later registration for the same URI replaces the earlier one.
func (r *Registry) RegisterFunction(graph string, f Function) {
	r.mu.Lock()
	defer r.mu.Unlock()
	fns, ok := r.functions[graph]
	if !ok {
		fns = make(map[ir.URI]Function)
		r.functions[graph] = fns
	}
	fns[f.URI()] = f
}

// UnregisterFunction removes the function registered for uri.
func (r *Registry) UnregisterFunction(graph string, uri ir.URI) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.functions[graph], uri)
	if len(r.functions[graph]) == 0 {
		delete(r.functions, graph)
	}
}

// Function returns the property function registered for uri on graph.
func (r *Registry) Function(graph string, uri ir.URI) (Function, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, ok := r.functions[graph][uri]
	return f, ok
}

// FunctionFor returns the function invoked by t, if any.
func (r *Registry) FunctionFor(graph string, t ir.Triple) (Function, bool) {
	uri, ok := t.Predicate.(ir.URI)
	if !ok {
		return nil, false
	}
	return r.Function(graph, uri)
}
