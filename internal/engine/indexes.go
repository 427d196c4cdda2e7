package engine

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/index/numeric"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// FunctionDefinition names a property function answered by an index:
// `?s <URI> N` binds ?s to the subjects whose indexed value v has `v Op N`.
type FunctionDefinition struct {
	URI ir.URI
	Op  ir.CompareOp
}

// IndexDefinition describes a numeric range index and the property
// functions it backs.
type IndexDefinition struct {
	numeric.Definition
	Functions []FunctionDefinition
}

// IndexInfo describes a registered index.
type IndexInfo struct {
	Name      string
	Size      int64
	Closed    bool
	Functions []ir.URI
}

// CreateIndex builds the index described by def, fills it from the store
// and registers its functions.
func (e *Engine) CreateIndex(ctx context.Context, def IndexDefinition) error {
	for _, f := range def.Functions {
		if !f.Op.IsRange() && f.Op != ir.OpEQ {
			return errors.Newf("index %q: function %s: unsupported operator %q", def.Name, f.URI, f.Op)
		}
	}

	release := e.locks.WriteLock()
	defer release()
	defer e.gen.Advance()

	def.Statements = e.store
	entry, err := e.registry.CreateAndRegister(e.graph, def.Provider())
	if err != nil {
		return errors.Wrapf(err, "create index %q", def.Name)
	}
	ri, ok := entry.Index.(index.RangeIndex)
	if !ok {
		_ = e.registry.Unregister(e.graph, def.Name)
		return errors.Newf("index %q is not a range index", def.Name)
	}
	if err := e.registry.RebuildIndex(ctx, e.graph, def.Name, e.store); err != nil {
		_ = e.registry.Unregister(e.graph, def.Name)
		return err
	}

	uris := make([]ir.URI, 0, len(def.Functions))
	for _, f := range def.Functions {
		e.registry.RegisterFunction(e.graph, &numeric.Function{Name: f.URI, Op: f.Op, Index: ri})
		uris = append(uris, f.URI)
	}
	e.functions[def.Name] = uris
	e.logger.Info("index created", "index", def.Name, "predicate", def.Predicate, "backend", def.Backend)
	return nil
}

// DropIndex unregisters the named index and its functions and deletes its
// storage.
func (e *Engine) DropIndex(name string) error {
	release := e.locks.WriteLock()
	defer release()
	defer e.gen.Advance()

	for _, u := range e.functions[name] {
		e.registry.UnregisterFunction(e.graph, u)
	}
	delete(e.functions, name)
	if err := e.registry.Unregister(e.graph, name); err != nil {
		return err
	}
	e.logger.Info("index dropped", "index", name)
	return nil
}

// RebuildIndexes clears every index and refills it from the store.
func (e *Engine) RebuildIndexes(ctx context.Context) error {
	release := e.locks.WriteLock()
	defer release()
	defer e.gen.Advance()
	return e.registry.Rebuild(ctx, e.graph, e.store)
}

// Indexes describes the registered indexes in registration order.
func (e *Engine) Indexes() ([]IndexInfo, error) {
	release := e.locks.ReadLock()
	defer release()

	var out []IndexInfo
	for _, idx := range e.registry.Indexes(e.graph) {
		info := IndexInfo{Name: idx.Name(), Closed: idx.IsClosed(), Functions: e.functions[idx.Name()]}
		if !info.Closed {
			n, err := idx.Size()
			if err != nil {
				return nil, errors.Wrapf(err, "size of index %q", idx.Name())
			}
			info.Size = n
		}
		out = append(out, info)
	}
	return out, nil
}
