package engine

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Add stores triples and forwards each to the graph's indexes. It returns
// how many triples were processed before the first failure. Adding a
// triple that is already stored is a no-op.
func (e *Engine) Add(ctx context.Context, triples ...ir.Triple) (int, error) {
	release := e.locks.WriteLock()
	defer release()
	defer e.gen.Advance()

	for i, t := range triples {
		if _, err := e.store.AddStatement(ctx, t, false); err != nil {
			return i, errors.Wrapf(err, "add %s", t)
		}
		if err := e.registry.NotifyAdd(e.graph, t); err != nil {
			return i, errors.Wrapf(err, "index %s", t)
		}
	}
	e.logger.Debug("statements added", "count", len(triples))
	return len(triples), nil
}

// Delete removes triples from the store and their records from the
// graph's indexes. It returns how many triples were actually stored.
func (e *Engine) Delete(ctx context.Context, triples ...ir.Triple) (int, error) {
	release := e.locks.WriteLock()
	defer release()
	defer e.gen.Advance()

	deleted := 0
	for _, t := range triples {
		ok, err := e.store.DeleteStatement(ctx, t)
		if err != nil {
			return deleted, errors.Wrapf(err, "delete %s", t)
		}
		if !ok {
			continue
		}
		deleted++
		if err := e.registry.NotifyDelete(e.graph, t); err != nil {
			return deleted, errors.Wrapf(err, "unindex %s", t)
		}
	}
	e.logger.Debug("statements deleted", "requested", len(triples), "deleted", deleted)
	return deleted, nil
}
