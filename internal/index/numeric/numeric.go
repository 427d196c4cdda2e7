package numeric

import (
	"path/filepath"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Storage engines.
const (
	BackendMemory = "memory"
	BackendBadger = "badger"
)

// Definition describes one numeric index.
type Definition struct {
	Name      string
	Predicate ir.URI
	Backend   string
	// Dir is the badger directory. Empty runs badger in memory.
	Dir string
	// Statements, when set, gates the querier on index completeness.
	Statements StatementCounter
}

// New builds a closed numeric index and its querier.
func New(def Definition) (*index.GuardedRange, *Querier, error) {
	if def.Name == "" {
		return nil, nil, errors.New("numeric index needs a name")
	}
	if def.Predicate == "" {
		return nil, nil, errors.Newf("numeric index %q needs a predicate", def.Name)
	}

	var backend index.RangeBackend
	switch def.Backend {
	case BackendMemory, "":
		backend = NewMemoryBackend()
	case BackendBadger:
		dir := def.Dir
		if dir != "" {
			dir = filepath.Clean(dir)
		}
		backend = NewBadgerBackend(dir)
	default:
		return nil, nil, errors.Newf("numeric index %q: unknown backend %q", def.Name, def.Backend)
	}

	idx := index.NewGuardedRange(def.Name, Factory{Predicate: def.Predicate}, backend)
	return idx, &Querier{Predicate: def.Predicate, Index: idx, Statements: def.Statements}, nil
}

// Provider returns an index.Provider that builds def.
func (def Definition) Provider() index.Provider {
	return index.ProviderFunc(func(string) (index.Index, index.Querier, error) {
		idx, q, err := New(def)
		if err != nil {
			return nil, nil, err
		}
		return idx, q, nil
	})
}
