package numeric

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

const age = ir.URI("http://example.org/age")

func ex(local string) ir.URI { return ir.URI("http://example.org/" + local) }

func ageTriple(subject string, n int64) ir.Triple {
	return ir.NewTriple(ex(subject), age, ir.IntLiteral(n))
}

// forEachBackend runs fn against an open, populated index for every
// storage engine.
func forEachBackend(t *testing.T, fn func(t *testing.T, idx *index.GuardedRange, q *Querier)) {
	for _, backend := range []string{BackendMemory, BackendBadger} {
		t.Run(backend, func(t *testing.T) {
			def := Definition{Name: "age", Predicate: age, Backend: backend}
			if backend == BackendBadger {
				def.Dir = t.TempDir()
			}
			idx, q, err := New(def)
			require.NoError(t, err)
			require.NoError(t, idx.Open())
			t.Cleanup(func() { _ = idx.Close() })

			for _, tr := range []ir.Triple{
				ageTriple("alice", 30),
				ageTriple("bob", 25),
				ageTriple("carol", 41),
				ageTriple("dave", 25),
			} {
				rec, ok := idx.RecordFactory().CreateRecord(tr)
				require.True(t, ok)
				_, err := idx.Add(rec)
				require.NoError(t, err)
			}
			fn(t, idx, q)
		})
	}
}

// keyCollector returns a helper that drains an iterator into its keys.
func keyCollector(t *testing.T) func(index.RecordIterator, error) []ir.Term {
	return func(it index.RecordIterator, err error) []ir.Term {
		t.Helper()
		require.NoError(t, err)
		recs, err := index.CollectRecords(it)
		require.NoError(t, err)
		out := make([]ir.Term, len(recs))
		for i, r := range recs {
			out[i] = r.Key
		}
		return out
	}
}

func TestFactory(t *testing.T) {
	f := Factory{Predicate: age}

	rec, ok := f.CreateRecord(ageTriple("alice", 30))
	require.True(t, ok)
	assert.Equal(t, ir.Term(ex("alice")), rec.Key)

	_, ok = f.CreateRecord(ir.NewTriple(ex("alice"), age, ir.NewPlainLiteral("thirty")))
	assert.False(t, ok, "non-numeric object")
	_, ok = f.CreateRecord(ir.NewTriple(ex("alice"), ex("height"), ir.IntLiteral(170)))
	assert.False(t, ok, "other predicate")
	_, ok = f.CreateRecord(ir.NewTriple(ex("bob"), age, ir.NewLiteral("NaN", ir.XSDDouble)))
	assert.False(t, ok, "NaN has no order")
}

func TestBackendRejectsNaN(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx *index.GuardedRange, _ *Querier) {
		keys := keyCollector(t)
		_, err := idx.Add(index.Record{Key: ex("erin"), Value: ir.NewLiteral("NaN", ir.XSDDouble)})
		assert.Error(t, err)
		_, err = idx.Range(ir.NewLiteral("NaN", ir.XSDDouble), nil)
		assert.Error(t, err)

		assert.Len(t, keys(idx.Range(nil, nil)), 4)
		assert.Equal(t, []ir.Term{ex("bob"), ex("dave")}, keys(idx.Range(nil, ir.IntLiteral(25))))
		n, err := idx.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})
}

func TestBackendSizeAndUpsert(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx *index.GuardedRange, _ *Querier) {
		keys := keyCollector(t)
		n, err := idx.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)

		added, err := idx.Add(index.Record{Key: ex("alice"), Value: ir.IntLiteral(30)})
		require.NoError(t, err)
		assert.False(t, added)

		added, err = idx.Add(index.Record{Key: ex("alice"), Value: ir.IntLiteral(31)})
		require.NoError(t, err)
		assert.True(t, added, "new value replaces the old one")

		n, err = idx.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)

		got := keys(idx.Query(ir.IntLiteral(30)))
		assert.Empty(t, got, "old value no longer indexed")
	})
}

func TestBackendRemoveChecksValue(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx *index.GuardedRange, _ *Querier) {
		removed, err := idx.Remove(index.Record{Key: ex("alice"), Value: ir.IntLiteral(99)})
		require.NoError(t, err)
		assert.False(t, removed, "stale value does not remove the current record")

		removed, err = idx.Remove(index.Record{Key: ex("alice"), Value: ir.IntLiteral(30)})
		require.NoError(t, err)
		assert.True(t, removed)

		_, found, err := idx.Find(ex("alice"))
		require.NoError(t, err)
		assert.False(t, found)
	})
}

func TestBackendRangeOrderedInclusive(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx *index.GuardedRange, _ *Querier) {
		keys := keyCollector(t)
		got := keys(idx.Range(ir.IntLiteral(25), ir.IntLiteral(30)))
		assert.Equal(t, []ir.Term{ex("bob"), ex("dave"), ex("alice")}, got)

		got = keys(idx.Range(ir.IntLiteral(26), nil))
		assert.Equal(t, []ir.Term{ex("alice"), ex("carol")}, got)

		got = keys(idx.Range(nil, nil))
		assert.Len(t, got, 4)

		got = keys(idx.Query(ir.NewLiteral("25.0", ir.XSDDecimal)))
		assert.Equal(t, []ir.Term{ex("bob"), ex("dave")}, got)
	})
}

func TestBackendSizeTracksRemove(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx *index.GuardedRange, _ *Querier) {
		_, err := idx.Remove(index.Record{Key: ex("alice"), Value: ir.IntLiteral(30)})
		require.NoError(t, err)
		_, err = idx.Remove(index.Record{Key: ex("alice"), Value: ir.IntLiteral(30)})
		require.NoError(t, err)
		_, err = idx.Remove(index.Record{Key: ex("nobody")})
		require.NoError(t, err)

		n, err := idx.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)

		_, err = idx.Add(index.Record{Key: ex("erin"), Value: ir.IntLiteral(60)})
		require.NoError(t, err)
		n, err = idx.Size()
		require.NoError(t, err)
		assert.Equal(t, int64(4), n)
	})
}

func TestBackendClear(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx *index.GuardedRange, _ *Querier) {
		require.NoError(t, idx.Clear())
		n, err := idx.Size()
		require.NoError(t, err)
		assert.Zero(t, n)
	})
}

func TestBadgerPersistsAcrossReopen(t *testing.T) {
	dir := t.TempDir()
	idx, _, err := New(Definition{Name: "age", Predicate: age, Backend: BackendBadger, Dir: dir})
	require.NoError(t, err)
	require.NoError(t, idx.Open())
	_, err = idx.Add(index.Record{Key: ex("alice"), Value: ir.IntLiteral(30)})
	require.NoError(t, err)
	require.NoError(t, idx.Close())

	require.NoError(t, idx.Open())
	rec, found, err := idx.Find(ex("alice"))
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, ir.Term(ir.IntLiteral(30)), rec.Value)
	n, err := idx.Size()
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "size is recounted on open")
	require.NoError(t, idx.Close())
	require.NoError(t, idx.Delete())
}

func TestQuerierExamine(t *testing.T) {
	q := &Querier{Predicate: age}
	claimable := ir.NewTriple(ir.Variable("s"), age, ir.Variable("a"))
	p := ir.Pattern{
		claimable,
		ir.NewTriple(ex("alice"), age, ir.Variable("a")),
		ir.NewTriple(ir.Variable("s"), ex("name"), ir.Variable("n")),
	}
	claimed, err := q.Examine(p)
	require.NoError(t, err)
	assert.Equal(t, ir.Pattern{claimable}, claimed)
}

// statementCount is a StatementCounter reporting a fixed count.
type statementCount int64

func (c statementCount) Estimate(context.Context, ir.Triple) (int64, error) {
	return int64(c), nil
}

type failingCounter struct{}

func (failingCounter) Estimate(context.Context, ir.Triple) (int64, error) {
	return 0, assert.AnError
}

func TestQuerierExamineNeedsCompleteIndex(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *index.GuardedRange, q *Querier) {
		p := ir.Pattern{ir.NewTriple(ir.Variable("s"), age, ir.Variable("a"))}

		q.Statements = statementCount(4)
		claimed, err := q.Examine(p)
		require.NoError(t, err)
		assert.Equal(t, p, claimed)

		q.Statements = statementCount(5)
		claimed, err = q.Examine(p)
		require.NoError(t, err)
		assert.Empty(t, claimed, "a statement without a record")

		q.Statements = failingCounter{}
		_, err = q.Examine(p)
		assert.ErrorIs(t, err, assert.AnError)

		claimed, err = q.Examine(ir.Pattern{ir.NewTriple(ir.Variable("s"), ex("name"), ir.Variable("n"))})
		require.NoError(t, err)
		assert.Empty(t, claimed, "nothing to claim needs no count")
	})
}

func solve(t *testing.T, q *Querier, p ir.Pattern, in ir.Binding) []string {
	t.Helper()
	out, err := cursor.Collect(q.Query(context.Background(), p, cursor.Single(in)))
	require.NoError(t, err)
	var got []string
	for _, b := range out {
		got = append(got, b.Key())
	}
	return got
}

func TestQuerierShapes(t *testing.T) {
	forEachBackend(t, func(t *testing.T, _ *index.GuardedRange, q *Querier) {
		p := ir.Pattern{ir.NewTriple(ir.Variable("s"), age, ir.Variable("a"))}

		t.Run("scan", func(t *testing.T) {
			assert.Len(t, solve(t, q, p, ir.EmptyBinding()), 4)
		})
		t.Run("value bound", func(t *testing.T) {
			got := solve(t, q, p, ir.EmptyBinding().With("a", ir.IntLiteral(25)))
			assert.Len(t, got, 2)
		})
		t.Run("subject bound", func(t *testing.T) {
			got := solve(t, q, p, ir.EmptyBinding().With("s", ex("carol")))
			assert.Equal(t, []string{`?a="41"^^<http://www.w3.org/2001/XMLSchema#integer> ?s=<http://example.org/carol>`}, got)
		})
		t.Run("both bound", func(t *testing.T) {
			in := ir.EmptyBinding().With("s", ex("carol")).With("a", ir.IntLiteral(41))
			assert.Len(t, solve(t, q, p, in), 1)
			in = ir.EmptyBinding().With("s", ex("carol")).With("a", ir.IntLiteral(40))
			assert.Empty(t, solve(t, q, p, in))
		})
		t.Run("unknown subject", func(t *testing.T) {
			in := ir.EmptyBinding().With("s", ex("nobody")).With("a", ir.IntLiteral(41))
			assert.Empty(t, solve(t, q, p, in))
		})
	})
}

func TestQuerierClosedIndexFails(t *testing.T) {
	idx, q, err := New(Definition{Name: "age", Predicate: age})
	require.NoError(t, err)

	p := ir.Pattern{ir.NewTriple(ir.Variable("s"), age, ir.Variable("a"))}
	_, err = cursor.Collect(q.Query(context.Background(), p, cursor.Single(ir.EmptyBinding())))
	assert.ErrorIs(t, err, index.ErrIndexClosed)
	assert.True(t, idx.IsClosed())
}

func TestFunction(t *testing.T) {
	forEachBackend(t, func(t *testing.T, idx *index.GuardedRange, _ *Querier) {
		fn := &Function{Name: "http://example.org/fn#olderThan", Op: ir.OpGT, Index: idx}
		call := ir.NewTriple(ir.Variable("s"), fn.URI(), ir.IntLiteral(25))

		claimed, err := fn.Examine(ir.Pattern{call, ageTriple("x", 1)})
		require.NoError(t, err)
		assert.Equal(t, ir.Pattern{call}, claimed)

		out, err := cursor.Collect(fn.Query(context.Background(), claimed, cursor.Single(ir.EmptyBinding())))
		require.NoError(t, err)
		require.Len(t, out, 2, "strict comparison excludes the bound itself")
		assert.Equal(t, "?s=<http://example.org/alice>", out[0].Key())
		assert.Equal(t, "?s=<http://example.org/carol>", out[1].Key())
	})
}

func TestNewRejectsBadDefinitions(t *testing.T) {
	_, _, err := New(Definition{Predicate: age})
	assert.Error(t, err)
	_, _, err = New(Definition{Name: "x"})
	assert.Error(t, err)
	_, _, err = New(Definition{Name: "x", Predicate: age, Backend: "rtree"})
	assert.Error(t, err)
}
