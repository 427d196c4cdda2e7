package store

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

func seedPeople(t *testing.T, s *Store) {
	t.Helper()
	mustAdd(t, s,
		ir.NewTriple(exURI("alice"), exURI("age"), ir.IntLiteral(30)),
		ir.NewTriple(exURI("bob"), exURI("age"), ir.IntLiteral(25)),
		ir.NewTriple(exURI("alice"), exURI("knows"), exURI("bob")),
		ir.NewTriple(exURI("bob"), exURI("knows"), exURI("bob")),
		ir.NewTriple(exURI("alice"), ir.RDFType, exURI("Person")),
	)
}

func findAll(t *testing.T, s *Store, tr ir.Triple) []ir.Triple {
	t.Helper()
	m, err := s.Find(context.Background(), tr)
	require.NoError(t, err)
	defer m.Close()
	var out []ir.Triple
	for m.Next() {
		out = append(out, m.Match().Triple())
	}
	require.NoError(t, m.Err())
	return out
}

func TestFind_Shapes(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)

	s1, p, o := ir.Variable("s"), ir.Variable("p"), ir.Variable("o")

	assert.Len(t, findAll(t, s, ir.NewTriple(s1, p, o)), 5)
	assert.Len(t, findAll(t, s, ir.NewTriple(exURI("alice"), p, o)), 3)
	assert.Equal(t,
		[]ir.Triple{
			ir.NewTriple(exURI("alice"), exURI("age"), ir.IntLiteral(30)),
			ir.NewTriple(exURI("bob"), exURI("age"), ir.IntLiteral(25)),
		},
		findAll(t, s, ir.NewTriple(s1, exURI("age"), o)),
		"matches come back in statement id order")
	assert.Len(t, findAll(t, s, ir.NewTriple(s1, exURI("age"), ir.IntLiteral(25))), 1)
	assert.Empty(t, findAll(t, s, ir.NewTriple(s1, exURI("unknown"), o)))
}

func TestFind_RepeatedVariable(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)

	x := ir.Variable("x")
	got := findAll(t, s, ir.NewTriple(x, exURI("knows"), x))

	assert.Equal(t, []ir.Triple{ir.NewTriple(exURI("bob"), exURI("knows"), exURI("bob"))}, got)
}

func TestFind_MatchFlags(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)

	m, err := s.Find(context.Background(), ir.NewTriple(exURI("alice"), exURI("age"), ir.Variable("o")))
	require.NoError(t, err)
	require.Equal(t, 1, m.Len())
	require.True(t, m.Next())

	match := m.Match()
	assert.True(t, match.Literal())
	assert.False(t, match.Deleted)
	assert.False(t, match.Inferred)
	assert.NotZero(t, match.SubjectID)
	assert.False(t, m.Next())
}

func TestFind_NestedLookups(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)
	ctx := context.Background()

	outer, err := s.Find(ctx, ir.NewTriple(ir.Variable("s"), exURI("knows"), ir.Variable("o")))
	require.NoError(t, err)
	defer outer.Close()

	count := 0
	for outer.Next() {
		inner, err := s.Find(ctx, ir.NewTriple(outer.Match().Object, exURI("age"), ir.Variable("age")))
		require.NoError(t, err)
		for inner.Next() {
			count++
		}
		inner.Close()
	}
	assert.Equal(t, 2, count)
}

func TestTerm_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	terms := []ir.Term{
		exURI("alice"),
		ir.Blank("b0"),
		ir.NewLangLiteral("hello", "en"),
		ir.DoubleLiteral(2.5),
		ir.NewPlainLiteral("plain"),
	}
	for i, term := range terms {
		mustAdd(t, s, ir.NewTriple(exURI("s"), exURI("p"), term))
		id, ok, err := s.ID(ctx, term)
		require.NoError(t, err, "term %d", i)
		require.True(t, ok, "term %d", i)

		back, err := s.Term(ctx, id)
		require.NoError(t, err)
		assert.Equal(t, term, back)
	}

	_, ok, err := s.ID(ctx, exURI("missing"))
	require.NoError(t, err)
	assert.False(t, ok)

	_, _, err = s.ID(ctx, ir.Variable("v"))
	assert.Error(t, err)

	_, err = s.mustTerm(ctx, 9999)
	assert.True(t, errors.Is(err, errNotFound))
}

func TestEstimateAndCounts(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)
	ctx := context.Background()

	n, err := s.Estimate(ctx, ir.NewTriple(ir.Variable("s"), exURI("age"), ir.Variable("o")))
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.Estimate(ctx, ir.NewTriple(ir.Variable("s"), exURI("nothing"), ir.Variable("o")))
	require.NoError(t, err)
	assert.Zero(t, n)

	n, err = s.NodeCountInPosition(ctx, exURI("alice"), ir.PositionSubject)
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	n, err = s.NodeCountInPosition(ctx, exURI("bob"), ir.PositionObject)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)

	n, err = s.NodeCountInPosition(ctx, exURI("nobody"), ir.PositionObject)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestTriples_StopsOnError(t *testing.T) {
	s := createTestStore(t)
	seedPeople(t, s)
	stop := errors.New("stop")

	calls := 0
	err := s.Triples(context.Background(), ir.NewTriple(ir.Variable("s"), ir.Variable("p"), ir.Variable("o")), func(ir.Triple) error {
		calls++
		return stop
	})
	assert.ErrorIs(t, err, stop)
	assert.Equal(t, 1, calls)
}

func TestFindReifications_RoundTrip(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	st := exURI("st1")
	subj, pred, obj := exURI("alice"), exURI("knows"), exURI("bob")
	mustAdd(t, s, reify(st, subj, pred, obj)...)

	rs, err := s.FindReifications(ctx, ir.Variable("st"), subj, pred, obj)
	require.NoError(t, err)
	require.Len(t, rs, 1)
	assert.Equal(t, Reification{Name: st, Subject: subj, Predicate: pred, Object: obj}, rs[0])

	n, err := s.Estimate(ctx, rs[0].Triple())
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	// Deleting any canonical statement removes the reification for good.
	canonical := reify(st, subj, pred, obj)
	for _, i := range []int{2, 1, 3} {
		_, err := s.DeleteStatement(ctx, canonical[i])
		require.NoError(t, err)

		rs, err := s.FindReifications(ctx, ir.Variable("st"), subj, pred, obj)
		require.NoError(t, err)
		assert.Empty(t, rs, "after deleting %s", canonical[i])
	}
}

func TestFindReifications_Filters(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()
	mustAdd(t, s, reify(exURI("st1"), exURI("alice"), exURI("knows"), exURI("bob"))...)
	mustAdd(t, s, reify(exURI("st2"), exURI("bob"), exURI("knows"), exURI("bob"))...)
	// Incomplete: no rdf:object.
	mustAdd(t, s, reify(exURI("st3"), exURI("carol"), exURI("knows"), exURI("bob"))[:3]...)

	all, err := s.FindReifications(ctx, ir.Variable("n"), ir.Variable("s"), ir.Variable("p"), ir.Variable("o"))
	require.NoError(t, err)
	assert.Len(t, all, 2)

	x := ir.Variable("x")
	same, err := s.FindReifications(ctx, ir.Variable("n"), x, ir.Variable("p"), x)
	require.NoError(t, err)
	require.Len(t, same, 1)
	assert.Equal(t, exURI("st2"), same[0].Name)

	none, err := s.FindReifications(ctx, nil, exURI("dave"), nil, nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestFindReifications_EmptyStore(t *testing.T) {
	s := createTestStore(t)

	rs, err := s.FindReifications(context.Background(), nil, nil, nil, nil)
	require.NoError(t, err)
	assert.Empty(t, rs)
}
