package estimate

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	c1 = Constraint{Vars: []string{"v0"}, Max: 10}
	c2 = Constraint{Vars: []string{"v0", "v1"}, Max: 15}
	c3 = Constraint{Vars: []string{"v1", "v2"}, Max: 7}
	c4 = Constraint{Vars: []string{"v2"}, Max: 2}
)

func TestWorkedExample(t *testing.T) {
	e := New()
	assert.Equal(t, int64(1), e.Width(), "empty stack")

	e.Push(c1)
	assert.Equal(t, int64(10), e.Width())

	e.Push(c2)
	assert.Equal(t, int64(15), e.Width())

	_, ok := e.PopLast()
	require.True(t, ok)
	assert.Equal(t, int64(10), e.Width())

	e.Push(c2)
	e.Push(c3)
	assert.Equal(t, int64(70), e.Width())

	_, _ = e.PopLast()
	assert.Equal(t, int64(15), e.Width())

	e.Push(c3)
	e.Push(c4)
	assert.Equal(t, int64(30), e.Width())
	assert.Equal(t, 4, e.Len())
}

func TestPopEmpty(t *testing.T) {
	_, ok := New().PopLast()
	assert.False(t, ok)
}

func TestCoveredConstraintTakesGoverningBound(t *testing.T) {
	e := New()
	e.Push(Constraint{Vars: []string{"a", "b"}, Max: 100})
	e.Push(Constraint{Vars: []string{"a", "b"}, Max: 40})
	assert.Equal(t, int64(40), e.Width(), "tighter bound on the same variables governs")

	e.Push(Constraint{Vars: []string{"a"}, Max: 1000})
	assert.Equal(t, int64(40), e.Width(), "a looser covered constraint changes nothing")
}

func TestDisjointConstraintsMultiply(t *testing.T) {
	e := New()
	e.Push(Constraint{Vars: []string{"a"}, Max: 3})
	e.Push(Constraint{Vars: []string{"b"}, Max: 4})
	assert.Equal(t, int64(12), e.Width())
}

func TestWidthSaturates(t *testing.T) {
	e := New()
	e.Push(Constraint{Vars: []string{"a"}, Max: math.MaxInt64 / 2})
	e.Push(Constraint{Vars: []string{"b"}, Max: 4})
	assert.Equal(t, int64(math.MaxInt64), e.Width())
}

func TestZeroBound(t *testing.T) {
	e := New()
	e.Push(Constraint{Vars: []string{"a"}, Max: 50})
	e.Push(Constraint{Vars: []string{"a"}, Max: 0})
	assert.Zero(t, e.Width())
}

// Push followed by PopLast restores the previous width for arbitrary
// constraint sequences.
func TestPushPopSymmetry(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	vars := []string{"a", "b", "c", "d", "e"}

	for trial := 0; trial < 200; trial++ {
		e := New()
		for step := 0; step < 6; step++ {
			before := e.Width()

			n := 1 + rng.Intn(3)
			c := Constraint{Max: int64(1 + rng.Intn(50))}
			for i := 0; i < n; i++ {
				c.Vars = append(c.Vars, vars[rng.Intn(len(vars))])
			}

			e.Push(c)
			_ = e.Width()
			_, ok := e.PopLast()
			require.True(t, ok)
			require.Equal(t, before, e.Width(), "trial %d step %d", trial, step)

			e.Push(c)
		}
	}
}

func TestWidthLargeStackIsGreedy(t *testing.T) {
	e := New()
	var all []string
	for i := 0; i < 24; i++ {
		v := "v" + itoa(int64(i))
		all = append(all, v)
		e.Push(Constraint{Vars: []string{v}, Max: 3})
	}
	e.Push(Constraint{Vars: all, Max: 10})
	require.Greater(t, e.Len(), MaxExactConstraints)

	assert.Equal(t, int64(10), e.Width(), "one wide constraint beats 24 narrow ones")

	e.Push(Constraint{Vars: []string{"v0"}, Max: 0})
	assert.Zero(t, e.Width())
}

// The greedy cover never reports less than the exact width.
func TestGreedyWidthIsUpperBound(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	vars := []string{"a", "b", "c", "d", "e", "f"}

	for trial := 0; trial < 200; trial++ {
		e := New()
		for step := 0; step < 1+rng.Intn(10); step++ {
			c := Constraint{Max: int64(1 + rng.Intn(50))}
			for i := 0; i <= rng.Intn(3); i++ {
				c.Vars = append(c.Vars, vars[rng.Intn(len(vars))])
			}
			e.Push(c)
		}
		exact := e.width(math.MaxInt)
		greedy := e.width(0)
		require.GreaterOrEqual(t, greedy, exact, "trial %d: %v", trial, e.stack)
	}
}

func TestMulSaturating(t *testing.T) {
	assert.Equal(t, int64(6), MulSaturating(2, 3))
	assert.Equal(t, int64(0), MulSaturating(0, 3))
	assert.Equal(t, int64(math.MaxInt64), MulSaturating(math.MaxInt64, 2))
}

func TestConstraintString(t *testing.T) {
	assert.Equal(t, "{v0,v1}<=15", c2.String())
	assert.Equal(t, "{x}<=inf", Constraint{Vars: []string{"x"}, Max: math.MaxInt64}.String())
}
