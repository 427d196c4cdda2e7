package engine

import (
	"context"
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker_BeginAndEnd(t *testing.T) {
	tr := NewTracker(NewFixedGenerator("q-1"))

	id, ctx, end := tr.Begin(context.Background(), "SELECT")
	assert.Equal(t, "q-1", id)
	require.Equal(t, 1, tr.Len())
	assert.Equal(t, "SELECT", tr.Running()[0].Query)

	end()
	end()
	assert.Equal(t, 0, tr.Len())
	assert.Error(t, ctx.Err(), "ending releases the context")
	assert.Nil(t, context.Cause(ctx), "a normal end is not a cancellation")
}

func TestTracker_Cancel(t *testing.T) {
	tr := NewTracker(NewFixedGenerator("q-1", "q-2"))
	_, ctx1, end1 := tr.Begin(context.Background(), "one")
	defer end1()
	_, ctx2, end2 := tr.Begin(context.Background(), "two")
	defer end2()

	assert.True(t, tr.Cancel("q-1"))
	assert.False(t, tr.Cancel("missing"))

	assert.True(t, errors.Is(context.Cause(ctx1), ErrCancelled))
	assert.NoError(t, ctx2.Err(), "other queries keep running")
	assert.Equal(t, 2, tr.Len(), "cancelled queries stay tracked until they end")
}

func TestTracker_CancelAll(t *testing.T) {
	tr := NewTracker(NewFixedGenerator("q-1", "q-2"))
	_, ctx1, end1 := tr.Begin(context.Background(), "one")
	defer end1()
	_, ctx2, end2 := tr.Begin(context.Background(), "two")
	defer end2()

	assert.Equal(t, 2, tr.CancelAll())
	assert.Error(t, ctx1.Err())
	assert.Error(t, ctx2.Err())
}

func TestTracker_RunningSortedByID(t *testing.T) {
	tr := NewTracker(NewFixedGenerator("q-b", "q-a"))
	_, _, endB := tr.Begin(context.Background(), "b")
	defer endB()
	_, _, endA := tr.Begin(context.Background(), "a")
	defer endA()

	running := tr.Running()
	require.Len(t, running, 2)
	assert.Equal(t, "q-a", running[0].ID)
	assert.Equal(t, "q-b", running[1].ID)
}
