// Package cursor provides lazy, pull-based streams of bindings.
//
// A Cursor is one-shot: callers loop on Next, read Binding, and check Err
// once Next returns false. Close releases resources and is safe to call
// more than once. Stages compose by wrapping: RepeatApply turns every input
// binding into a fresh sub-cursor, which is how joins thread bindings from
// one evaluation step into the next.
//
// Cancellation is carried by a context.Context captured when a cursor is
// built. Guard checks it at every pull; once the context is done the next
// pull fails with ErrInterrupted and no further bindings are returned.
package cursor

import (
	"context"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// ErrInterrupted is returned once a query's context is cancelled.
var ErrInterrupted = errors.New("query interrupted")

// IsInterrupted reports whether err is (or wraps) ErrInterrupted.
func IsInterrupted(err error) bool {
	return errors.Is(err, ErrInterrupted)
}

// Cursor is a lazy stream of bindings.
type Cursor interface {
	// Next advances to the next binding. It returns false at the end of
	// the stream or on error.
	Next() bool

	// Binding returns the current binding. Valid only after Next returned true.
	Binding() ir.Binding

	// Err returns the first error encountered, if any.
	Err() error

	// Close releases resources held by the cursor.
	Close() error
}

// sliceCursor iterates a fixed slice of bindings.
type sliceCursor struct {
	items []ir.Binding
	pos   int
	cur   ir.Binding
}

// FromSlice returns a cursor over bs.
func FromSlice(bs []ir.Binding) Cursor {
	return &sliceCursor{items: bs}
}

// Single returns a cursor producing exactly b.
func Single(b ir.Binding) Cursor {
	return &sliceCursor{items: []ir.Binding{b}}
}

// Empty returns a cursor producing nothing.
func Empty() Cursor {
	return &sliceCursor{}
}

func (c *sliceCursor) Next() bool {
	if c.pos >= len(c.items) {
		return false
	}
	c.cur = c.items[c.pos]
	c.pos++
	return true
}

func (c *sliceCursor) Binding() ir.Binding { return c.cur }
func (c *sliceCursor) Err() error          { return nil }
func (c *sliceCursor) Close() error {
	c.pos = len(c.items)
	return nil
}

// errCursor produces no bindings and reports err.
type errCursor struct{ err error }

// Fail returns a cursor that yields no bindings and reports err.
func Fail(err error) Cursor {
	return &errCursor{err: err}
}

func (c *errCursor) Next() bool          { return false }
func (c *errCursor) Binding() ir.Binding { return ir.EmptyBinding() }
func (c *errCursor) Err() error          { return c.err }
func (c *errCursor) Close() error        { return nil }

// FuncCursor adapts a pull function into a Cursor. next returns the next
// binding, false at end of stream, or an error.
type FuncCursor struct {
	next    func() (ir.Binding, bool, error)
	closeFn func() error
	cur     ir.Binding
	err     error
	done    bool
}

// FromFunc builds a cursor from a pull function and an optional close hook.
func FromFunc(next func() (ir.Binding, bool, error), closeFn func() error) *FuncCursor {
	return &FuncCursor{next: next, closeFn: closeFn}
}

func (c *FuncCursor) Next() bool {
	if c.done {
		return false
	}
	b, ok, err := c.next()
	if err != nil {
		c.err = err
		c.done = true
		return false
	}
	if !ok {
		c.done = true
		return false
	}
	c.cur = b
	return true
}

func (c *FuncCursor) Binding() ir.Binding { return c.cur }
func (c *FuncCursor) Err() error          { return c.err }

func (c *FuncCursor) Close() error {
	c.done = true
	if c.closeFn == nil {
		return nil
	}
	fn := c.closeFn
	c.closeFn = nil
	return fn()
}

// guardCursor fails with ErrInterrupted once ctx is done.
type guardCursor struct {
	ctx   context.Context
	inner Cursor
	err   error
}

// Guard wraps c so that every pull first checks ctx.
func Guard(ctx context.Context, c Cursor) Cursor {
	return &guardCursor{ctx: ctx, inner: c}
}

func (g *guardCursor) Next() bool {
	if g.err != nil {
		return false
	}
	if err := g.ctx.Err(); err != nil {
		g.err = errors.Mark(errors.Wrap(err, "cursor pull"), ErrInterrupted)
		return false
	}
	return g.inner.Next()
}

func (g *guardCursor) Binding() ir.Binding { return g.inner.Binding() }

func (g *guardCursor) Err() error {
	if g.err != nil {
		return g.err
	}
	return g.inner.Err()
}

func (g *guardCursor) Close() error { return g.inner.Close() }

// Stage produces the sub-cursor for one input binding.
type Stage func(b ir.Binding) Cursor

// repeatApply is the flat-map of input through stage.
type repeatApply struct {
	ctx   context.Context
	input Cursor
	stage Stage
	cur   Cursor
	err   error
}

// RepeatApply returns a cursor that, for every binding pulled from input,
// opens stage(binding) and drains it before pulling the next input.
// ctx is checked before each stage is opened.
func RepeatApply(ctx context.Context, input Cursor, stage Stage) Cursor {
	return &repeatApply{ctx: ctx, input: input, stage: stage}
}

func (r *repeatApply) Next() bool {
	if r.err != nil {
		return false
	}
	for {
		if r.cur != nil {
			if r.cur.Next() {
				return true
			}
			err := r.cur.Err()
			closeErr := r.cur.Close()
			r.cur = nil
			if err != nil {
				r.err = err
				return false
			}
			if closeErr != nil {
				r.err = closeErr
				return false
			}
		}
		if err := r.ctx.Err(); err != nil {
			r.err = errors.Mark(errors.Wrap(err, "opening stage"), ErrInterrupted)
			return false
		}
		if !r.input.Next() {
			r.err = r.input.Err()
			return false
		}
		r.cur = r.stage(r.input.Binding())
	}
}

func (r *repeatApply) Binding() ir.Binding { return r.cur.Binding() }
func (r *repeatApply) Err() error          { return r.err }

func (r *repeatApply) Close() error {
	var err error
	if r.cur != nil {
		err = r.cur.Close()
		r.cur = nil
	}
	if inErr := r.input.Close(); err == nil {
		err = inErr
	}
	return err
}

// filterCursor drops bindings that do not satisfy keep.
type filterCursor struct {
	inner Cursor
	keep  func(ir.Binding) bool
}

// Filter returns the bindings of c for which keep returns true.
func Filter(c Cursor, keep func(ir.Binding) bool) Cursor {
	return &filterCursor{inner: c, keep: keep}
}

// FilterExpr keeps bindings that satisfy e. Evaluation errors count as false.
func FilterExpr(c Cursor, e ir.Expr) Cursor {
	return Filter(c, func(b ir.Binding) bool { return ir.Satisfied(e, b) })
}

func (f *filterCursor) Next() bool {
	for f.inner.Next() {
		if f.keep(f.inner.Binding()) {
			return true
		}
	}
	return false
}

func (f *filterCursor) Binding() ir.Binding { return f.inner.Binding() }
func (f *filterCursor) Err() error          { return f.inner.Err() }
func (f *filterCursor) Close() error        { return f.inner.Close() }

// concatCursor drains each cursor in turn.
type concatCursor struct {
	parts []Cursor
	err   error
}

// Concat returns the bindings of every cursor in order.
func Concat(parts ...Cursor) Cursor {
	return &concatCursor{parts: parts}
}

func (c *concatCursor) Next() bool {
	for len(c.parts) > 0 {
		if c.parts[0].Next() {
			return true
		}
		if err := c.parts[0].Err(); err != nil {
			c.err = err
			return false
		}
		if err := c.parts[0].Close(); err != nil {
			c.err = err
			return false
		}
		c.parts = c.parts[1:]
	}
	return false
}

func (c *concatCursor) Binding() ir.Binding { return c.parts[0].Binding() }
func (c *concatCursor) Err() error          { return c.err }

func (c *concatCursor) Close() error {
	var err error
	for _, p := range c.parts {
		if cerr := p.Close(); err == nil {
			err = cerr
		}
	}
	c.parts = nil
	return err
}

// Collect drains c into a slice and closes it.
func Collect(c Cursor) ([]ir.Binding, error) {
	var out []ir.Binding
	for c.Next() {
		out = append(out, c.Binding())
	}
	err := c.Err()
	if closeErr := c.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, err
	}
	return out, nil
}
