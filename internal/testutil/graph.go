package testutil

import (
	"context"
	"sync"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Graph is an in-memory triple set with naive matching. It stands in for
// the base store in optimizer and solver tests: it supplies counts and
// evaluates remainder patterns by nested loops.
//
// Thread-safety: all methods are safe for concurrent use via internal mutex.
type Graph struct {
	mu      sync.Mutex
	triples []ir.Triple

	// Counts overrides NodeCountInPosition for specific terms.
	Counts map[ir.Term]int64

	evaluations int
	evaluated   []ir.Pattern
}

// NewGraph returns a graph holding triples.
func NewGraph(triples ...ir.Triple) *Graph {
	g := &Graph{Counts: make(map[ir.Term]int64)}
	g.Add(triples...)
	return g
}

// Add inserts triples, ignoring duplicates.
func (g *Graph) Add(triples ...ir.Triple) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range triples {
		if !g.has(t) {
			g.triples = append(g.triples, t)
		}
	}
}

// Remove deletes triples that are present.
func (g *Graph) Remove(triples ...ir.Triple) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, t := range triples {
		for i, x := range g.triples {
			if x == t {
				g.triples = append(g.triples[:i], g.triples[i+1:]...)
				break
			}
		}
	}
}

func (g *Graph) has(t ir.Triple) bool {
	for _, x := range g.triples {
		if x == t {
			return true
		}
	}
	return false
}

// NodeCountInPosition counts triples holding term in pos, unless Counts
// overrides the term.
func (g *Graph) NodeCountInPosition(_ context.Context, term ir.Term, pos ir.Position) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if n, ok := g.Counts[term]; ok {
		return n, nil
	}
	var n int64
	for _, t := range g.triples {
		var slot ir.Term
		switch pos {
		case ir.PositionSubject:
			slot = t.Subject
		case ir.PositionPredicate:
			slot = t.Predicate
		default:
			slot = t.Object
		}
		if slot == term {
			n++
		}
	}
	return n, nil
}

// Estimate counts triples matching t.
func (g *Graph) Estimate(_ context.Context, t ir.Triple) (int64, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var n int64
	for _, x := range g.triples {
		if _, ok := match(t, x, ir.EmptyBinding()); ok {
			n++
		}
	}
	return n, nil
}

// Triples calls fn for every stored triple matching matcher.
func (g *Graph) Triples(ctx context.Context, matcher ir.Triple, fn func(ir.Triple) error) error {
	g.mu.Lock()
	snapshot := append([]ir.Triple(nil), g.triples...)
	g.mu.Unlock()
	for _, x := range snapshot {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, ok := match(matcher, x, ir.EmptyBinding()); ok {
			if err := fn(x); err != nil {
				return err
			}
		}
	}
	return nil
}

// Evaluate matches p against the graph for every input binding, triple by
// triple in the given order.
func (g *Graph) Evaluate(ctx context.Context, p ir.Pattern, input cursor.Cursor) cursor.Cursor {
	g.mu.Lock()
	g.evaluations++
	g.evaluated = append(g.evaluated, p.Clone())
	snapshot := append([]ir.Triple(nil), g.triples...)
	g.mu.Unlock()

	out := input
	for _, t := range p {
		out = cursor.RepeatApply(ctx, out, func(b ir.Binding) cursor.Cursor {
			var results []ir.Binding
			for _, x := range snapshot {
				if nb, ok := match(t, x, b); ok {
					results = append(results, nb)
				}
			}
			return cursor.FromSlice(results)
		})
	}
	return out
}

// Evaluations returns how many times Evaluate was called.
func (g *Graph) Evaluations() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.evaluations
}

// Evaluated returns the patterns passed to Evaluate, in call order.
func (g *Graph) Evaluated() []ir.Pattern {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]ir.Pattern(nil), g.evaluated...)
}

// match unifies pattern t with the stored triple x under b.
func match(t, x ir.Triple, b ir.Binding) (ir.Binding, bool) {
	if t.IsReified() {
		return b, false
	}
	for _, pair := range [][2]ir.Term{{t.Subject, x.Subject}, {t.Predicate, x.Predicate}, {t.Object, x.Object}} {
		slot := b.Resolve(pair[0])
		if v, ok := slot.(ir.Variable); ok {
			b = b.With(v, pair[1])
			continue
		}
		if slot != pair[1] {
			return b, false
		}
	}
	return b, true
}
