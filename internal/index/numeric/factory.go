// Package numeric implements a range-queryable secondary index over the
// numeric objects of a single predicate.
//
// Each record maps a subject to the numeric literal it has for the indexed
// predicate. Two storage engines are available: an in-memory B-tree and a
// persistent badger store using an order-preserving float key encoding.
package numeric

import (
	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Factory creates records for triples of one predicate whose object is a
// numeric literal.
type Factory struct {
	Predicate ir.URI
}

// CreateRecord implements index.RecordFactory.
func (f Factory) CreateRecord(t ir.Triple) (index.Record, bool) {
	if t.Predicate != ir.Term(f.Predicate) {
		return index.Record{}, false
	}
	switch t.Subject.(type) {
	case ir.URI, ir.Blank:
	default:
		return index.Record{}, false
	}
	lit, ok := t.Object.(ir.Literal)
	if !ok {
		return index.Record{}, false
	}
	if _, ok := lit.Number(); !ok {
		return index.Record{}, false
	}
	return index.Record{Key: t.Subject, Value: lit}, true
}

// Matchers implements index.RecordFactory.
func (f Factory) Matchers() []ir.Triple {
	return []ir.Triple{ir.NewTriple(ir.Variable("s"), f.Predicate, ir.Variable("o"))}
}

// number returns the numeric value of a record value or bound term.
func number(t ir.Term) (float64, bool) {
	lit, ok := t.(ir.Literal)
	if !ok {
		return 0, false
	}
	return lit.Number()
}
