package optimize

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

func reification(name, subj, pred, obj ir.Term) ir.Pattern {
	return ir.Pattern{
		ir.NewTriple(name, ir.RDFType, ir.RDFStatement),
		ir.NewTriple(name, ir.RDFSubject, subj),
		ir.NewTriple(name, ir.RDFPredicate, pred),
		ir.NewTriple(name, ir.RDFObject, obj),
	}
}

func TestCollapseReifications_CompleteGroup(t *testing.T) {
	st := ir.Variable("st")
	r := reification(st, x, exURI("knows"), o)
	name := ir.NewTriple(x, exURI("name"), n)
	p := ir.Pattern{r[0], r[1], name, r[2], r[3]}

	got := CollapseReifications(p)

	assert.Equal(t, ir.Pattern{name, ir.NewReifiedTriple(st, x, exURI("knows"), o)}, got)
}

func TestCollapseReifications_PartialGroupUntouched(t *testing.T) {
	st := ir.Variable("st")
	r := reification(st, x, exURI("knows"), o)
	p := ir.Pattern{r[1], r[2], r[3]}

	assert.Equal(t, p, CollapseReifications(p))
}

func TestCollapseReifications_MixedGroups(t *testing.T) {
	full := reification(exURI("st1"), exURI("alice"), exURI("knows"), exURI("bob"))
	partial := reification(exURI("st2"), s, exURI("likes"), o)[:2]
	p := append(append(ir.Pattern{}, partial...), full...)

	got := CollapseReifications(p)

	want := append(append(ir.Pattern{}, partial...),
		ir.NewReifiedTriple(exURI("st1"), exURI("alice"), exURI("knows"), exURI("bob")))
	assert.Equal(t, want, got)
}

func TestCollapseReifications_OtherTypeIsNotPart(t *testing.T) {
	st := ir.Variable("st")
	r := reification(st, x, exURI("knows"), o)
	r[0] = ir.NewTriple(st, ir.RDFType, exURI("Claim"))

	assert.Equal(t, r, CollapseReifications(r))
}

func TestCollapseReifications_ExtraStatementKept(t *testing.T) {
	st := ir.Variable("st")
	r := reification(st, x, exURI("knows"), o)
	extra := ir.NewTriple(st, ir.RDFObject, ir.Variable("o2"))
	p := append(r.Clone(), extra)

	got := CollapseReifications(p)

	assert.Equal(t, ir.Pattern{extra, ir.NewReifiedTriple(st, x, exURI("knows"), o)}, got)
}
