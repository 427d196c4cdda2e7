package optimize

import "github.com/raytheonbbn/parliament-sub002/internal/ir"

// reificationGroup collects the four statements describing one reified
// statement name.
type reificationGroup struct {
	name ir.Term

	// Pattern positions of each statement, -1 if absent.
	typ, subject, predicate, obj int
}

func (g *reificationGroup) complete() bool {
	return g.typ >= 0 && g.subject >= 0 && g.predicate >= 0 && g.obj >= 0
}

// CollapseReifications replaces every complete set of four reification
// statements sharing a name (rdf:type rdf:Statement, rdf:subject,
// rdf:predicate and rdf:object) with one reified triple pattern. Partial
// sets are left untouched. Collapsed triples are appended after the
// remaining triples in the order their names first appear.
func CollapseReifications(p ir.Pattern) ir.Pattern {
	var groups []*reificationGroup
	byName := make(map[ir.Term]*reificationGroup)
	group := func(name ir.Term) *reificationGroup {
		g, ok := byName[name]
		if !ok {
			g = &reificationGroup{name: name, typ: -1, subject: -1, predicate: -1, obj: -1}
			byName[name] = g
			groups = append(groups, g)
		}
		return g
	}
	claim := func(slot *int, i int) {
		if *slot < 0 {
			*slot = i
		}
	}

	for i, t := range p {
		if !isReificationPart(t) {
			continue
		}
		g := group(t.Subject)
		switch t.Predicate {
		case ir.RDFSubject:
			claim(&g.subject, i)
		case ir.RDFPredicate:
			claim(&g.predicate, i)
		case ir.RDFObject:
			claim(&g.obj, i)
		default:
			claim(&g.typ, i)
		}
	}

	used := make(map[int]bool)
	var reified ir.Pattern
	for _, g := range groups {
		if !g.complete() {
			continue
		}
		for _, i := range []int{g.typ, g.subject, g.predicate, g.obj} {
			used[i] = true
		}
		reified = append(reified, ir.NewReifiedTriple(g.name, p[g.subject].Object, p[g.predicate].Object, p[g.obj].Object))
	}
	if len(reified) == 0 {
		return p
	}

	out := make(ir.Pattern, 0, len(p)-3*len(reified))
	for i, t := range p {
		if !used[i] {
			out = append(out, t)
		}
	}
	return append(out, reified...)
}
