package ir

import (
	"strings"
)

// Triple is a triple pattern. A non-nil Name makes it a reified triple
// pattern: the name term identifies the rdf:Statement whose
// rdf:subject/rdf:predicate/rdf:object are Subject/Predicate/Object.
type Triple struct {
	Subject   Term
	Predicate Term
	Object    Term
	Name      Term
}

// NewTriple creates an ordinary triple pattern.
func NewTriple(s, p, o Term) Triple {
	return Triple{Subject: s, Predicate: p, Object: o}
}

// NewReifiedTriple creates a reified triple pattern keyed by name.
func NewReifiedTriple(name, s, p, o Term) Triple {
	return Triple{Subject: s, Predicate: p, Object: o, Name: name}
}

// IsReified reports whether the pattern carries a statement name.
func (t Triple) IsReified() bool {
	return t.Name != nil
}

// Terms returns the slots in subject, predicate, object, name order.
// The name slot is omitted for ordinary triples.
func (t Triple) Terms() []Term {
	if t.Name == nil {
		return []Term{t.Subject, t.Predicate, t.Object}
	}
	return []Term{t.Subject, t.Predicate, t.Object, t.Name}
}

// Vars returns the distinct variables of the triple in slot order.
func (t Triple) Vars() []Variable {
	var vars []Variable
	for _, term := range t.Terms() {
		v, ok := term.(Variable)
		if !ok {
			continue
		}
		dup := false
		for _, seen := range vars {
			if seen == v {
				dup = true
				break
			}
		}
		if !dup {
			vars = append(vars, v)
		}
	}
	return vars
}

// HasVar reports whether v occurs in any slot.
func (t Triple) HasVar(v Variable) bool {
	for _, term := range t.Terms() {
		if term == Term(v) {
			return true
		}
	}
	return false
}

// Substitute replaces bound variables with their values.
func (t Triple) Substitute(b Binding) Triple {
	return Triple{
		Subject:   b.Resolve(t.Subject),
		Predicate: b.Resolve(t.Predicate),
		Object:    b.Resolve(t.Object),
		Name:      b.Resolve(t.Name),
	}
}

// String renders the triple in pattern syntax.
func (t Triple) String() string {
	if t.Name != nil {
		return "<<" + t.Name.String() + " | " + t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String() + ">>"
	}
	return t.Subject.String() + " " + t.Predicate.String() + " " + t.Object.String()
}

// Pattern is a conjunction of triple patterns.
// Order is not semantically significant but is the tie-break and the
// default evaluation order.
type Pattern []Triple

// Vars returns the distinct variables of the pattern in first-seen order.
func (p Pattern) Vars() []Variable {
	var vars []Variable
	seen := make(map[Variable]bool)
	for _, t := range p {
		for _, v := range t.Vars() {
			if !seen[v] {
				seen[v] = true
				vars = append(vars, v)
			}
		}
	}
	return vars
}

// Clone returns a copy that shares no backing array with p.
func (p Pattern) Clone() Pattern {
	if p == nil {
		return nil
	}
	out := make(Pattern, len(p))
	copy(out, p)
	return out
}

// Without returns p minus one occurrence of every triple in claimed.
func (p Pattern) Without(claimed Pattern) Pattern {
	out := p.Clone()
	for _, c := range claimed {
		for i, t := range out {
			if t == c {
				out = append(out[:i], out[i+1:]...)
				break
			}
		}
	}
	return out
}

// Equal reports whether p and q hold the same triples in the same order.
func (p Pattern) Equal(q Pattern) bool {
	if len(p) != len(q) {
		return false
	}
	for i := range p {
		if p[i] != q[i] {
			return false
		}
	}
	return true
}

// String renders one triple per line, each terminated by " .".
func (p Pattern) String() string {
	var sb strings.Builder
	for i, t := range p {
		if i > 0 {
			sb.WriteByte('\n')
		}
		sb.WriteString(t.String())
		sb.WriteString(" .")
	}
	return sb.String()
}

// SharesVar reports whether any variable of vars occurs in other.
func SharesVar(vars, other []Variable) bool {
	for _, v := range vars {
		for _, o := range other {
			if v == o {
				return true
			}
		}
	}
	return false
}
