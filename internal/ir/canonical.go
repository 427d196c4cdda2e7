package ir

import (
	"golang.org/x/text/unicode/norm"
)

// normalize returns the NFC form of s.
// Every constructor routes text through here so that the resource
// dictionary never holds two spellings of the same IRI or literal.
func normalize(s string) string {
	if norm.NFC.IsNormalString(s) {
		return s
	}
	return norm.NFC.String(s)
}

// Canonical returns t with all of its text NFC-normalized.
// Variables and nil are returned unchanged.
func Canonical(t Term) Term {
	switch v := t.(type) {
	case URI:
		return URI(normalize(string(v)))
	case Literal:
		return Literal{Lexical: normalize(v.Lexical), Datatype: normalize(v.Datatype), Lang: v.Lang}
	case Blank:
		return Blank(normalize(string(v)))
	default:
		return t
	}
}

// CanonicalTriple normalizes every slot of t.
func CanonicalTriple(t Triple) Triple {
	t.Subject = Canonical(t.Subject)
	t.Predicate = Canonical(t.Predicate)
	t.Object = Canonical(t.Object)
	t.Name = Canonical(t.Name)
	return t
}
