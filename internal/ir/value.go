package ir

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// Term is a sealed interface representing an RDF term or a query variable.
// Only URI, Literal, Blank and Variable implement this.
type Term interface {
	term() // Sealed - only these types implement it
	String() string
}

// URI is an IRI reference.
type URI string

func (URI) term() {}

// String renders the IRI in angle brackets.
func (u URI) String() string { return "<" + string(u) + ">" }

// Literal is an RDF literal. Datatype and Lang are mutually exclusive;
// both empty means a plain string literal.
type Literal struct {
	Lexical  string
	Datatype string
	Lang     string
}

func (Literal) term() {}

// String renders the literal in N-Triples form.
func (l Literal) String() string {
	q := strconv.Quote(l.Lexical)
	switch {
	case l.Lang != "":
		return q + "@" + l.Lang
	case l.Datatype != "":
		return q + "^^<" + l.Datatype + ">"
	default:
		return q
	}
}

// Number returns the numeric value of an XSD numeric literal.
// The second result is false for non-numeric datatypes, malformed lexicals
// and NaN, which has no place in a numeric order.
func (l Literal) Number() (float64, bool) {
	if !IsNumericDatatype(l.Datatype) {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSpace(l.Lexical), 64)
	if err != nil || math.IsNaN(f) {
		return 0, false
	}
	return f, true
}

// Blank is an opaque node or statement identifier.
type Blank string

func (Blank) term() {}

// String renders the blank node label.
func (b Blank) String() string { return "_:" + string(b) }

// Variable is a named placeholder. Variables compare by name.
type Variable string

func (Variable) term() {}

// String renders the variable with its leading question mark.
func (v Variable) String() string { return "?" + string(v) }

// Position identifies a slot in a stored statement.
// The numbering matches the store's per-position resource counters.
type Position int

const (
	PositionSubject   Position = 1
	PositionPredicate Position = 2
	PositionObject    Position = 3
)

// String returns the lowercase slot name.
func (p Position) String() string {
	switch p {
	case PositionSubject:
		return "subject"
	case PositionPredicate:
		return "predicate"
	case PositionObject:
		return "object"
	default:
		return fmt.Sprintf("position(%d)", int(p))
	}
}

// IsVar reports whether t is a variable.
func IsVar(t Term) bool {
	_, ok := t.(Variable)
	return ok
}

// IsConcrete reports whether t is a non-nil constant.
func IsConcrete(t Term) bool {
	return t != nil && !IsVar(t)
}

// NewURI creates a URI with NFC-normalized text.
func NewURI(s string) URI {
	return URI(normalize(s))
}

// NewLiteral creates a typed literal. An empty datatype yields a plain literal.
func NewLiteral(lexical, datatype string) Literal {
	return Literal{Lexical: normalize(lexical), Datatype: normalize(datatype)}
}

// NewLangLiteral creates a language-tagged literal.
func NewLangLiteral(lexical, lang string) Literal {
	return Literal{Lexical: normalize(lexical), Lang: strings.ToLower(lang)}
}

// NewPlainLiteral creates a plain string literal.
func NewPlainLiteral(lexical string) Literal {
	return Literal{Lexical: normalize(lexical)}
}

// IntLiteral creates an xsd:integer literal.
func IntLiteral(n int64) Literal {
	return Literal{Lexical: strconv.FormatInt(n, 10), Datatype: XSDInteger}
}

// DoubleLiteral creates an xsd:double literal.
func DoubleLiteral(f float64) Literal {
	return Literal{Lexical: strconv.FormatFloat(f, 'g', -1, 64), Datatype: XSDDouble}
}

// NewVariable creates a variable, stripping a leading '?' or '$'.
func NewVariable(name string) Variable {
	name = strings.TrimPrefix(strings.TrimPrefix(name, "?"), "$")
	return Variable(name)
}
