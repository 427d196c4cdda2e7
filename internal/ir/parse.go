package ir

import (
	"fmt"
	"strconv"
	"strings"
	"unicode"
)

// Query is a parsed graph pattern with its filters.
type Query struct {
	Prefixes map[string]string
	Pattern  Pattern
	Filters  []Expr
}

// ParseError reports a syntax error with its source position.
type ParseError struct {
	Line    int
	Col     int
	Message string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%d:%d: %s", e.Line, e.Col, e.Message)
}

// ParseQuery parses the line-oriented pattern syntax:
//
//	PREFIX ex: <http://example.org/>
//	?s ex:age ?age ;
//	   a ex:Person .
//	FILTER(?age >= 18 && ?age < 65)
//
// Supported terms are <iri>, prefixed names, ?var, _:blank, quoted
// literals with @lang or ^^datatype, bare numbers and the keyword a.
// Predicate-object lists (;) and object lists (,) are expanded.
func ParseQuery(src string) (*Query, error) {
	p := &parser{lex: newLexer(src), prefixes: defaultPrefixes()}
	q := &Query{}
	if err := p.parse(q); err != nil {
		return nil, err
	}
	q.Prefixes = p.prefixes
	return q, nil
}

// ParseTriples parses ground statements in the same syntax. Variables and
// filters are rejected.
func ParseTriples(src string) ([]Triple, error) {
	q, err := ParseQuery(src)
	if err != nil {
		return nil, err
	}
	if len(q.Filters) > 0 {
		return nil, fmt.Errorf("filters are not allowed in data")
	}
	for _, t := range q.Pattern {
		if len(t.Vars()) > 0 {
			return nil, fmt.Errorf("variables are not allowed in data: %s", t)
		}
	}
	return q.Pattern, nil
}

// ParseTerm parses a single term. prefixes extend the built-in rdf and
// xsd prefixes.
func ParseTerm(src string, prefixes map[string]string) (Term, error) {
	p := &parser{lex: newLexer(src), prefixes: defaultPrefixes()}
	for name, ns := range prefixes {
		p.prefixes[name] = ns
	}
	t, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	rest, err := p.lex.Next()
	if err != nil {
		return nil, err
	}
	if rest.kind != tokEOF {
		return nil, p.lex.errorf(rest, "unexpected %q after term", rest.text)
	}
	return t, nil
}

// MustParseQuery is like ParseQuery but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseQuery(src string) *Query {
	q, err := ParseQuery(src)
	if err != nil {
		panic(err)
	}
	return q
}

func defaultPrefixes() map[string]string {
	return map[string]string{
		"rdf": RDFNamespace,
		"xsd": XSDNamespace,
	}
}

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIRI
	tokPName
	tokVar
	tokBlank
	tokString
	tokLang
	tokNumber
	tokWord
	tokPunct
)

type token struct {
	kind tokenKind
	text string
	line int
	col  int
}

type lexer struct {
	src  []rune
	pos  int
	line int
	col  int
	peek *token
}

func newLexer(src string) *lexer {
	return &lexer{src: []rune(src), line: 1, col: 1}
}

func (l *lexer) errorf(t token, format string, args ...any) error {
	return &ParseError{Line: t.line, Col: t.col, Message: fmt.Sprintf(format, args...)}
}

func (l *lexer) advance() rune {
	r := l.src[l.pos]
	l.pos++
	if r == '\n' {
		l.line++
		l.col = 1
	} else {
		l.col++
	}
	return r
}

func (l *lexer) at(offset int) rune {
	if l.pos+offset >= len(l.src) {
		return 0
	}
	return l.src[l.pos+offset]
}

func (l *lexer) skipSpace() {
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if r == '#' {
			for l.pos < len(l.src) && l.src[l.pos] != '\n' {
				l.advance()
			}
			continue
		}
		if !unicode.IsSpace(r) {
			return
		}
		l.advance()
	}
}

func (l *lexer) Peek() (token, error) {
	if l.peek != nil {
		return *l.peek, nil
	}
	t, err := l.scan()
	if err != nil {
		return token{}, err
	}
	l.peek = &t
	return t, nil
}

func (l *lexer) Next() (token, error) {
	if l.peek != nil {
		t := *l.peek
		l.peek = nil
		return t, nil
	}
	return l.scan()
}

func (l *lexer) scan() (token, error) {
	l.skipSpace()
	tok := token{line: l.line, col: l.col}
	if l.pos >= len(l.src) {
		tok.kind = tokEOF
		return tok, nil
	}
	r := l.src[l.pos]
	switch {
	case r == '<' && l.looksLikeIRI():
		l.advance()
		var sb strings.Builder
		for l.src[l.pos] != '>' {
			sb.WriteRune(l.advance())
		}
		l.advance()
		tok.kind, tok.text = tokIRI, sb.String()
	case r == '?' || r == '$':
		l.advance()
		tok.kind, tok.text = tokVar, l.readName()
		if tok.text == "" {
			return tok, l.errorf(tok, "empty variable name")
		}
	case r == '_' && l.at(1) == ':':
		l.advance()
		l.advance()
		tok.kind, tok.text = tokBlank, l.readName()
	case r == '"':
		s, err := l.readString()
		if err != nil {
			return tok, l.errorf(tok, "%v", err)
		}
		tok.kind, tok.text = tokString, s
	case r == '@':
		l.advance()
		tok.kind, tok.text = tokLang, l.readName()
	case unicode.IsDigit(r) || ((r == '-' || r == '+') && unicode.IsDigit(l.at(1))):
		tok.kind, tok.text = tokNumber, l.readNumber()
	case unicode.IsLetter(r) || r == ':':
		name := l.readName()
		if l.at(0) == ':' {
			l.advance()
			tok.kind, tok.text = tokPName, name+":"+l.readName()
		} else {
			tok.kind, tok.text = tokWord, name
		}
	default:
		tok.kind = tokPunct
		two := string([]rune{r, l.at(1)})
		switch two {
		case "<=", ">=", "!=", "&&", "||", "^^":
			l.advance()
			l.advance()
			tok.text = two
			return tok, nil
		}
		switch r {
		case '.', ';', ',', '(', ')', '<', '>', '=', '!', '{', '}':
			l.advance()
			tok.text = string(r)
		default:
			return tok, l.errorf(tok, "unexpected character %q", r)
		}
	}
	return tok, nil
}

// looksLikeIRI distinguishes <iri> from the less-than operator: an IRI
// reaches '>' without crossing whitespace.
func (l *lexer) looksLikeIRI() bool {
	for i := l.pos + 1; i < len(l.src); i++ {
		switch r := l.src[i]; {
		case r == '>':
			return i > l.pos+1
		case unicode.IsSpace(r) || r == '<' || r == '=' || r == '"':
			return false
		}
	}
	return false
}

func (l *lexer) readName() string {
	var sb strings.Builder
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' || r == '-' {
			sb.WriteRune(l.advance())
			continue
		}
		// dots are allowed inside names but not at the end
		if r == '.' && (unicode.IsLetter(l.at(1)) || unicode.IsDigit(l.at(1))) {
			sb.WriteRune(l.advance())
			continue
		}
		break
	}
	return sb.String()
}

func (l *lexer) readNumber() string {
	var sb strings.Builder
	if r := l.src[l.pos]; r == '-' || r == '+' {
		sb.WriteRune(l.advance())
	}
	for l.pos < len(l.src) {
		r := l.src[l.pos]
		switch {
		case unicode.IsDigit(r):
			sb.WriteRune(l.advance())
		case r == '.' && unicode.IsDigit(l.at(1)):
			sb.WriteRune(l.advance())
		case (r == 'e' || r == 'E') && (unicode.IsDigit(l.at(1)) || l.at(1) == '-' || l.at(1) == '+'):
			sb.WriteRune(l.advance())
			sb.WriteRune(l.advance())
		default:
			return sb.String()
		}
	}
	return sb.String()
}

func (l *lexer) readString() (string, error) {
	start := l.pos
	l.advance()
	for l.pos < len(l.src) {
		r := l.advance()
		if r == '\\' && l.pos < len(l.src) {
			l.advance()
			continue
		}
		if r == '"' {
			return strconv.Unquote(string(l.src[start:l.pos]))
		}
	}
	return "", fmt.Errorf("unterminated string")
}

type parser struct {
	lex      *lexer
	prefixes map[string]string
}

func (p *parser) expect(text string) error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	if t.kind != tokPunct || t.text != text {
		return p.lex.errorf(t, "expected %q, got %q", text, t.text)
	}
	return nil
}

func (p *parser) parse(q *Query) error {
	for {
		t, err := p.lex.Peek()
		if err != nil {
			return err
		}
		switch {
		case t.kind == tokEOF:
			return nil
		case t.kind == tokWord && strings.EqualFold(t.text, "PREFIX"):
			if err := p.parsePrefix(false); err != nil {
				return err
			}
		case t.kind == tokLang && t.text == "prefix":
			if err := p.parsePrefix(true); err != nil {
				return err
			}
		case t.kind == tokWord && strings.EqualFold(t.text, "FILTER"):
			p.lex.Next()
			e, err := p.parseFilter()
			if err != nil {
				return err
			}
			q.Filters = append(q.Filters, e)
		case t.kind == tokPunct && t.text == ".":
			p.lex.Next()
		default:
			triples, err := p.parseTriples()
			if err != nil {
				return err
			}
			q.Pattern = append(q.Pattern, triples...)
		}
	}
}

func (p *parser) parsePrefix(turtle bool) error {
	p.lex.Next()
	name, err := p.lex.Next()
	if err != nil {
		return err
	}
	if name.kind != tokPName || !strings.HasSuffix(name.text, ":") {
		return p.lex.errorf(name, "expected prefix name, got %q", name.text)
	}
	iri, err := p.lex.Next()
	if err != nil {
		return err
	}
	if iri.kind != tokIRI {
		return p.lex.errorf(iri, "expected IRI, got %q", iri.text)
	}
	p.prefixes[strings.TrimSuffix(name.text, ":")] = iri.text
	if turtle {
		return p.expect(".")
	}
	return nil
}

func (p *parser) parseTriples() ([]Triple, error) {
	subject, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	var out []Triple
	for {
		t, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}
		var pred Term
		if t.kind == tokWord && t.text == "a" {
			p.lex.Next()
			pred = RDFType
		} else if pred, err = p.parseTerm(); err != nil {
			return nil, err
		}
		for {
			obj, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			out = append(out, NewTriple(subject, pred, obj))
			t, err := p.lex.Peek()
			if err != nil {
				return nil, err
			}
			if t.kind == tokPunct && t.text == "," {
				p.lex.Next()
				continue
			}
			break
		}
		t, err = p.lex.Next()
		if err != nil {
			return nil, err
		}
		switch {
		case t.kind == tokPunct && t.text == ";":
			// a trailing ';' before '.' is allowed
			if nt, _ := p.lex.Peek(); nt.kind == tokPunct && nt.text == "." {
				p.lex.Next()
				return out, nil
			}
			continue
		case t.kind == tokPunct && t.text == ".":
			return out, nil
		case t.kind == tokEOF:
			return out, nil
		default:
			return nil, p.lex.errorf(t, "expected '.' or ';', got %q", t.text)
		}
	}
}

func (p *parser) parseTerm() (Term, error) {
	t, err := p.lex.Next()
	if err != nil {
		return nil, err
	}
	switch t.kind {
	case tokIRI:
		return NewURI(t.text), nil
	case tokPName:
		return p.expand(t)
	case tokVar:
		return Variable(t.text), nil
	case tokBlank:
		return Blank(t.text), nil
	case tokNumber:
		return numberLiteral(t.text), nil
	case tokString:
		nt, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}
		if nt.kind == tokLang {
			p.lex.Next()
			return NewLangLiteral(t.text, nt.text), nil
		}
		if nt.kind == tokPunct && nt.text == "^^" {
			p.lex.Next()
			dt, err := p.parseTerm()
			if err != nil {
				return nil, err
			}
			u, ok := dt.(URI)
			if !ok {
				return nil, p.lex.errorf(nt, "datatype must be an IRI")
			}
			return NewLiteral(t.text, string(u)), nil
		}
		return NewPlainLiteral(t.text), nil
	case tokWord:
		if t.text == "true" || t.text == "false" {
			return NewLiteral(t.text, XSDNamespace+"boolean"), nil
		}
	}
	return nil, p.lex.errorf(t, "expected term, got %q", t.text)
}

func (p *parser) expand(t token) (Term, error) {
	prefix, local, _ := strings.Cut(t.text, ":")
	ns, ok := p.prefixes[prefix]
	if !ok {
		return nil, p.lex.errorf(t, "unknown prefix %q", prefix)
	}
	return NewURI(ns + local), nil
}

func numberLiteral(text string) Literal {
	switch {
	case strings.ContainsAny(text, "eE"):
		return NewLiteral(text, XSDDouble)
	case strings.Contains(text, "."):
		return NewLiteral(text, XSDDecimal)
	default:
		return NewLiteral(strings.TrimPrefix(text, "+"), XSDInteger)
	}
}

// parseFilter parses FILTER(expr) or FILTER expr after the keyword.
func (p *parser) parseFilter() (Expr, error) {
	return p.parseOr()
}

func (p *parser) parseOr() (Expr, error) {
	left, err := p.parseAnd()
	if err != nil {
		return nil, err
	}
	exprs := []Expr{left}
	for {
		t, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}
		if t.kind != tokPunct || t.text != "||" {
			break
		}
		p.lex.Next()
		right, err := p.parseAnd()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return left, nil
	}
	return Or{Exprs: exprs}, nil
}

func (p *parser) parseAnd() (Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	exprs := []Expr{left}
	for {
		t, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}
		if t.kind != tokPunct || t.text != "&&" {
			break
		}
		p.lex.Next()
		right, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		exprs = append(exprs, right)
	}
	if len(exprs) == 1 {
		return left, nil
	}
	return And{Exprs: exprs}, nil
}

func (p *parser) parseUnary() (Expr, error) {
	t, err := p.lex.Peek()
	if err != nil {
		return nil, err
	}
	switch {
	case t.kind == tokPunct && t.text == "!":
		p.lex.Next()
		e, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		return Not{Expr: e}, nil
	case t.kind == tokPunct && t.text == "(":
		p.lex.Next()
		e, err := p.parseOr()
		if err != nil {
			return nil, err
		}
		return e, p.expect(")")
	case t.kind == tokWord && strings.EqualFold(t.text, "bound"):
		p.lex.Next()
		if err := p.expect("("); err != nil {
			return nil, err
		}
		v, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		vv, ok := v.(Variable)
		if !ok {
			return nil, p.lex.errorf(t, "bound() takes a variable")
		}
		return Bound{Var: vv}, p.expect(")")
	}
	return p.parseComparison()
}

func (p *parser) parseComparison() (Expr, error) {
	left, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	t, err := p.lex.Next()
	if err != nil {
		return nil, err
	}
	if t.kind == tokWord && (strings.EqualFold(t.text, "IN") || strings.EqualFold(t.text, "NOT")) {
		negated := strings.EqualFold(t.text, "NOT")
		if negated {
			in, err := p.lex.Next()
			if err != nil {
				return nil, err
			}
			if in.kind != tokWord || !strings.EqualFold(in.text, "IN") {
				return nil, p.lex.errorf(in, "expected IN after NOT")
			}
		}
		v, ok := left.(Variable)
		if !ok {
			return nil, p.lex.errorf(t, "IN requires a variable on the left")
		}
		values, err := p.parseTermList()
		if err != nil {
			return nil, err
		}
		return OneOf{Var: v, Values: values, Negated: negated}, nil
	}
	if t.kind != tokPunct {
		return nil, p.lex.errorf(t, "expected comparison operator, got %q", t.text)
	}
	op := CompareOp(t.text)
	switch op {
	case OpLT, OpLE, OpGT, OpGE, OpEQ, OpNE:
	default:
		return nil, p.lex.errorf(t, "expected comparison operator, got %q", t.text)
	}
	right, err := p.parseTerm()
	if err != nil {
		return nil, err
	}
	return Compare{Op: op, Left: left, Right: right}, nil
}

func (p *parser) parseTermList() ([]Term, error) {
	if err := p.expect("("); err != nil {
		return nil, err
	}
	var out []Term
	for {
		t, err := p.lex.Peek()
		if err != nil {
			return nil, err
		}
		if t.kind == tokPunct && t.text == ")" {
			p.lex.Next()
			return out, nil
		}
		if len(out) > 0 {
			if err := p.expect(","); err != nil {
				return nil, err
			}
		}
		term, err := p.parseTerm()
		if err != nil {
			return nil, err
		}
		out = append(out, term)
	}
}
