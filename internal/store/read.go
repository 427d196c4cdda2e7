package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
	"github.com/raytheonbbn/parliament-sub002/internal/querysql"
)

// Match is one stored statement matching a lookup.
type Match struct {
	StatementID int64

	SubjectID   int64
	PredicateID int64
	ObjectID    int64

	Subject   ir.Term
	Predicate ir.Term
	Object    ir.Term

	Deleted  bool
	Inferred bool
}

// Literal reports whether the object is a literal.
func (m Match) Literal() bool {
	_, ok := m.Object.(ir.Literal)
	return ok
}

// Triple returns the matched statement.
func (m Match) Triple() ir.Triple {
	return ir.NewTriple(m.Subject, m.Predicate, m.Object)
}

// MatchCursor iterates the matches of a lookup in statement id order.
// Matches are read in full before Find returns so that callers may issue
// further lookups while iterating.
type MatchCursor struct {
	matches []Match
	pos     int
	closed  bool
}

// Next advances to the next match.
func (c *MatchCursor) Next() bool {
	if c.closed || c.pos >= len(c.matches) {
		return false
	}
	c.pos++
	return true
}

// Match returns the current match. Only valid after Next returns true.
func (c *MatchCursor) Match() Match {
	return c.matches[c.pos-1]
}

// Err always returns nil; read errors surface from Find.
func (c *MatchCursor) Err() error { return nil }

// Close releases the cursor. Idempotent.
func (c *MatchCursor) Close() error {
	c.closed = true
	c.matches = nil
	return nil
}

// Len returns the total number of matches.
func (c *MatchCursor) Len() int {
	return len(c.matches)
}

// Find returns the live statements matching t. Variables and nil slots
// match anything; a variable used in two slots requires equal resources.
func (s *Store) Find(ctx context.Context, t ir.Triple) (*MatchCursor, error) {
	return s.find(ctx, t, false)
}

// FindIncludingDeleted is Find but also returns statements marked deleted.
func (s *Store) FindIncludingDeleted(ctx context.Context, t ir.Triple) (*MatchCursor, error) {
	return s.find(ctx, t, true)
}

func (s *Store) find(ctx context.Context, t ir.Triple, includeDeleted bool) (*MatchCursor, error) {
	if t.IsReified() {
		return nil, fmt.Errorf("find %s: use FindReifications for reified triples", t)
	}
	l, ok, err := s.lookupFor(ctx, t)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", t, err)
	}
	if !ok {
		return &MatchCursor{}, nil
	}
	l.IncludeDeleted = includeDeleted

	query, params := s.compiler.CompileFind(l)
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", t, err)
	}
	defer rows.Close()

	var matches []Match
	for rows.Next() {
		m, err := scanMatch(rows)
		if err != nil {
			return nil, fmt.Errorf("find %s: %w", t, err)
		}
		matches = append(matches, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("find %s: iterate: %w", t, err)
	}
	return &MatchCursor{matches: matches}, nil
}

// lookupFor resolves the constants of t to resource ids. ok is false when a
// constant was never stored, in which case nothing can match.
func (s *Store) lookupFor(ctx context.Context, t ir.Triple) (querysql.Lookup, bool, error) {
	var l querysql.Lookup
	slots := []struct {
		term ir.Term
		dst  **int64
	}{
		{t.Subject, &l.Subject},
		{t.Predicate, &l.Predicate},
		{t.Object, &l.Object},
	}
	for _, slot := range slots {
		if !ir.IsConcrete(slot.term) {
			continue
		}
		id, found, err := s.ID(ctx, slot.term)
		if err != nil {
			return l, false, err
		}
		if !found {
			return l, false, nil
		}
		*slot.dst = &id
	}

	sv, sVar := t.Subject.(ir.Variable)
	pv, pVar := t.Predicate.(ir.Variable)
	ov, oVar := t.Object.(ir.Variable)
	l.SameSubjectPredicate = sVar && pVar && sv == pv
	l.SameSubjectObject = sVar && oVar && sv == ov
	l.SamePredicateObject = pVar && oVar && pv == ov
	return l, true, nil
}

func scanMatch(rows *sql.Rows) (Match, error) {
	var (
		m                 Match
		deleted, inferred int
		sKind, sLex, sDT  string
		sLang             string
		pKind, pLex, pDT  string
		pLang             string
		oKind, oLex, oDT  string
		oLang             string
	)
	err := rows.Scan(&m.StatementID, &deleted, &inferred,
		&m.SubjectID, &sKind, &sLex, &sDT, &sLang,
		&m.PredicateID, &pKind, &pLex, &pDT, &pLang,
		&m.ObjectID, &oKind, &oLex, &oDT, &oLang)
	if err != nil {
		return Match{}, fmt.Errorf("scan match: %w", err)
	}
	if m.Subject, err = termOf(sKind, sLex, sDT, sLang); err != nil {
		return Match{}, err
	}
	if m.Predicate, err = termOf(pKind, pLex, pDT, pLang); err != nil {
		return Match{}, err
	}
	if m.Object, err = termOf(oKind, oLex, oDT, oLang); err != nil {
		return Match{}, err
	}
	m.Deleted = deleted != 0
	m.Inferred = inferred != 0
	return m, nil
}

// Triples calls fn for every live statement matching matcher.
// It stops at the first error fn returns.
func (s *Store) Triples(ctx context.Context, matcher ir.Triple, fn func(ir.Triple) error) error {
	m, err := s.Find(ctx, matcher)
	if err != nil {
		return err
	}
	defer m.Close()
	for m.Next() {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(m.Match().Triple()); err != nil {
			return err
		}
	}
	return m.Err()
}

// Estimate returns the number of live statements matching t in isolation.
// A reified triple counts its matching reifications.
func (s *Store) Estimate(ctx context.Context, t ir.Triple) (int64, error) {
	if t.IsReified() {
		rs, err := s.FindReifications(ctx, t.Name, t.Subject, t.Predicate, t.Object)
		if err != nil {
			return 0, err
		}
		return int64(len(rs)), nil
	}
	l, ok, err := s.lookupFor(ctx, t)
	if err != nil {
		return 0, fmt.Errorf("estimate %s: %w", t, err)
	}
	if !ok {
		return 0, nil
	}
	query, params := s.compiler.CompileCount(l)
	var n int64
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("estimate %s: %w", t, err)
	}
	return n, nil
}

// NodeCountInPosition returns the number of live statements holding term in
// position pos. Unknown terms count zero.
func (s *Store) NodeCountInPosition(ctx context.Context, term ir.Term, pos ir.Position) (int64, error) {
	id, ok, err := s.ID(ctx, term)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	query, params, err := s.compiler.CompileNodeCount(id, pos)
	if err != nil {
		return 0, err
	}
	var n int64
	if err := s.db.QueryRowContext(ctx, query, params...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count %s in %s: %w", term, pos, err)
	}
	return n, nil
}

// Reification is a statement name with the statement it reifies.
type Reification struct {
	Name      ir.Term
	Subject   ir.Term
	Predicate ir.Term
	Object    ir.Term
}

// Triple returns the reification as a reified triple.
func (r Reification) Triple() ir.Triple {
	return ir.NewReifiedTriple(r.Name, r.Subject, r.Predicate, r.Object)
}

// FindReifications returns the reifications whose four canonical statements
// (rdf:type rdf:Statement, rdf:subject, rdf:predicate, rdf:object) are all
// live and agree with the given terms. Variables and nil are free; a
// variable used in two slots requires equal terms.
func (s *Store) FindReifications(ctx context.Context, name, subj, pred, obj ir.Term) ([]Reification, error) {
	vocab, ok, err := s.reificationVocabulary(ctx)
	if err != nil {
		return nil, fmt.Errorf("find reifications: %w", err)
	}
	if !ok {
		return nil, nil
	}

	var l querysql.ReificationLookup
	slots := []struct {
		term ir.Term
		dst  **int64
	}{
		{name, &l.Name},
		{subj, &l.Subject},
		{pred, &l.Predicate},
		{obj, &l.Object},
	}
	for _, slot := range slots {
		if !ir.IsConcrete(slot.term) {
			continue
		}
		id, found, err := s.ID(ctx, slot.term)
		if err != nil {
			return nil, fmt.Errorf("find reifications: %w", err)
		}
		if !found {
			return nil, nil
		}
		*slot.dst = &id
	}

	query, params := s.compiler.CompileReifications(vocab, l)
	rows, err := s.db.QueryContext(ctx, query, params...)
	if err != nil {
		return nil, fmt.Errorf("find reifications: %w", err)
	}
	var idRows [][4]int64
	for rows.Next() {
		var r [4]int64
		if err := rows.Scan(&r[0], &r[1], &r[2], &r[3]); err != nil {
			rows.Close()
			return nil, fmt.Errorf("find reifications: scan: %w", err)
		}
		idRows = append(idRows, r)
	}
	err = rows.Err()
	rows.Close()
	if err != nil {
		return nil, fmt.Errorf("find reifications: iterate: %w", err)
	}

	pattern := []ir.Term{name, subj, pred, obj}
	terms := make(map[int64]ir.Term)
	var out []Reification
	for _, r := range idRows {
		var resolved [4]ir.Term
		for i, id := range r {
			term, ok := terms[id]
			if !ok {
				if term, err = s.mustTerm(ctx, id); err != nil {
					return nil, fmt.Errorf("find reifications: resolve %d: %w", id, err)
				}
				terms[id] = term
			}
			resolved[i] = term
		}
		if !repeatedVarsAgree(pattern, resolved[:]) {
			continue
		}
		out = append(out, Reification{Name: resolved[0], Subject: resolved[1], Predicate: resolved[2], Object: resolved[3]})
	}
	return out, nil
}

// reificationVocabulary resolves the ids of the reification vocabulary.
// ok is false if any of them was never stored.
func (s *Store) reificationVocabulary(ctx context.Context) (querysql.ReificationIDs, bool, error) {
	var vocab querysql.ReificationIDs
	for _, v := range []struct {
		term ir.Term
		dst  *int64
	}{
		{ir.RDFType, &vocab.Type},
		{ir.RDFStatement, &vocab.Statement},
		{ir.RDFSubject, &vocab.Subject},
		{ir.RDFPredicate, &vocab.Predicate},
		{ir.RDFObject, &vocab.Object},
	} {
		id, ok, err := s.ID(ctx, v.term)
		if err != nil || !ok {
			return vocab, false, err
		}
		*v.dst = id
	}
	return vocab, true, nil
}

func repeatedVarsAgree(pattern, values []ir.Term) bool {
	seen := make(map[ir.Variable]ir.Term, len(pattern))
	for i, p := range pattern {
		v, ok := p.(ir.Variable)
		if !ok {
			continue
		}
		if prev, dup := seen[v]; dup && prev != values[i] {
			return false
		}
		seen[v] = values[i]
	}
	return true
}

// errNotFound reports a missing resource id.
var errNotFound = errors.New("resource not found")

// mustTerm is Term but maps a missing id to errNotFound.
func (s *Store) mustTerm(ctx context.Context, id int64) (ir.Term, error) {
	t, err := s.Term(ctx, id)
	if isNoRows(err) {
		return nil, fmt.Errorf("%w: %d", errNotFound, id)
	}
	return t, err
}
