package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

const (
	kindURI     = "U"
	kindBlank   = "B"
	kindLiteral = "L"
)

// resourceKey is the column tuple identifying a resource.
type resourceKey struct {
	kind, lexical, datatype, lang string
}

func keyOf(t ir.Term) (resourceKey, error) {
	switch v := ir.Canonical(t).(type) {
	case ir.URI:
		return resourceKey{kind: kindURI, lexical: string(v)}, nil
	case ir.Blank:
		return resourceKey{kind: kindBlank, lexical: string(v)}, nil
	case ir.Literal:
		return resourceKey{kind: kindLiteral, lexical: v.Lexical, datatype: v.Datatype, lang: v.Lang}, nil
	default:
		return resourceKey{}, fmt.Errorf("term %v is not a resource", t)
	}
}

func termOf(kind, lexical, datatype, lang string) (ir.Term, error) {
	switch kind {
	case kindURI:
		return ir.URI(lexical), nil
	case kindBlank:
		return ir.Blank(lexical), nil
	case kindLiteral:
		return ir.Literal{Lexical: lexical, Datatype: datatype, Lang: lang}, nil
	default:
		return nil, fmt.Errorf("unknown resource kind %q", kind)
	}
}

// queryer is satisfied by *sql.DB and *sql.Tx.
type queryer interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// ID returns the resource id of t. It reports false if t was never stored.
func (s *Store) ID(ctx context.Context, t ir.Term) (int64, bool, error) {
	return lookupID(ctx, s.db, t)
}

func lookupID(ctx context.Context, q queryer, t ir.Term) (int64, bool, error) {
	k, err := keyOf(t)
	if err != nil {
		return 0, false, err
	}
	var id int64
	err = q.QueryRowContext(ctx, `
		SELECT id FROM resources
		WHERE kind = ? AND lexical = ? AND datatype = ? AND lang = ?
	`, k.kind, k.lexical, k.datatype, k.lang).Scan(&id)
	if isNoRows(err) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, fmt.Errorf("lookup resource %v: %w", t, err)
	}
	return id, true, nil
}

// internID returns the id of t, creating the resource if needed.
func internID(ctx context.Context, q queryer, t ir.Term) (int64, error) {
	k, err := keyOf(t)
	if err != nil {
		return 0, err
	}
	_, err = q.ExecContext(ctx, `
		INSERT INTO resources (kind, lexical, datatype, lang)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(kind, lexical, datatype, lang) DO NOTHING
	`, k.kind, k.lexical, k.datatype, k.lang)
	if err != nil {
		return 0, fmt.Errorf("intern resource %v: %w", t, err)
	}
	id, ok, err := lookupID(ctx, q, t)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, fmt.Errorf("intern resource %v: not found after insert", t)
	}
	return id, nil
}

// Term returns the term stored under id.
// Returns sql.ErrNoRows if not found.
func (s *Store) Term(ctx context.Context, id int64) (ir.Term, error) {
	var kind, lexical, datatype, lang string
	err := s.db.QueryRowContext(ctx, `
		SELECT kind, lexical, datatype, lang FROM resources WHERE id = ?
	`, id).Scan(&kind, &lexical, &datatype, &lang)
	if err != nil {
		return nil, err
	}
	return termOf(kind, lexical, datatype, lang)
}

// isNoRows reports whether err is sql.ErrNoRows.
func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
