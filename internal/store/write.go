package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// AddStatement stores t and returns its statement id.
//
// Idempotent: adding a statement that already exists returns the existing id.
// Re-adding a statement marked deleted clears the mark and keeps its id.
// An explicit add also clears the inferred flag of an existing statement.
func (s *Store) AddStatement(ctx context.Context, t ir.Triple, inferred bool) (int64, error) {
	if err := checkGround(t); err != nil {
		return 0, fmt.Errorf("add statement: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("add statement: begin: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	sid, err := internID(ctx, tx, t.Subject)
	if err != nil {
		return 0, fmt.Errorf("add statement: %w", err)
	}
	pid, err := internID(ctx, tx, t.Predicate)
	if err != nil {
		return 0, fmt.Errorf("add statement: %w", err)
	}
	oid, err := internID(ctx, tx, t.Object)
	if err != nil {
		return 0, fmt.Errorf("add statement: %w", err)
	}

	inferredFlag := boolToInt(inferred)
	_, err = tx.ExecContext(ctx, `
		INSERT INTO statements (subject, predicate, object, deleted, inferred)
		VALUES (?, ?, ?, 0, ?)
		ON CONFLICT(subject, predicate, object) DO UPDATE SET
			deleted = 0,
			inferred = MIN(statements.inferred, excluded.inferred)
	`, sid, pid, oid, inferredFlag)
	if err != nil {
		return 0, fmt.Errorf("add statement: %w", err)
	}

	// Query the id back rather than trusting LastInsertId, which is not
	// set when the upsert takes the update branch.
	var id int64
	err = tx.QueryRowContext(ctx, `
		SELECT id FROM statements WHERE subject = ? AND predicate = ? AND object = ?
	`, sid, pid, oid).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("add statement: read id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("add statement: commit: %w", err)
	}
	return id, nil
}

// DeleteStatement marks t deleted. It reports whether a live statement was
// deleted; deleting a missing or already deleted statement is a no-op.
func (s *Store) DeleteStatement(ctx context.Context, t ir.Triple) (bool, error) {
	if err := checkGround(t); err != nil {
		return false, fmt.Errorf("delete statement: %w", err)
	}

	ids := make([]int64, 0, 3)
	for _, term := range []ir.Term{t.Subject, t.Predicate, t.Object} {
		id, ok, err := s.ID(ctx, term)
		if err != nil {
			return false, fmt.Errorf("delete statement: %w", err)
		}
		if !ok {
			return false, nil
		}
		ids = append(ids, id)
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE statements SET deleted = 1
		WHERE subject = ? AND predicate = ? AND object = ? AND deleted = 0
	`, ids[0], ids[1], ids[2])
	if err != nil {
		return false, fmt.Errorf("delete statement: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete statement: %w", err)
	}
	return n > 0, nil
}

// StatementID returns the id of the live statement t.
func (s *Store) StatementID(ctx context.Context, t ir.Triple) (int64, bool, error) {
	m, err := s.Find(ctx, t)
	if err != nil {
		return 0, false, err
	}
	defer m.Close()
	if !m.Next() {
		return 0, false, m.Err()
	}
	return m.Match().StatementID, true, nil
}

func checkGround(t ir.Triple) error {
	if t.IsReified() {
		return errors.New("reified triples are stored as four statements")
	}
	for _, term := range []ir.Term{t.Subject, t.Predicate, t.Object} {
		if !ir.IsConcrete(term) {
			return fmt.Errorf("statement %s is not ground", t)
		}
	}
	if _, ok := t.Predicate.(ir.URI); !ok {
		return fmt.Errorf("statement %s: predicate must be a URI", t)
	}
	if _, ok := t.Subject.(ir.Literal); ok {
		return fmt.Errorf("statement %s: subject must not be a literal", t)
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
