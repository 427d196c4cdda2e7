package store

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// createTestStore creates a new store in a temporary directory.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

const ex = "http://example.org/"

func exURI(local string) ir.URI { return ir.URI(ex + local) }

// mustAdd stores every triple and fails the test on error.
func mustAdd(t *testing.T, s *Store, triples ...ir.Triple) {
	t.Helper()
	for _, tr := range triples {
		if _, err := s.AddStatement(context.Background(), tr, false); err != nil {
			t.Fatalf("AddStatement(%s) failed: %v", tr, err)
		}
	}
}

// reify returns the four canonical statements reifying s p o under name.
func reify(name, s, p, o ir.Term) []ir.Triple {
	return []ir.Triple{
		ir.NewTriple(name, ir.RDFType, ir.RDFStatement),
		ir.NewTriple(name, ir.RDFSubject, s),
		ir.NewTriple(name, ir.RDFPredicate, p),
		ir.NewTriple(name, ir.RDFObject, o),
	}
}

// getTableColumns returns the column names of a table.
func getTableColumns(t *testing.T, db *sql.DB, table string) []string {
	t.Helper()
	rows, err := db.Query("SELECT name FROM pragma_table_info(?)", table)
	if err != nil {
		t.Fatalf("failed to get columns for %s: %v", table, err)
	}
	defer rows.Close()

	var columns []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			t.Fatalf("failed to scan column name: %v", err)
		}
		columns = append(columns, name)
	}
	return columns
}

func contains(slice []string, s string) bool {
	for _, item := range slice {
		if item == s {
			return true
		}
	}
	return false
}
