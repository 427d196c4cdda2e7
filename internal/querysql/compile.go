package querysql

import (
	"fmt"
	"strings"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// Lookup describes a triple-pattern lookup over the statements table in
// terms of resource ids. A nil id matches any resource in that position.
type Lookup struct {
	Subject   *int64
	Predicate *int64
	Object    *int64

	// Repeated variables: the two positions must hold the same resource.
	SameSubjectPredicate bool
	SameSubjectObject    bool
	SamePredicateObject  bool

	// IncludeDeleted also matches statements marked deleted.
	IncludeDeleted bool
}

// SQLCompiler compiles lookups to parameterized SQL for SQLite.
//
// CRITICAL: ALL row queries include ORDER BY for deterministic results.
// CRITICAL: All values are parameterized (never interpolated).
type SQLCompiler struct{}

// NewSQLCompiler creates a new SQLCompiler.
func NewSQLCompiler() *SQLCompiler {
	return &SQLCompiler{}
}

// statementColumns selects a statement and the terms of its three
// positions so matches resolve without a second round trip.
const statementColumns = `st.id, st.deleted, st.inferred,
	rs.id, rs.kind, rs.lexical, rs.datatype, rs.lang,
	rp.id, rp.kind, rp.lexical, rp.datatype, rp.lang,
	ro.id, ro.kind, ro.lexical, ro.datatype, ro.lang`

const statementJoins = `statements st
	JOIN resources rs ON rs.id = st.subject
	JOIN resources rp ON rp.id = st.predicate
	JOIN resources ro ON ro.id = st.object`

// CompileFind returns a query selecting statementColumns for l.
// MANDATORY: Includes ORDER BY st.id.
func (c *SQLCompiler) CompileFind(l Lookup) (string, []any) {
	where, params := c.compileWhere("st", l)
	sql := fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY st.id ASC",
		statementColumns, statementJoins, where)
	return sql, params
}

// CompileCount returns a query counting the statements matching l.
func (c *SQLCompiler) CompileCount(l Lookup) (string, []any) {
	where, params := c.compileWhere("st", l)
	return "SELECT COUNT(*) FROM statements st WHERE " + where, params
}

// CompileNodeCount returns a query counting live statements holding the
// resource id in position pos.
func (c *SQLCompiler) CompileNodeCount(id int64, pos ir.Position) (string, []any, error) {
	col, err := column(pos)
	if err != nil {
		return "", nil, err
	}
	return fmt.Sprintf("SELECT COUNT(*) FROM statements st WHERE st.%s = ? AND st.deleted = 0", col), []any{id}, nil
}

// ReificationIDs carries the resource ids of the reification vocabulary.
type ReificationIDs struct {
	Type      int64
	Statement int64
	Subject   int64
	Predicate int64
	Object    int64
}

// ReificationLookup constrains a reification query. Nil ids are free.
type ReificationLookup struct {
	Name      *int64
	Subject   *int64
	Predicate *int64
	Object    *int64
}

// CompileReifications returns a query joining the four live statements
// that make up each reification: name rdf:type rdf:Statement plus
// rdf:subject, rdf:predicate and rdf:object. It selects the name, subject,
// predicate and object resource ids.
// MANDATORY: Includes ORDER BY.
func (c *SQLCompiler) CompileReifications(vocab ReificationIDs, l ReificationLookup) (string, []any) {
	var sb strings.Builder
	sb.WriteString(`SELECT t.subject, s.object, p.object, o.object
	FROM statements t
	JOIN statements s ON s.subject = t.subject AND s.predicate = ? AND s.deleted = 0
	JOIN statements p ON p.subject = t.subject AND p.predicate = ? AND p.deleted = 0
	JOIN statements o ON o.subject = t.subject AND o.predicate = ? AND o.deleted = 0
	WHERE t.predicate = ? AND t.object = ? AND t.deleted = 0`)
	params := []any{vocab.Subject, vocab.Predicate, vocab.Object, vocab.Type, vocab.Statement}

	add := func(col string, id *int64) {
		if id == nil {
			return
		}
		sb.WriteString(" AND " + col + " = ?")
		params = append(params, *id)
	}
	add("t.subject", l.Name)
	add("s.object", l.Subject)
	add("p.object", l.Predicate)
	add("o.object", l.Object)

	sb.WriteString(" ORDER BY t.subject ASC, s.object ASC, p.object ASC, o.object ASC")
	return sb.String(), params
}

// compileWhere builds the WHERE fragment for l over the statements alias.
// CRITICAL: Values NEVER interpolated - always use ? placeholders.
func (c *SQLCompiler) compileWhere(alias string, l Lookup) (string, []any) {
	var parts []string
	var params []any

	eq := func(col string, id *int64) {
		if id == nil {
			return
		}
		parts = append(parts, alias+"."+col+" = ?")
		params = append(params, *id)
	}
	eq("subject", l.Subject)
	eq("predicate", l.Predicate)
	eq("object", l.Object)

	if l.SameSubjectPredicate {
		parts = append(parts, alias+".subject = "+alias+".predicate")
	}
	if l.SameSubjectObject {
		parts = append(parts, alias+".subject = "+alias+".object")
	}
	if l.SamePredicateObject {
		parts = append(parts, alias+".predicate = "+alias+".object")
	}
	if !l.IncludeDeleted {
		parts = append(parts, alias+".deleted = 0")
	}
	if len(parts) == 0 {
		return "1 = 1", nil
	}
	return strings.Join(parts, " AND "), params
}

func column(pos ir.Position) (string, error) {
	switch pos {
	case ir.PositionSubject:
		return "subject", nil
	case ir.PositionPredicate:
		return "predicate", nil
	case ir.PositionObject:
		return "object", nil
	default:
		return "", fmt.Errorf("unsupported position: %d", pos)
	}
}
