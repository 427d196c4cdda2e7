package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

var exPrefixes = map[string]string{"ex": "http://example.org/"}

func intPtr(n int) *int { return &n }

func queryRows() rowSet {
	carol := ir.EmptyBinding().
		With("s", ir.URI("http://example.org/carol")).
		With("a", ir.IntLiteral(30))
	dave := ir.EmptyBinding().
		With("s", ir.URI("http://example.org/dave")).
		With("a", ir.DoubleLiteral(40.5))
	return rowSet{rows: []ir.Binding{carol, dave}}
}

func event(rows rowSet) TraceEvent {
	return TraceEvent{Step: "q", Kind: KindQuery, Rows: rowKeys(rows.rows)}
}

func TestCheckExpect_Rows(t *testing.T) {
	s := &Scenario{Prefixes: exPrefixes}
	rows := queryRows()

	ok := Step{Name: "q", Query: "x", Expect: &Expect{
		Rows:     intPtr(2),
		Contains: []map[string]string{{"s": "ex:carol", "a": "30.0"}, {"?s": "ex:dave"}},
		Absent:   []map[string]string{{"s": "ex:bob"}},
	}}
	assert.Empty(t, checkExpect(s, ok, event(rows), rows))

	bad := Step{Name: "q", Query: "x", Expect: &Expect{
		Rows:     intPtr(3),
		Contains: []map[string]string{{"s": "ex:bob"}},
		Absent:   []map[string]string{{"s": "ex:dave", "a": "40.5"}},
	}}
	errs := checkExpect(s, bad, event(rows), rows)
	require.Len(t, errs, 3)

	var ae *AssertionError
	require.ErrorAs(t, errs[0], &ae)
	assert.Equal(t, "rows", ae.Type)
	assert.Contains(t, errs[1].Error(), "no such row")
	assert.Contains(t, errs[2].Error(), "row present")
}

func TestCheckExpect_BadExpectedTerm(t *testing.T) {
	s := &Scenario{}
	step := Step{Name: "q", Query: "x", Expect: &Expect{Contains: []map[string]string{{"s": "nope:x"}}}}

	errs := checkExpect(s, step, event(queryRows()), queryRows())

	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "unknown prefix")
}

func TestCheckExpect_Errors(t *testing.T) {
	s := &Scenario{}
	failed := TraceEvent{Step: "q", Kind: KindQuery, Error: "QUOTA_EXCEEDED"}

	expected := Step{Name: "q", Query: "x", Expect: &Expect{Error: "QUOTA_EXCEEDED"}}
	assert.Empty(t, checkExpect(s, expected, failed, rowSet{}))

	unexpected := Step{Name: "q", Query: "x"}
	errs := checkExpect(s, unexpected, failed, rowSet{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "QUOTA_EXCEEDED")

	missing := Step{Name: "q", Query: "x", Expect: &Expect{Error: "INTERRUPTED"}}
	errs = checkExpect(s, missing, event(queryRows()), queryRows())
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), "no error")
}

func TestCheckExpect_CountAndPlan(t *testing.T) {
	s := &Scenario{}

	write := Step{Name: "w", Delete: "x", Expect: &Expect{Count: intPtr(1)}}
	assert.Empty(t, checkExpect(s, write, TraceEvent{Kind: KindDelete, Count: 1}, rowSet{}))
	assert.Len(t, checkExpect(s, write, TraceEvent{Kind: KindDelete, Count: 0}, rowSet{}), 1)

	explain := Step{Name: "e", Explain: "x", Expect: &Expect{Plan: []string{"[index]", "[function"}}}
	ev := TraceEvent{Kind: KindExplain, Plans: []string{"[index]\n  ?o <http://example.org/age> ?a ."}}
	errs := checkExpect(s, explain, ev, rowSet{})
	require.Len(t, errs, 1)
	assert.Contains(t, errs[0].Error(), `"[function"`)
}

func TestAssertionError_ListsRows(t *testing.T) {
	err := &AssertionError{Step: "q", Type: "rows", Expected: "1 rows", Actual: "2 rows", Event: event(queryRows())}

	msg := err.Error()
	assert.Contains(t, msg, `step "q": rows failed`)
	assert.Contains(t, msg, "[1] ?a=")
	assert.Contains(t, msg, "[2] ?a=")
}
