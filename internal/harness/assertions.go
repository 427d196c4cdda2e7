package harness

import (
	"fmt"
	"sort"
	"strings"

	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// AssertionError is returned when an expectation fails. It carries the
// step's trace event to help debug the failure.
type AssertionError struct {
	Step     string
	Type     string
	Expected string
	Actual   string
	Event    TraceEvent
}

func (e *AssertionError) Error() string {
	var buf strings.Builder
	fmt.Fprintf(&buf, "step %q: %s failed\n", e.Step, e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)
	if len(e.Event.Rows) > 0 {
		fmt.Fprintf(&buf, "\nRows:\n")
		for i, row := range e.Event.Rows {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, row)
		}
	}
	return buf.String()
}

// rowSet is a query result searched by expected rows.
type rowSet struct {
	rows []ir.Binding
}

// checkExpect compares one step's outcome with its expectations.
func checkExpect(s *Scenario, step Step, ev TraceEvent, rows rowSet) []error {
	e := step.Expect
	if e == nil {
		if ev.Error != "" {
			return []error{fail(step, ev, "query", "success", ev.Error)}
		}
		return nil
	}

	var errs []error
	if e.Count != nil && ev.Count != *e.Count {
		errs = append(errs, fail(step, ev, "count", fmt.Sprint(*e.Count), fmt.Sprint(ev.Count)))
	}

	if ev.Error != "" || e.Error != "" {
		if ev.Error != e.Error {
			errs = append(errs, fail(step, ev, "error", orNone(e.Error), orNone(ev.Error)))
		}
		return errs
	}

	if e.Rows != nil && len(ev.Rows) != *e.Rows {
		errs = append(errs, fail(step, ev, "rows", fmt.Sprintf("%d rows", *e.Rows), fmt.Sprintf("%d rows", len(ev.Rows))))
	}
	for _, want := range e.Contains {
		pattern, err := s.expectedRow(want)
		if err != nil {
			errs = append(errs, fail(step, ev, "contains", fmt.Sprint(want), err.Error()))
			continue
		}
		if !rows.contains(pattern) {
			errs = append(errs, fail(step, ev, "contains", "a row matching "+formatRow(pattern), "no such row"))
		}
	}
	for _, unwanted := range e.Absent {
		pattern, err := s.expectedRow(unwanted)
		if err != nil {
			errs = append(errs, fail(step, ev, "absent", fmt.Sprint(unwanted), err.Error()))
			continue
		}
		if rows.contains(pattern) {
			errs = append(errs, fail(step, ev, "absent", "no row matching "+formatRow(pattern), "row present"))
		}
	}

	rendered := strings.Join(ev.Plans, "\n")
	for _, want := range e.Plan {
		if !strings.Contains(rendered, want) {
			errs = append(errs, fail(step, ev, "plan", fmt.Sprintf("plan containing %q", want), rendered))
		}
	}
	return errs
}

func fail(step Step, ev TraceEvent, typ, expected, actual string) *AssertionError {
	return &AssertionError{Step: step.Name, Type: typ, Expected: expected, Actual: actual, Event: ev}
}

func orNone(code string) string {
	if code == "" {
		return "no error"
	}
	return code
}

// expectedRow parses an expected row's terms.
func (s *Scenario) expectedRow(want map[string]string) (map[ir.Variable]ir.Term, error) {
	out := make(map[ir.Variable]ir.Term, len(want))
	for name, src := range want {
		t, err := ir.ParseTerm(src, s.Prefixes)
		if err != nil {
			return nil, fmt.Errorf("?%s: %w", name, err)
		}
		out[ir.Variable(strings.TrimPrefix(name, "?"))] = t
	}
	return out, nil
}

func (r rowSet) contains(pattern map[ir.Variable]ir.Term) bool {
	for _, b := range r.rows {
		if rowMatches(b, pattern) {
			return true
		}
	}
	return false
}

// rowMatches reports whether b binds every variable of pattern to an
// equal term. Numeric literals compare by value.
func rowMatches(b ir.Binding, pattern map[ir.Variable]ir.Term) bool {
	for v, want := range pattern {
		got, ok := b.Get(v)
		if !ok || !sameTerm(got, want) {
			return false
		}
	}
	return true
}

func sameTerm(a, b ir.Term) bool {
	if a == b {
		return true
	}
	la, aLit := a.(ir.Literal)
	lb, bLit := b.(ir.Literal)
	if !aLit || !bLit {
		return false
	}
	fa, aNum := la.Number()
	fb, bNum := lb.Number()
	return aNum && bNum && fa == fb
}

func formatRow(pattern map[ir.Variable]ir.Term) string {
	b := ir.EmptyBinding()
	for v, t := range pattern {
		b = b.With(v, t)
	}
	return b.String()
}

// rowKeys renders rows as sorted binding keys.
func rowKeys(rows []ir.Binding) []string {
	keys := make([]string, len(rows))
	for i, b := range rows {
		keys[i] = b.Key()
	}
	sort.Strings(keys)
	return keys
}
