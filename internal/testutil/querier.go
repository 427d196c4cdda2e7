package testutil

import (
	"context"
	"sync"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
)

// MockQuerier is a scripted index querier. It claims every non-reified
// triple whose predicate is in Predicates, reports EstimateValue and
// answers Query by joining each input binding with Results.
//
// Every call is recorded for assertions.
type MockQuerier struct {
	Predicates    []ir.URI
	EstimateValue int64
	Results       []ir.Binding

	// ExamineErr and EstimateErr, when set, are returned by those calls.
	ExamineErr  error
	EstimateErr error

	mu        sync.Mutex
	examined  []ir.Pattern
	estimated []ir.Pattern
	queried   []ir.Pattern
}

// Examine implements index.Querier.
func (m *MockQuerier) Examine(p ir.Pattern) (ir.Pattern, error) {
	m.mu.Lock()
	m.examined = append(m.examined, p.Clone())
	m.mu.Unlock()
	if m.ExamineErr != nil {
		return nil, m.ExamineErr
	}
	var claimed ir.Pattern
	for _, t := range p {
		if !t.IsReified() && m.claims(t.Predicate) {
			claimed = append(claimed, t)
		}
	}
	return claimed, nil
}

func (m *MockQuerier) claims(pred ir.Term) bool {
	for _, u := range m.Predicates {
		if pred == ir.Term(u) {
			return true
		}
	}
	return false
}

// Estimate implements index.Querier.
func (m *MockQuerier) Estimate(p ir.Pattern) (int64, error) {
	m.mu.Lock()
	m.estimated = append(m.estimated, p.Clone())
	m.mu.Unlock()
	return m.EstimateValue, m.EstimateErr
}

// Query implements index.Querier.
func (m *MockQuerier) Query(ctx context.Context, p ir.Pattern, input cursor.Cursor) cursor.Cursor {
	m.mu.Lock()
	m.queried = append(m.queried, p.Clone())
	m.mu.Unlock()
	return cursor.RepeatApply(ctx, input, func(b ir.Binding) cursor.Cursor {
		var out []ir.Binding
		for _, r := range m.Results {
			if nb, ok := b.Extend(r.Map()); ok {
				out = append(out, nb)
			}
		}
		return cursor.FromSlice(out)
	})
}

// Examined returns the patterns passed to Examine.
func (m *MockQuerier) Examined() []ir.Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ir.Pattern(nil), m.examined...)
}

// EstimateCalls returns how many times Estimate was called.
func (m *MockQuerier) EstimateCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.estimated)
}

// Queried returns the patterns passed to Query.
func (m *MockQuerier) Queried() []ir.Pattern {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ir.Pattern(nil), m.queried...)
}

// MockFunction is a MockQuerier invoked as a property function.
type MockFunction struct {
	MockQuerier
	Name ir.URI
}

// NewMockFunction returns a function that claims its own call triples.
func NewMockFunction(name ir.URI, estimate int64, results ...ir.Binding) *MockFunction {
	return &MockFunction{
		MockQuerier: MockQuerier{Predicates: []ir.URI{name}, EstimateValue: estimate, Results: results},
		Name:        name,
	}
}

// URI implements index.Function.
func (f *MockFunction) URI() ir.URI { return f.Name }
