package harness

// Step kinds recorded in the trace.
const (
	KindAdd     = "add"
	KindDelete  = "delete"
	KindQuery   = "query"
	KindExplain = "explain"
)

// TraceEvent records what one scenario step did.
type TraceEvent struct {
	Step string `json:"step"`
	Kind string `json:"kind"`

	// Count is the number of statements written by add and delete steps.
	Count int `json:"count,omitempty"`

	// Rows are the query results as sorted binding keys.
	Rows []string `json:"rows,omitempty"`

	// Error is the query error code, if the query failed.
	Error string `json:"error,omitempty"`

	// Plans are the rendered evaluation plans of an explain step.
	Plans []string `json:"plans,omitempty"`
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every expectation held.
	Pass bool `json:"pass"`

	// Trace has one event per executed step.
	Trace []TraceEvent `json:"trace"`

	// Errors are the failed expectations. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Trace:  []TraceEvent{},
		Errors: []string{},
	}
}

// AddError adds a failed expectation and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Record appends a step's event to the trace.
func (r *Result) Record(ev TraceEvent) {
	r.Trace = append(r.Trace, ev)
}
