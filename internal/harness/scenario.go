package harness

import (
	"bytes"
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/raytheonbbn/parliament-sub002/internal/config"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
	"github.com/raytheonbbn/parliament-sub002/internal/optimize"
	"github.com/raytheonbbn/parliament-sub002/internal/solver"
)

// Scenario is a scripted run against a fresh engine: load data, declare
// indexes, then execute steps and check their outcomes.
type Scenario struct {
	// Name uniquely identifies this scenario and names its golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Prefixes are available to data, queries and expected terms.
	Prefixes map[string]string `yaml:"prefixes,omitempty"`

	// Data is loaded before any index is created.
	Data string `yaml:"data,omitempty"`

	// Indexes are created, and rebuilt from Data, in order.
	Indexes []config.Index `yaml:"indexes,omitempty"`

	// Optimizer and Solver start from the engine defaults; keys present
	// in the file override them.
	Optimizer optimize.Options `yaml:"optimizer,omitempty"`
	Solver    solver.Options   `yaml:"solver,omitempty"`

	// MaxRows is the per-query row quota. Zero disables it.
	MaxRows int `yaml:"max_rows,omitempty"`

	Steps []Step `yaml:"steps"`
}

// Step is one action of a scenario. Exactly one of Add, Delete, Query or
// Explain is set.
type Step struct {
	Name    string  `yaml:"name"`
	Add     string  `yaml:"add,omitempty"`
	Delete  string  `yaml:"delete,omitempty"`
	Query   string  `yaml:"query,omitempty"`
	Explain string  `yaml:"explain,omitempty"`
	Expect  *Expect `yaml:"expect,omitempty"`
}

// Kind reports which action the step performs.
func (s Step) Kind() string {
	switch {
	case s.Add != "":
		return KindAdd
	case s.Delete != "":
		return KindDelete
	case s.Query != "":
		return KindQuery
	case s.Explain != "":
		return KindExplain
	default:
		return ""
	}
}

// Expect lists what a step must produce. Terms are written in the query
// syntax and may use the scenario's prefixes.
type Expect struct {
	// Count is the number of statements written.
	Count *int `yaml:"count,omitempty"`

	// Rows is the exact number of result rows.
	Rows *int `yaml:"rows,omitempty"`

	// Contains are rows that must appear. Each maps variable names,
	// without the question mark, to terms; other variables are ignored.
	Contains []map[string]string `yaml:"contains,omitempty"`

	// Absent are rows that must not appear, matched the same way.
	Absent []map[string]string `yaml:"absent,omitempty"`

	// Error is the expected query error code.
	Error string `yaml:"error,omitempty"`

	// Plan holds substrings the rendered plans must contain.
	Plan []string `yaml:"plan,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file. Unknown fields are
// rejected.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses and validates a scenario document.
func ParseScenario(data []byte) (*Scenario, error) {
	scenario := Scenario{
		Optimizer: optimize.DefaultOptions(),
		Solver:    solver.DefaultOptions(),
	}
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// header renders the scenario's prefixes as PREFIX lines, sorted for
// stable parse positions.
func (s *Scenario) header() string {
	names := make([]string, 0, len(s.Prefixes))
	for name := range s.Prefixes {
		names = append(names, name)
	}
	sort.Strings(names)
	var sb strings.Builder
	for _, name := range names {
		fmt.Fprintf(&sb, "PREFIX %s: <%s>\n", name, s.Prefixes[name])
	}
	return sb.String()
}

func (s *Scenario) parseQuery(src string) (*ir.Query, error) {
	return ir.ParseQuery(s.header() + src)
}

func (s *Scenario) parseTriples(src string) ([]ir.Triple, error) {
	return ir.ParseTriples(s.header() + src)
}

func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}
	if s.MaxRows < 0 {
		return fmt.Errorf("max_rows must be non-negative")
	}

	indexes := make(map[string]bool)
	for i, idx := range s.Indexes {
		if idx.Name == "" || idx.Predicate == "" {
			return fmt.Errorf("indexes[%d]: name and predicate are required", i)
		}
		if indexes[idx.Name] {
			return fmt.Errorf("indexes[%d]: duplicate index %q", i, idx.Name)
		}
		indexes[idx.Name] = true
	}

	for i, step := range s.Steps {
		if err := validateStep(i, step); err != nil {
			return err
		}
	}
	return nil
}

func validateStep(i int, step Step) error {
	if step.Name == "" {
		return fmt.Errorf("steps[%d]: name is required", i)
	}
	set := 0
	for _, v := range []string{step.Add, step.Delete, step.Query, step.Explain} {
		if v != "" {
			set++
		}
	}
	if set != 1 {
		return fmt.Errorf("steps[%d]: exactly one of add, delete, query or explain is required", i)
	}

	e := step.Expect
	if e == nil {
		return nil
	}
	kind := step.Kind()
	if e.Count != nil && kind != KindAdd && kind != KindDelete {
		return fmt.Errorf("steps[%d].expect: count applies to add and delete steps", i)
	}
	if (e.Rows != nil || len(e.Contains) > 0 || len(e.Absent) > 0 || e.Error != "") && kind != KindQuery {
		return fmt.Errorf("steps[%d].expect: rows, contains, absent and error apply to query steps", i)
	}
	if len(e.Plan) > 0 && kind != KindExplain {
		return fmt.Errorf("steps[%d].expect: plan applies to explain steps", i)
	}
	if e.Error != "" && (e.Rows != nil || len(e.Contains) > 0) {
		return fmt.Errorf("steps[%d].expect: error excludes rows and contains", i)
	}
	return nil
}
