package solver

import (
	"context"
	"log/slog"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
	"github.com/raytheonbbn/parliament-sub002/internal/optimize"
)

// TripleEvaluator answers the sub-patterns no index claims.
type TripleEvaluator interface {
	Evaluate(ctx context.Context, p ir.Pattern, input cursor.Cursor) cursor.Cursor
}

// PlanCache remembers the count ordering of patterns. Implementations
// must drop entries whenever the statistics they were computed from change.
type PlanCache interface {
	Get(p ir.Pattern) (ir.Pattern, bool)
	Put(p, ordered ir.Pattern)
}

// Options selects the count transformation applied before index
// transformation. DynamicOptimization takes precedence.
type Options struct {
	DefaultOptimization bool `yaml:"default_optimization" json:"default_optimization"`
	DynamicOptimization bool `yaml:"dynamic_optimization" json:"dynamic_optimization"`
}

// DefaultOptions enables the static count ordering.
func DefaultOptions() Options {
	return Options{DefaultOptimization: true}
}

// Solver plans and evaluates basic graph patterns for one graph.
type Solver struct {
	// Graph keys the registry lookups.
	Graph string

	Registry  *index.Registry
	Counts    optimize.CountSource
	Evaluator TripleEvaluator
	Cache     PlanCache
	Options   Options
	Logger    *slog.Logger
}

func (s *Solver) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.DiscardHandler)
	}
	return s.Logger
}

func (s *Solver) hasIndexes() bool {
	return s.Registry != nil && s.Registry.HasIndexes(s.Graph)
}

func (s *Solver) entries() []index.Entry {
	if s.Registry == nil {
		return nil
	}
	return s.Registry.Entries(s.Graph)
}

func (s *Solver) defaultCounts() *optimize.DefaultCountTransformation {
	return &optimize.DefaultCountTransformation{Source: s.Counts, Logger: s.Logger}
}

// reorder applies the configured count transformation. Patterns of one
// triple are returned as is.
func (s *Solver) reorder(ctx context.Context, p ir.Pattern) (ir.Pattern, error) {
	if len(p) <= 1 || s.Counts == nil {
		return p, nil
	}
	var r optimize.Reorderer
	switch {
	case s.Options.DynamicOptimization:
		r = &optimize.UpdatedCountTransformation{Source: s.Counts, Logger: s.Logger}
	case s.Options.DefaultOptimization:
		r = s.defaultCounts()
	default:
		return p, nil
	}

	if s.Cache != nil {
		if cached, ok := s.Cache.Get(p); ok {
			return cached.Clone(), nil
		}
	}
	ordered, err := r.Reorder(ctx, p)
	if err != nil {
		return nil, err
	}
	if s.Cache != nil {
		s.Cache.Put(p, ordered.Clone())
	}
	return ordered, nil
}

// Plan returns the evaluation plan for p: reification statements are
// collapsed, triples count-ordered, then split between index queriers and
// the base store. Failures are marked ErrOptimize.
func (s *Solver) Plan(ctx context.Context, p ir.Pattern) (optimize.Plan, error) {
	pattern := p.Clone()
	if len(pattern) > 1 {
		pattern = optimize.CollapseReifications(pattern)
		var err error
		if pattern, err = s.reorder(ctx, pattern); err != nil {
			return optimize.Plan{}, errors.Mark(errors.Wrap(err, "count ordering"), ErrOptimize)
		}
	}

	var plan optimize.Plan
	if s.hasIndexes() {
		it := &optimize.IndexTransformation{Entries: s.entries(), Rest: s.defaultCounts(), Logger: s.Logger}
		var err error
		if plan, err = it.Reorder(ctx, pattern); err != nil {
			return optimize.Plan{}, errors.Mark(err, ErrOptimize)
		}
	} else if len(pattern) > 0 {
		plan = optimize.Plan{SubPatterns: []*optimize.SubPattern{optimize.NewSubPattern(nil, pattern)}}
	}

	log := s.logger()
	if log.Enabled(ctx, slog.LevelDebug) {
		log.Debug("solving pattern", "graph", s.Graph, "original", p.String(), "optimized", plan.String())
	}
	return plan, nil
}

// Solve evaluates p for every binding of input.
func (s *Solver) Solve(ctx context.Context, p ir.Pattern, input cursor.Cursor) cursor.Cursor {
	plan, err := s.Plan(ctx, p)
	if err != nil {
		input.Close()
		return cursor.Fail(err)
	}
	return s.Execute(ctx, plan, input)
}

// SolveFunction evaluates an index-backed property function call together
// with the triples connected to it. The call competes with the other
// sub-patterns for the first position.
func (s *Solver) SolveFunction(ctx context.Context, fn *optimize.SubPattern, remaining ir.Pattern, input cursor.Cursor) cursor.Cursor {
	pattern := remaining.Clone()
	if len(pattern) > 1 {
		pattern = optimize.CollapseReifications(pattern)
		var err error
		if pattern, err = s.reorder(ctx, pattern); err != nil {
			input.Close()
			return cursor.Fail(errors.Mark(errors.Wrap(err, "count ordering"), ErrOptimize))
		}
	}

	var entries []index.Entry
	if s.hasIndexes() {
		entries = s.entries()
	}
	it := &optimize.IndexTransformation{Entries: entries, Rest: s.defaultCounts(), Function: fn, Logger: s.Logger}
	plan, err := it.Reorder(ctx, pattern)
	if err != nil {
		input.Close()
		return cursor.Fail(errors.Mark(err, ErrOptimize))
	}
	s.logger().Debug("solving property function", "graph", s.Graph, "function", fn.Pattern.String(), "optimized", plan.String())
	return s.Execute(ctx, plan, input)
}

// Execute runs plan left to right. Adjacent remainder sub-patterns are
// handed to the evaluator as one pattern.
func (s *Solver) Execute(ctx context.Context, plan optimize.Plan, input cursor.Cursor) cursor.Cursor {
	out := input
	var pending ir.Pattern
	flush := func() {
		if len(pending) == 0 {
			return
		}
		out = s.Evaluator.Evaluate(ctx, pending, out)
		pending = nil
	}
	for _, sp := range plan.SubPatterns {
		if sp.IsRemainder() {
			pending = append(pending, sp.Pattern...)
			continue
		}
		flush()
		out = sp.Querier.Query(ctx, sp.Pattern, out)
	}
	flush()
	return cursor.Guard(ctx, out)
}
