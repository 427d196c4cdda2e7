package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/raytheonbbn/parliament-sub002/internal/cursor"
	"github.com/raytheonbbn/parliament-sub002/internal/index"
	"github.com/raytheonbbn/parliament-sub002/internal/ir"
	"github.com/raytheonbbn/parliament-sub002/internal/optimize"
	"github.com/raytheonbbn/parliament-sub002/internal/queryir"
	"github.com/raytheonbbn/parliament-sub002/internal/solver"
	"github.com/raytheonbbn/parliament-sub002/internal/store"
)

// DefaultGraph names the graph held by the store when no other name is
// configured. Index registrations are keyed by it.
const DefaultGraph = "urn:kbgraph:default"

// Engine answers queries over one store and the indexes attached to it.
//
// Thread-safety model:
//   - Query, Explain: safe from any goroutine; they hold the read lock for
//     their whole run
//   - Add, Delete, CreateIndex, DropIndex, RebuildIndexes: safe from any
//     goroutine; they hold the write lock
//   - Optimize, Execute, Solve, SolveFilters: lock-free building blocks;
//     the caller holds the appropriate lock
type Engine struct {
	store    *store.Store
	graph    string
	registry *index.Registry
	locks    *LockController
	tracker  *Tracker
	gen      *Generation
	cache    *PlanCache
	solver   *solver.Solver
	logger   *slog.Logger

	optimizer  optimize.Options
	solverOpts solver.Options
	maxRows    int
	cacheSize  int
	ids        QueryIDGenerator

	// functions lists the property functions each index backs.
	functions map[string][]ir.URI
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithGraph names the graph held by the store.
func WithGraph(graph string) Option {
	return func(e *Engine) { e.graph = graph }
}

// WithOptimizer sets the algebra rewrite steps.
func WithOptimizer(opts optimize.Options) Option {
	return func(e *Engine) { e.optimizer = opts }
}

// WithSolver sets the pattern ordering options.
func WithSolver(opts solver.Options) Option {
	return func(e *Engine) { e.solverOpts = opts }
}

// WithMaxRows sets the per-query row quota. Zero disables it.
func WithMaxRows(n int) Option {
	return func(e *Engine) { e.maxRows = n }
}

// WithPlanCacheSize bounds the plan cache.
func WithPlanCacheSize(n int) Option {
	return func(e *Engine) { e.cacheSize = n }
}

// WithQueryIDs sets the query id generator. The default issues UUIDv7s.
func WithQueryIDs(g QueryIDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// New builds an engine over s. The engine does not own s; Close releases
// the indexes only.
func New(s *store.Store, opts ...Option) *Engine {
	e := &Engine{
		store:      s,
		graph:      DefaultGraph,
		locks:      &LockController{},
		gen:        &Generation{},
		optimizer:  optimize.DefaultOptions(),
		solverOpts: solver.DefaultOptions(),
		maxRows:    DefaultMaxRows,
		functions:  make(map[string][]ir.URI),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}

	e.registry = index.NewRegistry(e.logger)
	e.tracker = NewTracker(e.ids)
	e.cache = NewPlanCache(e.gen, e.cacheSize)
	e.solver = &solver.Solver{
		Graph:     e.graph,
		Registry:  e.registry,
		Counts:    s,
		Evaluator: &solver.StoreEvaluator{Store: s, Logger: e.logger},
		Cache:     e.cache,
		Options:   e.solverOpts,
		Logger:    e.logger,
	}
	return e
}

// Close closes every index. Persistent index storage is kept.
func (e *Engine) Close() error {
	release := e.locks.WriteLock()
	defer release()
	return e.registry.CloseAll(e.graph)
}

// Graph returns the graph name used for index registration.
func (e *Engine) Graph() string { return e.graph }

// Registry returns the index registry.
func (e *Engine) Registry() *index.Registry { return e.registry }

// Tracker returns the running-query registry.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// Locks returns the engine's reader/writer lock.
func (e *Engine) Locks() *LockController { return e.locks }

// PlanCache returns the cache of count orderings.
func (e *Engine) PlanCache() *PlanCache { return e.cache }

// Optimize rewrites op with the configured algebra steps.
func (e *Engine) Optimize(op queryir.Op) queryir.Op {
	p := &optimize.Pipeline{
		Options:    e.optimizer,
		IsFunction: e.isFunction,
		HasIndexes: e.registry.HasIndexes(e.graph),
		Logger:     e.logger,
	}
	return p.Rewrite(op)
}

func (e *Engine) isFunction(u ir.URI) bool {
	_, ok := e.registry.Function(e.graph, u)
	return ok
}

// Solve evaluates a basic graph pattern for every binding of input.
func (e *Engine) Solve(ctx context.Context, p ir.Pattern, input cursor.Cursor) cursor.Cursor {
	return e.solver.Solve(ctx, p, input)
}

// SolveFilters evaluates a filtered basic graph pattern, pushing range
// filters into indexes where possible.
func (e *Engine) SolveFilters(ctx context.Context, exprs []ir.Expr, p ir.Pattern, input cursor.Cursor) cursor.Cursor {
	return e.solver.SolveFilters(ctx, exprs, p, input)
}

// Result is the outcome of a query.
type Result struct {
	QueryID string
	// Vars are the query's variables in first-seen order. Rows hold no
	// other variables.
	Vars     []ir.Variable
	Rows     []ir.Binding
	Duration time.Duration
}

// Query optimizes and runs op, collecting every row. The query is tracked
// under a fresh id for its whole run, so it can be cancelled through the
// Tracker. Failures are returned as *QueryError.
func (e *Engine) Query(ctx context.Context, op queryir.Op) (*Result, error) {
	if op == nil {
		return nil, queryError("", errors.Wrap(ErrUnsupportedOp, "empty query"))
	}
	id, qctx, end := e.tracker.Begin(ctx, queryir.Format(op))
	defer end()
	release := e.locks.ReadLock()
	defer release()

	start := time.Now()
	vars := queryir.Vars(op)
	optimized := e.Optimize(op)
	e.logger.Debug("query optimized", "query", id, "original", queryir.Format(op), "optimized", queryir.Format(optimized))

	c := e.Execute(qctx, optimized, cursor.Single(ir.EmptyBinding()))
	quota := NewRowQuota(e.maxRows)
	var rows []ir.Binding
	for c.Next() {
		if err := quota.Check(id); err != nil {
			_ = c.Close()
			return nil, e.failed(id, err)
		}
		rows = append(rows, c.Binding().Project(vars))
	}
	err := c.Err()
	if closeErr := c.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return nil, e.failed(id, err)
	}

	res := &Result{QueryID: id, Vars: vars, Rows: rows, Duration: time.Since(start)}
	e.logger.Info("query finished", "query", id, "rows", len(rows), "duration", res.Duration)
	return res, nil
}

func (e *Engine) failed(id string, err error) error {
	qe := queryError(id, err)
	e.logger.Warn("query failed", "query", id, "code", CodeOf(qe), "error", err)
	return qe
}

// PatternPlan is the evaluation plan chosen for one pattern of a query.
type PatternPlan struct {
	Pattern ir.Pattern
	Plan    optimize.Plan
}

// Explanation shows how a query would run.
type Explanation struct {
	Original  queryir.Op
	Optimized queryir.Op
	Plans     []PatternPlan
}

// Explain optimizes op and plans each of its basic graph patterns without
// running them.
func (e *Engine) Explain(ctx context.Context, op queryir.Op) (*Explanation, error) {
	if op == nil {
		return nil, queryError("", errors.Wrap(ErrUnsupportedOp, "empty query"))
	}
	release := e.locks.ReadLock()
	defer release()

	ex := &Explanation{Original: op, Optimized: e.Optimize(op)}
	var err error
	queryir.Walk(ex.Optimized, func(n queryir.Op) bool {
		if err != nil {
			return false
		}
		var p ir.Pattern
		switch o := n.(type) {
		case queryir.BGP:
			p = o.Pattern
		case queryir.IndexPropFunc:
			p = o.Pattern
		}
		if len(p) == 0 {
			return true
		}
		var plan optimize.Plan
		if plan, err = e.solver.Plan(ctx, p); err == nil {
			ex.Plans = append(ex.Plans, PatternPlan{Pattern: p, Plan: plan})
		}
		return true
	})
	if err != nil {
		return nil, queryError("", err)
	}
	return ex, nil
}
