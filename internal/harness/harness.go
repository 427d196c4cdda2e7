package harness

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/raytheonbbn/parliament-sub002/internal/config"
	"github.com/raytheonbbn/parliament-sub002/internal/engine"
	"github.com/raytheonbbn/parliament-sub002/internal/queryir"
	"github.com/raytheonbbn/parliament-sub002/internal/store"
)

// Harness runs one scenario against its own engine.
type Harness struct {
	scenario *Scenario
	store    *store.Store
	engine   *engine.Engine
	logger   *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database with deterministic
// query ids. Execution flow:
//  1. load the scenario data
//  2. create the declared indexes, rebuilding them from the data
//  3. execute the steps in order, checking each step's expectations
//
// A returned error means the scenario could not be run; failed
// expectations are reported in the Result.
func Run(scenario *Scenario) (*Result, error) {
	return RunContext(context.Background(), scenario)
}

// RunContext is Run under ctx.
func RunContext(ctx context.Context, scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	logger := slog.New(slog.DiscardHandler)
	eng := engine.New(st,
		engine.WithLogger(logger),
		engine.WithOptimizer(scenario.Optimizer),
		engine.WithSolver(scenario.Solver),
		engine.WithMaxRows(scenario.MaxRows),
		engine.WithQueryIDs(engine.NewFixedGenerator(queryIDs(scenario)...)),
	)
	defer eng.Close()

	h := &Harness{scenario: scenario, store: st, engine: eng, logger: logger}
	if err := h.setup(ctx); err != nil {
		return nil, err
	}

	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.execute(ctx, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Name, err)
		}
	}
	return result, nil
}

// queryIDs names one id per query step: q-1, q-2, ...
func queryIDs(s *Scenario) []string {
	var ids []string
	for _, step := range s.Steps {
		if step.Kind() == KindQuery {
			ids = append(ids, "q-"+strconv.Itoa(len(ids)+1))
		}
	}
	return ids
}

func (h *Harness) setup(ctx context.Context) error {
	if h.scenario.Data != "" {
		triples, err := h.scenario.parseTriples(h.scenario.Data)
		if err != nil {
			return fmt.Errorf("failed to parse data: %w", err)
		}
		if _, err := h.engine.Add(ctx, triples...); err != nil {
			return fmt.Errorf("failed to load data: %w", err)
		}
	}

	cfg := config.Default()
	for _, idx := range h.scenario.Indexes {
		if err := h.engine.CreateIndex(ctx, cfg.Definition(idx)); err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.Name, err)
		}
	}
	return nil
}

func (h *Harness) execute(ctx context.Context, step Step, result *Result) error {
	ev := TraceEvent{Step: step.Name, Kind: step.Kind()}
	var rows rowSet

	switch ev.Kind {
	case KindAdd, KindDelete:
		src := step.Add
		write := h.engine.Add
		if ev.Kind == KindDelete {
			src, write = step.Delete, h.engine.Delete
		}
		triples, err := h.scenario.parseTriples(src)
		if err != nil {
			return fmt.Errorf("failed to parse statements: %w", err)
		}
		if ev.Count, err = write(ctx, triples...); err != nil {
			return err
		}

	case KindQuery:
		q, err := h.scenario.parseQuery(step.Query)
		if err != nil {
			return fmt.Errorf("failed to parse query: %w", err)
		}
		res, err := h.engine.Query(ctx, queryir.FromQuery(q))
		if err != nil {
			code := engine.CodeOf(err)
			if code == "" {
				return err
			}
			ev.Error = string(code)
			break
		}
		rows.rows = res.Rows
		ev.Rows = rowKeys(res.Rows)

	case KindExplain:
		q, err := h.scenario.parseQuery(step.Explain)
		if err != nil {
			return fmt.Errorf("failed to parse query: %w", err)
		}
		ex, err := h.engine.Explain(ctx, queryir.FromQuery(q))
		if err != nil {
			return err
		}
		for _, p := range ex.Plans {
			ev.Plans = append(ev.Plans, p.Plan.String())
		}
	}

	result.Record(ev)
	for _, err := range checkExpect(h.scenario, step, ev, rows) {
		result.AddError(err.Error())
	}
	h.logger.Info("scenario step completed", "step", step.Name, "kind", ev.Kind, "rows", len(ev.Rows), "error", ev.Error)
	return nil
}
