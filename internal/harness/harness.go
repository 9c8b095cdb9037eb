package harness

import (
	"fmt"
	"io"
	"log/slog"

	"github.com/roach88/reach/internal/compiler"
	"github.com/roach88/reach/internal/engine"
	"github.com/roach88/reach/internal/helpers"
	"github.com/roach88/reach/internal/ir"
)

// Harness is the test execution engine.
// It replays one scenario against a fresh reachability engine and records
// every notification the engine emits.
type Harness struct {
	engine *engine.Engine
	logger *slog.Logger
	trace  []TraceEvent
	step   int
}

// Option configures a Harness.
type Option func(*Harness)

// WithLogger sets the logger used by the harness and its engine.
// Defaults to a logger that discards output.
func WithLogger(l *slog.Logger) Option {
	return func(h *Harness) {
		h.logger = l
	}
}

// Run executes a test scenario and returns the result.
//
// Execution flow:
//  1. Load the rule-set and helper scripts
//  2. Create a fresh engine whose sink appends to the trace
//  3. Step 0: add the starting items in one batch and solve
//  4. Apply each step and solve again
//  5. Evaluate assertions against the final state
//
// Returns an error only if the scenario cannot be set up. Assertion
// failures are reported in Result.Errors.
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	h := &Harness{
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(h)
	}

	eng, err := h.newEngine(scenario)
	if err != nil {
		return nil, err
	}
	h.engine = eng

	h.mark(TraceEvent{Action: ActionStart})
	eng.BeginBatch()
	for _, item := range scenario.Items {
		eng.AddItem(item)
	}
	if err := eng.Commit(); err != nil {
		return nil, fmt.Errorf("add starting items: %w", err)
	}
	eng.Result()

	for i, step := range scenario.Steps {
		h.step = i + 1
		h.apply(step)
		eng.Result()
	}

	final := eng.Result()
	result := NewResult()
	result.Trace = h.trace
	result.Final = Final{
		Reachable: final.Reachable,
		Passes:    final.Passes,
		Converged: final.Converged,
	}

	for _, a := range scenario.Assertions {
		if err := evaluateAssertion(eng, a, h.trace); err != nil {
			result.AddError(err.Error())
		}
	}

	h.logger.Info("scenario finished",
		"scenario", scenario.Name,
		"steps", len(scenario.Steps),
		"events", len(h.trace),
		"pass", result.Pass,
	)
	return result, nil
}

func (h *Harness) newEngine(scenario *Scenario) (*engine.Engine, error) {
	rs, err := compiler.LoadRuleSet(scenario.resolve(scenario.RuleSet))
	if err != nil {
		return nil, fmt.Errorf("load rule-set: %w", err)
	}

	mode, err := compiler.ParseIndirectMode(scenario.IndirectMode)
	if err != nil {
		return nil, err
	}

	opts := []engine.Option{
		engine.WithLogger(h.logger),
		engine.WithIndirectMode(mode),
		engine.WithSink(engine.SinkFunc(h.record)),
	}
	if scenario.MaxPasses > 0 {
		opts = append(opts, engine.WithMaxPasses(scenario.MaxPasses))
	}

	if len(scenario.Helpers) > 0 {
		table := helpers.NewTable(rs.Game)
		for _, path := range scenario.Helpers {
			t, err := helpers.LoadLuaFile(scenario.resolve(path))
			if err != nil {
				return nil, fmt.Errorf("load helpers: %w", err)
			}
			table.Merge(t)
		}
		opts = append(opts, engine.WithHelpers(table))
	}

	return engine.New(rs, opts...), nil
}

func (h *Harness) apply(step Step) {
	eng := h.engine
	switch step.Action() {
	case ActionAdd:
		count := max(step.Count, 1)
		h.mark(TraceEvent{Action: ActionAdd, Item: step.Add, Count: count})
		for range count {
			eng.AddItem(step.Add)
		}
	case ActionFlag:
		value := step.Value
		h.mark(TraceEvent{Action: ActionFlag, Flag: step.Flag, Value: &value})
		eng.SetFlag(step.Flag, value)
	case ActionInvalidate:
		h.mark(TraceEvent{Action: ActionInvalidate})
		eng.InvalidateCache()
	}
}

func (h *Harness) mark(ev TraceEvent) {
	ev.Step = h.step
	h.trace = append(h.trace, ev)
}

// record is the engine sink.
func (h *Harness) record(ev engine.Event) {
	h.trace = append(h.trace, TraceEvent{
		Step:       h.step,
		Kind:       string(ev.Kind),
		Name:       ev.Name,
		Region:     ev.Region,
		Location:   ev.Location,
		Seq:        ev.Seq,
		Generation: ev.Generation,
	})
}

// Snapshot renders a scenario result as canonical JSON for golden
// comparison.
func Snapshot(name string, r *Result) ([]byte, error) {
	trace := make(ir.List, len(r.Trace))
	for i, ev := range r.Trace {
		trace[i] = ev.toValue()
	}
	reachable := make(ir.List, len(r.Final.Reachable))
	for i, name := range r.Final.Reachable {
		reachable[i] = ir.String(name)
	}
	return ir.MarshalCanonical(ir.Object{
		"scenario": ir.String(name),
		"trace":    trace,
		"final": ir.Object{
			"reachable": reachable,
			"passes":    ir.Number(int64(r.Final.Passes)),
			"converged": ir.Bool(r.Final.Converged),
		},
	})
}
