package diffusion

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/nvandessel/diffsim/internal/logging"
)

// Options carries the engine's collaborators. All fields are optional.
type Options struct {
	// Seed seeds the engine-owned random source.
	Seed uint64

	// Rand, when set, replaces the engine-owned source. Reset does not
	// reseed an injected source.
	Rand *rand.Rand

	// Logger receives one DEBUG record per iteration.
	Logger *slog.Logger

	// Decisions receives one event per status transition.
	Decisions *logging.DecisionLogger

	// RunID tags log records and decision events.
	RunID string
}

// Info describes a configured engine.
type Info struct {
	Model      string             `json:"model"`
	RunID      string             `json:"run_id,omitempty"`
	Seed       uint64             `json:"seed"`
	Iteration  int                `json:"iteration"`
	Nodes      int                `json:"nodes"`
	Directed   bool               `json:"directed"`
	Parameters map[string]float64 `json:"parameters"`
	Statuses   []StatusEntry      `json:"statuses"`
}

// Engine runs one diffusion model over one graph. It is not safe for
// concurrent use.
type Engine struct {
	graph   Graph
	rule    Rule
	table   *StatusTable
	params  *Params
	initial InitialStatus

	seed    uint64
	rng     *rand.Rand
	ownsRNG bool

	logger    *slog.Logger
	decisions *logging.DecisionLogger
	runID     string

	iteration int
	seeded    bool
	status    map[string]Status
	progress  *ProgressLedger
}

// NewEngine validates cfg against the rule and graph and returns an engine
// ready for its first iteration. Every configuration problem is reported
// here as a *ConfigError.
func NewEngine(g Graph, rule Rule, cfg Config, opts Options) (*Engine, error) {
	params, err := ResolveParams(rule.Schema(), cfg, g)
	if err != nil {
		return nil, fmt.Errorf("resolving %s parameters: %w", rule.Name(), err)
	}
	if v, ok := rule.(Validator); ok {
		if err := v.Validate(g, params); err != nil {
			return nil, fmt.Errorf("validating %s configuration: %w", rule.Name(), err)
		}
	}
	table := rule.Statuses()
	if err := cfg.Initial.validate(table, g); err != nil {
		return nil, fmt.Errorf("validating initial status: %w", err)
	}

	e := &Engine{
		graph:     g,
		rule:      rule,
		table:     table,
		params:    params,
		initial:   cfg.Initial,
		seed:      opts.Seed,
		rng:       opts.Rand,
		logger:    opts.Logger,
		decisions: opts.Decisions,
		runID:     opts.RunID,
		status:    make(map[string]Status),
		progress:  NewProgressLedger(),
	}
	if e.rng == nil {
		e.rng = newRand(opts.Seed)
		e.ownsRNG = true
	}
	if e.logger == nil {
		e.logger = slog.New(slog.DiscardHandler)
	}
	return e, nil
}

func newRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed))
}

// Iteration advances the simulation by one step. The first call seeds the
// initial statuses and returns them as iteration 0 without sweeping.
func (e *Engine) Iteration(includeStatus bool) (IterationResult, error) {
	if e.iteration == 0 {
		return e.start(includeStatus), nil
	}
	if !e.seeded {
		return IterationResult{}, &StateError{Message: "sweep requested before initial status seeding", Iteration: e.iteration}
	}

	t := e.iteration
	sw := NewSweep(t, e.graph, e.params, e.rng, e.status, e.progress)
	for _, u := range e.graph.Nodes() {
		if err := e.rule.Step(sw, u); err != nil {
			return IterationResult{}, fmt.Errorf("%s step for node %s: %w", e.rule.Name(), u, err)
		}
	}

	next := sw.Result()
	report := ComputeDelta(e.table, e.status, next)
	e.logTransitions(t, e.status, report.Changed)
	e.status = next
	e.iteration++

	e.logger.Debug("iteration complete",
		"run", e.runID,
		"model", e.rule.Name(),
		"iteration", t,
		"changed", len(report.Changed))

	res := IterationResult{
		Iteration:   t,
		Status:      map[string]Status{},
		NodeCount:   report.NodeCount,
		StatusDelta: report.StatusDelta,
	}
	if includeStatus {
		res.Status = report.Changed
	}
	return res, nil
}

// start seeds the ledgers and reports iteration 0.
func (e *Engine) start(includeStatus bool) IterationResult {
	e.status = e.initial.apply(e.table, e.graph, e.rng)
	if timed, ok := e.rule.(Timed); ok {
		for _, code := range timed.TimedStatuses() {
			for _, id := range e.graph.Nodes() {
				if e.status[id] == code {
					e.progress.Mark(id, 0)
				}
			}
		}
	}
	e.seeded = true
	e.iteration = 1

	counts := Counts(e.table, e.status)
	zero := make(map[Status]int, len(counts))
	for code := range counts {
		zero[code] = 0
	}

	e.logger.Debug("initial status seeded",
		"run", e.runID,
		"model", e.rule.Name(),
		"nodes", len(e.status))

	res := IterationResult{
		Iteration:   0,
		Status:      map[string]Status{},
		NodeCount:   counts,
		StatusDelta: zero,
	}
	if includeStatus {
		res.Status = copyStatus(e.status)
	}
	return res
}

// logTransitions emits one decision event per changed node, in graph order.
func (e *Engine) logTransitions(t int, prev, changed map[string]Status) {
	if e.decisions == nil || len(changed) == 0 {
		return
	}
	for _, id := range e.graph.Nodes() {
		to, ok := changed[id]
		if !ok {
			continue
		}
		e.decisions.Log(map[string]any{
			"event":     "transition",
			"run":       e.runID,
			"model":     e.rule.Name(),
			"iteration": t,
			"node":      id,
			"from":      e.table.Name(prev[id]),
			"to":        e.table.Name(to),
		})
	}
}

// IterationBunch runs n iterations and returns their results in order.
func (e *Engine) IterationBunch(n int, includeStatus bool) ([]IterationResult, error) {
	return e.Run(context.Background(), n, includeStatus)
}

// Run is IterationBunch with cancellation between iterations.
func (e *Engine) Run(ctx context.Context, n int, includeStatus bool) ([]IterationResult, error) {
	if n < 0 {
		return nil, fmt.Errorf("iteration count must be non-negative, got %d", n)
	}
	results := make([]IterationResult, 0, n)
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		res, err := e.Iteration(includeStatus)
		if err != nil {
			return results, err
		}
		results = append(results, res)
	}
	return results, nil
}

// Reset returns the engine to its pre-seeding state. Parameters are kept;
// an engine-owned random source is reseeded so the run replays exactly.
func (e *Engine) Reset() {
	e.iteration = 0
	e.seeded = false
	e.status = make(map[string]Status)
	e.progress.clear()
	if e.ownsRNG {
		e.rng = newRand(e.seed)
	}
}

// Info describes the engine's model, parameters and statuses.
func (e *Engine) Info() Info {
	return Info{
		Model:      e.rule.Name(),
		RunID:      e.runID,
		Seed:       e.seed,
		Iteration:  e.iteration,
		Nodes:      len(e.graph.Nodes()),
		Directed:   e.graph.Directed(),
		Parameters: e.params.Model(),
		Statuses:   e.table.Entries(),
	}
}

// Statuses returns the model's status table.
func (e *Engine) Statuses() *StatusTable {
	return e.table
}

// Params returns the resolved parameters.
func (e *Engine) Params() *Params {
	return e.params
}

// Status returns a copy of the current status ledger.
func (e *Engine) Status() map[string]Status {
	return copyStatus(e.status)
}

// StatusOf returns the current status of id.
func (e *Engine) StatusOf(id string) (Status, bool) {
	s, ok := e.status[id]
	return s, ok
}

// Progress returns a copy of the progress ledger.
func (e *Engine) Progress() map[string]int {
	return e.progress.Snapshot()
}

// CurrentIteration returns the index the next Iteration call will report.
func (e *Engine) CurrentIteration() int {
	return e.iteration
}
