package simulation

import (
	"context"
	"fmt"
	"log/slog"
	"maps"

	"github.com/google/uuid"
	"github.com/nvandessel/diffsim/internal/diffusion"
	"github.com/nvandessel/diffsim/internal/epidemics"
	"github.com/nvandessel/diffsim/internal/graph"
	"github.com/nvandessel/diffsim/internal/logging"
	"github.com/nvandessel/diffsim/internal/trends"
)

// Runner executes scenarios. A Runner holds no per-run state and may be
// reused.
type Runner struct {
	logger    *slog.Logger
	decisions *logging.DecisionLogger
}

// NewRunner creates a runner. Both arguments may be nil.
func NewRunner(logger *slog.Logger, decisions *logging.DecisionLogger) *Runner {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Runner{logger: logger, decisions: decisions}
}

// Result captures a finished run.
type Result struct {
	Name    string                      `json:"name,omitempty"`
	RunID   string                      `json:"run_id"`
	Info    diffusion.Info              `json:"info"`
	Results []diffusion.IterationResult `json:"results"`
	Trends  *trends.Trends              `json:"trends"`

	// Final is the status of every node after the last iteration.
	Final map[string]diffusion.Status `json:"-"`

	Table *diffusion.StatusTable `json:"-"`
	Graph *graph.Graph           `json:"-"`
}

// NewRunID returns a time-ordered run identifier.
func NewRunID() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Run builds an engine for the scenario and executes its iterations.
func (r *Runner) Run(ctx context.Context, sc Scenario) (*Result, error) {
	runID := NewRunID()
	r.decisions.SetRunID(runID)

	engine, rule, err := newEngine(sc, diffusion.Options{
		Seed:      sc.Seed,
		Rand:      sc.Rand,
		Logger:    r.logger,
		Decisions: r.decisions,
		RunID:     runID,
	})
	if err != nil {
		return nil, err
	}

	r.logger.Info("run started",
		"run", runID,
		"model", rule.Name(),
		"nodes", sc.Graph.Len(),
		"edges", sc.Graph.EdgeCount(),
		"iterations", sc.Iterations,
		"seed", sc.Seed)

	results, err := engine.Run(ctx, sc.Iterations, sc.IncludeStatus)
	if err != nil {
		return nil, fmt.Errorf("run %s: %w", runID, err)
	}

	tr := trends.Build(rule.Name(), engine.Statuses(), results)
	r.logger.Info("run complete",
		"run", runID,
		"model", rule.Name(),
		"iterations", len(results),
		"final", tr.Final())

	return &Result{
		Name:    sc.Name,
		RunID:   runID,
		Info:    engine.Info(),
		Results: results,
		Trends:  tr,
		Final:   engine.Status(),
		Table:   engine.Statuses(),
		Graph:   sc.Graph,
	}, nil
}

// Check builds the scenario's engine without running it and reports any
// configuration problem the run would hit.
func Check(sc Scenario) (diffusion.Info, error) {
	engine, _, err := newEngine(sc, diffusion.Options{Seed: sc.Seed})
	if err != nil {
		return diffusion.Info{}, err
	}
	return engine.Info(), nil
}

func newEngine(sc Scenario, opts diffusion.Options) (*diffusion.Engine, diffusion.Rule, error) {
	if sc.Graph == nil {
		return nil, nil, fmt.Errorf("scenario %q has no graph", sc.Name)
	}
	rule, err := epidemics.New(sc.Model)
	if err != nil {
		return nil, nil, err
	}
	cfg := withGraphThresholds(sc.Config, rule.Schema(), sc.Graph)
	engine, err := diffusion.NewEngine(sc.Graph, rule, cfg, opts)
	if err != nil {
		return nil, nil, err
	}
	return engine, rule, nil
}

// withGraphThresholds fills the "threshold" edge parameter from thresholds
// stored on the graph's edges. Configured values win.
func withGraphThresholds(cfg diffusion.Config, schema diffusion.ParamSchema, g *graph.Graph) diffusion.Config {
	stored := g.EdgeThresholds()
	if len(stored) == 0 {
		return cfg
	}
	accepts := false
	for _, spec := range schema.Edges {
		if spec.Name == graph.MetaThreshold {
			accepts = true
			break
		}
	}
	if !accepts {
		return cfg
	}

	merged := make(map[diffusion.Pair]float64, len(stored))
	for k, v := range stored {
		merged[diffusion.Pair{U: k[0], V: k[1]}] = v
	}
	for pair, v := range cfg.Edges[graph.MetaThreshold] {
		if !g.Directed() {
			delete(merged, diffusion.Pair{U: pair.V, V: pair.U})
		}
		merged[pair] = v
	}

	edges := make(map[string]map[diffusion.Pair]float64, len(cfg.Edges)+1)
	maps.Copy(edges, cfg.Edges)
	edges[graph.MetaThreshold] = merged
	cfg.Edges = edges
	return cfg
}
