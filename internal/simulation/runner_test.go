package simulation_test

import (
	"context"
	"errors"
	"math/rand/v2"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/nvandessel/diffsim/internal/config"
	"github.com/nvandessel/diffsim/internal/constants"
	"github.com/nvandessel/diffsim/internal/diffusion"
	"github.com/nvandessel/diffsim/internal/graph"
	"github.com/nvandessel/diffsim/internal/logging"
	"github.com/nvandessel/diffsim/internal/simulation"
	"github.com/nvandessel/diffsim/internal/store"
)

// zeroSource makes every Float64 draw 0, so every cascade attempt succeeds.
type zeroSource struct{}

func (zeroSource) Uint64() uint64 { return 0 }

func cycleScenario(iterations int) simulation.Scenario {
	g := graph.Cycle(4)
	return simulation.Scenario{
		Name:  "cycle",
		Model: "icep",
		Graph: g,
		Config: diffusion.Config{
			Nodes:   simulation.SameCommunity("a", g.Nodes()),
			Initial: simulation.Infected("0"),
		},
		Iterations:    iterations,
		IncludeStatus: true,
		Rand:          rand.New(zeroSource{}),
	}
}

func TestRunCascadeOnCycle(t *testing.T) {
	r := simulation.NewRunner(nil, nil)
	result, err := r.Run(context.Background(), cycleScenario(6))
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(result.Results) != 6 {
		t.Fatalf("expected 6 iteration results, got %d", len(result.Results))
	}
	if _, err := uuid.Parse(result.RunID); err != nil {
		t.Errorf("run id %q is not a UUID: %v", result.RunID, err)
	}
	if result.Info.RunID != result.RunID {
		t.Errorf("engine info run id %q, want %q", result.Info.RunID, result.RunID)
	}
	if result.Trends.Len() != 6 {
		t.Errorf("expected 6 trend points, got %d", result.Trends.Len())
	}

	simulation.AssertPopulationConserved(t, result)
	simulation.AssertDeltasConsistent(t, result)
	simulation.AssertNonDecreasing(t, result, "Removed")
	simulation.AssertTerminalStable(t, result, 3)
	simulation.AssertAllInStatus(t, result, "Removed")

	if got := result.Trends.Final()["Removed"]; got != 4 {
		t.Errorf("expected 4 removed nodes in trends, got %d", got)
	}
	if got := simulation.NodesIn(result, "Removed"); !reflect.DeepEqual(got, []string{"0", "1", "2", "3"}) {
		t.Errorf("NodesIn(Removed) = %v", got)
	}
}

func TestRunIsReproducible(t *testing.T) {
	sc := simulation.Scenario{
		Model: "seir",
		Config: diffusion.Config{
			Model:   map[string]float64{"alpha": 0.3, "beta": 0.4, "gamma": 0.2},
			Initial: diffusion.InitialStatus{FractionInfected: 0.1},
		},
		Iterations:    25,
		IncludeStatus: true,
		Seed:          99,
	}
	g, err := graph.Generate(graph.Spec{Kind: graph.KindErdosRenyi, N: 60, P: 0.08}, rand.New(rand.NewPCG(1, 2)))
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	sc.Graph = g

	r := simulation.NewRunner(nil, nil)
	first, err := r.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("first run: %v", err)
	}
	second, err := r.Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("second run: %v", err)
	}

	if first.RunID == second.RunID {
		t.Error("expected distinct run ids")
	}
	if !reflect.DeepEqual(first.Results, second.Results) {
		t.Error("same seed produced different results")
	}

	simulation.AssertPopulationConserved(t, first)
	simulation.AssertDeltasConsistent(t, first)
	simulation.AssertNonDecreasing(t, first, "Removed")
}

func TestRunErrors(t *testing.T) {
	r := simulation.NewRunner(nil, nil)
	ctx := context.Background()

	t.Run("no graph", func(t *testing.T) {
		sc := cycleScenario(1)
		sc.Graph = nil
		if _, err := r.Run(ctx, sc); err == nil {
			t.Error("expected error for missing graph")
		}
	})

	t.Run("unknown model", func(t *testing.T) {
		sc := cycleScenario(1)
		sc.Model = "sis"
		_, err := r.Run(ctx, sc)
		if err == nil || !strings.Contains(err.Error(), "unknown model") {
			t.Errorf("expected unknown model error, got %v", err)
		}
	})

	t.Run("configuration error", func(t *testing.T) {
		sc := cycleScenario(1)
		sc.Config.Model = map[string]float64{"permeability": 2}
		_, err := r.Run(ctx, sc)
		if !diffusion.IsConfigError(err) {
			t.Fatalf("expected ConfigError, got %v", err)
		}
		if code := diffusion.ConfigErrorCodeOf(err); code != diffusion.ErrCodeOutOfRange {
			t.Errorf("expected OUT_OF_RANGE, got %s", code)
		}
	})

	t.Run("cancelled", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := r.Run(cctx, cycleScenario(3))
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	})
}

func TestRunLogsDecisions(t *testing.T) {
	dir := t.TempDir()
	dl := logging.NewDecisionLogger(dir, "debug")
	if dl == nil {
		t.Fatal("expected decision logger at debug level")
	}

	r := simulation.NewRunner(logging.NewLogger("debug", &strings.Builder{}), dl)
	result, err := r.Run(context.Background(), cycleScenario(6))
	dl.Close()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	// 0->R, 1->I, 3->I, then 1->R, 2->I, 3->R, then 2->R.
	if dl.Count() != 7 {
		t.Errorf("expected 7 transition events, got %d", dl.Count())
	}

	data, err := os.ReadFile(filepath.Join(dir, logging.DecisionsFile))
	if err != nil {
		t.Fatalf("reading decisions: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	if len(lines) != 7 {
		t.Fatalf("expected 7 lines, got %d", len(lines))
	}
	for _, line := range lines {
		if !strings.Contains(line, result.RunID) {
			t.Errorf("decision line missing run id: %s", line)
		}
	}
}

func writeGraphJSONL(t *testing.T, dir string) {
	t.Helper()
	nodes := `{"id":"a","metadata":{"community":1}}
{"id":"b","metadata":{"community":1}}
{"id":"c","metadata":{"community":2}}
`
	edges := `{"source":"a","target":"b"}
{"source":"b","target":"c","metadata":{"threshold":0.9}}
`
	if err := os.WriteFile(filepath.Join(dir, store.NodesFile), []byte(nodes), 0600); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, store.EdgesFile), []byte(edges), 0600); err != nil {
		t.Fatal(err)
	}
}

func TestLoadGraph(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	writeGraphJSONL(t, dir)

	t.Run("jsonl", func(t *testing.T) {
		g, err := simulation.LoadGraph(ctx, config.GraphConfig{Source: constants.SourceJSONL, Path: dir}, 0)
		if err != nil {
			t.Fatalf("LoadGraph: %v", err)
		}
		if !reflect.DeepEqual(g.Nodes(), []string{"a", "b", "c"}) {
			t.Errorf("unexpected nodes %v", g.Nodes())
		}
		if c, _ := g.Community("c"); c != "2" {
			t.Errorf("expected community 2 for c, got %q", c)
		}
		if th := g.EdgeThresholds()[[2]string{"b", "c"}]; th != 0.9 {
			t.Errorf("expected threshold 0.9 on b-c, got %v", th)
		}
	})

	t.Run("sqlite", func(t *testing.T) {
		dbPath := filepath.Join(t.TempDir(), "graph.db")
		gs, err := store.NewSQLiteGraphStore(dbPath)
		if err != nil {
			t.Fatalf("NewSQLiteGraphStore: %v", err)
		}
		if _, err := store.ImportJSONL(ctx, gs, dir); err != nil {
			t.Fatalf("ImportJSONL: %v", err)
		}
		gs.Close()

		g, err := simulation.LoadGraph(ctx, config.GraphConfig{Source: constants.SourceSQLite, Path: dbPath, Directed: true}, 0)
		if err != nil {
			t.Fatalf("LoadGraph: %v", err)
		}
		if !g.Directed() || g.Len() != 3 || g.EdgeCount() != 2 {
			t.Errorf("unexpected graph: directed=%v nodes=%d edges=%d", g.Directed(), g.Len(), g.EdgeCount())
		}
	})

	t.Run("generator", func(t *testing.T) {
		gc := config.GraphConfig{
			Source:    constants.SourceGenerator,
			Generator: &graph.Spec{Kind: graph.KindErdosRenyi, N: 30, P: 0.2},
		}
		g1, err := simulation.LoadGraph(ctx, gc, 5)
		if err != nil {
			t.Fatalf("LoadGraph: %v", err)
		}
		g2, _ := simulation.LoadGraph(ctx, gc, 5)
		for _, id := range g1.Nodes() {
			if !reflect.DeepEqual(g1.Neighbors(id), g2.Neighbors(id)) {
				t.Fatalf("same seed generated different neighbors for %s", id)
			}
		}
	})

	t.Run("generator missing", func(t *testing.T) {
		_, err := simulation.LoadGraph(ctx, config.GraphConfig{Source: constants.SourceGenerator}, 0)
		if err == nil {
			t.Error("expected error")
		}
	})

	t.Run("malformed jsonl", func(t *testing.T) {
		bad := t.TempDir()
		if err := os.WriteFile(filepath.Join(bad, store.NodesFile), []byte("{not json\n"), 0600); err != nil {
			t.Fatal(err)
		}
		_, err := simulation.LoadGraph(ctx, config.GraphConfig{Source: constants.SourceJSONL, Path: bad}, 0)
		if err == nil || !strings.Contains(err.Error(), "malformed") {
			t.Errorf("expected malformed line error, got %v", err)
		}
	})
}

func TestFromConfig(t *testing.T) {
	dir := t.TempDir()
	writeGraphJSONL(t, dir)

	cfg := config.Default()
	cfg.Model = "icep"
	cfg.Seed = 3
	cfg.Iterations = 4
	cfg.Graph = config.GraphConfig{Source: constants.SourceJSONL, Path: dir}
	cfg.Initial = simulation.Infected("a")

	sc, err := simulation.FromConfig(context.Background(), cfg)
	if err != nil {
		t.Fatalf("FromConfig: %v", err)
	}
	if sc.Model != "icep" || sc.Seed != 3 || sc.Iterations != 4 || !sc.IncludeStatus {
		t.Errorf("unexpected scenario: %+v", sc)
	}

	result, err := simulation.NewRunner(nil, nil).Run(context.Background(), sc)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	simulation.AssertPopulationConserved(t, result)
	simulation.AssertDeltasConsistent(t, result)
}

func TestCheck(t *testing.T) {
	info, err := simulation.Check(cycleScenario(0))
	if err != nil {
		t.Fatalf("Check: %v", err)
	}
	if info.Model != "icep" || info.Nodes != 4 || info.Iteration != 0 {
		t.Errorf("unexpected info: %+v", info)
	}

	sc := cycleScenario(0)
	sc.Config.Nodes = nil
	_, err = simulation.Check(sc)
	if code := diffusion.ConfigErrorCodeOf(err); code != diffusion.ErrCodeMissingParameter {
		t.Errorf("expected MISSING_PARAMETER for nodes without a community, got %v", err)
	}
}
