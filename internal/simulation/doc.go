// Package simulation runs complete diffusion experiments: it resolves a
// graph, builds an engine for the requested model, runs the iterations and
// collects the results into trends.
//
// A Scenario is either built in Go (tests, generated graphs) or derived
// from a YAML run file with FromConfig. The Runner tags every run with a
// fresh run id that flows into the operational log and the decision log.
//
// Usage:
//
//	func TestCycleCascade(t *testing.T) {
//	    r := simulation.NewRunner(nil, nil)
//	    result, err := r.Run(ctx, simulation.Scenario{
//	        Name:       "cycle",
//	        Model:      "icep",
//	        Graph:      graph.Cycle(4),
//	        Iterations: 5,
//	        Config:     diffusion.Config{Initial: ...},
//	    })
//	    simulation.AssertPopulationConserved(t, result)
//	    simulation.AssertTerminalStable(t, result, 2)
//	}
package simulation
