// Package diffusion implements the discrete-time simulation engine shared by
// all compartmental diffusion models.
//
// An Engine owns the status ledger (node -> Status), the progress ledger
// (node -> iteration a timed state began), the resolved parameters and a
// seeded random source. Each call to Iteration runs one sweep over the
// graph's nodes in their fixed order, asking the model's Rule to decide the
// next status of every node, and reports the changed nodes together with
// per-status population counts.
//
// The first call never sweeps: it seeds the initial statuses and returns the
// full starting snapshot as iteration 0.
//
// Usage:
//
//	eng, err := diffusion.NewEngine(g, seir.New(), diffusion.Config{
//	    Model:   map[string]float64{"alpha": 0.2, "beta": 0.05, "gamma": 0.1},
//	    Initial: diffusion.InitialStatus{FractionInfected: 0.01},
//	}, diffusion.Options{Seed: 42})
//	if err != nil {
//	    return err
//	}
//	results, err := eng.IterationBunch(100, false)
package diffusion
