// Package seir implements the Susceptible-Exposed-Infected-Removed model
// with exponential hazards.
//
// Every node draws one uniform sample per sweep and decides against the
// statuses of the previous iteration only. Exposed and Infected nodes
// progress with probability 1-exp(-rate*elapsed), where elapsed counts the
// iterations since the node entered its status.
package seir

import (
	"math"

	"github.com/nvandessel/diffsim/internal/diffusion"
)

// Name is the registry name of the model.
const Name = "seir"

// Statuses of the model.
const (
	Susceptible diffusion.Status = 0
	Infected    diffusion.Status = 1
	Exposed     diffusion.Status = 2
	Removed     diffusion.Status = 3
)

// Parameter names.
const (
	ParamAlpha  = "alpha"
	ParamBeta   = "beta"
	ParamGamma  = "gamma"
	ParamTPRate = "tp_rate"
)

var statuses = diffusion.NewStatusTable(
	diffusion.StatusEntry{Name: "Susceptible", Code: Susceptible},
	diffusion.StatusEntry{Name: "Infected", Code: Infected},
	diffusion.StatusEntry{Name: "Exposed", Code: Exposed},
	diffusion.StatusEntry{Name: "Removed", Code: Removed},
)

// Model is the SEIR transition rule. It holds no state; elapsed time lives
// in the engine's progress ledger.
type Model struct{}

// New returns the SEIR rule.
func New() *Model {
	return &Model{}
}

// Name implements diffusion.Rule.
func (*Model) Name() string { return Name }

// Statuses implements diffusion.Rule.
func (*Model) Statuses() *diffusion.StatusTable { return statuses }

// Schema implements diffusion.Rule.
func (*Model) Schema() diffusion.ParamSchema {
	return diffusion.ParamSchema{
		Model: []diffusion.ParamSpec{
			{Name: ParamAlpha, Description: "Latent period rate (Exposed to Infected)", Min: 0, Max: 1},
			{Name: ParamBeta, Description: "Infection probability per infected neighbor", Min: 0, Max: 1},
			{Name: ParamGamma, Description: "Removal rate (Infected to Removed)", Min: 0, Max: 1},
			{
				Name:        ParamTPRate,
				Description: "1 compounds beta over infected neighbors, 0 applies it once",
				Min:         0,
				Max:         1,
				Integral:    true,
				Optional:    true,
				Default:     diffusion.Defaults(1),
			},
		},
	}
}

// TimedStatuses implements diffusion.Timed.
func (*Model) TimedStatuses() []diffusion.Status {
	return []diffusion.Status{Exposed, Infected}
}

// Step implements diffusion.Rule.
func (*Model) Step(sw *diffusion.Sweep, u string) error {
	s, ok := sw.Previous(u)
	r := sw.Draw()
	if !ok {
		return nil
	}

	p := sw.Params()
	t := sw.Iteration()

	switch s {
	case Susceptible:
		k := infectedContacts(sw, u)
		if r < exposure(p, k) {
			sw.Set(u, Exposed)
			sw.Progress().Mark(u, t)
		}

	case Exposed:
		te, ok := sw.Progress().Since(u)
		if !ok {
			return sw.MissingProgress(u)
		}
		if r < hazard(p.Float(ParamAlpha), t-te) {
			sw.Set(u, Infected)
			sw.Progress().Mark(u, t)
		}

	case Infected:
		ti, ok := sw.Progress().Since(u)
		if !ok {
			return sw.MissingProgress(u)
		}
		if r < hazard(p.Float(ParamGamma), t-ti) {
			sw.Set(u, Removed)
			sw.Retire(u)
			sw.Progress().Forget(u)
		}
	}
	return nil
}

// infectedContacts counts the pre-sweep infected neighbors of u, or its
// predecessors on a directed graph.
func infectedContacts(sw *diffusion.Sweep, u string) int {
	g := sw.Graph()
	contacts := g.Neighbors(u)
	if g.Directed() {
		contacts = g.Predecessors(u)
	}
	k := 0
	for _, v := range contacts {
		if s, ok := sw.Previous(v); ok && s == Infected {
			k++
		}
	}
	return k
}

// exposure is the probability that a susceptible node with k infected
// contacts becomes exposed in one sweep.
func exposure(p *diffusion.Params, k int) float64 {
	beta := p.Float(ParamBeta)
	if p.Float(ParamTPRate) == 1 {
		return 1 - math.Pow(1-beta, float64(k))
	}
	if k > 0 {
		return beta
	}
	return 0
}

// hazard is 1-exp(-elapsed*rate).
func hazard(rate float64, elapsed int) float64 {
	return 1 - math.Exp(-float64(elapsed)*rate)
}
