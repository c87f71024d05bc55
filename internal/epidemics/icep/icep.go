// Package icep implements the Independent Cascades with Community
// Embeddedness and Permeability model.
//
// A node is infectious for exactly one sweep. While infectious it tries
// once to infect every susceptible neighbor: inside its own community with
// probability equal to its embeddedness (the share of its neighbors in that
// community), across communities with the edge threshold scaled by the
// permeability. It is then removed.
//
// Infections made earlier in a sweep are visible to later nodes of the same
// sweep, so the graph's node order is part of the model's behavior.
package icep

import (
	"github.com/nvandessel/diffsim/internal/diffusion"
)

// Name is the registry name of the model.
const Name = "icep"

// Statuses of the model.
const (
	Susceptible diffusion.Status = 0
	Infected    diffusion.Status = 1
	Removed     diffusion.Status = 2
)

// Parameter names.
const (
	ParamPermeability = "permeability"
	ParamCommunity    = "com"
	ParamThreshold    = "threshold"
)

// DefaultPermeability applies when permeability is not configured.
const DefaultPermeability = 0.5

var statuses = diffusion.NewStatusTable(
	diffusion.StatusEntry{Name: "Susceptible", Code: Susceptible},
	diffusion.StatusEntry{Name: "Infected", Code: Infected},
	diffusion.StatusEntry{Name: "Removed", Code: Removed},
)

// Model is the ICEP transition rule. It holds no state.
type Model struct{}

// New returns the ICEP rule.
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
			{
				Name:        ParamPermeability,
				Description: "Scales infection probability across community boundaries",
				Min:         0,
				Max:         1,
				Default:     diffusion.Defaults(DefaultPermeability),
			},
		},
		Nodes: []string{ParamCommunity},
		Edges: []diffusion.ParamSpec{
			{
				Name:        ParamThreshold,
				Description: "Cross-community edge threshold before permeability",
				Min:         0,
				Max:         1,
				Optional:    true,
			},
		},
	}
}

// Validate requires a community for every node, from the com parameter or
// the graph's own labels.
func (*Model) Validate(g diffusion.Graph, p *diffusion.Params) error {
	for _, id := range g.Nodes() {
		if _, ok := community(g, p, id); !ok {
			return &diffusion.ConfigError{
				Code:      diffusion.ErrCodeMissingParameter,
				Message:   "node has no community",
				Parameter: ParamCommunity,
				Node:      id,
			}
		}
	}
	return nil
}

// Step implements diffusion.Rule.
func (*Model) Step(sw *diffusion.Sweep, u string) error {
	if s, ok := sw.Previous(u); !ok || s != Infected {
		return nil
	}

	g, p := sw.Graph(), sw.Params()
	neighbors := g.Neighbors(u)
	if len(neighbors) == 0 {
		sw.Set(u, Removed)
		return nil
	}

	cu, _ := community(g, p, u)
	same := 0
	for _, v := range neighbors {
		if cv, _ := community(g, p, v); cv == cu {
			same++
		}
	}
	deg := float64(len(neighbors))
	base := 1 / deg
	embeddedness := float64(same) / deg
	permeability := p.Float(ParamPermeability)

	for _, v := range neighbors {
		if sw.Current(v) != Susceptible {
			continue
		}
		threshold := base
		if cv, _ := community(g, p, v); cv == cu {
			threshold = embeddedness
		} else if et, ok := p.Edge(ParamThreshold, u, v); ok {
			threshold = et * permeability
		}
		if sw.Draw() <= threshold {
			sw.Set(v, Infected)
		}
	}

	sw.Set(u, Removed)
	return nil
}

// community resolves a node's label: the com parameter first, then the graph.
func community(g diffusion.Graph, p *diffusion.Params, id string) (string, bool) {
	if c, ok := p.Node(ParamCommunity, id); ok {
		return c, true
	}
	return g.Community(id)
}
