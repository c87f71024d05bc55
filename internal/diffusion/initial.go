package diffusion

import (
	"fmt"
	"math"
	"math/rand/v2"
)

// InfectedStatus is the status name seeded by FractionInfected.
const InfectedStatus = "Infected"

// InitialStatus selects the starting statuses of a run.
type InitialStatus struct {
	// Nodes maps a status name to the nodes that start in it.
	Nodes map[string][]string `json:"nodes,omitempty" yaml:"nodes,omitempty"`

	// FractionInfected seeds floor(fraction * |V|) randomly chosen nodes,
	// among those not listed in Nodes, as Infected.
	FractionInfected float64 `json:"fraction_infected,omitempty" yaml:"fraction_infected,omitempty"`
}

// validate checks status names, node membership and the fraction.
func (in InitialStatus) validate(table *StatusTable, g Graph) error {
	if math.IsNaN(in.FractionInfected) || in.FractionInfected < 0 || in.FractionInfected > 1 {
		return &ConfigError{
			Code:      ErrCodeOutOfRange,
			Message:   fmt.Sprintf("value %v outside [0, 1]", in.FractionInfected),
			Parameter: "fraction_infected",
		}
	}
	if in.FractionInfected > 0 {
		if _, ok := table.Code(InfectedStatus); !ok {
			return &ConfigError{Code: ErrCodeUnknownStatus, Message: "model has no Infected status", Parameter: "fraction_infected"}
		}
	}

	seen := make(map[string]string)
	for _, name := range sortedKeys(in.Nodes) {
		if _, ok := table.Code(name); !ok {
			return &ConfigError{Code: ErrCodeUnknownStatus, Message: fmt.Sprintf("status %q not defined by model", name)}
		}
		for _, id := range in.Nodes[name] {
			if !g.Has(id) {
				return &ConfigError{Code: ErrCodeUnknownNode, Message: "initial status for node not in graph", Node: id}
			}
			if other, dup := seen[id]; dup && other != name {
				return &ConfigError{Code: ErrCodeDuplicateNode, Message: fmt.Sprintf("node listed as both %s and %s", other, name), Node: id}
			}
			seen[id] = name
		}
	}
	return nil
}

// apply builds the starting snapshot. Every node gets the table default
// unless configured otherwise.
func (in InitialStatus) apply(table *StatusTable, g Graph, rng *rand.Rand) map[string]Status {
	nodes := g.Nodes()
	snapshot := make(map[string]Status, len(nodes))
	for _, id := range nodes {
		snapshot[id] = table.Default()
	}

	explicit := make(map[string]bool)
	for _, name := range table.Names() {
		code, _ := table.Code(name)
		for _, id := range in.Nodes[name] {
			snapshot[id] = code
			explicit[id] = true
		}
	}

	if in.FractionInfected > 0 {
		infected, _ := table.Code(InfectedStatus)
		candidates := make([]string, 0, len(nodes))
		for _, id := range nodes {
			if !explicit[id] {
				candidates = append(candidates, id)
			}
		}
		n := int(math.Floor(in.FractionInfected * float64(len(nodes))))
		n = min(n, len(candidates))
		perm := rng.Perm(len(candidates))
		for _, i := range perm[:n] {
			snapshot[candidates[i]] = infected
		}
	}

	return snapshot
}
