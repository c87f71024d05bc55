package graph

import (
	"fmt"
	"math/rand/v2"
	"strconv"
)

// Generator kinds accepted by Generate.
const (
	KindCycle            = "cycle"
	KindComplete         = "complete"
	KindErdosRenyi       = "erdos_renyi"
	KindPlantedPartition = "planted_partition"
)

// Spec describes a synthetic graph. Nodes are named "0".."N-1".
type Spec struct {
	Kind        string  `json:"kind" yaml:"kind"`
	N           int     `json:"n" yaml:"n"`
	P           float64 `json:"p,omitempty" yaml:"p,omitempty"`                     // edge probability (erdos_renyi, in-block for planted_partition)
	POut        float64 `json:"p_out,omitempty" yaml:"p_out,omitempty"`             // cross-block probability (planted_partition)
	Communities int     `json:"communities,omitempty" yaml:"communities,omitempty"` // contiguous blocks; 0 = no labels
	Directed    bool    `json:"directed,omitempty" yaml:"directed,omitempty"`
}

// Validate checks the spec before generation.
func (s Spec) Validate() error {
	if s.N < 0 {
		return fmt.Errorf("n must be non-negative, got %d", s.N)
	}
	if s.P < 0 || s.P > 1 {
		return fmt.Errorf("p must be in [0, 1], got %v", s.P)
	}
	if s.POut < 0 || s.POut > 1 {
		return fmt.Errorf("p_out must be in [0, 1], got %v", s.POut)
	}
	if s.Communities < 0 || (s.N > 0 && s.Communities > s.N) {
		return fmt.Errorf("communities must be in [0, n], got %d", s.Communities)
	}
	switch s.Kind {
	case KindCycle, KindComplete, KindErdosRenyi:
	case KindPlantedPartition:
		if s.Communities == 0 {
			return fmt.Errorf("planted_partition requires communities > 0")
		}
	default:
		return fmt.Errorf("unknown generator kind %q", s.Kind)
	}
	return nil
}

// Generate builds the graph described by spec. Random generators draw from
// rng, so the same seed yields the same graph.
func Generate(spec Spec, rng *rand.Rand) (*Graph, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}

	b := NewBuilder(spec.Directed)
	for i := 0; i < spec.N; i++ {
		b.AddNode(nodeID(i))
		if spec.Communities > 0 {
			b.SetCommunity(nodeID(i), strconv.Itoa(block(i, spec.N, spec.Communities)))
		}
	}

	switch spec.Kind {
	case KindCycle:
		for i := 0; i < spec.N && spec.N > 1; i++ {
			b.AddEdge(nodeID(i), nodeID((i+1)%spec.N))
		}
	case KindComplete:
		eachPair(spec, func(i, j int) {
			b.AddEdge(nodeID(i), nodeID(j))
		})
	case KindErdosRenyi:
		eachPair(spec, func(i, j int) {
			if rng.Float64() < spec.P {
				b.AddEdge(nodeID(i), nodeID(j))
			}
		})
	case KindPlantedPartition:
		eachPair(spec, func(i, j int) {
			p := spec.POut
			if block(i, spec.N, spec.Communities) == block(j, spec.N, spec.Communities) {
				p = spec.P
			}
			if rng.Float64() < p {
				b.AddEdge(nodeID(i), nodeID(j))
			}
		})
	}

	return b.Build(), nil
}

// Cycle returns the undirected cycle 0-1-...-(n-1)-0.
func Cycle(n int) *Graph {
	g, _ := Generate(Spec{Kind: KindCycle, N: n}, nil)
	return g
}

// eachPair visits ordered pairs (i, j), i != j, for directed specs and
// pairs i < j otherwise.
func eachPair(spec Spec, fn func(i, j int)) {
	for i := 0; i < spec.N; i++ {
		start := i + 1
		if spec.Directed {
			start = 0
		}
		for j := start; j < spec.N; j++ {
			if i == j {
				continue
			}
			fn(i, j)
		}
	}
}

func block(i, n, k int) int {
	return i * k / n
}

func nodeID(i int) string {
	return strconv.Itoa(i)
}
