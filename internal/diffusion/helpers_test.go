package diffusion

import (
	"math/rand/v2"

	"github.com/nvandessel/diffsim/internal/graph"
)

// spread is a minimal rule used to exercise the engine: an On node turns
// every Off neighbor On with probability rate and then becomes Done.
type spread struct{}

const (
	off  Status = 0
	on   Status = 1
	done Status = 2
)

var spreadStatuses = NewStatusTable(
	StatusEntry{Name: "Off", Code: off},
	StatusEntry{Name: "Infected", Code: on},
	StatusEntry{Name: "Done", Code: done},
)

func (spread) Name() string           { return "spread" }
func (spread) Statuses() *StatusTable { return spreadStatuses }

func (spread) Schema() ParamSchema {
	return ParamSchema{
		Model: []ParamSpec{
			{Name: "rate", Min: 0, Max: 1, Default: Defaults(1)},
		},
	}
}

func (spread) Step(sw *Sweep, u string) error {
	if s, ok := sw.Previous(u); !ok || s != on {
		return nil
	}
	rate := sw.Params().Float("rate")
	for _, v := range sw.Graph().Neighbors(u) {
		if sw.Current(v) == off && sw.Draw() < rate {
			sw.Set(v, on)
		}
	}
	sw.Set(u, done)
	return nil
}

// timedSpread adds elapsed-time tracking for the On status.
type timedSpread struct{ spread }

func (timedSpread) TimedStatuses() []Status { return []Status{on} }

// constSource always yields the same 64 bits, so Float64 is fixed.
type constSource uint64

func (c constSource) Uint64() uint64 { return uint64(c) }

func constRand(bits uint64) *rand.Rand {
	return rand.New(constSource(bits))
}

func path(n int) *graph.Graph {
	b := graph.NewBuilder(false)
	for i := 0; i+1 < n; i++ {
		b.AddEdge(string(rune('a'+i)), string(rune('a'+i+1)))
	}
	return b.Build()
}

func sum(counts map[Status]int) int {
	total := 0
	for _, n := range counts {
		total += n
	}
	return total
}
