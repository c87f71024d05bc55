// Package trends turns a sequence of iteration results into per-status time
// series: the population of each status and its change per iteration.
package trends

import (
	"fmt"

	"github.com/nvandessel/diffsim/internal/diffusion"
)

// Series is one status's values over the iterations of a run.
type Series struct {
	Status string `json:"status"`
	Code   int    `json:"code"`
	Values []int  `json:"values"`
}

// Trends holds the node_count and status_delta series of one run.
type Trends struct {
	Model       string   `json:"model,omitempty"`
	Iterations  []int    `json:"iterations"`
	NodeCount   []Series `json:"node_count"`
	StatusDelta []Series `json:"status_delta"`
}

// Kind selects which series a renderer draws.
type Kind string

const (
	KindNodeCount   Kind = "node_count"
	KindStatusDelta Kind = "status_delta"
)

// ParseKind maps a name to a Kind.
func ParseKind(s string) (Kind, error) {
	switch Kind(s) {
	case KindNodeCount, "":
		return KindNodeCount, nil
	case KindStatusDelta:
		return KindStatusDelta, nil
	}
	return "", fmt.Errorf("unknown trend kind %q (want %s or %s)", s, KindNodeCount, KindStatusDelta)
}

// Build collects the series in status table order. Results must be in
// iteration order; gaps are kept as given.
func Build(model string, table *diffusion.StatusTable, results []diffusion.IterationResult) *Trends {
	entries := table.Entries()
	t := &Trends{
		Model:       model,
		Iterations:  make([]int, len(results)),
		NodeCount:   make([]Series, len(entries)),
		StatusDelta: make([]Series, len(entries)),
	}
	for i, e := range entries {
		t.NodeCount[i] = Series{Status: e.Name, Code: int(e.Code), Values: make([]int, len(results))}
		t.StatusDelta[i] = Series{Status: e.Name, Code: int(e.Code), Values: make([]int, len(results))}
	}
	for j, res := range results {
		t.Iterations[j] = res.Iteration
		for i, e := range entries {
			t.NodeCount[i].Values[j] = res.NodeCount[e.Code]
			t.StatusDelta[i].Values[j] = res.StatusDelta[e.Code]
		}
	}
	return t
}

// Series returns the series of the given kind.
func (t *Trends) Series(kind Kind) []Series {
	if kind == KindStatusDelta {
		return t.StatusDelta
	}
	return t.NodeCount
}

// Final returns the last node count per status name.
func (t *Trends) Final() map[string]int {
	out := make(map[string]int, len(t.NodeCount))
	for _, s := range t.NodeCount {
		if n := len(s.Values); n > 0 {
			out[s.Status] = s.Values[n-1]
		}
	}
	return out
}

// Peak returns, per status name, the highest node count and the iteration
// where it was first reached.
func (t *Trends) Peak() map[string][2]int {
	out := make(map[string][2]int, len(t.NodeCount))
	for _, s := range t.NodeCount {
		best, at := -1, 0
		for j, v := range s.Values {
			if v > best {
				best, at = v, t.Iterations[j]
			}
		}
		if best >= 0 {
			out[s.Status] = [2]int{best, at}
		}
	}
	return out
}

// Len returns the number of iterations covered.
func (t *Trends) Len() int {
	return len(t.Iterations)
}
