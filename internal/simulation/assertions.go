package simulation

import (
	"testing"
)

// AssertPopulationConserved asserts that every iteration's node counts sum
// to the graph's node count.
func AssertPopulationConserved(t *testing.T, result *Result) {
	t.Helper()
	want := result.Graph.Len()
	for _, it := range result.Results {
		total := 0
		for _, n := range it.NodeCount {
			total += n
		}
		if total != want {
			t.Errorf("AssertPopulationConserved: iteration %d: counts sum to %d, graph has %d nodes", it.Iteration, total, want)
		}
	}
}

// AssertDeltasConsistent asserts that each iteration's node counts equal
// the previous counts plus the reported status delta.
func AssertDeltasConsistent(t *testing.T, result *Result) {
	t.Helper()
	for i := 1; i < len(result.Results); i++ {
		prev, cur := result.Results[i-1], result.Results[i]
		for code, n := range cur.NodeCount {
			if prev.NodeCount[code]+cur.StatusDelta[code] != n {
				t.Errorf("AssertDeltasConsistent: iteration %d: %s count %d != %d%+d",
					cur.Iteration, result.Table.Name(code), n, prev.NodeCount[code], cur.StatusDelta[code])
			}
		}
	}
}

// AssertTerminalStable asserts that no node changes status in any iteration
// after afterIteration.
func AssertTerminalStable(t *testing.T, result *Result, afterIteration int) {
	t.Helper()
	for _, it := range result.Results {
		if it.Iteration <= afterIteration {
			continue
		}
		if len(it.Status) > 0 {
			t.Errorf("AssertTerminalStable: iteration %d: %d nodes changed", it.Iteration, len(it.Status))
		}
		for code, d := range it.StatusDelta {
			if d != 0 {
				t.Errorf("AssertTerminalStable: iteration %d: %s delta %+d", it.Iteration, result.Table.Name(code), d)
			}
		}
	}
}

// AssertAllInStatus asserts that every node ends in the named status.
func AssertAllInStatus(t *testing.T, result *Result, name string) {
	t.Helper()
	code, ok := result.Table.Code(name)
	if !ok {
		t.Fatalf("AssertAllInStatus: model %s has no status %q", result.Info.Model, name)
	}
	if len(result.Final) != result.Graph.Len() {
		t.Errorf("AssertAllInStatus: %d nodes have a status, graph has %d", len(result.Final), result.Graph.Len())
	}
	for id, s := range result.Final {
		if s != code {
			t.Errorf("AssertAllInStatus: node %s is %s, want %s", id, result.Table.Name(s), name)
		}
	}
}

// AssertNonDecreasing asserts that the named status's count never drops,
// which holds for absorbing statuses such as Removed.
func AssertNonDecreasing(t *testing.T, result *Result, name string) {
	t.Helper()
	code, ok := result.Table.Code(name)
	if !ok {
		t.Fatalf("AssertNonDecreasing: model %s has no status %q", result.Info.Model, name)
	}
	for _, it := range result.Results {
		if it.StatusDelta[code] < 0 {
			t.Errorf("AssertNonDecreasing: iteration %d: %s delta %d", it.Iteration, name, it.StatusDelta[code])
		}
	}
}
