package diffusion

// IterationResult is the record emitted by one Iteration call. Its maps are
// owned by the caller.
type IterationResult struct {
	// Iteration is the 0-based index; 0 is the seeded starting state.
	Iteration int `json:"iteration"`

	// Status is the full snapshot at iteration 0 and the changed nodes
	// afterwards. It is empty when status reporting is disabled.
	Status map[string]Status `json:"status"`

	// NodeCount is the population of every status after the iteration.
	NodeCount map[Status]int `json:"node_count"`

	// StatusDelta is the signed population change against the previous
	// iteration.
	StatusDelta map[Status]int `json:"status_delta"`
}

// DeltaReport is the raw comparison of two snapshots.
type DeltaReport struct {
	Changed     map[string]Status
	NodeCount   map[Status]int
	StatusDelta map[Status]int
}

// Counts returns the population of every status in table. Statuses without
// nodes are reported as 0.
func Counts(table *StatusTable, snapshot map[string]Status) map[Status]int {
	counts := make(map[Status]int, table.Len())
	for _, e := range table.entries {
		counts[e.Code] = 0
	}
	for _, s := range snapshot {
		counts[s]++
	}
	return counts
}

// ComputeDelta compares the pre-sweep snapshot prev with next.
func ComputeDelta(table *StatusTable, prev, next map[string]Status) DeltaReport {
	changed := make(map[string]Status)
	for id, s := range next {
		if old, ok := prev[id]; !ok || old != s {
			changed[id] = s
		}
	}

	before := Counts(table, prev)
	after := Counts(table, next)
	delta := make(map[Status]int, len(after))
	for code, n := range after {
		delta[code] = n - before[code]
	}
	for code, n := range before {
		if _, ok := after[code]; !ok {
			delta[code] = -n
		}
	}

	return DeltaReport{Changed: changed, NodeCount: after, StatusDelta: delta}
}
