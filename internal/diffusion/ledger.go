package diffusion

// ProgressLedger records, per node, the iteration at which the node entered
// its current time-dependent status.
type ProgressLedger struct {
	at map[string]int
}

// NewProgressLedger creates an empty ledger.
func NewProgressLedger() *ProgressLedger {
	return &ProgressLedger{at: make(map[string]int)}
}

// Mark records that id entered a timed status at iteration.
func (p *ProgressLedger) Mark(id string, iteration int) {
	p.at[id] = iteration
}

// Since returns the iteration recorded for id.
func (p *ProgressLedger) Since(id string) (int, bool) {
	t, ok := p.at[id]
	return t, ok
}

// Forget drops the entry for id.
func (p *ProgressLedger) Forget(id string) {
	delete(p.at, id)
}

// Len returns the number of tracked nodes.
func (p *ProgressLedger) Len() int {
	return len(p.at)
}

// Snapshot returns a copy of the ledger.
func (p *ProgressLedger) Snapshot() map[string]int {
	out := make(map[string]int, len(p.at))
	for k, v := range p.at {
		out[k] = v
	}
	return out
}

func (p *ProgressLedger) clear() {
	clear(p.at)
}

// copyStatus returns a shallow copy of a status mapping.
func copyStatus(m map[string]Status) map[string]Status {
	out := make(map[string]Status, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
