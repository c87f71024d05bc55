package diffusion

import (
	"math/rand/v2"
)

// Graph is the read-only topology the engine sweeps over. Nodes must return
// the same order on every call; the order is observable through rules that
// read in-sweep updates.
type Graph interface {
	Nodes() []string
	Has(id string) bool
	Neighbors(id string) []string
	Predecessors(id string) []string
	Directed() bool
	Community(id string) (string, bool)
}

// Rule decides the next status of a single node during a sweep.
type Rule interface {
	// Name is the registry name of the model.
	Name() string

	// Statuses is the model's compartment table.
	Statuses() *StatusTable

	// Schema declares the parameters the model accepts.
	Schema() ParamSchema

	// Step processes node u. It reads through sw and writes the node's
	// (or its neighbors') next status into the evolving snapshot.
	Step(sw *Sweep, u string) error
}

// Validator is implemented by rules that need checks beyond the parameter
// schema, such as every node carrying a community label.
type Validator interface {
	Validate(g Graph, p *Params) error
}

// Timed is implemented by rules whose statuses depend on elapsed time. Nodes
// seeded into one of these statuses start their clock at iteration 0.
type Timed interface {
	TimedStatuses() []Status
}

// Sweep is the state visible to a Rule during one iteration: the pre-sweep
// snapshot, the evolving snapshot that becomes the next ledger, the progress
// ledger, and the engine's random source.
type Sweep struct {
	iteration int
	graph     Graph
	params    *Params
	rng       *rand.Rand
	prev      map[string]Status
	next      map[string]Status
	retired   map[string]bool
	progress  *ProgressLedger
}

// NewSweep starts a sweep at iteration over snapshot. The snapshot is not
// modified; writes go to an internal copy returned by Result.
func NewSweep(iteration int, g Graph, params *Params, rng *rand.Rand, snapshot map[string]Status, progress *ProgressLedger) *Sweep {
	return &Sweep{
		iteration: iteration,
		graph:     g,
		params:    params,
		rng:       rng,
		prev:      snapshot,
		next:      copyStatus(snapshot),
		retired:   make(map[string]bool),
		progress:  progress,
	}
}

// Iteration returns the index of the iteration being computed.
func (s *Sweep) Iteration() int {
	return s.iteration
}

// Graph returns the topology.
func (s *Sweep) Graph() Graph {
	return s.graph
}

// Params returns the resolved parameters.
func (s *Sweep) Params() *Params {
	return s.params
}

// Previous returns the pre-sweep status of id. Nodes retired earlier in this
// sweep report ok == false.
func (s *Sweep) Previous(id string) (Status, bool) {
	if s.retired[id] {
		return 0, false
	}
	st, ok := s.prev[id]
	return st, ok
}

// Current returns the status of id in the evolving snapshot, including
// updates already made in this sweep.
func (s *Sweep) Current(id string) Status {
	return s.next[id]
}

// Set writes the next status of id.
func (s *Sweep) Set(id string, st Status) {
	s.next[id] = st
}

// Retire drops id from the live pre-sweep view for the rest of the sweep.
// The evolving snapshot keeps whatever status was set.
func (s *Sweep) Retire(id string) {
	s.retired[id] = true
}

// Draw returns a uniform sample in [0, 1).
func (s *Sweep) Draw() float64 {
	return s.rng.Float64()
}

// Progress returns the progress ledger.
func (s *Sweep) Progress() *ProgressLedger {
	return s.progress
}

// Result returns the evolving snapshot.
func (s *Sweep) Result() map[string]Status {
	return s.next
}

func (s *Sweep) stateError(node, msg string) error {
	return &StateError{Message: msg, Iteration: s.iteration, Node: node}
}

// MissingProgress builds the error a timed rule returns when a node is in a
// timed status without a recorded start.
func (s *Sweep) MissingProgress(node string) error {
	return s.stateError(node, "no progress recorded for timed status")
}
