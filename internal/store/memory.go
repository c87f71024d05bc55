package store

import (
	"context"
	"fmt"
	"sync"
)

// InMemoryGraphStore implements GraphStore for testing, generated graphs and
// graphs loaded from JSONL.
type InMemoryGraphStore struct {
	mu    sync.RWMutex
	order []string
	nodes map[string]Node
	edges []Edge
}

// NewInMemoryGraphStore creates a new in-memory store.
func NewInMemoryGraphStore() *InMemoryGraphStore {
	return &InMemoryGraphStore{
		order: make([]string, 0),
		nodes: make(map[string]Node),
		edges: make([]Edge, 0),
	}
}

// AddNode adds a node to the store. Re-adding an existing ID replaces its
// content but keeps its original position.
func (s *InMemoryGraphStore) AddNode(ctx context.Context, node Node) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if node.ID == "" {
		return "", fmt.Errorf("node ID is required")
	}

	if _, exists := s.nodes[node.ID]; !exists {
		s.order = append(s.order, node.ID)
	}
	s.nodes[node.ID] = node
	return node.ID, nil
}

// GetNode retrieves a node by ID. Returns nil if not found.
func (s *InMemoryGraphStore) GetNode(ctx context.Context, id string) (*Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	node, exists := s.nodes[id]
	if !exists {
		return nil, nil
	}
	return &node, nil
}

// DeleteNode removes a node and its associated edges.
func (s *InMemoryGraphStore) DeleteNode(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.nodes[id]; !exists {
		return nil
	}
	delete(s.nodes, id)

	order := make([]string, 0, len(s.order))
	for _, nid := range s.order {
		if nid != id {
			order = append(order, nid)
		}
	}
	s.order = order

	// Remove edges involving this node
	filtered := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if e.Source != id && e.Target != id {
			filtered = append(filtered, e)
		}
	}
	s.edges = filtered

	return nil
}

// QueryNodes returns nodes matching the predicate, in insertion order.
func (s *InMemoryGraphStore) QueryNodes(ctx context.Context, predicate map[string]interface{}) ([]Node, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Node, 0)
	for _, id := range s.order {
		node := s.nodes[id]
		if matchesPredicate(node, predicate) {
			results = append(results, node)
		}
	}
	return results, nil
}

// AddEdge adds an edge to the store. Both endpoints must exist and the
// weight, when set, must be in [0.0, 1.0]. An edge with the same source,
// target and kind replaces the existing one in place.
func (s *InMemoryGraphStore) AddEdge(ctx context.Context, edge Edge) error {
	if err := validateEdge(edge); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.nodes[edge.Source]; !ok {
		return fmt.Errorf("edge source not found: %s", edge.Source)
	}
	if _, ok := s.nodes[edge.Target]; !ok {
		return fmt.Errorf("edge target not found: %s", edge.Target)
	}

	for i, e := range s.edges {
		if e.Source == edge.Source && e.Target == edge.Target && e.Kind == edge.Kind {
			s.edges[i] = edge
			return nil
		}
	}
	s.edges = append(s.edges, edge)
	return nil
}

// RemoveEdge removes an edge matching source, target, and kind.
func (s *InMemoryGraphStore) RemoveEdge(ctx context.Context, source, target, kind string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	filtered := make([]Edge, 0, len(s.edges))
	for _, e := range s.edges {
		if !(e.Source == source && e.Target == target && e.Kind == kind) {
			filtered = append(filtered, e)
		}
	}
	s.edges = filtered
	return nil
}

// GetEdges returns edges connected to a node.
func (s *InMemoryGraphStore) GetEdges(ctx context.Context, nodeID string, direction Direction, kind string) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Edge, 0)
	for _, e := range s.edges {
		if kind != "" && e.Kind != kind {
			continue
		}

		switch direction {
		case DirectionOutbound:
			if e.Source == nodeID {
				results = append(results, e)
			}
		case DirectionInbound:
			if e.Target == nodeID {
				results = append(results, e)
			}
		case DirectionBoth:
			if e.Source == nodeID || e.Target == nodeID {
				results = append(results, e)
			}
		}
	}
	return results, nil
}

// AllEdges returns every edge in insertion order.
func (s *InMemoryGraphStore) AllEdges(ctx context.Context) ([]Edge, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]Edge, len(s.edges))
	copy(out, s.edges)
	return out, nil
}

// Sync is a no-op for in-memory storage.
func (s *InMemoryGraphStore) Sync(ctx context.Context) error {
	return nil
}

// Close is a no-op for in-memory storage.
func (s *InMemoryGraphStore) Close() error {
	return nil
}

// validateEdge checks the fields every store requires of an edge.
func validateEdge(edge Edge) error {
	if edge.Source == "" || edge.Target == "" {
		return fmt.Errorf("edge source and target are required")
	}
	if edge.Weight < 0 || edge.Weight > 1.0 {
		return fmt.Errorf("edge weight must be in [0.0, 1.0], got %f", edge.Weight)
	}
	return nil
}

// matchesPredicate checks if a node matches a predicate.
func matchesPredicate(node Node, predicate map[string]interface{}) bool {
	for key, required := range predicate {
		var actual interface{}

		switch key {
		case "kind":
			actual = node.Kind
		case "id":
			actual = node.ID
		default:
			// Check content first, then metadata
			if val, ok := node.Content[key]; ok {
				actual = val
			} else if val, ok := node.Metadata[key]; ok {
				actual = val
			}
		}

		if actual != required {
			return false
		}
	}
	return true
}
