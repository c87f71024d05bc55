// Package store defines the GraphStore interface for storing and querying
// the contact graph a simulation runs over.
package store

import (
	"context"
)

// Node represents a node in the contact graph.
type Node struct {
	ID       string                 `json:"id"`
	Kind     string                 `json:"kind,omitempty"` // free-form label, e.g. "person", "host"
	Content  map[string]interface{} `json:"content,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"` // "community" is read by graph.Load
}

// Edge represents a relationship between nodes.
type Edge struct {
	Source   string                 `json:"source"`
	Target   string                 `json:"target"`
	Kind     string                 `json:"kind,omitempty"`
	Weight   float64                `json:"weight,omitempty"`   // 0 means unweighted
	Metadata map[string]interface{} `json:"metadata,omitempty"` // "threshold" is read by graph.Load
}

// Direction specifies edge traversal direction.
type Direction string

const (
	DirectionOutbound Direction = "outbound" // Follow edges from source to target
	DirectionInbound  Direction = "inbound"  // Follow edges from target to source
	DirectionBoth     Direction = "both"     // Follow edges in both directions
)

// GraphStore defines the interface for storing and querying the contact graph.
//
// Implementations must return nodes and edges in insertion order. The
// diffusion engine sweeps nodes in that order, so it is part of the
// observable behavior of a seeded run.
type GraphStore interface {
	// Node operations
	AddNode(ctx context.Context, node Node) (string, error)
	GetNode(ctx context.Context, id string) (*Node, error)
	DeleteNode(ctx context.Context, id string) error

	// QueryNodes queries nodes by predicate.
	// Predicate is a map of field names to required values.
	// Supports flat key matching only (e.g., "kind", "id").
	// A nil or empty predicate matches every node.
	QueryNodes(ctx context.Context, predicate map[string]interface{}) ([]Node, error)

	// Edge operations
	AddEdge(ctx context.Context, edge Edge) error
	RemoveEdge(ctx context.Context, source, target, kind string) error
	GetEdges(ctx context.Context, nodeID string, direction Direction, kind string) ([]Edge, error)

	// AllEdges returns every edge in insertion order.
	AllEdges(ctx context.Context) ([]Edge, error)

	// Persistence
	Sync(ctx context.Context) error
	Close() error
}
