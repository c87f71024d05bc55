// Package graph provides the read-only graph view the diffusion engine
// sweeps over: a fixed node order, adjacency in both directions and an
// optional community label per node.
package graph

import (
	"fmt"
)

// Graph is an immutable adjacency view. Build one with a Builder, Load it
// from a store, or use one of the generators.
type Graph struct {
	directed  bool
	order     []string
	index     map[string]int
	succ      [][]string
	pred      [][]string
	community map[string]string
	threshold map[[2]string]float64
	edges     int
}

// Directed reports whether edges are ordered pairs.
func (g *Graph) Directed() bool {
	return g.directed
}

// Nodes returns node IDs in insertion order. The slice is shared; callers
// must not modify it.
func (g *Graph) Nodes() []string {
	return g.order
}

// Len returns the number of nodes.
func (g *Graph) Len() int {
	return len(g.order)
}

// EdgeCount returns the number of distinct edges.
func (g *Graph) EdgeCount() int {
	return g.edges
}

// Has reports whether id is a node of the graph.
func (g *Graph) Has(id string) bool {
	_, ok := g.index[id]
	return ok
}

// Neighbors returns the adjacent nodes of id. For directed graphs these are
// the successors. Order follows edge insertion.
func (g *Graph) Neighbors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	return g.succ[i]
}

// Predecessors returns the nodes with an edge into id. For undirected
// graphs this is the same as Neighbors.
func (g *Graph) Predecessors(id string) []string {
	i, ok := g.index[id]
	if !ok {
		return nil
	}
	if !g.directed {
		return g.succ[i]
	}
	return g.pred[i]
}

// Community returns the community label attached to id, if any.
func (g *Graph) Community(id string) (string, bool) {
	c, ok := g.community[id]
	return c, ok
}

// EdgeThresholds returns the per-edge thresholds carried by the graph data,
// keyed by (source, target) as stored.
func (g *Graph) EdgeThresholds() map[[2]string]float64 {
	out := make(map[[2]string]float64, len(g.threshold))
	for k, v := range g.threshold {
		out[k] = v
	}
	return out
}

// Builder accumulates nodes and edges for a Graph. It is not safe for
// concurrent use.
type Builder struct {
	g    *Graph
	seen map[[2]string]bool
}

// NewBuilder creates a builder for a directed or undirected graph.
func NewBuilder(directed bool) *Builder {
	return &Builder{
		g: &Graph{
			directed:  directed,
			index:     make(map[string]int),
			community: make(map[string]string),
			threshold: make(map[[2]string]float64),
		},
		seen: make(map[[2]string]bool),
	}
}

// AddNode adds id if it is not present yet. Adding a node twice keeps its
// first position.
func (b *Builder) AddNode(id string) *Builder {
	if _, ok := b.g.index[id]; ok {
		return b
	}
	b.g.index[id] = len(b.g.order)
	b.g.order = append(b.g.order, id)
	b.g.succ = append(b.g.succ, nil)
	b.g.pred = append(b.g.pred, nil)
	return b
}

// SetCommunity labels id with a community, adding the node if needed.
func (b *Builder) SetCommunity(id, community string) *Builder {
	b.AddNode(id)
	b.g.community[id] = community
	return b
}

// AddEdge adds an edge, adding missing endpoints. Parallel edges collapse
// into one; for undirected graphs (u,v) and (v,u) are the same edge.
func (b *Builder) AddEdge(u, v string) *Builder {
	b.AddNode(u)
	b.AddNode(v)

	key := [2]string{u, v}
	if !b.g.directed && v < u {
		key = [2]string{v, u}
	}
	if b.seen[key] {
		return b
	}
	b.seen[key] = true
	b.g.edges++

	ui, vi := b.g.index[u], b.g.index[v]
	b.g.succ[ui] = append(b.g.succ[ui], v)
	if b.g.directed {
		b.g.pred[vi] = append(b.g.pred[vi], u)
		return b
	}
	if u != v {
		b.g.succ[vi] = append(b.g.succ[vi], u)
	}
	return b
}

// SetEdgeThreshold attaches a threshold to the edge (u,v) as given.
func (b *Builder) SetEdgeThreshold(u, v string, threshold float64) *Builder {
	b.g.threshold[[2]string{u, v}] = threshold
	return b
}

// Build returns the finished graph. The builder must not be used afterwards.
func (b *Builder) Build() *Graph {
	g := b.g
	b.g = nil
	return g
}

// String summarizes the graph for logs.
func (g *Graph) String() string {
	kind := "undirected"
	if g.directed {
		kind = "directed"
	}
	return fmt.Sprintf("%s graph: %d nodes, %d edges", kind, g.Len(), g.edges)
}
