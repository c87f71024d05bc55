package graph

import (
	"context"
	"fmt"
	"strconv"

	"github.com/nvandessel/diffsim/internal/store"
)

// Metadata keys read from stored nodes and edges.
const (
	MetaCommunity = "community"
	MetaThreshold = "threshold"
)

// Load builds a Graph from every node and edge in gs. Node order is the
// store's insertion order. Community labels come from node metadata
// "community"; edge thresholds from edge metadata "threshold".
func Load(ctx context.Context, gs store.GraphStore, directed bool) (*Graph, error) {
	nodes, err := gs.QueryNodes(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("load graph: query nodes: %w", err)
	}
	edges, err := gs.AllEdges(ctx)
	if err != nil {
		return nil, fmt.Errorf("load graph: query edges: %w", err)
	}

	b := NewBuilder(directed)
	for _, n := range nodes {
		b.AddNode(n.ID)
		if raw, ok := n.Metadata[MetaCommunity]; ok {
			c, err := label(raw)
			if err != nil {
				return nil, fmt.Errorf("load graph: node %s: community: %w", n.ID, err)
			}
			b.SetCommunity(n.ID, c)
		}
	}

	for _, e := range edges {
		b.AddEdge(e.Source, e.Target)
		if raw, ok := e.Metadata[MetaThreshold]; ok {
			t, ok := raw.(float64)
			if !ok {
				return nil, fmt.Errorf("load graph: edge %s->%s: threshold must be a number, got %T", e.Source, e.Target, raw)
			}
			b.SetEdgeThreshold(e.Source, e.Target, t)
		}
	}

	return b.Build(), nil
}

// label normalizes a decoded community value to a string. JSON numbers
// decode as float64, so integral values are printed without a fraction.
func label(v interface{}) (string, error) {
	switch c := v.(type) {
	case string:
		return c, nil
	case float64:
		if c == float64(int64(c)) {
			return strconv.FormatInt(int64(c), 10), nil
		}
		return strconv.FormatFloat(c, 'g', -1, 64), nil
	case int:
		return strconv.Itoa(c), nil
	case int64:
		return strconv.FormatInt(c, 10), nil
	default:
		return "", fmt.Errorf("unsupported type %T", v)
	}
}
