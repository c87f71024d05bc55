package store

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/nvandessel/diffsim/internal/constants"
)

// LoadError represents a malformed line skipped while reading JSONL data.
type LoadError struct {
	File    string `json:"file"`
	Line    int    `json:"line"`
	Content string `json:"content"`
	Error   string `json:"error"`
}

// ImportStats summarizes an ImportJSONL call.
type ImportStats struct {
	Nodes         int         `json:"nodes"`
	Edges         int         `json:"edges"`
	ImplicitNodes int         `json:"implicit_nodes"` // endpoints referenced only by edges
	Skipped       []LoadError `json:"skipped,omitempty"`
}

// ReadNodesJSONL reads nodes from a JSONL file. A missing file yields no
// nodes. Malformed lines are skipped and reported.
func ReadNodesJSONL(path string) ([]Node, []LoadError, error) {
	var nodes []Node
	loadErrs, err := scanJSONL(path, func(line []byte) error {
		var node Node
		if err := json.Unmarshal(line, &node); err != nil {
			return err
		}
		if node.ID == "" {
			return fmt.Errorf("node ID is required")
		}
		nodes = append(nodes, node)
		return nil
	})
	return nodes, loadErrs, err
}

// ReadEdgesJSONL reads edges from a JSONL file. A missing file yields no
// edges. Malformed lines are skipped and reported.
func ReadEdgesJSONL(path string) ([]Edge, []LoadError, error) {
	var edges []Edge
	loadErrs, err := scanJSONL(path, func(line []byte) error {
		var edge Edge
		if err := json.Unmarshal(line, &edge); err != nil {
			return err
		}
		if err := validateEdge(edge); err != nil {
			return err
		}
		edges = append(edges, edge)
		return nil
	})
	return edges, loadErrs, err
}

// ImportJSONL loads dir/nodes.jsonl and dir/edges.jsonl into gs. Edge
// endpoints missing from nodes.jsonl are added as bare nodes, in the order
// the edges first reference them. Records without a kind get the default
// node and contact kinds.
func ImportJSONL(ctx context.Context, gs GraphStore, dir string) (ImportStats, error) {
	var stats ImportStats

	nodes, nodeErrs, err := ReadNodesJSONL(filepath.Join(dir, NodesFile))
	if err != nil {
		return stats, fmt.Errorf("failed to read nodes: %w", err)
	}
	edges, edgeErrs, err := ReadEdgesJSONL(filepath.Join(dir, EdgesFile))
	if err != nil {
		return stats, fmt.Errorf("failed to read edges: %w", err)
	}
	stats.Skipped = append(nodeErrs, edgeErrs...)

	known := make(map[string]bool, len(nodes))
	for _, node := range nodes {
		if node.Kind == "" {
			node.Kind = constants.NodeKind
		}
		if _, err := gs.AddNode(ctx, node); err != nil {
			return stats, fmt.Errorf("failed to import node %s: %w", node.ID, err)
		}
		known[node.ID] = true
		stats.Nodes++
	}

	for _, edge := range edges {
		for _, id := range []string{edge.Source, edge.Target} {
			if known[id] {
				continue
			}
			if _, err := gs.AddNode(ctx, Node{ID: id, Kind: constants.NodeKind}); err != nil {
				return stats, fmt.Errorf("failed to import node %s: %w", id, err)
			}
			known[id] = true
			stats.ImplicitNodes++
		}
		if edge.Kind == "" {
			edge.Kind = constants.ContactEdgeKind
		}
		if err := gs.AddEdge(ctx, edge); err != nil {
			return stats, fmt.Errorf("failed to import edge %s->%s: %w", edge.Source, edge.Target, err)
		}
		stats.Edges++
	}

	return stats, nil
}

// ExportJSONL writes every node and edge of gs to dir/nodes.jsonl and
// dir/edges.jsonl, in insertion order.
func ExportJSONL(ctx context.Context, gs GraphStore, dir string) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}

	nodes, err := gs.QueryNodes(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to query nodes: %w", err)
	}
	if err := writeJSONL(filepath.Join(dir, NodesFile), len(nodes), func(enc *json.Encoder, i int) error {
		return enc.Encode(nodes[i])
	}); err != nil {
		return fmt.Errorf("failed to export nodes: %w", err)
	}

	edges, err := gs.AllEdges(ctx)
	if err != nil {
		return fmt.Errorf("failed to query edges: %w", err)
	}
	if err := writeJSONL(filepath.Join(dir, EdgesFile), len(edges), func(enc *json.Encoder, i int) error {
		return enc.Encode(edges[i])
	}); err != nil {
		return fmt.Errorf("failed to export edges: %w", err)
	}

	return nil
}

func scanJSONL(path string, decode func(line []byte) error) ([]LoadError, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil // No file is fine
		}
		return nil, fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	// Increase buffer size for long lines
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024) // 1MB max line length

	var loadErrs []LoadError
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		if err := decode(line); err != nil {
			loadErrs = append(loadErrs, LoadError{
				File:    path,
				Line:    lineNum,
				Content: truncateForError(string(line)),
				Error:   err.Error(),
			})
		}
	}
	if err := scanner.Err(); err != nil {
		return loadErrs, fmt.Errorf("scanner error: %w", err)
	}
	return loadErrs, nil
}

func writeJSONL(path string, n int, encode func(enc *json.Encoder, i int) error) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := bufio.NewWriter(f)
	enc := json.NewEncoder(w)
	for i := 0; i < n; i++ {
		if err := encode(enc, i); err != nil {
			return err
		}
	}
	return w.Flush()
}

// truncateForError shortens a line for inclusion in a LoadError.
func truncateForError(s string) string {
	const maxLen = 200
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
