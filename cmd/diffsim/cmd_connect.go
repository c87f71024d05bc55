package main

import (
	"context"
	"encoding/json"
	"fmt"
	"math"

	"github.com/nvandessel/diffsim/internal/graph"
	"github.com/nvandessel/diffsim/internal/store"
	"github.com/spf13/cobra"
)

// requireNodes fails unless every id exists in the store.
func requireNodes(ctx context.Context, gs store.GraphStore, ids ...string) error {
	for _, id := range ids {
		n, err := gs.GetNode(ctx, id)
		if err != nil {
			return fmt.Errorf("look up node %s: %w", id, err)
		}
		if n == nil {
			return fmt.Errorf("node not found: %s", id)
		}
	}
	return nil
}

func newGraphConnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "connect <source> <target>",
		Short: "Add or update an edge in the graph database",
		Long: `Add an edge between two existing nodes. Connecting an existing pair
updates its threshold.

Examples:
  diffsim graph connect alice bob
  diffsim graph connect alice carol --threshold 0.3`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target := args[0], args[1]
			jsonOut, _ := cmd.Flags().GetBool("json")
			kind, _ := cmd.Flags().GetString("kind")

			if source == target {
				return fmt.Errorf("self-edges are not allowed: source and target are both %s", source)
			}

			edge := store.Edge{Source: source, Target: target, Kind: kind}
			threshold := math.NaN()
			if cmd.Flags().Changed("threshold") {
				threshold, _ = cmd.Flags().GetFloat64("threshold")
				if threshold < 0 || threshold > 1 {
					return fmt.Errorf("threshold must be in [0, 1], got %g", threshold)
				}
				edge.Metadata = map[string]interface{}{graph.MetaThreshold: threshold}
			}

			ctx := cmd.Context()
			gs, err := store.NewSQLiteGraphStore(graphDBPath(cmd))
			if err != nil {
				return fmt.Errorf("open graph database: %w", err)
			}
			defer gs.Close()

			if err := requireNodes(ctx, gs, source, target); err != nil {
				return err
			}

			existing, err := gs.GetEdges(ctx, source, store.DirectionOutbound, kind)
			if err != nil {
				return fmt.Errorf("check existing edges: %w", err)
			}
			updated := false
			for _, e := range existing {
				if e.Target == target {
					updated = true
				}
			}

			if err := gs.AddEdge(ctx, edge); err != nil {
				return fmt.Errorf("add edge: %w", err)
			}
			if err := gs.Sync(ctx); err != nil {
				return fmt.Errorf("sync graph database: %w", err)
			}

			if jsonOut {
				result := map[string]interface{}{
					"source":  source,
					"target":  target,
					"kind":    kind,
					"updated": updated,
				}
				if !math.IsNaN(threshold) {
					result["threshold"] = threshold
				}
				return json.NewEncoder(cmd.OutOrStdout()).Encode(result)
			}

			verb := "created"
			if updated {
				verb = "updated"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Edge %s: %s -> %s\n", verb, source, target)
			return nil
		},
	}

	cmd.Flags().String("kind", "", "Edge kind label")
	cmd.Flags().Float64("threshold", 0, "Cross-community threshold stored on the edge (0-1)")
	return cmd
}

func newGraphDisconnectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "disconnect <source> <target>",
		Short: "Remove an edge from the graph database",
		Long: `Remove the edge between two nodes. Unless --directed is set the edge
is removed in both orientations.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			source, target := args[0], args[1]
			jsonOut, _ := cmd.Flags().GetBool("json")
			directed, _ := cmd.Flags().GetBool("directed")
			kind, _ := cmd.Flags().GetString("kind")

			ctx := cmd.Context()
			gs, err := store.NewSQLiteGraphStore(graphDBPath(cmd))
			if err != nil {
				return fmt.Errorf("open graph database: %w", err)
			}
			defer gs.Close()

			direction := store.DirectionOutbound
			if !directed {
				direction = store.DirectionBoth
			}
			edges, err := gs.GetEdges(ctx, source, direction, kind)
			if err != nil {
				return fmt.Errorf("list edges of %s: %w", source, err)
			}

			removed := 0
			for _, e := range edges {
				if (e.Source == source && e.Target == target) || (!directed && e.Source == target && e.Target == source) {
					if err := gs.RemoveEdge(ctx, e.Source, e.Target, e.Kind); err != nil {
						return fmt.Errorf("remove edge: %w", err)
					}
					removed++
				}
			}
			if removed == 0 {
				return fmt.Errorf("no edge between %s and %s", source, target)
			}
			if err := gs.Sync(ctx); err != nil {
				return fmt.Errorf("sync graph database: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"source":  source,
					"target":  target,
					"removed": removed,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed %d edge(s) between %s and %s\n", removed, source, target)
			return nil
		},
	}

	cmd.Flags().String("kind", "", "Edge kind label")
	return cmd
}

func newGraphNeighborsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "neighbors <node>",
		Short: "List the edges touching a node",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id := args[0]
			jsonOut, _ := cmd.Flags().GetBool("json")
			dir, _ := cmd.Flags().GetString("direction")
			kind, _ := cmd.Flags().GetString("kind")

			direction := store.Direction(dir)
			switch direction {
			case store.DirectionOutbound, store.DirectionInbound, store.DirectionBoth:
			default:
				return fmt.Errorf("invalid direction %q (must be outbound, inbound or both)", dir)
			}

			ctx := cmd.Context()
			gs, err := store.NewSQLiteGraphStore(graphDBPath(cmd))
			if err != nil {
				return fmt.Errorf("open graph database: %w", err)
			}
			defer gs.Close()

			if err := requireNodes(ctx, gs, id); err != nil {
				return err
			}
			edges, err := gs.GetEdges(ctx, id, direction, kind)
			if err != nil {
				return fmt.Errorf("list edges of %s: %w", id, err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"node":  id,
					"edges": edges,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "%s: %d edge(s)\n", id, len(edges))
			for _, e := range edges {
				line := fmt.Sprintf("  %s -> %s", e.Source, e.Target)
				if th, ok := e.Metadata[graph.MetaThreshold]; ok {
					line += fmt.Sprintf("  threshold=%v", th)
				}
				fmt.Fprintln(out, line)
			}
			return nil
		},
	}

	cmd.Flags().String("direction", string(store.DirectionBoth), "Edge direction: outbound, inbound or both")
	cmd.Flags().String("kind", "", "Only edges with this kind")
	return cmd
}
