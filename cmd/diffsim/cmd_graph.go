package main

import (
	"encoding/json"
	"fmt"
	"sort"

	"github.com/nvandessel/diffsim/internal/config"
	"github.com/nvandessel/diffsim/internal/constants"
	"github.com/nvandessel/diffsim/internal/diffusion"
	"github.com/nvandessel/diffsim/internal/epidemics/icep"
	"github.com/nvandessel/diffsim/internal/graph"
	"github.com/nvandessel/diffsim/internal/simulation"
	"github.com/nvandessel/diffsim/internal/store"
	"github.com/nvandessel/diffsim/internal/visualization"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph",
		Short: "Import, export and inspect contact graphs",
		Long: `Manage contact graphs.

Graphs are stored as JSONL (nodes.jsonl, edges.jsonl) or in a SQLite
database under .diffsim/graph.db. Node metadata "community" and edge
metadata "threshold" are read by the icep model.`,
	}

	cmd.PersistentFlags().String("db", "", "SQLite graph database (default <root>/.diffsim/graph.db)")
	cmd.PersistentFlags().Bool("directed", false, "Treat edges as directed")

	cmd.AddCommand(
		newGraphImportCmd(),
		newGraphExportCmd(),
		newGraphStatsCmd(),
		newGraphShowCmd(),
		newGraphConnectCmd(),
		newGraphDisconnectCmd(),
		newGraphNeighborsCmd(),
		newGraphBackupCmd(),
		newGraphRestoreCmd(),
	)
	return cmd
}

// graphDBPath resolves --db against --root.
func graphDBPath(cmd *cobra.Command) string {
	db, _ := cmd.Flags().GetString("db")
	if db != "" {
		return db
	}
	root, _ := cmd.Flags().GetString("root")
	return store.DefaultDBPath(root)
}

// graphSource builds the graph section for the read-only subcommands: a
// JSONL directory argument, or the SQLite database.
func graphSource(cmd *cobra.Command, args []string) config.GraphConfig {
	directed, _ := cmd.Flags().GetBool("directed")
	if len(args) == 1 {
		return config.GraphConfig{Source: constants.SourceJSONL, Path: args[0], Directed: directed}
	}
	return config.GraphConfig{Source: constants.SourceSQLite, Path: graphDBPath(cmd), Directed: directed}
}

func newGraphImportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <dir>",
		Short: "Import nodes.jsonl and edges.jsonl into the graph database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			dbPath := graphDBPath(cmd)

			gs, err := store.NewSQLiteGraphStore(dbPath)
			if err != nil {
				return fmt.Errorf("open graph database: %w", err)
			}
			defer gs.Close()

			stats, err := store.ImportJSONL(cmd.Context(), gs, args[0])
			if err != nil {
				return fmt.Errorf("import: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"db":    dbPath,
					"stats": stats,
				})
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Imported %d nodes and %d edges into %s\n", stats.Nodes, stats.Edges, dbPath)
			if stats.ImplicitNodes > 0 {
				fmt.Fprintf(out, "  %d nodes created from edge endpoints\n", stats.ImplicitNodes)
			}
			for _, le := range stats.Skipped {
				fmt.Fprintf(cmd.ErrOrStderr(), "  skipped %s:%d: %s\n", le.File, le.Line, le.Error)
			}
			return nil
		},
	}
}

func newGraphExportCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "export <dir>",
		Short: "Export the graph database to nodes.jsonl and edges.jsonl",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dbPath := graphDBPath(cmd)
			gs, err := store.NewSQLiteGraphStore(dbPath)
			if err != nil {
				return fmt.Errorf("open graph database: %w", err)
			}
			defer gs.Close()

			if err := store.ExportJSONL(cmd.Context(), gs, args[0]); err != nil {
				return fmt.Errorf("export: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported %s to %s\n", dbPath, args[0])
			return nil
		},
	}
}

// graphStats summarizes a graph's shape.
type graphStats struct {
	Nodes       int      `json:"nodes"`
	Edges       int      `json:"edges"`
	Directed    bool     `json:"directed"`
	MinDegree   int      `json:"min_degree"`
	MaxDegree   int      `json:"max_degree"`
	MeanDegree  float64  `json:"mean_degree"`
	Isolated    int      `json:"isolated"`
	Communities []string `json:"communities"`
	Unlabeled   int      `json:"unlabeled"`
	Thresholds  int      `json:"thresholds"`
}

func computeGraphStats(g *graph.Graph) graphStats {
	st := graphStats{
		Nodes:      g.Len(),
		Edges:      g.EdgeCount(),
		Directed:   g.Directed(),
		Thresholds: len(g.EdgeThresholds()),
	}
	total := 0
	for i, id := range g.Nodes() {
		d := len(g.Neighbors(id))
		total += d
		if i == 0 || d < st.MinDegree {
			st.MinDegree = d
		}
		if d > st.MaxDegree {
			st.MaxDegree = d
		}
		if d == 0 {
			st.Isolated++
		}
		if _, ok := g.Community(id); !ok {
			st.Unlabeled++
		}
	}
	st.Communities = sortedCommunities(g)
	if st.Nodes > 0 {
		st.MeanDegree = float64(total) / float64(st.Nodes)
	}
	return st
}

func newGraphStatsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [dir]",
		Short: "Show node, edge, degree and community counts",
		Long: `Show node, edge, degree and community counts for a JSONL directory
or, without an argument, the graph database.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			g, err := simulation.LoadGraph(cmd.Context(), graphSource(cmd, args), 0)
			if err != nil {
				return err
			}
			st := computeGraphStats(g)

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(st)
			}

			out := cmd.OutOrStdout()
			kind := "undirected"
			if st.Directed {
				kind = "directed"
			}
			fmt.Fprintf(out, "Graph (%s)\n", kind)
			fmt.Fprintf(out, "  Nodes:       %d (%d isolated)\n", st.Nodes, st.Isolated)
			fmt.Fprintf(out, "  Edges:       %d\n", st.Edges)
			fmt.Fprintf(out, "  Degree:      min %d, max %d, mean %.2f\n", st.MinDegree, st.MaxDegree, st.MeanDegree)
			fmt.Fprintf(out, "  Communities: %d (%d nodes unlabeled)\n", len(st.Communities), st.Unlabeled)
			fmt.Fprintf(out, "  Thresholds:  %d edges\n", st.Thresholds)
			if st.Unlabeled > 0 && st.Unlabeled < st.Nodes {
				fmt.Fprintf(out, "  note: %s needs a %q label on every node\n", icep.Name, icep.ParamCommunity)
			}
			return nil
		},
	}
}

func newGraphShowCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "show [dir]",
		Short: "Print the graph in DOT (Graphviz) or JSON format",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")

			g, err := simulation.LoadGraph(cmd.Context(), graphSource(cmd, args), 0)
			if err != nil {
				return err
			}

			// Uncolored rendering: every node in the first status of a
			// two-status table.
			table := diffusion.NewStatusTable(
				diffusion.StatusEntry{Name: "Susceptible", Code: 0},
				diffusion.StatusEntry{Name: "Infected", Code: 1},
			)

			f, err := visualization.ParseFormat(format)
			if err != nil {
				return err
			}
			switch f {
			case visualization.FormatDOT:
				fmt.Fprint(cmd.OutOrStdout(), visualization.RenderDOT(g, table, nil))
			case visualization.FormatJSON:
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				if err := enc.Encode(visualization.RenderGraphJSON(g, table, nil)); err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}
			default:
				return fmt.Errorf("unsupported format %q (use 'dot' or 'json')", format)
			}
			return nil
		},
	}
	cmd.Flags().String("format", "dot", "Output format: dot or json")
	return cmd
}

// sortedCommunities lists the distinct community labels.
func sortedCommunities(g *graph.Graph) []string {
	seen := make(map[string]bool)
	var out []string
	for _, id := range g.Nodes() {
		if c, ok := g.Community(id); ok && !seen[c] {
			seen[c] = true
			out = append(out, c)
		}
	}
	sort.Strings(out)
	return out
}
