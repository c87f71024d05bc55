package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/nvandessel/diffsim/internal/config"
	"github.com/nvandessel/diffsim/internal/logging"
	"github.com/nvandessel/diffsim/internal/simulation"
	"github.com/nvandessel/diffsim/internal/store"
	"github.com/nvandessel/diffsim/internal/trends"
	"github.com/nvandessel/diffsim/internal/visualization"
	"github.com/spf13/cobra"
)

func newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run [config.yaml]",
		Short: "Run a diffusion simulation",
		Long: `Run a diffusion simulation described by a YAML file.

Flags override the file; DIFFSIM_SEED, DIFFSIM_ITERATIONS and
DIFFSIM_LOG_LEVEL override both the file and the defaults.

Examples:
  diffsim run sim.yaml                         # Trend table on stdout
  diffsim run sim.yaml --format csv -o out.csv # CSV file
  diffsim run sim.yaml --format html -o c.html # Self-contained chart
  diffsim run sim.yaml --serve                 # Chart served locally
  diffsim run sim.yaml --json                  # Full results as JSON`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadRunConfig(cmd, args)
			if err != nil {
				return err
			}

			root, _ := cmd.Flags().GetString("root")
			jsonOut, _ := cmd.Flags().GetBool("json")
			serve, _ := cmd.Flags().GetBool("serve")
			noOpen, _ := cmd.Flags().GetBool("no-open")

			logger := logging.NewLogger(cfg.Logging.Level, cmd.ErrOrStderr())
			logDir := cfg.Logging.Dir
			if logDir == "" {
				logDir = store.LocalDataPath(root)
			}
			decisions := logging.NewDecisionLogger(logDir, cfg.Logging.Level)
			defer decisions.Close()

			ctx, cancel := signalContext(cmd.Context())
			defer cancel()

			sc, err := simulation.FromConfig(ctx, cfg)
			if err != nil {
				return err
			}
			result, err := simulation.NewRunner(logger, decisions).Run(ctx, sc)
			if err != nil {
				return err
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(result)
			}

			format, _ := visualization.ParseFormat(cfg.Output.Format)
			kind, _ := trends.ParseKind(cfg.Output.Kind)

			if serve {
				graphJSON := visualization.RenderGraphJSON(result.Graph, result.Table, result.Final)
				return runTrendServer(ctx, cmd, visualization.NewServer(result.Trends, graphJSON), noOpen)
			}

			if format == visualization.FormatHTML {
				return writeStaticHTML(cmd, result.Trends, kind, cfg.Output.Path)
			}

			w := cmd.OutOrStdout()
			if cfg.Output.Path != "" {
				f, err := os.Create(cfg.Output.Path)
				if err != nil {
					return fmt.Errorf("create output file: %w", err)
				}
				defer f.Close()
				w = f
			}
			return visualization.RenderTrends(w, format, result.Trends, kind)
		},
	}

	cmd.Flags().String("model", "", "Model name (overrides the file)")
	cmd.Flags().Uint64("seed", 0, "Random seed (overrides the file)")
	cmd.Flags().Int("iterations", 0, "Number of iterations, iteration 0 included (overrides the file)")
	cmd.Flags().String("format", "", "Output format: text, csv, json, or html")
	cmd.Flags().String("kind", "", "Trend series: node_count or status_delta")
	cmd.Flags().StringP("output", "o", "", "Write output to a file instead of stdout")
	cmd.Flags().Bool("serve", false, "Serve the trend chart on a local HTTP server")
	cmd.Flags().Bool("no-open", false, "Don't open a browser with --serve")

	return cmd
}

// loadRunConfig loads the run file, applies flag overrides and validates.
func loadRunConfig(cmd *cobra.Command, args []string) (*config.SimConfig, error) {
	path := ""
	if len(args) > 0 {
		path = args[0]
	}
	cfg, err := config.Load(path)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("model") {
		cfg.Model, _ = flags.GetString("model")
	}
	if flags.Changed("seed") {
		cfg.Seed, _ = flags.GetUint64("seed")
	}
	if flags.Changed("iterations") {
		cfg.Iterations, _ = flags.GetInt("iterations")
	}
	if flags.Changed("format") {
		cfg.Output.Format, _ = flags.GetString("format")
	}
	if flags.Changed("kind") {
		cfg.Output.Kind, _ = flags.GetString("kind")
	}
	if flags.Changed("output") {
		cfg.Output.Path, _ = flags.GetString("output")
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// writeStaticHTML renders the trend chart to a self-contained HTML file.
// Use --serve to have the chart opened in a browser.
func writeStaticHTML(cmd *cobra.Command, tr *trends.Trends, kind trends.Kind, output string) error {
	htmlBytes, err := visualization.RenderHTML(tr, kind)
	if err != nil {
		return fmt.Errorf("render HTML: %w", err)
	}

	outPath := output
	if outPath == "" {
		outPath = filepath.Join(os.TempDir(), "diffsim-trends.html")
	}

	if err := os.WriteFile(outPath, htmlBytes, 0644); err != nil {
		return fmt.Errorf("write HTML file: %w", err)
	}

	fmt.Fprintf(cmd.OutOrStdout(), "Chart written to %s\n", outPath)
	return nil
}

// runTrendServer serves the chart and blocks until Ctrl-C.
func runTrendServer(ctx context.Context, cmd *cobra.Command, srv *visualization.Server, noOpen bool) error {
	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe(ctx) }()

	// Wait for server to start
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if srv.Addr() != "" {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	addr := srv.Addr()
	if addr == "" {
		return fmt.Errorf("server failed to start")
	}

	url := "http://" + addr
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Trend server running at %s\n", url)
	fmt.Fprintf(out, "Press Ctrl-C to stop.\n")

	if !noOpen {
		if err := visualization.OpenBrowser(url); err != nil {
			fmt.Fprintf(cmd.ErrOrStderr(), "Could not open browser: %v\nOpen %s manually.\n", err, url)
		}
	}

	if err := <-errCh; err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}
