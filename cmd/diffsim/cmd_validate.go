package main

import (
	"encoding/json"
	"fmt"

	"github.com/nvandessel/diffsim/internal/diffusion"
	"github.com/nvandessel/diffsim/internal/simulation"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <config.yaml>",
		Short: "Check a run file without running it",
		Long: `Check a run file without running it.

This command checks for:
  - Structural problems (unknown model, missing graph path, bad format)
  - Missing or out-of-range model, node and edge parameters
  - Initial statuses naming unknown nodes or statuses

Examples:
  diffsim validate sim.yaml
  diffsim validate sim.yaml --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadRunConfig(cmd, args)
			if err != nil {
				return err
			}
			sc, err := simulation.FromConfig(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			info, err := simulation.Check(sc)
			if err != nil {
				if jsonOut {
					out := map[string]interface{}{
						"valid": false,
						"error": err.Error(),
					}
					if code := diffusion.ConfigErrorCodeOf(err); code != "" {
						out["code"] = code
					}
					json.NewEncoder(cmd.OutOrStdout()).Encode(out)
				}
				return err
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"valid": true,
					"info":  info,
				})
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ %s: model %s over %d nodes, parameters %v\n",
				args[0], info.Model, info.Nodes, info.Parameters)
			return nil
		},
	}

	cmd.Flags().String("model", "", "Model name (overrides the file)")
	cmd.Flags().Uint64("seed", 0, "Random seed (overrides the file)")
	cmd.Flags().Int("iterations", 0, "Number of iterations (overrides the file)")

	return cmd
}
