package main

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/nvandessel/diffsim/internal/diffusion"
	"github.com/nvandessel/diffsim/internal/epidemics"
	"github.com/spf13/cobra"
)

type modelListing struct {
	Name        string                  `json:"name"`
	Description string                  `json:"description"`
	Statuses    []diffusion.StatusEntry `json:"statuses"`
	Schema      diffusion.ParamSchema   `json:"parameters"`
}

func newModelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "models [name]",
		Short: "List available diffusion models",
		Long: `List the available diffusion models with their statuses and parameters.

Examples:
  diffsim models          # All models
  diffsim models seir     # One model
  diffsim models --json   # Machine-readable`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			names := epidemics.Names()
			if len(args) == 1 {
				names = []string{args[0]}
			}

			listings := make([]modelListing, 0, len(names))
			for _, name := range names {
				rule, err := epidemics.New(name)
				if err != nil {
					return err
				}
				listings = append(listings, modelListing{
					Name:        rule.Name(),
					Description: epidemics.Description[rule.Name()],
					Statuses:    rule.Statuses().Entries(),
					Schema:      rule.Schema(),
				})
			}

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(listings)
			}

			out := cmd.OutOrStdout()
			for i, m := range listings {
				if i > 0 {
					fmt.Fprintln(out)
				}
				fmt.Fprintf(out, "%s - %s\n", m.Name, m.Description)

				statuses := make([]string, len(m.Statuses))
				for j, s := range m.Statuses {
					statuses[j] = fmt.Sprintf("%s=%d", s.Name, s.Code)
				}
				fmt.Fprintf(out, "  statuses: %s\n", strings.Join(statuses, ", "))

				tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
				writeParams(tw, "model", m.Schema.Model)
				for _, n := range m.Schema.Nodes {
					fmt.Fprintf(tw, "  node\t%s\t\tper-node label\n", n)
				}
				writeParams(tw, "edge", m.Schema.Edges)
				tw.Flush()
			}
			return nil
		},
	}
}

func writeParams(tw *tabwriter.Writer, scope string, specs []diffusion.ParamSpec) {
	for _, p := range specs {
		bounds := fmt.Sprintf("[%g, %g]", p.Min, p.Max)
		switch {
		case p.Default != nil:
			bounds += fmt.Sprintf(" default %g", *p.Default)
		case p.Optional:
			bounds += " optional"
		}
		fmt.Fprintf(tw, "  %s\t%s\t%s\t%s\n", scope, p.Name, bounds, p.Description)
	}
}
