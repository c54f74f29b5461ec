package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"renderforge/internal/config"
	"renderforge/internal/jobstore"
	"renderforge/internal/logging"
	"renderforge/internal/pipeline"
	"renderforge/internal/preflight"
)

func newHealthCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:     "health",
		Aliases: []string{"status"},
		Short:   "Run readiness checks against the configured engines and store",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store jobstore.Store) error {
				executor, err := pipeline.FromConfig(cfg, logging.NewNop())
				if err != nil {
					return err
				}

				results := preflight.RunAll(cmd.Context(), cfg, store, executor)
				if asJSON {
					return writeJSON(cmd, results)
				}

				rows := make([][]string, 0, len(results))
				for _, result := range results {
					state := "PASS"
					if !result.Passed {
						state = "FAIL"
					}
					rows = append(rows, []string{result.Name, state, result.Detail})
				}
				table := renderTable([]string{"Check", "State", "Detail"}, rows,
					[]columnAlignment{alignLeft, alignLeft, alignLeft})
				fmt.Fprintln(cmd.OutOrStdout(), table)

				if !preflight.AllPassed(results) {
					return fmt.Errorf("one or more checks failed")
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit JSON instead of a table")
	return cmd
}
