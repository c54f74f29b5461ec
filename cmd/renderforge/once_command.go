package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"renderforge/internal/config"
	"renderforge/internal/jobstore"
	"renderforge/internal/logging"
	"renderforge/internal/pipeline"
	"renderforge/internal/workflow"
)

func newOnceCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "once",
		Short: "Claim and process a single queued job, then exit",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withStore(func(cfg *config.Config, store jobstore.Store) error {
				logger, err := logging.NewFromConfig(cfg)
				if err != nil {
					return fmt.Errorf("init logger: %w", err)
				}
				executor, err := pipeline.FromConfig(cfg, logger)
				if err != nil {
					return err
				}
				manager := workflow.NewManager(store, executor, cfg.Workflow, logger)

				processed, err := manager.RunOnce(cmd.Context())
				if err != nil {
					return err
				}
				if !processed {
					fmt.Fprintln(cmd.OutOrStdout(), "No queued jobs")
					return nil
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Processed one job")
				return nil
			})
		},
	}
}
