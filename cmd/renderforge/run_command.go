package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"renderforge/internal/config"
	"renderforge/internal/jobstore"
	"renderforge/internal/logging"
	"renderforge/internal/pipeline"
	"renderforge/internal/workflow"
)

func newRunCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "run <job-id>",
		Short: "Claim and process one specific job, then report its terminal state",
		Args:  cobra.ExactArgs(1),
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

				job, err := manager.RunJob(cmd.Context(), strings.TrimSpace(args[0]))
				if err != nil {
					return err
				}

				out := cmd.OutOrStdout()
				switch job.Status {
				case jobstore.StatusCompleted:
					fmt.Fprintf(out, "Job %s completed: %s\n", job.ID, job.ResultURL)
					if job.Degraded {
						fmt.Fprintln(out, "Result is degraded (audio track missing)")
					}
					return nil
				case jobstore.StatusError:
					return fmt.Errorf("job %s failed: %s", job.ID, job.ErrorMessage)
				default:
					return fmt.Errorf("job %s left in state %s", job.ID, job.Status)
				}
			})
		},
	}
}
