package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"loom/internal/jobaccess"
)

func newJobsCommand(ctx *commandContext) *cobra.Command {
	jobsCmd := &cobra.Command{
		Use:   "jobs",
		Short: "Inspect and manage analysis jobs",
	}

	jobsCmd.AddCommand(newJobsListCommand(ctx))
	jobsCmd.AddCommand(newJobsShowCommand(ctx))
	jobsCmd.AddCommand(newJobsCancelCommand(ctx))
	jobsCmd.AddCommand(newJobsRetryCommand(ctx))
	jobsCmd.AddCommand(newJobsClearCommand(ctx))
	jobsCmd.AddCommand(newJobsHealthCommand(ctx))

	return jobsCmd
}

func newJobsListCommand(ctx *commandContext) *cobra.Command {
	var listStatuses []string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List jobs",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(access jobaccess.Access) error {
				jobs, err := access.List(cmd.Context(), listStatuses)
				if err != nil {
					return err
				}
				if len(jobs) == 0 {
					fmt.Fprintln(cmd.OutOrStdout(), "No jobs found")
					return nil
				}
				table := renderTable(
					[]string{"ID", "Video", "Status", "Stage", "Created"},
					buildJobListRows(jobs),
					[]columnAlignment{alignRight, alignLeft, alignLeft, alignLeft, alignLeft},
				)
				fmt.Fprintln(cmd.OutOrStdout(), table)
				return nil
			})
		},
	}

	cmd.Flags().StringSliceVarP(&listStatuses, "status", "s", nil, "Filter by job status (repeatable)")
	return cmd
}

func newJobsShowCommand(ctx *commandContext) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "show <job-id>",
		Short: "Show one job with its stage results",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withJobs(func(access jobaccess.Access) error {
				job, err := access.Describe(cmd.Context(), id)
				if err != nil {
					return err
				}
				if job == nil {
					return fmt.Errorf("job %d not found", id)
				}
				if asJSON {
					return writeJSON(cmd, job)
				}

				out := cmd.OutOrStdout()
				fmt.Fprintf(out, "Job %d (%s)\n", job.ID, job.VideoID)
				fmt.Fprintf(out, "  Status:  %s\n", job.Status)
				if job.Title != "" {
					fmt.Fprintf(out, "  Title:   %s\n", job.Title)
				}
				if job.CurrentStage != "" {
					fmt.Fprintf(out, "  Stage:   %s\n", job.CurrentStage)
				}
				if job.ErrorMessage != "" {
					fmt.Fprintf(out, "  Error:   %s\n", job.ErrorMessage)
				}
				if job.ArtifactPath != "" {
					fmt.Fprintf(out, "  Artifact: %s\n", job.ArtifactPath)
				}
				if job.CreatedAt != "" {
					fmt.Fprintf(out, "  Created: %s\n", formatTimestamp(job.CreatedAt))
				}
				if job.FinishedAt != "" {
					fmt.Fprintf(out, "  Finished: %s\n", formatTimestamp(job.FinishedAt))
				}
				if len(job.Stages) == 0 {
					return nil
				}
				fmt.Fprintln(out)
				table := renderTable(
					[]string{"Stage", "Dependency", "Status", "Attempts", "Duration", "Detail"},
					buildStageRows(job.Stages),
					[]columnAlignment{alignLeft, alignLeft, alignLeft, alignRight, alignRight, alignLeft},
				)
				fmt.Fprintln(out, table)
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Emit the job as JSON")
	return cmd
}

func newJobsCancelCommand(ctx *commandContext) *cobra.Command {
	var reason string

	cmd := &cobra.Command{
		Use:   "cancel <job-id>",
		Short: "Cancel a pending or running job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseJobID(args[0])
			if err != nil {
				return err
			}
			return ctx.withJobs(func(access jobaccess.Access) error {
				cancelled, err := access.Cancel(cmd.Context(), id, reason)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if cancelled {
					fmt.Fprintf(out, "Job %d cancelled\n", id)
				} else {
					fmt.Fprintf(out, "Job %d is not active\n", id)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded on the cancelled job")
	return cmd
}

func newJobsRetryCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "retry [job-id...]",
		Short: "Requeue failed jobs",
		Args:  cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ids := make([]int64, 0, len(args))
			for _, arg := range args {
				id, err := parseJobID(arg)
				if err != nil {
					return err
				}
				ids = append(ids, id)
			}
			return ctx.withJobs(func(access jobaccess.Access) error {
				updated, err := access.Retry(cmd.Context(), ids)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Requeued %d failed jobs\n", updated)
				return nil
			})
		},
	}
}

func newJobsClearCommand(ctx *commandContext) *cobra.Command {
	var clearCompleted bool
	var clearFailed bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove jobs from the queue",
		RunE: func(cmd *cobra.Command, args []string) error {
			if clearCompleted && clearFailed {
				return errors.New("specify only one of --completed or --failed")
			}
			return ctx.withJobs(func(access jobaccess.Access) error {
				out := cmd.OutOrStdout()
				var removed int64
				var err error
				switch {
				case clearCompleted:
					removed, err = access.ClearCompleted(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d completed jobs\n", removed)
				case clearFailed:
					removed, err = access.ClearFailed(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d failed jobs\n", removed)
				default:
					removed, err = access.ClearAll(cmd.Context())
					if err != nil {
						return err
					}
					fmt.Fprintf(out, "Cleared %d jobs\n", removed)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&clearCompleted, "completed", false, "Remove only completed and cancelled jobs")
	cmd.Flags().BoolVar(&clearFailed, "failed", false, "Remove only failed jobs")
	return cmd
}

func newJobsHealthCommand(ctx *commandContext) *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Show job queue health summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(access jobaccess.Access) error {
				health, err := access.Health(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(),
					"Total: %d\nPending: %d\nRunning: %d\nCompleted: %d\nPartial failure: %d\nFailed: %d\nCancelled: %d\n",
					health.Total,
					health.Pending,
					health.Running,
					health.Completed,
					health.PartialFailure,
					health.Failed,
					health.Cancelled,
				)
				return nil
			})
		},
	}
}

func parseJobID(value string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid job id %q", value)
	}
	return id, nil
}
