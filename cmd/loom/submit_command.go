package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/jobaccess"
)

func newSubmitCommand(ctx *commandContext) *cobra.Command {
	var sourceURL string

	cmd := &cobra.Command{
		Use:   "submit <video-id>",
		Short: "Queue a video for analysis",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return ctx.withJobs(func(access jobaccess.Access) error {
				job, created, err := access.Submit(cmd.Context(), args[0], sourceURL)
				if err != nil {
					return err
				}
				out := cmd.OutOrStdout()
				if created {
					fmt.Fprintf(out, "Queued job %d for video %s\n", job.ID, job.VideoID)
				} else {
					fmt.Fprintf(out, "Video %s already has active job %d (%s)\n", job.VideoID, job.ID, job.Status)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&sourceURL, "url", "u", "", "Source URL for the video")
	return cmd
}
