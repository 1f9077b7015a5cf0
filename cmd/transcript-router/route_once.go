package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

func buildRouteOnceCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "route-once <transcript-key>",
		Short: "Process a single transcript object and exit",
		Long: `route-once reads one transcript object, classifies it, dispatches
it to the matching agent processor(s), and writes the aggregate result,
the same as a single delivery of the serve command's webhook intake.

Useful for local testing and for cron-style redelivery of an event that
the Orchestrator previously failed to process.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd.Context(), configPath)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}
			return application.orchestrator.HandleEvent(cmd.Context(), args[0])
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "transcript-router.yaml", "Path to YAML configuration file")

	return cmd
}
