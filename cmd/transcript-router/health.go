package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

func buildHealthCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "health",
		Short: "Run the health probe and print the result as JSON",
		RunE: func(cmd *cobra.Command, args []string) error {
			application, err := buildApp(cmd.Context(), configPath)
			if err != nil {
				return fmt.Errorf("build app: %w", err)
			}

			result := application.health.Check(cmd.Context())
			encoded, err := json.MarshalIndent(result, "", "  ")
			if err != nil {
				return fmt.Errorf("encode health result: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), string(encoded))

			if !result.OK {
				return fmt.Errorf("health check failed")
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "transcript-router.yaml", "Path to YAML configuration file")

	return cmd
}
