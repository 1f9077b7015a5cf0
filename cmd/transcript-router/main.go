// Package main provides the CLI entry point for transcript-router: the
// transcript routing and agent dispatch service. It reads a transcript
// object from blob storage, classifies it, dispatches it to one or
// more agent processors, and writes back an aggregate result.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	rootCmd := buildRootCmd()
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command execution failed", "error", err)
		os.Exit(1)
	}
}

// buildRootCmd creates the root command with all subcommands attached.
// Separated from main() to facilitate testing.
func buildRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "transcript-router",
		Short: "Transcript routing and agent dispatch service",
		Long: `transcript-router classifies transcript objects and dispatches them to
one of three agent processors: journal (weekly log append), memory
(structured daily record), or repository (external code-hosting repo
creation).`,
		Version:      fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, date),
		SilenceUsage: true,
	}

	rootCmd.AddCommand(
		buildServeCmd(),
		buildRouteOnceCmd(),
		buildHealthCmd(),
	)

	return rootCmd
}
