// Package main provides the worklog CLI entrypoint.
package main

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/joss/worklog/internal/config"
	"github.com/joss/worklog/internal/logging"
)

var (
	version = "0.1.0"
	pretty  = true
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "worklog",
		Short: "Reconstruct developer work sessions from prompt activity logs",
		Long: `worklog ingests append-only prompt activity logs, reconstructs
gap-bounded work sessions, correlates them with git history, extracts
issue-tracker keys and stores everything in a local SQLite database.

Use 'worklog ingest' to process the intake directory.
Use 'worklog report' for aggregate activity statistics.`,
		SilenceUsage: true,
	}

	rootCmd.PersistentFlags().BoolVar(&pretty, "pretty", true, "Pretty print output")

	rootCmd.AddCommand(ingestCmd())
	rootCmd.AddCommand(sessionsCmd())
	rootCmd.AddCommand(reportCmd())
	rootCmd.AddCommand(syncCmd())
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates startup configuration. Failures here are
// fatal before any file is touched.
func loadConfig() (config.Config, zerolog.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, zerolog.Nop(), fmt.Errorf("loading config: %w", err)
	}
	log := logging.New(logging.Options{
		Level:     cfg.LogLevel,
		Format:    cfg.LogFormat,
		Component: "worklog",
	})
	return cfg, log, nil
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the worklog version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("worklog %s\n", version)
		},
	}
}
