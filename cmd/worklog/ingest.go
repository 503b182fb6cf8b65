package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joss/worklog/internal/exec"
	"github.com/joss/worklog/internal/gitsource"
	"github.com/joss/worklog/internal/pipeline"
	"github.com/joss/worklog/internal/render"
	"github.com/joss/worklog/internal/store"
)

// ingestCmd runs one batch pass, or polls continuously with --watch.
func ingestCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Process unprocessed intake logs into the database",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if err := cfg.EnsureDirs(); err != nil {
				return err
			}

			st, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			source := gitsource.NewGitCLI(exec.NewOSRunner())
			pipe, err := pipeline.New(cfg, st, source, log)
			if err != nil {
				return err
			}

			if watch {
				log.Info().Dur("interval", cfg.PollInterval).Msg("watching intake directory")
				return pipe.Watch(cmd.Context(), cfg.PollInterval)
			}

			// Per-file failures are reported in the summary, not via the
			// exit status.
			summary, err := pipe.Run(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(render.New(pretty).Summary(summary))
			return nil
		},
	}

	cmd.Flags().BoolVar(&watch, "watch", false, "Re-run the batch pass on the configured polling interval")
	return cmd
}
