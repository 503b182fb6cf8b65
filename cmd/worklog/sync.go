package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/joss/worklog/internal/store"
	"github.com/joss/worklog/internal/tracker"
)

// syncCmd refreshes the local issue-tracker cache.
func syncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Refresh the local issue-tracker cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.TrackerBaseURL == "" {
				return fmt.Errorf("tracker sync is not configured (set WORKLOG_TRACKER_URL)")
			}

			st, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			fetcher := tracker.NewHTTPFetcher(cfg.TrackerBaseURL, cfg.TrackerToken)
			synced, err := tracker.NewSyncer(fetcher, st, log).Sync(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Printf("synced %d issues\n", synced)
			return nil
		},
	}
}
