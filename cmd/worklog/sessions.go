package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joss/worklog/internal/domain"
	"github.com/joss/worklog/internal/render"
	"github.com/joss/worklog/internal/store"
)

// sessionsCmd lists reconstructed sessions.
func sessionsCmd() *cobra.Command {
	var days int
	var untracked bool

	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "List reconstructed work sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, _, err := loadConfig()
			if err != nil {
				return err
			}

			st, err := store.Open(cfg.DatabasePath)
			if err != nil {
				return fmt.Errorf("opening store: %w", err)
			}
			defer st.Close()

			end := float64(time.Now().Unix())
			start := end - float64(days)*24*3600

			var list []domain.Session
			if untracked {
				list, err = st.UntrackedSessions(cmd.Context(), start, end)
			} else {
				list, err = st.SessionsInRange(cmd.Context(), start, end)
			}
			if err != nil {
				return err
			}
			fmt.Print(render.New(pretty).Sessions(list))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "How many days back to list")
	cmd.Flags().BoolVar(&untracked, "untracked", false, "Only sessions with no issue links")
	return cmd
}
