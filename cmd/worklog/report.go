package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/joss/worklog/internal/domain"
	"github.com/joss/worklog/internal/render"
	"github.com/joss/worklog/internal/store"
)

// reportCmd prints aggregate statistics, or per-issue detail with --issue.
func reportCmd() *cobra.Command {
	var days int
	var issueKey string

	cmd := &cobra.Command{
		Use:   "report",
		Short: "Show aggregate activity statistics",
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

			r := render.New(pretty)

			if issueKey != "" {
				sessions, err := st.SessionsByIssue(cmd.Context(), issueKey)
				if err != nil {
					return err
				}
				fmt.Print(r.Sessions(sessions))

				// Issue links with cached tracker context; an empty cache
				// just means no summary column.
				info := make(map[string]domain.IssueInfo)
				if meta, err := st.IssueInfo(cmd.Context(), issueKey); err == nil {
					info[issueKey] = meta
				}
				var links []domain.IssueLink
				for _, s := range sessions {
					ls, err := st.IssueLinks(cmd.Context(), s.ID)
					if err != nil {
						return err
					}
					for _, l := range ls {
						if l.IssueKey == issueKey {
							links = append(links, l)
						}
					}
				}
				fmt.Print(r.Issues(links, info))
				return nil
			}

			end := float64(time.Now().Unix())
			start := end - float64(days)*24*3600
			stats, err := st.StatsInRange(cmd.Context(), start, end)
			if err != nil {
				return err
			}
			fmt.Print(r.Stats(stats))
			return nil
		},
	}

	cmd.Flags().IntVar(&days, "days", 7, "How many days back to aggregate")
	cmd.Flags().StringVar(&issueKey, "issue", "", "Report sessions linked to one issue key")
	return cmd
}
