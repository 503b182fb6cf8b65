// Package render provides terminal output formatting for batch summaries and
// reports.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/joss/worklog/internal/domain"
	"github.com/joss/worklog/internal/store"
	wstrings "github.com/joss/worklog/internal/strings"
)

// Renderer handles output formatting.
type Renderer struct {
	pretty bool
}

// New creates a new renderer. With pretty disabled output stays plain for
// piping.
func New(pretty bool) *Renderer {
	return &Renderer{pretty: pretty}
}

// Summary formats a batch summary.
func (r *Renderer) Summary(s domain.BatchSummary) string {
	var sb strings.Builder

	if r.pretty {
		sb.WriteString(color.CyanString("Batch %s\n", s.RunID))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	} else {
		fmt.Fprintf(&sb, "batch %s\n", s.RunID)
	}

	fmt.Fprintf(&sb, "files: %d (skipped %d, failed %d)\n", s.Files, s.Skipped, s.Failed)
	fmt.Fprintf(&sb, "entries: %d  sessions: %d  commits: %d  issues: %d\n",
		s.Entries, s.Sessions, s.Commits, s.Issues)

	errLine := fmt.Sprintf("errors: %d", s.Errors)
	if r.pretty && s.Errors > 0 {
		errLine = color.RedString(errLine)
	}
	fmt.Fprintf(&sb, "%s  elapsed: %s\n", errLine, s.Elapsed.Round(time.Millisecond))
	return sb.String()
}

// Sessions formats a session list.
func (r *Renderer) Sessions(sessions []domain.Session) string {
	if len(sessions) == 0 {
		return "No sessions found\n"
	}

	var sb strings.Builder
	if r.pretty {
		sb.WriteString(color.CyanString("Sessions\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}

	for _, s := range sessions {
		start := time.Unix(int64(s.StartTime), 0).Format("2006-01-02 15:04")
		line := fmt.Sprintf("%s  %5.1fm  %3d prompts  %s",
			start, s.DurationMinutes, s.PromptCount, wstrings.Truncate(s.Cwd, 40))
		if r.pretty {
			fmt.Fprintf(&sb, "%s %s\n", color.HiBlackString(s.ID[:8]), line)
		} else {
			fmt.Fprintf(&sb, "%s %s\n", s.ID, line)
		}
	}
	return sb.String()
}

// Stats formats aggregate statistics for a range.
func (r *Renderer) Stats(st store.Stats) string {
	var sb strings.Builder
	if r.pretty {
		sb.WriteString(color.CyanString("Activity\n"))
		sb.WriteString(strings.Repeat("─", 60) + "\n")
	}
	fmt.Fprintf(&sb, "sessions: %d  total: %.1fm  avg: %.1fm\n",
		st.SessionCount, st.TotalMinutes, st.AvgSessionMinutes)
	fmt.Fprintf(&sb, "unique issues: %d  commits: %d\n", st.UniqueIssues, st.CommitCount)
	return sb.String()
}

// Issues formats issue links with optional cached tracker context.
func (r *Renderer) Issues(links []domain.IssueLink, info map[string]domain.IssueInfo) string {
	if len(links) == 0 {
		return "No issue links found\n"
	}

	var sb strings.Builder
	for _, l := range links {
		line := fmt.Sprintf("%-12s %.1f  %s", l.IssueKey, l.Confidence, l.Source)
		if meta, ok := info[l.IssueKey]; ok && meta.Summary != "" {
			line += "  " + wstrings.Truncate(meta.Summary, 50)
		}
		if r.pretty {
			fmt.Fprintf(&sb, "%s %s\n", color.GreenString("●"), line)
		} else {
			sb.WriteString(line + "\n")
		}
	}
	return sb.String()
}
