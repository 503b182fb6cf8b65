package store

import (
	"context"
	"database/sql"

	"github.com/joss/worklog/internal/domain"
)

// Stats are the aggregate numbers for a time range.
type Stats struct {
	SessionCount      int     `json:"session_count"`
	TotalMinutes      float64 `json:"total_minutes"`
	UniqueIssues      int     `json:"unique_issues"`
	CommitCount       int     `json:"commit_count"`
	AvgSessionMinutes float64 `json:"avg_session_minutes"`
}

const sessionColumns = `id, session_key, start_time, end_time, duration_minutes, cwd, git_branch, git_remote, prompt_count`

func scanSession(rows *sql.Rows) (domain.Session, error) {
	var s domain.Session
	var cwd, branch, remote sql.NullString
	err := rows.Scan(&s.ID, &s.SessionKey, &s.StartTime, &s.EndTime, &s.DurationMinutes,
		&cwd, &branch, &remote, &s.PromptCount)
	s.Cwd = cwd.String
	s.GitBranch = branch.String
	s.GitRemote = remote.String
	return s, err
}

func (s *Store) querySessions(ctx context.Context, query string, args ...any) ([]domain.Session, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Session
	for rows.Next() {
		sess, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sess)
	}
	return out, rows.Err()
}

// SessionsInRange returns sessions whose start time falls in [start, end].
func (s *Store) SessionsInRange(ctx context.Context, start, end float64) ([]domain.Session, error) {
	return s.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE start_time >= ? AND start_time <= ?
		ORDER BY start_time
	`, start, end)
}

// SessionsByIssue returns sessions linked to the given issue key.
func (s *Store) SessionsByIssue(ctx context.Context, issueKey string) ([]domain.Session, error) {
	return s.querySessions(ctx, `
		SELECT DISTINCT `+sessionColumns+` FROM sessions
		JOIN session_issues ON session_issues.session_id = sessions.id
		WHERE session_issues.issue_key = ?
		ORDER BY start_time
	`, issueKey)
}

// UntrackedSessions returns sessions in the range with zero issue links.
func (s *Store) UntrackedSessions(ctx context.Context, start, end float64) ([]domain.Session, error) {
	return s.querySessions(ctx, `
		SELECT `+sessionColumns+` FROM sessions
		WHERE start_time >= ? AND start_time <= ?
		AND id NOT IN (SELECT session_id FROM session_issues)
		ORDER BY start_time
	`, start, end)
}

// IssueLinks returns the issue links for one session.
func (s *Store) IssueLinks(ctx context.Context, sessionID string) ([]domain.IssueLink, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, issue_key, source, confidence FROM session_issues
		WHERE session_id = ? ORDER BY issue_key, source
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.IssueLink
	for rows.Next() {
		var l domain.IssueLink
		if err := rows.Scan(&l.SessionID, &l.IssueKey, &l.Source, &l.Confidence); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

// SessionCommits returns the commits linked to one session, time ascending.
func (s *Store) SessionCommits(ctx context.Context, sessionID string) ([]domain.CommitRecord, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT commits.hash, commits.timestamp, commits.author, commits.message, commits.repo_path
		FROM commits
		JOIN session_commits ON session_commits.commit_hash = commits.hash
		WHERE session_commits.session_id = ?
		ORDER BY commits.timestamp
	`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.CommitRecord
	for rows.Next() {
		var c domain.CommitRecord
		var author, message, repo sql.NullString
		if err := rows.Scan(&c.Hash, &c.Timestamp, &author, &message, &repo); err != nil {
			return nil, err
		}
		c.Author = author.String
		c.Message = message.String
		c.RepoPath = repo.String
		out = append(out, c)
	}
	return out, rows.Err()
}

// GetCommit returns one commit by hash.
func (s *Store) GetCommit(ctx context.Context, hash string) (domain.CommitRecord, error) {
	var c domain.CommitRecord
	var author, message, repo sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT hash, timestamp, author, message, repo_path FROM commits WHERE hash = ?
	`, hash).Scan(&c.Hash, &c.Timestamp, &author, &message, &repo)
	if err == sql.ErrNoRows {
		return c, &NotFoundError{Entity: "commit", ID: hash}
	}
	if err != nil {
		return c, err
	}
	c.Author = author.String
	c.Message = message.String
	c.RepoPath = repo.String
	return c, nil
}

// StatsInRange computes the aggregate statistics for [start, end].
func (s *Store) StatsInRange(ctx context.Context, start, end float64) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1), COALESCE(SUM(duration_minutes), 0), COALESCE(AVG(duration_minutes), 0)
		FROM sessions WHERE start_time >= ? AND start_time <= ?
	`, start, end).Scan(&st.SessionCount, &st.TotalMinutes, &st.AvgSessionMinutes)
	if err != nil {
		return st, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT issue_key) FROM session_issues
		JOIN sessions ON sessions.id = session_issues.session_id
		WHERE sessions.start_time >= ? AND sessions.start_time <= ?
	`, start, end).Scan(&st.UniqueIssues)
	if err != nil {
		return st, err
	}

	err = s.db.QueryRowContext(ctx, `
		SELECT COUNT(DISTINCT commit_hash) FROM session_commits
		JOIN sessions ON sessions.id = session_commits.session_id
		WHERE sessions.start_time >= ? AND sessions.start_time <= ?
	`, start, end).Scan(&st.CommitCount)
	return st, err
}

// IssueInfo returns the cached tracker row for a key. A missing row is a
// NotFoundError; callers treat the cache as best-effort.
func (s *Store) IssueInfo(ctx context.Context, issueKey string) (domain.IssueInfo, error) {
	var info domain.IssueInfo
	var summary, status, sprint sql.NullString
	var points sql.NullFloat64
	err := s.db.QueryRowContext(ctx, `
		SELECT issue_key, summary, status, story_points, sprint, synced_at
		FROM issue_cache WHERE issue_key = ?
	`, issueKey).Scan(&info.IssueKey, &summary, &status, &points, &sprint, &info.SyncedAt)
	if err == sql.ErrNoRows {
		return info, &NotFoundError{Entity: "issue", ID: issueKey}
	}
	if err != nil {
		return info, err
	}
	info.Summary = summary.String
	info.Status = status.String
	info.StoryPoints = points.Float64
	info.Sprint = sprint.String
	return info, nil
}

// LinkedIssueKeys returns all distinct issue keys present in session links.
func (s *Store) LinkedIssueKeys(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT DISTINCT issue_key FROM session_issues ORDER BY issue_key`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var keys []string
	for rows.Next() {
		var k string
		if err := rows.Scan(&k); err != nil {
			return nil, err
		}
		keys = append(keys, k)
	}
	return keys, rows.Err()
}
