package store

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/joss/worklog/internal/domain"
)

// SessionIngestion bundles one reconstructed session with its correlated
// commits and extracted issue links.
type SessionIngestion struct {
	Session domain.Session
	Commits []domain.CommitRecord
	Issues  []domain.IssueLink
}

// FileIngestion is everything the pipeline produced from one log file.
type FileIngestion struct {
	Sessions []SessionIngestion
	Record   domain.ProcessingRecord
}

// IngestFile writes one log file's sessions, prompts, commits and issue links
// plus the ledger row in a single transaction. Any failure rolls the whole
// file back and leaves the ledger unmarked so the file is retried next pass.
func (s *Store) IngestFile(ctx context.Context, in FileIngestion) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ingest tx: %w", err)
	}
	defer tx.Rollback()

	for _, si := range in.Sessions {
		sess := si.Session

		// Re-ingesting the same session id replaces the row entirely.
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO sessions (id, session_key, start_time, end_time, duration_minutes, cwd, git_branch, git_remote, prompt_count)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				session_key = excluded.session_key,
				start_time = excluded.start_time,
				end_time = excluded.end_time,
				duration_minutes = excluded.duration_minutes,
				cwd = excluded.cwd,
				git_branch = excluded.git_branch,
				git_remote = excluded.git_remote,
				prompt_count = excluded.prompt_count
		`, sess.ID, sess.SessionKey, sess.StartTime, sess.EndTime, sess.DurationMinutes,
			sess.Cwd, sess.GitBranch, sess.GitRemote, sess.PromptCount); err != nil {
			return fmt.Errorf("upsert session %s: %w", sess.ID, err)
		}

		// Prompts are append-only; the ledger prevents double ingestion of a
		// file, so no dedup key is needed here.
		for _, e := range sess.Entries {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO prompts (id, session_id, timestamp, preview, length)
				VALUES (?, ?, ?, ?, ?)
			`, ulid.Make().String(), sess.ID, e.Timestamp, e.PromptPreview, e.PromptLength); err != nil {
				return fmt.Errorf("insert prompt for %s: %w", sess.ID, err)
			}
		}

		// Commits are immutable once recorded: first write wins.
		for _, c := range si.Commits {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO commits (hash, timestamp, author, message, repo_path)
				VALUES (?, ?, ?, ?, ?)
			`, c.Hash, c.Timestamp, c.Author, c.Message, c.RepoPath); err != nil {
				return fmt.Errorf("insert commit %s: %w", c.Hash, err)
			}
			if _, err := tx.ExecContext(ctx, `
				INSERT OR IGNORE INTO session_commits (session_id, commit_hash)
				VALUES (?, ?)
			`, sess.ID, c.Hash); err != nil {
				return fmt.Errorf("link commit %s: %w", c.Hash, err)
			}
		}

		for _, link := range si.Issues {
			if _, err := tx.ExecContext(ctx, `
				INSERT OR REPLACE INTO session_issues (session_id, issue_key, source, confidence)
				VALUES (?, ?, ?, ?)
			`, sess.ID, link.IssueKey, link.Source, link.Confidence); err != nil {
				return fmt.Errorf("link issue %s: %w", link.IssueKey, err)
			}
		}
	}

	rec := in.Record
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO processed_logs (file_identity, entries_count, sessions_created, errors_count, processed_at)
		VALUES (?, ?, ?, ?, ?)
	`, rec.FileIdentity, rec.EntriesCount, rec.SessionsCreated, rec.ErrorsCount, rec.ProcessedAt); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return fmt.Errorf("mark processed %s: %w", rec.FileIdentity, ErrAlreadyProcessed)
		}
		return fmt.Errorf("mark processed %s: %w", rec.FileIdentity, err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ingest tx: %w", err)
	}
	return nil
}

// HasProcessed reports whether fileIdentity is present in the ledger.
func (s *Store) HasProcessed(ctx context.Context, fileIdentity string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(1) FROM processed_logs WHERE file_identity = ?`, fileIdentity).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("ledger lookup: %w", err)
	}
	return n > 0, nil
}

// ProcessingHistory returns the ledger rows, newest first.
func (s *Store) ProcessingHistory(ctx context.Context, limit int) ([]domain.ProcessingRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT file_identity, entries_count, sessions_created, errors_count, processed_at
		FROM processed_logs ORDER BY processed_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.ProcessingRecord
	for rows.Next() {
		var r domain.ProcessingRecord
		if err := rows.Scan(&r.FileIdentity, &r.EntriesCount, &r.SessionsCreated, &r.ErrorsCount, &r.ProcessedAt); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// UpsertIssueCache refreshes locally cached issue-tracker rows.
func (s *Store) UpsertIssueCache(ctx context.Context, infos []domain.IssueInfo) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin cache tx: %w", err)
	}
	defer tx.Rollback()

	for _, info := range infos {
		syncedAt := info.SyncedAt
		if syncedAt.IsZero() {
			syncedAt = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx, `
			INSERT OR REPLACE INTO issue_cache (issue_key, summary, status, story_points, sprint, synced_at)
			VALUES (?, ?, ?, ?, ?, ?)
		`, info.IssueKey, info.Summary, info.Status, info.StoryPoints, info.Sprint, syncedAt); err != nil {
			return fmt.Errorf("cache issue %s: %w", info.IssueKey, err)
		}
	}
	return tx.Commit()
}
