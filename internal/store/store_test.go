package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joss/worklog/internal/domain"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "worklog.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func testSession(id string, start, end float64) domain.Session {
	return domain.Session{
		ID:              id,
		SessionKey:      "key",
		StartTime:       start,
		EndTime:         end,
		DurationMinutes: (end - start) / 60,
		Cwd:             "/repo",
		PromptCount:     1,
		Entries: []domain.LogEntry{
			{Timestamp: start, SessionKey: "key", PromptPreview: "hello", PromptLength: 5},
		},
	}
}

func ingestion(fileID string, sessions ...SessionIngestion) FileIngestion {
	return FileIngestion{
		Sessions: sessions,
		Record: domain.ProcessingRecord{
			FileIdentity: fileID,
			ProcessedAt:  time.Now().UTC(),
		},
	}
}

func TestOpenAndPing(t *testing.T) {
	s := openTestStore(t)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestIngestAndReadBack(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := ingestion("log1.jsonl", SessionIngestion{
		Session: testSession("s1", 100, 700),
		Commits: []domain.CommitRecord{{Hash: "abc", Timestamp: 400, Author: "Ada", Message: "PROJ-1 fix", RepoPath: "/repo"}},
		Issues:  []domain.IssueLink{{SessionID: "s1", IssueKey: "PROJ-1", Source: "commit", Confidence: 1.0}},
	})
	require.NoError(t, s.IngestFile(ctx, in))

	sessions, err := s.SessionsInRange(ctx, 0, 1000)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
	assert.Equal(t, 10.0, sessions[0].DurationMinutes)
	assert.Equal(t, "/repo", sessions[0].Cwd)

	commits, err := s.SessionCommits(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, commits, 1)
	assert.Equal(t, "abc", commits[0].Hash)

	links, err := s.IssueLinks(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, links, 1)
	assert.Equal(t, "PROJ-1", links[0].IssueKey)
}

func TestSessionUpsertReplacesRow(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.IngestFile(ctx, ingestion("a.jsonl", SessionIngestion{Session: testSession("s1", 100, 700)})))

	// same id, extended window
	updated := testSession("s1", 100, 1300)
	updated.PromptCount = 2
	require.NoError(t, s.IngestFile(ctx, ingestion("b.jsonl", SessionIngestion{Session: updated})))

	sessions, err := s.SessionsInRange(ctx, 0, 10000)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, 20.0, sessions[0].DurationMinutes)
	assert.Equal(t, 2, sessions[0].PromptCount)
}

func TestCommitInsertOrIgnoreOriginalWins(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	first := SessionIngestion{
		Session: testSession("s1", 100, 200),
		Commits: []domain.CommitRecord{{Hash: "abc", Timestamp: 150, Message: "original"}},
	}
	require.NoError(t, s.IngestFile(ctx, ingestion("a.jsonl", first)))

	second := SessionIngestion{
		Session: testSession("s2", 300, 400),
		Commits: []domain.CommitRecord{{Hash: "abc", Timestamp: 150, Message: "rewritten"}},
	}
	require.NoError(t, s.IngestFile(ctx, ingestion("b.jsonl", second)))

	c, err := s.GetCommit(ctx, "abc")
	require.NoError(t, err)
	assert.Equal(t, "original", c.Message)
}

func TestIssueLinkInsertOrReplace(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := ingestion("a.jsonl", SessionIngestion{
		Session: testSession("s1", 100, 200),
		Issues:  []domain.IssueLink{{SessionID: "s1", IssueKey: "AB-1", Source: "prompt", Confidence: 0.7}},
	})
	require.NoError(t, s.IngestFile(ctx, in))

	in2 := ingestion("b.jsonl", SessionIngestion{
		Session: testSession("s1", 100, 200),
		Issues:  []domain.IssueLink{{SessionID: "s1", IssueKey: "AB-1", Source: "prompt", Confidence: 0.7}},
	})
	require.NoError(t, s.IngestFile(ctx, in2))

	links, err := s.IssueLinks(ctx, "s1")
	require.NoError(t, err)
	assert.Len(t, links, 1)
}

func TestLedgerPreventsReprocessing(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.IngestFile(ctx, ingestion("a.jsonl", SessionIngestion{Session: testSession("s1", 100, 200)})))

	has, err := s.HasProcessed(ctx, "a.jsonl")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = s.HasProcessed(ctx, "other.jsonl")
	require.NoError(t, err)
	assert.False(t, has)
}

func TestDuplicateLedgerRollsBackWholeFile(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.IngestFile(ctx, ingestion("a.jsonl", SessionIngestion{Session: testSession("s1", 100, 200)})))

	// same file identity again: everything in the second tx must roll back
	err := s.IngestFile(ctx, ingestion("a.jsonl", SessionIngestion{Session: testSession("s2", 900, 950)}))
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrAlreadyProcessed))

	sessions, err := s.SessionsInRange(ctx, 0, 10000)
	require.NoError(t, err)
	require.Len(t, sessions, 1)
	assert.Equal(t, "s1", sessions[0].ID)
}

func TestUntrackedSessions(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	tracked := SessionIngestion{
		Session: testSession("s1", 100, 200),
		Issues:  []domain.IssueLink{{SessionID: "s1", IssueKey: "AB-1", Source: "branch", Confidence: 1.0}},
	}
	untracked := SessionIngestion{Session: testSession("s2", 300, 400)}
	require.NoError(t, s.IngestFile(ctx, ingestion("a.jsonl", tracked, untracked)))

	out, err := s.UntrackedSessions(ctx, 0, 1000)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "s2", out[0].ID)
}

func TestSessionsByIssue(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := ingestion("a.jsonl",
		SessionIngestion{
			Session: testSession("s1", 100, 200),
			Issues:  []domain.IssueLink{{SessionID: "s1", IssueKey: "AB-1", Source: "branch", Confidence: 1.0}},
		},
		SessionIngestion{Session: testSession("s2", 300, 400)},
	)
	require.NoError(t, s.IngestFile(ctx, in))

	out, err := s.SessionsByIssue(ctx, "AB-1")
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "s1", out[0].ID)
}

func TestStatsInRange(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := ingestion("a.jsonl",
		SessionIngestion{
			Session: testSession("s1", 100, 700),
			Commits: []domain.CommitRecord{{Hash: "c1", Timestamp: 150}},
			Issues:  []domain.IssueLink{{SessionID: "s1", IssueKey: "AB-1", Source: "branch", Confidence: 1.0}},
		},
		SessionIngestion{Session: testSession("s2", 1000, 2200)},
	)
	require.NoError(t, s.IngestFile(ctx, in))

	st, err := s.StatsInRange(ctx, 0, 5000)
	require.NoError(t, err)
	assert.Equal(t, 2, st.SessionCount)
	assert.Equal(t, 30.0, st.TotalMinutes)
	assert.Equal(t, 15.0, st.AvgSessionMinutes)
	assert.Equal(t, 1, st.UniqueIssues)
	assert.Equal(t, 1, st.CommitCount)
}

func TestProcessingHistory(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := ingestion("a.jsonl", SessionIngestion{Session: testSession("s1", 100, 200)})
	in.Record.EntriesCount = 4
	in.Record.ErrorsCount = 1
	in.Record.SessionsCreated = 1
	require.NoError(t, s.IngestFile(ctx, in))

	recs, err := s.ProcessingHistory(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "a.jsonl", recs[0].FileIdentity)
	assert.Equal(t, 4, recs[0].EntriesCount)
	assert.Equal(t, 1, recs[0].ErrorsCount)
}

func TestIssueCache(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	infos := []domain.IssueInfo{{
		IssueKey:    "AB-1",
		Summary:     "fix the widget",
		Status:      "In Progress",
		StoryPoints: 3,
		Sprint:      "sprint-9",
	}}
	require.NoError(t, s.UpsertIssueCache(ctx, infos))

	info, err := s.IssueInfo(ctx, "AB-1")
	require.NoError(t, err)
	assert.Equal(t, "fix the widget", info.Summary)
	assert.Equal(t, 3.0, info.StoryPoints)

	_, err = s.IssueInfo(ctx, "NOPE-1")
	assert.True(t, IsNotFound(err))
}

func TestLinkedIssueKeys(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	in := ingestion("a.jsonl", SessionIngestion{
		Session: testSession("s1", 100, 200),
		Issues: []domain.IssueLink{
			{SessionID: "s1", IssueKey: "ZZ-2", Source: "branch", Confidence: 1.0},
			{SessionID: "s1", IssueKey: "AB-1", Source: "prompt", Confidence: 0.7},
		},
	})
	require.NoError(t, s.IngestFile(ctx, in))

	keys, err := s.LinkedIssueKeys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"AB-1", "ZZ-2"}, keys)
}
