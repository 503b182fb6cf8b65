// Package domain defines the validated record types the pipeline operates on.
// Raw JSON never leaves the parser boundary; everything downstream works on
// these types only.
package domain

import "time"

// IssueSource identifies where an issue key was extracted from.
type IssueSource string

const (
	SourceBranch    IssueSource = "branch"
	SourceCommit    IssueSource = "commit"
	SourcePrompt    IssueSource = "prompt"
	SourceDirectory IssueSource = "directory"
)

// LogEntry is one captured prompt event from an intake log line.
// Immutable once parsed. Timestamp is seconds since epoch, fractional allowed.
type LogEntry struct {
	Timestamp     float64 `json:"timestamp"`
	SessionKey    string  `json:"sessionKey"`
	PromptPreview string  `json:"userPrompt,omitempty"`
	PromptLength  int     `json:"promptLength,omitempty"`
	Cwd           string  `json:"cwd,omitempty"`
	GitBranch     string  `json:"gitBranch,omitempty"`
	GitRemote     string  `json:"gitRemote,omitempty"`
}

// Session is a reconstructed contiguous span of prompt activity bounded by
// inactivity gaps. ID is a deterministic derivation of the first entry's
// timestamp, the session cwd and the original capture key, so reprocessing
// identical input produces identical IDs.
type Session struct {
	ID              string     `json:"id"`
	SessionKey      string     `json:"session_key"`
	StartTime       float64    `json:"start_time"`
	EndTime         float64    `json:"end_time"`
	DurationMinutes float64    `json:"duration_minutes"`
	Cwd             string     `json:"cwd,omitempty"`
	GitBranch       string     `json:"git_branch,omitempty"`
	GitRemote       string     `json:"git_remote,omitempty"`
	PromptCount     int        `json:"prompt_count"`
	Entries         []LogEntry `json:"-"`
}

// CommitRecord is one commit pulled from version-control history.
// Immutable once recorded; Hash is the unique key.
type CommitRecord struct {
	Hash      string  `json:"hash"`
	Timestamp float64 `json:"timestamp"`
	Author    string  `json:"author"`
	Message   string  `json:"message"`
	RepoPath  string  `json:"repo_path"`
}

// IssueLink associates an extracted issue key with a session. Source may be a
// comma-joined label when the same key was found via multiple sources at equal
// confidence.
type IssueLink struct {
	SessionID  string  `json:"session_id"`
	IssueKey   string  `json:"issue_key"`
	Source     string  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// ProcessingRecord is one ledger row; its presence guarantees the file
// identity is never ingested twice.
type ProcessingRecord struct {
	FileIdentity    string    `json:"file_identity"`
	EntriesCount    int       `json:"entries_count"`
	SessionsCreated int       `json:"sessions_created"`
	ErrorsCount     int       `json:"errors_count"`
	ProcessedAt     time.Time `json:"processed_at"`
}

// IssueInfo is a locally cached issue-tracker row, refreshed out of band.
// A stale or empty cache never blocks ingestion.
type IssueInfo struct {
	IssueKey    string    `json:"issue_key"`
	Summary     string    `json:"summary,omitempty"`
	Status      string    `json:"status,omitempty"`
	StoryPoints float64   `json:"story_points,omitempty"`
	Sprint      string    `json:"sprint,omitempty"`
	SyncedAt    time.Time `json:"synced_at"`
}

// BatchSummary accumulates per-batch counters for observability. A batch run
// always produces a summary, even when some files failed.
type BatchSummary struct {
	RunID     string        `json:"run_id"`
	Files     int           `json:"files"`
	Skipped   int           `json:"skipped"`
	Entries   int           `json:"entries"`
	Sessions  int           `json:"sessions"`
	Commits   int           `json:"commits"`
	Issues    int           `json:"issues"`
	Errors    int           `json:"errors"`
	Failed    int           `json:"failed"`
	Elapsed   time.Duration `json:"elapsed"`
	StartedAt time.Time     `json:"started_at"`
}
