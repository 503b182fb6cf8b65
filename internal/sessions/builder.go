// Package sessions reconstructs work sessions from raw log entries.
//
// Entries are first partitioned by their capture-time session key, then each
// partition is segmented on the inactivity gap. Two unrelated tools reporting
// overlapping timestamps are never merged just because the times are close.
package sessions

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/joss/worklog/internal/domain"
)

// Group partitions entries by session key, segments each partition on
// gapMinutes and returns the flattened sessions sorted by start time.
// Empty input yields no sessions.
func Group(entries []domain.LogEntry, gapMinutes float64) []domain.Session {
	byKey := make(map[string][]domain.LogEntry)
	var keys []string
	for _, e := range entries {
		if _, ok := byKey[e.SessionKey]; !ok {
			keys = append(keys, e.SessionKey)
		}
		byKey[e.SessionKey] = append(byKey[e.SessionKey], e)
	}

	var out []domain.Session
	for _, key := range keys {
		out = append(out, segment(byKey[key], gapMinutes)...)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].StartTime < out[j].StartTime
	})
	return out
}

// segment splits one key's entries into gap-bounded sessions. The sort is
// stable so entries with identical timestamps keep their original order and
// always land in the same session.
func segment(entries []domain.LogEntry, gapMinutes float64) []domain.Session {
	if len(entries) == 0 {
		return nil
	}

	sorted := make([]domain.LogEntry, len(entries))
	copy(sorted, entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp < sorted[j].Timestamp
	})

	gapSeconds := gapMinutes * 60

	var out []domain.Session
	open := newSession(sorted[0])
	for _, e := range sorted[1:] {
		if e.Timestamp-open.EndTime > gapSeconds {
			out = append(out, finalize(open))
			open = newSession(e)
			continue
		}
		extend(&open, e)
	}
	out = append(out, finalize(open))
	return out
}

func newSession(first domain.LogEntry) domain.Session {
	s := domain.Session{
		SessionKey: first.SessionKey,
		StartTime:  first.Timestamp,
		EndTime:    first.Timestamp,
		Cwd:        first.Cwd,
		GitBranch:  first.GitBranch,
		GitRemote:  first.GitRemote,
		Entries:    []domain.LogEntry{first},
	}
	return s
}

func extend(s *domain.Session, e domain.LogEntry) {
	s.EndTime = e.Timestamp
	s.Entries = append(s.Entries, e)
	// cwd and remote are last-write-wins over non-empty values
	if e.Cwd != "" {
		s.Cwd = e.Cwd
	}
	if e.GitRemote != "" {
		s.GitRemote = e.GitRemote
	}
}

func finalize(s domain.Session) domain.Session {
	s.DurationMinutes = (s.EndTime - s.StartTime) / 60
	s.PromptCount = len(s.Entries)
	s.ID = deriveID(s.StartTime, s.Cwd, s.SessionKey)
	return s
}

// deriveID produces a stable session identifier from the first entry's
// timestamp, the session cwd and the original capture key. Reprocessing the
// same input must yield the same id for the upsert downstream to be
// idempotent, so nothing random goes in here.
func deriveID(startTime float64, cwd, key string) string {
	sum := sha256.Sum256([]byte(fmt.Sprintf("%.6f|%s|%s", startTime, cwd, key)))
	return hex.EncodeToString(sum[:])[:16]
}
