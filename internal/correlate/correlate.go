// Package correlate matches sessions to version-control commits by time window.
package correlate

import (
	"context"
	"sort"

	"github.com/rs/zerolog"

	"github.com/joss/worklog/internal/domain"
	"github.com/joss/worklog/internal/gitsource"
)

// Correlator queries commit history across repositories.
type Correlator struct {
	source gitsource.Source
	log    zerolog.Logger
}

// New creates a correlator over the given source.
func New(source gitsource.Source, log zerolog.Logger) *Correlator {
	return &Correlator{source: source, log: log}
}

// CommitsInWindow returns commits from all repoPaths whose timestamps fall
// inside [start, end] inclusive, deduplicated by hash and sorted ascending by
// timestamp. Paths that are not repositories are skipped silently; a failing
// repository is logged and the rest continue.
func (c *Correlator) CommitsInWindow(ctx context.Context, repoPaths []string, start, end float64) []domain.CommitRecord {
	seen := make(map[string]bool)
	var paths []string
	for _, p := range repoPaths {
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		paths = append(paths, p)
	}

	byHash := make(map[string]bool)
	var out []domain.CommitRecord
	for _, path := range paths {
		if !c.source.IsRepository(ctx, path) {
			continue
		}
		commits, err := c.source.CommitsInWindow(ctx, path, start, end)
		if err != nil {
			c.log.Warn().Err(err).Str("repo", path).Msg("commit history unavailable, skipping repository")
			continue
		}
		for _, commit := range commits {
			if byHash[commit.Hash] {
				continue
			}
			byHash[commit.Hash] = true
			out = append(out, commit)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Timestamp < out[j].Timestamp
	})
	return out
}

// RepoPathsFor collects the candidate repository paths for a session: every
// distinct non-empty cwd its entries reported.
func RepoPathsFor(session domain.Session) []string {
	seen := make(map[string]bool)
	var paths []string
	for _, e := range session.Entries {
		if e.Cwd == "" || seen[e.Cwd] {
			continue
		}
		seen[e.Cwd] = true
		paths = append(paths, e.Cwd)
	}
	return paths
}
