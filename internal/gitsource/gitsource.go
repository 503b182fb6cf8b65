// Package gitsource provides read-only access to version-control history.
package gitsource

import (
	"bufio"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/joss/worklog/internal/domain"
	"github.com/joss/worklog/internal/exec"
)

// Source is the capability interface the pipeline uses to query
// version-control state. It never mutates repository state.
type Source interface {
	// IsRepository reports whether path is inside a repository.
	IsRepository(ctx context.Context, path string) bool

	// CommitsInWindow returns commits whose timestamps fall inside
	// [start, end] (seconds, inclusive), newest last.
	CommitsInWindow(ctx context.Context, path string, start, end float64) ([]domain.CommitRecord, error)

	// CurrentBranch returns the checked-out branch name.
	CurrentBranch(ctx context.Context, path string) (string, error)

	// RemoteURL returns the origin remote URL.
	RemoteURL(ctx context.Context, path string) (string, error)
}

// GitCLI implements Source by shelling out to git through an exec.Runner.
type GitCLI struct {
	runner exec.Runner
}

// NewGitCLI creates a git-backed source.
func NewGitCLI(runner exec.Runner) *GitCLI {
	return &GitCLI{runner: runner}
}

// IsRepository reports whether path is inside a git work tree.
func (g *GitCLI) IsRepository(ctx context.Context, path string) bool {
	out, err := g.runner.RunInDir(ctx, path, "git", "rev-parse", "--is-inside-work-tree")
	return err == nil && strings.TrimSpace(string(out)) == "true"
}

// CommitsInWindow reads git log restricted to the window. Timestamps are
// passed as unix seconds; --since/--until are inclusive at second resolution.
func (g *GitCLI) CommitsInWindow(ctx context.Context, path string, start, end float64) ([]domain.CommitRecord, error) {
	out, err := g.runner.RunInDir(ctx, path, "git", "log",
		fmt.Sprintf("--since=%d", int64(start)),
		fmt.Sprintf("--until=%d", int64(end)+1),
		"--format=%H|%an|%at|%s",
	)
	if err != nil {
		return nil, fmt.Errorf("git log in %s: %w", path, err)
	}

	var commits []domain.CommitRecord
	scanner := bufio.NewScanner(strings.NewReader(string(out)))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, "|", 4)
		if len(parts) < 4 {
			continue
		}
		ts, err := strconv.ParseFloat(parts[2], 64)
		if err != nil {
			continue
		}
		// --since/--until filter on commit date at second granularity;
		// re-check the exact inclusive window here.
		if ts < start || ts > end {
			continue
		}
		commits = append(commits, domain.CommitRecord{
			Hash:      parts[0],
			Author:    parts[1],
			Timestamp: ts,
			Message:   parts[3],
			RepoPath:  path,
		})
	}
	return commits, nil
}

// CurrentBranch returns the checked-out branch name.
func (g *GitCLI) CurrentBranch(ctx context.Context, path string) (string, error) {
	out, err := g.runner.RunInDir(ctx, path, "git", "rev-parse", "--abbrev-ref", "HEAD")
	if err != nil {
		return "", fmt.Errorf("git branch in %s: %w", path, err)
	}
	return strings.TrimSpace(string(out)), nil
}

// RemoteURL returns the origin remote URL.
func (g *GitCLI) RemoteURL(ctx context.Context, path string) (string, error) {
	out, err := g.runner.RunInDir(ctx, path, "git", "remote", "get-url", "origin")
	if err != nil {
		return "", fmt.Errorf("git remote in %s: %w", path, err)
	}
	return strings.TrimSpace(string(out)), nil
}
