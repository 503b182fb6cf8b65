package gitsource

import (
	"context"
	"fmt"

	"github.com/joss/worklog/internal/domain"
)

// MemorySource is an in-memory Source for tests. Repositories are registered
// by path with their commits, branch and remote.
type MemorySource struct {
	Repos map[string]*MemoryRepo

	// Fail marks repo paths whose queries should error.
	Fail map[string]bool
}

// MemoryRepo holds the fake state for one repository path.
type MemoryRepo struct {
	Commits []domain.CommitRecord
	Branch  string
	Remote  string
}

// NewMemorySource creates an empty in-memory source.
func NewMemorySource() *MemorySource {
	return &MemorySource{
		Repos: make(map[string]*MemoryRepo),
		Fail:  make(map[string]bool),
	}
}

// AddRepo registers a repository at path.
func (m *MemorySource) AddRepo(path string, repo *MemoryRepo) {
	m.Repos[path] = repo
}

// IsRepository reports whether path was registered.
func (m *MemorySource) IsRepository(ctx context.Context, path string) bool {
	_, ok := m.Repos[path]
	return ok
}

// CommitsInWindow filters the registered commits to [start, end] inclusive.
func (m *MemorySource) CommitsInWindow(ctx context.Context, path string, start, end float64) ([]domain.CommitRecord, error) {
	if m.Fail[path] {
		return nil, fmt.Errorf("simulated failure for %s", path)
	}
	repo, ok := m.Repos[path]
	if !ok {
		return nil, nil
	}
	var out []domain.CommitRecord
	for _, c := range repo.Commits {
		if c.Timestamp >= start && c.Timestamp <= end {
			c.RepoPath = path
			out = append(out, c)
		}
	}
	return out, nil
}

// CurrentBranch returns the registered branch.
func (m *MemorySource) CurrentBranch(ctx context.Context, path string) (string, error) {
	if repo, ok := m.Repos[path]; ok {
		return repo.Branch, nil
	}
	return "", fmt.Errorf("not a repository: %s", path)
}

// RemoteURL returns the registered remote.
func (m *MemorySource) RemoteURL(ctx context.Context, path string) (string, error) {
	if repo, ok := m.Repos[path]; ok {
		return repo.Remote, nil
	}
	return "", fmt.Errorf("not a repository: %s", path)
}
