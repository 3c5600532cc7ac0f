package gitops

import (
	"context"
	"fmt"
	"sync"
)

// MockRepo records git operations without touching disk. It backs executor
// mock mode and tests.
type MockRepo struct {
	mu       sync.Mutex
	Branches []string
	Commits  []string
	Pushes   []string
	FailWith error
}

// EnsureBranch implements Repo.
func (m *MockRepo) EnsureBranch(name string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Branches = append(m.Branches, name)
	return nil
}

// CommitAll implements Repo.
func (m *MockRepo) CommitAll(message string) (string, error) {
	if m.FailWith != nil {
		return "", m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Commits = append(m.Commits, message)
	return fmt.Sprintf("%040d", len(m.Commits)), nil
}

// Push implements Repo.
func (m *MockRepo) Push(_ context.Context, branch, _ string) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Pushes = append(m.Pushes, branch)
	return nil
}

// MockPullRequests fabricates PR URLs without network access.
type MockPullRequests struct {
	mu       sync.Mutex
	next     int
	Created  []string
	Merged   []int
	FailWith error
}

// Create implements PullRequests.
func (m *MockPullRequests) Create(_ context.Context, owner, repo, head, base, title, _ string) (string, int, error) {
	if m.FailWith != nil {
		return "", 0, m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	url := fmt.Sprintf("https://github.com/%s/%s/pull/%d", owner, repo, m.next)
	m.Created = append(m.Created, url)
	return url, m.next, nil
}

// Merge implements PullRequests.
func (m *MockPullRequests) Merge(_ context.Context, _, _ string, number int) error {
	if m.FailWith != nil {
		return m.FailWith
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Merged = append(m.Merged, number)
	return nil
}
