// Package gitops wraps the version-control side effects task handlers
// perform. Failures here are opaque to the protocol; handlers translate
// them into the task's single terminal error event.
package gitops

import (
	"context"
	"fmt"
	"strings"
)

// Repo is the local repository surface handlers use.
type Repo interface {
	// EnsureBranch checks out the named branch, creating it from the
	// current HEAD when it does not exist yet.
	EnsureBranch(name string) error
	// CommitAll stages everything under the worktree and commits it,
	// returning the commit hash.
	CommitAll(message string) (string, error)
	// Push uploads the branch to origin using the given token.
	Push(ctx context.Context, branch, token string) error
}

// PullRequests is the source-hosting REST surface handlers use.
type PullRequests interface {
	// Create opens a pull request and returns its URL and number.
	Create(ctx context.Context, owner, repo, head, base, title, body string) (string, int, error)
	// Merge merges a previously created pull request.
	Merge(ctx context.Context, owner, repo string, number int) error
}

// RepoOpener resolves a repo slug to a local Repo. The executor holds one
// so each task can address a different checkout under the workspace.
type RepoOpener func(slug string) (Repo, error)

// SplitSlug splits "owner/name" into its parts.
func SplitSlug(slug string) (owner, name string, err error) {
	parts := strings.Split(slug, "/")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return "", "", fmt.Errorf("invalid repo slug %q (want owner/name)", slug)
	}
	return parts[0], parts[1], nil
}
