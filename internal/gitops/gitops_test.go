package gitops

import (
	"context"
	"testing"
)

func TestSplitSlug(t *testing.T) {
	owner, name, err := SplitSlug("acme/site")
	if err != nil {
		t.Fatal(err)
	}
	if owner != "acme" || name != "site" {
		t.Fatalf("got %s/%s", owner, name)
	}

	for _, bad := range []string{"", "acme", "acme/", "/site", "a/b/c"} {
		if _, _, err := SplitSlug(bad); err == nil {
			t.Fatalf("slug %q accepted", bad)
		}
	}
}

func TestMockPullRequestURLs(t *testing.T) {
	prs := &MockPullRequests{}
	url, number, err := prs.Create(context.Background(), "acme", "site", "feat", "main", "title", "")
	if err != nil {
		t.Fatal(err)
	}
	if number != 1 || url != "https://github.com/acme/site/pull/1" {
		t.Fatalf("got %q #%d", url, number)
	}

	if err := prs.Merge(context.Background(), "acme", "site", number); err != nil {
		t.Fatal(err)
	}
	if len(prs.Merged) != 1 || prs.Merged[0] != 1 {
		t.Fatalf("merge not recorded: %v", prs.Merged)
	}
}

func TestMockRepoRecordsOperations(t *testing.T) {
	repo := &MockRepo{}
	if err := repo.EnsureBranch("jbish/pricing"); err != nil {
		t.Fatal(err)
	}
	if _, err := repo.CommitAll("add pricing page"); err != nil {
		t.Fatal(err)
	}
	if err := repo.Push(context.Background(), "jbish/pricing", "token"); err != nil {
		t.Fatal(err)
	}
	if len(repo.Branches) != 1 || len(repo.Commits) != 1 || len(repo.Pushes) != 1 {
		t.Fatalf("operations not recorded: %+v", repo)
	}
}
