package gitops

import (
	"context"
	"fmt"

	"github.com/google/go-github/v66/github"
	"golang.org/x/oauth2"
)

// GitHub implements PullRequests against the GitHub REST API.
type GitHub struct {
	client *github.Client
}

// NewGitHub builds an authenticated client. baseURL is empty for
// api.github.com or points at a GitHub Enterprise install.
func NewGitHub(ctx context.Context, token, baseURL string) (*GitHub, error) {
	httpClient := oauth2.NewClient(ctx, oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token}))
	client := github.NewClient(httpClient)
	if baseURL != "" {
		var err error
		client, err = client.WithEnterpriseURLs(baseURL, baseURL)
		if err != nil {
			return nil, fmt.Errorf("github enterprise urls: %w", err)
		}
	}
	return &GitHub{client: client}, nil
}

// Create implements PullRequests.
func (g *GitHub) Create(ctx context.Context, owner, repo, head, base, title, body string) (string, int, error) {
	pr, _, err := g.client.PullRequests.Create(ctx, owner, repo, &github.NewPullRequest{
		Title: github.String(title),
		Head:  github.String(head),
		Base:  github.String(base),
		Body:  github.String(body),
	})
	if err != nil {
		return "", 0, fmt.Errorf("create pull request: %w", err)
	}
	return pr.GetHTMLURL(), pr.GetNumber(), nil
}

// Merge implements PullRequests.
func (g *GitHub) Merge(ctx context.Context, owner, repo string, number int) error {
	_, _, err := g.client.PullRequests.Merge(ctx, owner, repo, number, "", &github.PullRequestOptions{
		MergeMethod: "squash",
	})
	if err != nil {
		return fmt.Errorf("merge pull request #%d: %w", number, err)
	}
	return nil
}
