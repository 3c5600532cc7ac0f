package executor

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmbish04/jbish-kit/internal/gitops"
	"github.com/jmbish04/jbish-kit/internal/lint"
	"github.com/jmbish04/jbish-kit/internal/protocol"
	"github.com/jmbish04/jbish-kit/internal/session"
)

// lintFixHandler repairs repo configuration and, when anything changed,
// pushes the fixes up as a pull request.
type lintFixHandler struct {
	env *Env
	em  session.Emitter
}

func (h *lintFixHandler) Execute(ctx context.Context, task *protocol.TaskMessage) error {
	h.em.Log(fmt.Sprintf("Starting task: %s", task.Type), "info")

	dir, err := h.env.repoDir(task.Repo)
	if err != nil {
		return err
	}
	owner, repoName, err := gitops.SplitSlug(task.Repo)
	if err != nil {
		return err
	}

	h.em.Progress(25, "Checking repository configuration")
	rep, err := lint.New(dir, h.env.LintRequired).Fix()
	if err != nil {
		return fmt.Errorf("lint: %w", err)
	}

	for _, fixed := range rep.Fixed {
		h.em.Log("Fixed: "+fixed, "info")
	}

	if !rep.Passed() {
		return fmt.Errorf("unfixable configuration issues: %s", strings.Join(rep.Messages(), "; "))
	}

	if len(rep.Fixed) == 0 {
		h.em.Log("Configuration already clean, nothing to fix", "info")
		h.em.Progress(100, "Done")
		return nil
	}

	repo, err := h.env.OpenRepo(task.Repo)
	if err != nil {
		return fmt.Errorf("open repo: %w", err)
	}

	h.em.Progress(60, "Committing fixes")
	if err := repo.EnsureBranch(task.Branch); err != nil {
		return err
	}
	if _, err := repo.CommitAll("Fix repository configuration"); err != nil {
		return err
	}
	if err := repo.Push(ctx, task.Branch, task.Auth.GitHub); err != nil {
		return err
	}

	h.em.Progress(85, "Opening pull request")
	prs, err := h.env.PullRequests(ctx, task.Auth.GitHub)
	if err != nil {
		return fmt.Errorf("pull request client: %w", err)
	}
	url, _, err := prs.Create(ctx, owner, repoName, task.Branch, h.env.BaseBranch,
		"Fix repository configuration", strings.Join(rep.Fixed, "\n"))
	if err != nil {
		return err
	}
	h.em.Send(protocol.NewPRCreated(task.TaskID, url, nil))
	return nil
}

// healthAuditHandler reports on repository health without modifying anything.
type healthAuditHandler struct {
	env *Env
	em  session.Emitter
}

func (h *healthAuditHandler) Execute(_ context.Context, task *protocol.TaskMessage) error {
	h.em.Log(fmt.Sprintf("Starting task: %s", task.Type), "info")

	dir, err := h.env.repoDir(task.Repo)
	if err != nil {
		return err
	}

	h.em.Progress(50, "Auditing repository configuration")
	rep, err := lint.New(dir, h.env.LintRequired).Check()
	if err != nil {
		return fmt.Errorf("audit: %w", err)
	}

	for _, issue := range rep.Messages() {
		h.em.Log(issue, "warn")
	}

	// An audit succeeds even when it finds problems; the findings are the
	// deliverable.
	if rep.Passed() {
		h.em.Log(fmt.Sprintf("Audit clean: %d checks passed", rep.Checked), "info")
	} else {
		h.em.Log(fmt.Sprintf("Audit found %d issue(s) across %d checks", len(rep.Issues), rep.Checked), "warn")
	}
	h.em.Progress(100, "Done")
	return nil
}
