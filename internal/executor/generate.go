package executor

import (
	"context"
	"fmt"

	"github.com/jmbish04/jbish-kit/internal/gitops"
	"github.com/jmbish04/jbish-kit/internal/lint"
	"github.com/jmbish04/jbish-kit/internal/protocol"
	"github.com/jmbish04/jbish-kit/internal/scaffold"
	"github.com/jmbish04/jbish-kit/internal/session"
)

type generateKind int

const (
	kindPage generateKind = iota
	kindAgent
)

// generateHandler scaffolds a page or agent, commits it on the task branch,
// opens a pull request and registers a preview mapping.
type generateHandler struct {
	env  *Env
	em   session.Emitter
	kind generateKind
}

func (h *generateHandler) Execute(ctx context.Context, task *protocol.TaskMessage) error {
	h.em.Log(fmt.Sprintf("Starting task: %s", task.Type), "info")

	dir, err := h.env.repoDir(task.Repo)
	if err != nil {
		return err
	}
	owner, repoName, err := gitops.SplitSlug(task.Repo)
	if err != nil {
		return err
	}

	name, title, err := h.names(task)
	if err != nil {
		return err
	}

	h.em.Progress(25, "Scaffolding files")
	gen := scaffold.NewGenerator(dir)
	var written []string
	switch h.kind {
	case kindPage:
		written, err = gen.Page(name, title)
	case kindAgent:
		written, err = gen.Agent(name, title)
	}
	if err != nil {
		return fmt.Errorf("scaffold: %w", err)
	}
	h.em.Log(fmt.Sprintf("Generated %s %q (%d files)", h.noun(), name, len(written)), "info")

	repo, err := h.env.OpenRepo(task.Repo)
	if err != nil {
		return fmt.Errorf("open repo: %w", err)
	}

	h.em.Progress(50, "Committing changes")
	if err := repo.EnsureBranch(task.Branch); err != nil {
		return err
	}
	if _, err := repo.CommitAll(fmt.Sprintf("Add %s %s", h.noun(), name)); err != nil {
		return err
	}
	if err := repo.Push(ctx, task.Branch, task.Auth.GitHub); err != nil {
		return err
	}

	var validation *protocol.Validation
	if task.Settings.ValidateFrontend {
		rep, lintErr := lint.New(dir, h.env.LintRequired).Check()
		if lintErr != nil {
			return fmt.Errorf("validate frontend: %w", lintErr)
		}
		validation = &protocol.Validation{Passed: rep.Passed(), Issues: rep.Messages()}
	}

	h.em.Progress(75, "Opening pull request")
	prs, err := h.env.PullRequests(ctx, task.Auth.GitHub)
	if err != nil {
		return fmt.Errorf("pull request client: %w", err)
	}
	title = fmt.Sprintf("Add %s %s", h.noun(), name)
	url, number, err := prs.Create(ctx, owner, repoName, task.Branch, h.env.BaseBranch, title, "")
	if err != nil {
		return err
	}
	h.em.Send(protocol.NewPRCreated(task.TaskID, url, validation))

	if task.Settings.AutoMerge && (validation == nil || validation.Passed) {
		if err := prs.Merge(ctx, owner, repoName, number); err != nil {
			return err
		}
		h.em.Log(fmt.Sprintf("Auto-merged pull request #%d", number), "info")
	}

	if h.env.Preview != nil && h.kind == kindPage {
		id, port := h.env.Preview.Allocate()
		h.em.Log(fmt.Sprintf("Preview registered: id=%s port=%d", id, port), "info")
	}

	return nil
}

func (h *generateHandler) names(task *protocol.TaskMessage) (name, title string, err error) {
	switch h.kind {
	case kindPage:
		name = argString(task.Args, "pageName")
		title = argString(task.Args, "title")
		if name == "" {
			return "", "", fmt.Errorf("generate_page requires args.pageName")
		}
	case kindAgent:
		name = argString(task.Args, "agentName")
		title = argString(task.Args, "description")
		if name == "" {
			return "", "", fmt.Errorf("generate_agent requires args.agentName")
		}
	}
	return name, title, nil
}

func (h *generateHandler) noun() string {
	if h.kind == kindAgent {
		return "agent"
	}
	return "page"
}
