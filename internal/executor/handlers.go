package executor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmbish04/jbish-kit/internal/protocol"
	"github.com/jmbish04/jbish-kit/internal/scaffold"
	"github.com/jmbish04/jbish-kit/internal/session"
)

// customHandler is the sleep-and-report task: it exercises the full event
// choreography (progress at 25/50/75, a log line, optional pr_created)
// without any repository side effects.
type customHandler struct {
	env *Env
	em  session.Emitter
}

func (h *customHandler) Execute(ctx context.Context, task *protocol.TaskMessage) error {
	h.em.Log(fmt.Sprintf("Starting task: %s", task.Type), "info")

	for _, pct := range []float64{25, 50, 75} {
		if err := sleep(ctx, h.env.StepDelay); err != nil {
			return err
		}
		h.em.Progress(pct, "Working")
	}

	message := argString(task.Args, "message")
	if message == "" {
		message = "Custom task executed"
	}
	h.em.Log(message, "info")

	if url := argString(task.Args, "prUrl"); url != "" {
		h.em.Send(protocol.NewPRCreated(task.TaskID, url, nil))
	}

	if failure := argString(task.Args, "fail"); failure != "" {
		return errors.New(failure)
	}
	return nil
}

// initHandler lays down the project configuration files on the executor's
// checkout of the target repository.
type initHandler struct {
	env *Env
	em  session.Emitter
}

func (h *initHandler) Execute(ctx context.Context, task *protocol.TaskMessage) error {
	h.em.Log(fmt.Sprintf("Starting task: %s", task.Type), "info")

	dir, err := h.env.repoDir(task.Repo)
	if err != nil {
		return err
	}

	name := argString(task.Args, "projectName")
	if name == "" {
		_, name, _ = splitSlugQuiet(task.Repo)
	}

	h.em.Progress(50, "Writing project configuration")
	written, err := scaffold.NewGenerator(dir).InitProject(name)
	if err != nil {
		return fmt.Errorf("init project: %w", err)
	}

	if len(written) == 0 {
		h.em.Log("Project already initialized, nothing to do", "info")
	} else {
		h.em.Log(fmt.Sprintf("Initialized project %q: %s", name, strings.Join(written, ", ")), "info")
	}
	h.em.Progress(100, "Done")
	return nil
}

func splitSlugQuiet(slug string) (string, string, bool) {
	parts := strings.SplitN(slug, "/", 2)
	if len(parts) != 2 {
		return "", slug, false
	}
	return parts[0], parts[1], true
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(d):
		return nil
	}
}
