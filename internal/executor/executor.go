// Package executor maps task types to handlers. A handler is built fresh
// per task and emits all its output through the session's emitter surface.
package executor

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/jmbish04/jbish-kit/internal/gitops"
	"github.com/jmbish04/jbish-kit/internal/preview"
	"github.com/jmbish04/jbish-kit/internal/protocol"
	"github.com/jmbish04/jbish-kit/internal/session"
)

// PRFactory builds a pull-request client for the credential a task carries.
type PRFactory func(ctx context.Context, token string) (gitops.PullRequests, error)

// Env carries the collaborators handlers need. One Env serves the whole
// daemon; handlers themselves are stateless and per-task.
type Env struct {
	Logger       *zap.Logger
	Workspace    string
	StepDelay    time.Duration
	OpenRepo     gitops.RepoOpener
	PullRequests PRFactory
	Preview      *preview.Registry
	LintRequired []string
	BaseBranch   string
}

// NewFactory returns the dispatch function the session consults when a task
// is accepted. Unknown task types fail synchronously, before any event is
// emitted; this is a programming error, not a runtime condition.
func NewFactory(env *Env) session.Factory {
	return func(taskType protocol.TaskType, em session.Emitter) (session.Handler, error) {
		switch taskType {
		case protocol.TaskInit:
			return &initHandler{env: env, em: em}, nil
		case protocol.TaskGeneratePage:
			return &generateHandler{env: env, em: em, kind: kindPage}, nil
		case protocol.TaskGenerateAgent:
			return &generateHandler{env: env, em: em, kind: kindAgent}, nil
		case protocol.TaskLintFix:
			return &lintFixHandler{env: env, em: em}, nil
		case protocol.TaskHealthAudit:
			return &healthAuditHandler{env: env, em: em}, nil
		case protocol.TaskCustom:
			return &customHandler{env: env, em: em}, nil
		default:
			return nil, fmt.Errorf("unknown task type %q", taskType)
		}
	}
}

// repoDir resolves the checkout directory for a repo slug.
func (e *Env) repoDir(slug string) (string, error) {
	_, name, err := gitops.SplitSlug(slug)
	if err != nil {
		return "", err
	}
	return filepath.Join(e.Workspace, name), nil
}

// argString reads an optional string argument from the open task payload.
func argString(args map[string]any, key string) string {
	v, _ := args[key].(string)
	return v
}
