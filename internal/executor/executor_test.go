package executor

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmbish04/jbish-kit/internal/gitops"
	"github.com/jmbish04/jbish-kit/internal/protocol"
	"github.com/jmbish04/jbish-kit/internal/session"
)

// recordingEmitter captures everything a handler emits.
type recordingEmitter struct {
	events []*protocol.AgentMessage
}

func (r *recordingEmitter) Log(message, level string) {
	r.events = append(r.events, protocol.NewLog("t", message, level))
}

func (r *recordingEmitter) Progress(percent float64, message string) {
	r.events = append(r.events, protocol.NewProgress("t", percent, message))
}

func (r *recordingEmitter) Send(msg *protocol.AgentMessage) {
	r.events = append(r.events, msg)
}

func (r *recordingEmitter) ofType(et protocol.EventType) []*protocol.AgentMessage {
	var out []*protocol.AgentMessage
	for _, ev := range r.events {
		if ev.Type == et {
			out = append(out, ev)
		}
	}
	return out
}

func testEnv(t *testing.T) (*Env, *gitops.MockRepo, *gitops.MockPullRequests) {
	t.Helper()
	repo := &gitops.MockRepo{}
	prs := &gitops.MockPullRequests{}
	env := &Env{
		Logger:       zap.NewNop(),
		Workspace:    t.TempDir(),
		OpenRepo:     func(string) (gitops.Repo, error) { return repo, nil },
		PullRequests: func(context.Context, string) (gitops.PullRequests, error) { return prs, nil },
		BaseBranch:   "main",
	}
	return env, repo, prs
}

func task(typ protocol.TaskType, args map[string]any) *protocol.TaskMessage {
	if args == nil {
		args = map[string]any{}
	}
	return &protocol.TaskMessage{
		Type:   typ,
		TaskID: "t",
		Repo:   "acme/site",
		Branch: "jbish/work",
		Auth:   protocol.Auth{GitHub: "gh", Worker: "wk"},
		Args:   args,
	}
}

func execute(t *testing.T, env *Env, tm *protocol.TaskMessage) (*recordingEmitter, error) {
	t.Helper()
	em := &recordingEmitter{}
	factory := NewFactory(env)
	h, err := factory(tm.Type, em)
	require.NoError(t, err)
	return em, h.Execute(context.Background(), tm)
}

func TestDispatchUnknownTypeFailsFast(t *testing.T) {
	env, _, _ := testEnv(t)
	em := &recordingEmitter{}

	h, err := NewFactory(env)(protocol.TaskType("task:bogus"), em)
	require.Nil(t, h)
	require.ErrorContains(t, err, `unknown task type "task:bogus"`)
	require.Empty(t, em.events, "dispatch failure must not emit events")
}

func TestDispatchCoversEnumeration(t *testing.T) {
	env, _, _ := testEnv(t)
	for _, tt := range protocol.TaskTypes {
		h, err := NewFactory(env)(tt, &recordingEmitter{})
		require.NoError(t, err, "type %s", tt)
		require.NotNil(t, h)
	}
}

func TestDispatchBuildsFreshHandlers(t *testing.T) {
	env, _, _ := testEnv(t)
	factory := NewFactory(env)
	a, err := factory(protocol.TaskCustom, &recordingEmitter{})
	require.NoError(t, err)
	b, err := factory(protocol.TaskCustom, &recordingEmitter{})
	require.NoError(t, err)
	require.NotSame(t, a, b)
}

func TestCustomTaskChoreography(t *testing.T) {
	env, _, _ := testEnv(t)

	em, err := execute(t, env, task(protocol.TaskCustom, map[string]any{
		"message": "hello from the mock",
		"prUrl":   "https://github.com/acme/site/pull/9",
	}))
	require.NoError(t, err)

	progress := em.ofType(protocol.EventProgress)
	require.Len(t, progress, 3)
	for i, want := range []float64{25, 50, 75} {
		require.Equal(t, want, progress[i].Data["progress"])
	}

	logs := em.ofType(protocol.EventLog)
	require.Equal(t, "Starting task: custom", logs[0].Data["message"])
	require.Equal(t, "hello from the mock", logs[len(logs)-1].Data["message"])

	pr := em.ofType(protocol.EventPRCreated)
	require.Len(t, pr, 1)
	require.Equal(t, "https://github.com/acme/site/pull/9", pr[0].Data["prUrl"])
}

func TestCustomTaskFailure(t *testing.T) {
	env, _, _ := testEnv(t)

	_, err := execute(t, env, task(protocol.TaskCustom, map[string]any{"fail": "Test error"}))
	require.EqualError(t, err, "Test error")
}

func TestGeneratePage(t *testing.T) {
	env, repo, prs := testEnv(t)
	env.LintRequired = nil
	seedCleanConfig(t, filepath.Join(env.Workspace, "site"))

	tm := task(protocol.TaskGeneratePage, map[string]any{"pageName": "pricing"})
	tm.Settings.ValidateFrontend = true

	em, err := execute(t, env, tm)
	require.NoError(t, err)

	require.FileExists(t, filepath.Join(env.Workspace, "site", "pages", "pricing.html"))
	require.Equal(t, []string{"jbish/work"}, repo.Branches)
	require.Equal(t, []string{"jbish/work"}, repo.Pushes)
	require.Len(t, prs.Created, 1)

	pr := em.ofType(protocol.EventPRCreated)
	require.Len(t, pr, 1)
	require.Equal(t, prs.Created[0], pr[0].Data["prUrl"])

	validation, ok := pr[0].Data["validation"].(map[string]any)
	require.True(t, ok, "validateFrontend must attach a validation payload")
	require.Equal(t, true, validation["passed"])

	// pr_created precedes any later events and no terminal is emitted here;
	// the session owns the terminal event.
	require.Empty(t, em.ofType(protocol.EventComplete))
	require.Empty(t, em.ofType(protocol.EventError))
}

func TestGeneratePageRequiresName(t *testing.T) {
	env, _, _ := testEnv(t)

	_, err := execute(t, env, task(protocol.TaskGeneratePage, map[string]any{}))
	require.ErrorContains(t, err, "pageName")
}

func TestGenerateAgentAutoMerge(t *testing.T) {
	env, _, prs := testEnv(t)
	seedCleanConfig(t, filepath.Join(env.Workspace, "site"))

	tm := task(protocol.TaskGenerateAgent, map[string]any{"agentName": "health-bot"})
	tm.Settings.AutoMerge = true

	_, err := execute(t, env, tm)
	require.NoError(t, err)
	require.Len(t, prs.Merged, 1)
}

func TestGenerateSurfacesGitFailures(t *testing.T) {
	env, repo, _ := testEnv(t)
	repo.FailWith = os.ErrPermission

	_, err := execute(t, env, task(protocol.TaskGeneratePage, map[string]any{"pageName": "pricing"}))
	require.ErrorIs(t, err, os.ErrPermission)
}

func TestLintFixCreatesPullRequest(t *testing.T) {
	env, _, prs := testEnv(t)
	dir := filepath.Join(env.Workspace, "site")
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jbish.json"), []byte(`{"name":"site","schema":2}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jbish.toml"), []byte("name = \"site\"\nschema = 1\n"), 0o644))

	em, err := execute(t, env, task(protocol.TaskLintFix, nil))
	require.NoError(t, err)
	require.Len(t, prs.Created, 1)
	require.Len(t, em.ofType(protocol.EventPRCreated), 1)
}

func TestLintFixReportsUnfixable(t *testing.T) {
	env, _, _ := testEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(env.Workspace, "site"), 0o755))

	_, err := execute(t, env, task(protocol.TaskLintFix, nil))
	require.ErrorContains(t, err, "unfixable")
}

func TestHealthAuditCompletesWithFindings(t *testing.T) {
	env, _, _ := testEnv(t)
	require.NoError(t, os.MkdirAll(filepath.Join(env.Workspace, "site"), 0o755))

	em, err := execute(t, env, task(protocol.TaskHealthAudit, nil))
	require.NoError(t, err, "an audit with findings still completes")

	var sawWarning bool
	for _, ev := range em.ofType(protocol.EventLog) {
		if ev.Data["level"] == "warn" {
			sawWarning = true
		}
	}
	require.True(t, sawWarning)
}

func TestInitTask(t *testing.T) {
	env, _, _ := testEnv(t)

	em, err := execute(t, env, task(protocol.TaskInit, map[string]any{"projectName": "acme-site"}))
	require.NoError(t, err)
	require.FileExists(t, filepath.Join(env.Workspace, "site", "jbish.json"))
	require.NotEmpty(t, em.ofType(protocol.EventProgress))
}

func seedCleanConfig(t *testing.T, dir string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jbish.json"), []byte(`{"name":"site","schema":1}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "jbish.toml"), []byte("name = \"site\"\nschema = 1\n"), 0o644))
}

var _ session.Emitter = (*recordingEmitter)(nil)
