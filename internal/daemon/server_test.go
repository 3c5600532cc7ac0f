package daemon

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/jmbish04/jbish-kit/internal/client"
	"github.com/jmbish04/jbish-kit/internal/config"
	"github.com/jmbish04/jbish-kit/internal/protocol"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		Server:  config.ServerConfig{Addr: ":0", MetricsEnabled: true},
		Client:  config.ClientConfig{ServerURL: "ws://localhost:8080/ws"},
		GitHub:  config.GitHubConfig{BaseBranch: "main"},
		Logging: config.LoggingConfig{Level: "info", Format: "console"},
		Executor: config.ExecutorConfig{
			Workspace:      t.TempDir(),
			Mock:           true,
			StepDelay:      time.Millisecond,
			PreviewTTL:     time.Minute,
			PreviewPortMin: 4000,
			PreviewPortMax: 4010,
		},
	}
}

func startServer(t *testing.T) (*Server, *httptest.Server) {
	t.Helper()
	srv, err := NewServer(testConfig(t), zap.NewNop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)
	return srv, ts
}

// eventSink collects the client's observed event stream.
type eventSink struct {
	mu     sync.Mutex
	events []*protocol.AgentMessage
}

func (s *eventSink) add(msg *protocol.AgentMessage) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, msg)
}

func (s *eventSink) snapshot() []*protocol.AgentMessage {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*protocol.AgentMessage(nil), s.events...)
}

func runTask(t *testing.T, ts *httptest.Server, task *protocol.TaskMessage) ([]*protocol.AgentMessage, error) {
	t.Helper()
	sink := &eventSink{}
	c := client.New(ts.URL, sink.add, zap.NewNop())

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	require.NoError(t, c.Connect(ctx))
	defer c.Close()

	id, err := c.SendTask(task)
	require.NoError(t, err)

	waitErr := c.WaitForCompletion(ctx, id)
	return sink.snapshot(), waitErr
}

func customTask(id string, args map[string]any) *protocol.TaskMessage {
	if args == nil {
		args = map[string]any{}
	}
	return &protocol.TaskMessage{
		Type:   protocol.TaskCustom,
		TaskID: id,
		Repo:   "acme/site",
		Branch: "jbish/work",
		Auth:   protocol.Auth{GitHub: "gh", Worker: "wk"},
		Args:   args,
	}
}

func TestTaskRoundTrip(t *testing.T) {
	_, ts := startServer(t)

	events, err := runTask(t, ts, customTask("task-1", map[string]any{
		"message": "hello from the mock",
	}))
	require.NoError(t, err)

	// progress steps then a single terminal complete, all correlated
	var progress, terminal int
	for _, ev := range events {
		require.Equal(t, "task-1", ev.TaskID)
		if ev.Type == protocol.EventProgress {
			progress++
		}
		if ev.Type.Terminal() {
			terminal++
		}
	}
	require.Equal(t, 3, progress)
	require.Equal(t, 1, terminal)
	require.Equal(t, protocol.EventComplete, events[len(events)-1].Type)

	// timestamps never step backwards across the stream
	for i := 1; i < len(events); i++ {
		require.GreaterOrEqual(t, events[i].Timestamp, events[i-1].Timestamp)
	}
}

func TestTaskFailureRoundTrip(t *testing.T) {
	_, ts := startServer(t)

	events, err := runTask(t, ts, customTask("task-2", map[string]any{
		"fail": "Test error",
	}))
	require.EqualError(t, err, "Test error")
	require.Equal(t, protocol.EventError, events[len(events)-1].Type)
}

func TestSequentialTasksOverFreshConnections(t *testing.T) {
	_, ts := startServer(t)

	for _, id := range []string{"task-a", "task-b"} {
		_, err := runTask(t, ts, customTask(id, nil))
		require.NoError(t, err, "task %s", id)
	}
}

func TestHealthEndpoint(t *testing.T) {
	_, ts := startServer(t)

	resp, err := http.Get(ts.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestMetricsEndpoint(t *testing.T) {
	_, ts := startServer(t)

	_, err := runTask(t, ts, customTask("task-m", nil))
	require.NoError(t, err)

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()

	require.Equal(t, http.StatusOK, resp.StatusCode)
	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), "jbish_tasks_total")
}

func TestMetricsDisabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Server.MetricsEnabled = false
	srv, err := NewServer(cfg, zap.NewNop())
	require.NoError(t, err)
	ts := httptest.NewServer(srv.Handler())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestPreviewLookup(t *testing.T) {
	srv, ts := startServer(t)

	id, port := srv.preview.Allocate()

	resp, err := http.Get(ts.URL + "/preview/" + id)
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	require.Contains(t, string(body), id)
	require.Contains(t, string(body), strconv.Itoa(port))

	missing, err := http.Get(ts.URL + "/preview/nope")
	require.NoError(t, err)
	defer missing.Body.Close()
	require.Equal(t, http.StatusNotFound, missing.StatusCode)
}

func TestWSRejectsPlainGET(t *testing.T) {
	_, ts := startServer(t)

	resp, err := http.Get(ts.URL + "/ws")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	require.True(t, strings.Contains(strings.ToLower(string(body)), "websocket") || len(body) > 0)
}
