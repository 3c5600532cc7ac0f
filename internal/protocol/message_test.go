package protocol

import (
	"encoding/json"
	"strings"
	"testing"
)

func validTask() *TaskMessage {
	return &TaskMessage{
		Type:   TaskGeneratePage,
		TaskID: "t1",
		Repo:   "owner/site",
		Branch: "main",
		Auth:   Auth{GitHub: "gh-token", Worker: "wk-token"},
		Args:   map[string]any{"pageName": "pricing"},
	}
}

func TestTaskMessageValidate(t *testing.T) {
	if err := validTask().Validate(); err != nil {
		t.Fatalf("valid task rejected: %v", err)
	}

	cases := []struct {
		name   string
		mutate func(*TaskMessage)
		want   string
	}{
		{"unknown type", func(m *TaskMessage) { m.Type = "task:nonsense" }, "unknown task type"},
		{"empty taskId", func(m *TaskMessage) { m.TaskID = "" }, "taskId"},
		{"empty repo", func(m *TaskMessage) { m.Repo = "" }, "repo"},
		{"empty branch", func(m *TaskMessage) { m.Branch = "" }, "branch"},
		{"missing github auth", func(m *TaskMessage) { m.Auth.GitHub = "" }, "auth.github"},
		{"missing worker auth", func(m *TaskMessage) { m.Auth.Worker = "" }, "auth.worker"},
		{"nil args", func(m *TaskMessage) { m.Args = nil }, "args"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			m := validTask()
			tc.mutate(m)
			err := m.Validate()
			if err == nil {
				t.Fatalf("expected error")
			}
			if !strings.Contains(err.Error(), tc.want) {
				t.Fatalf("error %q does not mention %q", err, tc.want)
			}
		})
	}
}

func TestDecodeTaskRejectsGarbage(t *testing.T) {
	if _, err := DecodeTask([]byte("not json")); err == nil {
		t.Fatal("expected decode error")
	}
	if _, err := DecodeTask([]byte(`{"type":"generate_page"}`)); err == nil {
		t.Fatal("expected validation error")
	}
}

func TestAgentMessageValidate(t *testing.T) {
	msg := NewLog("t1", "hello", "info")
	if err := msg.Validate(); err != nil {
		t.Fatalf("valid event rejected: %v", err)
	}

	msg.Type = "telemetry"
	if err := msg.Validate(); err == nil {
		t.Fatal("unknown event type accepted")
	}

	msg = NewProgress("", 50, "")
	if err := msg.Validate(); err == nil {
		t.Fatal("empty taskId accepted")
	}

	msg = &AgentMessage{Type: EventComplete, TaskID: "t1"}
	if err := msg.Validate(); err == nil {
		t.Fatal("nil data accepted")
	}
}

func TestTerminalKinds(t *testing.T) {
	if !EventComplete.Terminal() || !EventError.Terminal() {
		t.Fatal("complete/error must be terminal")
	}
	for _, et := range []EventType{EventLog, EventProgress, EventPRCreated} {
		if et.Terminal() {
			t.Fatalf("%s must not be terminal", et)
		}
	}
}

func TestWireFieldNames(t *testing.T) {
	raw, err := json.Marshal(validTask())
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"taskId"`, `"repo"`, `"branch"`, `"auth"`, `"args"`, `"settings"`, `"validateFrontend"`, `"autoMerge"`} {
		if !strings.Contains(string(raw), key) {
			t.Fatalf("serialized task missing %s: %s", key, raw)
		}
	}

	ev, err := json.Marshal(NewPRCreated("t1", "https://example.com/pull/1", &Validation{Passed: true}))
	if err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{`"taskId"`, `"timestamp"`, `"prUrl"`, `"validation"`} {
		if !strings.Contains(string(ev), key) {
			t.Fatalf("serialized event missing %s: %s", key, ev)
		}
	}
}

func TestStringOmitsPayload(t *testing.T) {
	msg := NewLog("t1", "secret-token-value", "info")
	if strings.Contains(msg.String(), "secret-token-value") {
		t.Fatal("String() must not include payload contents")
	}
}
