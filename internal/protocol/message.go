// Package protocol defines the wire shapes exchanged between the jbish CLI
// and the executor daemon: one TaskMessage per connection in, a stream of
// AgentMessages back.
package protocol

import (
	"encoding/json"
	"fmt"
)

// TaskType enumerates the task kinds the executor understands.
type TaskType string

const (
	TaskInit          TaskType = "init"
	TaskGeneratePage  TaskType = "generate_page"
	TaskGenerateAgent TaskType = "generate_agent"
	TaskLintFix       TaskType = "lint_fix"
	TaskHealthAudit   TaskType = "health_audit"
	TaskCustom        TaskType = "custom"
)

// TaskTypes lists every member of the closed enumeration.
var TaskTypes = []TaskType{
	TaskInit, TaskGeneratePage, TaskGenerateAgent, TaskLintFix, TaskHealthAudit, TaskCustom,
}

// Known reports whether t is a member of the closed enumeration.
func (t TaskType) Known() bool {
	for _, v := range TaskTypes {
		if t == v {
			return true
		}
	}
	return false
}

// Auth carries the two opaque credential strings a task travels with.
// Neither value is ever logged or echoed back over the wire.
type Auth struct {
	GitHub string `json:"github"`
	Worker string `json:"worker"`
}

// Settings is the fixed record of executor/CLI behaviour toggles.
type Settings struct {
	Verbose          bool `json:"verbose"`
	Debug            bool `json:"debug"`
	ValidateFrontend bool `json:"validateFrontend"`
	AutoMerge        bool `json:"autoMerge"`
}

// TaskMessage is the single client-to-server message of a session.
type TaskMessage struct {
	Type     TaskType       `json:"type"`
	TaskID   string         `json:"taskId"`
	Repo     string         `json:"repo"`
	Branch   string         `json:"branch"`
	Auth     Auth           `json:"auth"`
	Args     map[string]any `json:"args"`
	Settings Settings       `json:"settings"`
}

// Validate checks the task message against the schema contract.
func (m *TaskMessage) Validate() error {
	if m == nil {
		return fmt.Errorf("task message is nil")
	}
	if !m.Type.Known() {
		return fmt.Errorf("unknown task type %q", m.Type)
	}
	if m.TaskID == "" {
		return fmt.Errorf("taskId must be a non-empty string")
	}
	if m.Repo == "" {
		return fmt.Errorf("repo must be a non-empty string")
	}
	if m.Branch == "" {
		return fmt.Errorf("branch must be a non-empty string")
	}
	if m.Auth.GitHub == "" {
		return fmt.Errorf("auth.github is required")
	}
	if m.Auth.Worker == "" {
		return fmt.Errorf("auth.worker is required")
	}
	if m.Args == nil {
		return fmt.Errorf("args must be an object")
	}
	return nil
}

// EventType enumerates the server-to-client event kinds.
type EventType string

const (
	EventLog       EventType = "log"
	EventProgress  EventType = "progress"
	EventError     EventType = "error"
	EventComplete  EventType = "complete"
	EventPRCreated EventType = "pr_created"
)

// Known reports whether t is one of the five event kinds.
func (t EventType) Known() bool {
	switch t {
	case EventLog, EventProgress, EventError, EventComplete, EventPRCreated:
		return true
	}
	return false
}

// Terminal reports whether the event ends a task's observable stream.
func (t EventType) Terminal() bool {
	return t == EventComplete || t == EventError
}

// AgentMessage is a single server-to-client event. Data is an open mapping;
// consumers treat individual fields as optional and degrade gracefully when
// one is absent.
type AgentMessage struct {
	Type      EventType      `json:"type"`
	TaskID    string         `json:"taskId"`
	Timestamp int64          `json:"timestamp"`
	Data      map[string]any `json:"data"`
}

// Validate checks the event against the schema contract. The internal shape
// of Data is deliberately not validated beyond presence.
func (m *AgentMessage) Validate() error {
	if m == nil {
		return fmt.Errorf("agent message is nil")
	}
	if !m.Type.Known() {
		return fmt.Errorf("unknown event type %q", m.Type)
	}
	if m.TaskID == "" {
		return fmt.Errorf("taskId must be a non-empty string")
	}
	if m.Data == nil {
		return fmt.Errorf("data must be an object")
	}
	return nil
}

// String returns a compact form for diagnostics. Data is summarised by key
// count so credentials or large payloads never reach the logs.
func (m *AgentMessage) String() string {
	return fmt.Sprintf("%s task=%s ts=%d fields=%d", m.Type, m.TaskID, m.Timestamp, len(m.Data))
}

// DecodeTask parses and validates a raw frame as a TaskMessage.
func DecodeTask(frame []byte) (*TaskMessage, error) {
	var m TaskMessage
	if err := json.Unmarshal(frame, &m); err != nil {
		return nil, fmt.Errorf("decode task message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid task message: %w", err)
	}
	return &m, nil
}

// DecodeEvent parses and validates a raw frame as an AgentMessage.
func DecodeEvent(frame []byte) (*AgentMessage, error) {
	var m AgentMessage
	if err := json.Unmarshal(frame, &m); err != nil {
		return nil, fmt.Errorf("decode agent message: %w", err)
	}
	if err := m.Validate(); err != nil {
		return nil, fmt.Errorf("invalid agent message: %w", err)
	}
	return &m, nil
}
