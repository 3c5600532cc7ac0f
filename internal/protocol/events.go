package protocol

// Constructors for the five event kinds. Timestamps are stamped by the
// session at emission time, not here, so a single clock orders the stream.

// Validation is the frontend validation payload attached to pr_created
// events when validateFrontend is set.
type Validation struct {
	Passed bool     `json:"passed"`
	Issues []string `json:"issues,omitempty"`
}

// NewLog builds a log event. Level defaults to "info" on the consumer side
// when empty or unrecognized.
func NewLog(taskID, message, level string) *AgentMessage {
	return &AgentMessage{
		Type:   EventLog,
		TaskID: taskID,
		Data:   map[string]any{"message": message, "level": level},
	}
}

// NewProgress builds a progress event. Percent is passed through verbatim,
// even out of [0,100]; clamping is a consumer concern.
func NewProgress(taskID string, percent float64, message string) *AgentMessage {
	data := map[string]any{"progress": percent}
	if message != "" {
		data["message"] = message
	}
	return &AgentMessage{Type: EventProgress, TaskID: taskID, Data: data}
}

// NewError builds the error terminal event.
func NewError(taskID, message string) *AgentMessage {
	return &AgentMessage{
		Type:   EventError,
		TaskID: taskID,
		Data:   map[string]any{"message": message},
	}
}

// NewComplete builds the complete terminal event with a human-readable summary.
func NewComplete(taskID, summary string) *AgentMessage {
	return &AgentMessage{
		Type:   EventComplete,
		TaskID: taskID,
		Data:   map[string]any{"message": summary},
	}
}

// NewPRCreated builds a pr_created event. validation may be nil.
func NewPRCreated(taskID, url string, validation *Validation) *AgentMessage {
	data := map[string]any{"prUrl": url}
	if validation != nil {
		data["validation"] = map[string]any{
			"passed": validation.Passed,
			"issues": validation.Issues,
		}
	}
	return &AgentMessage{Type: EventPRCreated, TaskID: taskID, Data: data}
}
