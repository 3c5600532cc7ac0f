// Package display renders the agent event stream for a terminal. It is
// stateless per message except for remembering the most recent pull request
// and validation payloads for the final summary.
package display

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/fatih/color"

	"github.com/jmbish04/jbish-kit/internal/protocol"
)

const barWidth = 24

var (
	successLine = color.New(color.FgGreen)
	failureLine = color.New(color.FgRed)
	warnLine    = color.New(color.FgYellow)
	dimLine     = color.New(color.Faint)
)

// Renderer consumes AgentMessages and writes human-readable output.
type Renderer struct {
	out   io.Writer
	debug bool

	mu         sync.Mutex
	prURL      string
	validation *protocol.Validation
}

// New builds a renderer. With debug set, debug-level logs and unrecognized
// event types are printed instead of dropped.
func New(out io.Writer, debug bool) *Renderer {
	return &Renderer{out: out, debug: debug}
}

// Handle dispatches one event to its renderer. Unknown types are not an
// error; they are logged only in debug mode.
func (r *Renderer) Handle(msg *protocol.AgentMessage) {
	switch msg.Type {
	case protocol.EventLog:
		r.renderLog(msg)
	case protocol.EventProgress:
		r.renderProgress(msg)
	case protocol.EventError:
		r.renderError(msg)
	case protocol.EventPRCreated:
		r.renderPRCreated(msg)
	case protocol.EventComplete:
		r.renderComplete(msg)
	default:
		if r.debug {
			dimLine.Fprintf(r.out, "[debug] unrecognized event type %q\n", msg.Type)
		}
	}
}

// PRURL returns the last pull request URL observed, if any.
func (r *Renderer) PRURL() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.prURL
}

// ValidationResult returns the last validation payload observed, if any.
func (r *Renderer) ValidationResult() *protocol.Validation {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.validation
}

func (r *Renderer) renderLog(msg *protocol.AgentMessage) {
	text, ok := msg.Data["message"].(string)
	if !ok || text == "" {
		return // a log event with no message renders nothing
	}

	level, _ := msg.Data["level"].(string)
	switch level {
	case "debug":
		if !r.debug {
			return
		}
		dimLine.Fprintf(r.out, "[debug] %s\n", text)
	case "warn":
		warnLine.Fprintf(r.out, "[warn] %s\n", text)
	case "error":
		failureLine.Fprintf(r.out, "[error] %s\n", text)
	default:
		// absent or unrecognized levels render as info
		fmt.Fprintf(r.out, "[info] %s\n", text)
	}
}

func (r *Renderer) renderProgress(msg *protocol.AgentMessage) {
	pct, ok := msg.Data["progress"].(float64)
	if !ok {
		return // no partial render without a percentage
	}

	filled := int(pct / 100 * barWidth)
	if filled < 0 {
		filled = 0
	}
	if filled > barWidth {
		filled = barWidth
	}
	bar := strings.Repeat("=", filled) + strings.Repeat(" ", barWidth-filled)

	text, _ := msg.Data["message"].(string)
	fmt.Fprintf(r.out, "[%s] %3.0f%% %s\n", bar, pct, text)
}

func (r *Renderer) renderError(msg *protocol.AgentMessage) {
	text, _ := msg.Data["message"].(string)
	if text == "" {
		text = "task failed"
	}
	failureLine.Fprintf(r.out, "✗ %s\n", text)
}

func (r *Renderer) renderPRCreated(msg *protocol.AgentMessage) {
	url, _ := msg.Data["prUrl"].(string)
	if url != "" {
		r.mu.Lock()
		r.prURL = url
		r.mu.Unlock()
		successLine.Fprintf(r.out, "✓ Pull request created: %s\n", url)
	}

	raw, ok := msg.Data["validation"].(map[string]any)
	if !ok {
		return
	}
	validation := parseValidation(raw)
	r.mu.Lock()
	r.validation = validation
	r.mu.Unlock()

	if validation.Passed {
		successLine.Fprintln(r.out, "  Frontend validation: passed")
		return
	}
	failureLine.Fprintln(r.out, "  Frontend validation: failed")
	for _, issue := range validation.Issues {
		fmt.Fprintf(r.out, "    - %s\n", issue)
	}
}

func (r *Renderer) renderComplete(msg *protocol.AgentMessage) {
	text, _ := msg.Data["message"].(string)
	if text == "" {
		text = "Task complete"
	}
	successLine.Fprintf(r.out, "✓ %s\n", text)

	if url := r.PRURL(); url != "" {
		fmt.Fprintln(r.out, "Next steps:")
		fmt.Fprintf(r.out, "  1. Review the pull request: %s\n", url)
		fmt.Fprintln(r.out, "  2. Wait for checks to pass")
		fmt.Fprintln(r.out, "  3. Merge when ready")
	}
}

func parseValidation(raw map[string]any) *protocol.Validation {
	v := &protocol.Validation{}
	v.Passed, _ = raw["passed"].(bool)
	// issues arrive as []any off the wire but as []string from in-process events
	switch issues := raw["issues"].(type) {
	case []any:
		for _, i := range issues {
			if s, ok := i.(string); ok {
				v.Issues = append(v.Issues, s)
			}
		}
	case []string:
		v.Issues = append(v.Issues, issues...)
	}
	return v
}
