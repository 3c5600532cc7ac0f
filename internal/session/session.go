// Package session implements the server-side half of the task protocol:
// one WebSocket connection, one task, one terminal event.
package session

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jmbish04/jbish-kit/internal/observability"
	"github.com/jmbish04/jbish-kit/internal/protocol"
)

// State tracks where the session is in its lifecycle.
type State int

const (
	StateAwaitingTask State = iota
	StateRunning
	StateComplete
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateAwaitingTask:
		return "awaiting-task"
	case StateRunning:
		return "running"
	case StateComplete:
		return "complete"
	case StateFailed:
		return "failed"
	}
	return "unknown"
}

// Terminal reports whether the session has emitted its terminal event.
func (s State) Terminal() bool {
	return s == StateComplete || s == StateFailed
}

// Socket is the subset of *websocket.Conn the session uses.
type Socket interface {
	ReadMessage() (messageType int, p []byte, err error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Emitter is the surface handlers emit events through. Handlers never touch
// the socket directly.
type Emitter interface {
	// Log emits a log event; no-op until a task is bound.
	Log(message, level string)
	// Progress emits a progress event. Percent is forwarded verbatim, even
	// out of [0,100].
	Progress(percent float64, message string)
	// Send is the low-level escape hatch for structured payloads such as
	// pr_created. Drops silently if the socket is gone.
	Send(msg *protocol.AgentMessage)
}

// Handler executes one task, emitting context through the session as it goes.
type Handler interface {
	Execute(ctx context.Context, task *protocol.TaskMessage) error
}

// Factory builds a fresh handler for a task type. Unknown types fail
// synchronously, before any event is emitted.
type Factory func(taskType protocol.TaskType, em Emitter) (Handler, error)

// Session owns one connection and drives at most one task over it.
type Session struct {
	conn    Socket
	factory Factory
	logger  *zap.Logger
	metrics *observability.Metrics

	mu     sync.Mutex
	state  State
	taskID string
	lastTS int64
	closed bool

	wmu sync.Mutex // serializes socket writes

	done chan struct{} // closed when the running task finishes
}

// New constructs a session around an accepted connection.
func New(conn Socket, factory Factory, logger *zap.Logger, metrics *observability.Metrics) *Session {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Session{
		conn:    conn,
		factory: factory,
		logger:  logger,
		metrics: metrics,
		state:   StateAwaitingTask,
		done:    make(chan struct{}),
	}
}

// State returns the current lifecycle state.
func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// TaskID returns the bound task id, empty until a task is accepted.
func (s *Session) TaskID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.taskID
}

// Run reads frames until the connection drops, accepting at most one task.
// It returns once the read loop ends; a task still in flight keeps running
// and is waited on so its terminal event is accounted for.
func (s *Session) Run(ctx context.Context) {
	s.metrics.IncActiveSessions()
	defer s.metrics.DecActiveSessions()

	started := false
	for {
		_, frame, err := s.conn.ReadMessage()
		if err != nil {
			s.logger.Debug("session read loop ended", zap.Error(err))
			s.markClosed()
			break
		}
		if s.handleFrame(ctx, frame) {
			started = true
		}
	}

	if started {
		<-s.done
	}
}

// handleFrame processes one inbound frame and reports whether it started a task.
func (s *Session) handleFrame(ctx context.Context, frame []byte) bool {
	s.mu.Lock()
	state := s.state
	s.mu.Unlock()

	switch {
	case state.Terminal():
		// Late frames after the terminal event are dropped, logged only.
		s.logger.Info("ignoring message received after terminal state",
			zap.String("state", state.String()))
		return false
	case state == StateRunning:
		// Exactly one task per session; extra frames are rejected locally.
		s.logger.Warn("ignoring second task message on busy session",
			zap.String("taskId", s.TaskID()))
		return false
	}

	task, err := protocol.DecodeTask(frame)
	if err != nil {
		s.metrics.RecordTransportError("invalid_task")
		s.logger.Warn("rejected malformed task message", zap.Error(err))
		// Best-effort diagnostic back to the peer; no task was ever bound,
		// so the error is addressed to "unknown".
		s.write(s.stamp(protocol.NewError("unknown", err.Error())))
		return false
	}

	s.mu.Lock()
	s.state = StateRunning
	s.taskID = task.TaskID
	s.mu.Unlock()

	s.logger.Info("task accepted",
		zap.String("taskId", task.TaskID),
		zap.String("type", string(task.Type)),
		zap.String("repo", task.Repo),
		zap.String("branch", task.Branch))

	go s.runTask(ctx, task)
	return true
}

// runTask drives the handler and guarantees exactly one terminal event.
func (s *Session) runTask(ctx context.Context, task *protocol.TaskMessage) {
	defer close(s.done)
	start := time.Now()

	err := s.execute(ctx, task)

	if err != nil {
		s.finish(StateFailed, protocol.NewError(task.TaskID, err.Error()))
		s.metrics.RecordTask(string(task.Type), "error", time.Since(start))
		s.logger.Warn("task failed", zap.String("taskId", task.TaskID), zap.Error(err))
		return
	}

	summary := fmt.Sprintf("Task %s completed successfully", task.Type)
	s.finish(StateComplete, protocol.NewComplete(task.TaskID, summary))
	s.metrics.RecordTask(string(task.Type), "complete", time.Since(start))
	s.logger.Info("task complete", zap.String("taskId", task.TaskID))
}

// execute runs dispatch plus the handler, converting panics into errors so a
// broken handler can never take the daemon down.
func (s *Session) execute(ctx context.Context, task *protocol.TaskMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task handler panicked: %v", r)
		}
	}()

	handler, err := s.factory(task.Type, s)
	if err != nil {
		return err
	}
	return handler.Execute(ctx, task)
}

// finish transitions to a terminal state and emits the terminal event once.
func (s *Session) finish(terminal State, msg *protocol.AgentMessage) {
	s.mu.Lock()
	if s.state.Terminal() {
		s.mu.Unlock()
		return
	}
	s.state = terminal
	s.mu.Unlock()

	s.write(s.stamp(msg))
}

// Log implements Emitter.
func (s *Session) Log(message, level string) {
	taskID := s.TaskID()
	if taskID == "" {
		return
	}
	s.Send(protocol.NewLog(taskID, message, level))
}

// Progress implements Emitter.
func (s *Session) Progress(percent float64, message string) {
	taskID := s.TaskID()
	if taskID == "" {
		return
	}
	s.Send(protocol.NewProgress(taskID, percent, message))
}

// Send implements Emitter. Events offered after the terminal state are
// dropped so the terminal event stays last.
func (s *Session) Send(msg *protocol.AgentMessage) {
	if msg == nil {
		return
	}
	s.mu.Lock()
	terminal := s.state.Terminal()
	s.mu.Unlock()
	if terminal {
		s.logger.Debug("dropping event emitted after terminal state", zap.String("event", msg.String()))
		return
	}
	s.write(s.stamp(msg))
}

// stamp assigns a wall-clock millisecond timestamp, clamped so the emitted
// stream is non-decreasing even if the clock steps backwards.
func (s *Session) stamp(msg *protocol.AgentMessage) *protocol.AgentMessage {
	s.mu.Lock()
	ts := time.Now().UnixMilli()
	if ts < s.lastTS {
		ts = s.lastTS
	}
	s.lastTS = ts
	s.mu.Unlock()

	msg.Timestamp = ts
	return msg
}

// write serializes and sends one event. At-most-once: a closed or failing
// socket drops the event without retry or buffering.
func (s *Session) write(msg *protocol.AgentMessage) {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		s.logger.Debug("dropping event for closed socket", zap.String("event", msg.String()))
		return
	}

	data, err := json.Marshal(msg)
	if err != nil {
		s.logger.Error("marshal agent message", zap.Error(err))
		return
	}

	s.wmu.Lock()
	err = s.conn.WriteMessage(websocket.TextMessage, data)
	s.wmu.Unlock()
	if err != nil {
		s.metrics.RecordTransportError("write")
		s.logger.Debug("dropping event after write failure", zap.Error(err))
		s.markClosed()
		return
	}
	s.metrics.RecordEvent(string(msg.Type))
}

func (s *Session) markClosed() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}
