// Package client implements the caller side of the task protocol: connect,
// send exactly one task, observe the event stream, await the terminal event.
package client

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/jmbish04/jbish-kit/internal/protocol"
)

// ErrNotConnected is returned when SendTask is called before Connect.
var ErrNotConnected = errors.New("client is not connected")

// ErrConnectionClosed rejects outstanding waits when the transport drops
// before a terminal event arrives.
var ErrConnectionClosed = errors.New("connection closed before task finished")

// Client drives one task over one WebSocket connection.
type Client struct {
	serverURL string
	onEvent   func(*protocol.AgentMessage)
	logger    *zap.Logger
	dialer    *websocket.Dialer

	mu      sync.Mutex
	conn    *websocket.Conn
	waiters map[string]chan error
	closed  bool
}

// Option adjusts client construction.
type Option func(*Client)

// WithDialer overrides the websocket dialer; tests use this to reach an
// httptest server.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// New builds a client for the given endpoint. onEvent is invoked for every
// valid inbound event, in arrival order, before completion futures settle;
// nil is allowed.
func New(serverURL string, onEvent func(*protocol.AgentMessage), logger *zap.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	c := &Client{
		serverURL: serverURL,
		onEvent:   onEvent,
		logger:    logger,
		dialer:    websocket.DefaultDialer,
		waiters:   make(map[string]chan error),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Connect establishes the transport and starts the receive loop. Call it
// once per client instance.
func (c *Client) Connect(ctx context.Context) error {
	endpoint, err := normalizeURL(c.serverURL)
	if err != nil {
		return err
	}

	conn, _, err := c.dialer.DialContext(ctx, endpoint, nil)
	if err != nil {
		return fmt.Errorf("connect %s: %w", endpoint, err)
	}

	c.mu.Lock()
	c.conn = conn
	c.mu.Unlock()

	c.logger.Debug("connected", zap.String("endpoint", endpoint))
	go c.readLoop()
	return nil
}

// SendTask validates, serializes and transmits the task message, returning
// its id for correlation. The transport must be open.
func (c *Client) SendTask(task *protocol.TaskMessage) (string, error) {
	if err := task.Validate(); err != nil {
		return "", err
	}

	c.mu.Lock()
	conn := c.conn
	closed := c.closed
	c.mu.Unlock()
	if conn == nil || closed {
		return "", ErrNotConnected
	}

	data, err := json.Marshal(task)
	if err != nil {
		return "", fmt.Errorf("marshal task: %w", err)
	}
	if err := conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return "", fmt.Errorf("send task: %w", err)
	}

	c.logger.Info("task sent",
		zap.String("taskId", task.TaskID),
		zap.String("type", string(task.Type)))
	return task.TaskID, nil
}

// WaitForCompletion blocks until the task's terminal event arrives: nil for
// complete, the carried message as an error for error. Futures are keyed by
// task id, so waits on distinct tasks never race each other.
func (c *Client) WaitForCompletion(ctx context.Context, taskID string) error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return ErrConnectionClosed
	}
	ch, ok := c.waiters[taskID]
	if !ok {
		ch = make(chan error, 1)
		c.waiters[taskID] = ch
	}
	c.mu.Unlock()

	select {
	case err := <-ch:
		c.mu.Lock()
		delete(c.waiters, taskID)
		c.mu.Unlock()
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Close tears down the transport. Safe to call repeatedly.
func (c *Client) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	conn := c.conn
	c.mu.Unlock()

	if conn != nil {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""), closeDeadline())
		return conn.Close()
	}
	return nil
}

func (c *Client) readLoop() {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	for {
		_, frame, err := conn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			alreadyClosed := c.closed
			c.closed = true
			waiters := c.waiters
			c.waiters = make(map[string]chan error)
			c.mu.Unlock()

			if !alreadyClosed {
				c.logger.Debug("connection lost", zap.Error(err))
			}
			for _, ch := range waiters {
				ch <- ErrConnectionClosed
			}
			return
		}

		msg, err := protocol.DecodeEvent(frame)
		if err != nil {
			// A malformed frame must not wedge or crash the waiting
			// caller; drop it with a diagnostic.
			c.logger.Warn("dropping malformed frame", zap.Error(err))
			continue
		}

		if c.onEvent != nil {
			c.onEvent(msg)
		}

		if msg.Type.Terminal() {
			c.settle(msg)
		}
	}
}

// settle resolves or rejects the completion future for the event's task,
// removing it atomically so a stray late terminal cannot re-trigger it.
func (c *Client) settle(msg *protocol.AgentMessage) {
	var result error
	if msg.Type == protocol.EventError {
		text, _ := msg.Data["message"].(string)
		if text == "" {
			text = "task failed"
		}
		result = errors.New(text)
	}

	c.mu.Lock()
	ch, ok := c.waiters[msg.TaskID]
	if !ok {
		// buffered so a waiter arriving after the event still settles
		ch = make(chan error, 1)
		c.waiters[msg.TaskID] = ch
	} else {
		delete(c.waiters, msg.TaskID)
	}
	c.mu.Unlock()

	ch <- result
}

func closeDeadline() time.Time {
	return time.Now().Add(time.Second)
}

// normalizeURL accepts ws:// or wss:// endpoints plus bare host:port forms.
func normalizeURL(raw string) (string, error) {
	if strings.HasPrefix(raw, "ws://") || strings.HasPrefix(raw, "wss://") {
		return raw, nil
	}
	if strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://") {
		u, err := url.Parse(raw)
		if err != nil {
			return "", fmt.Errorf("invalid server url %q: %w", raw, err)
		}
		if u.Scheme == "https" {
			u.Scheme = "wss"
		} else {
			u.Scheme = "ws"
		}
		if u.Path == "" || u.Path == "/" {
			u.Path = "/ws"
		}
		return u.String(), nil
	}
	if strings.HasPrefix(raw, ":") {
		return "ws://localhost" + raw + "/ws", nil
	}
	if raw == "" {
		return "", fmt.Errorf("server url is empty")
	}
	return "ws://" + raw + "/ws", nil
}
