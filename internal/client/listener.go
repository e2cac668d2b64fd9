package client

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tobyward/sitegen/internal/events"
)

const (
	maxReconnectAttempts = 5
	baseReconnectDelay   = time.Second
	maxReconnectDelay    = 10 * time.Second
)

type registerMessage struct {
	Type      string `json:"type"`
	SessionID string `json:"sessionId"`
}

// Listener maintains a websocket subscription to the progress events
// of one session, reconnecting with exponential backoff when the
// connection drops. The reconnect budget is per outage: a successful
// registration resets the attempt counter, so only consecutive
// failures exhaust it.
type Listener struct {
	url       string
	sessionID string
	dialer    *websocket.Dialer
	logger    *slog.Logger
	eventCh   chan events.Event
	baseDelay time.Duration
	maxDelay  time.Duration
}

// NewListener creates a Listener for the given websocket URL (the
// /ws endpoint) and session id. Events arrive on Events() once Run
// is started.
func NewListener(url, sessionID string, logger *slog.Logger) *Listener {
	return &Listener{
		url:       url,
		sessionID: sessionID,
		dialer:    websocket.DefaultDialer,
		logger:    logger,
		eventCh:   make(chan events.Event, 64),
		baseDelay: baseReconnectDelay,
		maxDelay:  maxReconnectDelay,
	}
}

// Events returns the channel progress events are delivered on. It is
// closed when Run returns.
func (l *Listener) Events() <-chan events.Event {
	return l.eventCh
}

// Run connects, registers the session, and forwards events until ctx
// is cancelled or the reconnect budget is exhausted. Blocking.
func (l *Listener) Run(ctx context.Context) error {
	defer close(l.eventCh)

	attempts := 0
	for {
		registered, err := l.listen(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if registered {
			attempts = 0
		}

		attempts++
		if attempts > maxReconnectAttempts {
			return fmt.Errorf("websocket reconnect attempts exhausted: %w", err)
		}

		delay := l.reconnectDelay(attempts)
		l.logger.Warn("websocket disconnected, reconnecting",
			"attempt", attempts, "delay", delay, "error", err)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(delay):
		}
	}
}

// reconnectDelay returns the backoff before reconnect attempt n
// (1-based): doubling from one second, capped at ten.
func (l *Listener) reconnectDelay(attempt int) time.Duration {
	delay := l.baseDelay << (attempt - 1)
	if delay > l.maxDelay {
		delay = l.maxDelay
	}
	return delay
}

// listen runs one connection: dial, register, forward until failure.
// registered reports whether the session registration was sent, which
// marks the connection good for backoff accounting.
func (l *Listener) listen(ctx context.Context) (registered bool, err error) {
	conn, _, err := l.dialer.DialContext(ctx, l.url, nil)
	if err != nil {
		return false, fmt.Errorf("dial %s: %w", l.url, err)
	}
	defer conn.Close()

	// Close the socket when ctx ends so the read loop unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if err := conn.WriteJSON(registerMessage{Type: "register", SessionID: l.sessionID}); err != nil {
		return false, fmt.Errorf("register session: %w", err)
	}

	l.logger.Debug("websocket connected", "session_id", l.sessionID)

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return true, fmt.Errorf("read: %w", err)
		}

		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(data, &probe); err != nil {
			l.logger.Debug("discarding malformed event", "error", err)
			continue
		}
		if probe.Type == "registered" {
			continue
		}

		var event events.Event
		if err := json.Unmarshal(data, &event); err != nil {
			l.logger.Debug("discarding malformed event", "error", err)
			continue
		}

		select {
		case l.eventCh <- event:
		case <-ctx.Done():
			return true, ctx.Err()
		}
	}
}
