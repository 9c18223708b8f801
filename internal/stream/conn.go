// Package stream owns the client side of the real-time scan protocol: one
// WebSocket connection to the backend's /ws/scan endpoint, decoded into typed
// events for a single consumer, delivered in arrival order.
package stream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/sentinelnexus/guard/internal/models"
)

// State of the connection as seen by the owner.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// ErrNotConnected is returned by Send when the channel is not established.
// Nothing is queued or retried; the caller surfaces the condition.
var ErrNotConnected = errors.New("stream: not connected")

const handshakeTimeout = 10 * time.Second

// Conn is one bidirectional channel to the scan backend. A Conn is owned by
// exactly one scope: that scope reads Events and must Close on every exit
// path. There is no automatic reconnect — Dial again to reconnect.
type Conn struct {
	ws        *websocket.Conn
	events    chan models.Event
	state     atomic.Int32
	done      chan struct{}
	closeOnce sync.Once
}

// Dial establishes the channel. ctx bounds both the handshake and the whole
// connection lifetime: cancelling it (e.g. an overall scan deadline) tears
// the socket down.
func Dial(ctx context.Context, url string) (*Conn, error) {
	c := &Conn{
		events: make(chan models.Event, 256),
		done:   make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))

	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	ws, _, err := dialer.DialContext(ctx, url, nil)
	if err != nil {
		c.state.Store(int32(StateDisconnected))
		return nil, fmt.Errorf("stream: dial %s: %w", url, err)
	}

	c.ws = ws
	c.state.Store(int32(StateConnected))

	go c.readPump()
	go func() {
		select {
		case <-ctx.Done():
			c.Close()
		case <-c.done:
		}
	}()

	return c, nil
}

// State reports the current connection state.
func (c *Conn) State() State {
	return State(c.state.Load())
}

// Events returns the inbound event stream. The channel is closed when the
// connection drops or Close is called; events always arrive in wire order.
func (c *Conn) Events() <-chan models.Event {
	return c.events
}

// StartScan sends the scan-start message for the given mode and input.
func (c *Conn) StartScan(mode models.ScanMode, content string) error {
	return c.send(models.StartMessage{Type: mode, Content: content})
}

// Subscribe switches the connection to the passive activity feed.
func (c *Conn) Subscribe() error {
	return c.send(models.NewMonitorMessage())
}

func (c *Conn) send(v any) error {
	if c.State() != StateConnected {
		return ErrNotConnected
	}
	if err := c.ws.WriteJSON(v); err != nil {
		return fmt.Errorf("stream: send: %w", err)
	}
	return nil
}

// Close releases the socket. Safe to call multiple times and from any exit
// path; after Close no further events are delivered.
func (c *Conn) Close() {
	c.closeOnce.Do(func() {
		close(c.done)
		c.state.Store(int32(StateDisconnected))
		if c.ws != nil {
			c.ws.Close()
		}
	})
}

// readPump decodes inbound frames until the socket dies. Frames that are not
// valid JSON or not a known event type are dropped and logged, never
// propagated — a bad frame must not kill the session.
func (c *Conn) readPump() {
	defer close(c.events)
	defer c.state.Store(int32(StateDisconnected))

	for {
		_, data, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		var env models.EventEnvelope
		if err := json.Unmarshal(data, &env); err != nil {
			log.Printf("stream: dropping malformed frame: %v", err)
			continue
		}

		ev, err := env.Decode()
		if err != nil {
			log.Printf("stream: dropping frame: %v", err)
			continue
		}

		select {
		case c.events <- ev:
		case <-c.done:
			return
		}
	}
}
