package ws

import (
	"chat-relay/contract"
	"chat-relay/domain"
	"chat-relay/domain/event"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 16 * 1024
)

var _ contract.EventSink = (*Conn)(nil)

// Conn wraps one websocket connection. It is the connection's event
// sink: fanout enqueues marshalled envelopes on the send channel and a
// single writer goroutine drains it, so frames to one client are never
// interleaved.
type Conn struct {
	id   domain.ConnectionID
	log  *slog.Logger
	ws   *websocket.Conn
	send chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newConn(id domain.ConnectionID, ws *websocket.Conn, bufferSize int, log *slog.Logger) *Conn {
	return &Conn{
		id:   id,
		log:  log,
		ws:   ws,
		send: make(chan []byte, bufferSize),
		done: make(chan struct{}),
	}
}

func (c *Conn) ID() domain.ConnectionID { return c.id }

// Consume is called by the fanout path. It only enqueues: the write
// pump owns the socket. A send that cannot be enqueued before the
// delivery context expires is dropped for this connection only.
func (c *Conn) Consume(ctx context.Context, e event.Event) error {
	raw, err := json.Marshal(e)
	if err != nil {
		return err
	}
	frame, err := json.Marshal(Envelope{Event: e.EventName(), Payload: raw})
	if err != nil {
		return err
	}
	select {
	case c.send <- frame:
		return nil
	case <-c.done:
		return fmt.Errorf("connection %s closed", c.id)
	case <-ctx.Done():
		return fmt.Errorf("connection %s backpressured: %w", c.id, ctx.Err())
	}
}

// write sends a transport-level frame (acks, error replies) to this
// connection through the same ordered channel as fanout events.
func (c *Conn) write(eventName string, payload any) {
	raw, err := json.Marshal(payload)
	if err != nil {
		c.log.Error("failed to marshal payload", "event", eventName, "error", err)
		return
	}
	frame, err := json.Marshal(Envelope{Event: eventName, Payload: raw})
	if err != nil {
		c.log.Error("failed to marshal envelope", "event", eventName, "error", err)
		return
	}
	select {
	case c.send <- frame:
	case <-c.done:
	case <-time.After(writeWait):
		c.log.Warn("dropping frame, send buffer full", "connection_id", c.id, "event", eventName)
	}
}

// writePump drains the send channel onto the socket and keeps the
// connection alive with periodic pings.
func (c *Conn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.ws.Close()
	}()

	for {
		select {
		case frame := <-c.send:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// readFrame blocks for the next inbound envelope. Returns false once
// the peer is gone.
func (c *Conn) readFrame() (Envelope, bool) {
	_, raw, err := c.ws.ReadMessage()
	if err != nil {
		if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
			c.log.Warn("unexpected close", "connection_id", c.id, "error", err)
		}
		return Envelope{}, false
	}
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		c.write(ackError, MessageAck{Status: statusError, Error: "malformed envelope"})
		return Envelope{}, true
	}
	return env, true
}

func (c *Conn) configure() {
	c.ws.SetReadLimit(maxMessageSize)
	_ = c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})
}

func (c *Conn) close() {
	c.closeOnce.Do(func() {
		close(c.done)
		_ = c.ws.Close()
	})
}
