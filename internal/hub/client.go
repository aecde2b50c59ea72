package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/formforge/formpulse/internal/domain"
	"github.com/formforge/formpulse/internal/metrics"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const (
	writeDeadline = 10 * time.Second
	// pingInterval must stay shorter than readDeadline so a live but quiet
	// peer answers a ping before its deadline expires.
	pingInterval   = 54 * time.Second
	readDeadline   = 70 * time.Second
	maxFrameSize   = 512 * 1024
	sendBufferSize = 256
)

// Client is one connected peer: a gorilla connection plus its bounded
// outbound queue. The read and write loops are the only code touching the
// transport; the hub holds a reference for routing only.
type Client struct {
	hub   *Hub
	conn  *websocket.Conn
	clock clockwork.Clock

	send chan []byte

	mu     sync.Mutex
	closed bool

	stopOnce sync.Once
}

func newClient(hub *Hub, conn *websocket.Conn, clock clockwork.Clock) *Client {
	return &Client{
		hub:   hub,
		conn:  conn,
		clock: clock,
		send:  make(chan []byte, sendBufferSize),
	}
}

// enqueue attempts a non-blocking put onto the outbound queue. Returns false
// if the queue is full or the client is already stopping.
func (c *Client) enqueue(data []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

// stop closes the outbound queue, terminating the write loop, and releases
// the transport, terminating the read loop. Idempotent: both loops and the
// hub may race to call it.
func (c *Client) stop() {
	c.stopOnce.Do(func() {
		c.mu.Lock()
		c.closed = true
		close(c.send)
		c.mu.Unlock()
		if c.conn != nil {
			_ = c.conn.Close()
		}
	})
}

// writePump drains the outbound queue onto the wire and emits a keepalive
// ping when the queue stays idle. Exits when the queue is closed or a write
// fails.
func (c *Client) writePump() {
	ticker := c.clock.NewTicker(pingInterval)
	defer ticker.Stop()
	defer c.stop()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				slog.Debug("Write failed, closing connection", "error", err)
				return
			}
		case <-ticker.Chan():
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				metrics.HubPingFailures.Inc()
				return
			}
		}
	}
}

// readPump consumes inbound frames until the peer closes, the transport
// fails, or the read deadline elapses. Each decoded frame is a client
// command; malformed frames are logged and skipped.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		c.stop()
	}()

	c.conn.SetReadLimit(maxFrameSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	})

	for {
		mt, payload, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				slog.Warn("Unexpected close", "error", err)
			} else {
				slog.Debug("Read loop ended", "error", err)
			}
			return
		}

		_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))

		// Control frames are handled by the library; binary frames are
		// not part of the protocol.
		if mt != websocket.TextMessage {
			continue
		}

		var msg domain.Event
		if err := json.Unmarshal(payload, &msg); err != nil {
			metrics.HubMalformedFrames.Inc()
			slog.Warn("Discarding malformed frame", "length", len(payload), "error", err, "payload", truncateForLog(payload, 180))
			continue
		}

		switch msg.Type {
		case domain.CommandSubscribeForm:
			formID, ok := msg.Data.(string)
			if !ok {
				slog.Warn("Ignoring subscribe_form with non-string data", "data_type", fmt.Sprintf("%T", msg.Data))
				continue
			}
			c.hub.Subscribe(c, formID)
		case domain.CommandPing:
			pong, err := json.Marshal(domain.Event{Type: domain.EventPong, Data: "pong"})
			if err != nil {
				continue
			}
			if !c.enqueue(pong) {
				slog.Debug("Dropping pong, send buffer full")
			}
		default:
			// Unknown types are ignored for forward compatibility.
		}
	}
}

func truncateForLog(b []byte, max int) string {
	if len(b) <= max {
		return string(b)
	}
	return fmt.Sprintf("%s...(%d bytes)", b[:max], len(b))
}
