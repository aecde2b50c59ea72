// Package wsclient implements a reconnecting subscriber for the live event
// socket. Reconnection is an explicit bounded state machine: Disconnected,
// Connecting, Open. The attempt counter caps automatic retries and resets
// to zero whenever a connection reaches Open.
package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/formforge/formpulse/internal/domain"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

// State is the connection lifecycle state.
type State int

const (
	Disconnected State = iota
	Connecting
	Open
)

func (s State) String() string {
	switch s {
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	default:
		return "disconnected"
	}
}

const (
	defaultMaxAttempts = 5
	defaultBaseBackoff = time.Second
	maxBackoff         = 30 * time.Second
	handshakeTimeout   = 10 * time.Second
)

// ErrRetriesExhausted is returned by Run when the reconnect attempt cap is
// reached without a successful connection.
var ErrRetriesExhausted = errors.New("reconnect attempts exhausted")

// Dialer abstracts the websocket dial for testing.
type Dialer interface {
	DialContext(ctx context.Context, urlStr string) (Conn, error)
}

// Conn is the subset of a websocket connection the client reads from.
type Conn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

type gorillaDialer struct{}

func (gorillaDialer) DialContext(ctx context.Context, urlStr string) (Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: handshakeTimeout}
	conn, _, err := dialer.DialContext(ctx, urlStr, nil)
	return conn, err
}

// Client follows a server's event stream and hands each decoded event to a
// callback. It reconnects with exponential backoff up to MaxAttempts
// consecutive failures.
type Client struct {
	url         string
	formID      string
	onEvent     func(domain.Event)
	dialer      Dialer
	clock       clockwork.Clock
	maxAttempts int
	baseBackoff time.Duration

	mu    sync.Mutex
	state State
}

// Option configures a Client.
type Option func(*Client)

// WithDialer replaces the websocket dialer.
func WithDialer(d Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithClock replaces the backoff clock.
func WithClock(clock clockwork.Clock) Option {
	return func(c *Client) { c.clock = clock }
}

// WithMaxAttempts caps consecutive failed connection attempts.
func WithMaxAttempts(n int) Option {
	return func(c *Client) { c.maxAttempts = n }
}

// WithBaseBackoff sets the delay before the first retry. Subsequent retries
// double it, capped at 30s.
func WithBaseBackoff(d time.Duration) Option {
	return func(c *Client) { c.baseBackoff = d }
}

// NewClient creates a client for the given socket URL. If formID is
// non-empty the client subscribes to that form's topic after connecting.
func NewClient(url, formID string, onEvent func(domain.Event), opts ...Option) *Client {
	c := &Client{
		url:         url,
		formID:      formID,
		onEvent:     onEvent,
		dialer:      gorillaDialer{},
		clock:       clockwork.NewRealClock(),
		maxAttempts: defaultMaxAttempts,
		baseBackoff: defaultBaseBackoff,
		state:       Disconnected,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// State returns the current lifecycle state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

func (c *Client) setState(s State) {
	c.mu.Lock()
	c.state = s
	c.mu.Unlock()
}

// Run connects and reads events until ctx is cancelled or the retry cap is
// reached. A successful connection resets the attempt counter, so only
// consecutive failures count against the cap.
func (c *Client) Run(ctx context.Context) error {
	defer c.setState(Disconnected)

	attempts := 0
	for {
		c.setState(Connecting)
		conn, err := c.dialer.DialContext(ctx, c.url)
		if err != nil {
			attempts++
			slog.Warn("Connection attempt failed", "attempt", attempts, "max", c.maxAttempts, "error", err)
			if attempts >= c.maxAttempts {
				return fmt.Errorf("%w after %d attempts: %v", ErrRetriesExhausted, attempts, err)
			}
			if err := c.waitBackoff(ctx, attempts); err != nil {
				return err
			}
			continue
		}

		c.setState(Open)
		attempts = 0

		err = c.readLoop(ctx, conn)
		c.setState(Disconnected)
		if ctx.Err() != nil {
			return ctx.Err()
		}
		slog.Info("Connection lost, reconnecting", "error", err)
	}
}

// readLoop subscribes and consumes events until the connection fails.
func (c *Client) readLoop(ctx context.Context, conn Conn) error {
	defer conn.Close()

	// Close the transport when ctx ends so ReadMessage unblocks.
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	if c.formID != "" {
		cmd := domain.Event{Type: domain.CommandSubscribeForm, Data: c.formID}
		payload, err := json.Marshal(cmd)
		if err != nil {
			return err
		}
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return fmt.Errorf("failed to subscribe: %w", err)
		}
	}

	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		var event domain.Event
		if err := json.Unmarshal(payload, &event); err != nil {
			slog.Warn("Skipping malformed event", "error", err)
			continue
		}

		if c.onEvent != nil {
			c.onEvent(event)
		}
	}
}

func (c *Client) waitBackoff(ctx context.Context, attempt int) error {
	delay := c.baseBackoff << (attempt - 1)
	if delay > maxBackoff || delay <= 0 {
		delay = maxBackoff
	}

	timer := c.clock.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.Chan():
		return nil
	}
}
