package wsclient

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/formforge/formpulse/internal/domain"
	ws "github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptConn replays a fixed sequence of inbound frames, then fails the
// next read.
type scriptConn struct {
	mu      sync.Mutex
	frames  [][]byte
	written [][]byte
	closed  bool
}

func (c *scriptConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || len(c.frames) == 0 {
		return 0, nil, io.EOF
	}
	frame := c.frames[0]
	c.frames = c.frames[1:]
	return ws.TextMessage, frame, nil
}

func (c *scriptConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return io.EOF
	}
	c.written = append(c.written, data)
	return nil
}

func (c *scriptConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *scriptConn) writtenFrames() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.written...)
}

// scriptDialer returns one result per dial attempt, failing once the script
// is exhausted.
type scriptDialer struct {
	mu    sync.Mutex
	conns []Conn
	errs  []error
	calls int
}

func (d *scriptDialer) DialContext(context.Context, string) (Conn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	i := d.calls
	d.calls++
	if i < len(d.errs) && d.errs[i] != nil {
		return nil, d.errs[i]
	}
	if i < len(d.conns) && d.conns[i] != nil {
		return d.conns[i], nil
	}
	return nil, errors.New("no more scripted connections")
}

func (d *scriptDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

func eventFrame(t *testing.T, event domain.Event) []byte {
	t.Helper()
	payload, err := json.Marshal(event)
	require.NoError(t, err)
	return payload
}

func TestClient_ReceivesEvents(t *testing.T) {
	conn := &scriptConn{frames: [][]byte{
		eventFrame(t, domain.Event{Type: domain.EventGreeting, Data: "hi"}),
		eventFrame(t, domain.Event{Type: domain.EventResponseSubmitted, FormID: "f1"}),
	}}
	dialer := &scriptDialer{conns: []Conn{conn}, errs: []error{nil}}

	var mu sync.Mutex
	var received []domain.Event
	onEvent := func(e domain.Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}

	client := NewClient("ws://test/ws", "", onEvent,
		WithDialer(dialer), WithMaxAttempts(1), WithBaseBackoff(time.Millisecond))

	err := client.Run(context.Background())
	require.ErrorIs(t, err, ErrRetriesExhausted)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, domain.EventGreeting, received[0].Type)
	assert.Equal(t, "f1", received[1].FormID)
}

func TestClient_SubscribesAfterConnect(t *testing.T) {
	conn := &scriptConn{}
	dialer := &scriptDialer{conns: []Conn{conn}}

	client := NewClient("ws://test/ws", "form-123", nil,
		WithDialer(dialer), WithMaxAttempts(1), WithBaseBackoff(time.Millisecond))
	_ = client.Run(context.Background())

	frames := conn.writtenFrames()
	require.Len(t, frames, 1)

	var cmd domain.Event
	require.NoError(t, json.Unmarshal(frames[0], &cmd))
	assert.Equal(t, domain.CommandSubscribeForm, cmd.Type)
	assert.Equal(t, "form-123", cmd.Data)
}

func TestClient_RetriesExhausted(t *testing.T) {
	dialErr := errors.New("connection refused")
	dialer := &scriptDialer{errs: []error{dialErr, dialErr, dialErr}}

	client := NewClient("ws://test/ws", "", nil,
		WithDialer(dialer), WithMaxAttempts(3), WithBaseBackoff(time.Millisecond))

	err := client.Run(context.Background())
	require.ErrorIs(t, err, ErrRetriesExhausted)
	assert.Equal(t, 3, dialer.dialCount())
	assert.Equal(t, Disconnected, client.State())
}

func TestClient_AttemptCounterResetsOnSuccess(t *testing.T) {
	dialErr := errors.New("connection refused")
	// Fail twice, connect, then fail twice more: with a cap of 3 the run
	// only ends after the second post-success failure streak grows.
	dialer := &scriptDialer{
		conns: []Conn{nil, nil, &scriptConn{}, nil, nil, nil},
		errs:  []error{dialErr, dialErr, nil, dialErr, dialErr, dialErr},
	}

	client := NewClient("ws://test/ws", "", nil,
		WithDialer(dialer), WithMaxAttempts(3), WithBaseBackoff(time.Millisecond))

	err := client.Run(context.Background())
	require.ErrorIs(t, err, ErrRetriesExhausted)

	// 2 failures + 1 success + 3 fresh failures.
	assert.Equal(t, 6, dialer.dialCount())
}

func TestClient_ContextCancelStopsRun(t *testing.T) {
	dialErr := errors.New("connection refused")
	dialer := &scriptDialer{errs: []error{dialErr, dialErr, dialErr, dialErr}}

	ctx, cancel := context.WithCancel(context.Background())

	client := NewClient("ws://test/ws", "", nil,
		WithDialer(dialer), WithMaxAttempts(100), WithBaseBackoff(50*time.Millisecond))

	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()

	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	assert.Equal(t, Disconnected, client.State())
}

func TestClient_MalformedEventSkipped(t *testing.T) {
	conn := &scriptConn{frames: [][]byte{
		[]byte("{broken json"),
		eventFrame(t, domain.Event{Type: domain.EventFormCreated}),
	}}
	dialer := &scriptDialer{conns: []Conn{conn}}

	var mu sync.Mutex
	var received []domain.Event
	client := NewClient("ws://test/ws", "", func(e domain.Event) {
		mu.Lock()
		received = append(received, e)
		mu.Unlock()
	}, WithDialer(dialer), WithMaxAttempts(1), WithBaseBackoff(time.Millisecond))

	_ = client.Run(context.Background())

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, domain.EventFormCreated, received[0].Type)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", Disconnected.String())
	assert.Equal(t, "connecting", Connecting.String())
	assert.Equal(t, "open", Open.String())
}
