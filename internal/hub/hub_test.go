package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/formforge/formpulse/internal/domain"
	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// testHub sets up a hub behind a test HTTP server running the full
// connection lifecycle (greeting, read pump, write pump).
func testHub(t *testing.T, maxPerForm int) (*Hub, func() *ws.Conn) {
	t.Helper()

	h := NewHub(clockwork.NewRealClock(), maxPerForm)
	t.Cleanup(func() { h.Stop() })

	handler := NewHandler(h, clockwork.NewRealClock(), func(r *http.Request) bool { return true })
	server := httptest.NewServer(handler)
	t.Cleanup(func() { server.Close() })

	dial := func() *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(server.URL, "http")
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	return h, dial
}

func waitForClientCount(h *Hub, expected int) bool {
	for range 200 {
		if h.ClientCount() == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

func waitForSubscriberCount(h *Hub, formID string, expected int) bool {
	for range 200 {
		if h.SubscriberCount(formID) == expected {
			return true
		}
		time.Sleep(time.Millisecond)
	}
	return false
}

// readEvent reads frames until one of the wanted type arrives, skipping the
// greeting and anything else.
func readEvent(t *testing.T, conn *ws.Conn, wantType string) domain.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for {
		require.NoError(t, conn.SetReadDeadline(deadline))
		_, payload, err := conn.ReadMessage()
		require.NoError(t, err)

		var event domain.Event
		require.NoError(t, json.Unmarshal(payload, &event))
		if event.Type == wantType {
			return event
		}
	}
}

func subscribe(t *testing.T, h *Hub, conn *ws.Conn, formID string, expectedSubs int) {
	t.Helper()
	cmd := domain.Event{Type: domain.CommandSubscribeForm, Data: formID}
	payload, err := json.Marshal(cmd)
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, payload))
	require.True(t, waitForSubscriberCount(h, formID, expectedSubs))
}

func TestHub_GreetingOnConnect(t *testing.T) {
	_, dial := testHub(t, 0)
	conn := dial()

	event := readEvent(t, conn, domain.EventGreeting)
	data, ok := event.Data.(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "connected", data["message"])
}

func TestHub_TopicIsolation(t *testing.T) {
	h, dial := testHub(t, 0)

	formA := "11111111-1111-1111-1111-111111111111"
	formB := "22222222-2222-2222-2222-222222222222"

	connA1 := dial()
	connA2 := dial()
	connB := dial()
	require.True(t, waitForClientCount(h, 3))

	subscribe(t, h, connA1, formA, 1)
	subscribe(t, h, connA2, formA, 2)
	subscribe(t, h, connB, formB, 1)

	h.Broadcast(domain.Event{Type: domain.EventResponseSubmitted, FormID: formA, Data: "payload"})

	for _, conn := range []*ws.Conn{connA1, connA2} {
		event := readEvent(t, conn, domain.EventResponseSubmitted)
		assert.Equal(t, formA, event.FormID)
	}

	// The B subscriber must not receive the A event.
	require.NoError(t, connB.SetReadDeadline(time.Now().Add(200*time.Millisecond)))
	for {
		_, payload, err := connB.ReadMessage()
		if err != nil {
			break
		}
		var event domain.Event
		require.NoError(t, json.Unmarshal(payload, &event))
		assert.NotEqual(t, domain.EventResponseSubmitted, event.Type)
	}
}

func TestHub_BroadcastWithoutTopicReachesEveryone(t *testing.T) {
	h, dial := testHub(t, 0)

	subscribed := dial()
	unsubscribed := dial()
	require.True(t, waitForClientCount(h, 2))

	subscribe(t, h, subscribed, "33333333-3333-3333-3333-333333333333", 1)

	h.Broadcast(domain.Event{Type: domain.EventFormCreated, Data: map[string]any{"title": "Feedback"}})

	for _, conn := range []*ws.Conn{subscribed, unsubscribed} {
		event := readEvent(t, conn, domain.EventFormCreated)
		assert.Empty(t, event.FormID)
	}
}

func TestHub_SlowConsumerEvicted(t *testing.T) {
	h, dial := testHub(t, 0)
	formID := "44444444-4444-4444-4444-444444444444"

	// The healthy client drains its messages; the slow one is constructed
	// without a write pump so its buffer can only fill up.
	healthy := dial()
	require.True(t, waitForClientCount(h, 1))
	subscribe(t, h, healthy, formID, 1)

	slow := newClient(h, nil, clockwork.NewRealClock())
	h.Register(slow)
	h.Subscribe(slow, formID)
	require.True(t, waitForSubscriberCount(h, formID, 2))

	// Overflow the slow client's buffer. Eviction must not block delivery
	// to the healthy client.
	for i := 0; i <= sendBufferSize; i++ {
		h.Broadcast(domain.Event{Type: domain.EventResponseSubmitted, FormID: formID, Data: i})
	}

	require.True(t, waitForSubscriberCount(h, formID, 1))
	event := readEvent(t, healthy, domain.EventResponseSubmitted)
	assert.Equal(t, formID, event.FormID)
}

func TestHub_UnregisterIdempotent(t *testing.T) {
	h, _ := testHub(t, 0)

	a := newClient(h, nil, clockwork.NewRealClock())
	b := newClient(h, nil, clockwork.NewRealClock())
	h.Register(a)
	h.Register(b)
	require.True(t, waitForClientCount(h, 2))

	h.Unregister(a)
	h.Unregister(a)
	require.True(t, waitForClientCount(h, 1))
}

func TestHub_ResubscribeMovesTopic(t *testing.T) {
	h, dial := testHub(t, 0)
	formA := "55555555-5555-5555-5555-555555555555"
	formB := "66666666-6666-6666-6666-666666666666"

	conn := dial()
	require.True(t, waitForClientCount(h, 1))

	subscribe(t, h, conn, formA, 1)
	subscribe(t, h, conn, formB, 1)

	require.True(t, waitForSubscriberCount(h, formA, 0))
	assert.Equal(t, 1, h.SubscriberCount(formB))
}

func TestHub_PingCommand(t *testing.T) {
	_, dial := testHub(t, 0)
	conn := dial()

	cmd, err := json.Marshal(domain.Event{Type: domain.CommandPing})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, cmd))

	event := readEvent(t, conn, domain.EventPong)
	assert.Equal(t, "pong", event.Data)
}

func TestHub_MalformedFrameSkipped(t *testing.T) {
	h, dial := testHub(t, 0)
	conn := dial()
	require.True(t, waitForClientCount(h, 1))

	require.NoError(t, conn.WriteMessage(ws.TextMessage, []byte("{not json")))

	// Connection stays up and keeps processing commands.
	cmd, err := json.Marshal(domain.Event{Type: domain.CommandPing})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, cmd))
	readEvent(t, conn, domain.EventPong)
	assert.Equal(t, 1, h.ClientCount())
}

func TestHub_SubscribeWithNonStringDataIgnored(t *testing.T) {
	h, dial := testHub(t, 0)
	conn := dial()
	require.True(t, waitForClientCount(h, 1))

	cmd, err := json.Marshal(domain.Event{Type: domain.CommandSubscribeForm, Data: 42})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, cmd))

	// The client stays registered but unsubscribed.
	ping, err := json.Marshal(domain.Event{Type: domain.CommandPing})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, ping))
	readEvent(t, conn, domain.EventPong)
	assert.Equal(t, 1, h.ClientCount())
}

func TestHub_UnknownCommandIgnored(t *testing.T) {
	h, dial := testHub(t, 0)
	conn := dial()
	require.True(t, waitForClientCount(h, 1))

	cmd, err := json.Marshal(domain.Event{Type: "future_command", Data: "whatever"})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, cmd))

	ping, err := json.Marshal(domain.Event{Type: domain.CommandPing})
	require.NoError(t, err)
	require.NoError(t, conn.WriteMessage(ws.TextMessage, ping))
	readEvent(t, conn, domain.EventPong)
	assert.Equal(t, 1, h.ClientCount())
}

func TestHub_PerFormSubscriptionCap(t *testing.T) {
	h, _ := testHub(t, 2)
	formID := "77777777-7777-7777-7777-777777777777"

	first := newClient(h, nil, clockwork.NewRealClock())
	second := newClient(h, nil, clockwork.NewRealClock())
	third := newClient(h, nil, clockwork.NewRealClock())
	for _, c := range []*Client{first, second, third} {
		h.Register(c)
	}
	require.True(t, waitForClientCount(h, 3))

	otherForm := "88888888-8888-8888-8888-888888888888"
	h.Subscribe(first, formID)
	h.Subscribe(second, formID)
	require.True(t, waitForSubscriberCount(h, formID, 2))

	h.Subscribe(third, otherForm)
	require.True(t, waitForSubscriberCount(h, otherForm, 1))
	h.Subscribe(third, formID)

	// The cap holds; the rejected client stays connected on its old topic.
	require.True(t, waitForSubscriberCount(h, formID, 2))
	assert.Equal(t, 3, h.ClientCount())
	assert.Equal(t, 1, h.SubscriberCount(otherForm))

	// A client already counted against the form may resubscribe to it.
	h.Subscribe(second, formID)
	require.True(t, waitForSubscriberCount(h, formID, 2))
}

// dialPair upgrades a single connection on a bare test server and hands back
// both ends of it, for tests that need to drive the server side directly.
func dialPair(t *testing.T) (serverConn, clientConn *ws.Conn) {
	t.Helper()

	upgrader := ws.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	accepted := make(chan *ws.Conn, 1)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		accepted <- conn
	}))
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	clientConn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { clientConn.Close() })

	select {
	case serverConn = <-accepted:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the connection")
	}
	return serverConn, clientConn
}

func TestClient_KeepalivePing(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := NewHub(clockwork.NewRealClock(), 0)
	t.Cleanup(func() { h.Stop() })

	handler := NewHandler(h, clock, func(*http.Request) bool { return true })
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	url := "ws" + strings.TrimPrefix(server.URL, "http")
	conn, _, err := ws.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	pinged := make(chan struct{}, 1)
	conn.SetPingHandler(func(string) error {
		select {
		case pinged <- struct{}{}:
		default:
		}
		return nil
	})

	// Ping handlers only fire inside ReadMessage; keep the reader going.
	go func() {
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	// The write pump's keepalive ticker is the fake clock's only waiter.
	clock.BlockUntil(1)
	clock.Advance(pingInterval)

	select {
	case <-pinged:
	case <-time.After(2 * time.Second):
		t.Fatal("no keepalive ping after advancing past the interval")
	}
}

func TestClient_PingWriteFailureStopsClient(t *testing.T) {
	clock := clockwork.NewFakeClock()
	h := NewHub(clockwork.NewRealClock(), 0)
	t.Cleanup(func() { h.Stop() })

	serverConn, _ := dialPair(t)
	require.NoError(t, serverConn.UnderlyingConn().Close())

	client := newClient(h, serverConn, clock)
	done := make(chan struct{})
	go func() {
		client.writePump()
		close(done)
	}()

	clock.BlockUntil(1)
	clock.Advance(pingInterval)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("write pump kept running after a failed ping")
	}

	// A stopped client rejects further traffic.
	assert.False(t, client.enqueue([]byte("{}")))
}

func TestHub_DeadTransportUnregisters(t *testing.T) {
	h, dial := testHub(t, 0)

	conn := dial()
	require.True(t, waitForClientCount(h, 1))

	// Kill the transport without a close handshake; the read pump's error
	// path must still unregister the connection.
	require.NoError(t, conn.UnderlyingConn().Close())
	require.True(t, waitForClientCount(h, 0))
}

func TestHub_StopTerminatesDispatcher(t *testing.T) {
	h := NewHub(clockwork.NewRealClock(), 0)
	h.Stop()

	// Commands after stop must not block.
	done := make(chan struct{})
	go func() {
		h.Broadcast(domain.Event{Type: domain.EventFormCreated, Data: "x"})
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(commandTimeout + time.Second):
		t.Fatal("broadcast after stop blocked")
	}
}
