// Package hub implements the real-time event distribution hub: a single
// dispatcher goroutine owning the subscription registry, fanning events out
// to per-connection bounded send buffers.
package hub

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/formforge/formpulse/internal/domain"
	"github.com/formforge/formpulse/internal/metrics"
	"github.com/jonboulle/clockwork"
)

const commandTimeout = 5 * time.Second

// --- Command types ---

type hubCmd interface{ hubCmd() }

type cmdRegister struct {
	client *Client
}

func (cmdRegister) hubCmd() {}

type cmdUnregister struct {
	client *Client
}

func (cmdUnregister) hubCmd() {}

type cmdSubscribe struct {
	client *Client
	formID string
}

func (cmdSubscribe) hubCmd() {}

type cmdBroadcast struct {
	eventType string
	formID    string
	data      []byte
}

func (cmdBroadcast) hubCmd() {}

type cmdClientCount struct {
	replyCh chan int
}

func (cmdClientCount) hubCmd() {}

type cmdSubscriberCount struct {
	formID  string
	replyCh chan int
}

func (cmdSubscriberCount) hubCmd() {}

type cmdStop struct {
	doneCh chan struct{}
}

func (cmdStop) hubCmd() {}

// --- Hub ---

// Hub routes events to connected clients. All registry access happens on the
// run goroutine; public methods only send commands into cmdCh, so broadcasts
// reach a given client's send buffer in the order the hub processed them.
type Hub struct {
	cmdCh chan hubCmd
	clock clockwork.Clock

	// registry maps each registered client to its topic; "" means the
	// client has not subscribed to any form.
	registry map[*Client]string

	maxSubscribersPerForm int
}

// NewHub creates a hub and starts its dispatcher goroutine.
// maxSubscribersPerForm caps subscriptions per form (prevents a single hot
// form from exhausting the process); 0 means no cap.
func NewHub(clock clockwork.Clock, maxSubscribersPerForm int) *Hub {
	h := &Hub{
		cmdCh:                 make(chan hubCmd, 256),
		clock:                 clock,
		registry:              make(map[*Client]string),
		maxSubscribersPerForm: maxSubscribersPerForm,
	}
	go h.run()
	return h
}

func (h *Hub) run() {
	depthTicker := h.clock.NewTicker(1 * time.Second)
	defer depthTicker.Stop()

	for {
		select {
		case <-depthTicker.Chan():
			metrics.HubCommandChannelDepth.Set(float64(len(h.cmdCh)))
		case cmd := <-h.cmdCh:
			switch c := cmd.(type) {
			case cmdRegister:
				h.handleRegister(c.client)
			case cmdUnregister:
				h.handleUnregister(c.client)
			case cmdSubscribe:
				h.handleSubscribe(c.client, c.formID)
			case cmdBroadcast:
				h.handleBroadcast(c)
			case cmdClientCount:
				c.replyCh <- len(h.registry)
			case cmdSubscriberCount:
				c.replyCh <- h.subscriberCount(c.formID)
			case cmdStop:
				h.handleStop()
				close(c.doneCh)
				return
			default:
				slog.Warn("Hub received unknown command type", "command_type", fmt.Sprintf("%T", cmd))
			}
		}
	}
}

func (h *Hub) handleRegister(client *Client) {
	h.registry[client] = ""
	metrics.HubConnectedClients.Set(float64(len(h.registry)))
	slog.Debug("Client registered", "total_clients", len(h.registry))
}

func (h *Hub) handleUnregister(client *Client) {
	if _, ok := h.registry[client]; !ok {
		return
	}
	delete(h.registry, client)
	client.stop()
	metrics.HubConnectedClients.Set(float64(len(h.registry)))
	slog.Debug("Client unregistered", "total_clients", len(h.registry))
}

func (h *Hub) handleSubscribe(client *Client, formID string) {
	if _, ok := h.registry[client]; !ok {
		// Subscribe raced with unregister; the client is already gone.
		return
	}

	// A full form rejects the subscription only; the connection stays
	// registered with whatever topic it had before.
	if h.maxSubscribersPerForm > 0 && h.registry[client] != formID &&
		h.subscriberCount(formID) >= h.maxSubscribersPerForm {
		metrics.HubSubscriptionsRejected.Inc()
		slog.Warn("Rejecting subscription: max subscribers reached",
			"form_id", formID, "max_subscribers", h.maxSubscribersPerForm)
		return
	}

	h.registry[client] = formID
	slog.Debug("Client subscribed", "form_id", formID)
}

func (h *Hub) handleBroadcast(c cmdBroadcast) {
	metrics.HubBroadcastsTotal.WithLabelValues(c.eventType).Inc()

	var slow []*Client
	for client, topic := range h.registry {
		if c.formID != "" && topic != c.formID {
			continue
		}
		if client.enqueue(c.data) {
			metrics.HubEventsDelivered.Inc()
		} else {
			// Send buffer full: the client cannot keep up. Mark for
			// eviction; never block the fan-out on one peer.
			slow = append(slow, client)
		}
	}

	for _, client := range slow {
		slog.Warn("Disconnecting slow client", "form_id", h.registry[client])
		metrics.HubSlowClientsEvicted.Inc()
		h.handleUnregister(client)
	}
}

func (h *Hub) handleStop() {
	for client := range h.registry {
		delete(h.registry, client)
		client.stop()
	}
	metrics.HubConnectedClients.Set(0)
}

func (h *Hub) subscriberCount(formID string) int {
	n := 0
	for _, topic := range h.registry {
		if topic == formID {
			n++
		}
	}
	return n
}

// --- Public API ---

// Register adds a connection to the registry.
func (h *Hub) Register(client *Client) {
	h.cmdCh <- cmdRegister{client: client}
}

// Unregister removes a connection if present and closes it. Safe to call
// more than once for the same client.
func (h *Hub) Unregister(client *Client) {
	h.cmdCh <- cmdUnregister{client: client}
}

// Subscribe sets the client's topic to the given form ID.
func (h *Hub) Subscribe(client *Client, formID string) {
	h.cmdCh <- cmdSubscribe{client: client, formID: formID}
}

// Broadcast delivers an event to every connection subscribed to its form,
// or to all connections when the event carries no form ID. Delivery is
// fire-and-forget: slow consumers are evicted, not waited for.
func (h *Hub) Broadcast(event domain.Event) {
	data, err := json.Marshal(event)
	if err != nil {
		slog.Error("Failed to marshal broadcast event", "type", event.Type, "error", err)
		return
	}
	h.cmdCh <- cmdBroadcast{eventType: event.Type, formID: event.FormID, data: data}
}

// ClientCount returns the number of registered connections.
// Returns -1 if the command times out.
func (h *Hub) ClientCount() int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdClientCount{replyCh: replyCh}
	return h.await(replyCh)
}

// SubscriberCount returns the number of connections subscribed to a form.
// Returns -1 if the command times out.
func (h *Hub) SubscriberCount(formID string) int {
	replyCh := make(chan int, 1)
	h.cmdCh <- cmdSubscriberCount{formID: formID, replyCh: replyCh}
	return h.await(replyCh)
}

// Stop shuts down the hub, closing all client connections. Blocks until the
// dispatcher goroutine has exited or the command timeout is reached.
func (h *Hub) Stop() {
	doneCh := make(chan struct{})
	h.cmdCh <- cmdStop{doneCh: doneCh}

	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case <-doneCh:
		slog.Info("Hub stopped")
	case <-timer.Chan():
		slog.Warn("Hub stop timed out", "timeout", commandTimeout)
	}
}

func (h *Hub) await(replyCh chan int) int {
	timer := h.clock.NewTimer(commandTimeout)
	defer timer.Stop()

	select {
	case n := <-replyCh:
		return n
	case <-timer.Chan():
		slog.Warn("Hub command timed out", "timeout", commandTimeout)
		return -1
	}
}
