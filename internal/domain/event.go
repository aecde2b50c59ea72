package domain

// Event is the wire message exchanged over a live connection, one JSON
// object per text frame. FormID is the routing topic; an empty FormID on a
// server event means the event goes to every connection regardless of
// subscription. Events are immutable once constructed.
type Event struct {
	Type    string `json:"type"`
	FormID  string `json:"form_id,omitempty"`
	Data    any    `json:"data"`
	EventID string `json:"event_id,omitempty"`
}

// Server-to-client event types.
const (
	EventFormCreated       = "form_created"
	EventFormUpdated       = "form_updated"
	EventFormDeleted       = "form_deleted"
	EventFormPublished     = "form_published"
	EventFormUnpublished   = "form_unpublished"
	EventResponseSubmitted = "response_submitted"
	EventAnalyticsUpdated  = "analytics_updated"
	EventGreeting          = "ws_greeting"
	EventPong              = "pong"
)

// Client-to-server command types.
const (
	CommandSubscribeForm = "subscribe_form"
	CommandPing          = "ping"
)
