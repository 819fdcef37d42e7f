// ABOUTME: JSON frame protocol spoken over the websocket session transport
// ABOUTME: Client frames carry commands; server frames carry acks and pushed events

package session

import "encoding/json"

// Client-issued event names.
const (
	EventJoinConversation  = "join-conversation"
	EventLeaveConversation = "leave-conversation"
)

// ClientFrame is a command from a connected client. For join and leave,
// Data carries the conversation name, location-qualified or canonical.
type ClientFrame struct {
	Event string `json:"event"`
	Data  string `json:"data"`
}

// AckFrame answers a client command with the outcome and the canonical
// conversation name the command resolved to.
type AckFrame struct {
	Event            string `json:"event"`
	OK               bool   `json:"ok"`
	ConversationName string `json:"conversation_name,omitempty"`
}

// PushFrame is a server-pushed event. Event is the routed envelope's data
// type; Data is the full envelope.
type PushFrame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}
