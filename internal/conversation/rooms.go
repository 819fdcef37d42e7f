// ABOUTME: In-memory room table mapping conversations to connected members
// ABOUTME: Fans routed events out to every member channel, non-blocking per member

package conversation

import (
	"encoding/json"
	"log/slog"
	"sync"
)

// Event is a named payload delivered to room members. Name carries the
// external event's type tag; Payload is the full routed envelope.
type Event struct {
	Name    string
	Payload json.RawMessage
}

// Rooms tracks which members are joined to which conversations on this
// instance and broadcasts routed events to them. Membership mutates on the
// request path while Broadcast runs on the subscription drain goroutine, so
// the table is guarded for concurrent use.
type Rooms struct {
	mu      sync.RWMutex
	members map[string]map[string]chan<- *Event // conversation -> memberID -> ch
	joined  map[string]map[string]bool          // memberID -> conversations
	logger  *slog.Logger
}

// NewRooms creates an empty room table. Pass nil logger for default.
func NewRooms(logger *slog.Logger) *Rooms {
	if logger == nil {
		logger = slog.Default()
	}
	return &Rooms{
		members: make(map[string]map[string]chan<- *Event),
		joined:  make(map[string]map[string]bool),
		logger:  logger.With("component", "rooms"),
	}
}

// Join adds a member to a conversation's room. Joining a room twice replaces
// the member's delivery channel.
func (r *Rooms) Join(conversation, memberID string, ch chan<- *Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.members[conversation]; !ok {
		r.members[conversation] = make(map[string]chan<- *Event)
	}
	r.members[conversation][memberID] = ch

	if _, ok := r.joined[memberID]; !ok {
		r.joined[memberID] = make(map[string]bool)
	}
	r.joined[memberID][conversation] = true

	r.logger.Debug("member joined room",
		"conversation", conversation,
		"member_id", memberID)
}

// Leave removes a member from a conversation's room. Leaving a room the
// member never joined is a no-op.
func (r *Rooms) Leave(conversation, memberID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.leaveLocked(conversation, memberID)
}

// leaveLocked removes the membership entries. Must be called with mu held.
func (r *Rooms) leaveLocked(conversation, memberID string) {
	if members, ok := r.members[conversation]; ok {
		delete(members, memberID)
		if len(members) == 0 {
			delete(r.members, conversation)
		}
	}
	if convs, ok := r.joined[memberID]; ok {
		delete(convs, conversation)
		if len(convs) == 0 {
			delete(r.joined, memberID)
		}
	}
}

// LeaveAll removes a member from every room it had joined and returns the
// conversations it was in. Used for disconnect cleanup, where the caller
// releases the corresponding ownership entries.
func (r *Rooms) LeaveAll(memberID string) []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	convs := make([]string, 0, len(r.joined[memberID]))
	for conversation := range r.joined[memberID] {
		convs = append(convs, conversation)
	}
	for _, conversation := range convs {
		r.leaveLocked(conversation, memberID)
	}
	return convs
}

// Broadcast delivers an event to every member joined to the conversation.
// A conversation with no members is a no-op. Sends are non-blocking: a
// member whose channel is full misses the event rather than stalling the
// subscription drain.
func (r *Rooms) Broadcast(conversation, event string, payload []byte) {
	r.mu.RLock()
	members, ok := r.members[conversation]
	if !ok || len(members) == 0 {
		r.mu.RUnlock()
		return
	}

	// Copy channels under read lock to avoid holding the lock during sends.
	targets := make([]chan<- *Event, 0, len(members))
	for _, ch := range members {
		targets = append(targets, ch)
	}
	r.mu.RUnlock()

	ev := &Event{Name: event, Payload: payload}
	for _, ch := range targets {
		select {
		case ch <- ev:
		default:
			r.logger.Debug("dropped event for slow member",
				"conversation", conversation,
				"event", event)
		}
	}
}

// MemberCount returns the number of members joined to a conversation.
func (r *Rooms) MemberCount(conversation string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.members[conversation])
}
