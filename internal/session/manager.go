// ABOUTME: Ownership manager keeping the registry consistent with local sessions
// ABOUTME: Join claims, leave releases, disconnect releases everything joined

package session

import (
	"context"
	"log/slog"

	"github.com/2389/convo-relay/internal/conversation"
	"github.com/2389/convo-relay/internal/identity"
	"github.com/2389/convo-relay/internal/registry"
)

// Manager applies session lifecycle events to the room table and the
// shared ownership registry. It always operates on canonical conversation
// names; the registry never sees a location-qualified form.
type Manager struct {
	serverID identity.ServerID
	registry registry.Registry
	rooms    *conversation.Rooms
	logger   *slog.Logger
}

// NewManager creates an ownership manager for this instance. Pass nil
// logger for default.
func NewManager(serverID identity.ServerID, reg registry.Registry, rooms *conversation.Rooms, logger *slog.Logger) *Manager {
	if logger == nil {
		logger = slog.Default()
	}
	return &Manager{
		serverID: serverID,
		registry: reg,
		rooms:    rooms,
		logger:   logger.With("component", "session-manager"),
	}
}

// Join adds the member to the conversation's room and claims ownership for
// this instance, overwriting any previous owner. An event routed to the
// old owner after this point is not redelivered; there is no migration
// handshake. Returns the canonical conversation name for the ack.
func (m *Manager) Join(ctx context.Context, memberID string, ch chan<- *conversation.Event, raw string) (string, error) {
	name := conversation.CanonicalName(raw)
	m.rooms.Join(name, memberID, ch)

	if err := m.registry.Claim(ctx, name, string(m.serverID)); err != nil {
		return name, err
	}

	m.logger.Info("joined conversation",
		"conversation", name,
		"member_id", memberID)
	return name, nil
}

// Leave removes the member from the conversation's room and deletes the
// ownership entry unconditionally, even if another instance has since
// claimed it. Returns the canonical conversation name for the ack.
func (m *Manager) Leave(ctx context.Context, memberID, raw string) (string, error) {
	name := conversation.CanonicalName(raw)
	m.rooms.Leave(name, memberID)

	if err := m.registry.Release(ctx, name); err != nil {
		return name, err
	}

	m.logger.Info("left conversation",
		"conversation", name,
		"member_id", memberID)
	return name, nil
}

// Disconnect removes the member from every room it had joined and releases
// the corresponding ownership entries. Cleanup is best-effort: it is not
// transactional with joins racing on other instances.
func (m *Manager) Disconnect(ctx context.Context, memberID string) error {
	convs := m.rooms.LeaveAll(memberID)
	if len(convs) == 0 {
		return nil
	}

	if err := m.registry.Release(ctx, convs...); err != nil {
		return err
	}

	m.logger.Info("disconnect cleanup complete",
		"member_id", memberID,
		"conversations", len(convs))
	return nil
}
