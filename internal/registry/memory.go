// ABOUTME: In-memory ownership registry with the same semantics as the Redis one
// ABOUTME: Used by tests and single-instance local runs

package registry

import (
	"context"
	"sync"
)

// MemoryRegistry implements Registry with a process-local map. It mirrors
// the Redis implementation's semantics (overwrite on Claim, ignore missing
// keys on Release) but is visible to one process only, so it cannot serve
// a multi-replica deployment.
type MemoryRegistry struct {
	mu     sync.RWMutex
	owners map[string]string
}

// NewMemoryRegistry creates an empty in-memory registry.
func NewMemoryRegistry() *MemoryRegistry {
	return &MemoryRegistry{owners: make(map[string]string)}
}

// Claim records conversation -> serverID, overwriting any previous owner.
func (m *MemoryRegistry) Claim(_ context.Context, conversation, serverID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.owners[conversation] = serverID
	return nil
}

// Owner returns the owning ServerID, or ok=false when no entry exists.
func (m *MemoryRegistry) Owner(_ context.Context, conversation string) (string, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	owner, ok := m.owners[conversation]
	return owner, ok, nil
}

// Release deletes the ownership entries, ignoring missing keys.
func (m *MemoryRegistry) Release(_ context.Context, conversations ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range conversations {
		delete(m.owners, c)
	}
	return nil
}
