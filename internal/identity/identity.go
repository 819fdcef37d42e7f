// ABOUTME: Process-lifetime server identity for routing channel partitioning
// ABOUTME: Generated once at startup and injected into components that need it

package identity

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"time"
)

// ServerID identifies one running instance for the lifetime of its process.
// Every ownership claim and routing channel this instance uses is keyed by
// this value; all other ServerIDs are foreign.
type ServerID string

// New generates a ServerID from a random value and the process start time.
// Two instances started in the same second still differ in the random part.
func New() ServerID {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand never fails on supported platforms; fall back to
		// a time-only identity rather than aborting startup.
		return ServerID(fmt.Sprintf("0-%d", time.Now().UnixNano()))
	}
	n := binary.BigEndian.Uint64(buf[:])
	return ServerID(fmt.Sprintf("%x-%d", n, time.Now().Unix()))
}

// Channel returns the routing channel name for a conversation owned by this
// instance, following the "<ServerID>:<ConversationID>" convention.
func (s ServerID) Channel(conversation string) string {
	return string(s) + ":" + conversation
}

// Pattern returns the subscription pattern covering every routing channel
// addressed to this instance.
func (s ServerID) Pattern() string {
	return string(s) + ":*"
}
