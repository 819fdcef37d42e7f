// Package conversation provides conversation naming and local fan-out.
//
// # Canonical names
//
// Conversation names may arrive location-qualified
// ("projects/p/locations/global/conversations/c") or canonical
// ("projects/p/conversations/c"). CanonicalName strips the location segment
// so every instance, and the shared ownership registry, agrees on a single
// key per conversation.
//
// # Rooms
//
// Rooms is the per-instance membership table: which live connections are
// joined to which conversations. The routing subscriber calls Broadcast to
// fan a routed event out to every member of a conversation's room; members
// on other instances are reached through the ownership registry and the
// routing channel instead, never through this table.
//
// Broadcast runs concurrently with join/leave/disconnect, so the table is
// safe for concurrent use. Delivery per member is non-blocking; a member
// that cannot keep up misses events rather than stalling the drain loop.
package conversation
