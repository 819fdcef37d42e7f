// Package registry maintains the shared conversation-ownership map.
//
// Each entry maps a canonical conversation name to the ServerID of the
// instance currently holding the live connection(s) for it. The inbound
// delivery pipeline reads this map to decide which instance's routing
// channel an external event should be published on.
//
// Claim is an unconditional overwrite and Release an unconditional delete,
// matching the source system: concurrent joins for the same conversation
// on different instances are last-writer-wins, and a leave can delete an
// entry another instance has since claimed. See DESIGN.md for why this is
// kept rather than replaced with conditional writes.
package registry
