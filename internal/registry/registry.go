// ABOUTME: Ownership registry interface mapping conversations to owning instances
// ABOUTME: Claim overwrites, Owner reads without locking, Release deletes unconditionally

package registry

import "context"

// Registry records which instance currently holds the live connection(s)
// for a conversation. Keys are canonical conversation names; values are
// ServerIDs. Entries have no expiry: their lifecycle is owner-managed
// through Claim and Release.
//
// Individual operations are atomic at the store, but a read-then-act
// sequence (Owner on one instance racing Claim/Release on another) is not.
// Claim is last-writer-wins and Release deletes even if another instance
// has since claimed the conversation; a routed message caught in that
// window is dropped or misrouted rather than coordinated away.
type Registry interface {
	// Claim records this instance as the owner of a conversation,
	// overwriting any previous owner.
	Claim(ctx context.Context, conversation, serverID string) error

	// Owner returns the owning ServerID for a conversation. The second
	// return is false when no entry exists; absence is an expected
	// steady-state outcome, not an error.
	Owner(ctx context.Context, conversation string) (string, bool, error)

	// Release deletes the entries for the given conversations. Missing
	// entries are ignored. Releasing zero conversations is a no-op.
	Release(ctx context.Context, conversations ...string) error
}
