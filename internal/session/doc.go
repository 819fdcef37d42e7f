// Package session holds the client-facing half of the relay: the
// websocket hub and the ownership manager.
//
// A client connects with a session token, then joins conversations by
// name. Each join adds the connection to the local room and claims the
// conversation for this instance in the shared registry, so inbound
// external events find their way here. Leave and disconnect undo both
// sides. Per conversation the local view is two-state, unowned or owned
// by this instance; ownership by another instance is only ever observed
// indirectly, through registry reads on the inbound routing path.
//
// The frame protocol is deliberately small: join-conversation and
// leave-conversation commands with (ok, conversation_name) acks, and
// server-pushed frames named by the routed envelope's data type.
package session
