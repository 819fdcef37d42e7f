// ABOUTME: Package doc for connector, the client-facing websocket service
// ABOUTME: Assembles auth, rooms, ownership registry, and routing subscription

// Package connector assembles one client-facing instance of the relay.
//
// A connector is stateless apart from its in-memory rooms: which
// conversations its connected clients are watching. Ownership of those
// conversations lives in the shared registry, keyed by a server ID minted
// fresh at startup, and events for them arrive on the instance's routing
// channels. Any instance can serve any client; a client that reconnects
// elsewhere simply re-joins and ownership follows it.
//
// The HTTP surface is small: POST /register exchanges an upstream
// credential for a session token, GET /ws upgrades to the websocket
// session protocol, GET /status reports liveness, and the backend API
// proxy mounts under token auth when a project is configured.
package connector
