// Package auth issues and verifies the connector's session tokens.
//
// Clients first call POST /register with a platform credential; the
// configured RegistrationChecker validates it and the connector mints an
// HS256 JWT bound to this deployment's project. Every later surface (the
// websocket connect, the proxied API calls) only accepts that JWT. The
// connect-time check runs before the socket touches any registry state.
package auth
