// ABOUTME: Package doc for interceptor, the broker push ingestion service
// ABOUTME: Maps push deliveries to routed envelopes, acknowledging everything decodable or not

// Package interceptor receives push deliveries from the upstream event
// broker and forwards them into the routing pipeline.
//
// Each subscribed topic gets its own POST endpoint; the endpoint name
// doubles as the event's data type tag. The upstream broker redelivers
// anything not acknowledged, so the handlers acknowledge malformed and
// unroutable input instead of erroring: a delivery that cannot be decoded
// today will not decode tomorrow either. The only failure surfaced back
// to the broker is a routing channel fault, where redelivery can help.
//
// Redeliveries of already-routed messages are suppressed with a TTL'd
// cache keyed on the broker message ID.
package interceptor
