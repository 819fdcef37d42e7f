// Package routing implements the cross-instance delivery pipeline.
//
// The pipeline has two halves joined by a shared pub/sub transport. The
// inbound half (Publisher) runs wherever an external event lands: it
// canonicalizes the conversation name, looks up the owning instance in the
// ownership registry, stamps the envelope with an ack timestamp, and
// publishes it on the channel "<ownerServerID>:<conversation>". The
// outbound half (Subscriber) runs on every instance: a single pattern
// subscription on "<ownServerID>:*" drained by a dedicated goroutine,
// fanning each envelope out to the local rooms.
//
// Failure handling is deliberately one-sided. A conversation with no owner
// is an expected steady state (no client connected anywhere) and routes to
// nothing; an undecodable routed message is logged and dropped. Only
// transport faults propagate to the caller. Nothing is buffered or
// retried: past the owner lookup, delivery is at most once.
package routing
