// Package metrics defines the Prometheus instruments for the relay.
// Both binaries expose them on /metrics; the delivery-latency histogram
// uses the envelope's ack_time stamp, so it spans the interceptor, the
// routing channel, and the owning instance's drain loop.
package metrics
