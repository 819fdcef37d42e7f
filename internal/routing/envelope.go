// ABOUTME: Wire envelope carried on the routing channel between instances
// ABOUTME: Immutable once published, stamped with the interceptor's ack time

package routing

import (
	"encoding/json"
	"fmt"
	"time"
)

// AckTimeFormat is the timestamp layout stamped into envelopes when the
// interceptor hands an event to the publisher.
const AckTimeFormat = "2006-01-02T15:04:05Z"

// Envelope is the routed message delivered over the routing channel from
// the inbound half of the pipeline to the owning instance. The JSON field
// names are the wire contract; connected clients receive the envelope
// verbatim as the payload of a server-pushed event named DataType.
type Envelope struct {
	// ConversationName is the canonical conversation name.
	ConversationName string `json:"conversation_name"`

	// Data is the external event's payload, passed through opaquely.
	Data string `json:"data"`

	// DataType tags which kind of external event this is; it becomes the
	// event name on session fan-out.
	DataType string `json:"data_type"`

	// AckTime is when the interceptor accepted the event, used for
	// measuring delivery latency across the pipeline.
	AckTime string `json:"ack_time"`

	// PublishTime is the upstream broker's publish timestamp.
	PublishTime string `json:"publish_time"`

	// MessageID is the upstream broker's message identifier.
	MessageID string `json:"message_id"`
}

// Encode marshals the envelope for publishing.
func (e *Envelope) Encode() ([]byte, error) {
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("encoding envelope: %w", err)
	}
	return data, nil
}

// DecodeEnvelope parses a routed message received from the channel.
func DecodeEnvelope(payload []byte) (*Envelope, error) {
	var e Envelope
	if err := json.Unmarshal(payload, &e); err != nil {
		return nil, fmt.Errorf("decoding envelope: %w", err)
	}
	if e.ConversationName == "" {
		return nil, fmt.Errorf("decoding envelope: missing conversation_name")
	}
	return &e, nil
}

// Age returns the time elapsed since AckTime. ok is false when the stamp
// is missing or unparseable.
func (e *Envelope) Age(now time.Time) (time.Duration, bool) {
	acked, err := time.Parse(AckTimeFormat, e.AckTime)
	if err != nil {
		return 0, false
	}
	return now.Sub(acked), true
}
