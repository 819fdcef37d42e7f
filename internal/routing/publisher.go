// ABOUTME: Inbound half of the delivery pipeline: event to routing channel
// ABOUTME: Canonicalizes, resolves the owner, stamps ack time, publishes

package routing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/2389/convo-relay/internal/conversation"
	"github.com/2389/convo-relay/internal/metrics"
	"github.com/2389/convo-relay/internal/registry"
)

// ChannelPublisher publishes a serialized envelope on a named routing
// channel. Publishing is fire-and-forget: there is no ack from the
// subscriber side.
type ChannelPublisher interface {
	Publish(ctx context.Context, channel string, payload []byte) error
}

// RedisChannel implements ChannelPublisher on Redis pub/sub.
type RedisChannel struct {
	client *redis.Client
}

// NewRedisChannel wraps an existing Redis client for channel publishing.
func NewRedisChannel(client *redis.Client) *RedisChannel {
	return &RedisChannel{client: client}
}

// Publish sends the payload on the named channel.
func (c *RedisChannel) Publish(ctx context.Context, channel string, payload []byte) error {
	if err := c.client.Publish(ctx, channel, payload).Err(); err != nil {
		return fmt.Errorf("publishing on %s: %w", channel, err)
	}
	return nil
}

// Inbound is a decoded external event handed to the publisher by the
// ingestion adapter.
type Inbound struct {
	// Conversation is the conversation name as received, possibly
	// location-qualified.
	Conversation string

	// DataType tags the event kind, supplied by the receiving endpoint.
	DataType string

	// Data is the decoded event payload.
	Data string

	// PublishTime and MessageID come from the upstream broker message.
	PublishTime string
	MessageID   string
}

// Publisher routes inbound external events to the instance owning the
// target conversation. It never retries and never buffers: a conversation
// with no owner is a no-op, and anything past the owner lookup is
// at-most-once.
type Publisher struct {
	registry registry.Registry
	channel  ChannelPublisher
	metrics  *metrics.Metrics
	logger   *slog.Logger

	// now is the clock used for ack stamping; replaced in tests.
	now func() time.Time
}

// NewPublisher creates the inbound pipeline half. Pass nil logger for
// default.
func NewPublisher(reg registry.Registry, channel ChannelPublisher, m *metrics.Metrics, logger *slog.Logger) *Publisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Publisher{
		registry: reg,
		channel:  channel,
		metrics:  m,
		logger:   logger.With("component", "publisher"),
		now:      time.Now,
	}
}

// Route looks up the owner of the event's conversation and publishes the
// envelope on that instance's channel. A missing owner means no session is
// currently listening anywhere; the event is dropped silently and nil is
// returned. Registry or channel failures are returned to the caller, whose
// surrounding request handling decides what the upstream sees.
func (p *Publisher) Route(ctx context.Context, in Inbound) error {
	name := conversation.CanonicalName(in.Conversation)

	owner, ok, err := p.registry.Owner(ctx, name)
	if err != nil {
		return err
	}
	if !ok {
		p.metrics.RoutingMisses.Inc()
		p.logger.Warn("no owner for conversation",
			"conversation", name,
			"data_type", in.DataType)
		return nil
	}

	env := &Envelope{
		ConversationName: name,
		Data:             in.Data,
		DataType:         in.DataType,
		AckTime:          p.now().UTC().Format(AckTimeFormat),
		PublishTime:      in.PublishTime,
		MessageID:        in.MessageID,
	}
	payload, err := env.Encode()
	if err != nil {
		return err
	}

	channel := owner + ":" + name
	if err := p.channel.Publish(ctx, channel, payload); err != nil {
		return err
	}

	p.metrics.MessagesPublished.Inc()
	p.logger.Debug("routed message published",
		"channel", channel,
		"data_type", in.DataType,
		"message_id", in.MessageID)
	return nil
}
