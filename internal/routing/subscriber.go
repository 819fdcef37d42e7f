// ABOUTME: Outbound half of the delivery pipeline: routing channel to fan-out
// ABOUTME: One pattern subscription per instance, drained on its own goroutine

package routing

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/2389/convo-relay/internal/identity"
	"github.com/2389/convo-relay/internal/metrics"
)

// Fanout delivers a routed event to the local sessions joined to a
// conversation. Implemented by conversation.Rooms.
type Fanout interface {
	Broadcast(conversation, event string, payload []byte)
}

// Subscriber drains this instance's routing channels and fans each
// received envelope out to the local rooms. It subscribes once, at
// startup, to the pattern covering every channel prefixed with this
// instance's ServerID; per-conversation sub-channels are dispatched by the
// envelope's conversation name.
type Subscriber struct {
	client   *redis.Client
	serverID identity.ServerID
	fanout   Fanout
	metrics  *metrics.Metrics
	logger   *slog.Logger

	sub  *redis.PubSub
	done chan struct{}
}

// NewSubscriber creates the outbound pipeline half. Pass nil logger for
// default.
func NewSubscriber(client *redis.Client, serverID identity.ServerID, fanout Fanout, m *metrics.Metrics, logger *slog.Logger) *Subscriber {
	if logger == nil {
		logger = slog.Default()
	}
	return &Subscriber{
		client:   client,
		serverID: serverID,
		fanout:   fanout,
		metrics:  m,
		logger:   logger.With("component", "subscriber", "server_id", string(serverID)),
		done:     make(chan struct{}),
	}
}

// Start subscribes to this instance's channel pattern and begins draining
// on a background goroutine. It returns once the subscription is
// confirmed, so a message published after Start returns will be received.
func (s *Subscriber) Start(ctx context.Context) error {
	s.sub = s.client.PSubscribe(ctx, s.serverID.Pattern())
	if _, err := s.sub.Receive(ctx); err != nil {
		_ = s.sub.Close()
		// drain never started, so Close must not wait on it.
		s.sub = nil
		return fmt.Errorf("subscribing to %s: %w", s.serverID.Pattern(), err)
	}

	go s.drain()

	s.logger.Info("routing subscription active", "pattern", s.serverID.Pattern())
	return nil
}

// drain delivers messages until the subscription closes. It runs
// single-consumer and in-order: fan-out order per connection matches
// publish order on this instance's channels.
func (s *Subscriber) drain() {
	defer close(s.done)
	for msg := range s.sub.Channel() {
		s.handle(msg.Channel, []byte(msg.Payload))
	}
}

// handle decodes one routed message and fans it out. The broker offers no
// redelivery at this layer, so an undecodable payload is logged and
// dropped.
func (s *Subscriber) handle(channel string, payload []byte) {
	env, err := DecodeEnvelope(payload)
	if err != nil {
		s.logger.Warn("dropping undecodable routed message",
			"channel", channel,
			"error", err)
		return
	}

	s.fanout.Broadcast(env.ConversationName, env.DataType, payload)

	s.metrics.MessagesDelivered.WithLabelValues(env.DataType).Inc()
	if age, ok := env.Age(time.Now().UTC()); ok {
		s.metrics.DeliveryLatency.Observe(age.Seconds())
	}

	s.logger.Debug("routed message delivered",
		"conversation", env.ConversationName,
		"data_type", env.DataType,
		"message_id", env.MessageID)
}

// Close tears down the subscription and waits for the drain goroutine to
// finish.
func (s *Subscriber) Close() error {
	if s.sub == nil {
		return nil
	}
	err := s.sub.Close()
	<-s.done
	return err
}
