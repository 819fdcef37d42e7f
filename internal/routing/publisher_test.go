// ABOUTME: Tests for the inbound routing publisher
// ABOUTME: Covers owner resolution, canonicalization, miss no-ops, channel naming

package routing

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/convo-relay/internal/metrics"
	"github.com/2389/convo-relay/internal/registry"
)

// capturingChannel records published payloads per channel name.
type capturingChannel struct {
	published map[string][][]byte
}

func newCapturingChannel() *capturingChannel {
	return &capturingChannel{published: make(map[string][][]byte)}
}

func (c *capturingChannel) Publish(_ context.Context, channel string, payload []byte) error {
	c.published[channel] = append(c.published[channel], payload)
	return nil
}

func newTestPublisher(t *testing.T) (*Publisher, registry.Registry, *capturingChannel) {
	t.Helper()
	reg := registry.NewMemoryRegistry()
	ch := newCapturingChannel()
	p := NewPublisher(reg, ch, metrics.New(prometheus.NewRegistry()), nil)
	p.now = func() time.Time {
		return time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)
	}
	return p, reg, ch
}

func TestPublisher_RoutesToOwnersChannel(t *testing.T) {
	p, reg, ch := newTestPublisher(t)
	ctx := context.Background()

	require.NoError(t, reg.Claim(ctx, "projects/p/conversations/c1", "server-1"))

	err := p.Route(ctx, Inbound{
		Conversation: "projects/p/locations/global/conversations/c1",
		DataType:     "new-message-event",
		Data:         `{"text":"hi"}`,
		PublishTime:  "2026-08-31T09:59:59Z",
		MessageID:    "msg-1",
	})
	require.NoError(t, err)

	payloads := ch.published["server-1:projects/p/conversations/c1"]
	require.Len(t, payloads, 1)

	env, err := DecodeEnvelope(payloads[0])
	require.NoError(t, err)
	assert.Equal(t, "projects/p/conversations/c1", env.ConversationName)
	assert.Equal(t, "new-message-event", env.DataType)
	assert.Equal(t, `{"text":"hi"}`, env.Data)
	assert.Equal(t, "2026-08-31T10:00:00Z", env.AckTime)
	assert.Equal(t, "2026-08-31T09:59:59Z", env.PublishTime)
	assert.Equal(t, "msg-1", env.MessageID)
}

func TestPublisher_CanonicalAndQualifiedNamesRouteAlike(t *testing.T) {
	p, reg, ch := newTestPublisher(t)
	ctx := context.Background()

	require.NoError(t, reg.Claim(ctx, "projects/p/conversations/c1", "server-1"))

	require.NoError(t, p.Route(ctx, Inbound{
		Conversation: "projects/p/conversations/c1",
		DataType:     "new-message-event",
	}))
	require.NoError(t, p.Route(ctx, Inbound{
		Conversation: "projects/p/locations/us-central1/conversations/c1",
		DataType:     "new-message-event",
	}))

	assert.Len(t, ch.published["server-1:projects/p/conversations/c1"], 2)
}

func TestPublisher_NoOwnerIsANoOp(t *testing.T) {
	p, _, ch := newTestPublisher(t)

	err := p.Route(context.Background(), Inbound{
		Conversation: "projects/p/conversations/unowned",
		DataType:     "new-message-event",
	})
	require.NoError(t, err)
	assert.Empty(t, ch.published)
}

func TestPublisher_NoPublishAfterRelease(t *testing.T) {
	p, reg, ch := newTestPublisher(t)
	ctx := context.Background()

	require.NoError(t, reg.Claim(ctx, "projects/p/conversations/c1", "server-1"))
	require.NoError(t, reg.Release(ctx, "projects/p/conversations/c1"))

	require.NoError(t, p.Route(ctx, Inbound{
		Conversation: "projects/p/conversations/c1",
		DataType:     "new-message-event",
	}))
	assert.Empty(t, ch.published)
}
