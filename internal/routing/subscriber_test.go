// ABOUTME: Tests for the routing channel subscriber over a real pub/sub server
// ABOUTME: Covers pattern scoping, fan-out hand-off, and undecodable drops

package routing

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/convo-relay/internal/identity"
	"github.com/2389/convo-relay/internal/metrics"
)

// capturingFanout records broadcasts for assertions.
type capturingFanout struct {
	mu     sync.Mutex
	calls  []fanoutCall
	notify chan struct{}
}

type fanoutCall struct {
	conversation string
	event        string
	payload      []byte
}

func newCapturingFanout() *capturingFanout {
	return &capturingFanout{notify: make(chan struct{}, 16)}
}

func (f *capturingFanout) Broadcast(conversation, event string, payload []byte) {
	f.mu.Lock()
	f.calls = append(f.calls, fanoutCall{conversation, event, payload})
	f.mu.Unlock()
	f.notify <- struct{}{}
}

func (f *capturingFanout) snapshot() []fanoutCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]fanoutCall(nil), f.calls...)
}

func (f *capturingFanout) wait(t *testing.T) {
	t.Helper()
	select {
	case <-f.notify:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for fan-out")
	}
}

func newTestSubscriber(t *testing.T) (*Subscriber, *redis.Client, *capturingFanout, identity.ServerID) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	serverID := identity.New()
	fanout := newCapturingFanout()
	sub := NewSubscriber(client, serverID, fanout, metrics.New(prometheus.NewRegistry()), nil)

	require.NoError(t, sub.Start(context.Background()))
	t.Cleanup(func() { _ = sub.Close() })

	return sub, client, fanout, serverID
}

func TestSubscriber_DeliversEnvelopeToFanout(t *testing.T) {
	_, client, fanout, serverID := newTestSubscriber(t)
	ctx := context.Background()

	env := &Envelope{
		ConversationName: "projects/p/conversations/c1",
		Data:             `{"text":"hi"}`,
		DataType:         "new-message-event",
		AckTime:          time.Now().UTC().Format(AckTimeFormat),
		MessageID:        "msg-1",
	}
	payload, err := env.Encode()
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, serverID.Channel("projects/p/conversations/c1"), payload).Err())
	fanout.wait(t)

	calls := fanout.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "projects/p/conversations/c1", calls[0].conversation)
	assert.Equal(t, "new-message-event", calls[0].event)
	assert.JSONEq(t, string(payload), string(calls[0].payload))
}

func TestSubscriber_IgnoresOtherInstancesChannels(t *testing.T) {
	_, client, fanout, _ := newTestSubscriber(t)
	ctx := context.Background()

	other := identity.New()
	env := &Envelope{ConversationName: "projects/p/conversations/c1", DataType: "new-message-event"}
	payload, err := env.Encode()
	require.NoError(t, err)

	require.NoError(t, client.Publish(ctx, other.Channel("projects/p/conversations/c1"), payload).Err())

	select {
	case <-fanout.notify:
		t.Fatal("received a message addressed to another instance")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestSubscriber_DropsUndecodableMessages(t *testing.T) {
	_, client, fanout, serverID := newTestSubscriber(t)
	ctx := context.Background()

	require.NoError(t, client.Publish(ctx, serverID.Channel("projects/p/conversations/c1"), []byte("garbage")).Err())

	// The garbage message is dropped; a valid one after it still arrives.
	env := &Envelope{ConversationName: "projects/p/conversations/c1", DataType: "new-message-event"}
	payload, err := env.Encode()
	require.NoError(t, err)
	require.NoError(t, client.Publish(ctx, serverID.Channel("projects/p/conversations/c1"), payload).Err())

	fanout.wait(t)
	calls := fanout.snapshot()
	require.Len(t, calls, 1)
	assert.Equal(t, "new-message-event", calls[0].event)
}

func TestSubscriber_InOrderDelivery(t *testing.T) {
	_, client, fanout, serverID := newTestSubscriber(t)
	ctx := context.Background()

	for _, id := range []string{"msg-1", "msg-2", "msg-3"} {
		env := &Envelope{
			ConversationName: "projects/p/conversations/c1",
			DataType:         "new-message-event",
			MessageID:        id,
		}
		payload, err := env.Encode()
		require.NoError(t, err)
		require.NoError(t, client.Publish(ctx, serverID.Channel("projects/p/conversations/c1"), payload).Err())
	}

	for i := 0; i < 3; i++ {
		fanout.wait(t)
	}

	calls := fanout.snapshot()
	require.Len(t, calls, 3)
	for i, want := range []string{"msg-1", "msg-2", "msg-3"} {
		env, err := DecodeEnvelope(calls[i].payload)
		require.NoError(t, err)
		assert.Equal(t, want, env.MessageID)
	}
}

func TestSubscriber_CloseStopsDrain(t *testing.T) {
	sub, _, _, _ := newTestSubscriber(t)
	require.NoError(t, sub.Close())
	// Close is idempotent via the nil guard on a fresh subscriber.
	assert.NoError(t, (&Subscriber{}).Close())
}

func TestSubscriber_CloseAfterFailedStartReturns(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	sub := NewSubscriber(client, identity.New(), newCapturingFanout(),
		metrics.New(prometheus.NewRegistry()), nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	require.Error(t, sub.Start(ctx))

	// drain never ran; Close must return instead of waiting on it.
	done := make(chan error, 1)
	go func() { done <- sub.Close() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Close blocked after a failed Start")
	}
}
