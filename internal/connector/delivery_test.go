// ABOUTME: End-to-end delivery test: register, join over websocket, route event
// ABOUTME: Publisher plays the part of an interceptor running in another process

package connector

import (
	"context"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/convo-relay/internal/metrics"
	"github.com/2389/convo-relay/internal/registry"
	"github.com/2389/convo-relay/internal/routing"
	"github.com/2389/convo-relay/internal/session"
)

func dialSession(t *testing.T, serverURL, token string) *websocket.Conn {
	t.Helper()
	wsURL := "ws" + strings.TrimPrefix(serverURL, "http") + "/ws?token=" + token
	ws, resp, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	if resp != nil {
		resp.Body.Close()
	}
	t.Cleanup(func() { ws.Close() })
	return ws
}

func registerToken(t *testing.T, serverURL string) string {
	t.Helper()
	resp, err := http.Post(serverURL+"/register", "application/json", nil)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	body := decodeBody(t, resp)
	token, ok := body["token"].(string)
	require.True(t, ok)
	return token
}

func TestEventReachesJoinedClientAcrossProcesses(t *testing.T) {
	cfg := testConfig(t)
	svc, srv := newTestService(t, cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, svc.subscriber.Start(ctx))

	ws := dialSession(t, srv.URL, registerToken(t, srv.URL))

	joined := "projects/p/locations/us-central1/conversations/c7"
	require.NoError(t, ws.WriteJSON(&session.ClientFrame{
		Event: session.EventJoinConversation,
		Data:  joined,
	}))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var ack session.AckFrame
	require.NoError(t, ws.ReadJSON(&ack))
	require.True(t, ack.OK)
	require.Equal(t, "projects/p/conversations/c7", ack.ConversationName)

	// A publisher on its own Redis connection stands in for an
	// interceptor process: shared registry, shared routing channel.
	client := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	t.Cleanup(func() { client.Close() })
	publisher := routing.NewPublisher(
		registry.NewRedisRegistry(client),
		routing.NewRedisChannel(client),
		metrics.New(prometheus.NewRegistry()),
		nil,
	)
	require.NoError(t, publisher.Route(ctx, routing.Inbound{
		Conversation: joined,
		DataType:     "new-message-event",
		Data:         `{"conversation": "` + joined + `", "text": "hello"}`,
		MessageID:    "m-1",
	}))

	ws.SetReadDeadline(time.Now().Add(2 * time.Second))
	var push session.PushFrame
	require.NoError(t, ws.ReadJSON(&push))
	assert.Equal(t, "new-message-event", push.Event)

	env, err := routing.DecodeEnvelope(push.Data)
	require.NoError(t, err)
	assert.Equal(t, "projects/p/conversations/c7", env.ConversationName)
	assert.Contains(t, env.Data, "hello")
	assert.Equal(t, "m-1", env.MessageID)

	// An event for a conversation nobody joined is dropped at the owner
	// lookup and never reaches the client.
	require.NoError(t, publisher.Route(ctx, routing.Inbound{
		Conversation: "projects/p/conversations/other",
		DataType:     "new-message-event",
		Data:         `{"conversation": "projects/p/conversations/other"}`,
	}))

	ws.SetReadDeadline(time.Now().Add(300 * time.Millisecond))
	var extra session.PushFrame
	err = ws.ReadJSON(&extra)
	require.Error(t, err, "no further events should arrive")
}
