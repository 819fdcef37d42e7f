// ABOUTME: Tests for the interceptor service assembly
// ABOUTME: Exercises the real Redis wiring against miniredis

package interceptor

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/2389/convo-relay/internal/config"
	"github.com/2389/convo-relay/internal/routing"
)

func testService(t *testing.T) (*Service, *miniredis.Miniredis, *httptest.Server) {
	t.Helper()
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := &config.Config{}
	cfg.Server.HTTPAddr = "127.0.0.1:0"
	cfg.Redis.Host = mr.Host()
	cfg.Redis.Port = port
	cfg.Dedupe.MaxSize = 100
	cfg.Dedupe.TTL = time.Minute
	cfg.Metrics.Enabled = true
	cfg.Metrics.Path = "/metrics"

	svc, err := New(cfg, nil)
	require.NoError(t, err)

	srv := httptest.NewServer(svc.Handler())
	t.Cleanup(srv.Close)
	t.Cleanup(func() { svc.Shutdown(context.Background()) })
	return svc, mr, srv
}

func TestServiceStatus(t *testing.T) {
	_, _, srv := testService(t)

	resp, err := http.Get(srv.URL + "/status")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestServiceMetricsEndpoint(t *testing.T) {
	_, _, srv := testService(t)

	resp, err := http.Get(srv.URL + "/metrics")
	require.NoError(t, err)
	defer resp.Body.Close()
	require.Equal(t, http.StatusOK, resp.StatusCode)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	assert.Contains(t, string(raw), "convo_relay_")
}

func TestServicePushRoutesThroughRedis(t *testing.T) {
	_, mr, srv := testService(t)
	require.NoError(t, mr.Set("projects/p/conversations/c1", "server-a"))

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	sub := client.Subscribe(context.Background(), "server-a:projects/p/conversations/c1")
	t.Cleanup(func() { sub.Close() })
	_, err := sub.Receive(context.Background())
	require.NoError(t, err)

	body := pushBody(t, map[string]any{
		"conversation": "projects/p/conversations/c1",
		"type":         "CONVERSATION_STARTED",
	}, "svc-msg-1")
	resp, err := http.Post(srv.URL+"/"+EventConversationLifecycle, "application/json", bytes.NewReader(body))
	require.NoError(t, err)
	resp.Body.Close()
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	select {
	case msg := <-sub.Channel():
		env, err := routing.DecodeEnvelope([]byte(msg.Payload))
		require.NoError(t, err)
		assert.Equal(t, EventConversationLifecycle, env.DataType)
		assert.Equal(t, "svc-msg-1", env.MessageID)
	case <-time.After(2 * time.Second):
		t.Fatal("expected an envelope on the owner's channel")
	}
}
