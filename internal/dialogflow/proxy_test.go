// ABOUTME: Tests for the backend API pass-through routes
// ABOUTME: Covers route whitelisting, status/body relay, and :complete bodies

package dialogflow

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordedCall struct {
	method string
	uri    string
	body   string
}

func newProxyFixture(t *testing.T, status int, respBody string) (*httptest.Server, *recordedCall) {
	t.Helper()

	var last recordedCall
	backend := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		last = recordedCall{method: r.Method, uri: r.URL.RequestURI(), body: string(b)}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(respBody))
	}))
	t.Cleanup(backend.Close)

	proxy := NewProxy(NewClientWithHTTP(backend.Client(), backend.URL, nil), nil)
	router := chi.NewRouter()
	proxy.Routes(router)

	front := httptest.NewServer(router)
	t.Cleanup(front.Close)

	return front, &last
}

func TestProxy_ForwardsGet(t *testing.T) {
	front, last := newProxyFixture(t, http.StatusOK, `{"name":"conv"}`)

	resp, err := http.Get(front.URL + "/v2beta1/projects/p/locations/global/conversations/c1?pageSize=5")
	require.NoError(t, err)
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.JSONEq(t, `{"name":"conv"}`, string(body))
	assert.Equal(t, http.MethodGet, last.method)
	assert.Equal(t, "/v2beta1/projects/p/locations/global/conversations/c1?pageSize=5", last.uri)
}

func TestProxy_ForwardsPostBody(t *testing.T) {
	front, last := newProxyFixture(t, http.StatusOK, `{}`)

	resp, err := http.Post(
		front.URL+"/v2beta1/projects/p/locations/global/conversations/c1/participants/p1:analyzeContent",
		"application/json",
		strings.NewReader(`{"textInput":{"text":"hi"}}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.MethodPost, last.method)
	assert.Equal(t, `{"textInput":{"text":"hi"}}`, last.body)
}

func TestProxy_CompleteCallSendsEmptyBody(t *testing.T) {
	front, last := newProxyFixture(t, http.StatusOK, `{}`)

	resp, err := http.Post(
		front.URL+"/v2beta1/projects/p/locations/global/conversations/c1:complete",
		"application/json",
		strings.NewReader(`{"should":"be dropped"}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Empty(t, last.body)
}

func TestProxy_RelaysBackendErrorStatus(t *testing.T) {
	front, _ := newProxyFixture(t, http.StatusNotFound, `{"error":"not found"}`)

	resp, err := http.Get(front.URL + "/v2beta1/projects/p/locations/global/conversations/ghost")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProxy_UnlistedPathIs404(t *testing.T) {
	front, _ := newProxyFixture(t, http.StatusOK, `{}`)

	resp, err := http.Get(front.URL + "/v2beta1/projects/p/locations/global/agents/a1")
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestProxy_SearchKnowledgeRoute(t *testing.T) {
	front, last := newProxyFixture(t, http.StatusOK, `{}`)

	resp, err := http.Post(
		front.URL+"/v2beta1/projects/p/locations/us-central1/suggestions:searchKnowledge",
		"application/json",
		strings.NewReader(`{"query":{"text":"refund"}}`))
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "/v2beta1/projects/p/locations/us-central1/suggestions:searchKnowledge", last.uri)
}
