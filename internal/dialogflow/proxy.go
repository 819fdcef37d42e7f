// ABOUTME: HTTP pass-through of whitelisted backend API paths
// ABOUTME: Preserves method, query, status, headers, and body in both directions

package dialogflow

import (
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
)

// Proxy exposes the conversational backend's conversation-runtime REST
// surface through the connector. Only the listed method/path combinations
// are reachable; anything else 404s at the router.
type Proxy struct {
	client *Client
	logger *slog.Logger
}

// NewProxy creates the pass-through handler. Pass nil logger for default.
func NewProxy(client *Client, logger *slog.Logger) *Proxy {
	if logger == nil {
		logger = slog.Default()
	}
	return &Proxy{
		client: client,
		logger: logger.With("component", "proxy"),
	}
}

// Routes registers the proxied API surface on the router. List and
// answer-record listing calls are not supported, matching the backend's
// published integration surface.
func (p *Proxy) Routes(r chi.Router) {
	base := "/{version}/projects/{project}/locations/{location}"

	// conversations.create
	r.Post(base+"/conversations", p.handle)
	// conversations.get/complete, messages, participants, suggestions
	r.Get(base+"/conversations/*", p.handle)
	r.Post(base+"/conversations/*", p.handle)
	// participants.patch and conversation patches
	r.Patch(base+"/conversations/*", p.handle)
	// answerRecords.patch
	r.Patch(base+"/answerRecords/*", p.handle)
	// conversationProfiles.get
	r.Get(base+"/conversationProfiles/*", p.handle)
	// conversationModels.get
	r.Get(base+"/conversationModels/*", p.handle)
	// suggestions.searchKnowledge
	r.Post(base+"/suggestions:searchKnowledge", p.handle)
}

// handle forwards one request and streams the backend's response back.
func (p *Proxy) handle(w http.ResponseWriter, r *http.Request) {
	location := chi.URLParam(r, "location")

	var body io.Reader
	if r.Method != http.MethodGet {
		// conversations.complete requires an empty request body; every
		// other mutation passes the caller's JSON through.
		if !strings.HasSuffix(r.URL.Path, ":complete") {
			body = r.Body
		}
	}

	resp, err := p.client.Forward(r.Context(), r.Method, location, r.URL.RequestURI(), body)
	if err != nil {
		p.logger.Error("backend call failed", "path", r.URL.Path, "error", err)
		http.Error(w, `{"message":"backend unavailable"}`, http.StatusBadGateway)
		return
	}
	defer resp.Body.Close()

	copyHeaders(w.Header(), resp.Header)
	w.WriteHeader(resp.StatusCode)
	if _, err := io.Copy(w, resp.Body); err != nil {
		p.logger.Warn("streaming backend response failed", "error", err)
	}
}

// copyHeaders copies response headers, leaving framing headers to the
// local server.
func copyHeaders(dst, src http.Header) {
	for key, values := range src {
		switch key {
		case "Content-Length", "Transfer-Encoding", "Connection":
			continue
		}
		for _, v := range values {
			dst.Add(key, v)
		}
	}
}
