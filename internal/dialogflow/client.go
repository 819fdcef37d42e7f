// ABOUTME: Authorized HTTP client for the conversational backend's REST API
// ABOUTME: Selects the regional endpoint and forwards requests verbatim

package dialogflow

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"golang.org/x/oauth2/google"
)

// Scope is the OAuth scope requested for backend API calls.
const Scope = "https://www.googleapis.com/auth/dialogflow"

// Client forwards REST calls to the conversational backend using
// Application Default Credentials.
type Client struct {
	httpClient *http.Client
	logger     *slog.Logger

	// baseURL overrides regional endpoint selection; set by tests.
	baseURL string
}

// NewClient builds a client authorized via Application Default
// Credentials.
func NewClient(ctx context.Context, logger *slog.Logger) (*Client, error) {
	httpClient, err := google.DefaultClient(ctx, Scope)
	if err != nil {
		return nil, fmt.Errorf("loading application default credentials: %w", err)
	}
	return newClient(httpClient, "", logger), nil
}

// NewClientWithHTTP builds a client around an existing HTTP client and
// endpoint, bypassing credential loading. Used by tests and private
// endpoint deployments.
func NewClientWithHTTP(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	return newClient(httpClient, baseURL, logger)
}

func newClient(httpClient *http.Client, baseURL string, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		httpClient: httpClient,
		baseURL:    baseURL,
		logger:     logger.With("component", "dialogflow"),
	}
}

// targetURL maps a location and request path to the regional API
// endpoint. The global location uses the bare host; regional locations
// are served from location-prefixed hosts.
func (c *Client) targetURL(location, fullPath string) string {
	if c.baseURL != "" {
		return c.baseURL + fullPath
	}
	if location == "global" {
		return "https://dialogflow.googleapis.com" + fullPath
	}
	return fmt.Sprintf("https://%s-dialogflow.googleapis.com%s", location, fullPath)
}

// Forward sends the request to the backend and returns the raw response.
// fullPath must include the leading slash and any query string. The
// caller owns closing the response body.
func (c *Client) Forward(ctx context.Context, method, location, fullPath string, body io.Reader) (*http.Response, error) {
	url := c.targetURL(location, fullPath)
	c.logger.Debug("forwarding backend call", "method", method, "url", url)

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("building backend request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling backend: %w", err)
	}
	return resp, nil
}
