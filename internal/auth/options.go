// ABOUTME: Pluggable credential checks guarding session-token registration
// ABOUTME: Supports skip (trusted network) and Salesforce userinfo validation

package auth

import (
	"context"
	"fmt"
	"net/http"
	"time"
)

// DefaultSalesforceUserInfoURL is the endpoint used to validate Salesforce
// access tokens when no override is configured.
const DefaultSalesforceUserInfoURL = "https://login.salesforce.com/services/oauth2/userinfo"

// RegistrationChecker validates the caller-supplied credential presented
// when registering for a session token. A new frontend platform plugs in
// by adding an implementation and a config option.
type RegistrationChecker interface {
	Check(ctx context.Context, credential string) (bool, error)
}

// NewRegistrationChecker selects a checker for the configured auth option.
func NewRegistrationChecker(option, salesforceURL string) (RegistrationChecker, error) {
	switch option {
	case "skip":
		return SkipChecker{}, nil
	case "salesforce":
		if salesforceURL == "" {
			salesforceURL = DefaultSalesforceUserInfoURL
		}
		return &SalesforceChecker{
			url:    salesforceURL,
			client: &http.Client{Timeout: 10 * time.Second},
		}, nil
	default:
		return nil, fmt.Errorf("unknown auth option %q", option)
	}
}

// SkipChecker accepts every registration. For deployments whose perimeter
// already authenticates callers.
type SkipChecker struct{}

// Check always succeeds.
func (SkipChecker) Check(context.Context, string) (bool, error) {
	return true, nil
}

// SalesforceChecker validates a Salesforce access token against the
// userinfo endpoint.
type SalesforceChecker struct {
	url    string
	client *http.Client
}

// Check presents the credential as a bearer token; any 2xx response means
// the token is live.
func (c *SalesforceChecker) Check(ctx context.Context, credential string) (bool, error) {
	if credential == "" {
		return false, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return false, fmt.Errorf("building userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+credential)

	resp, err := c.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("calling userinfo endpoint: %w", err)
	}
	defer resp.Body.Close()

	return resp.StatusCode >= 200 && resp.StatusCode < 300, nil
}
