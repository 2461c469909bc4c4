// Package client is the console's HTTP client for the SSVirt CloudAPI
// session and query endpoints. It owns no retry policy beyond the request
// timeout; callers decide what a failed fetch means.
package client

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/mhrivnak/ssvirt-console/pkg/session"
)

const sessionsPath = "/cloudapi/1.0.0/sessions"

// ErrUnauthorized is returned for 401 responses: bad credentials on login,
// or an expired/invalidated token on refresh.
var ErrUnauthorized = errors.New("cloudapi: unauthorized")

// APIError is the structured error body the CloudAPI returns.
type APIError struct {
	Code    int    `json:"code"`
	Type    string `json:"error"`
	Message string `json:"message"`
	Details string `json:"details,omitempty"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s (%s)", e.Type, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Client talks to one CloudAPI endpoint.
type Client struct {
	base string
	http *http.Client
}

// New creates a client for the CloudAPI at baseURL. insecure skips TLS
// verification for lab endpoints with self-signed certificates.
func New(baseURL string, timeout time.Duration, insecure bool) (*Client, error) {
	parsed, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid CloudAPI base URL %q: %w", baseURL, err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, fmt.Errorf("invalid CloudAPI base URL %q: scheme must be http or https", baseURL)
	}

	transport := http.DefaultTransport
	if insecure {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}, nil
}

// CreateSession logs in with Basic auth and returns the session plus the
// bearer token the CloudAPI hands back in the Authorization response header.
func (c *Client) CreateSession(ctx context.Context, username, password string) (*session.Session, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+sessionsPath, nil)
	if err != nil {
		return nil, "", err
	}
	req.SetBasicAuth(username, password)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, "", fmt.Errorf("cloudapi: create session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", c.decodeError(resp)
	}

	var sess session.Session
	if err := json.NewDecoder(resp.Body).Decode(&sess); err != nil {
		return nil, "", fmt.Errorf("cloudapi: decode session: %w", err)
	}

	token := strings.TrimPrefix(resp.Header.Get("Authorization"), "Bearer ")
	if token == "" {
		return nil, "", errors.New("cloudapi: no bearer token in session response")
	}

	return &sess, token, nil
}

// GetSession refreshes the session state for an existing token. It is
// idempotent and is what the console calls to re-derive capabilities.
func (c *Client) GetSession(ctx context.Context, token, sessionID string) (*session.Session, error) {
	body, err := c.get(ctx, token, sessionsPath+"/"+url.PathEscape(sessionID))
	if err != nil {
		return nil, err
	}

	var sess session.Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, fmt.Errorf("cloudapi: decode session: %w", err)
	}
	return &sess, nil
}

// DeleteSession invalidates the session server-side. Best effort: callers
// tear down local state regardless of the result.
func (c *Client) DeleteSession(ctx context.Context, token, sessionID string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, c.base+sessionsPath+"/"+url.PathEscape(sessionID), nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("cloudapi: delete session: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusNoContent && resp.StatusCode != http.StatusOK {
		return c.decodeError(resp)
	}
	return nil
}

// ListOrganizations fetches the organizations visible to the token's
// session. The raw page is passed through to the browser unmodified.
func (c *Client) ListOrganizations(ctx context.Context, token string) (json.RawMessage, error) {
	return c.get(ctx, token, "/cloudapi/1.0.0/orgs")
}

// ListVDCs fetches the VDCs visible to the token's session.
func (c *Client) ListVDCs(ctx context.Context, token string) (json.RawMessage, error) {
	return c.get(ctx, token, "/cloudapi/1.0.0/vdcs")
}

func (c *Client) get(ctx context.Context, token, path string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.base+path, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("cloudapi: GET %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.decodeError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("cloudapi: read response: %w", err)
	}
	return body, nil
}

func (c *Client) decodeError(resp *http.Response) error {
	if resp.StatusCode == http.StatusUnauthorized {
		return ErrUnauthorized
	}

	var apiErr APIError
	if err := json.NewDecoder(resp.Body).Decode(&apiErr); err == nil && apiErr.Message != "" {
		apiErr.Code = resp.StatusCode
		return &apiErr
	}
	return fmt.Errorf("cloudapi: unexpected status %d", resp.StatusCode)
}
