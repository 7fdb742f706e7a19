package supabase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

var (
	// ErrNotConfigured is returned when the client has no project URL or key
	ErrNotConfigured = errors.New("supabase not configured")

	// ErrRequestFailed is returned when the auth API could not be reached
	ErrRequestFailed = errors.New("supabase request failed")

	// ErrUnauthorized is returned when the access token is rejected
	ErrUnauthorized = errors.New("supabase rejected access token")

	// ErrUnexpectedStatus is returned for any other non-200 response
	ErrUnexpectedStatus = errors.New("unexpected supabase response status")

	// ErrMalformedResponse is returned when the response body cannot be decoded
	ErrMalformedResponse = errors.New("malformed supabase response")
)

const (
	userPath   = "/auth/v1/user"
	healthPath = "/auth/v1/health"

	// maxErrorBody caps how much of an error response is kept for logging
	maxErrorBody = 512
)

// Config holds configuration for the Supabase auth client
type Config struct {
	URL         string
	AnonKey     string
	HTTPTimeout time.Duration
}

// Client talks to the Supabase GoTrue auth API
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
}

// NewClient creates a new Supabase auth client
func NewClient(config Config) *Client {
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 10 * time.Second
	}

	return &Client{
		baseURL: strings.TrimSuffix(config.URL, "/"),
		anonKey: config.AnonKey,
		httpClient: &http.Client{
			Timeout: config.HTTPTimeout,
		},
	}
}

// GetUser fetches the current user for the given access token.
// The returned record is a fresh snapshot and is not cached.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	if c.baseURL == "" || c.anonKey == "" {
		return nil, ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+userPath, nil)
	if err != nil {
		return nil, fmt.Errorf("create user request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrUnauthorized, resp.StatusCode, readErrorBody(resp.Body))
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: status %d, body: %s", ErrUnexpectedStatus, resp.StatusCode, readErrorBody(resp.Body))
	}

	var user User
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}

	return &user, nil
}

// Health checks that the auth API is reachable
func (c *Client) Health(ctx context.Context) error {
	if c.baseURL == "" || c.anonKey == "" {
		return ErrNotConfigured
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("create health request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return nil
}

func readErrorBody(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBody))
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(body))
}
