package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// GoTrueClient talks to the Supabase auth (GoTrue) REST API.
type GoTrueClient struct {
	baseURL string
	anonKey string
	http    *http.Client
}

func NewGoTrueClient(supabaseURL, anonKey string, timeout time.Duration) *GoTrueClient {
	return &GoTrueClient{
		baseURL: strings.TrimRight(supabaseURL, "/") + "/auth/v1",
		anonKey: anonKey,
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *GoTrueClient) SignUp(ctx context.Context, email, password string) (*Session, error) {
	return c.post(ctx, "/signup", email, password)
}

func (c *GoTrueClient) SignIn(ctx context.Context, email, password string) (*Session, error) {
	return c.post(ctx, "/token?grant_type=password", email, password)
}

func (c *GoTrueClient) post(ctx context.Context, path, email, password string) (*Session, error) {
	payload, err := json.Marshal(map[string]string{"email": email, "password": password})
	if err != nil {
		return nil, fmt.Errorf("encoding credentials: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.anonKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailure, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("%w: reading response: %v", ErrProviderFailure, err)
	}

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
	case resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests:
		return nil, fmt.Errorf("%w: status %d", ErrInvalidCredentials, resp.StatusCode)
	default:
		return nil, fmt.Errorf("%w: status %d", ErrProviderFailure, resp.StatusCode)
	}

	var session Session
	if err := json.Unmarshal(body, &session); err != nil {
		return nil, fmt.Errorf("%w: decoding session: %v", ErrProviderFailure, err)
	}
	return &session, nil
}
