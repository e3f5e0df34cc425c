package authapi

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

// Endpoints are the paths HTTPClient calls, relative to the base URL.
type Endpoints struct {
	Login    string
	Register string
	Me       string
	Refresh  string
	Logout   string
}

// DefaultEndpoints returns the standard endpoint layout.
func DefaultEndpoints() Endpoints {
	return Endpoints{
		Login:    "/api/auth",
		Register: "/api/auth/register",
		Me:       "/api/auth/me",
		Refresh:  "/api/auth/refresh",
		Logout:   "/api/auth/logout",
	}
}

const maxResponseBytes = 1 << 20

// HTTPClient implements Client over JSON/HTTP.
type HTTPClient struct {
	baseURL   string
	endpoints Endpoints
	http      *http.Client
}

// HTTPOption configures an HTTPClient.
type HTTPOption func(*HTTPClient)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(c *http.Client) HTTPOption {
	return func(h *HTTPClient) {
		if c != nil {
			h.http = c
		}
	}
}

// WithEndpoints overrides endpoint paths. Empty fields keep their defaults.
func WithEndpoints(e Endpoints) HTTPOption {
	return func(h *HTTPClient) {
		if e.Login != "" {
			h.endpoints.Login = e.Login
		}
		if e.Register != "" {
			h.endpoints.Register = e.Register
		}
		if e.Me != "" {
			h.endpoints.Me = e.Me
		}
		if e.Refresh != "" {
			h.endpoints.Refresh = e.Refresh
		}
		if e.Logout != "" {
			h.endpoints.Logout = e.Logout
		}
	}
}

// NewHTTPClient returns a client for the server at baseURL.
func NewHTTPClient(baseURL string, opts ...HTTPOption) *HTTPClient {
	h := &HTTPClient{
		baseURL:   strings.TrimRight(baseURL, "/"),
		endpoints: DefaultEndpoints(),
		http:      &http.Client{Timeout: 15 * time.Second},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Login implements Client.
func (h *HTTPClient) Login(ctx context.Context, email, password string) (Tokens, error) {
	var out Tokens
	body := map[string]string{"email": email, "password": password}
	err := h.do(ctx, http.MethodPost, h.endpoints.Login, "", body, &out)
	return out, err
}

// Register implements Client.
func (h *HTTPClient) Register(ctx context.Context, in RegisterInput) (Tokens, error) {
	var out Tokens
	err := h.do(ctx, http.MethodPost, h.endpoints.Register, "", in, &out)
	return out, err
}

// Me implements Client.
func (h *HTTPClient) Me(ctx context.Context, accessToken string) (User, error) {
	var out struct {
		User User `json:"user"`
	}
	err := h.do(ctx, http.MethodGet, h.endpoints.Me, accessToken, nil, &out)
	return out.User, err
}

// Refresh implements Client.
func (h *HTTPClient) Refresh(ctx context.Context, refreshToken string) (Tokens, error) {
	var out Tokens
	body := map[string]string{"refreshToken": refreshToken}
	err := h.do(ctx, http.MethodPost, h.endpoints.Refresh, "", body, &out)
	return out, err
}

// Logout implements Client.
func (h *HTTPClient) Logout(ctx context.Context, accessToken, refreshToken string) error {
	body := map[string]string{"refreshToken": refreshToken}
	return h.do(ctx, http.MethodPost, h.endpoints.Logout, accessToken, body, nil)
}

func (h *HTTPClient) do(ctx context.Context, method, path, bearer string, in, out any) error {
	var reader io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, h.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}

	resp, err := h.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: read response: %v", ErrNetwork, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrNetwork, err)
	}
	return nil
}
