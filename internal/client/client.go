// Package client talks to a running bot's admin API.
//
// The CLI uses it with --server so that reloads and toggles reach the live
// dispatch table instead of a fresh process. Requests carry a short-lived
// JWT minted from the shared admin secret.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/salafibot/salafibot/internal/httputil"
	"github.com/salafibot/salafibot/internal/middleware"
	"github.com/salafibot/salafibot/internal/registry"
	"github.com/salafibot/salafibot/internal/types"
)

const tokenTTL = 5 * time.Minute

// APIError is a non-2xx response from the admin API.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("admin API returned %d: %s", e.Status, e.Message)
}

// Client communicates with the admin API.
type Client struct {
	baseURL string
	secret  string
	http    *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

// New creates a client for the API at baseURL (e.g. http://127.0.0.1:8787).
func New(baseURL, secret string) (*Client, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("server URL not configured")
	}
	if secret == "" {
		return nil, fmt.Errorf("admin secret not configured")
	}
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("invalid server URL: %w", err)
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		secret:  secret,
		http:    &http.Client{Timeout: time.Minute},
	}, nil
}

func (c *Client) bearer() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.token != "" && time.Now().Before(c.expiresAt) {
		return c.token, nil
	}
	token, err := middleware.SignToken(c.secret, "cli", tokenTTL)
	if err != nil {
		return "", err
	}
	c.token = token
	// Refresh well before the server would reject it
	c.expiresAt = time.Now().Add(tokenTTL - 30*time.Second)
	return token, nil
}

// doJSON sends an authed request and decodes the JSON response into dest.
func (c *Client) doJSON(ctx context.Context, method, path string, reqBody any, dest any) error {
	var body io.Reader
	if reqBody != nil {
		b, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	token, err := c.bearer()
	if err != nil {
		return fmt.Errorf("sign admin token: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		apiErr := &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(b))}
		var er httputil.ErrorResponse
		if json.Unmarshal(b, &er) == nil && er.Message != "" {
			apiErr.Message = er.Message
		}
		return apiErr
	}

	if dest != nil {
		if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}

// ListCommands returns every command record with the counts.
func (c *Client) ListCommands(ctx context.Context) (*types.ListCommandsResponse, error) {
	var resp types.ListCommandsResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/commands", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// GetCommand returns the record for name.
func (c *Client) GetCommand(ctx context.Context, name string) (*registry.Record, error) {
	var rec registry.Record
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/commands/"+url.PathEscape(name), nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateCommand registers a new enabled command in the running bot's catalog.
func (c *Client) CreateCommand(ctx context.Context, name, module string) (*registry.Record, error) {
	var rec registry.Record
	req := types.CreateCommandRequest{Name: name, Module: module}
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/commands", req, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

func (c *Client) Count(ctx context.Context) (int, error) {
	var resp types.CountResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/commands/count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) EnabledCount(ctx context.Context) (int, error) {
	var resp types.CountResponse
	if err := c.doJSON(ctx, http.MethodGet, "/api/v1/commands/enabled-count", nil, &resp); err != nil {
		return 0, err
	}
	return resp.Count, nil
}

func (c *Client) SetEnabled(ctx context.Context, name string, enabled bool) (*registry.Record, error) {
	op := "disable"
	if enabled {
		op = "enable"
	}
	var rec registry.Record
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/commands/"+url.PathEscape(name)+"/"+op, nil, &rec); err != nil {
		return nil, err
	}
	return &rec, nil
}

// Reload asks the running bot to re-import names.
func (c *Client) Reload(ctx context.Context, names ...string) (*types.ReloadResponse, error) {
	var resp types.ReloadResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/commands/reload", types.ReloadRequest{Names: names}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeployAll runs a full deployment inside the running bot.
func (c *Client) DeployAll(ctx context.Context, global, dedup bool) (*types.DeployResponse, error) {
	var resp types.DeployResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/v1/commands/deploy", types.DeployRequest{Global: global, Dedup: dedup}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeployCommand redeploys a single command from the running bot.
func (c *Client) DeployCommand(ctx context.Context, name string, global bool) (*types.DeployResponse, error) {
	var resp types.DeployResponse
	path := "/api/v1/commands/" + url.PathEscape(name) + "/deploy"
	if err := c.doJSON(ctx, http.MethodPost, path, types.DeployRequest{Global: global}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Health checks the public health endpoint.
func (c *Client) Health(ctx context.Context) (*types.HealthResponse, error) {
	var resp types.HealthResponse
	if err := c.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}
