// Package client is a Go client for the Mistalic HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/harun/mistalic/internal/tracing"
	"github.com/harun/mistalic/pkg/agent"
	"github.com/harun/mistalic/pkg/api"
)

// DefaultBaseURL is where `mistalic serve` listens by default.
const DefaultBaseURL = "http://127.0.0.1:3000"

// TransportError means the server could not be reached or its reply could
// not be read.
type TransportError struct {
	Op  string
	URL string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// APIError is a non-2xx reply.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("server returned %d", e.StatusCode)
	}
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// AsAPIError unwraps err into an *APIError.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr, true
	}
	return nil, false
}

// IsNotFound reports whether err is a 404 reply.
func IsNotFound(err error) bool {
	apiErr, ok := AsAPIError(err)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// Config holds client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration // default: 2m, generation can be slow
}

// Client talks to a running Mistalic server.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a new client.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 2 * time.Minute
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   5 * time.Second,
					KeepAlive: 30 * time.Second,
				}).DialContext,
				MaxIdleConns:    10,
				IdleConnTimeout: 90 * time.Second,
			},
		},
	}
}

// BaseURL returns the server address.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// do sends a JSON request and decodes a JSON reply into out, if non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}) error {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := tracing.GetRequestID(ctx); id != "" {
		req.Header.Set(tracing.RequestIDHeader, id)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &TransportError{Op: method, URL: target, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Op: method, URL: target, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(data)}
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &TransportError{Op: method, URL: target, Err: fmt.Errorf("invalid response body: %w", err)}
	}
	return nil
}

// errorMessage extracts the "error" field of a failure body.
func errorMessage(data []byte) string {
	var body struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(data, &body); err == nil && body.Error != "" {
		return body.Error
	}
	return strings.TrimSpace(string(data))
}

// Health fetches server health.
func (c *Client) Health(ctx context.Context) (*api.HealthResponse, error) {
	var resp api.HealthResponse
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Agents lists all agents.
func (c *Client) Agents(ctx context.Context) ([]agent.Record, error) {
	var resp struct {
		Agents []agent.Record `json:"agents"`
	}
	if err := c.do(ctx, http.MethodGet, "/agents", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Agents, nil
}

type agentResponse struct {
	Success bool         `json:"success"`
	Agent   agent.Record `json:"agent"`
}

// CreateAgent creates an agent.
func (c *Client) CreateAgent(ctx context.Context, params agent.CreateParams) (agent.Record, error) {
	var resp agentResponse
	if err := c.do(ctx, http.MethodPost, "/agents", nil, params, &resp); err != nil {
		return agent.Record{}, err
	}
	return resp.Agent, nil
}

// UpdateAgent applies a partial update.
func (c *Client) UpdateAgent(ctx context.Context, params agent.UpdateParams) (agent.Record, error) {
	var resp agentResponse
	if err := c.do(ctx, http.MethodPut, "/agents", nil, params, &resp); err != nil {
		return agent.Record{}, err
	}
	return resp.Agent, nil
}

// DeleteAgent removes an agent.
func (c *Client) DeleteAgent(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/agents", url.Values{"id": {id}}, nil, nil)
}

// PublishAgent registers the agent declared in a workspace file. An empty
// path publishes the active file.
func (c *Client) PublishAgent(ctx context.Context, path string) (agent.Record, error) {
	var query url.Values
	if path != "" {
		query = url.Values{"path": {path}}
	}
	var resp agentResponse
	if err := c.do(ctx, http.MethodPost, "/workspace/publish", query, nil, &resp); err != nil {
		return agent.Record{}, err
	}
	return resp.Agent, nil
}

// Models returns the model catalog.
func (c *Client) Models(ctx context.Context) ([]agent.Model, error) {
	var resp struct {
		Models []agent.Model `json:"models"`
	}
	if err := c.do(ctx, http.MethodGet, "/models", nil, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Models, nil
}

// Generate sends a prompt to the generation proxy and returns the text.
func (c *Client) Generate(ctx context.Context, req agent.GenerateRequest) (string, error) {
	var resp api.GenerateResponse
	if err := c.do(ctx, http.MethodPost, "/mistral", nil, req, &resp); err != nil {
		return "", err
	}
	if !resp.Success {
		return "", &APIError{StatusCode: http.StatusOK, Message: resp.Error}
	}
	return resp.Text, nil
}
