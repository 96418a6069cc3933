package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"loom/internal/services"
)

const defaultHTTPTimeout = 15 * time.Second

// Caller issues JSON requests against one dependency's HTTP API and maps
// response codes onto the shared error classes, so the retry executor can
// tell transient failures from permanent ones.
type Caller struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// Option customizes the caller.
type Option func(*Caller)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Caller) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout overrides the default request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Caller) {
		if timeout > 0 {
			c.httpClient.Timeout = timeout
		}
	}
}

// New constructs a caller for the given API base.
func New(baseURL, apiKey string, opts ...Option) *Caller {
	caller := &Caller{
		baseURL:    strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		apiKey:     strings.TrimSpace(apiKey),
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(caller)
	}
	return caller
}

// BaseURL returns the configured API base.
func (c *Caller) BaseURL() string {
	return c.baseURL
}

// GetJSON issues a GET and decodes the JSON response into out.
func (c *Caller) GetJSON(ctx context.Context, path string, query url.Values, out any) error {
	endpoint, err := c.buildURL(path, query)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%w: build request: %w", services.ErrValidation, err)
	}
	return c.do(req, out)
}

// PostJSON issues a POST with a JSON body and decodes the response into out.
func (c *Caller) PostJSON(ctx context.Context, path string, payload, out any) error {
	endpoint, err := c.buildURL(path, nil)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("%w: encode request: %w", services.ErrValidation, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("%w: build request: %w", services.ErrValidation, err)
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Caller) buildURL(path string, query url.Values) (string, error) {
	if c.baseURL == "" {
		return "", fmt.Errorf("%w: base url not configured", services.ErrConfiguration)
	}
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return "", fmt.Errorf("%w: build url: %w", services.ErrValidation, err)
	}
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	return endpoint, nil
}

func (c *Caller) do(req *http.Request, out any) error {
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		// Connection resets, DNS failures, and client timeouts are all
		// worth retrying.
		return fmt.Errorf("%w: request failed: %w", services.ErrTransient, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return fmt.Errorf("%w: read body: %w", services.ErrTransient, err)
	}

	if err := classifyStatus(resp.StatusCode, body); err != nil {
		return err
	}
	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("%w: decode response: %w", services.ErrValidation, err)
	}
	return nil
}

// classifyStatus maps an HTTP status onto the shared error sentinels.
// Throttling and server-side failures are transient; auth, missing
// resources, and other client errors are permanent.
func classifyStatus(status int, body []byte) error {
	if status < http.StatusBadRequest {
		return nil
	}
	detail := strings.TrimSpace(string(body))
	if len(detail) > 200 {
		detail = detail[:200]
	}
	switch {
	case status == http.StatusTooManyRequests || status >= http.StatusInternalServerError:
		return fmt.Errorf("%w: http %d: %s", services.ErrTransient, status, detail)
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return fmt.Errorf("%w: http %d: %s", services.ErrAuth, status, detail)
	case status == http.StatusNotFound:
		return fmt.Errorf("%w: http %d: %s", services.ErrNotFound, status, detail)
	default:
		return fmt.Errorf("%w: http %d: %s", services.ErrValidation, status, detail)
	}
}
