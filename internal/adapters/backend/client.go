// Package backend is the HTTP client shared by the hosted auth and data adapters.
// It adds the project key to every request and decodes the service's error bodies.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/net/publicsuffix"
	"golang.org/x/oauth2"
)

const maxErrorBody = 64 << 10

// Config holds the service endpoint and key.
type Config struct {
	URL     string
	AnonKey string
	// Timeout bounds each request; default 10s.
	Timeout time.Duration
	// HTTPClient overrides the transport, mainly for tests.
	HTTPClient *http.Client
	Logger     *slog.Logger
}

// Client talks to one hosted project.
type Client struct {
	base    *url.URL
	anonKey string
	http    *http.Client
	logger  *slog.Logger
}

// NewClient validates cfg and builds a Client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.URL) == "" {
		return nil, fmt.Errorf("backend: URL is required")
	}
	if strings.TrimSpace(cfg.AnonKey) == "" {
		return nil, fmt.Errorf("backend: anon key is required")
	}
	base, err := url.Parse(strings.TrimRight(cfg.URL, "/"))
	if err != nil {
		return nil, fmt.Errorf("backend: parse URL: %w", err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("backend: URL must be http or https, got %q", cfg.URL)
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
		if err != nil {
			return nil, fmt.Errorf("backend: cookie jar: %w", err)
		}
		hc = &http.Client{Timeout: timeout, Jar: jar}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:    base,
		anonKey: cfg.AnonKey,
		http:    hc,
		logger:  logger.With("component", "backend_client"),
	}, nil
}

// BaseURL returns the project URL without a trailing slash.
func (c *Client) BaseURL() string { return c.base.String() }

// Request is one call against the service.
type Request struct {
	Method string
	// Path is appended to the project URL, e.g. "/auth/v1/token".
	Path  string
	Query url.Values
	// Body is encoded as JSON when non-nil.
	Body any
	// Token authorizes the call as a user. Nil sends the anon key as bearer.
	Token  *oauth2.Token
	Header http.Header
	// Out receives the decoded JSON response when non-nil.
	Out any
}

// Do sends req and decodes the response. Non-2xx replies become *APIError.
func (c *Client) Do(ctx context.Context, req Request) error {
	u := *c.base
	u.Path = c.base.Path + req.Path
	if len(req.Query) > 0 {
		u.RawQuery = req.Query.Encode()
	}

	var body io.Reader
	if req.Body != nil {
		raw, err := json.Marshal(req.Body)
		if err != nil {
			return fmt.Errorf("encode %s body: %w", req.Path, err)
		}
		body = bytes.NewReader(raw)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.Method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	for k, vs := range req.Header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Accept", "application/json")
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.Token != nil && req.Token.AccessToken != "" {
		req.Token.SetAuthHeader(httpReq)
	} else {
		httpReq.Header.Set("Authorization", "Bearer "+c.anonKey)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%s %s: %w", req.Method, req.Path, err)
	}
	defer resp.Body.Close()
	c.logger.DebugContext(ctx, "backend call",
		"method", req.Method,
		"path", req.Path,
		"status", resp.StatusCode,
		"duration_ms", time.Since(start).Milliseconds(),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return decodeAPIError(resp.StatusCode, raw)
	}
	if req.Out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(req.Out); err != nil && err != io.EOF {
		return fmt.Errorf("decode %s response: %w", req.Path, err)
	}
	return nil
}
