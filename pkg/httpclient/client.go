// Package httpclient is the JSON-over-HTTP transport shared by the CMS and search
// engine adapters.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/fern/pkg/metrics"
)

const (
	// DefaultTimeout is the default request timeout
	DefaultTimeout = 30 * time.Second

	// MaxResponseSize is the maximum response body size (10MB)
	MaxResponseSize = 10 * 1024 * 1024

	// MaxRequestSize is the maximum request body size (20MB, bulk document writes)
	MaxRequestSize = 20 * 1024 * 1024
)

// Config holds HTTP client configuration
type Config struct {
	// Upstream labels metrics and logs, e.g. "cms" or "fern".
	Upstream        string
	BaseURL         string
	BearerToken     string
	Timeout         time.Duration
	MaxIdleConns    int
	IdleConnTimeout time.Duration
}

// Client wraps the HTTP client with logging, metrics and size limits
type Client struct {
	client   *http.Client
	baseURL  string
	token    string
	upstream string
	logger   ectologger.Logger
}

// NewClient creates a new HTTP client
func NewClient(cfg Config, logger ectologger.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxIdleConns <= 0 {
		cfg.MaxIdleConns = 100
	}
	if cfg.IdleConnTimeout <= 0 {
		cfg.IdleConnTimeout = 90 * time.Second
	}

	return &Client{
		client: &http.Client{
			Transport: &http.Transport{
				MaxIdleConns:    cfg.MaxIdleConns,
				IdleConnTimeout: cfg.IdleConnTimeout,
			},
			Timeout: cfg.Timeout,
		},
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		token:    cfg.BearerToken,
		upstream: cfg.Upstream,
		logger:   logger,
	}
}

// BaseURL returns the configured base URL without a trailing slash.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Response represents an HTTP response
type Response struct {
	StatusCode int
	Body       []byte
	Duration   time.Duration
}

// IsSuccess reports a 2xx status.
func (r *Response) IsSuccess() bool {
	return r.StatusCode >= 200 && r.StatusCode < 300
}

// Decode unmarshals the body into v.
func (r *Response) Decode(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// StatusError describes a non-2xx response.
type StatusError struct {
	Upstream   string
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s %s returned %d: %s", e.Upstream, e.Method, e.Path, e.StatusCode, e.Body)
}

// Do sends body (JSON-encoded when non-nil) to baseURL+path and reads the response.
// Transport failures return an error; HTTP error statuses are returned as a Response
// for the caller to interpret.
func (c *Client) Do(ctx context.Context, method, path string, query url.Values, body any) (*Response, error) {
	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request: %w", err)
		}
		if len(data) > MaxRequestSize {
			return nil, fmt.Errorf("request too large: %d bytes (max %d)", len(data), MaxRequestSize)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	resp, err := c.client.Do(req)
	duration := time.Since(start)
	metrics.HTTPClientRequestDuration.WithLabelValues(c.upstream, method).Observe(duration.Seconds())
	if err != nil {
		metrics.HTTPClientRequestsTotal.WithLabelValues(c.upstream, method, "error").Inc()
		c.logger.WithContext(ctx).WithError(err).Errorf("HTTP request failed: %s %s", method, path)
		return nil, fmt.Errorf("%s request failed: %w", c.upstream, err)
	}
	defer resp.Body.Close()
	metrics.HTTPClientRequestsTotal.WithLabelValues(c.upstream, method, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.ContentLength > MaxResponseSize {
		return nil, fmt.Errorf("response too large: %d bytes (max %d)", resp.ContentLength, MaxResponseSize)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize+1))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if len(data) > MaxResponseSize {
		return nil, fmt.Errorf("response body too large: %d bytes (max %d)", len(data), MaxResponseSize)
	}

	c.logger.WithContext(ctx).Debugf("HTTP %s %s -> %d (%s)", method, path, resp.StatusCode, duration)

	return &Response{
		StatusCode: resp.StatusCode,
		Body:       data,
		Duration:   duration,
	}, nil
}

// DoJSON is Do followed by a status check and, when out is non-nil, a decode.
func (c *Client) DoJSON(ctx context.Context, method, path string, query url.Values, body, out any) error {
	resp, err := c.Do(ctx, method, path, query, body)
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return c.statusError(method, path, resp)
	}
	if out == nil || len(resp.Body) == 0 {
		return nil
	}
	return resp.Decode(out)
}

func (c *Client) statusError(method, path string, resp *Response) error {
	body := string(resp.Body)
	if len(body) > 512 {
		body = body[:512]
	}
	return &StatusError{
		Upstream:   c.upstream,
		Method:     method,
		Path:       path,
		StatusCode: resp.StatusCode,
		Body:       body,
	}
}
