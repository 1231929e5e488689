package httputil

import (
	"context"
	"io"
	"net/http"
	"time"

	"github.com/matzehuels/retrocausal/pkg/errors"
	"github.com/matzehuels/retrocausal/pkg/observability"
)

const httpTimeout = 10 * time.Second

// maxBody bounds how much of a feed response is read.
const maxBody = 8 << 20

// Client fetches feed payloads over HTTP with retries and default headers.
type Client struct {
	http    *http.Client
	headers map[string]string
	policy  Policy
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) ClientOption { return func(c *Client) { c.http = hc } }

// WithHeaders sets headers sent with every request.
func WithHeaders(h map[string]string) ClientOption { return func(c *Client) { c.headers = h } }

// WithPolicy sets the retry policy.
func WithPolicy(p Policy) ClientOption { return func(c *Client) { c.policy = p } }

// NewClient creates a Client with a 10 second timeout and [DefaultPolicy].
func NewClient(opts ...ClientOption) *Client {
	c := &Client{http: &http.Client{Timeout: httpTimeout}, policy: DefaultPolicy}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch GETs url and returns the body, retrying transient failures.
func (c *Client) Fetch(ctx context.Context, url string) ([]byte, error) {
	var data []byte
	err := Retry(ctx, c.policy, func() error {
		var err error
		data, err = c.get(ctx, url)
		return err
	})
	if err != nil {
		if ctx.Err() != nil {
			return nil, errors.Wrap(errors.ErrCodeTimeout, err, "fetch %s", url)
		}
		return nil, err
	}
	return data, nil
}

func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeInvalidInput, err, "build request for %s", url)
	}
	req.Header.Set("Accept", "application/json")
	for k, v := range c.headers {
		req.Header.Set(k, v)
	}

	hooks := observability.HTTP()
	hooks.OnRequest(ctx, req.Method, req.URL.Host, req.URL.Path)
	start := time.Now()

	resp, err := c.http.Do(req)
	if err != nil {
		hooks.OnError(ctx, req.Method, req.URL.Host, req.URL.Path, err)
		return nil, &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "GET %s", url)}
	}
	defer resp.Body.Close()
	hooks.OnResponse(ctx, req.Method, req.URL.Host, req.URL.Path, resp.StatusCode, time.Since(start))

	if err := CheckStatus(resp.StatusCode); err != nil {
		return nil, err
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, &RetryableError{Err: errors.Wrap(errors.ErrCodeNetwork, err, "read %s", url)}
	}
	return data, nil
}

// CheckStatus maps an HTTP status to an error. 5xx and 429 are retryable.
func CheckStatus(code int) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusNotFound:
		return errors.New(errors.ErrCodeNotFound, "status %d", code)
	case code == http.StatusTooManyRequests || code >= 500:
		return &RetryableError{Err: errors.New(errors.ErrCodeNetwork, "status %d", code)}
	default:
		return errors.New(errors.ErrCodeNetwork, "status %d", code)
	}
}
