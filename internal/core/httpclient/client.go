package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"parceltracker/internal/core/logger"
	"parceltracker/internal/core/proxy"

	"go.uber.org/zap"
)

// StatusError is returned when a carrier answers with an HTTP error status
// after all retry attempts. The body is preserved so callers can surface the
// carrier's own error description.
type StatusError struct {
	// StatusCode is the final HTTP status.
	StatusCode int
	// Body is the raw response body, possibly empty.
	Body []byte
}

// Error implements the error interface.
func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d", e.StatusCode)
}

// ProviderMessage extracts a human-readable error description from the
// response body. JSON bodies are probed for the usual message keys; anything
// else is returned as trimmed text, capped to keep diagnostics short.
func (e *StatusError) ProviderMessage() string {
	const maxLen = 200

	var payload map[string]any
	if json.Unmarshal(e.Body, &payload) == nil {
		for _, key := range []string{"message", "detail", "title", "error_description", "error"} {
			if v, ok := payload[key].(string); ok && v != "" {
				return v
			}
		}
	}

	text := strings.TrimSpace(string(e.Body))
	if len(text) > maxLen {
		text = text[:maxLen]
	}
	return text
}

// Response is a fully-read HTTP response.
type Response struct {
	// StatusCode is the HTTP status of the final response.
	StatusCode int
	// Header holds the response headers.
	Header http.Header
	// Body is the complete response body.
	Body []byte
}

// IsJSON reports whether the response declares a JSON content type.
// Several carriers answer tracking misses with HTML or redirects instead of
// an error status; adapters use this to treat those as "no data".
func (r *Response) IsJSON() bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if err != nil {
		return false
	}
	return mediaType == "application/json" || strings.HasSuffix(mediaType, "+json")
}

// JSON unmarshals the body into v.
func (r *Response) JSON(v any) error {
	if err := json.Unmarshal(r.Body, v); err != nil {
		return fmt.Errorf("failed to decode response body: %w", err)
	}
	return nil
}

// LoggingRoundTripper captures request details for debugging.
type LoggingRoundTripper struct {
	// Proxied is the underlying RoundTripper to execute the request.
	Proxied http.RoundTripper
}

// RoundTrip executes the request and logs details.
func (lrt *LoggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	start := time.Now()

	logger.Get().Debug("HTTP Request Started",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
	)

	resp, err := lrt.Proxied.RoundTrip(req)

	duration := time.Since(start)

	if err != nil {
		logger.Get().Error("HTTP Request Failed",
			zap.String("method", req.Method),
			zap.String("url", req.URL.String()),
			zap.Duration("duration", duration),
			zap.Error(err),
		)
		return nil, err
	}

	logger.Get().Debug("HTTP Request Completed",
		zap.String("method", req.Method),
		zap.String("url", req.URL.String()),
		zap.Int("status_code", resp.StatusCode),
		zap.Duration("duration", duration),
	)

	return resp, nil
}

// Client is the shared outbound transport for carrier adapters. It retries
// transient failures (network errors and 5xx statuses) with exponential
// backoff and converts persistent error statuses into *StatusError.
// Redirects are not followed: some carriers signal "not found" with a
// redirect to an HTML page, and adapters need to see that as-is.
type Client struct {
	httpc       *http.Client
	maxAttempts int
	backoffBase time.Duration
	logger      *zap.Logger
}

// New creates a Client with the given per-request timeout and attempt
// limit. When proxyCfg is enabled, all requests go through the proxy.
func New(timeout time.Duration, maxAttempts int, proxyCfg proxy.Settings) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	transport := http.DefaultTransport
	if pf := proxyCfg.ProxyFunc(); pf != nil {
		transport = &http.Transport{Proxy: pf}
	}
	return &Client{
		httpc: &http.Client{
			Transport: &LoggingRoundTripper{
				Proxied: transport,
			},
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		maxAttempts: maxAttempts,
		backoffBase: 500 * time.Millisecond,
		logger:      logger.Named("httpclient"),
	}
}

// NewWith creates a Client around an externally configured http.Client.
// Used by tests to inject a server-bound client.
func NewWith(httpc *http.Client, maxAttempts int, backoffBase time.Duration) *Client {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Client{
		httpc:       httpc,
		maxAttempts: maxAttempts,
		backoffBase: backoffBase,
		logger:      logger.Named("httpclient"),
	}
}

// Get performs a GET request with optional query parameters and headers.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, headers http.Header) (*Response, error) {
	return c.do(ctx, http.MethodGet, rawURL, params, nil, headers)
}

// PostForm performs a POST request with a URL-encoded form body.
func (c *Client) PostForm(ctx context.Context, rawURL string, form url.Values, headers http.Header) (*Response, error) {
	if headers == nil {
		headers = http.Header{}
	}
	headers.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.do(ctx, http.MethodPost, rawURL, nil, []byte(form.Encode()), headers)
}

func (c *Client) do(ctx context.Context, method, rawURL string, params url.Values, body []byte, headers http.Header) (*Response, error) {
	if len(params) > 0 {
		sep := "?"
		if strings.Contains(rawURL, "?") {
			sep = "&"
		}
		rawURL += sep + params.Encode()
	}

	var lastErr error
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if attempt > 1 {
			backoff := c.backoffBase << (attempt - 2)
			c.logger.Debug("Retrying request",
				zap.String("url", rawURL),
				zap.Int("attempt", attempt),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, err := c.attempt(ctx, method, rawURL, body, headers)
		if err != nil {
			// Network-level failure: retryable unless the context ended.
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
			continue
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			lastErr = &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
			continue
		}

		// Client errors (4xx) are not retryable: the carrier has made up
		// its mind about this request.
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, &StatusError{StatusCode: resp.StatusCode, Body: resp.Body}
		}

		return resp, nil
	}

	return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
}

func (c *Client) attempt(ctx context.Context, method, rawURL string, body []byte, headers http.Header) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	for key, values := range headers {
		for _, value := range values {
			req.Header.Add(key, value)
		}
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
	}, nil
}
