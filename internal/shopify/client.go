package shopify

import (
	"bytes"
	"context"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/quipper/poc/shopify/be/pkg/common/logger"
)

const (
	defaultBaseDelay   = 500 * time.Millisecond
	defaultMaxAttempts = 3
	defaultCallTimeout = 15 * time.Second
	maxJitter          = 100 * time.Millisecond

	// Leaky-bucket usage header, e.g. "32/40".
	callLimitHeader = "X-Shopify-Shop-Api-Call-Limit"

	// Utilization at which we start slowing down before Shopify does.
	throttleThreshold = 0.8

	maxResponseBody = 20 << 20
)

// Request describes one outbound Admin API call.
type Request struct {
	Method  string
	URL     string
	Headers map[string]string
	Body    []byte
	// NoRetry disables retries for calls whose side effects are not safely
	// repeatable from our point of view (the code->token exchange).
	NoRetry bool
}

// Response is the terminal response of a call, body fully read.
type Response struct {
	StatusCode int
	Headers    http.Header
	Body       []byte
}

// Client issues Admin API requests with bounded retries on 429/5xx,
// exponential backoff with jitter, and a pre-emptive delay when the
// leaky-bucket utilization reported by the previous response runs high.
type Client struct {
	httpClient  *http.Client
	baseDelay   time.Duration
	maxAttempts int
	callTimeout time.Duration

	mu          sync.Mutex
	utilization float64
}

// ClientOption customizes a Client.
type ClientOption func(*Client)

// WithRetryPolicy sets the backoff base delay and the total attempt ceiling.
func WithRetryPolicy(baseDelay time.Duration, maxAttempts int) ClientOption {
	return func(c *Client) {
		if baseDelay > 0 {
			c.baseDelay = baseDelay
		}
		if maxAttempts > 0 {
			c.maxAttempts = maxAttempts
		}
	}
}

// WithCallTimeout bounds each individual HTTP call so a hung upstream
// connection cannot stall a handshake or page fetch indefinitely.
func WithCallTimeout(d time.Duration) ClientOption {
	return func(c *Client) {
		if d > 0 {
			c.callTimeout = d
		}
	}
}

// WithHTTPClient swaps the underlying transport, mainly for tests.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient:  &http.Client{},
		baseDelay:   defaultBaseDelay,
		maxAttempts: defaultMaxAttempts,
		callTimeout: defaultCallTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Do runs the request to completion. 2xx responses pass through unchanged;
// bodies are never inspected here. 429/5xx responses are retried up to the
// attempt ceiling (unless req.NoRetry), then surfaced as an *UpstreamError
// carrying the last status and body. Other statuses fail without retrying.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	attempts := c.maxAttempts
	if req.NoRetry {
		attempts = 1
	}

	var last *Response
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			delay := c.backoff(attempt - 1)
			logger.Debug("shopify: retrying %s %s in %s (attempt %d/%d)", req.Method, req.URL, delay, attempt+1, attempts)
			if err := sleep(ctx, delay); err != nil {
				return nil, err
			}
		}
		if wait := c.throttleDelay(); wait > 0 {
			logger.Debug("shopify: bucket utilization high, pre-emptive delay %s", wait)
			if err := sleep(ctx, wait); err != nil {
				return nil, err
			}
		}

		resp, err := c.send(ctx, req)
		if err != nil {
			return nil, err
		}
		c.observe(resp)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			return resp, nil
		}
		last = resp
		if resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			break
		}
	}
	return nil, &UpstreamError{StatusCode: last.StatusCode, Body: string(last.Body)}
}

func (c *Client) send(ctx context.Context, req Request) (*Response, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.callTimeout)
	defer cancel()

	var body io.Reader
	if len(req.Body) > 0 {
		body = bytes.NewReader(req.Body)
	}
	httpReq, err := http.NewRequestWithContext(callCtx, req.Method, req.URL, body)
	if err != nil {
		return nil, err
	}
	for key, value := range req.Headers {
		httpReq.Header.Set(key, value)
	}

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseBody))
	if err != nil {
		return nil, err
	}
	return &Response{
		StatusCode: httpResp.StatusCode,
		Headers:    httpResp.Header,
		Body:       respBody,
	}, nil
}

// backoff returns base * 2^n plus up to 100ms of jitter for retry n (0-indexed).
func (c *Client) backoff(n int) time.Duration {
	delay := c.baseDelay * (1 << uint(n))
	return delay + time.Duration(rand.Int63n(int64(maxJitter)))
}

// throttleDelay converts the last observed bucket utilization into an extra
// delay of (utilization - 0.8) * 1000ms once utilization reaches 80%.
func (c *Client) throttleDelay() time.Duration {
	c.mu.Lock()
	utilization := c.utilization
	c.mu.Unlock()
	if utilization < throttleThreshold {
		return 0
	}
	return time.Duration((utilization - throttleThreshold) * float64(time.Second))
}

func (c *Client) observe(resp *Response) {
	used, capacity, ok := parseCallLimit(resp.Headers.Get(callLimitHeader))
	if !ok {
		return
	}
	c.mu.Lock()
	c.utilization = float64(used) / float64(capacity)
	c.mu.Unlock()
}

// parseCallLimit reads the "used/capacity" bucket header.
func parseCallLimit(value string) (used int, capacity int, ok bool) {
	parts := strings.Split(strings.TrimSpace(value), "/")
	if len(parts) != 2 {
		return 0, 0, false
	}
	used, err := strconv.Atoi(strings.TrimSpace(parts[0]))
	if err != nil || used < 0 {
		return 0, 0, false
	}
	capacity, err = strconv.Atoi(strings.TrimSpace(parts[1]))
	if err != nil || capacity <= 0 {
		return 0, 0, false
	}
	return used, capacity, true
}

func sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
