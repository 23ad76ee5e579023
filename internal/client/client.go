// Package client is the resilient HTTP client for the MarketBrewer dashboard API.
//
// Every request gets a bearer token and a request id attached before it is sent.
// Transient failures (network errors, 408/429/500/502/503/504) are retried up to
// three times with a linear 1s/2s/3s backoff. Each response feeds a per-client
// health state that callers can read without doing I/O.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/apierrors"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/auth"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/health"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/logger"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/metrics"
	"github.com/dmv7zero3/marketbrewer-dashboard-sub000/internal/retry"
)

// ErrAborted is returned when the caller cancelled the request's context.
// It is neither retryable nor a failure to report to the user.
var ErrAborted = errors.New("request aborted")

// RequestIDHeader carries a per-request uuid, reused across retries.
const RequestIDHeader = "X-Request-ID"

const userAgent = "marketbrewer-dashboard-client/1.0"

// Client issues requests against one API base URL.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     auth.TokenSource
	health     *health.State
	logger     logger.Logger
	metrics    *metrics.Metrics

	sleep        retry.SleepFunc
	pollInterval time.Duration
	probes       singleflight.Group

	probeMu      sync.Mutex
	probeWaiters int
	probeCancel  context.CancelFunc
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithTokenSource sets where bearer tokens come from.
func WithTokenSource(src auth.TokenSource) Option {
	return func(c *Client) { c.tokens = src }
}

// WithHealthState injects the health state. Each client gets its own by default.
func WithHealthState(s *health.State) Option {
	return func(c *Client) { c.health = s }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithMetrics records request, retry and health metrics on m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New returns a client for baseURL (for example https://api.example.com).
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		tokens:       auth.Static(""),
		logger:       logger.NewNop(),
		sleep:        retry.Sleep,
		pollInterval: HealthPollInterval,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.httpClient == nil {
		c.httpClient = NewHTTPClient(TransportConfig{})
	}
	if c.health == nil {
		c.health = health.NewState(health.WithOnChange(c.logHealthChange))
	}
	return c
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Health exposes the client's health state.
func (c *Client) Health() *health.State { return c.health }

// CloseIdleConnections releases pooled connections.
func (c *Client) CloseIdleConnections() { c.httpClient.CloseIdleConnections() }

// Get issues a GET request.
func (c *Client) Get(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodGet, path, nil, opts...)
}

// Post issues a POST request with a JSON body.
func (c *Client) Post(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPost, path, body, opts...)
}

// Put issues a PUT request with a JSON body.
func (c *Client) Put(ctx context.Context, path string, body any, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodPut, path, body, opts...)
}

// Delete issues a DELETE request.
func (c *Client) Delete(ctx context.Context, path string, opts ...RequestOption) (*Response, error) {
	return c.Do(ctx, http.MethodDelete, path, nil, opts...)
}

// Do sends one logical request, retrying transient failures.
// A nil body sends no payload. A []byte body is sent as-is.
func (c *Client) Do(ctx context.Context, method, path string, body any, opts ...RequestOption) (*Response, error) {
	var ro requestOptions
	for _, opt := range opts {
		opt(&ro)
	}

	payload, err := encodeBody(body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}

	requestID := uuid.NewString()
	log := c.logger.With(
		logger.String("method", method),
		logger.String("path", path),
		logger.String("request_id", requestID),
	)

	cfg := retry.DefaultConfig()
	cfg.Sleep = c.sleep
	cfg.OnRetry = func(attempt int, delay time.Duration, cause error) {
		c.metrics.ObserveRetry(method)
		log.Warn("Retrying request",
			logger.Int("attempt", attempt),
			logger.Duration("delay", delay),
			logger.Error(cause),
		)
	}

	start := time.Now()
	var resp *Response
	err = retry.Do(ctx, cfg, func(attemptCtx context.Context) error {
		r, sendErr := c.send(attemptCtx, method, path, payload, requestID, ro)
		if sendErr != nil {
			return sendErr
		}
		resp = r
		return nil
	})
	elapsed := time.Since(start).Seconds()

	switch {
	case err == nil:
		c.metrics.ObserveRequest(method, "ok", elapsed)
		return resp, nil
	case errors.Is(err, context.Canceled) && ctx.Err() != nil:
		c.metrics.ObserveRequest(method, "aborted", elapsed)
		log.Debug("Request aborted by caller")
		return nil, fmt.Errorf("%s %s: %w: %w", method, path, ErrAborted, err)
	case retry.IsNetworkError(err):
		c.markUnhealthy()
		c.metrics.ObserveRequest(method, "network_error", elapsed)
		log.Error("Request failed, server unreachable", logger.Error(err))
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	default:
		c.metrics.ObserveRequest(method, "http_error", elapsed)
		log.Debug("Request failed", logger.Error(err))
		return nil, err
	}
}

// send performs one attempt. Only responses below 400 update health; an
// error status proves the server is up but does not say it is healthy.
func (c *Client) send(
	ctx context.Context,
	method, path string,
	payload []byte,
	requestID string,
	ro requestOptions,
) (*Response, error) {
	endpoint := c.baseURL + path
	if len(ro.query) > 0 {
		sep := "?"
		if strings.Contains(path, "?") {
			sep = "&"
		}
		endpoint += sep + ro.query.Encode()
	}

	var bodyReader io.Reader = http.NoBody
	if payload != nil {
		bodyReader = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, bodyReader)
	if err != nil {
		// %v keeps *url.Error out of the chain so a malformed URL is never
		// classified as a network failure.
		return nil, fmt.Errorf("create request: %v", err)
	}
	c.intercept(ctx, req, payload != nil, requestID, retry.AttemptFrom(ctx))
	for k, vs := range ro.header {
		for _, v := range vs {
			req.Header.Set(k, v)
		}
	}

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= apierrors.MinErrorStatusCode {
		return nil, apierrors.FromBody(method, path, httpResp.StatusCode, respBody)
	}

	c.markHealthy()
	return &Response{
		StatusCode: httpResp.StatusCode,
		Header:     httpResp.Header,
		Body:       respBody,
	}, nil
}

// intercept decorates an outgoing request.
func (c *Client) intercept(ctx context.Context, req *http.Request, hasBody bool, requestID string, attempt int) {
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set(RequestIDHeader, requestID)
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}
	if attempt > 0 {
		req.Header.Set("X-Retry-Attempt", fmt.Sprint(attempt))
	}

	token, err := c.tokens.Token(ctx)
	switch {
	case err == nil && token != "":
		req.Header.Set("Authorization", "Bearer "+token)
	case err != nil && !errors.Is(err, auth.ErrNoToken):
		c.logger.Warn("Bearer token unavailable, sending unauthenticated", logger.Error(err))
	}
}

func (c *Client) markHealthy() {
	c.health.MarkHealthy()
	c.metrics.SetHealthy(true)
}

func (c *Client) markUnhealthy() {
	c.health.MarkUnhealthy()
	c.metrics.SetHealthy(false)
}

func encodeBody(body any) ([]byte, error) {
	switch b := body.(type) {
	case nil:
		return nil, nil
	case []byte:
		return b, nil
	case json.RawMessage:
		return b, nil
	default:
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request body: %w", err)
		}
		return data, nil
	}
}
