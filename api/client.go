// Package api is the storefront's client for the remote REST backend.
package api

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
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	defaultTimeout   = 10 * time.Second
	defaultRateLimit = 20
	maxResponseSize  = 4 << 20

	// breakerFailures consecutive transport or 5xx failures open the breaker.
	breakerFailures = 5
	breakerCooldown = 15 * time.Second
)

// TokenSource returns the current access token, or "" when signed out.
type TokenSource func(ctx context.Context) (string, error)

type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64 // requests per second, 0 uses the default
	Tokens    TokenSource
	Transport http.RoundTripper
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
	breaker    *gobreaker.CircuitBreaker[*response]
	tokens     TokenSource

	mu             sync.RWMutex
	onUnauthorized func(ctx context.Context)

	logger *zap.Logger
}

type response struct {
	status int
	body   []byte
}

func NewClient(cfg Config, logger *zap.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = defaultRateLimit
	}
	if cfg.Transport == nil {
		cfg.Transport = http.DefaultTransport
	}
	if cfg.Tokens == nil {
		cfg.Tokens = func(context.Context) (string, error) { return "", nil }
	}

	burst := int(cfg.RateLimit)
	if burst < 1 {
		burst = 1
	}

	c := &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(cfg.Transport),
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), burst),
		tokens:  cfg.Tokens,
		logger:  logger,
	}
	c.breaker = gobreaker.NewCircuitBreaker[*response](gobreaker.Settings{
		Name:    "storefront-api",
		Timeout: breakerCooldown,
		IsSuccessful: func(err error) bool {
			var abandoned *abandonedError
			return err == nil || errors.As(err, &abandoned)
		},
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("API circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	})
	return c
}

// OnUnauthorized registers fn to run whenever an authenticated request comes back 401.
func (c *Client) OnUnauthorized(fn func(ctx context.Context)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onUnauthorized = fn
}

// request describes one call; auth adds the bearer header when a token is available.
type request struct {
	method      string
	path        string
	body        io.Reader
	contentType string
	auth        bool
	header      http.Header
}

func (c *Client) doJSON(ctx context.Context, method, path string, in any, auth bool, out any) error {
	return c.doWith(ctx, request{method: method, path: path, auth: auth}, in, out)
}

// doWith encodes in as the JSON body of req.
func (c *Client) doWith(ctx context.Context, req request, in any, out any) error {
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		req.body = bytes.NewReader(payload)
		req.contentType = "application/json"
	}
	return c.do(ctx, req, out)
}

func (c *Client) do(ctx context.Context, r request, out any) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	httpReq, err := http.NewRequestWithContext(ctx, r.method, c.baseURL+r.path, r.body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	for k, vs := range r.header {
		for _, v := range vs {
			httpReq.Header.Add(k, v)
		}
	}
	requestID := uuid.NewString()
	httpReq.Header.Set("X-Request-ID", requestID)
	httpReq.Header.Set("Accept", "application/json")
	if r.contentType != "" {
		httpReq.Header.Set("Content-Type", r.contentType)
	}

	authenticated := false
	if r.auth {
		token, err := c.tokens(ctx)
		if err != nil {
			return fmt.Errorf("failed to read access token: %w", err)
		}
		if token != "" {
			httpReq.Header.Set("Authorization", "Bearer "+token)
			authenticated = true
		}
	}

	start := time.Now()
	resp, err := c.breaker.Execute(func() (*response, error) {
		resp, err := c.send(httpReq)
		if err != nil && ctx.Err() != nil {
			return nil, &abandonedError{err: err}
		}
		return resp, err
	})
	// A response that arrives after the caller gave up is discarded.
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	if err != nil {
		c.logger.Error("API request failed",
			zap.String("method", r.method),
			zap.String("path", r.path),
			zap.String("request_id", requestID),
			zap.Error(err))
		return err
	}

	c.logger.Debug("API request",
		zap.String("method", r.method),
		zap.String("path", r.path),
		zap.String("request_id", requestID),
		zap.Int("status", resp.status),
		zap.Duration("duration", time.Since(start)))

	if resp.status < 200 || resp.status >= 300 {
		httpErr := &HTTPError{
			Method:     r.method,
			Path:       r.path,
			StatusCode: resp.status,
			Message:    errorMessage(resp.body),
		}
		if resp.status == http.StatusUnauthorized && authenticated {
			c.notifyUnauthorized(ctx)
		}
		return httpErr
	}

	if out == nil || len(bytes.TrimSpace(resp.body)) == 0 {
		return nil
	}
	if err = json.Unmarshal(resp.body, out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

// send performs the round trip. 5xx answers are reported as errors so the breaker counts them.
func (c *Client) send(req *http.Request) (*response, error) {
	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer httpResp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(httpResp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	if httpResp.StatusCode >= http.StatusInternalServerError {
		return nil, &HTTPError{
			Method:     req.Method,
			Path:       req.URL.Path,
			StatusCode: httpResp.StatusCode,
			Message:    errorMessage(body),
		}
	}
	return &response{status: httpResp.StatusCode, body: body}, nil
}

// abandonedError marks a round trip cut short by the caller's context. It says nothing about
// the backend's health, so the breaker does not count it.
type abandonedError struct {
	err error
}

func (e *abandonedError) Error() string { return e.err.Error() }

func (e *abandonedError) Unwrap() error { return e.err }

func (c *Client) notifyUnauthorized(ctx context.Context) {
	c.mu.RLock()
	fn := c.onUnauthorized
	c.mu.RUnlock()
	if fn != nil {
		fn(ctx)
	}
}
