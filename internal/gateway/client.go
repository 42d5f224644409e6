// Package gateway binds the mailbox to the Korgan mail REST API.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/time/rate"

	"github.com/korgan/korg/internal/mail"
)

const maxResponseBytes = 8 << 20

// ClientOptions configures a Client. Zero values select defaults.
type ClientOptions struct {
	BaseURL    string
	HTTPClient *http.Client
	Timeout    time.Duration // per attempt, body read included
	RPS        int
	MaxRetries int
	RetryWait  time.Duration // first backoff interval
	UserAgent  string
	Log        *zerolog.Logger
}

// Client performs JSON requests against the gateway with rate limiting,
// per-attempt timeouts and retries of transient failures.
type Client struct {
	base       string
	http       *http.Client
	limiter    *rate.Limiter
	timeout    time.Duration
	maxRetries int
	retryWait  time.Duration
	userAgent  string
	log        *zerolog.Logger
}

// NewClient creates a Client.
func NewClient(opts ClientOptions) (*Client, error) {
	u, err := url.Parse(opts.BaseURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("invalid gateway base URL %q", opts.BaseURL)
	}
	c := &Client{
		base:       strings.TrimRight(opts.BaseURL, "/"),
		http:       opts.HTTPClient,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		retryWait:  opts.RetryWait,
		userAgent:  opts.UserAgent,
		log:        opts.Log,
	}
	if c.http == nil {
		c.http = http.DefaultClient
	}
	if c.timeout <= 0 {
		c.timeout = 30 * time.Second
	}
	if c.maxRetries < 0 {
		c.maxRetries = 0
	}
	if c.retryWait <= 0 {
		c.retryWait = 250 * time.Millisecond
	}
	if c.userAgent == "" {
		c.userAgent = "korg"
	}
	if c.log == nil {
		nop := zerolog.Nop()
		c.log = &nop
	}
	rps := opts.RPS
	if rps <= 0 {
		rps = 10
	}
	c.limiter = rate.NewLimiter(rate.Limit(rps), rps)
	return c, nil
}

// Do sends one logical request and decodes the envelope's data into out
// (which may be nil). Transport errors, 429 and 5xx are retried. Every
// error returned is a *mail.Failure.
func (c *Client) Do(ctx context.Context, op, method, path string, query url.Values, out any) error {
	reqID := uuid.NewString()
	attempt := 0

	call := func() error {
		attempt++
		if err := c.limiter.Wait(ctx); err != nil {
			return backoff.Permanent(mail.AsFailure(op, err))
		}
		err := c.once(ctx, method, path, query, reqID, out)
		if err == nil {
			return nil
		}
		f := mail.AsFailure(op, err)
		if !f.Retryable() || ctx.Err() != nil {
			return backoff.Permanent(f)
		}
		c.log.Debug().Err(f).Str("request_id", reqID).Int("attempt", attempt).Msg("retrying gateway call")
		return f
	}

	err := backoff.Retry(call, backoff.WithContext(backoff.WithMaxRetries(c.backOff(), uint64(c.maxRetries)), ctx))
	if err != nil {
		return mail.AsFailure(op, err)
	}
	return nil
}

func (c *Client) backOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.retryWait
	b.MaxInterval = 5 * time.Second
	b.MaxElapsedTime = 0
	b.Reset()
	return b
}

// once performs a single attempt under its own timeout.
func (c *Client) once(ctx context.Context, method, path string, query url.Values, reqID string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	target := c.base + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, target, nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", reqID)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return transportFailure(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return transportFailure(err)
	}
	c.log.Debug().
		Str("method", method).
		Str("path", path).
		Int("status", resp.StatusCode).
		Dur("took", time.Since(start)).
		Str("request_id", reqID).
		Msg("gateway call")

	return decode(resp.StatusCode, body, out)
}

func transportFailure(err error) error {
	switch {
	case errors.Is(err, context.Canceled):
		return context.Canceled
	case errors.Is(err, context.DeadlineExceeded):
		return &mail.Failure{Kind: mail.KindNetwork, Message: "request timed out", Err: err}
	}
	return &mail.Failure{Kind: mail.KindNetwork, Message: "gateway unreachable", Err: err}
}

// decode unwraps the response envelope.
func decode(status int, body []byte, out any) error {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		if status >= http.StatusBadRequest {
			return &mail.Failure{Kind: mail.KindServer, Status: status, Message: statusMessage(status, body)}
		}
		return &mail.Failure{Kind: mail.KindParse, Status: status, Message: "malformed gateway response", Err: err}
	}

	if status >= http.StatusBadRequest || !env.Success {
		msg := statusMessage(status, nil)
		var apiErr error
		if env.Error != nil {
			msg = env.Error.Error()
			apiErr = env.Error
		}
		return &mail.Failure{Kind: mail.KindServer, Status: status, Message: msg, Err: apiErr}
	}

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return &mail.Failure{Kind: mail.KindParse, Status: status, Message: "unexpected gateway data", Err: err}
	}
	return nil
}

func statusMessage(status int, body []byte) string {
	if text := strings.TrimSpace(string(body)); text != "" && len(text) < 200 {
		return fmt.Sprintf("HTTP %d: %s", status, text)
	}
	if text := http.StatusText(status); text != "" {
		return fmt.Sprintf("HTTP %d: %s", status, text)
	}
	return fmt.Sprintf("HTTP %d", status)
}
