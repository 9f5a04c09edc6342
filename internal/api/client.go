// Package api is the HTTP client for the Hearth REST contract. The
// session credential is an ambient cookie held in the client's jar and
// attached by the transport; request-level tokens are never threaded
// through. Any 401 is broadcast on the event bus: it is the only signal
// the client has that the server-side session died.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/net/publicsuffix"
	"golang.org/x/time/rate"

	"github.com/hearthlabs/hearthview/internal/event"
	"github.com/hearthlabs/hearthview/internal/version"
)

// Defaults for unset Config fields.
const (
	DefaultTimeout   = 10 * time.Second
	DefaultRateLimit = 8 // requests per second
	DefaultRateBurst = 4
)

// Config carries transport settings.
type Config struct {
	BaseURL   string
	Timeout   time.Duration
	RateLimit float64
	RateBurst int
}

// Client talks to the Hearth backend. Safe for concurrent use.
type Client struct {
	base    *url.URL
	http    *http.Client
	limiter *rate.Limiter
	bus     event.Bus
	logger  *zap.Logger
	timeout time.Duration
}

// New creates a Client with a public-suffix-aware cookie jar.
func New(cfg Config, bus event.Bus, logger *zap.Logger) (*Client, error) {
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base url %q: %w", cfg.BaseURL, err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url %q: scheme and host required", cfg.BaseURL)
	}

	jar, err := cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
	if err != nil {
		return nil, fmt.Errorf("create cookie jar: %w", err)
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultRateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultRateBurst
	}

	return &Client{
		base:    base,
		http:    &http.Client{Jar: jar},
		limiter: rate.NewLimiter(rate.Limit(cfg.RateLimit), cfg.RateBurst),
		bus:     bus,
		logger:  logger,
		timeout: cfg.Timeout,
	}, nil
}

// Cookies returns the jar's cookies for the API origin, for persistence
// across runs.
func (c *Client) Cookies() []*http.Cookie {
	return c.http.Jar.Cookies(c.base)
}

// SetCookies seeds the jar with previously persisted cookies.
func (c *Client) SetCookies(cookies []*http.Cookie) {
	c.http.Jar.SetCookies(c.base, cookies)
}

// reqOpts tweaks per-request transport behavior.
type reqOpts struct {
	// quiet401 suppresses the auth.unauthorized broadcast. Used by the
	// session probe and logout, where a 401 is an expected answer, not
	// evidence of surprise expiry.
	quiet401 bool
}

// do executes one request: rate-paced, time-boxed, JSON in and out.
// A timeout surfaces as an ordinary error, never as suspension.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any, opts reqOpts) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	u := c.base.JoinPath(path)
	if query != nil {
		u.RawQuery = query.Encode()
	}

	var body *bytes.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode %s %s body: %w", method, path, err)
		}
		body = bytes.NewReader(payload)
	} else {
		body = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return fmt.Errorf("build %s %s: %w", method, path, err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "hearthview/"+version.Short())
	req.Header.Set("X-Request-ID", uuid.NewString())
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized && !opts.quiet401 {
		c.logger.Info("request unauthorized, broadcasting session invalidation",
			zap.String("path", path),
		)
		c.bus.PublishAsync(context.WithoutCancel(ctx), event.Event{
			Topic:   event.TopicUnauthorized,
			Source:  "api",
			Payload: path,
		})
	}
	if resp.StatusCode >= 400 {
		return decodeError(resp)
	}

	if out != nil && resp.StatusCode != http.StatusNoContent {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode %s %s response: %w", method, path, err)
		}
	}
	return nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out, reqOpts{})
}

func (c *Client) post(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPost, path, nil, in, out, reqOpts{})
}

func (c *Client) put(ctx context.Context, path string, in, out any) error {
	return c.do(ctx, http.MethodPut, path, nil, in, out, reqOpts{})
}

func (c *Client) delete(ctx context.Context, path string) error {
	return c.do(ctx, http.MethodDelete, path, nil, nil, nil, reqOpts{})
}

// notifyChanged broadcasts that a resource namespace mutated so cached
// listings derived from it get invalidated.
func (c *Client) notifyChanged(ctx context.Context, namespace string) {
	c.bus.PublishAsync(context.WithoutCancel(ctx), event.Event{
		Topic:   event.TopicResourceChanged,
		Source:  "api",
		Payload: namespace,
	})
}
