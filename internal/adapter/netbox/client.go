// Package netbox provides a GraphQL client for the NetBox inventory API.
package netbox

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/machinebox/graphql"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Strob0t/NetBoxAssistant/internal/config"
	"github.com/Strob0t/NetBoxAssistant/internal/port/cache"
	"github.com/Strob0t/NetBoxAssistant/internal/resilience"
)

const tracerName = "nbassist/netbox"

// Client executes GraphQL queries against NetBox. Safe for concurrent use.
type Client struct {
	gql      *graphql.Client
	token    string
	breaker  *resilience.Breaker
	retry    resilience.RetryPolicy
	cache    cache.Cache
	cacheTTL time.Duration
}

// Option customizes a Client.
type Option func(*Client)

// WithBreaker guards every request with a circuit breaker.
func WithBreaker(b *resilience.Breaker) Option {
	return func(c *Client) {
		c.breaker = b.WithClassifier(Transient)
	}
}

// WithCache caches successful responses keyed by query text and variables.
func WithCache(cc cache.Cache, ttl time.Duration) Option {
	return func(c *Client) {
		c.cache = cc
		c.cacheTTL = ttl
	}
}

// NewClient creates a NetBox GraphQL client from cfg.
func NewClient(cfg config.NetBox, opts ...Option) *Client {
	return newClient(cfg.GraphQLURL(), cfg, &http.Client{
		Timeout:   cfg.Timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}, opts...)
}

func newClient(endpoint string, cfg config.NetBox, hc *http.Client, opts ...Option) *Client {
	c := &Client{
		gql:   graphql.NewClient(endpoint, graphql.WithHTTPClient(withStatusErrors(hc))),
		token: cfg.Token,
		retry: resilience.RetryPolicy{
			MaxTries:        cfg.MaxRetries + 1,
			InitialInterval: 200 * time.Millisecond,
			MaxInterval:     2 * time.Second,
			Retryable:       Transient,
			OnRetry: func(err error, wait time.Duration) {
				slog.Warn("netbox request failed, retrying", "error", err, "wait", wait)
			},
		},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// Query runs query with vars and decodes the response data into out.
func (c *Client) Query(ctx context.Context, query string, vars map[string]any, out any) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "netbox.query",
		trace.WithAttributes(attribute.Int("graphql.variables", len(vars))))
	defer span.End()

	raw, hit, err := c.fetch(ctx, query, vars)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return fmt.Errorf("netbox query: %w", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", hit))

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("netbox decode: %w", err)
	}
	return nil
}

func (c *Client) fetch(ctx context.Context, query string, vars map[string]any) (json.RawMessage, bool, error) {
	key, keyErr := cacheKey(query, vars)
	if c.cache != nil && keyErr == nil {
		data, ok, err := c.cache.Get(ctx, key)
		if err != nil {
			slog.Warn("netbox cache get failed", "error", err)
		} else if ok {
			return data, true, nil
		}
	}

	var raw json.RawMessage
	call := func(ctx context.Context) error {
		var err error
		raw, err = resilience.Retry(ctx, c.retry, func() (json.RawMessage, error) {
			return c.do(ctx, query, vars)
		})
		return err
	}

	var err error
	if c.breaker != nil {
		err = c.breaker.Do(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, false, err
	}

	if c.cache != nil && keyErr == nil {
		if err := c.cache.Set(ctx, key, raw, c.cacheTTL); err != nil {
			slog.Warn("netbox cache set failed", "error", err)
		}
	}
	return raw, false, nil
}

func (c *Client) do(ctx context.Context, query string, vars map[string]any) (json.RawMessage, error) {
	req := graphql.NewRequest(query)
	for k, v := range vars {
		req.Var(k, v)
	}
	req.Header.Set("Authorization", "Token "+c.token)

	var raw json.RawMessage
	if err := c.gql.Run(ctx, req, &raw); err != nil {
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, errors.New("response carried no data")
	}
	return raw, nil
}

// cacheKey derives a stable key; encoding/json sorts map keys.
func cacheKey(query string, vars map[string]any) (string, error) {
	vb, err := json.Marshal(vars)
	if err != nil {
		return "", err
	}
	h := sha256.New()
	h.Write([]byte(query))
	h.Write([]byte{0})
	h.Write(vb)
	return "netbox." + hex.EncodeToString(h.Sum(nil)), nil
}

// Transient reports whether err is a transport failure or a server-side
// HTTP error worth retrying. GraphQL errors and auth rejections are not.
func Transient(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	var se *StatusError
	if errors.As(err, &se) {
		return se.Retryable()
	}
	var ue *url.Error
	if errors.As(err, &ue) {
		return true
	}
	return errors.Is(err, io.ErrUnexpectedEOF)
}
