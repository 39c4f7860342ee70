// Package client implements the consuming side of the agent protocol:
// discovery with cached, revalidating card fetches, blocking and streaming
// skill invocation, and health probing.
package client

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/singleflight"

	"github.com/weftworks/weft/pkg/a2a"
	"github.com/weftworks/weft/pkg/cache"
	"github.com/weftworks/weft/pkg/httpclient"
)

const (
	wellKnownPath    = "/.well-known/agent.json"
	invokePath       = "/invoke"
	healthPath       = "/health"
	defaultUserAgent = "weft-client/1.0"
	defaultTimeout   = 30 * time.Second
)

// ============================================================================
// CLIENT
// ============================================================================

// Client talks to remote agents. Safe for concurrent use; one client can
// serve many agents, caching each agent's card independently.
type Client struct {
	httpc   *http.Client
	pool    *httpclient.Pool
	retryer *httpclient.Retryer
	creds   Credentials

	cards *cache.TTLCache[string, *a2a.AgentCard]

	// validators keeps the last known card and its cache validators per
	// agent even after the TTL entry expires, enabling conditional
	// revalidation (304 responses revive the stale copy).
	validators *cache.TTLCache[string, *cardRecord]

	group     singleflight.Group
	userAgent string
}

type cardRecord struct {
	card         *a2a.AgentCard
	etag         string
	lastModified string
}

// Option configures a Client.
type Option func(*options)

type options struct {
	timeout     time.Duration
	maxAttempts int
	cardTTL     time.Duration
	poolSize    int
	creds       Credentials
	httpc       *http.Client
	sleep       func(ctx context.Context, d time.Duration) error
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(o *options) { o.timeout = d }
}

// WithMaxRetries bounds the total attempts per operation, first try
// included.
func WithMaxRetries(n int) Option {
	return func(o *options) { o.maxAttempts = n }
}

// WithCardTTL sets how long fetched agent cards stay fresh.
func WithCardTTL(d time.Duration) Option {
	return func(o *options) { o.cardTTL = d }
}

// WithPoolSize bounds concurrent requests.
func WithPoolSize(n int) Option {
	return func(o *options) { o.poolSize = n }
}

// WithCredentials sets the outbound auth scheme and credential.
func WithCredentials(creds Credentials) Option {
	return func(o *options) { o.creds = creds }
}

// WithHTTPClient overrides the underlying http.Client, for tests.
func WithHTTPClient(c *http.Client) Option {
	return func(o *options) { o.httpc = c }
}

// WithSleep overrides retry sleeping, for tests.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(o *options) { o.sleep = sleep }
}

// New creates a Client.
func New(opts ...Option) *Client {
	o := &options{
		timeout:     defaultTimeout,
		maxAttempts: httpclient.DefaultMaxAttempts,
		cardTTL:     5 * time.Minute,
		poolSize:    httpclient.DefaultPoolSize,
	}
	for _, opt := range opts {
		opt(o)
	}

	httpc := o.httpc
	if httpc == nil {
		httpc = &http.Client{
			Timeout:   o.timeout,
			Transport: httpclient.NewTransport(o.poolSize),
		}
	}

	retryOpts := []httpclient.RetryerOption{httpclient.WithMaxAttempts(o.maxAttempts)}
	if o.sleep != nil {
		retryOpts = append(retryOpts, httpclient.WithSleep(o.sleep))
	}

	return &Client{
		httpc:      httpc,
		pool:       httpclient.NewPool(o.poolSize),
		retryer:    httpclient.NewRetryer(a2a.IsTransient, retryOpts...),
		creds:      o.creds,
		cards:      cache.New[string, *a2a.AgentCard](o.cardTTL),
		validators: cache.New[string, *cardRecord](0),
		userAgent:  defaultUserAgent,
	}
}

// ============================================================================
// AGENT CARD DISCOVERY
// ============================================================================

// FetchAgentCard returns the agent's discovery document. Fresh cached
// cards are served without any network traffic; force bypasses the cache
// and always revalidates. Concurrent fetches for the same agent collapse
// into one request.
func (c *Client) FetchAgentCard(ctx context.Context, agentURL string, force bool) (*a2a.AgentCard, error) {
	key := normalizeBaseURL(agentURL)

	if !force {
		if card, ok := c.cards.Get(key); ok {
			return card, nil
		}
	}

	v, err, _ := c.group.Do(key, func() (interface{}, error) {
		// A concurrent fetch may have already refreshed the cache.
		if !force {
			if card, ok := c.cards.Get(key); ok {
				return card, nil
			}
		}

		var card *a2a.AgentCard
		err := c.retryer.Do(ctx, "fetch_agent_card", func() error {
			var ferr error
			card, ferr = c.fetchCard(ctx, key)
			return ferr
		})
		if err != nil {
			return nil, err
		}
		return card, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*a2a.AgentCard), nil
}

func (c *Client) fetchCard(ctx context.Context, baseURL string) (*a2a.AgentCard, error) {
	cardURL := baseURL + wellKnownPath

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, cardURL, nil)
	if err != nil {
		return nil, &a2a.AgentCardError{URL: cardURL, Message: "build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")
	c.setCommonHeaders(req)

	prev, hasPrev := c.validators.Get(baseURL)
	if hasPrev {
		if prev.etag != "" {
			req.Header.Set("If-None-Match", prev.etag)
		}
		if prev.lastModified != "" {
			req.Header.Set("If-Modified-Since", prev.lastModified)
		}
	}

	var resp *http.Response
	err = c.pool.With(ctx, func() error {
		var derr error
		resp, derr = c.httpc.Do(req)
		return derr
	})
	if err != nil {
		return nil, a2a.Classify("fetch_agent_card", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotModified && hasPrev:
		// Remote confirms our copy is still current; revive it.
		c.cards.Set(baseURL, prev.card)
		return prev.card, nil

	case resp.StatusCode == http.StatusOK:
		if ct := resp.Header.Get("Content-Type"); ct != "" && !strings.Contains(ct, "json") {
			return nil, &a2a.AgentCardError{
				URL:     cardURL,
				Message: fmt.Sprintf("unexpected content type %q", ct),
			}
		}
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, a2a.Classify("fetch_agent_card", err)
		}
		card, err := a2a.ParseAgentCard(body)
		if err != nil {
			return nil, &a2a.AgentCardError{URL: cardURL, Message: "invalid agent card", Err: err}
		}
		c.cards.Set(baseURL, card)
		c.validators.Set(baseURL, &cardRecord{
			card:         card,
			etag:         resp.Header.Get("ETag"),
			lastModified: resp.Header.Get("Last-Modified"),
		})
		return card, nil

	case resp.StatusCode == http.StatusNotFound:
		return nil, &a2a.AgentCardError{URL: cardURL, Message: "agent card not found"}

	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, &a2a.AuthenticationError{Message: fmt.Sprintf("card fetch rejected with status %d", resp.StatusCode)}

	default:
		return nil, &a2a.AgentCardError{
			URL:     cardURL,
			Message: fmt.Sprintf("unexpected status %d", resp.StatusCode),
		}
	}
}

// InvalidateCard drops the cached card for an agent.
func (c *Client) InvalidateCard(agentURL string) {
	key := normalizeBaseURL(agentURL)
	c.cards.Delete(key)
	c.validators.Delete(key)
}

// ============================================================================
// SHARED REQUEST PLUMBING
// ============================================================================

func (c *Client) setCommonHeaders(req *http.Request) {
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("X-Request-ID", uuid.New().String())
	c.creds.apply(req)
}

func normalizeBaseURL(u string) string {
	return strings.TrimRight(u, "/")
}
