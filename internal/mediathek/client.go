package mediathek

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/http/httpguts"
	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"medow/internal/logger"
	"medow/pkg/models"
)

const (
	DefaultBaseURL = "https://mediathekviewweb.de"
	queryEndpoint  = "/api/query"

	maxErrorBody = 512
)

type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	limiter    *rate.Limiter
	group      singleflight.Group
	log        zerolog.Logger

	mu      sync.Mutex
	flights map[string]*flight
}

// flight is the context shared by all callers waiting on one round trip.
// It is cancelled once the last waiter has left.
type flight struct {
	ctx     context.Context
	cancel  context.CancelFunc
	waiters int
}

type Option func(*Client)

func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			// copied so later options never modify the caller's client
			cp := *httpClient
			c.httpClient = &cp
		}
	}
}

// WithTimeout bounds every round trip; zero waits indefinitely
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		c.httpClient.Timeout = timeout
	}
}

// WithRateLimit caps outgoing queries per second; zero or less disables it
func WithRateLimit(perSecond float64) Option {
	return func(c *Client) {
		if perSecond <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

// New creates a client identifying itself with userAgent. The identity
// must be a valid HTTP header value.
func New(userAgent string, opts ...Option) (*Client, error) {
	if strings.TrimSpace(userAgent) == "" || !httpguts.ValidHeaderFieldValue(userAgent) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidUserAgent, userAgent)
	}

	c := &Client{
		baseURL:    DefaultBaseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		log:        logger.WithComponent("mediathek"),
		flights:    make(map[string]*flight),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Query starts building a full-text query matching text in any of fields
func (c *Client) Query(fields []Field, text string) *QueryBuilder {
	return &QueryBuilder{
		client: c,
		request: queryRequest{
			Queries: []queryClause{{Fields: fieldNames(fields), Query: text}},
			Future:  true,
			Size:    15,
		},
	}
}

// execute runs one query. Identical concurrent queries share a single round
// trip; each caller may still abandon the wait through its own context. When
// every waiter has abandoned it the round trip is cancelled, so a retry of
// the same query sends a fresh request.
func (c *Client) execute(ctx context.Context, request queryRequest) (*models.QueryResult, error) {
	body, err := json.Marshal(request)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal query: %w", err)
	}

	key := string(body)
	f := c.join(ctx, key)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		return c.roundTrip(f.ctx, body)
	})

	select {
	case <-ctx.Done():
		c.leave(key, f, true)
		return nil, ctx.Err()
	case res := <-ch:
		c.leave(key, f, false)
		if res.Err != nil {
			return nil, res.Err
		}
		if res.Shared {
			c.log.Debug().Msg("query collapsed with an identical in-flight request")
		}
		return cloneResult(res.Val.(*models.QueryResult)), nil
	}
}

func (c *Client) join(ctx context.Context, key string) *flight {
	c.mu.Lock()
	defer c.mu.Unlock()

	f, ok := c.flights[key]
	if !ok {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		f = &flight{ctx: fctx, cancel: cancel}
		c.flights[key] = f
	}
	f.waiters++
	return f
}

func (c *Client) leave(key string, f *flight, abandoned bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	f.waiters--
	if f.waiters > 0 {
		return
	}
	if c.flights[key] == f {
		delete(c.flights, key)
	}
	f.cancel()
	if abandoned {
		c.group.Forget(key)
		c.log.Debug().Msg("abandoned query cancelled")
	}
}

func (c *Client) roundTrip(ctx context.Context, body []byte) (*models.QueryResult, error) {
	const op = "query"

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, &APIError{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
		}
	}

	url := c.baseURL + queryEndpoint
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	// the API expects the JSON body with a text/plain content type
	req.Header.Set("Content-Type", "text/plain")
	req.Header.Set("User-Agent", c.userAgent)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &APIError{Sentinel: ErrUpstreamUnavailable, Operation: op, Err: err}
	}
	defer resp.Body.Close()
	logger.LogHTTPRequest(req.Method, url, resp.StatusCode, time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, &APIError{
			Sentinel:  ErrUpstreamError,
			Operation: op,
			Status:    resp.StatusCode,
			Body:      strings.TrimSpace(string(snippet)),
		}
	}

	var envelope queryResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: op, Status: resp.StatusCode, Err: err}
	}
	if msg := envelope.errorMessage(); msg != "" {
		return nil, &APIError{Sentinel: ErrQueryRejected, Operation: op, Status: resp.StatusCode, Body: msg}
	}
	if envelope.Result == nil {
		return nil, &APIError{Sentinel: ErrBadResponse, Operation: op, Status: resp.StatusCode, Body: "missing result"}
	}

	result := envelope.Result.toModel()
	c.log.Debug().
		Int("total", result.Total).
		Int("results", len(result.Results)).
		Msg("query completed")
	return result, nil
}

func cloneResult(in *models.QueryResult) *models.QueryResult {
	out := *in
	out.Results = make([]models.Film, len(in.Results))
	copy(out.Results, in.Results)
	return &out
}
