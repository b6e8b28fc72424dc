// Package okx downloads candles and instrument lists from the OKX public REST API.
package okx

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	drepo "Booster/internal/domain/repository"
	"Booster/internal/service/ratelimit"
	xhttp "Booster/pkg/http"
	applogger "Booster/pkg/logger"
	"Booster/pkg/metrics"
	"Booster/pkg/retry"

	"github.com/tidwall/gjson"
	"golang.org/x/sync/semaphore"
)

const (
	historyCandlesPath = "/api/v5/market/history-candles"
	tickersPath        = "/api/v5/market/tickers"

	// codeRateLimited is the OKX envelope code for "too many requests".
	codeRateLimited = "50011"
)

// Option configures Client.
type Option func(*Client)

// Client implements repository.CandleFetcher and repository.InstrumentSource.
type Client struct {
	http    *xhttp.Client
	limiter *ratelimit.Limiter
	permits *semaphore.Weighted
	loc     *time.Location

	pageLimit   int
	volumeIndex int
	pacing      time.Duration

	maxAttempts    int
	statusDelay    time.Duration
	errorDelay     time.Duration
	rateLimitDelay time.Duration
	rateLimitWaits int

	metrics drepo.Metrics
	log     *applogger.Logger
}

// New creates a client on top of an HTTP client whose base URL points at OKX.
func New(httpClient *xhttp.Client, opts ...Option) *Client {
	c := &Client{
		http:           httpClient,
		limiter:        ratelimit.New(),
		permits:        semaphore.NewWeighted(5),
		loc:            time.UTC,
		pageLimit:      100,
		volumeIndex:    7,
		pacing:         250 * time.Millisecond,
		maxAttempts:    2,
		statusDelay:    5 * time.Second,
		errorDelay:     10 * time.Second,
		rateLimitDelay: 2 * time.Second,
		rateLimitWaits: 30,
		metrics:        metrics.Nop{},
		log:            applogger.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// WithLocation sets the zone candle times are converted to.
func WithLocation(loc *time.Location) Option {
	return func(c *Client) { c.loc = loc }
}

// WithPageLimit sets the candles requested per page.
func WithPageLimit(n int) Option {
	return func(c *Client) { c.pageLimit = n }
}

// WithVolumeIndex selects the tuple column used as volume (5 vol, 6 volCcy, 7 volCcyQuote).
func WithVolumeIndex(i int) Option {
	return func(c *Client) { c.volumeIndex = i }
}

// WithPacing sets the minimum spacing between requests for one instrument.
func WithPacing(d time.Duration) Option {
	return func(c *Client) { c.pacing = d }
}

// WithConcurrency caps how many instruments download at once.
func WithConcurrency(n int) Option {
	return func(c *Client) { c.permits = semaphore.NewWeighted(int64(n)) }
}

// WithTransientRetry sets how many times a failed request is sent in total:
// statusDelay after a non-2xx response, errorDelay after transport or parse
// errors.
func WithTransientRetry(maxAttempts int, statusDelay, errorDelay time.Duration) Option {
	return func(c *Client) {
		c.maxAttempts = maxAttempts
		c.statusDelay = statusDelay
		c.errorDelay = errorDelay
	}
}

// WithRateLimitRetry sets the independent wait loop for throttled requests:
// at most maxWaits waits of delay each.
func WithRateLimitRetry(delay time.Duration, maxWaits int) Option {
	return func(c *Client) {
		c.rateLimitDelay = delay
		c.rateLimitWaits = maxWaits
	}
}

// WithMetrics sets the metrics recorder.
func WithMetrics(m drepo.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(l *applogger.Logger) Option {
	return func(c *Client) { c.log = l }
}

func (c *Client) retrier(instrument string) *retry.Retrier {
	return &retry.Retrier{
		Policies: []retry.Policy{
			{
				Name:        "rate_limit",
				MaxAttempts: c.rateLimitWaits + 1,
				Delay:       c.rateLimitDelay,
				Applies:     func(err error) bool { return errors.Is(err, drepo.ErrRateLimited) },
			},
			{
				Name:        "transient",
				MaxAttempts: c.maxAttempts,
				Delay:       c.errorDelay,
				Applies:     func(err error) bool { return errors.Is(err, drepo.ErrTransientNetwork) },
				DelayFor: func(err error) time.Duration {
					var se *xhttp.StatusError
					if errors.As(err, &se) {
						return c.statusDelay
					}
					return c.errorDelay
				},
			},
		},
		Notify: func(policy string, attempt int, err error, wait time.Duration) {
			c.metrics.RecordRetry(policy)
			c.log.Warn("okx request retry",
				applogger.String("instrument", instrument),
				applogger.String("policy", policy),
				applogger.Int("attempt", attempt),
				applogger.Duration("wait_ms", wait),
				applogger.Error(err),
			)
		},
	}
}

// get performs one request and classifies the failure.
func (c *Client) get(ctx context.Context, endpoint, path string, query map[string][]string) ([]byte, error) {
	start := time.Now()
	body, err := c.http.GetBytes(ctx, path, query)
	c.metrics.RecordLatency("okx_"+endpoint, time.Since(start).Seconds())

	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		var se *xhttp.StatusError
		if errors.As(err, &se) {
			c.metrics.RecordRequest(endpoint, se.Code)
			if se.Code == http.StatusTooManyRequests {
				return nil, fmt.Errorf("%w: %w", drepo.ErrRateLimited, err)
			}
			return nil, fmt.Errorf("%w: %w", drepo.ErrTransientNetwork, err)
		}
		c.metrics.RecordRequest(endpoint, 0)
		return nil, fmt.Errorf("%w: %w", drepo.ErrTransientNetwork, err)
	}
	c.metrics.RecordRequest(endpoint, http.StatusOK)

	if !gjson.ValidBytes(body) {
		return nil, fmt.Errorf("%w: invalid json from %s", drepo.ErrTransientNetwork, endpoint)
	}
	switch code := gjson.GetBytes(body, "code").String(); code {
	case "", "0":
		return body, nil
	case codeRateLimited:
		return nil, fmt.Errorf("%w: okx code %s", drepo.ErrRateLimited, code)
	default:
		return nil, fmt.Errorf("%w: okx code %s: %s", drepo.ErrTransientNetwork, code,
			gjson.GetBytes(body, "msg").String())
	}
}
