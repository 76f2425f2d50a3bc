// Package playstore is a client for the Google Play review listing RPC
package playstore

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/logger"

	"golang.org/x/time/rate"
)

const (
	baseURLDefault   = "https://play.google.com"
	defaultTimeout   = 30 * time.Second
	defaultUA        = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	defaultMaxRetry  = 2
	defaultRetryBase = 500 * time.Millisecond
	maxBody          = 8 << 20
)

// Options configures the Client
type Options struct {
	BaseURL   string
	UserAgent string
	Timeout   time.Duration

	// Retry config for transport failures, 429 and 5xx responses.
	// MaxRetries 0 means the default; negative disables retries
	MaxRetries int
	RetryBase  time.Duration

	// RPS paces outgoing calls; <=0 disables pacing
	RPS   float64
	Burst int
}

// Query selects one page of an app's review listing
type Query struct {
	AppID   string
	Lang    string
	Country string
	Sort    int
	// Count is the number of reviews wanted; above MaxPerRequest the client
	// chains calls until it has Count or the listing ends
	Count int
	Token string
}

// Batch is the result of a Query
type Batch struct {
	Reviews []Review
	Token   string // empty when the listing is exhausted
}

// Client calls the store with pacing and retries
type Client struct {
	http    *http.Client
	opts    Options
	limiter *rate.Limiter
	log     logger.Logger
	now     func() time.Time
	sleep   func(context.Context, time.Duration) error
}

// NewClient creates a Client with defaults filled in
func NewClient(log logger.Logger, o Options) *Client {
	if o.BaseURL == "" {
		o.BaseURL = baseURLDefault
	}
	o.BaseURL = strings.TrimRight(o.BaseURL, "/")
	if o.UserAgent == "" {
		o.UserAgent = defaultUA
	}
	if o.Timeout <= 0 {
		o.Timeout = defaultTimeout
	}
	if o.MaxRetries < 0 {
		o.MaxRetries = 0
	} else if o.MaxRetries == 0 {
		o.MaxRetries = defaultMaxRetry
	}
	if o.RetryBase <= 0 {
		o.RetryBase = defaultRetryBase
	}
	lim := rate.NewLimiter(rate.Inf, 1)
	if o.RPS > 0 {
		lim = rate.NewLimiter(rate.Limit(o.RPS), max(o.Burst, 1))
	}
	return &Client{
		http:    &http.Client{Timeout: o.Timeout},
		opts:    o,
		limiter: lim,
		log:     logger.Named(log, "playstore"),
		now:     time.Now,
		sleep:   sleepCtx,
	}
}

// Reviews returns up to q.Count reviews starting at q.Token
func (c *Client) Reviews(ctx context.Context, q Query) (Batch, error) {
	if strings.TrimSpace(q.AppID) == "" {
		return Batch{}, perr.InvalidArgf("playstore: app id is required")
	}
	want := max(q.Count, 1)
	sort := q.Sort
	if sort == 0 {
		sort = SortNewest
	}

	var out Batch
	token := q.Token
	for len(out.Reviews) < want {
		n := min(want-len(out.Reviews), MaxPerRequest)
		items, next, err := c.call(ctx, q, sort, n, token)
		if err != nil {
			return Batch{}, err
		}
		out.Reviews = append(out.Reviews, items...)
		token = next
		if next == "" || len(items) == 0 {
			break
		}
	}
	out.Token = token
	return out, nil
}

// call issues one RPC with retries on transient failures
func (c *Client) call(ctx context.Context, q Query, sort, count int, token string) ([]Review, string, error) {
	endpoint := c.opts.BaseURL + rpcPath + "?" + url.Values{"hl": {q.Lang}, "gl": {q.Country}}.Encode()
	body := reviewsBody(q.AppID, sort, count, token)

	for attempt := 0; ; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			if errors.Is(ctx.Err(), context.Canceled) {
				return nil, "", ctx.Err()
			}
			// the limiter refuses a wait that would outlive the deadline
			return nil, "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "playstore pacing")
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
		if err != nil {
			return nil, "", perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "playstore new request")
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded;charset=UTF-8")
		req.Header.Set("User-Agent", c.opts.UserAgent)

		start := c.now()
		resp, err := c.http.Do(req)
		lat := c.now().Sub(start)
		if err != nil {
			if ctx.Err() != nil {
				return nil, "", interrupted(ctx, ctx.Err())
			}
			if !c.shouldRetry(attempt) {
				return nil, "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "playstore request failed")
			}
			back := c.backoff(attempt)
			c.log.Warn().Err(err).Dur("retry_in", back).Int("attempt", attempt).Msg("playstore transport error retrying")
			if se := c.sleep(ctx, back); se != nil {
				return nil, "", interrupted(ctx, se)
			}
			continue
		}

		c.log.Debug().
			Str("app", q.AppID).
			Int("count", count).
			Bool("paged", token != "").
			Int("status", resp.StatusCode).
			Int("attempt", attempt).
			Dur("latency", lat).
			Msg("playstore http response")

		switch {
		case resp.StatusCode == http.StatusOK:
			raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
			_ = resp.Body.Close()
			if err != nil {
				return nil, "", perr.Wrapf(err, perr.ErrorCodeUnavailable, "playstore read body")
			}
			items, next, err := parseReviews(raw)
			if err != nil {
				return nil, "", perr.WithOp(err, q.AppID)
			}
			return items, next, nil

		case resp.StatusCode == http.StatusTooManyRequests:
			wait := retryAfter(resp.Header, c.now())
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempt) {
				return nil, "", perr.Newf(perr.ErrorCodeTooManyRequests, "playstore rate limited")
			}
			if wait <= 0 {
				wait = c.backoff(attempt)
			}
			c.log.Warn().Dur("sleep", wait).Msg("playstore rate limited backing off")
			if se := c.sleep(ctx, wait); se != nil {
				return nil, "", interrupted(ctx, se)
			}

		case resp.StatusCode >= 500:
			_ = drainAndClose(resp.Body)
			if !c.shouldRetry(attempt) {
				return nil, "", perr.Newf(perr.ErrorCodeUnavailable, "playstore server error %d", resp.StatusCode)
			}
			back := c.backoff(attempt)
			c.log.Warn().Int("status", resp.StatusCode).Dur("retry_in", back).Msg("playstore transient error retrying")
			if se := c.sleep(ctx, back); se != nil {
				return nil, "", interrupted(ctx, se)
			}

		case resp.StatusCode == http.StatusNotFound:
			_ = drainAndClose(resp.Body)
			return nil, "", perr.Newf(perr.ErrorCodeNotFound, "playstore: app %s not found", q.AppID)

		default:
			tail, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
			_ = resp.Body.Close()
			return nil, "", perr.Newf(perr.ErrorCodeSource, "playstore unexpected status %d body %s", resp.StatusCode, string(tail))
		}
	}
}

func (c *Client) backoff(attempt int) time.Duration {
	return min(c.opts.RetryBase<<uint(attempt), 30*time.Second)
}

func (c *Client) shouldRetry(attempt int) bool {
	return attempt < c.opts.MaxRetries
}

// interrupted marks a call cut short by an expired budget as transient.
// Cancellation passes through unchanged
func interrupted(ctx context.Context, err error) error {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
		return perr.Wrapf(err, perr.ErrorCodeUnavailable, "playstore request timed out")
	}
	return err
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
