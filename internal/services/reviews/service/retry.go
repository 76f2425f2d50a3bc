package service

import (
	"context"
	"errors"
	"math/rand"
	"time"

	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/logger"
	"playreviews/internal/services/reviews/domain"
	"playreviews/internal/services/reviews/guardrails"
)

// RetrySource retries transient page failures with exponential backoff and
// jitter, capped at 30s. Each attempt runs under the request timeout, scaled
// by the number of chained calls the page size needs; an attempt that runs
// out of time counts as transient
type RetrySource struct {
	Src      domain.Source
	Attempts int           // <=0 -> 1
	Base     time.Duration // <=0 -> 500ms
	Timeouts guardrails.Timeouts
	// PerCall is the most reviews one underlying call returns; <=0 means a
	// page is always one call
	PerCall int

	sleep func(context.Context, time.Duration) error
}

// NewRetrySource wraps src
func NewRetrySource(src domain.Source, attempts int, base time.Duration, t guardrails.Timeouts) *RetrySource {
	if src == nil {
		panic("reviews.RetrySource requires a non nil Source")
	}
	return &RetrySource{Src: src, Attempts: attempts, Base: base, Timeouts: t, sleep: sleepCtx}
}

// FetchPage implements domain.Source
func (r *RetrySource) FetchPage(ctx context.Context, req domain.PageRequest) (domain.Page, error) {
	attempts := max(r.Attempts, 1)
	base := r.Base
	if base <= 0 {
		base = 500 * time.Millisecond
	}
	sleep := r.sleep
	if sleep == nil {
		sleep = sleepCtx
	}

	var last error
	for i := range attempts {
		page, err := r.once(ctx, req)
		if err == nil {
			return page, nil
		}
		last = err

		if !perr.Retryable(err) || i == attempts-1 {
			break
		}

		d := min(base<<i, 30*time.Second)
		j := d/2 + time.Duration(rand.Int63n(int64(d/2)+1))
		logger.C(ctx).Warn().Err(err).Str("app", req.AppID).Int("attempt", i+1).Dur("backoff", j).
			Msg("reviews: page request failed, retrying")
		if se := sleep(ctx, j); se != nil {
			return domain.Page{}, se
		}
	}
	return domain.Page{}, last
}

func (r *RetrySource) once(ctx context.Context, req domain.PageRequest) (domain.Page, error) {
	reqCtx, cancel := guardrails.ForCalls(ctx, r.Timeouts, r.calls(req.PageSize))
	defer cancel()

	page, err := r.Src.FetchPage(reqCtx, req)
	if err != nil && ctx.Err() == nil &&
		(errors.Is(reqCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded)) {
		return domain.Page{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "page request timed out")
	}
	return page, err
}

// calls is how many chained calls a page of size n takes
func (r *RetrySource) calls(n int) int {
	if r.PerCall <= 0 || n <= r.PerCall {
		return 1
	}
	return (n + r.PerCall - 1) / r.PerCall
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
