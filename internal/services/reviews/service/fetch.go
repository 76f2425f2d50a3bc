// Package service implements the review fetch engine and the run orchestrator
package service

import (
	"context"
	"time"

	"playreviews/internal/core/review"
	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/logger"
	"playreviews/internal/services/reviews/domain"
)

// FetchRequest describes one paginated pull from a source
type FetchRequest struct {
	AppID    string
	Lang     string
	Country  string
	PageSize int
	// PageBudget caps the pages requested; values below 1 mean 1
	PageBudget int

	// StopAt ends the pull once a page reaches back to this civil date
	StopAt *time.Time
	// Loc converts record timestamps to civil dates; nil means UTC
	Loc *time.Location

	ProgressEvery int
	ProgressLabel string
}

// FetchResult is what a pull collected and why it ended
type FetchResult struct {
	Records []review.Record
	Pages   int
	Stop    domain.StopReason
}

// Fetch pulls pages and returns the normalized records in arrival order
func Fetch(ctx context.Context, src domain.Source, req FetchRequest) ([]review.Record, error) {
	res, err := FetchPages(ctx, src, req)
	if err != nil {
		return nil, err
	}
	return res.Records, nil
}

// FetchPages requests pages one after another, following the cursor, until
// the source is exhausted, the budget is spent, or the newest page already
// reaches StopAt. Only the page just fetched is checked against StopAt.
// A source failure discards what was collected so far
func FetchPages(ctx context.Context, src domain.Source, req FetchRequest) (FetchResult, error) {
	log := logger.C(ctx)
	budget := max(req.PageBudget, 1)
	loc := req.Loc
	if loc == nil {
		loc = time.UTC
	}

	var (
		res    FetchResult
		cursor string
	)
	for {
		if err := ctx.Err(); err != nil {
			return FetchResult{}, err
		}

		page, err := src.FetchPage(ctx, domain.PageRequest{
			AppID:    req.AppID,
			Lang:     req.Lang,
			Country:  req.Country,
			Sort:     domain.SortNewest,
			PageSize: req.PageSize,
			Cursor:   cursor,
		})
		if err != nil {
			return FetchResult{}, perr.Wrapf(err, perr.ErrorCodeSource, "fetch %s page %d", req.AppID, res.Pages+1)
		}

		batch := review.FromRaws(page.Items)
		before := len(res.Records)
		res.Records = append(res.Records, batch...)
		res.Pages++

		if every := req.ProgressEvery; every > 0 && len(res.Records)/every != before/every {
			log.Info().Str("label", req.ProgressLabel).Int("total", len(res.Records)).
				Msgf("[%s] got %d reviews", req.ProgressLabel, len(res.Records))
		}

		switch {
		case page.Next == "":
			res.Stop = domain.StopExhausted
		case res.Pages >= budget:
			res.Stop = domain.StopBudget
		case req.StopAt != nil && reaches(batch, *req.StopAt, loc):
			res.Stop = domain.StopTarget
		}
		if res.Stop != "" {
			log.Debug().Str("app", req.AppID).Int("pages", res.Pages).Int("records", len(res.Records)).
				Str("stop", string(res.Stop)).Msg("fetch: done")
			return res, nil
		}
		cursor = page.Next
	}
}

// reaches reports whether the oldest dated record of batch is on or before target
func reaches(batch []review.Record, target time.Time, loc *time.Location) bool {
	oldest, ok := review.OldestDate(batch, loc)
	return ok && !oldest.After(target)
}
