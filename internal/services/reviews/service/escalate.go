package service

import (
	"context"
	"fmt"
	"time"

	"playreviews/internal/core/review"
	"playreviews/internal/platform/logger"
	"playreviews/internal/services/reviews/domain"
)

// EscalationConfig bounds how far FetchUntil grows page size and page budget
type EscalationConfig struct {
	PagesStart      int
	PagesMultiplier float64
	PagesCap        int

	CountStart      int
	CountMultiplier float64
	CountCap        int
}

// DefaultEscalation returns the settings used when an app sets none:
// pages 5 doubling up to 200, page size from base doubling up to base*20
func DefaultEscalation(base int) EscalationConfig {
	return EscalationConfig{
		PagesStart:      5,
		PagesMultiplier: 2,
		PagesCap:        200,
		CountStart:      base,
		CountMultiplier: 2,
		CountCap:        max(base, base*20),
	}
}

// EscalateRequest asks for records reaching back to Target
type EscalateRequest struct {
	AppID        string
	Lang         string
	Country      string
	Target       time.Time
	BasePageSize int
	// PageBudget, when set, disables escalation: one pull with this budget
	PageBudget *int
	Escalation EscalationConfig
	Loc        *time.Location

	ProgressEvery int
	Label         string
}

// EscalateResult is the final attempt of FetchUntil
type EscalateResult struct {
	Records    []review.Record
	Attempts   int
	PageSize   int
	PageBudget int
	Degraded   domain.Degradation
}

// FetchUntil pulls from scratch with growing limits until the oldest record
// across the whole result reaches Target. Page size grows before page
// budget. When neither can grow, or no record carries a date, the last
// result is returned with a degradation mark instead of an error
func FetchUntil(ctx context.Context, src domain.Source, req EscalateRequest) (EscalateResult, error) {
	log := logger.C(ctx)
	target := req.Target
	loc := req.Loc
	if loc == nil {
		loc = time.UTC
	}

	pull := func(size, pages int, label string) ([]review.Record, error) {
		return Fetch(ctx, src, FetchRequest{
			AppID:         req.AppID,
			Lang:          req.Lang,
			Country:       req.Country,
			PageSize:      size,
			PageBudget:    pages,
			StopAt:        &target,
			Loc:           loc,
			ProgressEvery: req.ProgressEvery,
			ProgressLabel: label,
		})
	}

	if req.PageBudget != nil {
		size := max(req.BasePageSize, 1)
		recs, err := pull(size, *req.PageBudget, req.Label)
		if err != nil {
			return EscalateResult{}, err
		}
		return EscalateResult{Records: recs, Attempts: 1, PageSize: size, PageBudget: *req.PageBudget}, nil
	}

	esc := req.Escalation
	pages := max(1, esc.PagesStart)
	pagesMul := multiplier(esc.PagesMultiplier)
	pagesCap := max(pages, esc.PagesCap)
	count := max(1, esc.CountStart, req.BasePageSize)
	countMul := multiplier(esc.CountMultiplier)
	countCap := max(count, esc.CountCap)

	res := EscalateResult{}
	for {
		log.Info().Int("pages", pages).Int("page_size", count).Time("target", target).
			Msgf("fetching up to %d pages of %d reviews to cover %s", pages, count, target.Format(time.DateOnly))

		recs, err := pull(count, pages, fmt.Sprintf("%s-p%d", req.Label, pages))
		if err != nil {
			return EscalateResult{}, err
		}
		res.Records, res.Attempts, res.PageSize, res.PageBudget = recs, res.Attempts+1, count, pages

		oldest, ok := review.OldestDate(recs, loc)
		if !ok {
			log.Warn().Int("pages", pages).Int("page_size", count).Int("records", len(recs)).
				Msg("no usable review dates; returning what was fetched")
			res.Degraded = domain.DegradedNoUsableDates
			return res, nil
		}
		if !oldest.After(target) {
			return res, nil
		}

		if next := grow(count, countMul, countCap); next > count {
			log.Info().Time("oldest", oldest).Int("page_size", next).
				Msgf("oldest review %s is after target %s; page size now %d",
					oldest.Format(time.DateOnly), target.Format(time.DateOnly), next)
			count = next
			continue
		}

		next := grow(pages, pagesMul, pagesCap)
		if next == pages {
			log.Warn().Int("pages", pages).Time("target", target).Time("oldest", oldest).
				Msgf("target %s not reached at the %d page limit; oldest review is %s",
					target.Format(time.DateOnly), pages, oldest.Format(time.DateOnly))
			res.Degraded = domain.DegradedEscalationExhausted
			return res, nil
		}
		log.Info().Time("oldest", oldest).Int("pages", next).
			Msgf("oldest review %s is after target %s; page budget now %d",
				oldest.Format(time.DateOnly), target.Format(time.DateOnly), next)
		pages = next
	}
}

// grow multiplies cur by mul, always by at least one, without passing limit
func grow(cur int, mul float64, limit int) int {
	return min(limit, max(int(float64(cur)*mul), cur+1))
}

func multiplier(m float64) float64 {
	if m <= 1 {
		return 2
	}
	return m
}
