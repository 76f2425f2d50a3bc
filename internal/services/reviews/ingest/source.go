// Package ingest holds adapter shims for the review source port
package ingest

import (
	"context"
	"time"

	"playreviews/internal/adapters/ingest/playstore"
	"playreviews/internal/modkit"
	"playreviews/internal/services/reviews/domain"
)

// PerCall is the most reviews one store call returns; larger pages chain calls
const PerCall = playstore.MaxPerRequest

// reviewsClient is the slice of the playstore client the shim needs
type reviewsClient interface {
	Reviews(ctx context.Context, q playstore.Query) (playstore.Batch, error)
}

// source implements domain.Source on top of the store client
type source struct {
	c reviewsClient
}

// NewSource constructs a domain.Source from config under CORE_REVIEWS_*.
// This keeps config reading outside the service
func NewSource(deps modkit.Deps) domain.Source {
	cfg := deps.Cfg.Prefix("CORE_REVIEWS_")
	return FromClient(playstore.NewClient(deps.Log, playstore.Options{
		BaseURL:    cfg.MayString("BASE_URL", ""),
		UserAgent:  cfg.MayString("USER_AGENT", ""),
		Timeout:    cfg.MayDuration("HTTP_TIMEOUT", 30*time.Second),
		// retries belong to the service layer unless HTTP_RETRIES opts in
		MaxRetries: cfg.MayInt("HTTP_RETRIES", -1),
		RetryBase:  cfg.MayDuration("RETRY_BASE", 500*time.Millisecond),
		RPS:        cfg.MayFloat64("RPS", 2),
		Burst:      cfg.MayInt("BURST", 1),
	}))
}

// FromClient adapts a store client to domain.Source
func FromClient(c reviewsClient) domain.Source { return &source{c: c} }

func (s *source) FetchPage(ctx context.Context, req domain.PageRequest) (domain.Page, error) {
	b, err := s.c.Reviews(ctx, playstore.Query{
		AppID:   req.AppID,
		Lang:    req.Lang,
		Country: req.Country,
		Sort:    req.Sort,
		Count:   req.PageSize,
		Token:   req.Cursor,
	})
	if err != nil {
		return domain.Page{}, err
	}
	items := make([]domain.RawReview, len(b.Reviews))
	for i, r := range b.Reviews {
		items[i] = toRaw(r)
	}
	return domain.Page{Items: items, Next: b.Token}, nil
}

func toRaw(r playstore.Review) domain.RawReview {
	return domain.RawReview{
		ReviewID:     r.ID,
		UserName:     r.UserName,
		Content:      r.Content,
		Score:        r.Score,
		At:           r.At,
		AppVersion:   r.AppVersion,
		ThumbsUp:     r.ThumbsUp,
		ReplyContent: r.ReplyContent,
	}
}
