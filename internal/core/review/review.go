// Package review holds the normalized review record shared by the fetch
// engine, the window filter and the sinks
package review

import (
	"time"

	"playreviews/internal/core/normalize"
	"playreviews/internal/core/period"
)

// Raw is one review as decoded from the remote source, before cleanup
type Raw struct {
	ReviewID     string
	UserName     *string
	Content      *string
	Score        int
	At           *time.Time
	AppVersion   *string
	ThumbsUp     int
	ReplyContent *string
}

// Record is a normalized review. Records are values and are not modified
// once built
type Record struct {
	ReviewID   string
	Author     *string
	Text       *string
	Rating     int
	At         time.Time // zero when the source gave no usable timestamp
	AppVersion *string
}

// FromRaw normalizes a decoded review. Ratings outside 1..5 become 0
func FromRaw(r Raw) Record {
	rec := Record{
		ReviewID:   r.ReviewID,
		Author:     normalize.Ptr(r.UserName),
		Text:       normalize.Ptr(r.Content),
		Rating:     r.Score,
		AppVersion: normalize.Ptr(r.AppVersion),
	}
	if rec.Rating < 1 || rec.Rating > 5 {
		rec.Rating = 0
	}
	if r.At != nil && !r.At.IsZero() {
		rec.At = r.At.UTC()
	}
	return rec
}

// FromRaws normalizes a batch preserving order
func FromRaws(rs []Raw) []Record {
	out := make([]Record, len(rs))
	for i, r := range rs {
		out[i] = FromRaw(r)
	}
	return out
}

// Dated reports whether the record has a timestamp
func (r Record) Dated() bool { return !r.At.IsZero() }

// DateIn returns the civil date of the record in loc and whether it has one
func (r Record) DateIn(loc *time.Location) (time.Time, bool) {
	if !r.Dated() {
		return time.Time{}, false
	}
	return period.Date(r.At, loc), true
}

// OldestDate returns the earliest civil date among dated records in loc.
// ok is false when no record carries a date
func OldestDate(recs []Record, loc *time.Location) (oldest time.Time, ok bool) {
	for _, r := range recs {
		d, dated := r.DateIn(loc)
		if !dated {
			continue
		}
		if !ok || d.Before(oldest) {
			oldest, ok = d, true
		}
	}
	return oldest, ok
}

// Str returns *p or "" for nil
func Str(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}
