// Package window assigns normalized reviews to calendar periods
package window

import (
	"time"

	"playreviews/internal/core/period"
	"playreviews/internal/core/review"
)

// Partition assigns each dated record to every period whose inclusive date
// range contains the record's civil date in loc. Undated records are
// dropped. Each period appears as a key even when nothing falls in it, and
// records keep their input order
func Partition(recs []review.Record, periods []period.Period, loc *time.Location) map[period.Period][]review.Record {
	out := make(map[period.Period][]review.Record, len(periods))
	for _, p := range periods {
		out[p] = nil
	}
	for _, r := range recs {
		d, ok := r.DateIn(loc)
		if !ok {
			continue
		}
		for _, p := range periods {
			if p.Contains(d) {
				out[p] = append(out[p], r)
			}
		}
	}
	return out
}

// Filter returns the records of recs whose civil date falls inside p
func Filter(recs []review.Record, p period.Period, loc *time.Location) []review.Record {
	var out []review.Record
	for _, r := range recs {
		if d, ok := r.DateIn(loc); ok && p.Contains(d) {
			out = append(out, r)
		}
	}
	return out
}
