package repo

import (
	"crypto/sha1"
	"encoding/hex"
	"strconv"
	"time"

	"playreviews/internal/core/normalize"
	"playreviews/internal/core/review"
	"playreviews/internal/services/reviews/domain"
)

// Row is one stored review in the shape every backend writes
type Row struct {
	AppID       string
	ReviewID    string
	UserName    *string
	ReviewText  *string
	Rating      *int
	ReviewDate  *time.Time
	AppVersion  *string
	YearMonth   string // YYYY-MM of the review in the run timezone; empty when undated
	TextLength  int    // words in ReviewText
	RunID       string
	Kind        string
	Frequency   string
	PeriodStart string
	PeriodEnd   string
}

// RowsFor flattens u into rows, deriving the analysis columns in loc
func RowsFor(u domain.OutputUnit, loc *time.Location) []Row {
	if loc == nil {
		loc = time.UTC
	}
	start, end := periodBounds(u)
	out := make([]Row, 0, len(u.Records))
	for _, r := range u.Records {
		row := Row{
			AppID:       u.App,
			ReviewID:    reviewKey(r),
			UserName:    r.Author,
			ReviewText:  r.Text,
			AppVersion:  r.AppVersion,
			TextLength:  normalize.WordCount(review.Str(r.Text)),
			RunID:       u.RunID,
			Kind:        string(u.Kind),
			Frequency:   string(u.Frequency),
			PeriodStart: start,
			PeriodEnd:   end,
		}
		if r.Rating > 0 {
			rating := r.Rating
			row.Rating = &rating
		}
		if r.Dated() {
			at := r.At.UTC()
			row.ReviewDate = &at
			row.YearMonth = r.At.In(loc).Format("2006-01")
		}
		out = append(out, row)
	}
	return out
}

func periodBounds(u domain.OutputUnit) (string, string) {
	if u.Period == nil {
		return "", ""
	}
	return u.Period.Start.Format(time.DateOnly), u.Period.End.Format(time.DateOnly)
}

// reviewKey is the source id, or a content hash for reviews that came without one
func reviewKey(r review.Record) string {
	if r.ReviewID != "" {
		return r.ReviewID
	}
	h := sha1.New()
	for _, s := range []string{review.Str(r.Author), review.Str(r.Text), review.Str(r.AppVersion), strconv.Itoa(r.Rating)} {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}
	if r.Dated() {
		h.Write([]byte(r.At.UTC().Format(time.RFC3339Nano)))
	}
	return "sha1:" + hex.EncodeToString(h.Sum(nil))
}
