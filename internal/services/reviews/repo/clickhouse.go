package repo

import (
	"context"
	"time"

	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/store"
	"playreviews/internal/services/reviews/domain"
)

// clickhouse tables dedupe on merge, keyed like the sql unique constraints
var chSchema = []string{
	`CREATE TABLE IF NOT EXISTS output_units (
		run_id       String,
		app_id       String,
		kind         LowCardinality(String),
		frequency    LowCardinality(String),
		period_start String,
		period_end   String,
		records      UInt32,
		stored_at    DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(stored_at)
	ORDER BY (run_id, app_id, kind, period_start)`,
	`CREATE TABLE IF NOT EXISTS reviews (
		app_id       String,
		review_id    String,
		user_name    Nullable(String),
		review_text  Nullable(String),
		rating       Nullable(UInt8),
		review_date  Nullable(DateTime64(3, 'UTC')),
		app_version  Nullable(String),
		year_month   String,
		text_length  UInt32,
		run_id       String,
		kind         LowCardinality(String),
		frequency    LowCardinality(String),
		period_start String,
		period_end   String,
		stored_at    DateTime64(3, 'UTC')
	) ENGINE = ReplacingMergeTree(stored_at)
	ORDER BY (app_id, review_id)`,
}

type chRepo struct {
	ch  store.Clickhouse
	loc *time.Location
	now func() time.Time
}

// NewClickhouse returns a repo writing to ClickHouse. Inserted counts are
// the rows sent; duplicates collapse when the table merges
func NewClickhouse(ch store.Clickhouse, loc *time.Location) domain.ReviewRepo {
	return &chRepo{ch: ch, loc: loc, now: time.Now}
}

// EnsureClickhouse creates the tables when missing
func EnsureClickhouse(ctx context.Context, ch store.Clickhouse) error {
	for _, ddl := range chSchema {
		if err := ch.Exec(ctx, ddl); err != nil {
			return perr.Wrap(err, perr.ErrorCodeDB, "clickhouse schema")
		}
	}
	return nil
}

// SaveUnit implements domain.ReviewRepo
func (r *chRepo) SaveUnit(ctx context.Context, u domain.OutputUnit) (int, error) {
	at := r.now().UTC()
	start, end := periodBounds(u)

	header := [][]any{{u.RunID, u.App, string(u.Kind), string(u.Frequency), start, end, uint32(len(u.Records)), at}}
	if err := r.ch.Insert(ctx, "output_units", header); err != nil {
		return 0, perr.Wrap(err, perr.ErrorCodeDB, "clickhouse insert unit")
	}

	rows := RowsFor(u, r.loc)
	if len(rows) == 0 {
		return 0, nil
	}
	batch := make([][]any, 0, len(rows))
	for _, x := range rows {
		var rating *uint8
		if x.Rating != nil {
			v := uint8(*x.Rating)
			rating = &v
		}
		batch = append(batch, []any{
			x.AppID, x.ReviewID, x.UserName, x.ReviewText, rating, x.ReviewDate, x.AppVersion,
			x.YearMonth, uint32(x.TextLength), x.RunID, x.Kind, x.Frequency, x.PeriodStart, x.PeriodEnd, at,
		})
	}
	if err := r.ch.Insert(ctx, "reviews", batch); err != nil {
		return 0, perr.Wrap(err, perr.ErrorCodeDB, "clickhouse insert reviews")
	}
	return len(rows), nil
}
