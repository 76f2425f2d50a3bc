// Package repo stores output units in the relational and columnar backends
package repo

import (
	"context"
	"embed"
	"fmt"
	"strings"
	"time"

	"playreviews/internal/modkit/repokit"
	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/store/migrate"
	"playreviews/internal/services/reviews/domain"
)

//go:embed migrations
var migrations embed.FS

// reviewCols is the insert column order shared by the sql backends
var reviewCols = []string{
	"app_id", "review_id", "user_name", "review_text", "rating", "review_date", "app_version",
	"year_month", "text_length", "run_id", "kind", "frequency", "period_start", "period_end",
}

// batchSize keeps each insert well under the bind parameter limits
const batchSize = 200

type (
	sqlRepo struct {
		q   repokit.Queryer
		d   migrate.Dialect
		loc *time.Location
		now func() time.Time
	}
	binder struct {
		d   migrate.Dialect
		loc *time.Location
	}
)

// NewSQLite constructs a repo binder for the embedded database.
// Analysis columns are derived in loc
func NewSQLite(loc *time.Location) repokit.Binder[domain.ReviewRepo] {
	return binder{d: migrate.SQLite, loc: loc}
}

// NewPG constructs a repo binder for Postgres
func NewPG(loc *time.Location) repokit.Binder[domain.ReviewRepo] {
	return binder{d: migrate.Postgres, loc: loc}
}

// Bind implements repokit.Binder
func (b binder) Bind(q repokit.Queryer) domain.ReviewRepo {
	return &sqlRepo{q: q, d: b.d, loc: b.loc, now: time.Now}
}

// Migrate applies the embedded schema for d
func Migrate(ctx context.Context, db repokit.TxRunner, d migrate.Dialect) ([]string, error) {
	dir := "migrations/sqlite"
	if d == migrate.Postgres {
		dir = "migrations/postgres"
	}
	applied, err := migrate.Apply(ctx, db, migrations, dir, d)
	if err != nil {
		return applied, perr.Wrap(err, perr.ErrorCodeDB, "migrate reviews schema")
	}
	return applied, nil
}

func (s *sqlRepo) bind(n int) string {
	if s.d == migrate.Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// SaveUnit implements domain.ReviewRepo
func (s *sqlRepo) SaveUnit(ctx context.Context, u domain.OutputUnit) (int, error) {
	if err := s.saveHeader(ctx, u); err != nil {
		return 0, s.wrap(err, "save unit header")
	}
	rows := RowsFor(u, s.loc)
	inserted := 0
	for i := 0; i < len(rows); i += batchSize {
		n, err := s.insert(ctx, rows[i:min(i+batchSize, len(rows))])
		if err != nil {
			return inserted, s.wrap(err, "insert reviews")
		}
		inserted += n
	}
	return inserted, nil
}

func (s *sqlRepo) saveHeader(ctx context.Context, u domain.OutputUnit) error {
	start, end := periodBounds(u)
	var storedAt any = s.now().UTC()
	if s.d == migrate.SQLite {
		storedAt = s.now().UTC().Format(time.RFC3339)
	}
	q := `INSERT INTO output_units
		(run_id, app_id, kind, frequency, period_start, period_end, records, stored_at)
		VALUES (` + s.list(1, 8) + `)
		ON CONFLICT (run_id, app_id, kind, period_start)
		DO UPDATE SET records = excluded.records, stored_at = excluded.stored_at`
	_, err := s.q.Exec(ctx, q, u.RunID, u.App, string(u.Kind), string(u.Frequency), start, end, len(u.Records), storedAt)
	return err
}

func (s *sqlRepo) insert(ctx context.Context, rows []Row) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	var sb strings.Builder
	sb.WriteString("INSERT INTO reviews (" + strings.Join(reviewCols, ", ") + ") VALUES ")

	n := len(reviewCols)
	args := make([]any, 0, len(rows)*n)
	for i, r := range rows {
		if i > 0 {
			sb.WriteByte(',')
		}
		sb.WriteString("(" + s.list(i*n+1, n) + ")")
		args = append(args,
			r.AppID, r.ReviewID, r.UserName, r.ReviewText, r.Rating, s.date(r), r.AppVersion,
			r.YearMonth, r.TextLength, r.RunID, r.Kind, r.Frequency, r.PeriodStart, r.PeriodEnd,
		)
	}
	// a review stored by an earlier run keeps its first unit
	sb.WriteString(" ON CONFLICT (app_id, review_id) DO NOTHING")

	tag, err := s.q.Exec(ctx, sb.String(), args...)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}

// date renders review_date; sqlite keeps text so lexical order is time order
func (s *sqlRepo) date(r Row) any {
	if r.ReviewDate == nil {
		return nil
	}
	if s.d == migrate.SQLite {
		return r.ReviewDate.Format(time.RFC3339)
	}
	return *r.ReviewDate
}

func (s *sqlRepo) list(from, n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = s.bind(from + i)
	}
	return strings.Join(parts, ", ")
}

func (s *sqlRepo) wrap(err error, msg string) error {
	if s.d == migrate.Postgres {
		return perr.FromPostgres(err, msg)
	}
	return perr.Wrap(err, perr.ErrorCodeDB, msg)
}
