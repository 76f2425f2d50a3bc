package module

import (
	"context"
	"time"

	"playreviews/internal/adapters/export/csvfile"
	"playreviews/internal/modkit"
	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/store/migrate"
	"playreviews/internal/services/reviews/domain"
	"playreviews/internal/services/reviews/repo"
)

// csvSink writes each unit to its own file under the document output dir
type csvSink struct{ w *csvfile.Writer }

func (s csvSink) Name() string { return "csv" }

func (s csvSink) Write(ctx context.Context, u domain.OutputUnit) error {
	_, err := s.w.Write(ctx, csvfile.File{
		Kind:      string(u.Kind),
		App:       u.App,
		Frequency: string(u.Frequency),
		Period:    u.Period,
	}, u.Records)
	return err
}

// openers maps sink names to constructors. Database sinks fail to open
// when their backend was not configured
func openers(deps modkit.Deps, opts Options) map[string]domain.SinkOpener {
	return map[string]domain.SinkOpener{
		"csv": func(_ context.Context, doc domain.Document) (domain.Sink, error) {
			loc, err := location(doc)
			if err != nil {
				return nil, err
			}
			root := doc.OutputDir
			if root == "" {
				root = opts.OutputDir
			}
			return csvSink{w: csvfile.New(root, loc, deps.Log)}, nil
		},
		"sqlite": func(ctx context.Context, doc domain.Document) (domain.Sink, error) {
			db := deps.SQLite()
			if db == nil {
				return nil, perr.New(perr.ErrorCodeInvalidArgument, "sqlite sink needs SERVICE_SQLITE_PATH")
			}
			loc, err := location(doc)
			if err != nil {
				return nil, err
			}
			if _, err := repo.Migrate(ctx, db, migrate.SQLite); err != nil {
				return nil, err
			}
			return repo.NewSQLSink("sqlite", db, repo.NewSQLite(loc)), nil
		},
		"postgres": func(ctx context.Context, doc domain.Document) (domain.Sink, error) {
			db := deps.PG()
			if db == nil {
				return nil, perr.New(perr.ErrorCodeInvalidArgument, "postgres sink needs SERVICE_PGSQL_DBURL")
			}
			loc, err := location(doc)
			if err != nil {
				return nil, err
			}
			if _, err := repo.Migrate(ctx, db, migrate.Postgres); err != nil {
				return nil, err
			}
			return repo.NewSQLSink("postgres", db, repo.NewPG(loc)), nil
		},
		"clickhouse": func(ctx context.Context, doc domain.Document) (domain.Sink, error) {
			ch := deps.CH()
			if ch == nil {
				return nil, perr.New(perr.ErrorCodeInvalidArgument, "clickhouse sink needs SERVICE_CLICKHOUSE_DBURL")
			}
			loc, err := location(doc)
			if err != nil {
				return nil, err
			}
			if err := repo.EnsureClickhouse(ctx, ch); err != nil {
				return nil, err
			}
			return repo.NewRepoSink("clickhouse", repo.NewClickhouse(ch, loc)), nil
		},
	}
}

func location(doc domain.Document) (*time.Location, error) {
	loc, err := doc.Location()
	if err != nil {
		return nil, perr.Wrapf(err, perr.ErrorCodeValidation, "timezone %q", doc.Timezone)
	}
	return loc, nil
}
