package repo

import (
	"context"

	"playreviews/internal/modkit/repokit"
	"playreviews/internal/platform/logger"
	"playreviews/internal/services/reviews/domain"
)

// SQLSink writes each unit in one transaction through a bound repo
type SQLSink struct {
	name   string
	db     repokit.TxRunner
	binder repokit.Binder[domain.ReviewRepo]
}

// NewSQLSink returns a sink named name over db
func NewSQLSink(name string, db repokit.TxRunner, b repokit.Binder[domain.ReviewRepo]) *SQLSink {
	return &SQLSink{name: name, db: db, binder: b}
}

// Name implements domain.Sink
func (s *SQLSink) Name() string { return s.name }

// Write implements domain.Sink
func (s *SQLSink) Write(ctx context.Context, u domain.OutputUnit) error {
	var inserted int
	err := repokit.WithTx(ctx, s.db, func(q repokit.Queryer) error {
		n, err := repokit.MustBind(s.binder, q).SaveUnit(ctx, u)
		inserted = n
		return err
	})
	if err != nil {
		return err
	}
	logUnit(ctx, s.name, u, inserted)
	return nil
}

// RepoSink adapts a repo that manages its own batching, such as ClickHouse
type RepoSink struct {
	name string
	repo domain.ReviewRepo
}

// NewRepoSink returns a sink named name over r
func NewRepoSink(name string, r domain.ReviewRepo) *RepoSink {
	return &RepoSink{name: name, repo: r}
}

// Name implements domain.Sink
func (s *RepoSink) Name() string { return s.name }

// Write implements domain.Sink
func (s *RepoSink) Write(ctx context.Context, u domain.OutputUnit) error {
	n, err := s.repo.SaveUnit(ctx, u)
	if err != nil {
		return err
	}
	logUnit(ctx, s.name, u, n)
	return nil
}

func logUnit(ctx context.Context, sink string, u domain.OutputUnit, inserted int) {
	ev := logger.C(ctx).Debug().Str("sink", sink).Int("records", len(u.Records)).Int("inserted", inserted)
	if u.Period != nil {
		ev = ev.Str("period", u.Period.String())
	}
	ev.Msg("unit stored")
}

var (
	_ domain.Sink = (*SQLSink)(nil)
	_ domain.Sink = (*RepoSink)(nil)
)
