package store

import (
	"context"
	"errors"
	"time"

	"playreviews/internal/platform/store/ch"
	"playreviews/internal/platform/store/sqltrace"
)

// newCHAdapter wraps an open *ch.CH as the store.Clickhouse seam
func newCHAdapter(c *ch.CH, em sqltrace.Emitter) Clickhouse {
	return &clickhouseAdapter{inner: c, trace: em}
}

type clickhouseAdapter struct {
	inner *ch.CH
	trace sqltrace.Emitter
}

var _ Clickhouse = (*clickhouseAdapter)(nil)

func (a *clickhouseAdapter) Exec(ctx context.Context, sql string, args ...any) error {
	start := time.Now()
	err := a.inner.Exec(ctx, sql, args...)
	a.trace.Emit(ctx, sql, args, start, err)
	return err
}

func (a *clickhouseAdapter) Insert(ctx context.Context, table string, rows [][]any) error {
	start := time.Now()
	err := a.inner.Insert(ctx, table, rows)
	a.trace.Emit(ctx, "INSERT INTO "+table, []any{len(rows)}, start, err)
	return err
}

func (a *clickhouseAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	start := time.Now()
	r, err := a.inner.Query(ctx, sql, args...)
	a.trace.Emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return &chRows{r: r}, nil
}

func (a *clickhouseAdapter) Close() error { return a.inner.Close() }

// Ping verifies connectivity with ClickHouse
func (a *clickhouseAdapter) Ping(ctx context.Context) error {
	if a == nil || a.inner == nil {
		return errors.New("store: nil clickhouse adapter")
	}
	return a.inner.Ping(ctx)
}

// chRows adapts ch.Rows (Close returns error) to store.Rows
type chRows struct {
	r ch.Rows
}

func (r *chRows) Next() bool             { return r.r.Next() }
func (r *chRows) Scan(dest ...any) error { return r.r.Scan(dest...) }
func (r *chRows) Err() error             { return r.r.Err() }
func (r *chRows) Close()                 { _ = r.r.Close() }
func (r *chRows) Columns() []string      { return r.r.Columns() }
