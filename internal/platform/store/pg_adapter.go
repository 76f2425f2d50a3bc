package store

import (
	"context"
	"errors"
	"time"

	"playreviews/internal/platform/store/sqltrace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// pgAdapter wraps a pgx pool and implements RowQuerier + TxRunner
// it emits query trace events when a tracer is configured
type pgAdapter struct {
	pool  *pgxpool.Pool
	trace sqltrace.Emitter
}

func newPGAdapter(p *pgxpool.Pool, em sqltrace.Emitter) *pgAdapter {
	return &pgAdapter{pool: p, trace: em}
}

func (a *pgAdapter) Ping(ctx context.Context) error {
	if a == nil || a.pool == nil {
		return errors.New("pg: nil adapter")
	}
	return a.pool.Ping(ctx)
}

func (a *pgAdapter) Close() error { a.pool.Close(); return nil }

func (a *pgAdapter) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return pgExec(ctx, a.pool, a.trace, sql, args)
}

func (a *pgAdapter) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return pgQuery(ctx, a.pool, a.trace, sql, args)
}

func (a *pgAdapter) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return pgQueryRow(ctx, a.pool, a.trace, sql, args)
}

func (a *pgAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.pool.Begin(ctx)
	if err != nil {
		return err
	}
	if err := fn(pgTx{tx: tx, trace: a.trace}); err != nil {
		_ = tx.Rollback(ctx)
		return err
	}
	return tx.Commit(ctx)
}

// pgTx mirrors pgAdapter so statements inside transactions are traced too
type pgTx struct {
	tx    pgx.Tx
	trace sqltrace.Emitter
}

func (t pgTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return pgExec(ctx, t.tx, t.trace, sql, args)
}

func (t pgTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return pgQuery(ctx, t.tx, t.trace, sql, args)
}

func (t pgTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return pgQueryRow(ctx, t.tx, t.trace, sql, args)
}

// pgConn is the surface shared by *pgxpool.Pool and pgx.Tx
type pgConn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func pgExec(ctx context.Context, c pgConn, em sqltrace.Emitter, sql string, args []any) (CommandTag, error) {
	start := time.Now()
	ct, err := c.Exec(ctx, sql, args...)
	em.Emit(ctx, sql, args, start, err)
	return pgTag{ct}, err
}

func pgQuery(ctx context.Context, c pgConn, em sqltrace.Emitter, sql string, args []any) (Rows, error) {
	start := time.Now()
	rs, err := c.Query(ctx, sql, args...)
	em.Emit(ctx, sql, args, start, err)
	if err != nil {
		return nil, err
	}
	return pgRows{r: rs}, nil
}

func pgQueryRow(ctx context.Context, c pgConn, em sqltrace.Emitter, sql string, args []any) Row {
	start := time.Now()
	r := c.QueryRow(ctx, sql, args...)
	return pgRow{r: r, after: func(scanErr error) { em.Emit(ctx, sql, args, start, scanErr) }}
}

type pgRow struct {
	r     pgx.Row
	after func(error)
}

func (x pgRow) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if x.after != nil {
		x.after(err)
	}
	return err
}

type pgRows struct{ r pgx.Rows }

func (x pgRows) Next() bool            { return x.r.Next() }
func (x pgRows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x pgRows) Err() error            { return x.r.Err() }
func (x pgRows) Close()                { x.r.Close() }
func (x pgRows) Columns() []string {
	f := x.r.FieldDescriptions()
	out := make([]string, len(f))
	for i := range f {
		out[i] = f[i].Name
	}
	return out
}

type pgTag struct{ t pgconn.CommandTag }

func (t pgTag) String() string      { return t.t.String() }
func (t pgTag) RowsAffected() int64 { return t.t.RowsAffected() }
