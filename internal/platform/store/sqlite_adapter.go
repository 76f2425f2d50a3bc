package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"playreviews/internal/platform/store/sqltrace"
)

// sqlAdapter wraps a database/sql handle (SQLite) behind RowQuerier + TxRunner
type sqlAdapter struct {
	db    *sql.DB
	trace sqltrace.Emitter
}

// NewSQLAdapter exposes a database/sql handle as a TxRunner
func NewSQLAdapter(db *sql.DB, em sqltrace.Emitter) TxRunner {
	return &sqlAdapter{db: db, trace: em}
}

func (a *sqlAdapter) Ping(ctx context.Context) error {
	if a == nil || a.db == nil {
		return errors.New("sqlite: nil adapter")
	}
	return a.db.PingContext(ctx)
}

func (a *sqlAdapter) Close() error { return a.db.Close() }

func (a *sqlAdapter) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	return sqlExec(ctx, a.db, a.trace, q, args)
}

func (a *sqlAdapter) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	return sqlQuery(ctx, a.db, a.trace, q, args)
}

func (a *sqlAdapter) QueryRow(ctx context.Context, q string, args ...any) Row {
	return sqlQueryRow(ctx, a.db, a.trace, q, args)
}

func (a *sqlAdapter) Tx(ctx context.Context, fn func(q RowQuerier) error) error {
	tx, err := a.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	if err := fn(sqlTx{tx: tx, trace: a.trace}); err != nil {
		_ = tx.Rollback()
		return err
	}
	return tx.Commit()
}

type sqlTx struct {
	tx    *sql.Tx
	trace sqltrace.Emitter
}

func (t sqlTx) Exec(ctx context.Context, q string, args ...any) (CommandTag, error) {
	return sqlExec(ctx, t.tx, t.trace, q, args)
}

func (t sqlTx) Query(ctx context.Context, q string, args ...any) (Rows, error) {
	return sqlQuery(ctx, t.tx, t.trace, q, args)
}

func (t sqlTx) QueryRow(ctx context.Context, q string, args ...any) Row {
	return sqlQueryRow(ctx, t.tx, t.trace, q, args)
}

// sqlConn is the surface shared by *sql.DB and *sql.Tx
type sqlConn interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func sqlExec(ctx context.Context, c sqlConn, em sqltrace.Emitter, q string, args []any) (CommandTag, error) {
	start := time.Now()
	res, err := c.ExecContext(ctx, q, args...)
	em.Emit(ctx, q, args, start, err)
	if err != nil {
		return sqlTag{}, err
	}
	n, _ := res.RowsAffected()
	return sqlTag{n: n}, nil
}

func sqlQuery(ctx context.Context, c sqlConn, em sqltrace.Emitter, q string, args []any) (Rows, error) {
	start := time.Now()
	rs, err := c.QueryContext(ctx, q, args...)
	em.Emit(ctx, q, args, start, err)
	if err != nil {
		return nil, err
	}
	return sqlRows{r: rs}, nil
}

func sqlQueryRow(ctx context.Context, c sqlConn, em sqltrace.Emitter, q string, args []any) Row {
	start := time.Now()
	r := c.QueryRowContext(ctx, q, args...)
	return sqlRow{r: r, after: func(scanErr error) { em.Emit(ctx, q, args, start, scanErr) }}
}

type sqlRow struct {
	r     *sql.Row
	after func(error)
}

func (x sqlRow) Scan(dst ...any) error {
	err := x.r.Scan(dst...)
	if x.after != nil {
		x.after(err)
	}
	return err
}

type sqlRows struct{ r *sql.Rows }

func (x sqlRows) Next() bool            { return x.r.Next() }
func (x sqlRows) Scan(dst ...any) error { return x.r.Scan(dst...) }
func (x sqlRows) Err() error            { return x.r.Err() }
func (x sqlRows) Close()                { _ = x.r.Close() }
func (x sqlRows) Columns() []string {
	cols, _ := x.r.Columns()
	return cols
}

type sqlTag struct{ n int64 }

func (t sqlTag) String() string      { return fmt.Sprintf("OK %d", t.n) }
func (t sqlTag) RowsAffected() int64 { return t.n }
