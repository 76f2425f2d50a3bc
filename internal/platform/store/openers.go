package store

import (
	"context"
	"fmt"
	"time"

	chx "playreviews/internal/platform/store/ch"
	"playreviews/internal/platform/store/pg"
	"playreviews/internal/platform/store/sqlite"
	"playreviews/internal/platform/store/sqltrace"
)

func emitter(s *Store, enabled bool, backend string, slowMs int) sqltrace.Emitter {
	if !enabled {
		return sqltrace.Emitter{}
	}
	return sqltrace.Emitter{
		Tracer: sqltrace.Tracer(s.Log, backend),
		Slow:   time.Duration(slowMs) * time.Millisecond,
	}
}

// openPG opens the pool and publishes the adapter only once a ping succeeds
func openPG(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	pool, err := pg.Open(ctx, pg.Config{
		URL:      cfg.PG.URL,
		MaxConns: cfg.PG.MaxConns,
		AppName:  cfg.AppName,
	}, nil)
	if err != nil {
		return nil, err
	}

	attempts := cfg.PG.ConnectRetries
	if attempts <= 0 {
		attempts = 20
	}
	pingTimeout := cfg.PG.PingTimeout
	if pingTimeout <= 0 {
		pingTimeout = 3 * time.Second
	}
	const (
		backoffStart   = 150 * time.Millisecond
		backoffCeiling = 2 * time.Second
	)

	var lastErr error
	backoff := backoffStart
	for i := 0; i < attempts; i++ {
		toCtx, cancel := context.WithTimeout(ctx, pingTimeout)
		lastErr = pool.Ping(toCtx)
		cancel()
		if lastErr == nil {
			return newPGAdapter(pool, emitter(s, cfg.PG.LogSQL, "pg", cfg.PG.SlowQueryMs)), nil
		}
		s.Log.Debug().Err(lastErr).Int("attempt", i+1).Msg("postgres not ready")

		select {
		case <-ctx.Done():
			pool.Close()
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, backoffCeiling)
	}

	pool.Close()
	return nil, fmt.Errorf("postgres ping failed after %d attempts: %w", attempts, lastErr)
}

func openSQLite(ctx context.Context, cfg Config, s *Store) (TxRunner, error) {
	db, err := sqlite.Open(ctx, sqlite.Config{Path: cfg.SQLite.Path})
	if err != nil {
		return nil, err
	}
	return NewSQLAdapter(db, emitter(s, cfg.SQLite.LogSQL, "sqlite", cfg.SQLite.SlowQueryMs)), nil
}

func openCH(ctx context.Context, cfg Config, s *Store) (Clickhouse, error) {
	c, err := chx.Open(ctx, chx.Config{URL: cfg.CH.URL, Role: cfg.CH.Role, Tag: cfg.AppName})
	if err != nil {
		return nil, err
	}
	return newCHAdapter(c, emitter(s, cfg.CH.LogSQL, "clickhouse", 0)), nil
}
