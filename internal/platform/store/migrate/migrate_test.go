package migrate

import (
	"context"
	"path/filepath"
	"testing"
	"testing/fstest"

	"playreviews/internal/platform/store"
	"playreviews/internal/platform/store/sqlite"
	"playreviews/internal/platform/store/sqltrace"
)

func openDB(t *testing.T) store.TxRunner {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.Config{Path: filepath.Join(t.TempDir(), "m.db")})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return store.NewSQLAdapter(db, sqltrace.Emitter{})
}

func TestApply_RunsOncePerFile(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	fsys := fstest.MapFS{
		"m/002_index.sql": {Data: []byte("CREATE INDEX ix_a_v ON a(v);")},
		"m/001_init.sql":  {Data: []byte("-- +migrate Up\nCREATE TABLE a (v TEXT);\n-- +migrate Down\nDROP TABLE a;\n")},
		"m/README.md":     {Data: []byte("ignored")},
	}

	got, err := Apply(ctx, db, fsys, "m", SQLite)
	if err != nil {
		t.Fatalf("Apply: %v", err)
	}
	if len(got) != 2 || got[0] != "001_init.sql" || got[1] != "002_index.sql" {
		t.Fatalf("applied = %v", got)
	}

	again, err := Apply(ctx, db, fsys, "m", SQLite)
	if err != nil || len(again) != 0 {
		t.Fatalf("second Apply = %v, %v", again, err)
	}

	n, err := store.Scalar[int64](ctx, db, "SELECT COUNT(*) FROM schema_migrations")
	if err != nil || n != 2 {
		t.Fatalf("recorded = %d, %v", n, err)
	}
	if _, err := db.Exec(ctx, "INSERT INTO a (v) VALUES (?)", "x"); err != nil {
		t.Fatalf("table a missing: %v", err)
	}
}

func TestApply_FailureRollsBack(t *testing.T) {
	ctx := context.Background()
	db := openDB(t)
	fsys := fstest.MapFS{"bad.sql": {Data: []byte("CREATE TABLE ok (v TEXT); NOT SQL AT ALL;")}}
	if _, err := Apply(ctx, db, fsys, ".", SQLite); err == nil {
		t.Fatalf("expected failure")
	}
	n, _ := store.Scalar[int64](ctx, db, "SELECT COUNT(*) FROM schema_migrations")
	if n != 0 {
		t.Fatalf("failed migration recorded")
	}
}

func TestUp(t *testing.T) {
	cases := map[string]string{
		"SELECT 1;":                               "SELECT 1;",
		"-- +migrate Up\nA;\n-- +migrate Down\nB;": "\nA;\n",
		"A;\n-- +migrate Down\nB;":                 "A;\n",
	}
	for in, want := range cases {
		if got := Up(in); got != want {
			t.Fatalf("Up(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestBind(t *testing.T) {
	if SQLite.bind(2) != "?" || Postgres.bind(2) != "$2" {
		t.Fatalf("bind mismatch")
	}
}
