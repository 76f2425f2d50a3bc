package sqlite

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
)

func TestDSN(t *testing.T) {
	dsn := DSN(Config{Path: "data/reviews.db"})
	if !strings.HasPrefix(dsn, "file:data/reviews.db?") {
		t.Fatalf("dsn prefix: %s", dsn)
	}
	for _, want := range []string{"busy_timeout%285000%29", "journal_mode%28WAL%29", "foreign_keys%281%29"} {
		if !strings.Contains(dsn, want) {
			t.Fatalf("dsn %s missing %s", dsn, want)
		}
	}
}

func TestOpen_CreatesDirAndPings(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "reviews.db")
	db, err := Open(context.Background(), Config{Path: path})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer db.Close()

	var mode string
	if err := db.QueryRow("PRAGMA journal_mode").Scan(&mode); err != nil {
		t.Fatalf("pragma: %v", err)
	}
	if strings.ToLower(mode) != "wal" {
		t.Fatalf("journal_mode = %q", mode)
	}
}

func TestOpen_RequiresPath(t *testing.T) {
	if _, err := Open(context.Background(), Config{Path: "  "}); err == nil {
		t.Fatalf("expected error for empty path")
	}
}
