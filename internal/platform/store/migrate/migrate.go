// Package migrate applies embedded .sql migrations at most once per file
package migrate

import (
	"context"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"playreviews/internal/platform/store"
)

const table = "schema_migrations"

// Dialect renders positional placeholders for the target database
type Dialect int

const (
	// SQLite uses ? placeholders
	SQLite Dialect = iota
	// Postgres uses $n placeholders
	Postgres
)

func (d Dialect) bind(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// Apply runs every *.sql file under dir in lexical order, recording each in
// schema_migrations. Only the "-- +migrate Up" section of a file is executed
// when one is present. It returns the names applied by this call
func Apply(ctx context.Context, db store.TxRunner, fsys fs.FS, dir string, d Dialect) ([]string, error) {
	if db == nil {
		return nil, fmt.Errorf("migrate: nil db")
	}
	if dir == "" {
		dir = "."
	}
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}
	var files []string
	for _, e := range entries {
		if !e.IsDir() && strings.HasSuffix(e.Name(), ".sql") {
			files = append(files, e.Name())
		}
	}
	sort.Strings(files)

	create := "CREATE TABLE IF NOT EXISTS " + table + " (name TEXT PRIMARY KEY, applied_at BIGINT NOT NULL)"
	if _, err := db.Exec(ctx, create); err != nil {
		return nil, fmt.Errorf("ensure migration table: %w", err)
	}

	var applied []string
	for _, name := range files {
		n, err := store.Scalar[int64](ctx, db, "SELECT COUNT(*) FROM "+table+" WHERE name = "+d.bind(1), name)
		if err != nil {
			return applied, fmt.Errorf("check migration %s: %w", name, err)
		}
		if n > 0 {
			continue
		}
		body, err := fs.ReadFile(fsys, path.Join(dir, name))
		if err != nil {
			return applied, fmt.Errorf("read migration %s: %w", name, err)
		}
		up := strings.TrimSpace(Up(string(body)))

		err = db.Tx(ctx, func(q store.RowQuerier) error {
			if up != "" {
				if _, err := q.Exec(ctx, up); err != nil {
					return err
				}
			}
			_, err := q.Exec(ctx,
				"INSERT INTO "+table+" (name, applied_at) VALUES ("+d.bind(1)+", "+d.bind(2)+")",
				name, time.Now().UTC().UnixMilli())
			return err
		})
		if err != nil {
			return applied, fmt.Errorf("apply migration %s: %w", name, err)
		}
		applied = append(applied, name)
	}
	return applied, nil
}

// Up returns the SQL in the "-- +migrate Up" section, or all of content
func Up(content string) string {
	const upTag, downTag = "-- +migrate Up", "-- +migrate Down"
	i := strings.Index(content, upTag)
	if i == -1 {
		if j := strings.Index(content, downTag); j != -1 {
			return content[:j]
		}
		return content
	}
	rest := content[i+len(upTag):]
	if j := strings.Index(rest, downTag); j != -1 {
		return rest[:j]
	}
	return rest
}
