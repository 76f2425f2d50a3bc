//go:build integration_pg
// +build integration_pg

package repo

import (
	"context"
	"fmt"
	"testing"
	"time"

	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"playreviews/internal/core/review"
	"playreviews/internal/platform/logger"
	"playreviews/internal/platform/store"
	"playreviews/internal/platform/store/migrate"
	"playreviews/internal/platform/testkit"
)

func startPostgres(t *testing.T) string {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Minute)
	t.Cleanup(cancel)

	c, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: tc.ContainerRequest{
			Image:        "postgres:16-alpine",
			ExposedPorts: []string{"5432/tcp"},
			Env: map[string]string{
				"POSTGRES_USER":     "postgres",
				"POSTGRES_PASSWORD": "postgres",
				"POSTGRES_DB":       "postgres",
			},
			WaitingFor: wait.ForAll(
				wait.ForListeningPort("5432/tcp"),
				wait.ForLog("database system is ready to accept connections"),
			).WithDeadline(2 * time.Minute),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start postgres: %v", err)
	}
	t.Cleanup(func() { _ = c.Terminate(context.Background()) })

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	mp, err := c.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	return fmt.Sprintf("postgres://postgres:postgres@%s:%s/postgres?sslmode=disable", host, mp.Port())
}

func TestPostgresSink_Integration(t *testing.T) {
	dsn := startPostgres(t)
	ctx, cancel := context.WithTimeout(context.Background(), 90*time.Second)
	defer cancel()

	s, err := store.Open(ctx, store.Config{PG: store.PGConfig{Enabled: true, URL: dsn, MaxConns: 2}}, store.WithLogger(logger.Nop()))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = s.Close(context.Background()) })

	if _, err := Migrate(ctx, s.PG, migrate.Postgres); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	sink := NewSQLSink("postgres", s.PG, NewPG(time.UTC))
	u := unit(t, "run-1",
		review.Record{ReviewID: "a", Rating: 3, At: testkit.At(t, "2024-01-03T00:00:00Z")},
		review.Record{ReviewID: "b"},
	)
	if err := sink.Write(ctx, u); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := sink.Write(ctx, u); err != nil {
		t.Fatalf("replay: %v", err)
	}

	n, err := store.Scalar[int64](ctx, s.PG, "SELECT COUNT(*) FROM reviews WHERE app_id = $1", "com.example")
	if err != nil || n != 2 {
		t.Fatalf("reviews = %d, %v", n, err)
	}
}
