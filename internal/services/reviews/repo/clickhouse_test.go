package repo

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"playreviews/internal/core/review"
	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/store"
)

type fakeCH struct {
	execs   []string
	inserts map[string][][]any
	failOn  string
}

func (f *fakeCH) Exec(_ context.Context, sql string, _ ...any) error {
	f.execs = append(f.execs, sql)
	return nil
}

func (f *fakeCH) Insert(_ context.Context, table string, rows [][]any) error {
	if table == f.failOn {
		return errors.New("boom")
	}
	if f.inserts == nil {
		f.inserts = map[string][][]any{}
	}
	f.inserts[table] = append(f.inserts[table], rows...)
	return nil
}

func (f *fakeCH) Query(context.Context, string, ...any) (store.Rows, error) { return nil, nil }
func (f *fakeCH) Close() error                                               { return nil }

func TestEnsureClickhouse(t *testing.T) {
	ch := &fakeCH{}
	if err := EnsureClickhouse(context.Background(), ch); err != nil {
		t.Fatal(err)
	}
	if len(ch.execs) != 2 || !strings.Contains(ch.execs[1], "ReplacingMergeTree") {
		t.Fatalf("ddl = %v", ch.execs)
	}
}

func TestClickhouseSaveUnit(t *testing.T) {
	ch := &fakeCH{}
	r := NewClickhouse(ch, time.UTC)
	u := unit(t, "run", review.Record{ReviewID: "a", Rating: 5}, review.Record{ReviewID: "b"})

	n, err := r.SaveUnit(context.Background(), u)
	if err != nil || n != 2 {
		t.Fatalf("save = %d, %v", n, err)
	}
	if len(ch.inserts["output_units"]) != 1 || len(ch.inserts["reviews"]) != 2 {
		t.Fatalf("inserts = %v", ch.inserts)
	}
	row := ch.inserts["reviews"][0]
	if len(row) != 15 {
		t.Fatalf("columns = %d", len(row))
	}
	if v, ok := row[4].(*uint8); !ok || v == nil || *v != 5 {
		t.Fatalf("rating column = %#v", row[4])
	}
}

func TestClickhouseSaveUnitError(t *testing.T) {
	ch := &fakeCH{failOn: "reviews"}
	err := NewRepoSink("clickhouse", NewClickhouse(ch, nil)).Write(context.Background(),
		unit(t, "run", review.Record{ReviewID: "a"}))
	if !perr.IsCode(err, perr.ErrorCodeDB) {
		t.Fatalf("want db error, got %v", err)
	}
}

func TestRepoSinkEmptyUnit(t *testing.T) {
	ch := &fakeCH{}
	s := NewRepoSink("clickhouse", NewClickhouse(ch, nil))
	if s.Name() != "clickhouse" {
		t.Fatalf("name = %q", s.Name())
	}
	if err := s.Write(context.Background(), unit(t, "run")); err != nil {
		t.Fatal(err)
	}
	if _, ok := ch.inserts["reviews"]; ok {
		t.Fatalf("empty unit should not insert reviews")
	}
}
