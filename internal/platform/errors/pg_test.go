package errors

import (
	"context"
	stderrs "errors"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func pg(code string) *pgconn.PgError { return &pgconn.PgError{Code: code} }

func TestDBErrorCodeMappings(t *testing.T) {
	cases := []struct {
		code string
		want ErrorCode
	}{
		{"23505", ErrorCodeDuplicateKey},
		{"23502", ErrorCodeValidation},
		{"23514", ErrorCodeValidation},
		{"22001", ErrorCodeInvalidArgument},
		{"22P02", ErrorCodeInvalidArgument},
		{"40001", ErrorCodeDB},
		{"25006", ErrorCodeUnavailable},
		{"57P03", ErrorCodeUnavailable},
		{"XXXXX", ErrorCodeDB},
	}
	for _, c := range cases {
		got, ok := DBErrorCode(pg(c.code))
		if !ok {
			t.Fatalf("expected ok for PgError code %s", c.code)
		}
		if got != c.want {
			t.Fatalf("DBErrorCode(%s) = %v, want %v", c.code, got, c.want)
		}
	}
	if _, ok := DBErrorCode(stderrs.New("nope")); ok {
		t.Fatalf("DBErrorCode should return ok=false for non-pg error")
	}
}

func TestFromPostgres(t *testing.T) {
	if FromPostgres(nil, "x") != nil {
		t.Fatalf("nil in, nil out")
	}
	err := FromPostgres(pg("23505"), "insert review")
	if !IsCode(err, ErrorCodeDuplicateKey) || !IsDuplicateKey(err) {
		t.Fatalf("duplicate key not classified: %v", err)
	}
	if !IsCode(FromPostgres(stderrs.New("eof"), "x"), ErrorCodeDB) {
		t.Fatalf("foreign error should map to DB")
	}
}

func TestIsRetryable(t *testing.T) {
	if !IsRetryable(Wrap(pg("40P01"), ErrorCodeDB, "tx")) {
		t.Fatalf("deadlock should be retryable")
	}
	if IsRetryable(pg("23505")) {
		t.Fatalf("unique violation is not retryable")
	}
	if !IsRetryable(stderrs.New("database is locked (5) (SQLITE_BUSY)")) {
		t.Fatalf("sqlite busy should be retryable")
	}
	if IsRetryable(context.DeadlineExceeded) {
		t.Fatalf("deadline should not be retried at the db layer")
	}
}
