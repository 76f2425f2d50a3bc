package window

import (
	"testing"
	"time"

	"playreviews/internal/core/period"
	"playreviews/internal/core/review"
	kit "playreviews/internal/platform/testkit"
)

func rec(t *testing.T, id, at string) review.Record {
	r := review.Record{ReviewID: id}
	if at != "" {
		r.At = kit.At(t, at)
	}
	return r
}

func ids(rs []review.Record) string {
	s := ""
	for _, r := range rs {
		s += r.ReviewID
	}
	return s
}

func TestPartition(t *testing.T) {
	recs := []review.Record{
		rec(t, "a", "2024-01-20T10:00:00Z"),
		rec(t, "b", "2024-01-07T23:59:59Z"),
		rec(t, "x", ""),
		rec(t, "c", "2024-01-08T00:00:00Z"),
		rec(t, "d", "2024-01-01T00:00:00Z"),
		rec(t, "e", "2023-12-31T23:59:59Z"),
		rec(t, "f", "2024-01-14T12:00:00Z"),
	}
	ps, err := period.Collect(period.Weekly, kit.Day(t, "2024-01-01"), kit.Day(t, "2024-01-20"), 0)
	if err != nil {
		t.Fatal(err)
	}

	got := Partition(recs, ps, nil)
	if len(got) != 3 {
		t.Fatalf("expected 3 keys, got %d", len(got))
	}
	want := []string{"bd", "cf", "a"}
	for i, p := range ps {
		if ids(got[p]) != want[i] {
			t.Fatalf("period %s = %q, want %q", p, ids(got[p]), want[i])
		}
		if ids(Filter(recs, p, nil)) != want[i] {
			t.Fatalf("Filter disagrees with Partition for %s", p)
		}
	}

	again := Partition(recs, ps, nil)
	for _, p := range ps {
		if ids(again[p]) != ids(got[p]) {
			t.Fatalf("partition not idempotent for %s", p)
		}
	}
}

func TestPartition_EmptyPeriodsStillPresent(t *testing.T) {
	ps, _ := period.Collect(period.Daily, kit.Day(t, "2024-02-01"), kit.Day(t, "2024-02-03"), 0)
	got := Partition([]review.Record{rec(t, "a", "2024-02-02T05:00:00Z")}, ps, nil)
	for _, p := range ps {
		if _, ok := got[p]; !ok {
			t.Fatalf("period %s missing from result", p)
		}
	}
	if len(got[ps[0]]) != 0 || len(got[ps[2]]) != 0 || ids(got[ps[1]]) != "a" {
		t.Fatalf("unexpected partition %v", got)
	}
}

func TestFilter_UsesLocation(t *testing.T) {
	p := period.Period{Start: kit.Day(t, "2024-03-11"), End: kit.Day(t, "2024-03-11")}
	recs := []review.Record{rec(t, "late", "2024-03-10T20:00:00Z")}
	if len(Filter(recs, p, nil)) != 0 {
		t.Fatalf("UTC date should be 03-10")
	}
	if len(Filter(recs, p, time.FixedZone("JST", 9*3600))) != 1 {
		t.Fatalf("JST date should be 03-11")
	}
}
