package ingest

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"playreviews/internal/adapters/ingest/playstore"
	"playreviews/internal/modkit"
	"playreviews/internal/platform/config"
	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/logger"
	"playreviews/internal/services/reviews/domain"
)

type fakeClient struct {
	got playstore.Query
	out playstore.Batch
	err error
}

func (f *fakeClient) Reviews(_ context.Context, q playstore.Query) (playstore.Batch, error) {
	f.got = q
	return f.out, f.err
}

func TestFetchPage_MapsRequestAndReviews(t *testing.T) {
	at := time.Unix(1710000000, 0).UTC()
	name, text, ver := "Kim", "good", "1.0"
	fc := &fakeClient{out: playstore.Batch{
		Reviews: []playstore.Review{{ID: "gp:1", UserName: &name, Content: &text, Score: 4, At: &at, ThumbsUp: 2, AppVersion: &ver}},
		Token:   "tok2",
	}}
	src := FromClient(fc)

	page, err := src.FetchPage(context.Background(), domain.PageRequest{
		AppID: "com.a", Lang: "en", Country: "us", Sort: domain.SortNewest, PageSize: 150, Cursor: "tok1",
	})
	if err != nil {
		t.Fatal(err)
	}
	if fc.got.AppID != "com.a" || fc.got.Count != 150 || fc.got.Token != "tok1" || fc.got.Sort != playstore.SortNewest {
		t.Fatalf("query = %+v", fc.got)
	}
	if page.Next != "tok2" || len(page.Items) != 1 {
		t.Fatalf("page = %+v", page)
	}
	r := page.Items[0]
	if r.ReviewID != "gp:1" || *r.UserName != "Kim" || r.Score != 4 || !r.At.Equal(at) || r.ThumbsUp != 2 {
		t.Fatalf("raw = %+v", r)
	}
}

func TestFetchPage_PassesErrors(t *testing.T) {
	boom := errors.New("boom")
	src := FromClient(&fakeClient{err: boom})
	if _, err := src.FetchPage(context.Background(), domain.PageRequest{AppID: "a"}); !errors.Is(err, boom) {
		t.Fatalf("err = %v", err)
	}
}

func TestNewSource_ReadsConfig(t *testing.T) {
	t.Setenv("CORE_REVIEWS_RPS", "0")
	t.Setenv("CORE_REVIEWS_BASE_URL", "http://127.0.0.1:1")
	src := NewSource(modkit.Deps{Log: logger.Nop(), Cfg: config.New()})
	if src == nil {
		t.Fatalf("nil source")
	}
}

func TestNewSource_OneHTTPAttemptByDefault(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		hits.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(srv.Close)
	t.Setenv("CORE_REVIEWS_RPS", "0")
	t.Setenv("CORE_REVIEWS_BASE_URL", srv.URL)

	src := NewSource(modkit.Deps{Log: logger.Nop(), Cfg: config.New()})
	_, err := src.FetchPage(context.Background(), domain.PageRequest{AppID: "com.a", PageSize: 10})
	if !perr.IsCode(err, perr.ErrorCodeUnavailable) {
		t.Fatalf("err = %v", err)
	}
	if n := hits.Load(); n != 1 {
		t.Fatalf("hits = %d, want 1: the retry source is the only retry layer", n)
	}
}
