package service

import (
	"context"
	"strconv"
	"sync"
	"time"

	"playreviews/internal/core/review"
	perr "playreviews/internal/platform/errors"
	"playreviews/internal/services/reviews/domain"

	"golang.org/x/time/rate"
)

// listSource serves a fixed newest-first listing, PageSize items at a time,
// with the offset as cursor
type listSource struct {
	mu    sync.Mutex
	items []review.Raw
	calls []domain.PageRequest
	errAt map[int]error // call index -> error
}

func (s *listSource) FetchPage(_ context.Context, req domain.PageRequest) (domain.Page, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.calls)
	s.calls = append(s.calls, req)
	if err := s.errAt[n]; err != nil {
		return domain.Page{}, err
	}
	off := 0
	if req.Cursor != "" {
		off, _ = strconv.Atoi(req.Cursor)
	}
	end := min(off+max(req.PageSize, 1), len(s.items))
	page := domain.Page{Items: append([]review.Raw(nil), s.items[off:end]...)}
	if end < len(s.items) {
		page.Next = strconv.Itoa(end)
	}
	return page, nil
}

// pagesSource returns scripted pages in order, then an exhausted page
type pagesSource struct {
	pages [][]review.Raw
	calls []domain.PageRequest
}

func (s *pagesSource) FetchPage(_ context.Context, req domain.PageRequest) (domain.Page, error) {
	n := len(s.calls)
	s.calls = append(s.calls, req)
	if n >= len(s.pages) {
		return domain.Page{}, nil
	}
	p := domain.Page{Items: s.pages[n]}
	if n < len(s.pages)-1 {
		p.Next = "c" + strconv.Itoa(n+1)
	}
	return p, nil
}

// endlessSource never runs out and never reaches back past its one date
type endlessSource struct {
	at    time.Time
	calls int
}

func (s *endlessSource) FetchPage(_ context.Context, req domain.PageRequest) (domain.Page, error) {
	s.calls++
	at := s.at
	return domain.Page{Items: []review.Raw{{ReviewID: "x", Score: 5, At: &at}}, Next: "more"}, nil
}

// chainedSource serves a page the way the store client does: one paced call
// per perCall reviews. Reviews are a minute apart going back from newest and
// every page is the whole listing
type chainedSource struct {
	newest  time.Time
	perCall int
	lim     *rate.Limiter
	calls   int
}

func (s *chainedSource) FetchPage(ctx context.Context, req domain.PageRequest) (domain.Page, error) {
	out := make([]review.Raw, 0, req.PageSize)
	for len(out) < req.PageSize {
		if err := s.lim.Wait(ctx); err != nil {
			return domain.Page{}, perr.Wrap(err, perr.ErrorCodeUnavailable, "pacing")
		}
		s.calls++
		for range min(s.perCall, req.PageSize-len(out)) {
			out = append(out, rawAt("r"+strconv.Itoa(len(out)), s.newest.Add(-time.Duration(len(out))*time.Minute)))
		}
	}
	return domain.Page{Items: out}, nil
}

// daily builds one review per day at noon UTC, newest first, from newest back n days
func daily(newest time.Time, n int) []review.Raw {
	out := make([]review.Raw, n)
	for i := range n {
		at := newest.AddDate(0, 0, -i).Add(12 * time.Hour)
		name := "user" + strconv.Itoa(i)
		text := "review " + strconv.Itoa(i)
		out[i] = review.Raw{ReviewID: "r" + strconv.Itoa(i), UserName: &name, Content: &text, Score: 1 + i%5, At: &at}
	}
	return out
}

func rawAt(id string, at time.Time) review.Raw {
	return review.Raw{ReviewID: id, Score: 3, At: &at}
}

func undated(id string) review.Raw { return review.Raw{ReviewID: id, Score: 3} }

// memSink keeps every unit written to it
type memSink struct {
	mu    sync.Mutex
	name  string
	units []domain.OutputUnit
	err   error
}

func (m *memSink) Name() string { return m.name }

func (m *memSink) Write(_ context.Context, u domain.OutputUnit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.units = append(m.units, u)
	return nil
}

func (m *memSink) byApp(app string) []domain.OutputUnit {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.OutputUnit
	for _, u := range m.units {
		if u.App == app {
			out = append(out, u)
		}
	}
	return out
}

func (m *memSink) opener() domain.SinkOpener {
	return func(context.Context, domain.Document) (domain.Sink, error) { return m, nil }
}

type memNotifier struct {
	mu     sync.Mutex
	events []domain.UnitEvent
	err    error
}

func (n *memNotifier) Notify(_ context.Context, ev domain.UnitEvent) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *memNotifier) Close() error { return nil }
