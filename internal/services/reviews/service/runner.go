package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"playreviews/internal/core/period"
	"playreviews/internal/core/window"
	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/logger"
	"playreviews/internal/services/reviews/domain"
	"playreviews/internal/services/reviews/guardrails"
	"playreviews/internal/services/reviews/rundoc"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Page size and budget used when an app leaves them unset
const (
	singleCount      = 1000
	singlePages      = 1
	scheduleCount    = 1000
	periodicCount    = 100
	periodicMaxPages = 10
)

// Config holds runner options
type Config struct {
	// Workers is the number of apps processed at once; <=0 -> 1
	Workers int

	// AppTimeout bounds one app end to end; 0 = none
	AppTimeout time.Duration

	// DefaultSinks are used when the run document names none
	DefaultSinks []string
}

// Runner drives a run document through fetch, windowing and the sinks
type Runner struct {
	Log      logger.Logger
	Src      domain.Source
	Openers  map[string]domain.SinkOpener
	Notifier domain.Notifier // optional
	Cfg      Config

	now   func() time.Time
	newID func() string
}

// New constructs a Runner
func New(log logger.Logger, src domain.Source, openers map[string]domain.SinkOpener, n domain.Notifier, cfg Config) *Runner {
	if src == nil {
		panic("reviews.Runner requires a non nil Source")
	}
	if len(cfg.DefaultSinks) == 0 {
		cfg.DefaultSinks = []string{"csv"}
	}
	return &Runner{
		Log:      logger.Named(log, "reviews"),
		Src:      src,
		Openers:  openers,
		Notifier: n,
		Cfg:      cfg,
		now:      time.Now,
		newID:    uuid.NewString,
	}
}

// openedSink pairs a sink with the name it was requested by
type openedSink struct {
	name string
	sink domain.Sink
}

// Run implements domain.RunnerPort. Apps run independently: a failing app
// is logged and its error joined into the result while the others continue.
// ref is the reference instant for periodic apps
func (r *Runner) Run(ctx context.Context, doc domain.Document, ref time.Time) error {
	loc, err := doc.Location()
	if err != nil {
		return perr.Wrapf(err, perr.ErrorCodeValidation, "timezone %q", doc.Timezone)
	}
	sinks, err := r.openSinks(ctx, doc)
	if err != nil {
		return err
	}

	runID := r.newID()
	log := r.Log.With().Str("run_id", runID).Logger()
	log.Info().Int("apps", len(doc.Apps)).Str("timezone", loc.String()).Time("ref", ref).Msg("reviews: run started")

	errs := make([]error, len(doc.Apps))
	var g errgroup.Group
	g.SetLimit(max(r.Cfg.Workers, 1))
	for i, app := range doc.Apps {
		g.Go(func() error {
			if err := r.runApp(ctx, runID, doc, app, loc, ref, sinks); err != nil {
				log.Error().Err(err).Str("app", app.Package).Str("code", perr.CodeOf(err).String()).
					Msg("reviews: app failed")
				errs[i] = err
			}
			return nil
		})
	}
	_ = g.Wait()

	joined := errors.Join(errs...)
	failed := 0
	for _, e := range errs {
		if e != nil {
			failed++
		}
	}
	log.Info().Int("apps", len(doc.Apps)).Int("failed", failed).Msg("reviews: run finished")
	return joined
}

func (r *Runner) openSinks(ctx context.Context, doc domain.Document) ([]openedSink, error) {
	names := doc.Sinks
	if len(names) == 0 {
		names = r.Cfg.DefaultSinks
	}
	out := make([]openedSink, 0, len(names))
	seen := map[string]bool{}
	for _, name := range names {
		if seen[name] {
			continue
		}
		seen[name] = true
		open, ok := r.Openers[name]
		if !ok {
			return nil, perr.Newf(perr.ErrorCodeInvalidArgument, "sink %q is not configured", name)
		}
		s, err := open(ctx, doc)
		if err != nil {
			return nil, perr.Wrapf(err, perr.CodeOf(err), "open sink %s", name)
		}
		out = append(out, openedSink{name: name, sink: s})
	}
	return out, nil
}

// runApp processes one app; unknown modes are skipped without error
func (r *Runner) runApp(ctx context.Context, runID string, doc domain.Document, app domain.App, loc *time.Location, ref time.Time, sinks []openedSink) error {
	raw := doc.ModeFor(app)
	mode, ok := domain.ParseMode(raw)
	log := logger.ForApp(r.Log, runID, app.Package, string(mode))
	if !ok {
		log.Warn().Msgf("unknown mode %s; skipping %s", raw, app.Package)
		return nil
	}

	if err := rundoc.ValidateApp(app); err != nil {
		return perr.Wrapf(err, perr.CodeOf(err), "%s (%s)", app.Package, mode)
	}

	ctx, cancel := guardrails.WithApp(ctx, guardrails.Timeouts{App: r.Cfg.AppTimeout})
	defer cancel()
	ctx = logger.WithContext(ctx, log)

	var (
		units []domain.OutputUnit
		err   error
	)
	switch mode {
	case domain.ModeSingle:
		units, err = r.single(ctx, doc, app, loc)
	case domain.ModeSchedule:
		units, err = r.schedule(ctx, doc, app, loc)
	case domain.ModePeriodic:
		units, err = r.periodic(ctx, doc, app, loc, ref)
	}
	if err != nil {
		return perr.Wrapf(err, perr.CodeOf(err), "%s (%s)", app.Package, mode)
	}

	for i := range units {
		units[i].RunID = runID
		units[i].App = app.Package
		units[i].Kind = mode
		if err := r.emit(ctx, sinks, units[i]); err != nil {
			return perr.Wrapf(err, perr.CodeOf(err), "%s (%s)", app.Package, mode)
		}
	}
	log.Info().Int("units", len(units)).Msg("reviews: app done")
	return nil
}

func (r *Runner) single(ctx context.Context, doc domain.Document, app domain.App, loc *time.Location) ([]domain.OutputUnit, error) {
	recs, err := Fetch(ctx, r.Src, FetchRequest{
		AppID:         app.Package,
		Lang:          doc.LangFor(app),
		Country:       doc.CountryFor(app),
		PageSize:      domain.IntOr(app.Count, singleCountFor(doc)),
		PageBudget:    domain.IntOr(app.MaxPages, singlePages),
		Loc:           loc,
		ProgressEvery: app.ProgressInterval,
		ProgressLabel: app.Package + "-single",
	})
	if err != nil {
		return nil, err
	}
	return []domain.OutputUnit{{Records: recs}}, nil
}

// singleCountFor is the single mode page size when an app sets none. A
// document run as periodic by default keeps periodic's smaller pages
func singleCountFor(doc domain.Document) int {
	if doc.DefaultMode == domain.ModePeriodic {
		return periodicCount
	}
	return singleCount
}

func (r *Runner) schedule(ctx context.Context, doc domain.Document, app domain.App, loc *time.Location) ([]domain.OutputUnit, error) {
	if app.StartDate == "" || app.EndDate == "" {
		return nil, perr.WithField(perr.New(perr.ErrorCodeInvalidArgument, "schedule mode needs start_date and end_date"), "start_date")
	}
	freq, err := period.ParseFrequency(string(app.FrequencyFor()))
	if err != nil {
		return nil, err
	}
	start, err := period.ParseDate(app.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := period.ParseDate(app.EndDate)
	if err != nil {
		return nil, err
	}

	var periods []period.Period
	if app.WeeksAligned() {
		periods, err = period.Collect(freq, start, end, int(app.WeekStartsOn))
	} else {
		periods, err = period.CollectStepped(freq, start, end)
	}
	if err != nil {
		return nil, err
	}
	if len(periods) == 0 {
		logger.C(ctx).Warn().Msgf("no time window found; skipping %s", app.Package)
		return nil, nil
	}

	base := domain.IntOr(app.Count, scheduleCount)
	first, last := periods[0], periods[len(periods)-1]
	res, err := FetchUntil(ctx, r.Src, EscalateRequest{
		AppID:         app.Package,
		Lang:          doc.LangFor(app),
		Country:       doc.CountryFor(app),
		Target:        first.Start,
		BasePageSize:  base,
		PageBudget:    app.MaxPages,
		Escalation:    escalationFor(app, base),
		Loc:           loc,
		ProgressEvery: app.ProgressInterval,
		Label:         fmt.Sprintf("%s-%s-%s", app.Package, first.Start.Format("20060102"), last.End.Format("20060102")),
	})
	if err != nil {
		return nil, err
	}

	parts := window.Partition(res.Records, periods, loc)
	units := make([]domain.OutputUnit, 0, len(periods))
	for _, p := range periods {
		units = append(units, domain.OutputUnit{Frequency: freq, Period: &p, Records: parts[p]})
	}
	return units, nil
}

func (r *Runner) periodic(ctx context.Context, doc domain.Document, app domain.App, loc *time.Location, ref time.Time) ([]domain.OutputUnit, error) {
	freq, err := period.ParseFrequency(string(app.FrequencyFor()))
	if err != nil {
		return nil, err
	}
	day := period.Date(ref, loc).AddDate(0, 0, app.RefOffsetDays)
	p, err := period.Current(freq, day, int(app.WeekStartsOn))
	if err != nil {
		return nil, err
	}

	stopAt := p.Start
	recs, err := Fetch(ctx, r.Src, FetchRequest{
		AppID:         app.Package,
		Lang:          doc.LangFor(app),
		Country:       doc.CountryFor(app),
		PageSize:      domain.IntOr(app.Count, periodicCount),
		PageBudget:    domain.IntOr(app.MaxPages, periodicMaxPages),
		StopAt:        &stopAt,
		Loc:           loc,
		ProgressEvery: app.ProgressInterval,
		ProgressLabel: fmt.Sprintf("%s-%s", app.Package, freq),
	})
	if err != nil {
		return nil, err
	}
	logger.C(ctx).Info().Str("period", p.String()).Msgf("collecting %s reviews for %s", freq, p)
	return []domain.OutputUnit{{Frequency: freq, Period: &p, Records: window.Filter(recs, p, loc)}}, nil
}

// emit writes u to every sink in order, then notifies. Notification
// failures are logged and do not fail the app
func (r *Runner) emit(ctx context.Context, sinks []openedSink, u domain.OutputUnit) error {
	names := make([]string, 0, len(sinks))
	for _, s := range sinks {
		if err := s.sink.Write(ctx, u); err != nil {
			return perr.Wrapf(err, perr.CodeOf(err), "sink %s", s.name)
		}
		names = append(names, s.name)
	}
	if r.Notifier == nil {
		return nil
	}
	if err := r.Notifier.Notify(ctx, domain.EventFor(u, names, r.now())); err != nil {
		logger.C(ctx).Warn().Err(err).Msg("reviews: notify failed")
	}
	return nil
}

func escalationFor(app domain.App, base int) EscalationConfig {
	def := DefaultEscalation(base)
	return EscalationConfig{
		PagesStart:      domain.IntOr(app.AutoPagesStart, def.PagesStart),
		PagesMultiplier: domain.FloatOr(app.AutoPagesMultiplier, def.PagesMultiplier),
		PagesCap:        domain.IntOr(app.AutoPagesCap, def.PagesCap),
		CountStart:      domain.IntOr(app.AutoCountStart, def.CountStart),
		CountMultiplier: domain.FloatOr(app.AutoCountMultiplier, def.CountMultiplier),
		CountCap:        domain.IntOr(app.AutoCountCap, def.CountCap),
	}
}

var _ domain.RunnerPort = (*Runner)(nil)
