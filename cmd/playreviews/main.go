// Command playreviews fetches app store reviews for every app in a run
// document and writes them per period to the configured sinks
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"playreviews/internal/core/period"
	"playreviews/internal/core/version"
	"playreviews/internal/modkit"
	"playreviews/internal/platform/config"
	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/logger"
	"playreviews/internal/platform/store"
	"playreviews/internal/services/reviews/domain"
	reviewsmod "playreviews/internal/services/reviews/module"
	"playreviews/internal/services/reviews/notify"
	"playreviews/internal/services/reviews/rundoc"
)

const defaultConfig = "configs/default.json"

// Exit codes
const (
	exitOK      = 0
	exitFailed  = 1
	exitBadArgs = 2
)

type flags struct {
	version     bool
	config      string
	date        string
	defaultMode string
}

func parseFlags(args []string, stderr io.Writer) (flags, error) {
	var f flags
	fs := flag.NewFlagSet("playreviews", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.BoolVar(&f.version, "version", false, "print the build version and exit")
	fs.StringVar(&f.config, "config", defaultConfig, "run document (json or yaml)")
	fs.StringVar(&f.date, "date", "", "reference date YYYY-MM-DD for periodic apps; default today")
	fs.StringVar(&f.defaultMode, "default-mode", "", "mode for apps that set none: single | schedule | periodic")
	if err := fs.Parse(args); err != nil {
		return f, err
	}
	if fs.NArg() > 1 {
		return f, fmt.Errorf("expected at most one run document, got %d", fs.NArg())
	}
	if fs.NArg() == 1 {
		f.config = fs.Arg(0)
	}
	if f.defaultMode != "" {
		if _, ok := domain.ParseMode(f.defaultMode); !ok {
			return f, fmt.Errorf("unknown -default-mode %q", f.defaultMode)
		}
	}
	return f, nil
}

// reference resolves -date to midnight in loc so the civil date survives
// the runner's timezone conversion
func reference(date string, now time.Time, loc *time.Location) (time.Time, error) {
	if date == "" {
		return now, nil
	}
	d, err := period.ParseDate(date)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), 0, 0, 0, 0, loc), nil
}

func main() {
	os.Exit(run(os.Args[1:], os.Stderr))
}

func run(args []string, stderr io.Writer) int {
	f, err := parseFlags(args, stderr)
	if err != nil {
		if err == flag.ErrHelp {
			return exitOK
		}
		fmt.Fprintln(stderr, err)
		return exitBadArgs
	}
	build := version.Info("playreviews")
	if f.version {
		fmt.Fprintln(stderr, build.String())
		return exitOK
	}

	l := logger.New(logger.FromEnv())
	root := config.New().WithLogger(l)

	doc, err := rundoc.Load(f.config)
	if err != nil {
		l.Error().Err(err).Str("config", f.config).Msg("cannot load run document")
		return exitBadArgs
	}
	if f.defaultMode != "" {
		mode, _ := domain.ParseMode(f.defaultMode)
		doc.DefaultMode = mode
	}
	if err := rundoc.Validate(doc); err != nil {
		for _, p := range rundoc.Problems(err) {
			l.Error().Str("field", p.Field).Msg(p.Message)
		}
		l.Error().Err(err).Str("config", f.config).Msg("invalid run document")
		return exitBadArgs
	}
	loc, err := doc.Location()
	if err != nil {
		loc = time.UTC
	}
	ref, err := reference(f.date, time.Now(), loc)
	if err != nil {
		l.Error().Err(err).Msg("bad -date")
		return exitBadArgs
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, err := store.Open(ctx, store.ConfigFromEnv(root, "playreviews"), store.WithLogger(l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return exitFailed
	}
	defer func() {
		if err := st.Close(context.Background()); err != nil {
			l.Error().Err(err).Msg("failed to close store")
		}
	}()

	n, err := notify.Open(ctx, notify.FromConfig(root), l)
	if err != nil {
		l.Error().Err(err).Msg("notifier unavailable")
		return exitFailed
	}
	if n != nil {
		defer func() {
			if err := n.Close(); err != nil {
				l.Warn().Err(err).Msg("failed to close notifier")
			}
		}()
	}

	deps := modkit.Deps{Log: l, Cfg: root, Store: st}
	var opts []reviewsmod.Option
	if n != nil {
		opts = append(opts, reviewsmod.WithNotifier(n))
	}
	mod := reviewsmod.New(deps, opts...)
	runner := modkit.PortsAs[reviewsmod.Ports](mod).Runner

	l.Info().Str("version", build.Version).Str("commit", build.Commit).Str("config", f.config).
		Int("apps", len(doc.Apps)).Msg("playreviews starting")
	if err := runner.Run(ctx, doc, ref); err != nil {
		l.Error().Err(err).Str("code", perr.CodeOf(err).String()).Msg("run finished with failures")
		return exitFailed
	}
	return exitOK
}
