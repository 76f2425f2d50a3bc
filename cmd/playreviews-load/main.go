// Command playreviews-load imports review CSV files into the SQLite
// database used for analysis
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"playreviews/internal/adapters/export/csvfile"
	"playreviews/internal/core/version"
	"playreviews/internal/platform/config"
	"playreviews/internal/platform/logger"
	"playreviews/internal/platform/store"
	"playreviews/internal/platform/store/migrate"
	"playreviews/internal/services/reviews/domain"
	"playreviews/internal/services/reviews/repo"
)

// modeImport marks units loaded from files rather than fetched
const modeImport domain.Mode = "import"

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr))
}

func run(ctx context.Context, args []string, stderr io.Writer) int {
	root := config.New()
	fset := flag.NewFlagSet("playreviews-load", flag.ContinueOnError)
	fset.SetOutput(stderr)
	dbPath := fset.String("db", root.Prefix("SERVICE_SQLITE_").MayString("PATH", "reviews.db"), "sqlite database file")
	app := fset.String("app", "", "app id for every file; default is the file name up to the first underscore")
	tz := fset.String("timezone", "UTC", "zone naive timestamps are read in")
	if err := fset.Parse(args); err != nil {
		return 2
	}
	if fset.NArg() == 0 {
		fmt.Fprintln(stderr, "usage: playreviews-load [-db file] [-app id] <csv file or dir>...")
		return 2
	}
	loc, err := time.LoadLocation(*tz)
	if err != nil {
		fmt.Fprintf(stderr, "bad -timezone: %v\n", err)
		return 2
	}

	l := logger.New(logger.FromEnv())
	l.Debug().Str("build", version.Info("playreviews-load").String()).Msg("starting")
	files, err := collect(fset.Args())
	if err != nil {
		l.Error().Err(err).Msg("cannot list inputs")
		return 1
	}

	st, err := store.Open(ctx, store.Config{
		AppName: "playreviews-load",
		SQLite:  store.SQLiteConfig{Enabled: true, Path: *dbPath},
	}, store.WithLogger(l))
	if err != nil {
		l.Error().Err(err).Msg("store.Open failed")
		return 1
	}
	defer func() { _ = st.Close(context.Background()) }()

	if _, err := repo.Migrate(ctx, st.SQLite, migrate.SQLite); err != nil {
		l.Error().Err(err).Msg("migrate failed")
		return 1
	}
	sink := repo.NewSQLSink("sqlite", st.SQLite, repo.NewSQLite(loc))
	runID := uuid.NewString()

	total, failed := 0, 0
	for _, path := range files {
		recs, err := csvfile.Read(path, loc)
		if err != nil {
			l.Error().Err(err).Str("file", path).Msg("skipping unreadable file")
			failed++
			continue
		}
		u := domain.OutputUnit{RunID: runID, App: appFor(*app, path), Kind: modeImport, Records: recs}
		if err := sink.Write(ctx, u); err != nil {
			l.Error().Err(err).Str("file", path).Msg("import failed")
			failed++
			continue
		}
		total += len(recs)
		l.Info().Str("file", path).Str("app", u.App).Int("records", len(recs)).Msg("imported")
	}
	l.Info().Int("files", len(files)).Int("failed", failed).Int("records", total).Str("db", *dbPath).Msg("load finished")
	if failed > 0 {
		return 1
	}
	return 0
}

// collect expands directories into the csv files below them
func collect(args []string) ([]string, error) {
	var out []string
	for _, a := range args {
		info, err := os.Stat(a)
		if err != nil {
			return nil, err
		}
		if !info.IsDir() {
			out = append(out, a)
			continue
		}
		err = filepath.WalkDir(a, func(p string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && strings.EqualFold(filepath.Ext(p), ".csv") {
				out = append(out, p)
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
	}
	sort.Strings(out)
	return out, nil
}

func appFor(flagApp, path string) string {
	if flagApp != "" {
		return flagApp
	}
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	if i := strings.Index(base, "_"); i > 0 {
		return base[:i]
	}
	return base
}
