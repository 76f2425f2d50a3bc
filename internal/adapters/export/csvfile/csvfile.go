// Package csvfile writes and reads the per-unit review CSV files.
//
// Files are UTF-8 with a byte order mark so spreadsheet tools pick the
// encoding up. A unit with no reviews is written as a single "empty" row
package csvfile

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"playreviews/internal/core/period"
	"playreviews/internal/core/review"
	perr "playreviews/internal/platform/errors"
	"playreviews/internal/platform/logger"
)

// Header is the column order of every non-empty file
var Header = []string{"name", "content", "score", "at", "appversion"}

// EmptyMarker is the only row of a file written for an empty unit
const EmptyMarker = "empty"

// TimeLayout renders review timestamps
const TimeLayout = "2006-01-02 15:04:05"

var bom = []byte{0xEF, 0xBB, 0xBF}

// File identifies one output file
type File struct {
	Kind      string // single, schedule or periodic
	App       string
	Frequency string
	Period    *period.Period
}

// Writer lays files out under Root
type Writer struct {
	Root string
	Loc  *time.Location // timestamps are rendered in Loc; nil means UTC
	log  logger.Logger
}

// New returns a Writer rooted at root
func New(root string, loc *time.Location, log logger.Logger) *Writer {
	if root == "" {
		root = "output"
	}
	if loc == nil {
		loc = time.UTC
	}
	return &Writer{Root: root, Loc: loc, log: logger.Named(log, "csvfile")}
}

// Path returns where f is written:
// single/{app}_single.csv or {kind}/{freq}/{app}_{freq}_{YYYYMMDD}-{YYYYMMDD}.csv
func (w *Writer) Path(f File) string {
	app := separators.Replace(f.App)
	if f.Period == nil {
		return filepath.Join(w.Root, f.Kind, app+"_"+f.Kind+".csv")
	}
	name := app + "_" + f.Frequency + "_" + f.Period.Tag() + ".csv"
	return filepath.Join(w.Root, f.Kind, f.Frequency, name)
}

// separators keeps an app id to one path segment under Root
var separators = strings.NewReplacer("/", "_", `\`, "_")

// Write replaces the file for f with recs and returns its path
func (w *Writer) Write(ctx context.Context, f File, recs []review.Record) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	path := w.Path(f)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", perr.IOf(err, "create %s", filepath.Dir(path))
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), ".csv-*")
	if err != nil {
		return "", perr.IOf(err, "create temp for %s", path)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if err := w.encode(tmp, recs); err != nil {
		_ = tmp.Close()
		return "", perr.IOf(err, "write %s", path)
	}
	if err := tmp.Close(); err != nil {
		return "", perr.IOf(err, "close %s", path)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return "", perr.IOf(err, "rename into %s", path)
	}

	if len(recs) == 0 {
		w.log.Warn().Str("path", path).Msgf("%s has no reviews; wrote an empty file", path)
	} else {
		w.log.Info().Str("path", path).Int("records", len(recs)).Msgf("created %s", path)
	}
	return path, nil
}

func (w *Writer) encode(out io.Writer, recs []review.Record) error {
	bw := bufio.NewWriter(out)
	if _, err := bw.Write(bom); err != nil {
		return err
	}
	cw := csv.NewWriter(bw)
	if len(recs) == 0 {
		if err := cw.Write([]string{EmptyMarker}); err != nil {
			return err
		}
	} else {
		if err := cw.Write(Header); err != nil {
			return err
		}
		for _, r := range recs {
			if err := cw.Write(w.row(r)); err != nil {
				return err
			}
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return err
	}
	return bw.Flush()
}

func (w *Writer) row(r review.Record) []string {
	score, at := "", ""
	if r.Rating > 0 {
		score = strconv.Itoa(r.Rating)
	}
	if r.Dated() {
		at = r.At.In(w.Loc).Format(TimeLayout)
	}
	return []string{review.Str(r.Author), review.Str(r.Text), score, at, review.Str(r.AppVersion)}
}

// Read parses a file written by Writer, or any CSV with the same header.
// Timestamps are read in loc; an empty marker file yields no records.
// Extra columns are ignored and missing ones stay unset
func Read(path string, loc *time.Location) ([]review.Record, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, perr.Wrapf(err, perr.ErrorCodeNotFound, "csv %s", path)
		}
		return nil, perr.IOf(err, "read %s", path)
	}
	return Decode(bytes.NewReader(bytes.TrimPrefix(b, bom)), loc)
}

// Decode reads records from r; see Read
func Decode(r io.Reader, loc *time.Location) ([]review.Record, error) {
	if loc == nil {
		loc = time.UTC
	}
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, nil
	}
	if err != nil {
		return nil, perr.Wrap(err, perr.ErrorCodeDecode, "csv header")
	}
	if len(head) == 1 && strings.TrimSpace(head[0]) == EmptyMarker {
		return nil, nil
	}
	col := map[string]int{}
	for i, h := range head {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	get := func(row []string, name string) (string, bool) {
		i, ok := col[name]
		if !ok || i >= len(row) {
			return "", false
		}
		return row[i], true
	}
	opt := func(row []string, name string) *string {
		v, ok := get(row, name)
		if !ok || v == "" {
			return nil
		}
		return &v
	}

	var out []review.Record
	for line := 2; ; line++ {
		row, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, perr.Wrapf(err, perr.ErrorCodeDecode, "csv line %d", line)
		}
		rec := review.Record{
			Author:     opt(row, "name"),
			Text:       opt(row, "content"),
			AppVersion: opt(row, "appversion"),
		}
		if v, ok := get(row, "score"); ok && v != "" {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f >= 1 && f <= 5 {
				rec.Rating = int(f)
			}
		}
		if v, ok := get(row, "at"); ok && v != "" {
			if t, err := parseAt(v, loc); err == nil {
				rec.At = t.UTC()
			}
		}
		out = append(out, rec)
	}
	return out, nil
}

// parseAt accepts the layout this package writes plus RFC 3339
func parseAt(v string, loc *time.Location) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.ParseInLocation(TimeLayout, v, loc); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}
