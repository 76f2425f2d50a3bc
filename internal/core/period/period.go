// Package period implements the calendar windows reviews are sliced into.
//
// A Period is a closed interval of civil dates [Start, End]. Dates are
// carried as time.Time values at midnight UTC; callers convert instants to
// dates with Date before comparing. Weekday numbering follows the Monday=0
// convention used by configuration files.
package period

import (
	"fmt"
	"iter"
	"strconv"
	"strings"
	"time"

	perr "playreviews/internal/platform/errors"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

// Frequency is the window length
type Frequency string

const (
	// Daily windows cover one date
	Daily Frequency = "daily"
	// Weekly windows cover seven consecutive dates
	Weekly Frequency = "weekly"
	// Monthly windows cover one calendar month
	Monthly Frequency = "monthly"
)

// ErrUnsupportedFrequency is returned for frequencies other than daily, weekly, monthly
var ErrUnsupportedFrequency = perr.New(perr.ErrorCodeUnsupportedFrequency, "unsupported frequency")

const day = 24 * time.Hour

// Valid reports whether f is one of the supported frequencies
func (f Frequency) Valid() bool {
	switch f {
	case Daily, Weekly, Monthly:
		return true
	}
	return false
}

// ParseFrequency accepts daily, weekly or monthly in any case
func ParseFrequency(s string) (Frequency, error) {
	f := Frequency(strings.ToLower(strings.TrimSpace(s)))
	if !f.Valid() {
		return "", unsupported(s)
	}
	return f, nil
}

func unsupported(s string) error {
	return perr.Wrapf(ErrUnsupportedFrequency, perr.ErrorCodeUnsupportedFrequency, "frequency %q", s)
}

// Period is a closed date interval; both ends are inclusive
type Period struct {
	Start time.Time
	End   time.Time
}

// Contains reports whether the civil date d falls inside p
func (p Period) Contains(d time.Time) bool {
	return !d.Before(p.Start) && !d.After(p.End)
}

// Days returns the number of dates covered
func (p Period) Days() int {
	return int(p.End.Sub(p.Start)/day) + 1
}

// Tag renders the period as YYYYMMDD-YYYYMMDD, the form used in file names and labels
func (p Period) Tag() string {
	return p.Start.Format("20060102") + "-" + p.End.Format("20060102")
}

// String renders the period as YYYY-MM-DD..YYYY-MM-DD
func (p Period) String() string {
	return p.Start.Format(time.DateOnly) + ".." + p.End.Format(time.DateOnly)
}

// Date returns the civil date of t in loc as midnight UTC. A nil loc means UTC
func Date(t time.Time, loc *time.Location) time.Time {
	if loc != nil {
		t = t.In(loc)
	} else {
		t = t.UTC()
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses YYYY-MM-DD into a civil date
func ParseDate(s string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, perr.Wrapf(err, perr.ErrorCodeInvalidArgument, "date %q (want YYYY-MM-DD)", s)
	}
	return d, nil
}

// Weekday returns the Monday=0 weekday number of d
func Weekday(d time.Time) int {
	return (int(d.Weekday()) + 6) % 7
}

func addDays(d time.Time, n int) time.Time { return d.AddDate(0, 0, n) }

func firstOfNextMonth(d time.Time) time.Time {
	return time.Date(d.Year(), d.Month()+1, 1, 0, 0, 0, 0, time.UTC)
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}

// Generate yields the periods of freq covering [start, end] in order.
// Weekly blocks run from weekStart (Monday=0) to the day before the next
// weekStart, so the first block covers start through the end of its week.
// Monthly periods follow calendar months. The first and last periods are
// clipped to the span. The sequence is empty when start is after end and can
// be ranged over more than once
func Generate(freq Frequency, start, end time.Time, weekStart int) (iter.Seq[Period], error) {
	ws := normalizeWeekStart(weekStart)
	return generate(freq, start, end, func(cur time.Time) time.Time {
		// (weekday - weekStart) mod 7 days into its week
		return addDays(cur, 7-(Weekday(cur)-ws+7)%7)
	})
}

// GenerateStepped is Generate with weekly blocks stepping seven days from
// start, whatever day start falls on
func GenerateStepped(freq Frequency, start, end time.Time) (iter.Seq[Period], error) {
	return generate(freq, start, end, func(cur time.Time) time.Time { return addDays(cur, 7) })
}

// generate walks the span; nextWeek gives the first day after the weekly
// block beginning at cur
func generate(freq Frequency, start, end time.Time, nextWeek func(time.Time) time.Time) (iter.Seq[Period], error) {
	if !freq.Valid() {
		return nil, unsupported(string(freq))
	}
	start, end = Date(start, nil), Date(end, nil)
	return func(yield func(Period) bool) {
		for cur := start; !cur.After(end); {
			var next time.Time
			switch freq {
			case Daily:
				next = addDays(cur, 1)
			case Weekly:
				next = nextWeek(cur)
			case Monthly:
				next = firstOfNextMonth(cur)
			}
			if !yield(Period{Start: cur, End: minDate(addDays(next, -1), end)}) {
				return
			}
			cur = next
		}
	}, nil
}

// Collect materialises Generate into a slice
func Collect(freq Frequency, start, end time.Time, weekStart int) ([]Period, error) {
	seq, err := Generate(freq, start, end, weekStart)
	if err != nil {
		return nil, err
	}
	return collect(seq), nil
}

// CollectStepped materialises GenerateStepped into a slice
func CollectStepped(freq Frequency, start, end time.Time) ([]Period, error) {
	seq, err := GenerateStepped(freq, start, end)
	if err != nil {
		return nil, err
	}
	return collect(seq), nil
}

func collect(seq iter.Seq[Period]) []Period {
	var out []Period
	for p := range seq {
		out = append(out, p)
	}
	return out
}

// Current returns the window of freq that contains ref. Weekly windows start
// on weekStart (Monday=0) and are never clipped
func Current(freq Frequency, ref time.Time, weekStart int) (Period, error) {
	ref = Date(ref, nil)
	switch freq {
	case Daily:
		return Period{Start: ref, End: ref}, nil
	case Weekly:
		offset := (Weekday(ref) - normalizeWeekStart(weekStart) + 7) % 7
		s := addDays(ref, -offset)
		return Period{Start: s, End: addDays(s, 6)}, nil
	case Monthly:
		s := time.Date(ref.Year(), ref.Month(), 1, 0, 0, 0, 0, time.UTC)
		return Period{Start: s, End: addDays(firstOfNextMonth(s), -1)}, nil
	}
	return Period{}, unsupported(string(freq))
}

func normalizeWeekStart(n int) int {
	if n < 0 || n > 6 {
		return 0
	}
	return n
}

var weekdayNames = map[string]int{
	"monday":    0,
	"tuesday":   1,
	"wednesday": 2,
	"thursday":  3,
	"friday":    4,
	"saturday":  5,
	"sunday":    6,
}

var fold = cases.Fold()

// ParseWeekStart maps a digit 0..6 or an English weekday name (any case) to
// the Monday=0 numbering. Anything else, including empty input, yields 0
func ParseWeekStart(s string) int {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return normalizeWeekStart(n)
	}
	if n, ok := weekdayNames[fold.String(s)]; ok {
		return n
	}
	return 0
}

// WeekStart is a week_starts_on value decoded from JSON or YAML, where it may
// be written as a number or a weekday name
type WeekStart int

// UnmarshalJSON accepts 0..6, "0".."6" or a weekday name
func (w *WeekStart) UnmarshalJSON(b []byte) error {
	s := strings.Trim(strings.TrimSpace(string(b)), `"`)
	if s == "null" {
		*w = 0
		return nil
	}
	*w = WeekStart(ParseWeekStart(s))
	return nil
}

// UnmarshalYAML accepts the same forms as UnmarshalJSON
func (w *WeekStart) UnmarshalYAML(n *yaml.Node) error {
	*w = WeekStart(ParseWeekStart(n.Value))
	return nil
}

// UnmarshalText lets env decoders share the JSON rules
func (w *WeekStart) UnmarshalText(b []byte) error {
	*w = WeekStart(ParseWeekStart(string(b)))
	return nil
}

// String returns the weekday name
func (w WeekStart) String() string {
	for name, n := range weekdayNames {
		if n == int(w) {
			return name
		}
	}
	return fmt.Sprintf("weekday(%d)", int(w))
}
