// Package domain holds the types and ports of the review windowing pipeline
package domain

import (
	"strings"
	"time"

	"playreviews/internal/core/period"
	"playreviews/internal/core/review"
)

// Mode selects how an application is processed
type Mode string

const (
	// ModeSingle fetches a fixed number of pages with no windowing
	ModeSingle Mode = "single"
	// ModeSchedule covers an explicit date span, one unit per period
	ModeSchedule Mode = "schedule"
	// ModePeriodic covers the window enclosing the reference date
	ModePeriodic Mode = "periodic"
)

// ParseMode lower-cases s and reports whether it names a known mode
func ParseMode(s string) (Mode, bool) {
	m := Mode(strings.ToLower(strings.TrimSpace(s)))
	switch m {
	case ModeSingle, ModeSchedule, ModePeriodic:
		return m, true
	}
	return m, false
}

// SortNewest is the only ordering the pipeline asks the source for
const SortNewest = 2

// RawReview is one review as decoded by a source adapter
type RawReview = review.Raw

// PageRequest asks a source for one page of reviews
type PageRequest struct {
	AppID    string
	Lang     string
	Country  string
	Sort     int
	PageSize int
	Cursor   string // empty for the first page
}

// Page is one source response; an empty Next means the listing is exhausted
type Page struct {
	Items []RawReview
	Next  string
}

// StopReason says why a paginated fetch ended
type StopReason string

const (
	StopExhausted StopReason = "exhausted"
	StopBudget    StopReason = "budget_reached"
	StopTarget    StopReason = "target_reached"
)

// Degradation marks an escalated fetch that returned best effort results
type Degradation string

const (
	DegradedNone Degradation = ""

	// DegradedNoUsableDates means no fetched record carried a date
	DegradedNoUsableDates Degradation = "no_usable_dates"

	// DegradedEscalationExhausted means page size and budget hit their caps
	// before the target date was reached
	DegradedEscalationExhausted Degradation = "escalation_exhausted"
)

// OutputUnit is the set of records handed to the sinks for one
// application and, outside single mode, one period
type OutputUnit struct {
	RunID     string
	App       string
	Kind      Mode
	Frequency period.Frequency // empty in single mode
	Period    *period.Period   // nil in single mode
	Records   []review.Record
}

// Empty reports whether the unit carries no records
func (u OutputUnit) Empty() bool { return len(u.Records) == 0 }

// UnitEvent is published after every sink accepted a unit
type UnitEvent struct {
	RunID       string    `json:"run_id"`
	App         string    `json:"app"`
	Kind        Mode      `json:"kind"`
	Frequency   string    `json:"frequency,omitempty"`
	PeriodStart string    `json:"period_start,omitempty"`
	PeriodEnd   string    `json:"period_end,omitempty"`
	Records     int       `json:"records"`
	Sinks       []string  `json:"sinks"`
	StoredAt    time.Time `json:"stored_at"`
}

// EventFor summarizes u for notifiers
func EventFor(u OutputUnit, sinks []string, at time.Time) UnitEvent {
	ev := UnitEvent{
		RunID:     u.RunID,
		App:       u.App,
		Kind:      u.Kind,
		Frequency: string(u.Frequency),
		Records:   len(u.Records),
		Sinks:     sinks,
		StoredAt:  at.UTC(),
	}
	if u.Period != nil {
		ev.PeriodStart = u.Period.Start.Format(time.DateOnly)
		ev.PeriodEnd = u.Period.End.Format(time.DateOnly)
	}
	return ev
}
