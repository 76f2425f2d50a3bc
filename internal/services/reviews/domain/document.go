package domain

import (
	"time"

	"playreviews/internal/core/period"
)

// Document is a run document: shared settings plus one entry per app.
// Keys match the JSON files the pipeline has always read
type Document struct {
	Lang        string   `json:"lang" yaml:"lang"`
	Country     string   `json:"country" yaml:"country"`
	OutputDir   string   `json:"output_dir" yaml:"output_dir"`
	DefaultMode Mode     `json:"default_mode" yaml:"default_mode"`
	Timezone    string   `json:"timezone" yaml:"timezone" validate:"omitempty,timezone"`
	Sinks       []string `json:"sinks" yaml:"sinks" validate:"omitempty,dive,oneof=csv sqlite postgres clickhouse"`
	Apps        []App    `json:"apps" yaml:"apps" validate:"required,min=1"`
}

// App configures one application. Pointer fields distinguish unset from zero
type App struct {
	Package   string           `json:"package" yaml:"package" validate:"required,appid"`
	Mode      Mode             `json:"mode" yaml:"mode"`
	Frequency period.Frequency `json:"frequency" yaml:"frequency"`
	StartDate string           `json:"start_date" yaml:"start_date" validate:"omitempty,datetime=2006-01-02"`
	EndDate   string           `json:"end_date" yaml:"end_date" validate:"omitempty,datetime=2006-01-02"`

	Count            *int `json:"count" yaml:"count" validate:"omitempty,min=1"`
	MaxPages         *int `json:"max_pages" yaml:"max_pages" validate:"omitempty,min=1"`
	ProgressInterval int  `json:"progress_interval" yaml:"progress_interval" validate:"min=0"`
	RefOffsetDays    int  `json:"ref_offset_days" yaml:"ref_offset_days"`

	WeekStartsOn period.WeekStart `json:"week_starts_on" yaml:"week_starts_on"`
	// AlignWeeks false makes schedule weeks step seven days from start_date
	AlignWeeks   *bool            `json:"align_weeks" yaml:"align_weeks"`

	AutoPagesStart      *int     `json:"auto_pages_start" yaml:"auto_pages_start" validate:"omitempty,min=1"`
	AutoPagesMultiplier *float64 `json:"auto_pages_multiplier" yaml:"auto_pages_multiplier"`
	AutoPagesCap        *int     `json:"auto_pages_cap" yaml:"auto_pages_cap" validate:"omitempty,min=1"`
	AutoCountStart      *int     `json:"auto_count_start" yaml:"auto_count_start" validate:"omitempty,min=1"`
	AutoCountMultiplier *float64 `json:"auto_count_multiplier" yaml:"auto_count_multiplier"`
	AutoCountCap        *int     `json:"auto_count_cap" yaml:"auto_count_cap" validate:"omitempty,min=1"`

	Lang    string `json:"lang" yaml:"lang"`
	Country string `json:"country" yaml:"country"`
}

// Location resolves the document timezone, UTC when unset
func (d Document) Location() (*time.Location, error) {
	if d.Timezone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(d.Timezone)
}

// ModeFor returns the app mode, falling back to the document default and then single
func (d Document) ModeFor(a App) string {
	switch {
	case a.Mode != "":
		return string(a.Mode)
	case d.DefaultMode != "":
		return string(d.DefaultMode)
	}
	return string(ModeSingle)
}

// LangFor returns the app language override or the document language
func (d Document) LangFor(a App) string { return or(a.Lang, d.Lang, "en") }

// CountryFor returns the app country override or the document country
func (d Document) CountryFor(a App) string { return or(a.Country, d.Country, "us") }

// FrequencyFor returns the configured frequency, daily when unset
func (a App) FrequencyFor() period.Frequency {
	if a.Frequency == "" {
		return period.Daily
	}
	return a.Frequency
}

// WeeksAligned reports whether schedule weeks start on WeekStartsOn; the default
func (a App) WeeksAligned() bool { return a.AlignWeeks == nil || *a.AlignWeeks }

// IntOr dereferences p or returns def
func IntOr(p *int, def int) int {
	if p == nil {
		return def
	}
	return *p
}

// FloatOr dereferences p or returns def
func FloatOr(p *float64, def float64) float64 {
	if p == nil {
		return def
	}
	return *p
}

func or(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
