package module

import (
	"time"

	"playreviews/internal/platform/config"
	"playreviews/internal/services/reviews/domain"
)

// Options holds configuration settings for the reviews module
type Options struct {
	Workers        int
	Retries        int
	RetryBase      time.Duration
	RequestTimeout time.Duration
	AppTimeout     time.Duration
	DefaultSinks   []string
	OutputDir      string
}

// FromConfig reads configuration settings from the config.Conf
func FromConfig(cfg config.Conf) Options {
	rf := cfg.Prefix("CORE_REVIEWS_")
	return Options{
		Workers:        rf.MayInt("WORKERS", 1),
		Retries:        rf.MayInt("RETRIES", 3),
		RetryBase:      rf.MayDuration("RETRY_BASE", 500*time.Millisecond),
		RequestTimeout: rf.MayDuration("REQUEST_TIMEOUT", 30*time.Second),
		AppTimeout:     rf.MayDuration("APP_TIMEOUT", 0),
		DefaultSinks:   rf.MayCSV("SINKS", []string{"csv"}),
		OutputDir:      rf.MayString("OUTPUT_DIR", "output"),
	}
}

// Option tweaks module construction
type Option func(*settings)

type settings struct {
	src      domain.Source
	notifier domain.Notifier
}

// WithSource replaces the store backed source
func WithSource(s domain.Source) Option { return func(st *settings) { st.src = s } }

// WithNotifier announces stored units through n
func WithNotifier(n domain.Notifier) Option { return func(st *settings) { st.notifier = n } }
