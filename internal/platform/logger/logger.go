// Package logger builds zerolog loggers with the project's defaults.
// Loggers are values handed to the components that use them; there is no
// process-wide root to reach for.
package logger

import (
	"context"
	"io"
	"os"
	"runtime/debug"
	"strconv"
	"strings"
	"time"

	"playreviews/internal/platform/config/raw"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/pkgerrors"
)

// Options configures a logger
type Options struct {
	Level        string
	Format       string
	Service      string
	Writer       io.Writer
	WithCaller   bool
	StaticFields map[string]string
}

// Logger is the project-wide logging type
type Logger = zerolog.Logger

// FromEnv builds Options from LOG_* variables. GOOGLEPLAY_LOG_LEVEL is read
// when LOG_LEVEL is unset so existing deployments keep their verbosity
func FromEnv() Options {
	rc := raw.New().Prefix("LOG_")
	return Options{
		Level:      raw.First("info", "LOG_LEVEL", "GOOGLEPLAY_LOG_LEVEL"),
		Format:     strings.ToLower(rc.Get("FORMAT", "console")),
		Service:    rc.Get("SERVICE", ""),
		WithCaller: rc.GetBool("CALLER", false),
	}
}

func init() {
	zerolog.ErrorStackMarshaler = pkgerrors.MarshalStack
	zerolog.TimeFieldFormat = time.RFC3339Nano
}

// New builds a logger from opt. Output goes to stderr unless Writer is set
func New(opt Options) Logger {
	var w io.Writer = os.Stderr
	if opt.Writer != nil {
		w = opt.Writer
	}
	if strings.EqualFold(opt.Format, "console") {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.DateTime}
	}

	ctx := zerolog.New(w).Level(ParseLevel(opt.Level)).With().Timestamp()
	if bi, ok := debug.ReadBuildInfo(); ok && bi != nil {
		ctx = ctx.Str("go_version", bi.GoVersion)
	}
	if opt.Service != "" {
		ctx = ctx.Str("service", opt.Service)
	}
	for k, v := range opt.StaticFields {
		ctx = ctx.Str(k, v)
	}

	log := ctx.Logger()
	if opt.WithCaller {
		log = log.With().Caller().Logger()
	}
	return log
}

// Nop returns a disabled logger for tests and optional wiring
func Nop() Logger { return zerolog.Nop() }

// ParseLevel accepts zerolog names plus the stdlib-style names and numeric
// levels (10 debug .. 50 critical) older configs use. Unknown values mean info
func ParseLevel(s string) zerolog.Level {
	s = strings.ToLower(strings.TrimSpace(s))
	if n, err := strconv.Atoi(s); err == nil {
		switch {
		case n <= 0:
			return zerolog.TraceLevel
		case n <= 10:
			return zerolog.DebugLevel
		case n <= 20:
			return zerolog.InfoLevel
		case n <= 30:
			return zerolog.WarnLevel
		case n <= 40:
			return zerolog.ErrorLevel
		default:
			return zerolog.FatalLevel
		}
	}
	switch s {
	case "trace", "notset":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	case "fatal", "critical":
		return zerolog.FatalLevel
	case "panic":
		return zerolog.PanicLevel
	case "disabled", "off":
		return zerolog.Disabled
	default:
		return zerolog.InfoLevel
	}
}

// Named returns a child logger with a component field
func Named(l Logger, component string) Logger {
	if component == "" {
		return l
	}
	return l.With().Str("component", component).Logger()
}

// ForApp returns a child logger scoped to one application run
func ForApp(l Logger, runID, app, mode string) Logger {
	c := l.With().Str("app", app)
	if runID != "" {
		c = c.Str("run_id", runID)
	}
	if mode != "" {
		c = c.Str("mode", mode)
	}
	return c.Logger()
}

// WithContext attaches l to ctx for code that only receives a context
func WithContext(ctx context.Context, l Logger) context.Context {
	return l.WithContext(ctx)
}

// C returns the logger carried by ctx, or a disabled logger when there is none
func C(ctx context.Context) *Logger {
	return zerolog.Ctx(ctx)
}
