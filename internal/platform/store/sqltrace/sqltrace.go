// Package sqltrace logs statements issued through the store adapters
package sqltrace

import (
	"context"
	"strings"
	"time"

	"playreviews/internal/platform/logger"

	"github.com/rs/zerolog"
)

// QueryEvent describes one executed statement
type QueryEvent struct {
	SQL     string
	Args    any
	Elapsed time.Duration
	Err     error
	Slow    bool
}

// QueryTracer receives query events
type QueryTracer interface {
	OnQuery(ctx context.Context, ev QueryEvent)
}

// Tracer returns a tracer that always prints statements, independent of the
// level configured on root, tagged with the backend name
func Tracer(root logger.Logger, backend string) QueryTracer {
	ll := root.Level(zerolog.DebugLevel).With().Str("component", backend).Logger()
	return &zlTracer{log: ll}
}

type zlTracer struct{ log logger.Logger }

func (z *zlTracer) OnQuery(_ context.Context, ev QueryEvent) {
	evt := z.log.Debug()
	if ev.Slow {
		evt = z.log.Warn()
	}
	if ev.Err != nil {
		evt = z.log.Error()
	}
	evt.Float64("elapsed_ms", float64(ev.Elapsed.Microseconds())/1000.0).
		Bool("slow", ev.Slow).
		Str("sql", Compact(ev.SQL)).
		Interface("args", ev.Args).
		Err(ev.Err).
		Msg("sql query")
}

// Compact collapses runs of whitespace so statements log on one line
func Compact(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// Emitter times statements against a slow threshold and forwards them to a tracer
type Emitter struct {
	Tracer QueryTracer
	Slow   time.Duration // <=0 disables slow flagging
}

// Emit reports one statement started at start; a nil tracer is a no-op
func (e Emitter) Emit(ctx context.Context, sql string, args []any, start time.Time, err error) {
	if e.Tracer == nil {
		return
	}
	el := time.Since(start)
	e.Tracer.OnQuery(ctx, QueryEvent{
		SQL:     sql,
		Args:    args,
		Elapsed: el,
		Err:     err,
		Slow:    e.Slow > 0 && el >= e.Slow,
	})
}
