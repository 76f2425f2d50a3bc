package domain

import (
	"context"
	"time"
)

// RunnerPort is the public port exposed by the module
type RunnerPort interface {
	Run(ctx context.Context, doc Document, ref time.Time) error
}

// Source returns pages of reviews, newest first
type Source interface {
	FetchPage(ctx context.Context, req PageRequest) (Page, error)
}

// SourceFunc adapts a function to Source
type SourceFunc func(ctx context.Context, req PageRequest) (Page, error)

// FetchPage implements Source
func (f SourceFunc) FetchPage(ctx context.Context, req PageRequest) (Page, error) {
	return f(ctx, req)
}

// Sink persists output units. Append or overwrite semantics belong to the sink
type Sink interface {
	Name() string
	Write(ctx context.Context, u OutputUnit) error
}

// SinkOpener prepares a sink for one run document
type SinkOpener func(ctx context.Context, doc Document) (Sink, error)

// Notifier announces stored units to downstream consumers
type Notifier interface {
	Notify(ctx context.Context, ev UnitEvent) error
	Close() error
}

// ReviewRepo is the storage repository used by the database sinks
type ReviewRepo interface {
	// SaveUnit records the unit header and appends its reviews, skipping
	// reviews already stored for the same app; it returns the rows inserted
	SaveUnit(ctx context.Context, u OutputUnit) (inserted int, err error)
}
