// Package module implements the reviews service module
package module

import (
	"playreviews/internal/modkit"
	"playreviews/internal/services/reviews/domain"
	"playreviews/internal/services/reviews/guardrails"
	"playreviews/internal/services/reviews/ingest"
	"playreviews/internal/services/reviews/service"
)

// Ports exposed by the reviews module
type Ports struct {
	Runner domain.RunnerPort
}

// Module implements the reviews service module
type Module struct {
	deps  modkit.Deps
	ports Ports
}

// New constructs a new reviews module
func New(deps modkit.Deps, opts ...Option) *Module {
	o := FromConfig(deps.Cfg)
	var st settings
	for _, fn := range opts {
		fn(&st)
	}

	src := st.src
	if src == nil {
		src = ingest.NewSource(deps)
	}
	retrying := service.NewRetrySource(src, o.Retries, o.RetryBase, guardrails.Timeouts{Request: o.RequestTimeout})
	retrying.PerCall = ingest.PerCall

	runner := service.New(deps.Log, retrying, openers(deps, o), st.notifier, service.Config{
		Workers:      o.Workers,
		AppTimeout:   o.AppTimeout,
		DefaultSinks: o.DefaultSinks,
	})

	m := &Module{deps: deps}
	m.ports = Ports{Runner: runner}
	return m
}

// Name satisfies modkit.Module
func (m *Module) Name() string { return "reviews" }

// Ports satisfies modkit.Module
func (m *Module) Ports() any { return m.ports }
