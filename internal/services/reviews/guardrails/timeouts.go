// Package guardrails holds time budget helpers for review runs
package guardrails

import (
	"context"
	"time"
)

// Timeouts bundles the optional budgets of one application run.
// Zero values mean no extra timeout at that level
type Timeouts struct {
	// App bounds everything done for one application: fetch, windowing and sinks
	App time.Duration

	// Request caps one remote call, retries excluded. A page served by
	// several chained calls gets Request per call
	Request time.Duration
}

// WithApp returns a context limited by the app budget without extending any parent deadline
func WithApp(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.App)
}

// ForRequest returns a sub context for one page request bounded by Request and any remaining parent budget
func ForRequest(parent context.Context, t Timeouts) (context.Context, context.CancelFunc) {
	return withChildTimeout(parent, t.Request)
}

// ForCalls is ForRequest for a page that takes calls chained remote calls
func ForCalls(parent context.Context, t Timeouts, calls int) (context.Context, context.CancelFunc) {
	if t.Request <= 0 || calls <= 1 {
		return ForRequest(parent, t)
	}
	return withChildTimeout(parent, t.Request*time.Duration(calls))
}

// Remaining returns the time until the deadline on ctx or zero when none is set or already expired
func Remaining(ctx context.Context) time.Duration {
	if dl, ok := ctx.Deadline(); ok {
		if d := time.Until(dl); d > 0 {
			return d
		}
	}
	return 0
}

// withChildTimeout takes the tighter of d and the parent remainder.
// d <= 0 yields a plain cancelable child
func withChildTimeout(parent context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(parent)
	}
	if rem := Remaining(parent); rem > 0 && rem < d {
		return context.WithTimeout(parent, rem)
	}
	return context.WithTimeout(parent, d)
}
