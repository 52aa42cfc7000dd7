package portal

import (
	"context"
	"time"
)

// ActivityEventType enumerates supported activity categories.
type ActivityEventType string

const (
	ActivityEventNavigationRedirected ActivityEventType = "navigation.redirected"
	ActivityEventSessionCleared       ActivityEventType = "session.cleared"
	ActivityEventLoginSuccess         ActivityEventType = "session.login.success"
	ActivityEventLoginFailure         ActivityEventType = "session.login.failure"
	ActivityEventLogout               ActivityEventType = "session.logout"
	ActivityEventUpstreamRejected     ActivityEventType = "session.upstream.rejected"
)

// ActivityEvent captures audit-friendly information about a navigation
// or session change.
type ActivityEvent struct {
	EventType ActivityEventType
	// Actor is the visitor id or the cli session, empty when unknown
	Actor      string
	Route      string
	Path       string
	Redirect   string
	Metadata   map[string]any
	OccurredAt time.Time
}

// ActivitySink consumes activity events for auditing/telemetry purposes.
type ActivitySink interface {
	Record(ctx context.Context, event ActivityEvent) error
}

// ActivitySinkFunc adapts a function to the ActivitySink interface.
type ActivitySinkFunc func(ctx context.Context, event ActivityEvent) error

// Record implements ActivitySink.
func (f ActivitySinkFunc) Record(ctx context.Context, event ActivityEvent) error {
	if f == nil {
		return nil
	}
	return f(ctx, event)
}

type noopActivitySink struct{}

func (noopActivitySink) Record(context.Context, ActivityEvent) error {
	return nil
}

// NormalizeActivitySink returns a no-op sink for nil.
func NormalizeActivitySink(s ActivitySink) ActivitySink {
	if s == nil {
		return noopActivitySink{}
	}
	return s
}
