package activitymap_test

import (
	"context"
	"testing"
	"time"

	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/activitymap"
)

func TestNormalizeDefaults(t *testing.T) {
	t.Parallel()

	ts := time.Date(2026, 1, 10, 9, 30, 0, 0, time.UTC)
	event := portal.ActivityEvent{
		EventType:  portal.ActivityEventNavigationRedirected,
		Actor:      "visitor-42",
		Route:      portal.RouteDashboard,
		Path:       "/admin/dashboard",
		Redirect:   "/auth/login",
		Metadata:   map[string]any{"rule": "auth_required"},
		OccurredAt: ts,
	}

	out := activitymap.Normalize(event)

	if out.ActorID != "visitor-42" {
		t.Fatalf("expected actor_id visitor-42, got %q", out.ActorID)
	}
	if out.Verb != string(portal.ActivityEventNavigationRedirected) {
		t.Fatalf("expected verb %q, got %q", portal.ActivityEventNavigationRedirected, out.Verb)
	}
	if out.ObjectType != "route" || out.ObjectID != portal.RouteDashboard {
		t.Fatalf("expected route %s, got %s %q", portal.RouteDashboard, out.ObjectType, out.ObjectID)
	}
	if out.Channel != "portal" {
		t.Fatalf("expected channel portal, got %q", out.Channel)
	}
	if !out.OccurredAt.Equal(ts) {
		t.Fatalf("expected occurred_at %v, got %v", ts, out.OccurredAt)
	}
	if out.Metadata["rule"] != "auth_required" {
		t.Fatalf("expected metadata rule, got %#v", out.Metadata["rule"])
	}
	if out.Metadata[activitymap.MetadataKeyPath] != "/admin/dashboard" {
		t.Fatalf("expected metadata path, got %#v", out.Metadata[activitymap.MetadataKeyPath])
	}
	if out.Metadata[activitymap.MetadataKeyRedirect] != "/auth/login" {
		t.Fatalf("expected metadata redirect, got %#v", out.Metadata[activitymap.MetadataKeyRedirect])
	}
	if len(event.Metadata) != 1 {
		t.Fatalf("expected source metadata to remain unchanged, got %+v", event.Metadata)
	}
}

func TestNormalizeOptionOverrides(t *testing.T) {
	t.Parallel()

	event := portal.ActivityEvent{
		EventType: portal.ActivityEventLoginFailure,
		Path:      "portal login",
		Metadata:  map[string]any{"identifier": "admin"},
	}

	out := activitymap.Normalize(
		event,
		activitymap.WithDefaultChannel("cli"),
		activitymap.WithDefaultObjectType("account"),
		activitymap.WithObjectIDResolver(func(e portal.ActivityEvent) string {
			v, _ := e.Metadata["identifier"].(string)
			return v
		}),
	)

	if out.Channel != "cli" {
		t.Fatalf("expected channel cli, got %q", out.Channel)
	}
	if out.ObjectType != "account" || out.ObjectID != "admin" {
		t.Fatalf("expected account admin, got %s %q", out.ObjectType, out.ObjectID)
	}
	if out.OccurredAt.IsZero() {
		t.Fatalf("expected occurred_at to be set when input is zero")
	}
}

func TestNormalizeFallbacks(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		event       portal.ActivityEvent
		opts        []activitymap.Option
		expectActor string
		expectID    string
	}{
		{
			name:        "actor and route present",
			event:       portal.ActivityEvent{Actor: "visitor-1", Route: "home", Path: "/"},
			expectActor: "visitor-1",
			expectID:    "home",
		},
		{
			name:        "path when route missing",
			event:       portal.ActivityEvent{Path: "/nowhere"},
			expectActor: "anonymous",
			expectID:    "/nowhere",
		},
		{
			name:        "configured actor fallback",
			event:       portal.ActivityEvent{},
			opts:        []activitymap.Option{activitymap.WithActorFallback("job")},
			expectActor: "job",
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			out := activitymap.Normalize(tc.event, tc.opts...)
			if out.ActorID != tc.expectActor {
				t.Fatalf("expected actor_id %q, got %q", tc.expectActor, out.ActorID)
			}
			if out.ObjectID != tc.expectID {
				t.Fatalf("expected object_id %q, got %q", tc.expectID, out.ObjectID)
			}
		})
	}
}

func TestSink(t *testing.T) {
	t.Parallel()

	var got []activitymap.Normalized
	sink := activitymap.Sink(func(_ context.Context, n activitymap.Normalized) error {
		got = append(got, n)
		return nil
	}, activitymap.WithDefaultChannel("web"))

	if err := sink.Record(context.Background(), portal.ActivityEvent{EventType: portal.ActivityEventLogout}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 1 || got[0].Channel != "web" || got[0].Verb != string(portal.ActivityEventLogout) {
		t.Fatalf("unexpected records %+v", got)
	}

	if err := activitymap.Sink(nil).Record(context.Background(), portal.ActivityEvent{}); err != nil {
		t.Fatalf("nil consumer must be a no-op, got %v", err)
	}
}
