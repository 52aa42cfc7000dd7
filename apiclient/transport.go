package apiclient

import (
	"context"
	"net/http"
	"strings"

	"github.com/goliatone/go-portal"
)

// Transport injects the session bearer token into requests to the api
// host and ends the session when the api answers 401. Redirects that
// leave the api host travel without the token.
type Transport struct {
	Base http.RoundTripper
	// Host limits the token to one host:port. Empty sends it everywhere.
	Host         string
	Store        portal.TokenStore
	Navigator    portal.Navigator
	LoginPath    string
	Logger       portal.Logger
	Metrics      portal.Metrics
	ActivitySink portal.ActivitySink
}

// RoundTrip satisfies http.RoundTripper
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	own := t.owns(req)

	if own && t.Store != nil {
		token, err := t.Store.Token(ctx)
		if err != nil {
			t.logger().Error("api transport: failed to read session token: %v", err)
		}
		if token != "" {
			req = req.Clone(ctx)
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	resp, err := t.base().RoundTrip(req)
	if err != nil {
		return nil, err
	}

	if own && resp.StatusCode == http.StatusUnauthorized {
		t.endSession(ctx, req)
	}

	return resp, nil
}

func (t *Transport) owns(req *http.Request) bool {
	return t.Host == "" || strings.EqualFold(req.URL.Host, t.Host)
}

func (t *Transport) endSession(ctx context.Context, req *http.Request) {
	if t.Store != nil {
		if err := t.Store.ClearToken(ctx); err != nil {
			t.logger().Error("api transport: failed to clear session token: %v", err)
		} else {
			portal.NormalizeMetrics(t.Metrics).SessionCleared("apiclient")
		}
	}

	loginPath := t.loginPath()
	_ = portal.NormalizeActivitySink(t.ActivitySink).Record(ctx, portal.ActivityEvent{
		EventType:  portal.ActivityEventUpstreamRejected,
		Path:       req.URL.Path,
		Redirect:   loginPath,
		Metadata:   map[string]any{"method": req.Method},
		OccurredAt: now(),
	})

	t.navigate(ctx, loginPath)
}

func (t *Transport) navigate(ctx context.Context, path string) {
	if t.Navigator == nil {
		return
	}

	defer func() {
		if r := recover(); r != nil {
			t.logger().Debug("api transport: navigation to %s panicked: %v", path, r)
		}
	}()

	if err := t.Navigator.Navigate(ctx, path); err != nil {
		t.logger().Debug("api transport: navigation to %s failed: %v", path, err)
	}
}

func (t *Transport) base() http.RoundTripper {
	if t.Base == nil {
		return http.DefaultTransport
	}
	return t.Base
}

func (t *Transport) loginPath() string {
	if t.LoginPath == "" {
		return DefaultLoginPath
	}
	return t.LoginPath
}

func (t *Transport) logger() portal.Logger {
	if t.Logger == nil {
		return portal.DefaultLogger()
	}
	return t.Logger
}
