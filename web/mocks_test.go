package web_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/apiclient"
	"github.com/goliatone/go-portal/web"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/require"
)

// MockContext records what the controllers do with a request
type MockContext struct {
	CookiesM map[string]string
	LocalsM  map[any]any
	Params   map[string]string
	Body     any
	Set      []*router.Cookie

	Rendered   string
	RenderBind map[string]any
	Layout     []string
	Location   string
	Code       int
	StatusCode int

	method string
	url    string
}

func newMockContext(method, url string) *MockContext {
	return &MockContext{
		CookiesM: map[string]string{},
		LocalsM:  map[any]any{},
		Params:   map[string]string{},
		method:   method,
		url:      url,
	}
}

func (m *MockContext) Context() context.Context { return context.Background() }

func (m *MockContext) Method() string { return m.method }

func (m *MockContext) OriginalURL() string { return m.url }

func (m *MockContext) Cookies(key string, defaultValue ...string) string {
	if v, ok := m.CookiesM[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *MockContext) Cookie(cookie *router.Cookie) {
	m.Set = append(m.Set, cookie)
	m.CookiesM[cookie.Name] = cookie.Value
}

func (m *MockContext) Redirect(location string, status ...int) error {
	m.Location = location
	if len(status) > 0 {
		m.Code = status[0]
	}
	return nil
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.LocalsM[key] = value[0]
		return value[0]
	}
	return m.LocalsM[key]
}

func (m *MockContext) Render(name string, bind any, layout ...string) error {
	m.Rendered = name
	m.RenderBind, _ = bind.(map[string]any)
	m.Layout = layout
	return nil
}

func (m *MockContext) Bind(out any) error {
	raw, err := json.Marshal(m.Body)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, out)
}

func (m *MockContext) Param(key string, defaultValue ...string) string {
	if v, ok := m.Params[key]; ok {
		return v
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

func (m *MockContext) Status(code int) router.Context {
	m.StatusCode = code
	return nil
}

func (m *MockContext) cookie(name string) *router.Cookie {
	for i := len(m.Set) - 1; i >= 0; i-- {
		if m.Set[i].Name == name {
			return m.Set[i]
		}
	}
	return nil
}

type staticConfig struct {
	maintenance bool
}

func (s staticConfig) GetAppName() string              { return "Acme" }
func (s staticConfig) GetAPIBaseURL() string           { return "" }
func (s staticConfig) GetMaintenance() bool            { return s.maintenance }
func (s staticConfig) GetTokenKey() string             { return "token" }
func (s staticConfig) GetRejectedRouteKey() string     { return "rejected_route" }
func (s staticConfig) GetRejectedRouteDefault() string { return "/admin/dashboard" }
func (s staticConfig) GetVisitorKey() string           { return "visitor_id" }
func (s staticConfig) GetInsecureCookies() bool        { return true }
func (s staticConfig) GetCookieDuration() time.Duration {
	return time.Hour
}
func (s staticConfig) GetDebug() bool { return false }

type apiCall struct {
	Method string
	Path   string
	Auth   string
	Body   map[string]any
}

// fakeAPI answers "METHOD /path" keys and records every call
type fakeAPI struct {
	mu       sync.Mutex
	calls    []apiCall
	handlers map[string]http.HandlerFunc
	server   *httptest.Server
}

func newFakeAPI(t *testing.T) *fakeAPI {
	t.Helper()
	api := &fakeAPI{handlers: map[string]http.HandlerFunc{}}
	api.server = httptest.NewServer(http.HandlerFunc(api.serve))
	t.Cleanup(api.server.Close)
	return api
}

func (a *fakeAPI) serve(w http.ResponseWriter, r *http.Request) {
	call := apiCall{Method: r.Method, Path: r.URL.Path, Auth: r.Header.Get("Authorization")}
	if raw, _ := io.ReadAll(r.Body); len(raw) > 0 {
		_ = json.Unmarshal(raw, &call.Body)
	}

	a.mu.Lock()
	a.calls = append(a.calls, call)
	h, ok := a.handlers[r.Method+" "+r.URL.Path]
	a.mu.Unlock()

	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"message": "not found"})
		return
	}
	h(w, r)
}

func (a *fakeAPI) on(method, path string, status int, body any) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.handlers[method+" "+path] = func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, status, body)
	}
}

func (a *fakeAPI) Calls() []apiCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]apiCall, len(a.calls))
	copy(out, a.calls)
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type recordingSink struct {
	mu     sync.Mutex
	events []portal.ActivityEvent
}

func (s *recordingSink) Record(_ context.Context, event portal.ActivityEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, event)
	return nil
}

func (s *recordingSink) types() []portal.ActivityEventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []portal.ActivityEventType
	for _, e := range s.events {
		out = append(out, e.EventType)
	}
	return out
}

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

type harness struct {
	api        *fakeAPI
	controller *web.Controller
	sink       *recordingSink
}

func newHarness(t *testing.T, cfg staticConfig, opts ...web.ControllerOption) *harness {
	t.Helper()

	routes, err := portal.NewRouteTable(portal.DefaultRoutes()...)
	require.NoError(t, err)

	api := newFakeAPI(t)
	client, err := apiclient.New(apiclient.Config{
		BaseURL: api.server.URL,
		Logger:  quietLogger{},
	})
	require.NoError(t, err)

	sink := &recordingSink{}
	guard := portal.NewGuard(routes, cfg).WithLogger(quietLogger{})
	opts = append([]web.ControllerOption{
		web.WithConfig(cfg),
		web.WithLogger(quietLogger{}),
		web.WithActivitySink(sink),
	}, opts...)
	controller := web.NewController(routes, guard, client, opts...)

	return &harness{api: api, controller: controller, sink: sink}
}

// dispatch runs a handler behind the controller middlewares
func (h *harness) dispatch(t *testing.T, name string, handler web.Handler, ctx *MockContext) error {
	t.Helper()
	route, ok := h.controller.Routes.Lookup(name)
	require.True(t, ok, name)

	return h.controller.Handle(ctx, route, func() error {
		return handler(ctx)
	})
}

func validToken(t *testing.T) string {
	t.Helper()
	return signToken(t, time.Now().Add(time.Hour))
}

func signToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return token
}
