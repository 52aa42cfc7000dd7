package guardware_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/middleware/guardware"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockContext mocks the parts of router.Context used by the guard
type MockContext struct {
	mock.Mock
	CookiesM map[string]string
	LocalsM  map[any]any
	Set      []*router.Cookie
	method   string
	url      string
}

func newMockContext(method, url string) *MockContext {
	return &MockContext{
		CookiesM: map[string]string{},
		LocalsM:  map[any]any{},
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
	args := m.Called(location, status[0])
	return args.Error(0)
}

func (m *MockContext) Locals(key any, value ...any) any {
	if len(value) > 0 {
		m.LocalsM[key] = value[0]
		return value[0]
	}
	return m.LocalsM[key]
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

func (c staticConfig) GetAppName() string              { return "Acme Portal" }
func (c staticConfig) GetAPIBaseURL() string           { return "http://localhost:3000/api" }
func (c staticConfig) GetMaintenance() bool            { return c.maintenance }
func (c staticConfig) GetTokenKey() string             { return guardware.DefaultTokenKey }
func (c staticConfig) GetRejectedRouteKey() string     { return guardware.DefaultRejectedRouteKey }
func (c staticConfig) GetRejectedRouteDefault() string { return "/admin/dashboard" }

func newGuard(t *testing.T, maintenance bool) (*portal.Guard, *portal.RouteTable) {
	t.Helper()
	routes, err := portal.NewRouteTable(portal.DefaultRoutes()...)
	require.NoError(t, err)
	return portal.NewGuard(routes, staticConfig{maintenance: maintenance}), routes
}

func route(t *testing.T, routes *portal.RouteTable, name string) *portal.Route {
	t.Helper()
	r, ok := routes.Lookup(name)
	require.True(t, ok, name)
	return r
}

func token(t *testing.T, exp time.Time) string {
	t.Helper()
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "admin",
		"exp": exp.Unix(),
	}).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func TestGuardware_AllowsPublicRoute(t *testing.T) {
	guard, routes := newGuard(t, false)
	cfg := guardware.GetDefaultConfig(guardware.Config{
		Guard: guard,
		Route: route(t, routes, portal.RouteServices),
	})

	ctx := newMockContext(http.MethodGet, "/services")
	called := false
	err := cfg.Handle(ctx, func() error {
		called = true
		return nil
	})

	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, portal.RouteServices, ctx.LocalsM[guardware.DefaultRouteKey])
	assert.Equal(t, "Services", ctx.LocalsM[guardware.DefaultTitleKey])

	store, ok := guardware.StoreFromContext(ctx)
	require.True(t, ok)
	assert.IsType(t, &guardware.CookieTokenStore{}, store)
	ctx.AssertNotCalled(t, "Redirect", mock.Anything, mock.Anything)
}

func TestGuardware_RedirectsExpiredSessionToLogin(t *testing.T) {
	guard, routes := newGuard(t, false)
	cfg := guardware.GetDefaultConfig(guardware.Config{
		Guard: guard,
		Route: route(t, routes, portal.RouteArticleEdit),
	})

	tests := []struct {
		method string
		status int
	}{
		{method: http.MethodGet, status: http.StatusFound},
		{method: http.MethodPost, status: http.StatusSeeOther},
	}

	for _, tt := range tests {
		t.Run(tt.method, func(t *testing.T) {
			ctx := newMockContext(tt.method, "/admin/artikels/edit/7")
			ctx.CookiesM[guardware.DefaultTokenKey] = token(t, time.Now().Add(-time.Hour))
			ctx.On("Redirect", "/auth/login", tt.status).Return(nil)

			err := cfg.Handle(ctx, func() error {
				t.Fatal("next must not run")
				return nil
			})

			require.NoError(t, err)
			ctx.AssertExpectations(t)

			cleared := ctx.cookie(guardware.DefaultTokenKey)
			require.NotNil(t, cleared)
			assert.Empty(t, cleared.Value)
			assert.True(t, cleared.Expires.Before(time.Now()))

			remembered := ctx.cookie(guardware.DefaultRejectedRouteKey)
			require.NotNil(t, remembered)
			assert.Equal(t, "/admin/artikels/edit/7", remembered.Value)
			assert.True(t, remembered.HTTPOnly)
		})
	}
}

func TestGuardware_MaintenanceWins(t *testing.T) {
	guard, routes := newGuard(t, true)
	cfg := guardware.GetDefaultConfig(guardware.Config{
		Guard: guard,
		Route: route(t, routes, portal.RouteDashboard),
	})

	ctx := newMockContext(http.MethodGet, "/admin/dashboard")
	ctx.On("Redirect", "/maintenance", http.StatusFound).Return(nil)

	require.NoError(t, cfg.Handle(ctx, func() error { return nil }))
	ctx.AssertExpectations(t)
	assert.Nil(t, ctx.cookie(guardware.DefaultRejectedRouteKey), "maintenance does not remember the route")
}

func TestGuardware_LoginWithSessionGoesToDashboard(t *testing.T) {
	guard, routes := newGuard(t, false)
	cfg := guardware.GetDefaultConfig(guardware.Config{
		Guard: guard,
		Route: route(t, routes, portal.RouteLogin),
	})

	ctx := newMockContext(http.MethodGet, "/auth/login")
	ctx.CookiesM[guardware.DefaultTokenKey] = token(t, time.Now().Add(time.Hour))
	ctx.On("Redirect", "/admin/dashboard", http.StatusFound).Return(nil)

	require.NoError(t, cfg.Handle(ctx, func() error { return nil }))
	ctx.AssertExpectations(t)
}

func TestGuardware_Filter(t *testing.T) {
	guard, routes := newGuard(t, true)
	cfg := guardware.GetDefaultConfig(guardware.Config{
		Guard:  guard,
		Route:  route(t, routes, portal.RouteHome),
		Filter: func(ctx guardware.Context) bool { return ctx.OriginalURL() == "/healthz" },
	})

	ctx := newMockContext(http.MethodGet, "/healthz")
	called := false
	require.NoError(t, cfg.Handle(ctx, func() error {
		called = true
		return nil
	}))
	assert.True(t, called)
}

func TestGetDefaultConfig_RequiresGuard(t *testing.T) {
	assert.Panics(t, func() {
		guardware.GetDefaultConfig()
	})
}

func TestRedirectStatus(t *testing.T) {
	assert.Equal(t, http.StatusFound, guardware.RedirectStatus(http.MethodGet))
	assert.Equal(t, http.StatusSeeOther, guardware.RedirectStatus(http.MethodPost))
	assert.Equal(t, http.StatusSeeOther, guardware.RedirectStatus(http.MethodDelete))
}
