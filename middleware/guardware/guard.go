package guardware

import (
	"context"
	"net/http"

	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-router"
)

const (
	DefaultRouteKey = "route"
	DefaultTitleKey = "page_title"
	DefaultStoreKey = "token_store"
)

// Context is the subset of router.Context the guard needs
type Context interface {
	CookieJar
	Context() context.Context
	Method() string
	OriginalURL() string
	Redirect(location string, status ...int) error
	Locals(key any, value ...any) any
}

type Config struct {
	// Guard applies the navigation rules. Required.
	Guard *portal.Guard
	// Route is the descriptor this middleware protects. A nil route is
	// treated as public.
	Route *portal.Route
	// Filter skips the guard when it returns true
	Filter func(Context) bool
	// StoreFactory builds the token store of the request. Defaults to a
	// CookieTokenStore named TokenKey.
	StoreFactory     func(Context) portal.TokenStore
	TokenKey         string
	RejectedRouteKey string
	InsecureCookies  bool
	RouteKey         string
	TitleKey         string
	StoreKey         string
}

// New returns a middleware that guards navigation to cfg.Route.
// Rejected navigations are redirected with 302 for GET and 303 otherwise.
func New(config ...Config) router.MiddlewareFunc {
	cfg := GetDefaultConfig(config...)
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			return cfg.Handle(ctx, func() error {
				return next(ctx)
			})
		}
	}
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.Guard == nil {
		panic("PORTAL: guard middleware configuration: Guard is required.")
	}

	if cfg.TokenKey == "" {
		cfg.TokenKey = DefaultTokenKey
	}

	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = DefaultRejectedRouteKey
	}

	if cfg.RouteKey == "" {
		cfg.RouteKey = DefaultRouteKey
	}

	if cfg.TitleKey == "" {
		cfg.TitleKey = DefaultTitleKey
	}

	if cfg.StoreKey == "" {
		cfg.StoreKey = DefaultStoreKey
	}

	if cfg.StoreFactory == nil {
		tokenKey := cfg.TokenKey
		secure := !cfg.InsecureCookies
		cfg.StoreFactory = func(ctx Context) portal.TokenStore {
			return NewCookieTokenStore(ctx, tokenKey).WithSecure(secure)
		}
	}

	return cfg
}

// Handle evaluates the guard for one request and either redirects or
// calls next with the route locals set.
func (cfg Config) Handle(ctx Context, next func() error) error {
	if cfg.Filter != nil && cfg.Filter(ctx) {
		return next()
	}

	stdCtx := ctx.Context()
	path := ctx.OriginalURL()
	store := cfg.StoreFactory(ctx)

	decision := cfg.Guard.Evaluate(stdCtx, cfg.Route, path, store)
	if !decision.Allowed() {
		if decision.Rule == portal.GuardRuleAuthRequired {
			RememberRoute(ctx, cfg.RejectedRouteKey, path, !cfg.InsecureCookies)
		}
		return ctx.Redirect(decision.Redirect, RedirectStatus(ctx.Method()))
	}

	nav := cfg.Guard.AfterNavigate(stdCtx, cfg.Route, path)

	routeName := ""
	if cfg.Route != nil {
		routeName = cfg.Route.Name()
	}
	ctx.Locals(cfg.RouteKey, routeName)
	ctx.Locals(cfg.TitleKey, nav.Title)
	ctx.Locals(cfg.StoreKey, store)

	return next()
}

// RedirectStatus keeps GET redirects at 302 and turns other methods into 303
func RedirectStatus(method string) int {
	if method == string(router.GET) || method == http.MethodHead {
		return http.StatusFound
	}
	return http.StatusSeeOther
}

// StoreFromContext returns the token store the guard bound to the request
func StoreFromContext(ctx Context, key ...string) (portal.TokenStore, bool) {
	k := DefaultStoreKey
	if len(key) > 0 && key[0] != "" {
		k = key[0]
	}
	store, ok := ctx.Locals(k).(portal.TokenStore)
	return store, ok
}
