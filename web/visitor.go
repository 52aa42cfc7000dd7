package web

import (
	"time"

	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/middleware/guardware"
	"github.com/goliatone/go-portal/notify"
	"github.com/goliatone/go-router"
	"github.com/google/uuid"
)

const (
	DefaultVisitorKey       = "visitor_id"
	DefaultVisitorIDKey     = "visitor_id"
	DefaultNotificationsKey = "notifications"
	visitorCookieDuration   = 30 * 24 * time.Hour
)

// VisitorConfig binds a notification store to every visitor
type VisitorConfig struct {
	Registry         *notify.Registry
	CookieName       string
	NotificationsKey string
	InsecureCookies  bool
}

// Visitor returns a middleware that keeps a visitor id cookie and puts
// a handle on the visitor's notification store in the request locals.
// The store itself is only created once a notification is written.
func Visitor(config VisitorConfig) router.MiddlewareFunc {
	cfg := config.withDefaults()
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			return cfg.Handle(ctx, func() error {
				return next(ctx)
			})
		}
	}
}

func (cfg VisitorConfig) withDefaults() VisitorConfig {
	if cfg.Registry == nil {
		cfg.Registry = notify.NewRegistry(nil)
	}
	if cfg.CookieName == "" {
		cfg.CookieName = DefaultVisitorKey
	}
	if cfg.NotificationsKey == "" {
		cfg.NotificationsKey = DefaultNotificationsKey
	}
	return cfg
}

// Handle resolves the visitor of the request and calls next
func (cfg VisitorConfig) Handle(ctx guardware.Context, next func() error) error {
	cfg = cfg.withDefaults()

	id := ctx.Cookies(cfg.CookieName)
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
		ctx.Cookie(&router.Cookie{
			Name:     cfg.CookieName,
			Value:    id,
			Path:     "/",
			Expires:  time.Now().Add(visitorCookieDuration),
			HTTPOnly: true,
			Secure:   !cfg.InsecureCookies,
			SameSite: "Lax",
		})
	}

	ctx.Locals(DefaultVisitorIDKey, id)
	ctx.Locals(cfg.NotificationsKey, cfg.Registry.Lazy(id))
	return next()
}

// VisitorID returns the id the visitor middleware resolved
func VisitorID(ctx guardware.Context) string {
	id, _ := ctx.Locals(DefaultVisitorIDKey).(string)
	return id
}

// VisitorStores keeps tokens server side, one store per visitor id.
// Requests without a visitor id get an empty throwaway store.
func VisitorStores(lookup func(visitorID string) portal.TokenStore) func(guardware.Context) portal.TokenStore {
	return func(ctx guardware.Context) portal.TokenStore {
		id := VisitorID(ctx)
		if id == "" {
			return portal.NewMemoryTokenStore("")
		}
		return lookup(id)
	}
}

// NotificationsFromContext returns the visitor's notification store,
// creating it when the request only carried a handle
func NotificationsFromContext(ctx guardware.Context, key ...string) (*notify.Store, bool) {
	switch v := ctx.Locals(notificationsKey(key...)).(type) {
	case *notify.Lazy:
		if v == nil {
			return nil, false
		}
		return v.Store(), true
	case *notify.Store:
		return v, v != nil
	default:
		return nil, false
	}
}

// NotificationStateFromContext reads the visitor's notifications without
// creating a store
func NotificationStateFromContext(ctx guardware.Context, key ...string) notify.State {
	switch v := ctx.Locals(notificationsKey(key...)).(type) {
	case *notify.Lazy:
		if v != nil {
			return v.Snapshot()
		}
	case *notify.Store:
		if v != nil {
			return v.Snapshot()
		}
	}
	return notify.State{}
}

func notificationsKey(key ...string) string {
	if len(key) > 0 && key[0] != "" {
		return key[0]
	}
	return DefaultNotificationsKey
}
