package guardware

import (
	"context"
	"sync"
	"time"

	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-router"
)

const (
	DefaultTokenKey         = "token"
	DefaultRejectedRouteKey = "rejected_route"
	DefaultCookieDuration   = 24 * time.Hour
	rejectedRouteDuration   = 5 * time.Minute
)

// CookieJar is the part of router.Context that reads and writes cookies
type CookieJar interface {
	Cookies(key string, defaultValue ...string) string
	Cookie(cookie *router.Cookie)
}

var _ portal.TokenStore = &CookieTokenStore{}

// CookieTokenStore keeps the session token in an HTTP only cookie.
// Writes made during a request are visible to later reads of the same
// request.
type CookieTokenStore struct {
	jar      CookieJar
	name     string
	duration time.Duration
	secure   bool

	mu      sync.Mutex
	pending *string
}

// NewCookieTokenStore binds a store to the cookies of one request
func NewCookieTokenStore(jar CookieJar, name string) *CookieTokenStore {
	if name == "" {
		name = DefaultTokenKey
	}
	return &CookieTokenStore{
		jar:      jar,
		name:     name,
		duration: DefaultCookieDuration,
		secure:   true,
	}
}

func (s *CookieTokenStore) WithDuration(d time.Duration) *CookieTokenStore {
	if d > 0 {
		s.duration = d
	}
	return s
}

func (s *CookieTokenStore) WithSecure(secure bool) *CookieTokenStore {
	s.secure = secure
	return s
}

func (s *CookieTokenStore) Token(_ context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.pending != nil {
		return *s.pending, nil
	}
	return s.jar.Cookies(s.name), nil
}

func (s *CookieTokenStore) SetToken(_ context.Context, token string) error {
	if token == "" {
		return s.ClearToken(context.Background())
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pending = &token
	s.jar.Cookie(&router.Cookie{
		Name:     s.name,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.duration),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: "Lax",
	})
	return nil
}

func (s *CookieTokenStore) ClearToken(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	empty := ""
	s.pending = &empty
	deleteCookie(s.jar, s.name, s.secure)
	return nil
}

func deleteCookie(jar CookieJar, name string, secure bool) {
	jar.Cookie(&router.Cookie{
		Name:     name,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour * (24 * 365)),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
	})
}

// RememberRoute stores the url a visitor was turned away from
func RememberRoute(jar CookieJar, key, url string, secure bool) {
	if key == "" {
		key = DefaultRejectedRouteKey
	}
	jar.Cookie(&router.Cookie{
		Name:     key,
		Value:    url,
		Path:     "/",
		Expires:  time.Now().Add(rejectedRouteDuration),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: "Lax",
	})
}

// RecallRoute returns and forgets the remembered url, or def when none
// was stored.
func RecallRoute(jar CookieJar, key, def string, secure bool) string {
	if key == "" {
		key = DefaultRejectedRouteKey
	}
	r := jar.Cookies(key)
	if r == "" {
		return def
	}
	deleteCookie(jar, key, secure)
	if !IsLocalPath(r) {
		return def
	}
	return r
}

// IsLocalPath reports whether p stays on this host
func IsLocalPath(p string) bool {
	return len(p) > 0 && p[0] == '/' && (len(p) == 1 || (p[1] != '/' && p[1] != '\\'))
}
