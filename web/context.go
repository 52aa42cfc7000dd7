package web

import (
	"context"
	"sync"

	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/apiclient"
	"github.com/goliatone/go-portal/middleware/guardware"
	"github.com/goliatone/go-router"
)

// Context is the part of router.Context the controllers use
type Context interface {
	guardware.Context
	Render(name string, bind any, layout ...string) error
	Bind(any) error
	Param(key string, defaultValue ...string) string
	Status(code int) router.Context
}

// Handler serves one route
type Handler func(ctx Context) error

func (h Handler) handlerFunc() router.HandlerFunc {
	return func(ctx router.Context) error {
		return h(ctx)
	}
}

// redirectNavigator records the navigation requested by the api client
// so the controller can answer with a redirect.
type redirectNavigator struct {
	mu     sync.Mutex
	target string
}

func (n *redirectNavigator) Navigate(_ context.Context, path string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.target = path
	return nil
}

func (n *redirectNavigator) Target() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.target
}

type session struct {
	client    *apiclient.Client
	store     portal.TokenStore
	navigator *redirectNavigator
}

type sessionKey struct{}

func withSession(ctx context.Context, s *session) context.Context {
	return context.WithValue(ctx, sessionKey{}, s)
}

// sessionFrom returns the session of the request executing a modal action
func sessionFrom(ctx context.Context) (*session, bool) {
	s, ok := ctx.Value(sessionKey{}).(*session)
	return s, ok && s != nil
}
