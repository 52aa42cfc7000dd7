package portal

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Error(format string, args ...any)
}

// TokenStore holds the session token of a single visitor.
// An absent token is reported as an empty string and a nil error.
type TokenStore interface {
	Token(ctx context.Context) (string, error)
	SetToken(ctx context.Context, token string) error
	ClearToken(ctx context.Context) error
}

// Navigator forces a full page navigation to the given path.
type Navigator interface {
	Navigate(ctx context.Context, path string) error
}

// NavigatorFunc adapts a function into a Navigator.
type NavigatorFunc func(ctx context.Context, path string) error

// Navigate satisfies the Navigator interface.
func (f NavigatorFunc) Navigate(ctx context.Context, path string) error {
	if f == nil {
		return nil
	}
	return f(ctx, path)
}

// Config holds portal options
type Config interface {
	GetAppName() string
	GetAPIBaseURL() string
	GetMaintenance() bool
	GetTokenKey() string
	GetRejectedRouteKey() string
	GetRejectedRouteDefault() string
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] PORTAL "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] PORTAL "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] PORTAL "+newline(format), args...)
}

// DefaultLogger returns the printf based logger used when none is configured.
func DefaultLogger() Logger {
	return defLogger{}
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
