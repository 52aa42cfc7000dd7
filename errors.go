package portal

import (
	"errors"

	goerrors "github.com/goliatone/go-errors"
)

// ErrDuplicateRoute is returned when two routes share a name
var ErrDuplicateRoute = errors.New("duplicate route name")

// ErrSessionExpired is the rich error surfaced when the guard rejects a navigation
var ErrSessionExpired = goerrors.New("session token missing or expired", goerrors.CategoryAuth).
	WithCode(goerrors.CodeUnauthorized).
	WithTextCode("SESSION_EXPIRED")

// ErrMaintenance is the rich error surfaced while maintenance mode is active
var ErrMaintenance = goerrors.New("site under maintenance", goerrors.CategoryOperation).
	WithTextCode("MAINTENANCE")

// IsSessionExpired reports whether err carries the session expired text code.
func IsSessionExpired(err error) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode == ErrSessionExpired.TextCode
	}
	return false
}
