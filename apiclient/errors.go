package apiclient

import (
	"errors"
	"fmt"
	"net/http"

	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeUpstreamUnauthorized = "upstream_unauthorized"
	TextCodeUpstreamForbidden    = "upstream_forbidden"
	TextCodeUpstreamNotFound     = "upstream_not_found"
	TextCodeUpstreamRejected     = "upstream_rejected"
	TextCodeUpstreamFailed       = "upstream_failed"
)

// ErrUpstreamUnauthorized is returned when the api answers 401
var ErrUpstreamUnauthorized = goerrors.New("upstream rejected the session token", goerrors.CategoryAuth).
	WithTextCode(TextCodeUpstreamUnauthorized).
	WithCode(goerrors.CodeUnauthorized)

// ErrUpstreamForbidden is returned when the api answers 403
var ErrUpstreamForbidden = goerrors.New("upstream denied access", goerrors.CategoryAuthz).
	WithTextCode(TextCodeUpstreamForbidden).
	WithCode(goerrors.CodeForbidden)

// ErrUpstreamNotFound is returned when the api answers 404
var ErrUpstreamNotFound = goerrors.New("upstream resource not found", goerrors.CategoryNotFound).
	WithTextCode(TextCodeUpstreamNotFound).
	WithCode(goerrors.CodeNotFound)

// ErrUpstreamRejected is returned for any other 4xx answer
var ErrUpstreamRejected = goerrors.New("upstream rejected the request", goerrors.CategoryBadInput).
	WithTextCode(TextCodeUpstreamRejected).
	WithCode(goerrors.CodeBadRequest)

// ErrUpstreamFailed is returned for 5xx answers and transport failures
var ErrUpstreamFailed = goerrors.New("upstream request failed", goerrors.CategoryOperation).
	WithTextCode(TextCodeUpstreamFailed).
	WithCode(goerrors.CodeInternal)

// Error captures a non 2xx api response.
type Error struct {
	Method     string
	URL        string
	StatusCode int
	Message    string
	Body       string
}

func (e *Error) Error() string {
	if e == nil {
		return "api error"
	}
	msg := e.Message
	if msg == "" {
		msg = http.StatusText(e.StatusCode)
	}
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.URL, e.StatusCode, msg)
}

func (e *Error) Metadata() map[string]any {
	if e == nil {
		return nil
	}

	meta := map[string]any{
		"method": e.Method,
		"url":    e.URL,
		"status": e.StatusCode,
	}
	if e.Message != "" {
		meta["message"] = e.Message
	}
	if e.Body != "" {
		meta["body"] = e.Body
	}
	return meta
}

// IsUnauthorized reports whether err comes from a 401 api response
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the api status carried by err or 0
func StatusCode(err error) int {
	if apiErr, ok := AsError(err); ok {
		return apiErr.StatusCode
	}
	return 0
}

// AsError finds the *Error carried by err, looking through the rich
// error source chain.
func AsError(err error) (*Error, bool) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr != nil {
		return apiErr, true
	}
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.Source != nil && richErr.Source != err {
		return AsError(richErr.Source)
	}
	return nil, false
}

func baseErrorFor(status int) *goerrors.Error {
	switch {
	case status == http.StatusUnauthorized:
		return ErrUpstreamUnauthorized
	case status == http.StatusForbidden:
		return ErrUpstreamForbidden
	case status == http.StatusNotFound:
		return ErrUpstreamNotFound
	case status >= 400 && status < 500:
		return ErrUpstreamRejected
	default:
		return ErrUpstreamFailed
	}
}

func wrapAPIError(apiErr *Error) error {
	base := baseErrorFor(apiErr.StatusCode)

	clone := base.Clone()
	if clone == nil {
		clone = base
	}
	clone.Source = apiErr
	clone.WithMetadata(apiErr.Metadata())
	return clone
}
