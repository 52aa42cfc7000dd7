package portal

import (
	"encoding/json"
	"math"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenShape describes how much of a session token could be inspected
type TokenShape string

const (
	TokenShapeEmpty       TokenShape = "empty"
	TokenShapeOpaque      TokenShape = "opaque"
	TokenShapeUndecodable TokenShape = "undecodable"
	TokenShapeJWT         TokenShape = "jwt"
)

// TokenInfo is the result of inspecting a session token
type TokenInfo struct {
	Shape     TokenShape `json:"shape"`
	ExpiresAt *time.Time `json:"expires_at,omitempty"`
	Subject   string     `json:"subject,omitempty"`
	Usable    bool       `json:"usable"`
	Err       error      `json:"-"`
}

// TokenValidator decides whether a session token is worth sending.
//
// Signatures are never verified. A token that cannot be inspected is
// reported as usable: the upstream API rejects bad tokens with a 401,
// which the api client turns into a logout.
type TokenValidator struct {
	now    func() time.Time
	parser *jwt.Parser
}

// NewTokenValidator returns a validator using the wall clock
func NewTokenValidator() *TokenValidator {
	return &TokenValidator{
		now:    time.Now,
		parser: jwt.NewParser(),
	}
}

// WithClock replaces the time source, mostly for tests
func (v *TokenValidator) WithClock(now func() time.Time) *TokenValidator {
	if now != nil {
		v.now = now
	}
	return v
}

// Usable reports whether token can be used for authenticated navigation
func (v *TokenValidator) Usable(token string) bool {
	return v.Inspect(token).Usable
}

// Inspect decodes the payload segment of token without verifying it
func (v *TokenValidator) Inspect(token string) TokenInfo {
	if token == "" {
		return TokenInfo{Shape: TokenShapeEmpty}
	}

	parts := strings.Split(token, ".")
	if len(parts) != 3 {
		return TokenInfo{Shape: TokenShapeOpaque, Usable: true}
	}

	payload, err := v.parser.DecodeSegment(parts[1])
	if err != nil {
		return TokenInfo{Shape: TokenShapeUndecodable, Usable: true, Err: err}
	}

	claims := jwt.MapClaims{}
	if err := json.Unmarshal(payload, &claims); err != nil {
		return TokenInfo{Shape: TokenShapeUndecodable, Usable: true, Err: err}
	}

	info := TokenInfo{Shape: TokenShapeJWT, Usable: true}
	if sub, err := claims.GetSubject(); err == nil {
		info.Subject = sub
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		// exp of the wrong type is treated like an unreadable payload
		info.Shape = TokenShapeUndecodable
		info.Err = err
		return info
	}

	if exp == nil {
		return info
	}

	seconds, ok := rawExpiry(claims)
	if !ok {
		seconds = float64(exp.Unix())
	}
	whole, frac := math.Modf(seconds)
	expiresAt := time.Unix(int64(whole), int64(frac*1e9))
	info.ExpiresAt = &expiresAt
	info.Usable = seconds*1000 > float64(v.now().UnixMilli())

	return info
}

// rawExpiry reads exp as sent; jwt.NumericDate drops the fraction
func rawExpiry(claims jwt.MapClaims) (float64, bool) {
	switch exp := claims["exp"].(type) {
	case float64:
		return exp, true
	case json.Number:
		f, err := exp.Float64()
		return f, err == nil
	}
	return 0, false
}
