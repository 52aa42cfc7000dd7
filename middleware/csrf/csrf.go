package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
)

const (
	TextCodeFormTokenMissing = "form_token_missing"
	TextCodeFormTokenInvalid = "form_token_invalid"
	TextCodeFormTokenExpired = "form_token_expired"
)

var (
	ErrTokenMissing = goerrors.New("form token missing", goerrors.CategoryBadInput).
			WithTextCode(TextCodeFormTokenMissing).
			WithCode(goerrors.CodeBadRequest)
	ErrTokenMismatch = goerrors.New("form token does not match the visitor", goerrors.CategoryAuthz).
				WithTextCode(TextCodeFormTokenInvalid).
				WithCode(goerrors.CodeForbidden)
	ErrTokenExpired = goerrors.New("form token expired", goerrors.CategoryAuthz).
			WithTextCode(TextCodeFormTokenExpired).
			WithCode(goerrors.CodeForbidden)
)

const (
	// MinKeyLength is the shortest accepted signing key
	MinKeyLength = 32
	// DefaultContextKey holds the token of the request in Locals
	DefaultContextKey = "csrf_token"
	// DefaultFieldKey holds the ready to render hidden input in Locals
	DefaultFieldKey = "csrf_field"
	// FormFieldName is the form field carrying the token
	FormFieldName = "_token"
	// DefaultSubjectKey is the Locals key of the visitor id
	DefaultSubjectKey = "visitor_id"
	// DefaultExpiration bounds the age of a token
	DefaultExpiration = 12 * time.Hour
	nonceLength       = 16
)

// Context is the part of router.Context the middleware needs
type Context interface {
	Method() string
	Locals(key any, value ...any) any
	Bind(any) error
}

// Config configures the form token protection
type Config struct {
	// Key signs the tokens. A random key is generated when empty, which
	// invalidates issued tokens on restart.
	Key []byte
	// Skip bypasses the check when it returns true
	Skip func(Context) bool
	// ErrorHandler answers a rejected request. Defaults to returning the error.
	ErrorHandler func(ctx Context, err error) error

	ContextKey  string
	FieldKey    string
	SubjectKey  string
	SafeMethods []string
	Expiration  time.Duration

	now func() time.Time
}

// New returns a middleware that issues a token on every request and
// verifies it on unsafe methods.
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

	cfg.Key = secureKey(cfg.Key)

	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}

	if cfg.FieldKey == "" {
		cfg.FieldKey = DefaultFieldKey
	}

	if cfg.SubjectKey == "" {
		cfg.SubjectKey = DefaultSubjectKey
	}

	if len(cfg.SafeMethods) == 0 {
		cfg.SafeMethods = []string{"GET", "HEAD", "OPTIONS", "TRACE"}
	}

	if cfg.Expiration <= 0 {
		cfg.Expiration = DefaultExpiration
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(_ Context, err error) error {
			return err
		}
	}

	if cfg.now == nil {
		cfg.now = time.Now
	}

	return cfg
}

// Handle verifies the submitted token on unsafe methods, then stores a
// fresh token and hidden input in Locals and calls next.
func (cfg Config) Handle(ctx Context, next func() error) error {
	if cfg.Skip != nil && cfg.Skip(ctx) {
		return next()
	}

	subject := cfg.subject(ctx)

	if !slices.Contains(cfg.SafeMethods, strings.ToUpper(ctx.Method())) {
		if err := cfg.Verify(subject, cfg.submitted(ctx)); err != nil {
			return cfg.ErrorHandler(ctx, err)
		}
	}

	token, err := cfg.Issue(subject)
	if err != nil {
		return cfg.ErrorHandler(ctx, err)
	}

	ctx.Locals(cfg.ContextKey, token)
	ctx.Locals(cfg.FieldKey, fmt.Sprintf(`<input type="hidden" name="%s" value="%s">`, FormFieldName, token))

	return next()
}

// Issue signs a token for subject
func (cfg Config) Issue(subject string) (string, error) {
	nonce := make([]byte, nonceLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "unable to generate form token")
	}

	payload := fmt.Sprintf("%d:%s", cfg.now().UTC().Unix(), hex.EncodeToString(nonce))
	raw := payload + ":" + hex.EncodeToString(cfg.sign(payload, subject))
	return base64.RawURLEncoding.EncodeToString([]byte(raw)), nil
}

// Verify checks that token was issued for subject and is not too old
func (cfg Config) Verify(subject, token string) error {
	if strings.TrimSpace(token) == "" {
		return ErrTokenMissing
	}

	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 3 {
		return ErrTokenMismatch
	}

	issued, err := strconv.ParseInt(parts[0], 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(parts[2])
	if err != nil {
		return ErrTokenMismatch
	}

	expected := cfg.sign(parts[0]+":"+parts[1], subject)
	if subtle.ConstantTimeCompare(signature, expected) != 1 {
		return ErrTokenMismatch
	}

	if cfg.now().UTC().After(time.Unix(issued, 0).Add(cfg.Expiration)) {
		return ErrTokenExpired
	}

	return nil
}

func (cfg Config) sign(payload, subject string) []byte {
	mac := hmac.New(sha256.New, cfg.Key)
	mac.Write([]byte(payload))
	mac.Write([]byte{0})
	mac.Write([]byte(subject))
	return mac.Sum(nil)
}

func (cfg Config) subject(ctx Context) string {
	id, _ := ctx.Locals(cfg.SubjectKey).(string)
	return id
}

type submission struct {
	Token string `form:"_token" json:"_token" query:"_token"`
}

func (cfg Config) submitted(ctx Context) string {
	var form submission
	if err := ctx.Bind(&form); err != nil {
		return ""
	}
	return form.Token
}

func secureKey(current []byte) []byte {
	if len(current) > 0 {
		if len(current) < MinKeyLength {
			panic(fmt.Errorf("PORTAL: form token key must be at least %d bytes, got %d", MinKeyLength, len(current)))
		}
		return current
	}
	key := make([]byte, MinKeyLength)
	if _, err := io.ReadFull(rand.Reader, key); err != nil {
		panic(fmt.Errorf("PORTAL: unable to initialize form token key: %w", err))
	}
	return key
}
