package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal"
	"gopkg.in/yaml.v3"
)

const EnvPrefix = "PORTAL_"

// Token store backends. Cookie keeps the token in the browser; the
// others keep it server side keyed by visitor id.
const (
	TokenStoreCookie = "cookie"
	TokenStoreMemory = "memory"
	TokenStoreSQLite = "sqlite"
	TokenStoreRedis  = "redis"
)

var _ portal.Config = &BaseConfig{}

// BaseConfig holds every portal option
type BaseConfig struct {
	AppName              string        `yaml:"app_name" json:"app_name"`
	APIBaseURL           string        `yaml:"api_base_url" json:"api_base_url"`
	APITimeout           time.Duration `yaml:"api_timeout" json:"api_timeout"`
	Maintenance          bool          `yaml:"maintenance" json:"maintenance"`
	Listen               string        `yaml:"listen" json:"listen"`
	AdminListen          string        `yaml:"admin_listen" json:"admin_listen"`
	TokenKey             string        `yaml:"token_key" json:"token_key"`
	RejectedRouteKey     string        `yaml:"rejected_route_key" json:"rejected_route_key"`
	RejectedRouteDefault string        `yaml:"rejected_route_default" json:"rejected_route_default"`
	VisitorKey           string        `yaml:"visitor_key" json:"visitor_key"`
	CookieDuration       time.Duration `yaml:"cookie_duration" json:"cookie_duration"`
	InsecureCookies      bool          `yaml:"insecure_cookies" json:"insecure_cookies"`
	TokenStore           string        `yaml:"token_store" json:"token_store"`
	RedisAddr            string        `yaml:"redis_addr" json:"redis_addr"`
	SQLiteDSN            string        `yaml:"sqlite_dsn" json:"sqlite_dsn"`
	FormTokens           bool          `yaml:"form_tokens" json:"form_tokens"`
	FormTokenKey         string        `yaml:"form_token_key" json:"-"`
	Debug                bool          `yaml:"debug" json:"debug"`
}

// Defaults returns the configuration used when nothing is set
func Defaults() *BaseConfig {
	return &BaseConfig{
		AppName:              portal.DefaultAppName,
		APIBaseURL:           "http://localhost:3000/api",
		APITimeout:           10 * time.Second,
		Listen:               ":8080",
		AdminListen:          ":9090",
		TokenKey:             "token",
		RejectedRouteKey:     "rejected_route",
		RejectedRouteDefault: "/admin/dashboard",
		VisitorKey:           "visitor_id",
		CookieDuration:       24 * time.Hour,
		TokenStore:           TokenStoreCookie,
		SQLiteDSN:            "file:portal.db?cache=shared",
		FormTokens:           true,
	}
}

// LookupFunc resolves an environment variable
type LookupFunc func(key string) (string, bool)

// Load reads the optional YAML file at path, applies PORTAL_* environment
// overrides and validates the result. It runs once at start up.
func Load(path string, lookup LookupFunc) (*BaseConfig, error) {
	cfg := Defaults()

	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "unable to read config file").
				WithMetadata(map[string]any{"path": path})
		}
		if err := cfg.Merge(raw); err != nil {
			return nil, err
		}
	}

	if lookup == nil {
		lookup = os.LookupEnv
	}
	if err := cfg.ApplyEnv(lookup); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Merge decodes a YAML document over the current values
func (c *BaseConfig) Merge(raw []byte) error {
	if err := yaml.Unmarshal(raw, c); err != nil {
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid config yaml")
	}
	return nil
}

// ApplyEnv overrides values from PORTAL_* variables
func (c *BaseConfig) ApplyEnv(lookup LookupFunc) error {
	strs := map[string]*string{
		"APP_NAME":               &c.AppName,
		"API_BASE_URL":           &c.APIBaseURL,
		"LISTEN":                 &c.Listen,
		"ADMIN_LISTEN":           &c.AdminListen,
		"TOKEN_KEY":              &c.TokenKey,
		"REJECTED_ROUTE_KEY":     &c.RejectedRouteKey,
		"REJECTED_ROUTE_DEFAULT": &c.RejectedRouteDefault,
		"TOKEN_STORE":            &c.TokenStore,
		"REDIS_ADDR":             &c.RedisAddr,
		"SQLITE_DSN":             &c.SQLiteDSN,
		"FORM_TOKEN_KEY":         &c.FormTokenKey,
	}
	for key, dst := range strs {
		if v, ok := lookup(EnvPrefix + key); ok {
			*dst = strings.TrimSpace(v)
		}
	}

	bools := map[string]*bool{
		"MAINTENANCE":      &c.Maintenance,
		"INSECURE_COOKIES": &c.InsecureCookies,
		"DEBUG":            &c.Debug,
		"FORM_TOKENS":      &c.FormTokens,
	}
	for key, dst := range bools {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		b, err := parseBool(v)
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("invalid %s%s", EnvPrefix, key))
		}
		*dst = b
	}

	durations := map[string]*time.Duration{
		"API_TIMEOUT":     &c.APITimeout,
		"COOKIE_DURATION": &c.CookieDuration,
	}
	for key, dst := range durations {
		v, ok := lookup(EnvPrefix + key)
		if !ok {
			continue
		}
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryBadInput, fmt.Sprintf("invalid %s%s", EnvPrefix, key))
		}
		*dst = d
	}

	return nil
}

func parseBool(v string) (bool, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "":
		return false, nil
	case "on", "yes":
		return true, nil
	case "off", "no":
		return false, nil
	}
	return strconv.ParseBool(strings.TrimSpace(v))
}

// Validate checks the loaded values
func (c BaseConfig) Validate() error {
	err := validation.ValidateStruct(&c,
		validation.Field(&c.AppName, validation.Required),
		validation.Field(&c.APIBaseURL, validation.Required, is.URL),
		validation.Field(&c.Listen, validation.Required),
		validation.Field(&c.TokenKey, validation.Required),
		validation.Field(&c.RejectedRouteKey, validation.Required),
		validation.Field(
			&c.RejectedRouteDefault,
			validation.Required,
			validation.By(localPath),
		),
		validation.Field(&c.VisitorKey, validation.Required),
		validation.Field(
			&c.TokenStore,
			validation.Required,
			validation.In(TokenStoreCookie, TokenStoreMemory, TokenStoreSQLite, TokenStoreRedis),
		),
		validation.Field(&c.RedisAddr, validation.By(requiredWhen(c.TokenStore == TokenStoreRedis))),
		validation.Field(&c.SQLiteDSN, validation.By(requiredWhen(c.TokenStore == TokenStoreSQLite))),
		validation.Field(&c.FormTokenKey, validation.Length(32, 0)),
	)
	if err != nil {
		return goerrors.Wrap(err, goerrors.CategoryValidation, "invalid portal configuration")
	}
	return nil
}

func localPath(value any) error {
	s, _ := value.(string)
	if !strings.HasPrefix(s, "/") || strings.HasPrefix(s, "//") {
		return errors.New("must be a local path")
	}
	return nil
}

func requiredWhen(cond bool) validation.RuleFunc {
	return func(value any) error {
		if !cond {
			return nil
		}
		if s, _ := value.(string); strings.TrimSpace(s) == "" {
			return errors.New("cannot be blank")
		}
		return nil
	}
}

func (c BaseConfig) GetAppName() string { return c.AppName }

func (c BaseConfig) GetAPIBaseURL() string { return c.APIBaseURL }

func (c BaseConfig) GetAPITimeout() time.Duration { return c.APITimeout }

func (c BaseConfig) GetMaintenance() bool { return c.Maintenance }

func (c BaseConfig) GetListen() string { return c.Listen }

func (c BaseConfig) GetAdminListen() string { return c.AdminListen }

func (c BaseConfig) GetTokenKey() string { return c.TokenKey }

func (c BaseConfig) GetRejectedRouteKey() string { return c.RejectedRouteKey }

func (c BaseConfig) GetRejectedRouteDefault() string { return c.RejectedRouteDefault }

func (c BaseConfig) GetVisitorKey() string { return c.VisitorKey }

func (c BaseConfig) GetCookieDuration() time.Duration { return c.CookieDuration }

func (c BaseConfig) GetInsecureCookies() bool { return c.InsecureCookies }

func (c BaseConfig) GetTokenStore() string { return c.TokenStore }

func (c BaseConfig) GetRedisAddr() string { return c.RedisAddr }

func (c BaseConfig) GetSQLiteDSN() string { return c.SQLiteDSN }

func (c BaseConfig) GetFormTokens() bool { return c.FormTokens }

// GetFormTokenKey returns the form token signing key, nil when unset
func (c BaseConfig) GetFormTokenKey() []byte {
	if c.FormTokenKey == "" {
		return nil
	}
	return []byte(c.FormTokenKey)
}

func (c BaseConfig) GetDebug() bool { return c.Debug }
