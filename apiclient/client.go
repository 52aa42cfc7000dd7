package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	DefaultBaseURL    = "http://localhost:3000/api"
	DefaultLoginPath  = "/auth/login"
	DefaultTimeout    = 10 * time.Second
	DefaultTracerName = "github.com/goliatone/go-portal/apiclient"
)

const maxErrorBody = 512

var now = time.Now

// Config holds the api client options. Zero values fall back to defaults.
type Config struct {
	BaseURL      string
	LoginPath    string
	Timeout      time.Duration
	TracerName   string
	HTTPClient   *http.Client
	Logger       portal.Logger
	Metrics      portal.Metrics
	ActivitySink portal.ActivitySink
}

// Client talks JSON to the portal api. A Client without a session sends
// anonymous requests; use ForSession to bind a visitor token store.
type Client struct {
	cfg        Config
	baseURL    *url.URL
	base       http.RoundTripper
	httpClient *http.Client
	tracer     trace.Tracer
	logger     portal.Logger
	metrics    portal.Metrics
}

// New resolves the base url once and builds the client
func New(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.TracerName == "" {
		cfg.TracerName = DefaultTracerName
	}

	baseURL, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryBadInput, "invalid api base url")
	}
	if baseURL.Scheme == "" || baseURL.Host == "" {
		return nil, goerrors.New("api base url must be absolute", goerrors.CategoryBadInput).
			WithMetadata(map[string]any{"base_url": cfg.BaseURL})
	}

	var base http.RoundTripper
	if cfg.HTTPClient != nil {
		base = cfg.HTTPClient.Transport
	}

	logger := cfg.Logger
	if logger == nil {
		logger = portal.DefaultLogger()
	}

	c := &Client{
		cfg:     cfg,
		baseURL: baseURL,
		base:    base,
		tracer:  otel.Tracer(cfg.TracerName),
		logger:  logger,
		metrics: portal.NormalizeMetrics(cfg.Metrics),
	}
	c.httpClient = c.newHTTPClient(nil, nil)

	return c, nil
}

// ForSession returns a client that authenticates with the token in store
// and navigates through navigator when the api rejects it.
func (c *Client) ForSession(store portal.TokenStore, navigator portal.Navigator) *Client {
	clone := *c
	clone.httpClient = c.newHTTPClient(store, navigator)
	return &clone
}

func (c *Client) newHTTPClient(store portal.TokenStore, navigator portal.Navigator) *http.Client {
	return &http.Client{
		Timeout: c.cfg.Timeout,
		Transport: &Transport{
			Base:         c.base,
			Host:         c.baseURL.Host,
			Store:        store,
			Navigator:    navigator,
			LoginPath:    c.cfg.LoginPath,
			Logger:       c.logger,
			Metrics:      c.metrics,
			ActivitySink: c.cfg.ActivitySink,
		},
	}
}

// BaseURL returns the resolved api root
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// URL joins path to the api root, keeping any query string
func (c *Client) URL(path string) string {
	if strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return c.baseURL.String() + "/" + strings.TrimLeft(path, "/")
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPost, path, in, out)
}

func (c *Client) Put(ctx context.Context, path string, in, out any) error {
	return c.Do(ctx, http.MethodPut, path, in, out)
}

func (c *Client) Delete(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodDelete, path, nil, out)
}

// Do sends in as JSON and decodes the response into out. Non 2xx
// responses are returned as rich errors wrapping *Error.
func (c *Client) Do(ctx context.Context, method, path string, in, out any) error {
	endpoint := c.URL(path)

	ctx, span := c.tracer.Start(ctx, "portal.api "+method,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.method", method),
			attribute.String("http.url", endpoint),
		),
	)
	defer span.End()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "encode request")
			return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to encode api request")
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "build request")
		return goerrors.Wrap(err, goerrors.CategoryBadInput, "failed to build api request")
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "transport")
		c.logger.Debug("api %s %s failed: %v", method, endpoint, err)
		return goerrors.Wrap(err, goerrors.CategoryOperation, "api request failed")
	}
	defer resp.Body.Close()

	c.metrics.UpstreamResponse(method, resp.StatusCode, now().Sub(start))
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "read response")
		return goerrors.Wrap(err, goerrors.CategoryOperation, "failed to read api response")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &Error{
			Method:     method,
			URL:        endpoint,
			StatusCode: resp.StatusCode,
			Message:    parseErrorMessage(raw),
			Body:       excerpt(raw),
		}
		span.SetStatus(codes.Error, apiErr.Error())
		c.logger.Debug("api %s %s answered %d", method, endpoint, resp.StatusCode)
		return wrapAPIError(apiErr)
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}

	if err := json.Unmarshal(raw, out); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "decode response")
		return goerrors.Wrap(err, goerrors.CategoryInternal, "failed to decode api response")
	}

	return nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

func parseErrorMessage(raw []byte) string {
	var body errorBody
	if err := json.Unmarshal(raw, &body); err == nil {
		if body.Message != "" {
			return body.Message
		}
		if body.Error != "" {
			return body.Error
		}
	}
	return ""
}

func excerpt(raw []byte) string {
	s := strings.TrimSpace(string(raw))
	if len(s) > maxErrorBody {
		s = s[:maxErrorBody]
	}
	return s
}
