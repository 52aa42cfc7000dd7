package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/goliatone/go-portal"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Config configures the Prometheus collectors.
type Config struct {
	// Namespace is the metrics namespace (default: "portal").
	Namespace string

	// ConstLabels are added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for upstream latency.
	// Default: prometheus.DefBuckets
	Buckets []float64

	// Registry receives the collectors. Default: a new registry.
	Registry *prometheus.Registry
}

// Option configures the collectors.
type Option func(*Config)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) Option {
	return func(c *Config) {
		c.Namespace = namespace
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) Option {
	return func(c *Config) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the histogram buckets.
func WithBuckets(buckets []float64) Option {
	return func(c *Config) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) Option {
	return func(c *Config) {
		c.Registry = registry
	}
}

func defaultConfig() Config {
	return Config{
		Namespace: "portal",
		Buckets:   prometheus.DefBuckets,
	}
}

var _ portal.Metrics = &Prometheus{}

// Prometheus implements portal.Metrics on a Prometheus registry.
type Prometheus struct {
	registry         *prometheus.Registry
	guardDecisions   *prometheus.CounterVec
	upstreamTotal    *prometheus.CounterVec
	upstreamDuration *prometheus.HistogramVec
	sessionsCleared  *prometheus.CounterVec
}

// New registers the portal collectors
func New(opts ...Option) *Prometheus {
	config := defaultConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	if len(config.Buckets) == 0 {
		config.Buckets = prometheus.DefBuckets
	}

	factory := promauto.With(config.Registry)

	return &Prometheus{
		registry: config.Registry,

		guardDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "guard_decisions_total",
			Help:        "Navigation guard decisions by rule",
			ConstLabels: config.ConstLabels,
		}, []string{"decision"}),

		upstreamTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "upstream_responses_total",
			Help:        "Upstream api responses by method and status",
			ConstLabels: config.ConstLabels,
		}, []string{"method", "status"}),

		upstreamDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Name:        "upstream_duration_seconds",
			Help:        "Upstream api latency in seconds",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}, []string{"method"}),

		sessionsCleared: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Name:        "sessions_cleared_total",
			Help:        "Session tokens cleared by source",
			ConstLabels: config.ConstLabels,
		}, []string{"source"}),
	}
}

func (p *Prometheus) GuardDecision(rule portal.GuardRule) {
	p.guardDecisions.WithLabelValues(string(rule)).Inc()
}

func (p *Prometheus) UpstreamResponse(method string, status int, elapsed time.Duration) {
	p.upstreamTotal.WithLabelValues(method, strconv.Itoa(status)).Inc()
	p.upstreamDuration.WithLabelValues(method).Observe(elapsed.Seconds())
}

func (p *Prometheus) SessionCleared(source string) {
	p.sessionsCleared.WithLabelValues(source).Inc()
}

// Registry exposes the underlying registry
func (p *Prometheus) Registry() *prometheus.Registry {
	return p.registry
}

// Handler serves the registry in the Prometheus text format
func (p *Prometheus) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
