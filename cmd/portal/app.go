package main

import (
	"context"
	"database/sql"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/activitymap"
	"github.com/goliatone/go-portal/apiclient"
	"github.com/goliatone/go-portal/config"
	"github.com/goliatone/go-portal/metrics"
	"github.com/goliatone/go-portal/middleware/guardware"
	"github.com/goliatone/go-portal/notify"
	"github.com/goliatone/go-portal/repository"
	"github.com/goliatone/go-portal/web"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

// cliSessionKey names the session row used by the command line client
const cliSessionKey = "cli"

type App struct {
	config   *config.BaseConfig
	logger   *glog.BaseLogger
	routes   *portal.RouteTable
	guard    *portal.Guard
	metrics  *metrics.Prometheus
	activity portal.ActivitySink
	api      *apiclient.Client

	bunDB *bun.DB
	repo  *repository.Manager
	redis *redis.Client

	sessions      *portal.MemorySessions
	notifications *notify.Registry
}

func newApp(ctx context.Context, configPath string) (*App, error) {
	cfg, err := config.Load(configPath, nil)
	if err != nil {
		return nil, err
	}

	lgr := newLogger(cfg.GetDebug())

	app := &App{
		config:  cfg,
		logger:  lgr,
		metrics: metrics.New(),

		sessions:      portal.NewMemorySessions(),
		notifications: notify.NewRegistry(nil),
	}
	activityLog := app.GetLogger("activity")
	app.activity = activitymap.Sink(func(_ context.Context, n activitymap.Normalized) error {
		activityLog.Info("activity",
			"verb", n.Verb,
			"actor", n.ActorID,
			"object", n.ObjectID,
			"metadata", n.Metadata,
		)
		return nil
	})

	routes, err := portal.NewRouteTable(portal.DefaultRoutes()...)
	if err != nil {
		return nil, err
	}
	app.routes = routes

	app.guard = portal.NewGuard(routes, cfg).
		WithLogger(app.GetLogger("guard")).
		WithMetrics(app.metrics).
		WithActivitySink(app.activity)

	app.api, err = apiclient.New(apiclient.Config{
		BaseURL:      cfg.GetAPIBaseURL(),
		LoginPath:    app.guard.LoginPath(),
		Timeout:      cfg.GetAPITimeout(),
		Logger:       app.GetLogger("api"),
		Metrics:      app.metrics,
		ActivitySink: app.activity,
	})
	if err != nil {
		return nil, err
	}

	if err := app.openStorage(ctx); err != nil {
		app.Close()
		return nil, err
	}

	return app, nil
}

func newLogger(debug bool) *glog.BaseLogger {
	if debug {
		return glog.NewLogger(
			glog.WithLoggerTypePretty(),
			glog.WithLevel(glog.Trace),
			glog.WithName("portal"),
			glog.WithAddSource(true),
			glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
		)
	}
	return glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithName("portal"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(goerrors.ToSlogAttributes),
	)
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func (a *App) openStorage(ctx context.Context) error {
	switch a.config.GetTokenStore() {
	case config.TokenStoreRedis:
		a.redis = redis.NewClient(&redis.Options{Addr: a.config.GetRedisAddr()})
		if err := a.redis.Ping(ctx).Err(); err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to reach redis").
				WithMetadata(map[string]any{"addr": a.config.GetRedisAddr()})
		}
	case config.TokenStoreMemory:
	default:
		sqldb, err := sql.Open(sqliteshim.ShimName, a.config.GetSQLiteDSN())
		if err != nil {
			return goerrors.Wrap(err, goerrors.CategoryInternal, "unable to open sqlite")
		}
		sqldb.SetMaxOpenConns(1)

		a.bunDB = bun.NewDB(sqldb, sqlitedialect.New())
		a.repo = repository.NewManager(a.bunDB)
		a.repo.MustValidate()
		if err := a.repo.Migrate(ctx); err != nil {
			return err
		}
	}
	return nil
}

// tokenStore returns the persistent store of the session named key
func (a *App) tokenStore(key string) portal.TokenStore {
	switch {
	case a.redis != nil:
		return repository.NewRedisTokenStore(a.redis, key).
			WithTTL(a.config.GetCookieDuration()).
			WithValidator(a.guard.Validator())
	case a.repo != nil:
		return a.repo.Tokens(key)
	default:
		return a.sessions.Store(key)
	}
}

// webStores picks where browser sessions keep their token. Cookies keep
// it client side; any other backend keys it by visitor id.
func (a *App) webStores() func(guardware.Context) portal.TokenStore {
	if a.config.GetTokenStore() == config.TokenStoreCookie {
		return nil
	}
	return web.VisitorStores(func(visitorID string) portal.TokenStore {
		return a.tokenStore("visitor:" + visitorID)
	})
}

func (a *App) healthChecks() []metrics.HealthCheck {
	var checks []metrics.HealthCheck
	if a.redis != nil {
		checks = append(checks, metrics.HealthCheck{
			Name: "redis",
			Check: func(ctx context.Context) error {
				return a.redis.Ping(ctx).Err()
			},
		})
	}
	if a.repo != nil {
		checks = append(checks, metrics.HealthCheck{Name: "sqlite", Check: a.repo.Ping})
	}
	return checks
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.GetLogger("app").Error("closing redis", "error", err)
		}
	}
	if a.bunDB != nil {
		if err := a.bunDB.Close(); err != nil {
			a.GetLogger("app").Error("closing sqlite", "error", err)
		}
	}
}

func (a *App) record(cmd *cobra.Command, eventType portal.ActivityEventType, metadata map[string]any) {
	event := portal.ActivityEvent{
		EventType:  eventType,
		Actor:      cliSessionKey,
		Path:       cmd.CommandPath(),
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if err := a.activity.Record(cmd.Context(), event); err != nil {
		a.GetLogger("activity").Debug("activity sink error", "error", err)
	}
}
