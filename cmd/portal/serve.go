package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-portal/metrics"
	"github.com/goliatone/go-portal/web"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
	"github.com/spf13/cobra"
)

const (
	shutdownTimeout = 10 * time.Second
	purgeInterval   = time.Hour
)

func serveCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the portal web server",
		Long: `Serve the public site and the admin area.

The operations listener exposes /metrics and /healthz on admin_listen.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newApp(cmd.Context(), *configPath)
			if err != nil {
				return err
			}
			defer app.Close()
			return app.Serve(cmd.Context())
		},
	}
}

func (a *App) Serve(ctx context.Context) error {
	logger := a.GetLogger("serve")

	if a.config.GetDebug() {
		logger.Debug("configuration", "config", print.MaybePrettyJSON(a.config))
	}

	engine, err := web.NewViewEngine()
	if err != nil {
		return err
	}

	srv := router.NewFiberAdapter(func(f *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			UnescapePath:      true,
			StrictRouting:     false,
			PassLocalsToViews: true,
			Views:             engine,
		}))
	})
	srv.Router().WithLogger(a.GetLogger("router"))

	opts := []web.ControllerOption{
		web.WithConfig(a.config),
		web.WithLogger(a.GetLogger("web")),
		web.WithActivitySink(a.activity),
		web.WithStoreFactory(a.webStores()),
		web.WithNotifications(a.notifications),
	}
	if a.config.GetFormTokens() {
		if a.config.GetFormTokenKey() == nil {
			logger.Info("no form token key configured, forms expire on restart")
		}
		opts = append(opts, web.WithFormTokens(a.config.GetFormTokenKey()))
	}

	controller := web.NewController(a.routes, a.guard, a.api, opts...)
	web.RegisterRoutes(srv.Router(), controller)

	ops := &http.Server{
		Addr:              a.config.GetAdminListen(),
		Handler:           metrics.Router(a.metrics, a.healthChecks()...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("operations listener started", "addr", ops.Addr)
		if err := ops.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("operations listener stopped", "error", err)
		}
	}()

	go func() {
		logger.Info("portal listening", "addr", a.config.GetListen(), "maintenance", a.guard.Maintenance())
		if err := srv.Serve(a.config.GetListen()); err != nil {
			logger.Error("portal server stopped", "error", err)
		}
	}()

	purgeCtx, stopPurge := context.WithCancel(ctx)
	defer stopPurge()
	go a.purgeSessions(purgeCtx)

	sig := WaitExitSignal()
	logger.Info("shutting down", "signal", sig.String())

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	var errs []error
	if err := srv.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	if err := ops.Shutdown(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// purgeSessions drops server side tokens nobody refreshed for a cookie
// lifetime, together with idle notification stores.
func (a *App) purgeSessions(ctx context.Context) {
	ticker := time.NewTicker(purgeInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.purge(ctx)
		}
	}
}

func (a *App) purge(ctx context.Context) {
	logger := a.GetLogger("purge")

	if n := a.notifications.Sweep(); n > 0 {
		logger.Debug("dropped idle notification stores", "count", n)
	}

	if n := a.sessions.Purge(a.guard.Validator().Usable); n > 0 {
		logger.Debug("purged memory sessions", "count", n)
	}

	if a.repo == nil {
		return
	}
	n, err := a.repo.Purge(ctx, time.Now().Add(-a.config.GetCookieDuration()))
	if err != nil {
		logger.Error("purging session tokens", "error", err)
		return
	}
	if n > 0 {
		logger.Debug("purged session tokens", "count", n)
	}
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
