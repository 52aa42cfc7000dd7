package portal

import (
	"context"
	"time"
)

// DefaultAppName is the page title used when a route has none
const DefaultAppName = "Portal"

// GuardRule names the guard rule that produced a decision
type GuardRule string

const (
	GuardRuleMaintenance          GuardRule = "maintenance"
	GuardRuleAuthRequired         GuardRule = "auth_required"
	GuardRuleAlreadyAuthenticated GuardRule = "already_authenticated"
	GuardRuleAllow                GuardRule = "allow"
)

// Decision is the outcome of guarding one navigation
type Decision struct {
	Rule       GuardRule
	Redirect   string
	ClearToken bool
	Err        error
}

// Allowed reports whether the navigation may proceed unchanged
func (d Decision) Allowed() bool {
	return d.Redirect == ""
}

// Navigation describes a committed transition
type Navigation struct {
	Route *Route
	Path  string
	Title string
}

// AfterNavigateHook runs after every committed transition
type AfterNavigateHook func(ctx context.Context, nav Navigation)

// Guard decides whether a navigation proceeds or is redirected.
// It never fails: unknown targets are public and store errors are
// treated as a missing token.
type Guard struct {
	validator       *TokenValidator
	maintenance     bool
	appName         string
	loginPath       string
	dashboardPath   string
	maintenancePath string
	logger          Logger
	metrics         Metrics
	activity        ActivitySink
	hooks           []AfterNavigateHook
}

// NewGuard creates a guard. The maintenance flag is read once from cfg.
func NewGuard(routes *RouteTable, cfg Config) *Guard {
	g := &Guard{
		validator:       NewTokenValidator(),
		appName:         DefaultAppName,
		loginPath:       defaultLoginPath,
		dashboardPath:   defaultDashboardPath,
		maintenancePath: defaultMaintPath,
		logger:          defLogger{},
		metrics:         noopMetrics{},
		activity:        noopActivitySink{},
	}

	if cfg != nil {
		g.maintenance = cfg.GetMaintenance()
		if name := cfg.GetAppName(); name != "" {
			g.appName = name
		}
	}

	if routes != nil {
		g.loginPath = routes.PathFor(RouteLogin, g.loginPath)
		g.dashboardPath = routes.PathFor(RouteDashboard, g.dashboardPath)
		g.maintenancePath = routes.PathFor(RouteMaintenance, g.maintenancePath)
	}

	return g
}

func (g *Guard) WithLogger(logger Logger) *Guard {
	if logger != nil {
		g.logger = logger
	}
	return g
}

func (g *Guard) WithMetrics(metrics Metrics) *Guard {
	g.metrics = NormalizeMetrics(metrics)
	return g
}

func (g *Guard) WithActivitySink(sink ActivitySink) *Guard {
	g.activity = NormalizeActivitySink(sink)
	return g
}

func (g *Guard) WithValidator(v *TokenValidator) *Guard {
	if v != nil {
		g.validator = v
	}
	return g
}

// OnAfterNavigate registers a hook run after every allowed transition
func (g *Guard) OnAfterNavigate(hook AfterNavigateHook) *Guard {
	if hook != nil {
		g.hooks = append(g.hooks, hook)
	}
	return g
}

func (g *Guard) Maintenance() bool { return g.maintenance }

func (g *Guard) LoginPath() string { return g.loginPath }

func (g *Guard) DashboardPath() string { return g.dashboardPath }

func (g *Guard) AppName() string { return g.appName }

// Validator exposes the token validator used by the guard
func (g *Guard) Validator() *TokenValidator {
	return g.validator
}

// Decide applies the guard rules in order, first match wins.
func (g *Guard) Decide(target *Route, tokenUsable bool) Decision {
	if g.maintenance && !isRoute(target, RouteMaintenance) {
		return Decision{
			Rule:     GuardRuleMaintenance,
			Redirect: g.maintenancePath,
			Err:      ErrMaintenance,
		}
	}

	if target.RequiresAuth() && !tokenUsable {
		return Decision{
			Rule:       GuardRuleAuthRequired,
			Redirect:   g.loginPath,
			ClearToken: true,
			Err:        ErrSessionExpired,
		}
	}

	if isRoute(target, RouteLogin) && tokenUsable {
		return Decision{
			Rule:     GuardRuleAlreadyAuthenticated,
			Redirect: g.dashboardPath,
		}
	}

	return Decision{Rule: GuardRuleAllow}
}

// Evaluate reads the session token from store, decides, and clears the
// token when the decision asks for it.
func (g *Guard) Evaluate(ctx context.Context, target *Route, path string, store TokenStore) Decision {
	token := ""
	if store != nil {
		t, err := store.Token(ctx)
		if err != nil {
			g.logger.Debug("guard: unable to read session token: %s", err)
		} else {
			token = t
		}
	}

	decision := g.Decide(target, g.validator.Usable(token))
	g.metrics.GuardDecision(decision.Rule)

	if decision.ClearToken && store != nil {
		if err := store.ClearToken(ctx); err != nil {
			g.logger.Error("guard: unable to clear session token: %s", err)
		} else {
			g.metrics.SessionCleared("guard")
		}
	}

	if !decision.Allowed() {
		g.record(ctx, ActivityEventNavigationRedirected, target, path, decision)
		if decision.ClearToken {
			g.record(ctx, ActivityEventSessionCleared, target, path, decision)
		}
	}

	return decision
}

// AfterNavigate resolves the page title and runs the registered hooks
func (g *Guard) AfterNavigate(ctx context.Context, target *Route, path string) Navigation {
	nav := Navigation{
		Route: target,
		Path:  path,
		Title: g.Title(target),
	}
	for _, hook := range g.hooks {
		hook(ctx, nav)
	}
	return nav
}

// Title returns the route title or the application name
func (g *Guard) Title(target *Route) string {
	if title := target.Title(); title != "" {
		return title
	}
	return g.appName
}

func (g *Guard) record(ctx context.Context, eventType ActivityEventType, target *Route, path string, d Decision) {
	event := ActivityEvent{
		EventType:  eventType,
		Path:       path,
		Redirect:   d.Redirect,
		OccurredAt: time.Now(),
		Metadata:   map[string]any{"rule": string(d.Rule)},
	}
	if target != nil {
		event.Route = target.Name()
	}
	if err := g.activity.Record(ctx, event); err != nil {
		g.logger.Debug("guard: activity sink error: %s", err)
	}
}

func isRoute(r *Route, name string) bool {
	return r != nil && r.Name() == name
}
