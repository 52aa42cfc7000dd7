package web

import (
	"net/http"
	"time"

	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/apiclient"
	"github.com/goliatone/go-portal/middleware/csrf"
	"github.com/goliatone/go-portal/middleware/guardware"
	"github.com/goliatone/go-portal/notify"
	"github.com/goliatone/go-router"
)

// Config is the part of the portal configuration the web layer reads
type Config interface {
	portal.Config
	GetVisitorKey() string
	GetInsecureCookies() bool
	GetCookieDuration() time.Duration
	GetDebug() bool
}

type Controller struct {
	Debug                bool
	Logger               portal.Logger
	Routes               *portal.RouteTable
	Guard                *portal.Guard
	API                  *apiclient.Client
	Notifications        *notify.Registry
	ActivitySink         portal.ActivitySink
	Layout               string
	TokenKey             string
	RejectedRouteKey     string
	RejectedRouteDefault string
	VisitorKey           string
	InsecureCookies      bool
	CookieDuration       time.Duration
	// StoreFactory overrides where session tokens live. Defaults to an
	// HTTP only cookie per visitor.
	StoreFactory func(guardware.Context) portal.TokenStore
	// FormTokens enables form token checks on unsafe methods when set
	FormTokens *csrf.Config
}

type ControllerOption func(*Controller) *Controller

func WithConfig(cfg Config) ControllerOption {
	return func(c *Controller) *Controller {
		if cfg == nil {
			return c
		}
		c.Debug = cfg.GetDebug()
		c.TokenKey = cfg.GetTokenKey()
		c.RejectedRouteKey = cfg.GetRejectedRouteKey()
		c.RejectedRouteDefault = cfg.GetRejectedRouteDefault()
		c.VisitorKey = cfg.GetVisitorKey()
		c.InsecureCookies = cfg.GetInsecureCookies()
		c.CookieDuration = cfg.GetCookieDuration()
		return c
	}
}

func WithLogger(logger portal.Logger) ControllerOption {
	return func(c *Controller) *Controller {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithActivitySink(sink portal.ActivitySink) ControllerOption {
	return func(c *Controller) *Controller {
		c.ActivitySink = portal.NormalizeActivitySink(sink)
		return c
	}
}

func WithNotifications(registry *notify.Registry) ControllerOption {
	return func(c *Controller) *Controller {
		if registry != nil {
			c.Notifications = registry
		}
		return c
	}
}

func WithStoreFactory(factory func(guardware.Context) portal.TokenStore) ControllerOption {
	return func(c *Controller) *Controller {
		c.StoreFactory = factory
		return c
	}
}

// WithFormTokens requires a signed form token, bound to the visitor, on
// every unsafe request. An empty key signs with a per process key.
func WithFormTokens(key []byte) ControllerOption {
	return func(c *Controller) *Controller {
		cfg := csrf.GetDefaultConfig(csrf.Config{Key: key})
		c.FormTokens = &cfg
		return c
	}
}

func WithLayout(layout string) ControllerOption {
	return func(c *Controller) *Controller {
		c.Layout = layout
		return c
	}
}

// NewController wires the page handlers. Routes, guard and api client
// are required.
func NewController(routes *portal.RouteTable, guard *portal.Guard, api *apiclient.Client, opts ...ControllerOption) *Controller {
	if routes == nil {
		panic("Missing RouteTable in portal controller...")
	}

	if guard == nil {
		panic("Missing Guard in portal controller...")
	}

	if api == nil {
		panic("Missing api Client in portal controller...")
	}

	c := &Controller{
		Logger:               portal.DefaultLogger(),
		Routes:               routes,
		Guard:                guard,
		API:                  api,
		Notifications:        notify.NewRegistry(nil),
		ActivitySink:         portal.NormalizeActivitySink(nil),
		Layout:               DefaultLayout,
		TokenKey:             guardware.DefaultTokenKey,
		RejectedRouteKey:     guardware.DefaultRejectedRouteKey,
		RejectedRouteDefault: guard.DashboardPath(),
		VisitorKey:           DefaultVisitorKey,
		CookieDuration:       guardware.DefaultCookieDuration,
	}

	for _, opt := range opts {
		c = opt(c)
	}

	return c
}

type endpoint struct {
	get  Handler
	post Handler
}

func (c *Controller) endpoints() map[string]endpoint {
	return map[string]endpoint{
		portal.RouteHome:          {get: c.Home},
		portal.RouteNews:          {get: c.News},
		portal.RouteCategory:      {get: c.Category},
		portal.RouteServices:      {get: c.Services},
		portal.RoutePrivacy:       {get: c.Page},
		portal.RouteTerms:         {get: c.Page},
		portal.RouteLogin:         {get: c.LoginShow, post: c.LoginPost},
		portal.RouteLogout:        {get: c.Logout, post: c.Logout},
		portal.RouteDashboard:     {get: c.Dashboard},
		portal.RouteArticles:      {get: c.ArticleList},
		portal.RouteArticleCreate: {get: c.ArticleForm, post: c.ArticleSave},
		portal.RouteArticleEdit:   {get: c.ArticleForm, post: c.ArticleSave},
		portal.RouteArticleDelete: {post: c.ArticleDelete},
		portal.RouteCategories:    {get: c.CategoryList},
		portal.RouteCategoryNew:   {post: c.CategoryNew},
		portal.RouteCategoryDrop:  {post: c.CategoryDelete},
		portal.RoutePortfolios:    {get: c.PortfolioList},
		portal.RoutePortfolioDrop: {post: c.PortfolioDelete},
		portal.RouteModalConfirm:  {post: c.ModalConfirm},
		portal.RouteModalDiscard:  {post: c.ModalDiscard},
		portal.RouteMaintenance:   {get: c.Page},
		portal.RouteNotFound:      {get: c.NotFound},
	}
}

// RegisterRoutes registers every route of the table behind the visitor
// and guard middlewares. The catch all route is registered last.
func RegisterRoutes[T any](app router.Router[T], c *Controller) {
	endpoints := c.endpoints()
	for _, route := range c.Routes.All() {
		ep, ok := endpoints[route.Name()]
		if !ok {
			continue
		}

		mw := c.Middleware(route)

		if ep.get != nil {
			app.Get(route.Path(), ep.get.handlerFunc(), mw).
				SetName(route.Name() + ".get")
		}
		if ep.post != nil {
			app.Post(route.Path(), ep.post.handlerFunc(), mw).
				SetName(route.Name() + ".post")
		}
	}
}

// VisitorConfig returns the visitor middleware configuration
func (c *Controller) VisitorConfig() VisitorConfig {
	return VisitorConfig{
		Registry:         c.Notifications,
		CookieName:       c.VisitorKey,
		NotificationsKey: DefaultNotificationsKey,
		InsecureCookies:  c.InsecureCookies,
	}
}

// Middleware resolves the visitor, checks the form token and then
// guards route
func (c *Controller) Middleware(route *portal.Route) router.MiddlewareFunc {
	return func(next router.HandlerFunc) router.HandlerFunc {
		return func(ctx router.Context) error {
			return c.Handle(ctx, route, func() error {
				return next(ctx)
			})
		}
	}
}

// Handle runs the middleware chain of route for one request
func (c *Controller) Handle(ctx Context, route *portal.Route, next func() error) error {
	guard := c.GuardConfig(route)
	guarded := func() error {
		return guard.Handle(ctx, next)
	}

	return c.VisitorConfig().Handle(ctx, func() error {
		if c.FormTokens == nil {
			return guarded()
		}
		tokens := *c.FormTokens
		tokens.SubjectKey = DefaultVisitorIDKey
		tokens.ErrorHandler = func(_ csrf.Context, err error) error {
			return c.formTokenRejected(ctx, route, err)
		}
		return tokens.Handle(ctx, guarded)
	})
}

// formTokenRejected sends the visitor back to a page holding a fresh form
func (c *Controller) formTokenRejected(ctx Context, route *portal.Route, err error) error {
	c.Logger.Info("form token rejected on %s: %s", ctx.OriginalURL(), err)
	c.notifications(ctx).Warning("The form has expired, please try again")

	back := c.RejectedRouteDefault
	if route != nil {
		if ep, ok := c.endpoints()[route.Name()]; ok && ep.get != nil {
			back = ctx.OriginalURL()
		}
	}
	return ctx.Redirect(back, http.StatusSeeOther)
}

// GuardConfig returns the guard middleware configuration of route
func (c *Controller) GuardConfig(route *portal.Route) guardware.Config {
	factory := c.StoreFactory
	if factory == nil {
		tokenKey := c.TokenKey
		duration := c.CookieDuration
		secure := !c.InsecureCookies
		factory = func(ctx guardware.Context) portal.TokenStore {
			return guardware.NewCookieTokenStore(ctx, tokenKey).
				WithDuration(duration).
				WithSecure(secure)
		}
	}
	return guardware.GetDefaultConfig(guardware.Config{
		Guard:            c.Guard,
		Route:            route,
		TokenKey:         c.TokenKey,
		RejectedRouteKey: c.RejectedRouteKey,
		InsecureCookies:  c.InsecureCookies,
		StoreFactory:     factory,
	})
}

// session binds the api client to the token store of the request
func (c *Controller) session(ctx Context) *session {
	store, ok := guardware.StoreFromContext(ctx)
	if !ok {
		store = c.GuardConfig(nil).StoreFactory(ctx)
	}
	nav := &redirectNavigator{}
	return &session{
		client:    c.API.ForSession(store, nav),
		store:     store,
		navigator: nav,
	}
}

func (c *Controller) notifications(ctx Context) *notify.Store {
	if store, ok := NotificationsFromContext(ctx); ok {
		return store
	}
	return notify.New()
}

func (c *Controller) render(ctx Context, view string, data router.ViewContext) error {
	bind := map[string]any{}
	for k, v := range TemplateHelpers(c.Routes) {
		bind[k] = v
	}
	for k, v := range notificationData(NotificationStateFromContext(ctx)) {
		bind[k] = v
	}

	title, _ := ctx.Locals(guardware.DefaultTitleKey).(string)
	if title == "" {
		title = c.Guard.AppName()
	}
	routeName, _ := ctx.Locals(guardware.DefaultRouteKey).(string)

	bind["app_name"] = c.Guard.AppName()
	bind["page_title"] = title
	bind["route"] = routeName
	bind["is_authenticated"] = c.authenticated(ctx)
	bind["return_to"] = ctx.OriginalURL()
	if field, ok := ctx.Locals(csrf.DefaultFieldKey).(string); ok {
		bind["csrf_field"] = field
	}

	for k, v := range data {
		bind[k] = v
	}

	if c.Layout == "" {
		return ctx.Render(view, bind)
	}
	return ctx.Render(view, bind, c.Layout)
}

func (c *Controller) authenticated(ctx Context) bool {
	store, ok := guardware.StoreFromContext(ctx)
	if !ok {
		return false
	}
	token, err := store.Token(ctx.Context())
	if err != nil {
		return false
	}
	return c.Guard.Validator().Usable(token)
}

// fail answers an api error. A rejected session follows the redirect the
// api client asked for, a missing record renders the not found page and
// anything else is reported with a toast on fallback.
func (c *Controller) fail(ctx Context, s *session, err error, fallback string) error {
	if target := s.navigator.Target(); target != "" {
		if ctx.Method() == http.MethodGet {
			guardware.RememberRoute(ctx, c.RejectedRouteKey, ctx.OriginalURL(), !c.InsecureCookies)
		}
		c.notifications(ctx).Warning("Your session has expired, please sign in again")
		return ctx.Redirect(target, guardware.RedirectStatus(ctx.Method()))
	}

	if apiclient.StatusCode(err) == http.StatusNotFound {
		return c.NotFound(ctx)
	}

	c.Logger.Error("api request failed: %s", err)
	c.notifications(ctx).Error(errorMessage(err))

	if fallback == "" || fallback == ctx.OriginalURL() {
		ctx.Status(http.StatusBadGateway)
		return c.render(ctx, "errors/500", router.ViewContext{"error": errorMessage(err)})
	}
	return ctx.Redirect(fallback, guardware.RedirectStatus(ctx.Method()))
}

func (c *Controller) record(ctx Context, eventType portal.ActivityEventType, metadata map[string]any) {
	event := portal.ActivityEvent{
		EventType:  eventType,
		Actor:      VisitorID(ctx),
		Path:       ctx.OriginalURL(),
		Metadata:   metadata,
		OccurredAt: time.Now(),
	}
	if routeName, ok := ctx.Locals(guardware.DefaultRouteKey).(string); ok {
		event.Route = routeName
	}
	if err := c.ActivitySink.Record(ctx.Context(), event); err != nil {
		c.Logger.Debug("activity sink error: %s", err)
	}
}

func errorMessage(err error) string {
	if apiErr, ok := apiclient.AsError(err); ok && apiErr.Message != "" {
		return apiErr.Message
	}
	return "Something went wrong, please try again"
}
