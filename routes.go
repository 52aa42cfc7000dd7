package portal

import (
	"fmt"
	"strings"
)

// Route names the guard and the controllers rely on
const (
	RouteHome          = "home"
	RouteNews          = "news.show"
	RouteCategory      = "category.show"
	RouteServices      = "services"
	RoutePrivacy       = "privacy"
	RouteTerms         = "terms"
	RouteLogin         = "login"
	RouteLogout        = "logout"
	RouteAdmin         = "admin"
	RouteDashboard     = "admin.dashboard"
	RouteArticles      = "admin.articles"
	RouteArticleCreate = "admin.articles.create"
	RouteArticleEdit   = "admin.articles.edit"
	RouteCategories    = "admin.categories"
	RoutePortfolios    = "admin.portfolios"
	RouteArticleDelete = "admin.articles.delete"
	RouteCategoryNew   = "admin.categories.new"
	RouteCategoryDrop  = "admin.categories.delete"
	RoutePortfolioDrop = "admin.portfolios.delete"
	RouteModalConfirm  = "admin.modal.confirm"
	RouteModalDiscard  = "admin.modal.discard"
	RouteMaintenance   = "maintenance"
	RouteNotFound      = "not-found"
)

const (
	catchAllPathSegment  = "*"
	pathParamPrefix      = ":"
	defaultLoginPath     = "/auth/login"
	defaultDashboardPath = "/admin/dashboard"
	defaultMaintPath     = "/maintenance"
)

// RouteMeta is the metadata bag attached to a route
type RouteMeta struct {
	RequiresAuth bool   `json:"requires_auth" yaml:"requires_auth"`
	Title        string `json:"title,omitempty" yaml:"title,omitempty"`
}

// RouteDef declares a route and its children. Child paths are relative
// to the parent path. Routes without a view are actions or groups.
type RouteDef struct {
	Name     string     `json:"name" yaml:"name"`
	Path     string     `json:"path" yaml:"path"`
	View     string     `json:"view,omitempty" yaml:"view,omitempty"`
	Meta     RouteMeta  `json:"meta" yaml:"meta"`
	Children []RouteDef `json:"children,omitempty" yaml:"children,omitempty"`
}

// Route is an immutable node of the route tree
type Route struct {
	name     string
	path     string
	view     string
	meta     RouteMeta
	parent   *Route
	segments []string
}

func (r *Route) Name() string { return r.name }

func (r *Route) Path() string { return r.path }

func (r *Route) View() string { return r.view }

func (r *Route) Meta() RouteMeta { return r.meta }

// Chain returns the route followed by its ancestors up to the root
func (r *Route) Chain() []*Route {
	var chain []*Route
	for n := r; n != nil; n = n.parent {
		chain = append(chain, n)
	}
	return chain
}

// RequiresAuth is true when the route or any ancestor requires auth.
// A nil route is public.
func (r *Route) RequiresAuth() bool {
	if r == nil {
		return false
	}
	for _, n := range r.Chain() {
		if n.meta.RequiresAuth {
			return true
		}
	}
	return false
}

// Title returns the closest title in the chain
func (r *Route) Title() string {
	if r == nil {
		return ""
	}
	for _, n := range r.Chain() {
		if n.meta.Title != "" {
			return n.meta.Title
		}
	}
	return ""
}

// IsCatchAll reports whether the route matches any path
func (r *Route) IsCatchAll() bool {
	return r != nil && r.path == "/"+catchAllPathSegment
}

// RouteTable indexes the route tree by name and path
type RouteTable struct {
	roots  []*Route
	byName map[string]*Route
	all    []*Route
	leaves []*Route
}

// NewRouteTable builds the route tree. Names must be unique.
func NewRouteTable(defs ...RouteDef) (*RouteTable, error) {
	t := &RouteTable{byName: make(map[string]*Route)}
	for _, def := range defs {
		root, err := t.add(nil, def)
		if err != nil {
			return nil, err
		}
		t.roots = append(t.roots, root)
	}
	return t, nil
}

func (t *RouteTable) add(parent *Route, def RouteDef) (*Route, error) {
	if def.Name == "" {
		return nil, fmt.Errorf("route with path %q has no name", def.Path)
	}

	if _, exists := t.byName[def.Name]; exists {
		return nil, fmt.Errorf("%w: %s", ErrDuplicateRoute, def.Name)
	}

	full := joinRoutePath(parent, def.Path)
	r := &Route{
		name:     def.Name,
		path:     full,
		view:     def.View,
		meta:     def.Meta,
		parent:   parent,
		segments: splitPath(full),
	}
	t.byName[r.name] = r
	t.all = append(t.all, r)

	if r.view != "" {
		t.leaves = append(t.leaves, r)
	}

	for _, child := range def.Children {
		if _, err := t.add(r, child); err != nil {
			return nil, err
		}
	}

	return r, nil
}

// Lookup finds a route by name
func (t *RouteTable) Lookup(name string) (*Route, bool) {
	r, ok := t.byName[name]
	return r, ok
}

// PathFor returns the path of the named route or def when missing
func (t *RouteTable) PathFor(name, def string) string {
	if r, ok := t.byName[name]; ok {
		return r.path
	}
	return def
}

// Routes returns the routes that render a view, in declaration order
func (t *RouteTable) Routes() []*Route {
	out := make([]*Route, len(t.leaves))
	copy(out, t.leaves)
	return out
}

// All returns every route, parents before children
func (t *RouteTable) All() []*Route {
	out := make([]*Route, len(t.all))
	copy(out, t.all)
	return out
}

// Match resolves a request path to a route and its path params.
// Static segments win over params, the catch all matches last.
// A path that matches nothing returns nil.
func (t *RouteTable) Match(requestPath string) (*Route, map[string]string) {
	if i := strings.IndexAny(requestPath, "?#"); i >= 0 {
		requestPath = requestPath[:i]
	}
	segments := splitPath(requestPath)

	var best *Route
	var bestParams map[string]string
	bestScore := -1
	var catchAll *Route

	for _, r := range t.leaves {
		if r.IsCatchAll() {
			if catchAll == nil {
				catchAll = r
			}
			continue
		}
		params, score, ok := matchSegments(r.segments, segments)
		if ok && score > bestScore {
			best, bestParams, bestScore = r, params, score
		}
	}

	if best != nil {
		return best, bestParams
	}

	if catchAll != nil {
		return catchAll, map[string]string{}
	}

	return nil, nil
}

func matchSegments(pattern, segments []string) (map[string]string, int, bool) {
	if len(pattern) != len(segments) {
		return nil, 0, false
	}
	params := map[string]string{}
	score := 0
	for i, p := range pattern {
		if strings.HasPrefix(p, pathParamPrefix) {
			if segments[i] == "" {
				return nil, 0, false
			}
			params[strings.TrimPrefix(p, pathParamPrefix)] = segments[i]
			continue
		}
		if p != segments[i] {
			return nil, 0, false
		}
		score++
	}
	return params, score, true
}

func joinRoutePath(parent *Route, p string) string {
	p = strings.Trim(p, "/")
	if parent == nil {
		return "/" + p
	}
	base := strings.TrimRight(parent.path, "/")
	if p == "" {
		if base == "" {
			return "/"
		}
		return base
	}
	return base + "/" + p
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return []string{}
	}
	return strings.Split(p, "/")
}

// DefaultRoutes is the route surface of the portal
func DefaultRoutes() []RouteDef {
	return []RouteDef{
		{Name: RouteHome, Path: "/", View: "home", Meta: RouteMeta{Title: "Home"}},
		{Name: RouteNews, Path: "/news/:slug", View: "news", Meta: RouteMeta{Title: "News"}},
		{Name: RouteCategory, Path: "/category/:slug", View: "category", Meta: RouteMeta{Title: "Category"}},
		{Name: RouteServices, Path: "/services", View: "services", Meta: RouteMeta{Title: "Services"}},
		{Name: RoutePrivacy, Path: "/privacy&policy", View: "privacy", Meta: RouteMeta{Title: "Privacy Policy"}},
		{Name: RouteTerms, Path: "/terms-and-conditions", View: "terms", Meta: RouteMeta{Title: "Terms and Conditions"}},
		{Name: RouteLogin, Path: defaultLoginPath, View: "login", Meta: RouteMeta{Title: "Login"}},
		{Name: RouteLogout, Path: "/auth/logout"},
		{
			Name: RouteAdmin,
			Path: "/admin",
			Meta: RouteMeta{RequiresAuth: true},
			Children: []RouteDef{
				{Name: RouteDashboard, Path: "dashboard", View: "admin/dashboard", Meta: RouteMeta{Title: "Dashboard"}},
				{
					Name: RouteArticles,
					Path: "artikels",
					View: "admin/articles",
					Meta: RouteMeta{Title: "Articles"},
					Children: []RouteDef{
						{Name: RouteArticleCreate, Path: "create", View: "admin/article_form", Meta: RouteMeta{Title: "New Article"}},
						{Name: RouteArticleEdit, Path: "edit/:id", View: "admin/article_form", Meta: RouteMeta{Title: "Edit Article"}},
						{Name: RouteArticleDelete, Path: ":id/delete"},
					},
				},
				{
					Name: RouteCategories,
					Path: "categories",
					View: "admin/categories",
					Meta: RouteMeta{Title: "Categories"},
					Children: []RouteDef{
						{Name: RouteCategoryNew, Path: "new"},
						{Name: RouteCategoryDrop, Path: ":id/delete"},
					},
				},
				{
					Name:     RoutePortfolios,
					Path:     "portfolios",
					View:     "admin/portfolios",
					Meta:     RouteMeta{Title: "Portfolios"},
					Children: []RouteDef{{Name: RoutePortfolioDrop, Path: ":id/delete"}},
				},
				{Name: RouteModalConfirm, Path: "modal/confirm"},
				{Name: RouteModalDiscard, Path: "modal/discard"},
			},
		},
		{Name: RouteMaintenance, Path: defaultMaintPath, View: "maintenance", Meta: RouteMeta{Title: "Maintenance"}},
		{Name: RouteNotFound, Path: "/" + catchAllPathSegment, View: "errors/404", Meta: RouteMeta{Title: "Not Found"}},
	}
}
