package web_test

import (
	"bytes"
	"io/fs"
	"testing"

	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/apiclient"
	"github.com/goliatone/go-portal/notify"
	"github.com/goliatone/go-portal/web"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestURLFor(t *testing.T) {
	routes, err := portal.NewRouteTable(portal.DefaultRoutes()...)
	require.NoError(t, err)

	tests := []struct {
		name   string
		params []any
		want   string
	}{
		{name: portal.RouteHome, want: "/"},
		{name: portal.RouteNews, params: []any{"hello-world"}, want: "/news/hello-world"},
		{name: portal.RouteArticleEdit, params: []any{42}, want: "/admin/artikels/edit/42"},
		{name: portal.RouteArticleDelete, params: []any{"7"}, want: "/admin/artikels/7/delete"},
		{name: portal.RouteNews, params: []any{"a/b?c"}, want: "/news/a%2Fb%3Fc"},
		{name: portal.RouteCategory, params: []any{"café & bar"}, want: "/category/caf%C3%A9%20&%20bar"},
		{name: portal.RouteNews, want: "/news/:slug"},
		{name: "missing", want: "#"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, web.URLFor(routes, tt.name, tt.params...))
		})
	}
}

func TestViews_EveryRouteViewExists(t *testing.T) {
	routes, err := portal.NewRouteTable(portal.DefaultRoutes()...)
	require.NoError(t, err)

	views, err := web.Views()
	require.NoError(t, err)

	for _, r := range routes.Routes() {
		_, err := fs.Stat(views, r.View()+".html")
		assert.NoError(t, err, r.Name())
	}

	for _, name := range []string{web.DefaultLayout, "errors/500"} {
		_, err := fs.Stat(views, name+".html")
		assert.NoError(t, err, name)
	}
}

func TestViews_RenderHomeWithLayout(t *testing.T) {
	routes, err := portal.NewRouteTable(portal.DefaultRoutes()...)
	require.NoError(t, err)

	engine, err := web.NewViewEngine()
	require.NoError(t, err)
	require.NoError(t, engine.Load())

	bind := map[string]any{
		"app_name":         "Acme",
		"page_title":       "Home",
		"is_authenticated": false,
		"return_to":        "/",
		"toast":            notify.Toast{Shown: true, Severity: notify.SeverityInfo, Message: "Hello there"},
		"modal":            notify.Modal{},
		"modal_shown":      false,
		"articles": []apiclient.Article{
			{ID: "1", Title: "First post", Slug: "first-post"},
		},
	}
	for k, v := range web.TemplateHelpers(routes) {
		bind[k] = v
	}

	var out bytes.Buffer
	require.NoError(t, engine.Render(&out, "home", bind, web.DefaultLayout))

	html := out.String()
	assert.Contains(t, html, "<title>Home | Acme</title>")
	assert.Contains(t, html, `href="/news/first-post"`)
	assert.Contains(t, html, "Hello there")
	assert.Contains(t, html, `href="/auth/login"`)
}
