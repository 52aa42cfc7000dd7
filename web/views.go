package web

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"net/url"
	"strings"

	"github.com/gofiber/template/django/v3"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/notify"
	"github.com/goliatone/go-router"
)

// DefaultLayout wraps every page
const DefaultLayout = "layouts/main"

//go:embed views
var viewsFS embed.FS

// Views returns the embedded templates rooted at the views directory
func Views() (fs.FS, error) {
	return fs.Sub(viewsFS, "views")
}

// NewViewEngine returns a django engine over the embedded templates
func NewViewEngine() (*django.Engine, error) {
	sub, err := Views()
	if err != nil {
		return nil, err
	}
	return django.NewFileSystem(http.FS(sub), ".html"), nil
}

// TemplateHelpers returns the data every view receives.
//
// In templates:
//
//	<a href="{{ url("news.show", article.Slug) }}">
//	{% if is_authenticated %}
//	{% if toast.Shown %}{{ toast.Message }}{% endif %}
func TemplateHelpers(routes *portal.RouteTable) map[string]any {
	return map[string]any{
		"url": func(name string, params ...any) string {
			return URLFor(routes, name, params...)
		},
	}
}

// URLFor builds the path of the named route, filling its params in order
// and escaping each one as a single path segment.
// Unknown routes resolve to "#".
func URLFor(routes *portal.RouteTable, name string, params ...any) string {
	if routes == nil {
		return "#"
	}
	path := routes.PathFor(name, "#")
	if len(params) == 0 {
		return path
	}

	segments := strings.Split(path, "/")
	next := 0
	for i, seg := range segments {
		if next >= len(params) {
			break
		}
		if strings.HasPrefix(seg, ":") {
			segments[i] = url.PathEscape(fmt.Sprint(params[next]))
			next++
		}
	}
	return strings.Join(segments, "/")
}

// notificationData exposes the toast and modal state to the layout
func notificationData(state notify.State) router.ViewContext {
	return router.ViewContext{
		"toast":           state.Toast,
		"modal":           state.Modal,
		"modal_shown":     state.Modal.Shown(),
		"modal_is_prompt": state.Modal.Kind == notify.ModalPrompt,
	}
}
