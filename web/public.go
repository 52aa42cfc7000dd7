package web

import (
	"net/http"

	"github.com/goliatone/go-portal/middleware/guardware"
	"github.com/goliatone/go-router"
)

func (c *Controller) Home(ctx Context) error {
	s := c.session(ctx)

	articles, err := s.client.Articles(ctx.Context())
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	categories, err := s.client.Categories(ctx.Context())
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	return c.render(ctx, c.viewOf(ctx, "home"), router.ViewContext{
		"articles":   articles,
		"categories": categories,
	})
}

func (c *Controller) News(ctx Context) error {
	s := c.session(ctx)

	article, err := s.client.ArticleBySlug(ctx.Context(), ctx.Param("slug"))
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	return c.render(ctx, c.viewOf(ctx, "news"), router.ViewContext{
		"article":    article,
		"page_title": article.Title,
	})
}

func (c *Controller) Category(ctx Context) error {
	s := c.session(ctx)
	slug := ctx.Param("slug")

	category, err := s.client.CategoryBySlug(ctx.Context(), slug)
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	articles, err := s.client.ArticlesByCategory(ctx.Context(), slug)
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	return c.render(ctx, c.viewOf(ctx, "category"), router.ViewContext{
		"category":   category,
		"articles":   articles,
		"page_title": category.Name,
	})
}

func (c *Controller) Services(ctx Context) error {
	s := c.session(ctx)

	services, err := s.client.Services(ctx.Context())
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	return c.render(ctx, c.viewOf(ctx, "services"), router.ViewContext{
		"services": services,
	})
}

// Page renders the view of the current route without api data
func (c *Controller) Page(ctx Context) error {
	return c.render(ctx, c.viewOf(ctx, "errors/404"), nil)
}

func (c *Controller) NotFound(ctx Context) error {
	ctx.Status(http.StatusNotFound)
	return c.render(ctx, "errors/404", router.ViewContext{
		"path": ctx.OriginalURL(),
	})
}

// viewOf returns the view of the route the guard bound to the request
func (c *Controller) viewOf(ctx Context, def string) string {
	name, _ := ctx.Locals(guardware.DefaultRouteKey).(string)
	if r, ok := c.Routes.Lookup(name); ok && r.View() != "" {
		return r.View()
	}
	return def
}
