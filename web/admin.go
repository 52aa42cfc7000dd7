package web

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/apiclient"
	"github.com/goliatone/go-portal/middleware/guardware"
	"github.com/goliatone/go-router"
)

// ErrNoSession is returned by modal actions executed outside a request
var ErrNoSession = goerrors.New("modal action has no request session", goerrors.CategoryInternal)

// ArticleRequest is the article form payload
type ArticleRequest struct {
	Title      string `form:"title" json:"title"`
	Excerpt    string `form:"excerpt" json:"excerpt"`
	Content    string `form:"content" json:"content"`
	Image      string `form:"image" json:"image"`
	CategoryID string `form:"category_id" json:"category_id"`
}

func (r ArticleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.Required, validation.Length(3, 200)),
		validation.Field(&r.Excerpt, validation.Length(0, 500)),
		validation.Field(&r.Content, validation.Required),
		validation.Field(&r.Image, is.URL),
	)
}

func (r ArticleRequest) input() apiclient.ArticleInput {
	return apiclient.ArticleInput{
		Title:      strings.TrimSpace(r.Title),
		Excerpt:    strings.TrimSpace(r.Excerpt),
		Content:    r.Content,
		Image:      strings.TrimSpace(r.Image),
		CategoryID: r.CategoryID,
	}
}

// ModalRequest is posted by the confirm and discard buttons
type ModalRequest struct {
	Value    string `form:"value" json:"value"`
	ReturnTo string `form:"return_to" json:"return_to"`
}

func (c *Controller) Dashboard(ctx Context) error {
	s := c.session(ctx)
	stdCtx := ctx.Context()

	articles, err := s.client.Articles(stdCtx)
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	categories, err := s.client.Categories(stdCtx)
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	portfolios, err := s.client.Portfolios(stdCtx)
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	return c.render(ctx, c.viewOf(ctx, "admin/dashboard"), router.ViewContext{
		"article_count":   len(articles),
		"category_count":  len(categories),
		"portfolio_count": len(portfolios),
		"latest":          latest(articles, 5),
	})
}

func (c *Controller) ArticleList(ctx Context) error {
	s := c.session(ctx)

	articles, err := s.client.Articles(ctx.Context())
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	return c.render(ctx, c.viewOf(ctx, "admin/articles"), router.ViewContext{
		"articles": articles,
	})
}

func (c *Controller) ArticleForm(ctx Context) error {
	s := c.session(ctx)
	stdCtx := ctx.Context()

	categories, err := s.client.Categories(stdCtx)
	if err != nil {
		return c.fail(ctx, s, err, c.articlesPath())
	}

	record := ArticleRequest{}
	id := ctx.Param("id")
	if id != "" {
		article, err := s.client.Article(stdCtx, id)
		if err != nil {
			return c.fail(ctx, s, err, c.articlesPath())
		}
		record = ArticleRequest{
			Title:      article.Title,
			Excerpt:    article.Excerpt,
			Content:    article.Content,
			Image:      article.Image,
			CategoryID: article.CategoryID,
		}
	}

	return c.renderArticleForm(ctx, id, record, categories, nil)
}

func (c *Controller) ArticleSave(ctx Context) error {
	s := c.session(ctx)
	stdCtx := ctx.Context()
	id := ctx.Param("id")

	payload := new(ArticleRequest)
	if err := ctx.Bind(payload); err != nil {
		c.notifications(ctx).Error("Invalid article form")
		return ctx.Redirect(ctx.OriginalURL(), http.StatusSeeOther)
	}

	if err := payload.Validate(); err != nil {
		categories, cerr := s.client.Categories(stdCtx)
		if cerr != nil {
			return c.fail(ctx, s, cerr, c.articlesPath())
		}
		ctx.Status(http.StatusUnprocessableEntity)
		return c.renderArticleForm(ctx, id, *payload, categories, validationErrors(err))
	}

	var err error
	if id == "" {
		_, err = s.client.CreateArticle(stdCtx, payload.input())
	} else {
		_, err = s.client.UpdateArticle(stdCtx, id, payload.input())
	}
	if err != nil {
		if s.navigator.Target() != "" {
			return c.fail(ctx, s, err, "")
		}
		categories, cerr := s.client.Categories(stdCtx)
		if cerr != nil {
			return c.fail(ctx, s, cerr, c.articlesPath())
		}
		ctx.Status(http.StatusUnprocessableEntity)
		return c.renderArticleForm(ctx, id, *payload, categories, map[string]string{"form": errorMessage(err)})
	}

	if id == "" {
		c.notifications(ctx).Success("Article created")
	} else {
		c.notifications(ctx).Success("Article updated")
	}
	return ctx.Redirect(c.articlesPath(), http.StatusSeeOther)
}

func (c *Controller) renderArticleForm(ctx Context, id string, record ArticleRequest, categories []apiclient.Category, errs map[string]string) error {
	action := c.Routes.PathFor(portal.RouteArticleCreate, "#")
	if id != "" {
		action = URLFor(c.Routes, portal.RouteArticleEdit, id)
	}
	return c.render(ctx, c.viewOf(ctx, "admin/article_form"), router.ViewContext{
		"id":         id,
		"action":     action,
		"record":     record,
		"categories": categories,
		"errors":     errs,
	})
}

func (c *Controller) ArticleDelete(ctx Context) error {
	return c.confirmRemoval(ctx, apiclient.ResourceArticles, "Delete article", c.articlesPath())
}

func (c *Controller) CategoryList(ctx Context) error {
	s := c.session(ctx)

	categories, err := s.client.Categories(ctx.Context())
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	return c.render(ctx, c.viewOf(ctx, "admin/categories"), router.ViewContext{
		"categories": categories,
	})
}

// CategoryNew opens a prompt; the category is created when it is confirmed
func (c *Controller) CategoryNew(ctx Context) error {
	notes := c.notifications(ctx)
	notes.RequestPrompt("New category", "", func(actx context.Context, value string) error {
		name := strings.TrimSpace(value)
		if name == "" {
			notes.Warning("Category name is required")
			return nil
		}
		s, ok := sessionFrom(actx)
		if !ok {
			return ErrNoSession
		}
		if _, err := s.client.CreateCategory(actx, name); err != nil {
			return err
		}
		notes.Success(fmt.Sprintf("Category %q created", name))
		return nil
	})
	return ctx.Redirect(c.categoriesPath(), http.StatusSeeOther)
}

func (c *Controller) CategoryDelete(ctx Context) error {
	return c.confirmRemoval(ctx, apiclient.ResourceCategories, "Delete category", c.categoriesPath())
}

func (c *Controller) PortfolioList(ctx Context) error {
	s := c.session(ctx)

	portfolios, err := s.client.Portfolios(ctx.Context())
	if err != nil {
		return c.fail(ctx, s, err, "")
	}

	return c.render(ctx, c.viewOf(ctx, "admin/portfolios"), router.ViewContext{
		"portfolios": portfolios,
	})
}

func (c *Controller) PortfolioDelete(ctx Context) error {
	return c.confirmRemoval(ctx, apiclient.ResourcePortfolios, "Delete portfolio", c.portfoliosPath())
}

// confirmRemoval asks the visitor to confirm before the record is removed
func (c *Controller) confirmRemoval(ctx Context, resource apiclient.Resource, title, back string) error {
	id := ctx.Param("id")
	notes := c.notifications(ctx)
	notes.RequestConfirm(title, "This action cannot be undone.", func(actx context.Context) error {
		s, ok := sessionFrom(actx)
		if !ok {
			return ErrNoSession
		}
		if err := s.client.Remove(actx, resource, id); err != nil {
			return err
		}
		notes.Success("Deleted successfully")
		return nil
	})
	return ctx.Redirect(back, http.StatusSeeOther)
}

// ModalConfirm runs the pending modal action with the posted draft
func (c *Controller) ModalConfirm(ctx Context) error {
	payload := new(ModalRequest)
	if err := ctx.Bind(payload); err != nil {
		c.Logger.Debug("modal: unable to bind payload: %s", err)
	}

	notes := c.notifications(ctx)
	notes.SetDraft(payload.Value)

	s := c.session(ctx)
	if err := notes.Execute(withSession(ctx.Context(), s)); err != nil {
		return c.fail(ctx, s, err, c.returnTo(payload.ReturnTo))
	}

	return ctx.Redirect(c.returnTo(payload.ReturnTo), http.StatusSeeOther)
}

// ModalDiscard drops the pending modal without running it
func (c *Controller) ModalDiscard(ctx Context) error {
	payload := new(ModalRequest)
	if err := ctx.Bind(payload); err != nil {
		c.Logger.Debug("modal: unable to bind payload: %s", err)
	}

	c.notifications(ctx).Discard()
	return ctx.Redirect(c.returnTo(payload.ReturnTo), http.StatusSeeOther)
}

func (c *Controller) returnTo(path string) string {
	if guardware.IsLocalPath(path) {
		return path
	}
	return c.Guard.DashboardPath()
}

func (c *Controller) articlesPath() string {
	return c.Routes.PathFor(portal.RouteArticles, c.Guard.DashboardPath())
}

func (c *Controller) categoriesPath() string {
	return c.Routes.PathFor(portal.RouteCategories, c.Guard.DashboardPath())
}

func (c *Controller) portfoliosPath() string {
	return c.Routes.PathFor(portal.RoutePortfolios, c.Guard.DashboardPath())
}

func latest(articles []apiclient.Article, n int) []apiclient.Article {
	if len(articles) <= n {
		return articles
	}
	return articles[:n]
}
