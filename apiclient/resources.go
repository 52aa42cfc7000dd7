package apiclient

import (
	"context"
	"fmt"
	"net/url"
	"time"

	goerrors "github.com/goliatone/go-errors"
)

type Category struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Article struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Slug       string    `json:"slug"`
	Excerpt    string    `json:"excerpt,omitempty"`
	Content    string    `json:"content"`
	Image      string    `json:"image,omitempty"`
	CategoryID string    `json:"category_id,omitempty"`
	Category   *Category `json:"category,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// ArticleInput is the payload for create and update
type ArticleInput struct {
	Title      string `json:"title"`
	Excerpt    string `json:"excerpt,omitempty"`
	Content    string `json:"content"`
	Image      string `json:"image,omitempty"`
	CategoryID string `json:"category_id,omitempty"`
}

type Portfolio struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
	Link        string `json:"link,omitempty"`
}

type Service struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon,omitempty"`
}

// Credentials are sent to the api login endpoint
type Credentials struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

type loginResponse struct {
	Token       string `json:"token"`
	AccessToken string `json:"access_token"`
}

// ErrMissingToken is returned when the login answer carries no token
var ErrMissingToken = goerrors.New("login response carried no token", goerrors.CategoryAuth).
	WithTextCode("LOGIN_TOKEN_MISSING").
	WithCode(goerrors.CodeUnauthorized)

// Login exchanges credentials for a session token. The token is not
// stored; callers decide which TokenStore receives it.
func (c *Client) Login(ctx context.Context, creds Credentials) (string, error) {
	var out loginResponse
	if err := c.Post(ctx, "/auth/login", creds, &out); err != nil {
		return "", err
	}

	token := out.Token
	if token == "" {
		token = out.AccessToken
	}
	if token == "" {
		return "", ErrMissingToken
	}
	return token, nil
}

func (c *Client) Articles(ctx context.Context) ([]Article, error) {
	var out []Article
	if err := c.Get(ctx, "/articles", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ArticlesByCategory(ctx context.Context, categorySlug string) ([]Article, error) {
	var out []Article
	if err := c.Get(ctx, "/articles?category="+url.QueryEscape(categorySlug), &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) ArticleBySlug(ctx context.Context, slug string) (*Article, error) {
	out := &Article{}
	if err := c.Get(ctx, "/articles/slug/"+url.PathEscape(slug), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) Article(ctx context.Context, id string) (*Article, error) {
	out := &Article{}
	if err := c.Get(ctx, "/articles/"+url.PathEscape(id), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateArticle(ctx context.Context, in ArticleInput) (*Article, error) {
	out := &Article{}
	if err := c.Post(ctx, "/articles", in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) UpdateArticle(ctx context.Context, id string, in ArticleInput) (*Article, error) {
	out := &Article{}
	if err := c.Put(ctx, "/articles/"+url.PathEscape(id), in, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteArticle(ctx context.Context, id string) error {
	return c.Delete(ctx, "/articles/"+url.PathEscape(id), nil)
}

func (c *Client) Categories(ctx context.Context) ([]Category, error) {
	var out []Category
	if err := c.Get(ctx, "/categories", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CategoryBySlug(ctx context.Context, slug string) (*Category, error) {
	out := &Category{}
	if err := c.Get(ctx, "/categories/slug/"+url.PathEscape(slug), out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateCategory(ctx context.Context, name string) (*Category, error) {
	out := &Category{}
	if err := c.Post(ctx, "/categories", map[string]string{"name": name}, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeleteCategory(ctx context.Context, id string) error {
	return c.Delete(ctx, "/categories/"+url.PathEscape(id), nil)
}

func (c *Client) Portfolios(ctx context.Context) ([]Portfolio, error) {
	var out []Portfolio
	if err := c.Get(ctx, "/portfolios", &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) DeletePortfolio(ctx context.Context, id string) error {
	return c.Delete(ctx, "/portfolios/"+url.PathEscape(id), nil)
}

func (c *Client) Services(ctx context.Context) ([]Service, error) {
	var out []Service
	if err := c.Get(ctx, "/services", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Resource names a deletable api collection
type Resource string

const (
	ResourceArticles   Resource = "articles"
	ResourceCategories Resource = "categories"
	ResourcePortfolios Resource = "portfolios"
)

// Remove deletes id from the named collection
func (c *Client) Remove(ctx context.Context, resource Resource, id string) error {
	switch resource {
	case ResourceArticles:
		return c.DeleteArticle(ctx, id)
	case ResourceCategories:
		return c.DeleteCategory(ctx, id)
	case ResourcePortfolios:
		return c.DeletePortfolio(ctx, id)
	default:
		return goerrors.New(fmt.Sprintf("unknown resource %q", resource), goerrors.CategoryBadInput)
	}
}
