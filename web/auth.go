package web

import (
	"errors"
	"net/http"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-portal"
	"github.com/goliatone/go-portal/apiclient"
	"github.com/goliatone/go-portal/middleware/guardware"
	"github.com/goliatone/go-print"
	"github.com/goliatone/go-router"
)

// LoginRequest payload
type LoginRequest struct {
	Identifier string `form:"identifier" json:"identifier"`
	Password   string `form:"password" json:"password"`
}

// Validate will run validation rules
func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(
			&r.Identifier,
			validation.Required,
			validation.Length(3, 255),
		),
		validation.Field(
			&r.Password,
			validation.Required,
		),
	)
}

func (c *Controller) LoginShow(ctx Context) error {
	return c.render(ctx, c.viewOf(ctx, "login"), router.ViewContext{
		"errors": nil,
		"record": nil,
	})
}

func (c *Controller) LoginPost(ctx Context) error {
	payload := new(LoginRequest)
	stdCtx := ctx.Context()

	if err := ctx.Bind(payload); err != nil {
		c.Logger.Debug("login: unable to bind payload: %s", err)
		return c.renderLogin(ctx, payload, map[string]string{"form": "Invalid login request"})
	}

	if err := payload.Validate(); err != nil {
		return c.renderLogin(ctx, payload, validationErrors(err))
	}

	if c.Debug {
		c.Logger.Debug("login attempt: %s", print.MaybePrettyJSON(map[string]string{
			"identifier": payload.Identifier,
		}))
	}

	s := c.session(ctx)
	token, err := s.client.Login(stdCtx, apiclient.Credentials{
		Identifier: payload.Identifier,
		Password:   payload.Password,
	})
	if err != nil {
		c.record(ctx, portal.ActivityEventLoginFailure, map[string]any{
			"identifier": payload.Identifier,
			"status":     apiclient.StatusCode(err),
		})
		c.notifications(ctx).Error(loginFailureMessage(err))
		return c.renderLogin(ctx, payload, map[string]string{"form": loginFailureMessage(err)})
	}

	if err := s.store.SetToken(stdCtx, token); err != nil {
		c.Logger.Error("login: unable to store session token: %s", err)
		c.notifications(ctx).Error("Unable to start your session")
		return c.renderLogin(ctx, payload, map[string]string{"form": "Unable to start your session"})
	}

	c.record(ctx, portal.ActivityEventLoginSuccess, map[string]any{
		"identifier": payload.Identifier,
	})
	c.notifications(ctx).Success("Welcome back!")

	target := guardware.RecallRoute(ctx, c.RejectedRouteKey, c.RejectedRouteDefault, !c.InsecureCookies)
	return ctx.Redirect(target, http.StatusSeeOther)
}

func (c *Controller) Logout(ctx Context) error {
	s := c.session(ctx)
	stdCtx := ctx.Context()

	if err := s.store.ClearToken(stdCtx); err != nil {
		c.Logger.Error("logout: unable to clear session token: %s", err)
	}

	c.record(ctx, portal.ActivityEventLogout, nil)
	c.notifications(ctx).Info("You have been signed out")

	return ctx.Redirect(c.Guard.LoginPath(), guardware.RedirectStatus(ctx.Method()))
}

func (c *Controller) renderLogin(ctx Context, payload *LoginRequest, errs map[string]string) error {
	ctx.Status(http.StatusUnprocessableEntity)
	return c.render(ctx, c.viewOf(ctx, "login"), router.ViewContext{
		"errors": errs,
		"record": map[string]string{"identifier": payload.Identifier},
	})
}

func loginFailureMessage(err error) string {
	if errors.Is(err, apiclient.ErrMissingToken) {
		return "The server did not start a session"
	}
	switch apiclient.StatusCode(err) {
	case http.StatusUnauthorized, http.StatusUnprocessableEntity, http.StatusBadRequest:
		return "Invalid credentials"
	default:
		return errorMessage(err)
	}
}

func validationErrors(err error) map[string]string {
	out := map[string]string{}
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		for field, ferr := range verrs {
			out[field] = ferr.Error()
		}
		return out
	}
	out["form"] = err.Error()
	return out
}
