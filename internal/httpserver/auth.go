package httpserver

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/shabdpress/blog_cms/internal/models"
	"github.com/shabdpress/blog_cms/internal/service"
	"github.com/shabdpress/blog_cms/internal/transport"
	"github.com/shabdpress/blog_cms/pkg/logging"
	authmw "github.com/shabdpress/blog_cms/pkg/middleware/auth"
)

type AuthHTTP struct {
	Svc          *service.AuthService
	CookieSecure bool
}

// actorFrom turns the identity left by the session middleware into a service actor.
func actorFrom(c echo.Context) (*service.Actor, error) {
	ident, ok := authmw.IdentityFrom(c)
	if !ok {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
	}
	id, err := uuid.Parse(ident.AccountID)
	if err != nil {
		return nil, echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
	}
	return &service.Actor{ID: id, Role: models.Role(ident.Role)}, nil
}

func (h *AuthHTTP) Login(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.login")

	var req transport.LoginRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "login_error", err)
	}

	res, err := h.Svc.Login(ctx, req.Username, req.Password, req.Role)
	if err != nil {
		return fail(l, "login_failed", err)
	}

	c.SetCookie(refreshCookie(res.RefreshToken, res.RefreshExp, h.CookieSecure))
	l.Info("login_successful", "account_id", res.AccountID)
	return c.JSON(http.StatusOK, transport.LoginResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Role:         string(res.Role),
	})
}

// refreshTokenFrom looks in the cookie, then the JSON body, then the header.
func refreshTokenFrom(c echo.Context) string {
	if ck, err := c.Cookie(RefreshCookie); err == nil && ck.Value != "" {
		return ck.Value
	}
	var body transport.RefreshRequest
	if err := c.Bind(&body); err == nil && body.RefreshToken != "" {
		return body.RefreshToken
	}
	return strings.TrimSpace(c.Request().Header.Get(RefreshHeader))
}

func (h *AuthHTTP) Refresh(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.refresh")

	res, err := h.Svc.Refresh(ctx, refreshTokenFrom(c))
	if err != nil {
		c.SetCookie(clearRefreshCookie(h.CookieSecure))
		return fail(l, "refresh_failed", err)
	}

	c.SetCookie(refreshCookie(res.RefreshToken, res.RefreshExp, h.CookieSecure))
	l.Info("refresh_successful", "account_id", res.AccountID)
	return c.JSON(http.StatusOK, transport.RefreshResponse{
		AccessToken:  res.AccessToken,
		RefreshToken: res.RefreshToken,
		Role:         string(res.Role),
	})
}

// Logout works with a live access token or, once that has expired, with the
// refresh token alone. It always clears the cookie.
func (h *AuthHTTP) Logout(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.logout")

	var err error
	if actor, aerr := actorFrom(c); aerr == nil {
		err = h.Svc.Logout(ctx, actor.ID)
	} else if raw := refreshTokenFrom(c); raw != "" {
		err = h.Svc.LogoutWithRefreshToken(ctx, raw)
	}
	c.SetCookie(clearRefreshCookie(h.CookieSecure))
	if err != nil {
		return fail(l, "logout_failed", err)
	}

	l.Info("successful_logout")
	return c.JSON(http.StatusOK, echo.Map{"message": "logged out"})
}

func (h *AuthHTTP) VerifyToken(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, echo.Map{"role": actor.Role, "accountId": actor.ID})
}

func (h *AuthHTTP) UpdateCredentials(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "auth.update_credentials")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req transport.UpdateCredentialsRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_credentials_error", err)
	}

	acc, err := h.Svc.UpdateCredentials(ctx, actor.ID, req.CurrentPassword, req.NewUsername, req.NewPassword)
	if err != nil {
		return fail(l, "update_credentials_failed", err)
	}

	l.Info("update_credentials_success", "account_id", acc.ID)
	return c.JSON(http.StatusOK, echo.Map{
		"message":  "credentials updated",
		"username": acc.Username,
	})
}

type OperatorHTTP struct {
	Svc *service.AuthService
}

func parseID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: id is not a uuid", service.ErrValidation)
	}
	return id, nil
}

func (h *OperatorHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "operator.create")

	var req transport.CreateOperatorRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "create_operator_error", err)
	}
	acc, err := h.Svc.CreateOperator(ctx, req.Username, req.Password)
	if err != nil {
		return fail(l, "create_operator_failed", err)
	}

	l.Info("create_operator_success", "account_id", acc.ID)
	return c.JSON(http.StatusCreated, acc)
}

func (h *OperatorHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "operator.list")

	items, err := h.Svc.ListOperators(ctx)
	if err != nil {
		return fail(l, "list_operators_failed", err)
	}
	if items == nil {
		items = []models.Account{}
	}
	return c.JSON(http.StatusOK, echo.Map{"data": items})
}

func (h *OperatorHTTP) ToggleActive(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "operator.toggle_active")

	id, err := parseID(c)
	if err != nil {
		return fail(l, "toggle_active_error", err)
	}
	acc, err := h.Svc.ToggleActive(ctx, id)
	if err != nil {
		return fail(l, "toggle_active_failed", err)
	}

	l.Info("toggle_active_success", "account_id", acc.ID, "is_active", acc.IsActive)
	return c.JSON(http.StatusOK, acc)
}

func (h *OperatorHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "operator.delete")

	id, err := parseID(c)
	if err != nil {
		return fail(l, "delete_operator_error", err)
	}
	if err := h.Svc.DeleteOperator(ctx, id); err != nil {
		return fail(l, "delete_operator_failed", err)
	}

	l.Info("delete_operator_success", "account_id", id)
	return c.NoContent(http.StatusNoContent)
}
