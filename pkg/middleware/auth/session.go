package middleware

import (
	"errors"
	"net/http"

	echojwt "github.com/labstack/echo-jwt/v4"
	"github.com/labstack/echo/v4"

	"github.com/shabdpress/blog_cms/pkg/tokens"
)

const (
	RoleAdmin    = "admin"
	RoleOperator = "operator"

	CtxIdentity = "identity"
	CtxUserID   = "user_id"
	CtxRole     = "role"
)

type SessionAuth struct {
	Issuer *tokens.Issuer
}

func NewSessionAuth(issuer *tokens.Issuer) *SessionAuth {
	return &SessionAuth{Issuer: issuer}
}

// Authenticate accepts only "Authorization: Bearer <access token>".
func (m *SessionAuth) Authenticate() echo.MiddlewareFunc {
	return m.middleware("header:Authorization:Bearer ")
}

// AuthenticateWithCookie falls back to a plain cookie carrying the access
// token, which the admin shell sets for server-side page checks.
func (m *SessionAuth) AuthenticateWithCookie(cookie string) echo.MiddlewareFunc {
	return m.middleware("header:Authorization:Bearer ,cookie:" + cookie)
}

// Optional attaches the identity when a valid bearer token is present and
// lets the request through untouched otherwise.
func (m *SessionAuth) Optional() echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup:            "header:Authorization:Bearer ",
		ContextKey:             CtxIdentity,
		ContinueOnIgnoredError: true,
		ParseTokenFunc:         m.parse,
		SuccessHandler:         m.attach,
		ErrorHandler:           func(echo.Context, error) error { return nil },
	})
}

func (m *SessionAuth) parse(_ echo.Context, auth string) (any, error) {
	return m.Issuer.VerifyAccessToken(auth)
}

func (m *SessionAuth) attach(c echo.Context) {
	if ident, ok := IdentityFrom(c); ok {
		c.Set(CtxUserID, ident.AccountID)
		c.Set(CtxRole, ident.Role)
	}
}

func (m *SessionAuth) middleware(lookup string) echo.MiddlewareFunc {
	return echojwt.WithConfig(echojwt.Config{
		TokenLookup:    lookup,
		ContextKey:     CtxIdentity,
		ParseTokenFunc: m.parse,
		SuccessHandler: m.attach,
		ErrorHandler: func(c echo.Context, err error) error {
			switch {
			case errors.Is(err, tokens.ErrTokenExpired):
				return echo.NewHTTPError(http.StatusUnauthorized, "access token expired")
			case errors.Is(err, tokens.ErrTokenMalformed):
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid access token")
			default:
				return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
			}
		},
	})
}

func IdentityFrom(c echo.Context) (*tokens.Identity, bool) {
	ident, ok := c.Get(CtxIdentity).(*tokens.Identity)
	return ident, ok && ident != nil
}

// Satisfies reports whether a caller with role actual may perform an action
// scoped to role expected. Admin satisfies every role.
func Satisfies(actual, expected string) bool {
	if actual == RoleAdmin {
		return true
	}
	return actual == expected
}

func RequireRole(expected string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ident, ok := IdentityFrom(c)
			if !ok || ident.Role == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid or missing role")
			}
			if !Satisfies(ident.Role, expected) {
				return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights")
			}
			return next(c)
		}
	}
}

func RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return RequireRole(RoleAdmin)(next)
}
