package httpserver

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/shabdpress/blog_cms/pkg/db"
	"github.com/shabdpress/blog_cms/pkg/metrics"
	authmw "github.com/shabdpress/blog_cms/pkg/middleware/auth"
	"github.com/shabdpress/blog_cms/pkg/middleware/csrf"
)

type Deps struct {
	DB      *gorm.DB
	Session *authmw.SessionAuth
	Metrics *metrics.Metrics

	Auth        *AuthHTTP
	Operators   *OperatorHTTP
	Blogs       *BlogHTTP
	Categories  *CategoryHTTP
	Subscribers *SubscriberHTTP

	// LoginRatePerMinute limits login attempts per client IP; 0 disables it.
	LoginRatePerMinute int
	CSRFEnabled        bool
	CookieSecure       bool
	TrustedOrigins     []string
}

func Register(e *echo.Echo, d *Deps) {
	e.Validator = NewValidator()

	e.GET("/health/live", func(c echo.Context) error { return c.NoContent(http.StatusOK) })
	e.GET("/health/ready", func(c echo.Context) error {
		if err := db.Ping(c.Request().Context(), d.DB); err != nil {
			return echo.NewHTTPError(http.StatusServiceUnavailable, "database unavailable")
		}
		return c.NoContent(http.StatusOK)
	})
	e.GET("/metrics", echo.WrapHandler(d.Metrics.Handler()))

	e.GET("/blogs", d.Blogs.PublicList)
	e.GET("/blogs/search", d.Blogs.PublicSearch)
	e.GET("/blogs/:slug", d.Blogs.PublicGet)
	e.GET("/categories", d.Categories.List)
	e.POST("/subscribers", d.Subscribers.Subscribe)

	admin := e.Group("/admin")

	csrfMw := csrfMiddleware(d)
	admin.GET("/csrf", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"csrfToken": c.Get(csrf.ContextKey)})
	}, csrfMw)
	admin.POST("/login", d.Auth.Login, loginLimiter(d.LoginRatePerMinute))
	admin.POST("/refresh-token", d.Auth.Refresh, csrfMw)
	admin.POST("/logout", d.Auth.Logout, csrfMw, d.Session.Optional())
	admin.GET("/verify-token", d.Auth.VerifyToken, d.Session.AuthenticateWithCookie("token"))

	private := admin.Group("", d.Session.Authenticate())

	private.PUT("/credentials", d.Auth.UpdateCredentials, authmw.RequireAdmin)
	private.PUT("/operator/credentials", d.Auth.UpdateCredentials, authmw.RequireRole(authmw.RoleOperator))

	operators := private.Group("/operators", authmw.RequireAdmin)
	operators.POST("", d.Operators.Create)
	operators.GET("", d.Operators.List)
	operators.PATCH("/:id/toggle-active", d.Operators.ToggleActive)
	operators.DELETE("/:id", d.Operators.Delete)

	blogs := private.Group("/blogs")
	author := authmw.RequireRole(authmw.RoleOperator)
	blogs.POST("", d.Blogs.Create, author)
	blogs.GET("", d.Blogs.List, author)
	blogs.GET("/search", d.Blogs.Search, author)
	blogs.GET("/pending", d.Blogs.Pending, authmw.RequireAdmin)
	blogs.GET("/:id", d.Blogs.Get, author)
	blogs.PUT("/:id", d.Blogs.Update, author)
	blogs.DELETE("/:id", d.Blogs.Delete, authmw.RequireAdmin)
	blogs.POST("/:id/approve", d.Blogs.Approve, authmw.RequireAdmin)
	blogs.POST("/:id/reject", d.Blogs.Reject, authmw.RequireAdmin)
	blogs.PATCH("/:id/deactivate", d.Blogs.Deactivate, authmw.RequireAdmin)
	blogs.POST("/:id/deactivate", d.Blogs.Deactivate, authmw.RequireAdmin)

	categories := private.Group("/categories", authmw.RequireAdmin)
	categories.POST("", d.Categories.Create)
	categories.PUT("/:id", d.Categories.Update)
	categories.DELETE("/:id", d.Categories.Delete)

	subscribers := private.Group("/subscribers", authmw.RequireAdmin)
	subscribers.GET("", d.Subscribers.List)
	subscribers.DELETE("/:id", d.Subscribers.Delete)
}

func loginLimiter(perMinute int) echo.MiddlewareFunc {
	if perMinute <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(float64(perMinute) / 60),
		Burst:     perMinute,
		ExpiresIn: 3 * time.Minute,
	})
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return echo.NewHTTPError(http.StatusForbidden, "cannot identify client")
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return echo.NewHTTPError(http.StatusTooManyRequests, "too many login attempts")
		},
	})
}

// csrfMiddleware guards only requests whose refresh token rides in the cookie.
// Callers that send the token in the body, a header or a bearer token are exempt.
func csrfMiddleware(d *Deps) echo.MiddlewareFunc {
	if !d.CSRFEnabled {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	cfg := csrf.DefaultConfig()
	cfg.Secure = d.CookieSecure
	cfg.TrustedOrigins = d.TrustedOrigins
	cfg.CookiePath = "/admin"
	cfg.Skipper = func(c echo.Context) bool {
		r := c.Request()
		if r.Method == http.MethodGet {
			return false
		}
		if strings.HasPrefix(r.Header.Get(echo.HeaderAuthorization), "Bearer ") || r.Header.Get(RefreshHeader) != "" {
			return true
		}
		return !hasRefreshCookie(r)
	}
	return csrf.Middleware(cfg)
}
