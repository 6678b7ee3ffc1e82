package csrf

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newServer(cfg Config) *echo.Echo {
	e := echo.New()
	e.Use(Middleware(cfg))
	ok := func(c echo.Context) error { return c.NoContent(http.StatusOK) }
	e.GET("/form", ok)
	e.POST("/submit", ok)
	return e
}

func TestCSRF_IssuesTokenOnSafeMethod(t *testing.T) {
	e := newServer(Config{})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/form", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	tok := rec.Header().Get("X-CSRF-Token")
	require.NotEmpty(t, tok)

	var found bool
	for _, ck := range rec.Result().Cookies() {
		if ck.Name == "XSRF-TOKEN" {
			found = true
			assert.Equal(t, tok, ck.Value)
			assert.False(t, ck.HttpOnly)
		}
	}
	assert.True(t, found)
}

func TestCSRF_UnsafeMethods(t *testing.T) {
	cfg := DefaultConfig()
	cfg.TrustedOrigins = []string{"https://admin.example.com"}

	tests := []struct {
		name   string
		cfg    *Config
		origin string
		cookie string
		header string
		want   int
	}{
		{name: "matching token", origin: "http://example.com", cookie: "abc", header: "abc", want: http.StatusOK},
		{name: "trusted origin", origin: "https://admin.example.com", cookie: "abc", header: "abc", want: http.StatusOK},
		{name: "missing header", origin: "http://example.com", cookie: "abc", want: http.StatusForbidden},
		{name: "mismatched token", origin: "http://example.com", cookie: "abc", header: "xyz", want: http.StatusForbidden},
		{name: "foreign origin", origin: "https://evil.test", cookie: "abc", header: "abc", want: http.StatusForbidden},
		{name: "no origin", cookie: "abc", header: "abc", want: http.StatusForbidden},
		{name: "zero config checks origin", cfg: &Config{}, origin: "https://evil.test", cookie: "abc", header: "abc", want: http.StatusForbidden},
		{name: "origin check skipped", cfg: &Config{SkipOriginCheck: true}, origin: "https://evil.test", cookie: "abc", header: "abc", want: http.StatusOK},
		{name: "origin check skipped still needs token", cfg: &Config{SkipOriginCheck: true}, cookie: "abc", header: "xyz", want: http.StatusForbidden},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			c := cfg
			if tt.cfg != nil {
				c = *tt.cfg
			}
			e := newServer(c)
			req := httptest.NewRequest(http.MethodPost, "/submit", nil)
			req.Host = "example.com"
			if tt.origin != "" {
				req.Header.Set("Origin", tt.origin)
			}
			req.AddCookie(&http.Cookie{Name: "XSRF-TOKEN", Value: tt.cookie})
			if tt.header != "" {
				req.Header.Set("X-CSRF-Token", tt.header)
			}
			rec := httptest.NewRecorder()
			e.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCSRF_Skipper(t *testing.T) {
	e := newServer(Config{Skipper: func(c echo.Context) bool { return true }})

	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/submit", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}
