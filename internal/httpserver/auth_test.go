package httpserver

import (
	"net/http"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shabdpress/blog_cms/internal/models"
	"github.com/shabdpress/blog_cms/internal/transport"
)

func TestLogin(t *testing.T) {
	te := newTestEnv(t)

	rec := te.do(t, http.MethodPost, "/admin/login", echo.Map{"username": "admin", "password": "adminpass", "role": "admin"})
	require.Equal(t, http.StatusOK, rec.Code)

	out := decode[transport.LoginResponse](t, rec)
	assert.NotEmpty(t, out.AccessToken)
	assert.NotEmpty(t, out.RefreshToken)
	assert.Equal(t, "admin", out.Role)

	ck := responseCookie(rec, RefreshCookie)
	require.NotNil(t, ck)
	assert.Equal(t, out.RefreshToken, ck.Value)
	assert.True(t, ck.HttpOnly)
	assert.Equal(t, "/admin", ck.Path)
}

func TestLogin_Failures(t *testing.T) {
	te := newTestEnv(t)

	tests := []struct {
		name string
		body echo.Map
		code int
		msg  string
	}{
		{name: "wrong password", body: echo.Map{"username": "admin", "password": "nope"}, code: http.StatusUnauthorized, msg: "invalid username or password"},
		{name: "unknown user", body: echo.Map{"username": "ghost", "password": "nope"}, code: http.StatusUnauthorized, msg: "invalid username or password"},
		{name: "missing password", body: echo.Map{"username": "admin"}, code: http.StatusBadRequest},
		{name: "unknown role", body: echo.Map{"username": "admin", "password": "adminpass", "role": "editor"}, code: http.StatusBadRequest},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			rec := te.do(t, http.MethodPost, "/admin/login", tt.body)
			assert.Equal(t, tt.code, rec.Code)
			if tt.msg != "" {
				assert.Equal(t, tt.msg, message(t, rec))
			}
			assert.Nil(t, responseCookie(rec, RefreshCookie))
		})
	}
}

func TestLogin_DeactivatedOperator(t *testing.T) {
	te := newTestEnv(t)
	admin := te.login(t, "admin", "adminpass")

	ops := decode[struct{ Data []models.Account }](t, te.do(t, http.MethodGet, "/admin/operators", nil, withBearer(admin.AccessToken)))
	require.Len(t, ops.Data, 1)

	rec := te.do(t, http.MethodPatch, "/admin/operators/"+ops.Data[0].ID.String()+"/toggle-active", nil, withBearer(admin.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.False(t, decode[models.Account](t, rec).IsActive)

	rec = te.do(t, http.MethodPost, "/admin/login", echo.Map{"username": "op", "password": "oppass1", "role": "operator"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Contains(t, message(t, rec), "deactivated")
	assert.Nil(t, responseCookie(rec, RefreshCookie))
}

func TestLogin_Lockout(t *testing.T) {
	te := newTestEnv(t)
	for i := 0; i < 3; i++ {
		te.do(t, http.MethodPost, "/admin/login", echo.Map{"username": "admin", "password": "wrong"})
	}
	rec := te.do(t, http.MethodPost, "/admin/login", echo.Map{"username": "admin", "password": "adminpass"})
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
}

func TestLogin_RateLimited(t *testing.T) {
	te := newTestEnv(t, func(d *Deps) { d.LoginRatePerMinute = 2 })
	body := echo.Map{"username": "admin", "password": "adminpass"}

	assert.Equal(t, http.StatusOK, te.do(t, http.MethodPost, "/admin/login", body).Code)
	assert.Equal(t, http.StatusOK, te.do(t, http.MethodPost, "/admin/login", body).Code)
	assert.Equal(t, http.StatusTooManyRequests, te.do(t, http.MethodPost, "/admin/login", body).Code)
}

func TestRefresh_Sources(t *testing.T) {
	te := newTestEnv(t)
	first := te.login(t, "admin", "adminpass")

	rec := te.do(t, http.MethodPost, "/admin/refresh-token", nil, withCookie(RefreshCookie, first.RefreshToken))
	require.Equal(t, http.StatusOK, rec.Code)
	second := decode[transport.RefreshResponse](t, rec)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)
	assert.Equal(t, "admin", second.Role)
	require.NotNil(t, responseCookie(rec, RefreshCookie))
	assert.Equal(t, second.RefreshToken, responseCookie(rec, RefreshCookie).Value)

	// the token from before the rotation is dead
	rec = te.do(t, http.MethodPost, "/admin/refresh-token", echo.Map{"refreshToken": first.RefreshToken})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = te.do(t, http.MethodPost, "/admin/refresh-token", echo.Map{"refreshToken": second.RefreshToken})
	require.Equal(t, http.StatusOK, rec.Code)
	third := decode[transport.RefreshResponse](t, rec)

	rec = te.do(t, http.MethodPost, "/admin/refresh-token", nil, withHeader(RefreshHeader, third.RefreshToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = te.do(t, http.MethodPost, "/admin/refresh-token", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestLogout(t *testing.T) {
	te := newTestEnv(t)

	s := te.login(t, "admin", "adminpass")
	rec := te.do(t, http.MethodPost, "/admin/logout", nil, withBearer(s.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	ck := responseCookie(rec, RefreshCookie)
	require.NotNil(t, ck)
	assert.Empty(t, ck.Value)
	assert.Equal(t, http.StatusUnauthorized, te.do(t, http.MethodPost, "/admin/refresh-token", echo.Map{"refreshToken": s.RefreshToken}).Code)

	// expired access token: the refresh cookie alone is enough
	s = te.login(t, "admin", "adminpass")
	rec = te.do(t, http.MethodPost, "/admin/logout", nil, withBearer("garbage"), withCookie(RefreshCookie, s.RefreshToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, http.StatusUnauthorized, te.do(t, http.MethodPost, "/admin/refresh-token", echo.Map{"refreshToken": s.RefreshToken}).Code)

	assert.Equal(t, http.StatusOK, te.do(t, http.MethodPost, "/admin/logout", nil).Code)
}

func TestVerifyToken(t *testing.T) {
	te := newTestEnv(t)
	s := te.login(t, "op", "oppass1")

	rec := te.do(t, http.MethodGet, "/admin/verify-token", nil, withBearer(s.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "operator", decode[map[string]any](t, rec)["role"])

	rec = te.do(t, http.MethodGet, "/admin/verify-token", nil, withCookie("token", s.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, te.do(t, http.MethodGet, "/admin/verify-token", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, te.do(t, http.MethodGet, "/admin/verify-token", nil, withBearer(s.RefreshToken)).Code)
}

func TestUpdateCredentials(t *testing.T) {
	te := newTestEnv(t)
	op := te.login(t, "op", "oppass1")
	admin := te.login(t, "admin", "adminpass")

	rec := te.do(t, http.MethodPut, "/admin/credentials", echo.Map{"currentPassword": "oppass1", "newPassword": "another1"}, withBearer(op.AccessToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = te.do(t, http.MethodPut, "/admin/operator/credentials", echo.Map{"currentPassword": "wrong", "newPassword": "another1"}, withBearer(op.AccessToken))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = te.do(t, http.MethodPut, "/admin/operator/credentials", echo.Map{"currentPassword": "oppass1"}, withBearer(op.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = te.do(t, http.MethodPut, "/admin/operator/credentials", echo.Map{"currentPassword": "oppass1", "newUsername": "writer", "newPassword": "another1"}, withBearer(op.AccessToken))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "writer", decode[map[string]any](t, rec)["username"])
	te.login(t, "writer", "another1")

	// admin passes every role gate
	rec = te.do(t, http.MethodPut, "/admin/operator/credentials", echo.Map{"currentPassword": "adminpass", "newPassword": "rootroot"}, withBearer(admin.AccessToken))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLongPasswordsAreBadRequests(t *testing.T) {
	te := newTestEnv(t)
	op := te.login(t, "op", "oppass1")
	admin := te.login(t, "admin", "adminpass")

	ascii := strings.Repeat("x", 100)
	// 30 runes pass the length tag but are 90 bytes
	devanagari := strings.Repeat("क", 30)

	for _, pw := range []string{ascii, devanagari} {
		rec := te.do(t, http.MethodPost, "/admin/operators", echo.Map{"username": "second", "password": pw}, withBearer(admin.AccessToken))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

		rec = te.do(t, http.MethodPut, "/admin/operator/credentials", echo.Map{"currentPassword": "oppass1", "newPassword": pw}, withBearer(op.AccessToken))
		assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
	}
	te.login(t, "op", "oppass1")
}

func TestOperators(t *testing.T) {
	te := newTestEnv(t)
	admin := te.login(t, "admin", "adminpass")

	rec := te.do(t, http.MethodPost, "/admin/operators", echo.Map{"username": "second", "password": "secret1"}, withBearer(admin.AccessToken))
	require.Equal(t, http.StatusCreated, rec.Code)
	created := decode[models.Account](t, rec)
	assert.Equal(t, models.RoleOperator, created.Role)
	assert.True(t, created.IsActive)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = te.do(t, http.MethodPost, "/admin/operators", echo.Map{"username": "second", "password": "secret1"}, withBearer(admin.AccessToken))
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = te.do(t, http.MethodPost, "/admin/operators", echo.Map{"username": "x", "password": "1"}, withBearer(admin.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = te.do(t, http.MethodDelete, "/admin/operators/"+created.ID.String(), nil, withBearer(admin.AccessToken))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	rec = te.do(t, http.MethodDelete, "/admin/operators/"+created.ID.String(), nil, withBearer(admin.AccessToken))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = te.do(t, http.MethodDelete, "/admin/operators/not-a-uuid", nil, withBearer(admin.AccessToken))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCSRF_CookieBorneRefresh(t *testing.T) {
	te := newTestEnv(t, func(d *Deps) { d.CSRFEnabled = true })
	s := te.login(t, "admin", "adminpass")

	rec := te.do(t, http.MethodPost, "/admin/refresh-token", nil, withCookie(RefreshCookie, s.RefreshToken))
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = te.do(t, http.MethodGet, "/admin/csrf", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	token, _ := decode[map[string]any](t, rec)["csrfToken"].(string)
	require.NotEmpty(t, token)

	rec = te.do(t, http.MethodPost, "/admin/refresh-token", nil,
		withCookie(RefreshCookie, s.RefreshToken),
		withCookie("XSRF-TOKEN", token),
		withHeader("X-CSRF-Token", token),
		withHeader("Origin", "http://example.com"),
	)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	next := decode[transport.RefreshResponse](t, rec)

	// token in the body is not forgeable cross-site
	rec = te.do(t, http.MethodPost, "/admin/refresh-token", echo.Map{"refreshToken": next.RefreshToken})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	te := newTestEnv(t)
	for _, path := range []string{"/admin/blogs", "/admin/blogs/pending", "/admin/operators", "/admin/subscribers"} {
		rec := te.do(t, http.MethodGet, path, nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code, path)
	}
	rec := te.do(t, http.MethodGet, "/admin/blogs", nil, withBearer("not.a.jwt"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid access token", message(t, rec))
}

func TestHealthAndMetrics(t *testing.T) {
	te := newTestEnv(t)
	assert.Equal(t, http.StatusOK, te.do(t, http.MethodGet, "/health/live", nil).Code)
	assert.Equal(t, http.StatusOK, te.do(t, http.MethodGet, "/health/ready", nil).Code)

	te.login(t, "admin", "adminpass")
	rec := te.do(t, http.MethodGet, "/metrics", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `test_logins_total{result="success"} 1`)
}
