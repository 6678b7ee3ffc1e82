package httpserver

import (
	"net/http"
	"time"
)

const (
	RefreshCookie     = "refreshToken"
	RefreshHeader     = "X-Refresh-Token"
	refreshCookiePath = "/admin"
)

func refreshCookie(value string, exp time.Time, secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookie,
		Value:    value,
		Path:     refreshCookiePath,
		Expires:  exp,
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func clearRefreshCookie(secure bool) *http.Cookie {
	return &http.Cookie{
		Name:     RefreshCookie,
		Value:    "",
		Path:     refreshCookiePath,
		MaxAge:   -1,
		Expires:  time.Unix(0, 0),
		HttpOnly: true,
		Secure:   secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// hasRefreshCookie reports whether the refresh token rides in a cookie, which
// is the only case the CSRF check applies to.
func hasRefreshCookie(r *http.Request) bool {
	ck, err := r.Cookie(RefreshCookie)
	return err == nil && ck.Value != ""
}
