package httpserver

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shabdpress/blog_cms/internal/service"
)

type failure struct {
	code int
	msg  string
}

// classify maps service sentinels onto a status code and the message shown
// to the caller. Deactivated wraps InvalidCredentials and must be checked first.
func classify(err error) failure {
	switch {
	case errors.Is(err, service.ErrAccountDeactivated):
		return failure{http.StatusUnauthorized, "account is deactivated"}
	case errors.Is(err, service.ErrInvalidCredentials):
		return failure{http.StatusUnauthorized, "invalid username or password"}
	case errors.Is(err, service.ErrRefreshInvalid):
		return failure{http.StatusUnauthorized, "invalid refresh token"}
	case errors.Is(err, service.ErrValidation):
		return failure{http.StatusBadRequest, err.Error()}
	case errors.Is(err, service.ErrNoChangeRequested):
		return failure{http.StatusBadRequest, "nothing to update"}
	case errors.Is(err, service.ErrForbidden):
		return failure{http.StatusForbidden, "you don't have enough rights"}
	case errors.Is(err, service.ErrNotFound):
		return failure{http.StatusNotFound, "not found"}
	case errors.Is(err, service.ErrConflict):
		return failure{http.StatusConflict, "already exists"}
	case errors.Is(err, service.ErrInvalidTransition):
		return failure{http.StatusConflict, "invalid status transition"}
	case errors.Is(err, service.ErrTooManyAttempts):
		return failure{http.StatusTooManyRequests, "too many failed attempts"}
	default:
		return failure{http.StatusInternalServerError, "internal error"}
	}
}

// fail logs the outcome under event and returns the matching HTTP error.
func fail(l *slog.Logger, event string, err error) error {
	f := classify(err)
	if f.code >= http.StatusInternalServerError {
		l.Error(event, "status", f.code, "error", err)
	} else {
		l.Warn(event, "status", f.code, "reason", f.msg, "error", err)
	}
	return echo.NewHTTPError(f.code, f.msg)
}
