package httpserver

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/shabdpress/blog_cms/internal/service"
	"github.com/shabdpress/blog_cms/internal/transport"
	"github.com/shabdpress/blog_cms/pkg/logging"
)

type SubscriberHTTP struct {
	Svc *service.SubscriberService
}

func (h *SubscriberHTTP) Subscribe(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "subscriber.subscribe")

	var req transport.SubscribeRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "subscribe_error", err)
	}
	sub, created, err := h.Svc.Subscribe(ctx, req.Email)
	if err != nil {
		return fail(l, "subscribe_failed", err)
	}

	code := http.StatusOK
	if created {
		code = http.StatusCreated
	}
	return c.JSON(code, sub)
}

func (h *SubscriberHTTP) List(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "subscriber.list")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.List(ctx, offset, limit)
	if err != nil {
		return fail(l, "get_subscribers_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewPage(items, page, limit, total))
}

func (h *SubscriberHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "subscriber.delete")

	id, err := parseID(c)
	if err != nil {
		return fail(l, "delete_subscriber_error", err)
	}
	if err := h.Svc.Delete(ctx, id); err != nil {
		return fail(l, "delete_subscriber_failed", err)
	}
	return c.NoContent(http.StatusNoContent)
}
