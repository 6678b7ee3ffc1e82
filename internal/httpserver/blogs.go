package httpserver

import (
	"fmt"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/shabdpress/blog_cms/internal/service"
	"github.com/shabdpress/blog_cms/internal/transport"
	"github.com/shabdpress/blog_cms/internal/util"
	"github.com/shabdpress/blog_cms/pkg/logging"
)

type BlogHTTP struct {
	Svc *service.BlogService
}

func pageParams(c echo.Context) (page, offset, limit int) {
	return util.Calculate(
		util.ParseIntDefault(c.QueryParam("page"), 1),
		util.ParseIntDefault(c.QueryParam("size"), util.DefaultPageSize),
	)
}

func categoryParam(c echo.Context) (*uuid.UUID, error) {
	raw := c.QueryParam("category")
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("%w: category is not a uuid", service.ErrValidation)
	}
	return &id, nil
}

func (h *BlogHTTP) Create(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.create")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	var req transport.CreateBlogRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "create_blog_error", err)
	}

	b, err := h.Svc.Create(ctx, actor, req)
	if err != nil {
		return fail(l, "create_blog_failed", err)
	}

	l.Info("create_blog_success", "blog_id", b.ID, "status", b.Status)
	return c.JSON(http.StatusCreated, b)
}

func (h *BlogHTTP) Update(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.update")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return fail(l, "update_blog_error", err)
	}
	var req transport.UpdateBlogRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "update_blog_error", err)
	}

	b, err := h.Svc.Update(ctx, actor, id, req)
	if err != nil {
		return fail(l, "update_blog_failed", err)
	}

	l.Info("update_blog_success", "blog_id", b.ID, "status", b.Status)
	return c.JSON(http.StatusOK, b)
}

func (h *BlogHTTP) Delete(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.delete")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return fail(l, "delete_blog_error", err)
	}
	if err := h.Svc.Delete(ctx, actor, id); err != nil {
		return fail(l, "delete_blog_failed", err)
	}

	l.Info("delete_blog_success", "blog_id", id)
	return c.NoContent(http.StatusNoContent)
}

func (h *BlogHTTP) Approve(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.approve")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return fail(l, "approve_blog_error", err)
	}
	b, err := h.Svc.Approve(ctx, actor, id)
	if err != nil {
		return fail(l, "approve_blog_failed", err)
	}

	l.Info("approve_blog_success", "blog_id", b.ID)
	return c.JSON(http.StatusOK, b)
}

func (h *BlogHTTP) Reject(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.reject")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return fail(l, "reject_blog_error", err)
	}
	var req transport.RejectRequest
	if err := bind(c, &req); err != nil {
		return fail(l, "reject_blog_error", err)
	}
	b, err := h.Svc.Reject(ctx, actor, id, req.Reason)
	if err != nil {
		return fail(l, "reject_blog_failed", err)
	}

	l.Info("reject_blog_success", "blog_id", b.ID)
	return c.JSON(http.StatusOK, b)
}

func (h *BlogHTTP) Deactivate(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.deactivate")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return fail(l, "deactivate_blog_error", err)
	}
	b, err := h.Svc.Deactivate(ctx, actor, id)
	if err != nil {
		return fail(l, "deactivate_blog_failed", err)
	}

	l.Info("deactivate_blog_success", "blog_id", b.ID)
	return c.JSON(http.StatusOK, b)
}

func (h *BlogHTTP) Get(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.get")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	id, err := parseID(c)
	if err != nil {
		return fail(l, "get_blog_error", err)
	}
	b, err := h.Svc.Get(ctx, actor, id)
	if err != nil {
		return fail(l, "get_blog_failed", err)
	}
	return c.JSON(http.StatusOK, b)
}

// list serves both the admin console and the reader site. The actor is nil
// on public routes.
func (h *BlogHTTP) list(c echo.Context, actor *service.Actor) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.list")

	category, err := categoryParam(c)
	if err != nil {
		return fail(l, "get_blogs_error", err)
	}
	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.List(ctx, actor, category, offset, limit)
	if err != nil {
		return fail(l, "get_blogs_error", err)
	}

	l.Info("get_blogs_success", "total", total)
	return c.JSON(http.StatusOK, transport.NewPage(items, page, limit, total))
}

func (h *BlogHTTP) search(c echo.Context, actor *service.Actor) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.search")

	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.Search(ctx, actor, c.QueryParam("q"), offset, limit)
	if err != nil {
		return fail(l, "search_blogs_error", err)
	}

	l.Info("search_blogs_success", "total", total)
	return c.JSON(http.StatusOK, transport.NewPage(items, page, limit, total))
}

func (h *BlogHTTP) List(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	return h.list(c, actor)
}

func (h *BlogHTTP) Search(c echo.Context) error {
	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	return h.search(c, actor)
}

func (h *BlogHTTP) PublicList(c echo.Context) error { return h.list(c, nil) }

func (h *BlogHTTP) PublicSearch(c echo.Context) error { return h.search(c, nil) }

func (h *BlogHTTP) Pending(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.pending")

	actor, err := actorFrom(c)
	if err != nil {
		return err
	}
	page, offset, limit := pageParams(c)
	total, items, err := h.Svc.Pending(ctx, actor, offset, limit)
	if err != nil {
		return fail(l, "get_pending_error", err)
	}
	return c.JSON(http.StatusOK, transport.NewPage(items, page, limit, total))
}

func (h *BlogHTTP) PublicGet(c echo.Context) error {
	ctx := c.Request().Context()
	l := logging.FromContext(ctx).With("handler", "blog.public_get")

	b, err := h.Svc.GetPublished(ctx, c.Param("slug"), c.QueryParam("lang"))
	if err != nil {
		return fail(l, "get_blog_failed", err)
	}
	return c.JSON(http.StatusOK, b)
}
