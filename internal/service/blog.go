package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/shabdpress/blog_cms/internal/events"
	"github.com/shabdpress/blog_cms/internal/models"
	"github.com/shabdpress/blog_cms/internal/repo"
	"github.com/shabdpress/blog_cms/internal/search"
	"github.com/shabdpress/blog_cms/internal/transport"
	"github.com/shabdpress/blog_cms/pkg/logging"
	"github.com/shabdpress/blog_cms/pkg/metrics"
)

type BlogService struct {
	Repo    *repo.GormRepo
	Index   search.Index
	Events  events.Publisher
	Metrics *metrics.Metrics
	Now     func() time.Time
}

func (s *BlogService) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now().UTC()
}

func (s *BlogService) index() search.Index {
	if s.Index == nil {
		return search.Database{Repo: s.Repo}
	}
	return s.Index
}

func parseStatus(raw *string) (*models.Status, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	st := models.Status(*raw)
	if !st.Valid() {
		return nil, validation("unknown status " + *raw)
	}
	return &st, nil
}

func (s *BlogService) resolveCategory(ctx context.Context, raw *string) (*uuid.UUID, error) {
	if raw == nil || *raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(*raw)
	if err != nil {
		return nil, validation("categoryId is not a uuid")
	}
	if _, err := s.Repo.CategoryByID(ctx, id); err != nil {
		if isNotFound(err) {
			return nil, validation("unknown category")
		}
		return nil, storeErr("find category", err)
	}
	return &id, nil
}

func (s *BlogService) slugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	return s.Repo.SlugTaken(ctx, &models.Blog{}, slug, exclude)
}

// Create stores a new blog. Operators always create pending items; admins
// get published unless they ask for another status.
func (s *BlogService) Create(ctx context.Context, actor *Actor, req transport.CreateBlogRequest) (*models.Blog, error) {
	l := logging.FromContext(ctx).With("svc", "blog.create")
	if actor == nil {
		return nil, ErrForbidden
	}
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return nil, validation("title is required")
	}

	requested, err := parseStatus(req.Status)
	if err != nil {
		return nil, err
	}
	status := models.StatusPending
	if actor.IsAdmin() {
		status = models.StatusPublished
		if requested != nil {
			status = *requested
		}
	}

	categoryID, err := s.resolveCategory(ctx, req.CategoryID)
	if err != nil {
		return nil, err
	}
	slug, err := uniqueSlug(ctx, title, uuid.Nil, s.slugTaken)
	if err != nil {
		return nil, storeErr("derive slug", err)
	}

	b := &models.Blog{
		Title:        title,
		TitleHindi:   strings.TrimSpace(req.TitleHindi),
		Excerpt:      req.Excerpt,
		ExcerptHindi: req.ExcerptHindi,
		Content:      req.Content,
		ContentHindi: req.ContentHindi,
		ImageURL:     req.ImageURL,
		Slug:         slug,
		Status:       status,
		CategoryID:   categoryID,
		CreatedBy:    actor.ID,
	}
	if err := s.Repo.CreateBlog(ctx, b); err != nil {
		l.Error("create_blog_failed", "error", err)
		return nil, storeErr("create blog", err)
	}

	s.afterWrite(ctx, b, "blog_created")
	s.Metrics.Transition("create", string(b.Status))
	l.Info("create_blog_success", "blog_id", b.ID, "status", b.Status, "role", actor.Role)
	return b, nil
}

// Update applies the allow-listed fields of req. An operator may only edit
// their own items and every operator edit sends the item back to pending.
func (s *BlogService) Update(ctx context.Context, actor *Actor, id uuid.UUID, req transport.UpdateBlogRequest) (*models.Blog, error) {
	l := logging.FromContext(ctx).With("svc", "blog.update", "blog_id", id)

	b, err := s.Repo.BlogByID(ctx, id)
	if err != nil {
		return nil, storeErr("find blog", err)
	}
	if actor == nil || (!actor.IsAdmin() && !actor.Owns(b)) {
		l.Warn("update_blog_failed", "status", 403, "reason", "not the owner")
		return nil, ErrForbidden
	}

	requested, err := parseStatus(req.Status)
	if err != nil {
		return nil, err
	}

	if req.Title != nil {
		title := strings.TrimSpace(*req.Title)
		if title == "" {
			return nil, validation("title is required")
		}
		if title != b.Title {
			b.Title = title
			if b.Slug, err = uniqueSlug(ctx, title, b.ID, s.slugTaken); err != nil {
				return nil, storeErr("derive slug", err)
			}
		}
	}
	if req.TitleHindi != nil {
		b.TitleHindi = strings.TrimSpace(*req.TitleHindi)
	}
	if req.Excerpt != nil {
		b.Excerpt = *req.Excerpt
	}
	if req.ExcerptHindi != nil {
		b.ExcerptHindi = *req.ExcerptHindi
	}
	if req.Content != nil {
		b.Content = *req.Content
	}
	if req.ContentHindi != nil {
		b.ContentHindi = *req.ContentHindi
	}
	if req.ImageURL != nil {
		b.ImageURL = *req.ImageURL
	}
	if req.CategoryID != nil {
		if b.CategoryID, err = s.resolveCategory(ctx, req.CategoryID); err != nil {
			return nil, err
		}
	}

	switch {
	case !actor.IsAdmin():
		b.Status = models.StatusPending
	case requested != nil:
		b.Status = *requested
	}

	if err := s.Repo.SaveBlog(ctx, b); err != nil {
		l.Error("update_blog_failed", "error", err)
		return nil, storeErr("save blog", err)
	}

	s.afterWrite(ctx, b, "blog_updated")
	s.Metrics.Transition("edit", string(b.Status))
	l.Info("update_blog_success", "status", b.Status, "role", actor.Role)
	return b, nil
}

func (s *BlogService) Delete(ctx context.Context, actor *Actor, id uuid.UUID) error {
	l := logging.FromContext(ctx).With("svc", "blog.delete", "blog_id", id)
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if err := s.Repo.DeleteBlog(ctx, id); err != nil {
		return storeErr("delete blog", err)
	}
	if err := s.index().DeleteBlog(ctx, id); err != nil {
		l.Warn("search_delete_failed", "error", err)
	}
	s.publish(ctx, id, map[string]any{"type": "blog_deleted", "blogID": id.String(), "by": actor.ID.String()})
	s.Metrics.Transition("delete", "removed")
	l.Info("delete_blog_success")
	return nil
}

// Approve publishes the item and records who reviewed it.
func (s *BlogService) Approve(ctx context.Context, actor *Actor, id uuid.UUID) (*models.Blog, error) {
	return s.review(ctx, actor, id, "approve", models.StatusPublished, "")
}

// Reject marks the item rejected with an optional reason.
func (s *BlogService) Reject(ctx context.Context, actor *Actor, id uuid.UUID, reason string) (*models.Blog, error) {
	return s.review(ctx, actor, id, "reject", models.StatusRejected, strings.TrimSpace(reason))
}

func (s *BlogService) review(ctx context.Context, actor *Actor, id uuid.UUID, action string, to models.Status, reason string) (*models.Blog, error) {
	l := logging.FromContext(ctx).With("svc", "blog."+action, "blog_id", id)
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	b, err := s.Repo.BlogByID(ctx, id)
	if err != nil {
		return nil, storeErr("find blog", err)
	}

	from := b.Status
	b, err = s.Repo.UpdateBlogFields(ctx, id, map[string]any{
		"status":           to,
		"reviewed_by":      actor.ID,
		"reviewed_at":      s.now(),
		"rejection_reason": reason,
	})
	if err != nil {
		return nil, storeErr("save blog", err)
	}

	event := "blog_approved"
	if to == models.StatusRejected {
		event = "blog_rejected"
	}
	s.afterWrite(ctx, b, event)
	s.Metrics.Transition(action, string(to))
	l.Info(action+"_blog_success", "from", from, "to", to)
	return b, nil
}

// Deactivate returns a published item to pending. It is a no-op for an item
// that is already pending; a rejected item cannot be deactivated.
func (s *BlogService) Deactivate(ctx context.Context, actor *Actor, id uuid.UUID) (*models.Blog, error) {
	l := logging.FromContext(ctx).With("svc", "blog.deactivate", "blog_id", id)
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	b, err := s.Repo.BlogByID(ctx, id)
	if err != nil {
		return nil, storeErr("find blog", err)
	}

	switch b.Status {
	case models.StatusPending:
		l.Info("deactivate_blog_noop")
		return b, nil
	case models.StatusRejected:
		return nil, fmt.Errorf("cannot deactivate a rejected blog: %w", ErrInvalidTransition)
	}

	b, err = s.Repo.UpdateBlogFields(ctx, id, map[string]any{"status": models.StatusPending})
	if err != nil {
		return nil, storeErr("save blog", err)
	}
	s.afterWrite(ctx, b, "blog_deactivated")
	s.Metrics.Transition("deactivate", string(b.Status))
	l.Info("deactivate_blog_success")
	return b, nil
}

func (s *BlogService) List(ctx context.Context, actor *Actor, categoryID *uuid.UUID, offset, limit int) (int64, []models.Blog, error) {
	f := VisibilityFilter(actor)
	f.CategoryID = categoryID
	total, items, err := s.Repo.ListBlogs(ctx, f, offset, limit)
	if err != nil {
		return 0, nil, storeErr("list blogs", err)
	}
	return total, items, nil
}

func (s *BlogService) Search(ctx context.Context, actor *Actor, q string, offset, limit int) (int64, []models.Blog, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return 0, nil, validation("query is required")
	}
	total, items, err := s.index().SearchBlogs(ctx, q, VisibilityFilter(actor), offset, limit)
	if err != nil {
		return 0, nil, storeErr("search blogs", err)
	}
	return total, items, nil
}

// Pending is the admin review queue.
func (s *BlogService) Pending(ctx context.Context, actor *Actor, offset, limit int) (int64, []models.Blog, error) {
	if !actor.IsAdmin() {
		return 0, nil, ErrForbidden
	}
	pending := models.StatusPending
	total, items, err := s.Repo.ListBlogs(ctx, repo.BlogFilter{Status: &pending}, offset, limit)
	if err != nil {
		return 0, nil, storeErr("list pending", err)
	}
	return total, items, nil
}

// Get returns any item to an admin and only owned items to an operator.
func (s *BlogService) Get(ctx context.Context, actor *Actor, id uuid.UUID) (*models.Blog, error) {
	b, err := s.Repo.BlogByID(ctx, id)
	if err != nil {
		return nil, storeErr("find blog", err)
	}
	if !actor.IsAdmin() && !actor.Owns(b) {
		return nil, ErrForbidden
	}
	return b, nil
}

// GetPublished serves the reader site. lang "hi" swaps in the Hindi fields.
func (s *BlogService) GetPublished(ctx context.Context, slug, lang string) (*models.Blog, error) {
	b, err := s.Repo.BlogBySlug(ctx, slug)
	if err != nil {
		return nil, storeErr("find blog", err)
	}
	if b.Status != models.StatusPublished {
		return nil, fmt.Errorf("blog %s: %w", slug, ErrNotFound)
	}
	out := b.Localized(lang)
	return &out, nil
}

func (s *BlogService) afterWrite(ctx context.Context, b *models.Blog, eventType string) {
	if err := s.index().IndexBlog(ctx, b); err != nil {
		logging.FromContext(ctx).Warn("search_index_failed", "blog_id", b.ID, "error", err)
	}
	s.publish(ctx, b.ID, map[string]any{
		"type":      eventType,
		"blogID":    b.ID.String(),
		"slug":      b.Slug,
		"status":    b.Status,
		"createdBy": b.CreatedBy.String(),
	})
}

func (s *BlogService) publish(ctx context.Context, blogID uuid.UUID, event map[string]any) {
	if s.Events == nil {
		return
	}
	pctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := s.Events.PublishEvent(pctx, events.TopicBlog, blogID.String(), event); err != nil {
		logging.FromContext(ctx).Error("kafka_publish_failed", "topic", events.TopicBlog, "error", err)
	}
}
