package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"github.com/shabdpress/blog_cms/internal/models"
	"github.com/shabdpress/blog_cms/internal/repo"
	"github.com/shabdpress/blog_cms/internal/transport"
	"github.com/shabdpress/blog_cms/pkg/logging"
)

type CategoryService struct {
	Repo *repo.GormRepo
}

func (s *CategoryService) slugTaken(ctx context.Context, slug string, exclude uuid.UUID) (bool, error) {
	return s.Repo.SlugTaken(ctx, &models.Category{}, slug, exclude)
}

func (s *CategoryService) List(ctx context.Context) ([]models.Category, error) {
	items, err := s.Repo.ListCategories(ctx)
	if err != nil {
		return nil, storeErr("list categories", err)
	}
	return items, nil
}

func (s *CategoryService) Create(ctx context.Context, req transport.CategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validation("name is required")
	}
	slug, err := uniqueSlug(ctx, name, uuid.Nil, s.slugTaken)
	if err != nil {
		return nil, storeErr("derive slug", err)
	}
	c := &models.Category{Name: name, NameHindi: strings.TrimSpace(req.NameHindi), Slug: slug}
	if err := s.Repo.CreateCategory(ctx, c); err != nil {
		return nil, storeErr("create category", err)
	}
	logging.FromContext(ctx).Info("create_category_success", "svc", "category.create", "category_id", c.ID)
	return c, nil
}

func (s *CategoryService) Update(ctx context.Context, id uuid.UUID, req transport.CategoryRequest) (*models.Category, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, validation("name is required")
	}
	c, err := s.Repo.CategoryByID(ctx, id)
	if err != nil {
		return nil, storeErr("find category", err)
	}
	if name != c.Name {
		if c.Slug, err = uniqueSlug(ctx, name, c.ID, s.slugTaken); err != nil {
			return nil, storeErr("derive slug", err)
		}
	}
	c.Name = name
	c.NameHindi = strings.TrimSpace(req.NameHindi)
	if err := s.Repo.SaveCategory(ctx, c); err != nil {
		return nil, storeErr("save category", err)
	}
	return c, nil
}

// Delete removes the category and leaves its blogs uncategorised.
func (s *CategoryService) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.Repo.DeleteCategory(ctx, id); err != nil {
		return storeErr("delete category", err)
	}
	logging.FromContext(ctx).Info("delete_category_success", "svc", "category.delete", "category_id", id)
	return nil
}
