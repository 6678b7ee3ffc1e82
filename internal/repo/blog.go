package repo

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/shabdpress/blog_cms/internal/models"
)

// BlogFilter narrows a blog listing. Nil fields do not filter.
type BlogFilter struct {
	Status     *models.Status
	OwnerID    *uuid.UUID
	CategoryID *uuid.UUID
	// Query matches title, excerpt and content in both languages.
	Query string
}

func (f BlogFilter) apply(q *gorm.DB) *gorm.DB {
	if f.Status != nil {
		q = q.Where("status = ?", *f.Status)
	}
	if f.OwnerID != nil {
		q = q.Where("created_by = ?", *f.OwnerID)
	}
	if f.CategoryID != nil {
		q = q.Where("category_id = ?", *f.CategoryID)
	}
	if s := strings.TrimSpace(f.Query); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		q = q.Where(
			"LOWER(title) LIKE ? OR LOWER(title_hindi) LIKE ? OR LOWER(excerpt) LIKE ? OR LOWER(excerpt_hindi) LIKE ? OR LOWER(content) LIKE ? OR LOWER(content_hindi) LIKE ?",
			like, like, like, like, like, like,
		)
	}
	return q
}

func (r *GormRepo) CreateBlog(ctx context.Context, b *models.Blog) error {
	return r.DB.WithContext(ctx).Create(b).Error
}

func (r *GormRepo) BlogByID(ctx context.Context, id uuid.UUID) (*models.Blog, error) {
	var b models.Blog
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormRepo) BlogBySlug(ctx context.Context, slug string) (*models.Blog, error) {
	var b models.Blog
	if err := r.DB.WithContext(ctx).Where("slug = ?", slug).First(&b).Error; err != nil {
		return nil, err
	}
	return &b, nil
}

func (r *GormRepo) SaveBlog(ctx context.Context, b *models.Blog) error {
	return r.DB.WithContext(ctx).Save(b).Error
}

// UpdateBlogFields writes only the given columns and returns the fresh row,
// so concurrent edits to other columns survive.
func (r *GormRepo) UpdateBlogFields(ctx context.Context, id uuid.UUID, fields map[string]any) (*models.Blog, error) {
	res := r.DB.WithContext(ctx).Model(&models.Blog{}).Where("id = ?", id).Updates(fields)
	if err := affected(res); err != nil {
		return nil, err
	}
	return r.BlogByID(ctx, id)
}

func (r *GormRepo) DeleteBlog(ctx context.Context, id uuid.UUID) error {
	return affected(r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Blog{}))
}

func (r *GormRepo) ListBlogs(ctx context.Context, f BlogFilter, offset, limit int) (int64, []models.Blog, error) {
	var total int64
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Blog{})).Count(&total).Error; err != nil {
		return 0, nil, err
	}

	items := make([]models.Blog, 0, limit)
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Blog{})).
		Order("created_at DESC").
		Offset(offset).
		Limit(limit).
		Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

// BlogsByIDs loads blogs in the order of ids, dropping any that no longer
// exist or fail the filter.
func (r *GormRepo) BlogsByIDs(ctx context.Context, ids []uuid.UUID, f BlogFilter) ([]models.Blog, error) {
	if len(ids) == 0 {
		return []models.Blog{}, nil
	}
	f.Query = ""

	var found []models.Blog
	if err := f.apply(r.DB.WithContext(ctx).Model(&models.Blog{})).
		Where("id IN ?", ids).
		Find(&found).Error; err != nil {
		return nil, err
	}

	byID := make(map[uuid.UUID]models.Blog, len(found))
	for _, b := range found {
		byID[b.ID] = b
	}
	out := make([]models.Blog, 0, len(found))
	for _, id := range ids {
		if b, ok := byID[id]; ok {
			out = append(out, b)
		}
	}
	return out, nil
}

func (r *GormRepo) ClearBlogCategory(ctx context.Context, categoryID uuid.UUID) error {
	return r.DB.WithContext(ctx).Model(&models.Blog{}).
		Where("category_id = ?", categoryID).
		Update("category_id", nil).Error
}
