package search

import (
	"context"

	"github.com/google/uuid"

	"github.com/shabdpress/blog_cms/internal/models"
	"github.com/shabdpress/blog_cms/internal/repo"
)

// Index keeps a searchable copy of blogs. Search applies f on top of the query.
type Index interface {
	IndexBlog(ctx context.Context, b *models.Blog) error
	DeleteBlog(ctx context.Context, id uuid.UUID) error
	SearchBlogs(ctx context.Context, q string, f repo.BlogFilter, offset, limit int) (int64, []models.Blog, error)
}

// Database searches with LIKE over the blog table. It needs no indexing.
type Database struct {
	Repo *repo.GormRepo
}

func (Database) IndexBlog(context.Context, *models.Blog) error { return nil }

func (Database) DeleteBlog(context.Context, uuid.UUID) error { return nil }

func (d Database) SearchBlogs(ctx context.Context, q string, f repo.BlogFilter, offset, limit int) (int64, []models.Blog, error) {
	f.Query = q
	return d.Repo.ListBlogs(ctx, f, offset, limit)
}
