package service

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/shabdpress/blog_cms/internal/events"
	"github.com/shabdpress/blog_cms/internal/models"
	"github.com/shabdpress/blog_cms/internal/transport"
)

func TestBlogService_Create_StatusByRole(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)
	op := f.actor(t, "op", models.RoleOperator)

	tests := []struct {
		name   string
		actor  *Actor
		status *string
		want   models.Status
	}{
		{name: "operator default", actor: op, want: models.StatusPending},
		{name: "operator asks for published", actor: op, status: ptr("published"), want: models.StatusPending},
		{name: "operator asks for rejected", actor: op, status: ptr("rejected"), want: models.StatusPending},
		{name: "admin default", actor: admin, want: models.StatusPublished},
		{name: "admin asks for pending", actor: admin, status: ptr("pending"), want: models.StatusPending},
	}
	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			b, err := f.Blogs.Create(ctx, tt.actor, transport.CreateBlogRequest{Title: "X", Status: tt.status})
			require.NoError(t, err)
			assert.Equal(t, tt.want, b.Status)
			assert.Equal(t, tt.actor.ID, b.CreatedBy)
		})
	}
}

func TestBlogService_Create_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)

	_, err := f.Blogs.Create(ctx, admin, transport.CreateBlogRequest{Title: "   "})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.Blogs.Create(ctx, admin, transport.CreateBlogRequest{Title: "X", Status: ptr("draft")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.Blogs.Create(ctx, admin, transport.CreateBlogRequest{Title: "X", CategoryID: ptr(uuid.NewString())})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.Blogs.Create(ctx, nil, transport.CreateBlogRequest{Title: "X"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBlogService_Create_SlugCollisions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)

	var slugs []string
	for i := 0; i < 3; i++ {
		b, err := f.Blogs.Create(ctx, admin, transport.CreateBlogRequest{Title: "Monsoon Diaries"})
		require.NoError(t, err)
		slugs = append(slugs, b.Slug)
	}
	assert.Equal(t, []string{"monsoon-diaries", "monsoon-diaries-1", "monsoon-diaries-2"}, slugs)
}

func TestBlogService_Update(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)
	op := f.actor(t, "op", models.RoleOperator)
	other := f.actor(t, "op2", models.RoleOperator)

	b, err := f.Blogs.Create(ctx, op, transport.CreateBlogRequest{Title: "First Draft"})
	require.NoError(t, err)
	_, err = f.Blogs.Approve(ctx, admin, b.ID)
	require.NoError(t, err)

	_, err = f.Blogs.Update(ctx, other, b.ID, transport.UpdateBlogRequest{Title: ptr("Stolen")})
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := f.Blogs.Update(ctx, op, b.ID, transport.UpdateBlogRequest{
		Title:      ptr("Second Draft"),
		TitleHindi: ptr("दूसरा मसौदा"),
		Status:     ptr("published"),
	})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, updated.Status, "operator edits go back to review")
	assert.Equal(t, "second-draft", updated.Slug)
	assert.Equal(t, "दूसरा मसौदा", updated.TitleHindi)

	same, err := f.Blogs.Update(ctx, admin, b.ID, transport.UpdateBlogRequest{Content: ptr("body")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, same.Status, "admin edit keeps status")
	assert.Equal(t, "second-draft", same.Slug, "unchanged title keeps slug")
	assert.Equal(t, "body", same.Content)

	published, err := f.Blogs.Update(ctx, admin, b.ID, transport.UpdateBlogRequest{Status: ptr("published")})
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, published.Status)

	_, err = f.Blogs.Update(ctx, admin, b.ID, transport.UpdateBlogRequest{Title: ptr("")})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.Blogs.Update(ctx, admin, uuid.New(), transport.UpdateBlogRequest{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlogService_Update_SlugExcludesSelf(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)

	a, err := f.Blogs.Create(ctx, admin, transport.CreateBlogRequest{Title: "Tea"})
	require.NoError(t, err)
	b, err := f.Blogs.Create(ctx, admin, transport.CreateBlogRequest{Title: "Coffee"})
	require.NoError(t, err)

	renamed, err := f.Blogs.Update(ctx, admin, b.ID, transport.UpdateBlogRequest{Title: ptr("Tea")})
	require.NoError(t, err)
	assert.Equal(t, "tea-1", renamed.Slug)

	again, err := f.Blogs.Update(ctx, admin, a.ID, transport.UpdateBlogRequest{Title: ptr("TEA")})
	require.NoError(t, err)
	assert.Equal(t, "tea", again.Slug)
}

func TestBlogService_AdminOnlyActions(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	op := f.actor(t, "op", models.RoleOperator)

	b, err := f.Blogs.Create(ctx, op, transport.CreateBlogRequest{Title: "Mine"})
	require.NoError(t, err)

	_, err = f.Blogs.Approve(ctx, op, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.Blogs.Reject(ctx, op, b.ID, "no")
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = f.Blogs.Deactivate(ctx, op, b.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	assert.ErrorIs(t, f.Blogs.Delete(ctx, op, b.ID), ErrForbidden)
	_, _, err = f.Blogs.Pending(ctx, op, 0, 10)
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestBlogService_ReviewFlow(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)
	op := f.actor(t, "op", models.RoleOperator)

	b, err := f.Blogs.Create(ctx, op, transport.CreateBlogRequest{Title: "Review me"})
	require.NoError(t, err)

	approved, err := f.Blogs.Approve(ctx, admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPublished, approved.Status)
	require.NotNil(t, approved.ReviewedBy)
	assert.Equal(t, admin.ID, *approved.ReviewedBy)
	assert.NotNil(t, approved.ReviewedAt)

	deactivated, err := f.Blogs.Deactivate(ctx, admin, b.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, deactivated.Status)

	again, err := f.Blogs.Deactivate(ctx, admin, b.ID)
	require.NoError(t, err, "deactivating a pending blog is a no-op")
	assert.Equal(t, models.StatusPending, again.Status)
	assert.Equal(t, deactivated.Slug, again.Slug)

	rejected, err := f.Blogs.Reject(ctx, admin, b.ID, "  needs sources ")
	require.NoError(t, err)
	assert.Equal(t, models.StatusRejected, rejected.Status)
	assert.Equal(t, "needs sources", rejected.RejectionReason)

	_, err = f.Blogs.Deactivate(ctx, admin, b.ID)
	assert.ErrorIs(t, err, ErrInvalidTransition)

	require.NoError(t, f.Blogs.Delete(ctx, admin, b.ID))
	assert.ErrorIs(t, f.Blogs.Delete(ctx, admin, b.ID), ErrNotFound)

	assert.Equal(t,
		[]string{"blog_created", "blog_approved", "blog_deactivated", "blog_rejected", "blog_deleted"},
		f.Events.Types(events.TopicBlog),
	)
}

func TestBlogService_TransitionsKeepConcurrentEdits(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)
	op := f.actor(t, "op", models.RoleOperator)

	b, err := f.Blogs.Create(ctx, op, transport.CreateBlogRequest{Title: "Draft", Content: "old"})
	require.NoError(t, err)

	// An operator edit lands right after the transition reads the row.
	db := f.Blogs.Repo.DB
	var pending atomic.Pointer[string]
	require.NoError(t, db.Callback().Query().After("gorm:query").Register("test:concurrent_edit", func(*gorm.DB) {
		if content := pending.Swap(nil); content != nil {
			require.NoError(t, db.Exec("UPDATE blogs SET content = ? WHERE id = ?", *content, b.ID).Error)
		}
	}))

	cases := []struct {
		name    string
		content string
		run     func() (*models.Blog, error)
		status  models.Status
	}{
		{"approve", "edit before approve", func() (*models.Blog, error) { return f.Blogs.Approve(ctx, admin, b.ID) }, models.StatusPublished},
		{"deactivate", "edit before deactivate", func() (*models.Blog, error) { return f.Blogs.Deactivate(ctx, admin, b.ID) }, models.StatusPending},
		{"reject", "edit before reject", func() (*models.Blog, error) { return f.Blogs.Reject(ctx, admin, b.ID, "off topic") }, models.StatusRejected},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			content := tc.content
			pending.Store(&content)

			got, err := tc.run()
			require.NoError(t, err)
			assert.Equal(t, tc.status, got.Status)
			assert.Equal(t, tc.content, got.Content)

			stored, err := f.Blogs.Repo.BlogByID(ctx, b.ID)
			require.NoError(t, err)
			assert.Equal(t, tc.status, stored.Status)
			assert.Equal(t, tc.content, stored.Content)
		})
	}
}

func TestBlogService_Visibility(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)
	op := f.actor(t, "op", models.RoleOperator)
	other := f.actor(t, "op2", models.RoleOperator)

	mine, err := f.Blogs.Create(ctx, op, transport.CreateBlogRequest{Title: "Op pending"})
	require.NoError(t, err)
	_, err = f.Blogs.Create(ctx, other, transport.CreateBlogRequest{Title: "Other pending"})
	require.NoError(t, err)
	pub, err := f.Blogs.Create(ctx, admin, transport.CreateBlogRequest{Title: "Admin published"})
	require.NoError(t, err)

	total, items, err := f.Blogs.List(ctx, op, nil, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, mine.ID, items[0].ID)

	total, items, err = f.Blogs.List(ctx, admin, nil, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, pub.ID, items[0].ID)

	total, _, err = f.Blogs.List(ctx, nil, nil, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	total, _, err = f.Blogs.Pending(ctx, admin, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)

	total, items, err = f.Blogs.Search(ctx, op, "pending", 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)
	assert.Equal(t, mine.ID, items[0].ID)

	_, _, err = f.Blogs.Search(ctx, op, "  ", 0, 10)
	assert.ErrorIs(t, err, ErrValidation)

	_, err = f.Blogs.Get(ctx, other, mine.ID)
	assert.ErrorIs(t, err, ErrForbidden)
	got, err := f.Blogs.Get(ctx, admin, mine.ID)
	require.NoError(t, err)
	assert.Equal(t, mine.ID, got.ID)
}

func TestBlogService_GetPublished(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)

	_, err := f.Blogs.Create(ctx, admin, transport.CreateBlogRequest{
		Title:      "Festival of Lights",
		TitleHindi: "रोशनी का त्योहार",
		Content:    "english body",
	})
	require.NoError(t, err)
	_, err = f.Blogs.Create(ctx, admin, transport.CreateBlogRequest{Title: "Hidden", Status: ptr("pending")})
	require.NoError(t, err)

	en, err := f.Blogs.GetPublished(ctx, "festival-of-lights", "en")
	require.NoError(t, err)
	assert.Equal(t, "Festival of Lights", en.Title)

	hi, err := f.Blogs.GetPublished(ctx, "festival-of-lights", "hi")
	require.NoError(t, err)
	assert.Equal(t, "रोशनी का त्योहार", hi.Title)
	assert.Equal(t, "english body", hi.Content, "missing Hindi falls back to English")

	_, err = f.Blogs.GetPublished(ctx, "hidden", "")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = f.Blogs.GetPublished(ctx, "nope", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestBlogService_Category(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.actor(t, "root", models.RoleAdmin)

	cat, err := f.Categories.Create(ctx, transport.CategoryRequest{Name: "Travel", NameHindi: "यात्रा"})
	require.NoError(t, err)
	b, err := f.Blogs.Create(ctx, admin, transport.CreateBlogRequest{Title: "Goa", CategoryID: ptr(cat.ID.String())})
	require.NoError(t, err)
	require.NotNil(t, b.CategoryID)

	total, _, err := f.Blogs.List(ctx, nil, &cat.ID, 0, 10)
	require.NoError(t, err)
	assert.EqualValues(t, 1, total)

	require.NoError(t, f.Categories.Delete(ctx, cat.ID))
	got, err := f.Blogs.Get(ctx, admin, b.ID)
	require.NoError(t, err)
	assert.Nil(t, got.CategoryID)
}
