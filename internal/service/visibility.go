package service

import (
	"github.com/google/uuid"

	"github.com/shabdpress/blog_cms/internal/models"
	"github.com/shabdpress/blog_cms/internal/repo"
)

// Actor is the authenticated caller. A nil *Actor is an anonymous reader.
type Actor struct {
	ID   uuid.UUID
	Role models.Role
}

func (a *Actor) IsAdmin() bool { return a != nil && a.Role == models.RoleAdmin }

func (a *Actor) Owns(b *models.Blog) bool { return a != nil && b.CreatedBy == a.ID }

// VisibilityFilter is the row filter shared by every general listing and search:
// readers and admins see published items, operators see their own items in
// any status. Admins reach pending items through the pending queue.
func VisibilityFilter(actor *Actor) repo.BlogFilter {
	published := models.StatusPublished
	if actor == nil || actor.IsAdmin() {
		return repo.BlogFilter{Status: &published}
	}
	owner := actor.ID
	return repo.BlogFilter{OwnerID: &owner}
}
