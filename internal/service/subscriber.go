package service

import (
	"context"
	"net/mail"
	"strings"

	"github.com/google/uuid"

	"github.com/shabdpress/blog_cms/internal/models"
	"github.com/shabdpress/blog_cms/internal/repo"
	"github.com/shabdpress/blog_cms/pkg/logging"
)

type SubscriberService struct {
	Repo *repo.GormRepo
}

// Subscribe is idempotent: an address that is already subscribed is returned
// with created=false.
func (s *SubscriberService) Subscribe(ctx context.Context, email string) (*models.Subscriber, bool, error) {
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, false, validation("invalid email")
	}
	sub, created, err := s.Repo.Subscribe(ctx, strings.ToLower(addr.Address))
	if err != nil {
		return nil, false, storeErr("subscribe", err)
	}
	logging.FromContext(ctx).Info("subscribe_success", "svc", "subscriber.subscribe", "created", created)
	return sub, created, nil
}

func (s *SubscriberService) List(ctx context.Context, offset, limit int) (int64, []models.Subscriber, error) {
	total, items, err := s.Repo.ListSubscribers(ctx, offset, limit)
	if err != nil {
		return 0, nil, storeErr("list subscribers", err)
	}
	return total, items, nil
}

func (s *SubscriberService) Delete(ctx context.Context, id uuid.UUID) error {
	return storeErr("delete subscriber", s.Repo.DeleteSubscriber(ctx, id))
}
