package repo

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm/clause"

	"github.com/shabdpress/blog_cms/internal/models"
)

// Subscribe inserts email if it is new. created is false for a repeat.
func (r *GormRepo) Subscribe(ctx context.Context, email string) (sub *models.Subscriber, created bool, err error) {
	s := models.Subscriber{Email: email}
	res := r.DB.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "email"}}, DoNothing: true}).
		Create(&s)
	if res.Error != nil {
		return nil, false, res.Error
	}
	if res.RowsAffected == 1 {
		return &s, true, nil
	}

	var existing models.Subscriber
	if err := r.DB.WithContext(ctx).Where("email = ?", email).First(&existing).Error; err != nil {
		return nil, false, err
	}
	return &existing, false, nil
}

func (r *GormRepo) ListSubscribers(ctx context.Context, offset, limit int) (int64, []models.Subscriber, error) {
	var total int64
	if err := r.DB.WithContext(ctx).Model(&models.Subscriber{}).Count(&total).Error; err != nil {
		return 0, nil, err
	}
	items := make([]models.Subscriber, 0, limit)
	if err := r.DB.WithContext(ctx).Order("created_at DESC").Offset(offset).Limit(limit).Find(&items).Error; err != nil {
		return 0, nil, err
	}
	return total, items, nil
}

func (r *GormRepo) DeleteSubscriber(ctx context.Context, id uuid.UUID) error {
	return affected(r.DB.WithContext(ctx).Where("id = ?", id).Delete(&models.Subscriber{}))
}
