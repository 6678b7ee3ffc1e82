package repo

import (
	"context"

	"github.com/google/uuid"

	"github.com/shabdpress/blog_cms/internal/models"
)

func (r *GormRepo) CreateAccount(ctx context.Context, a *models.Account) error {
	return r.DB.WithContext(ctx).Create(a).Error
}

func (r *GormRepo) AccountByUsername(ctx context.Context, username string) (*models.Account, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).Where("username = ?", username).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) AccountByID(ctx context.Context, id uuid.UUID) (*models.Account, error) {
	var a models.Account
	if err := r.DB.WithContext(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		return nil, err
	}
	return &a, nil
}

func (r *GormRepo) ListAccounts(ctx context.Context, role models.Role) ([]models.Account, error) {
	var items []models.Account
	q := r.DB.WithContext(ctx).Model(&models.Account{})
	if role != "" {
		q = q.Where("role = ?", role)
	}
	if err := q.Order("created_at ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

// UpdateAccount writes only the listed columns.
func (r *GormRepo) UpdateAccount(ctx context.Context, id uuid.UUID, fields map[string]any) error {
	res := r.DB.WithContext(ctx).Model(&models.Account{}).Where("id = ?", id).Updates(fields)
	return affected(res)
}

func (r *GormRepo) SetRefreshHash(ctx context.Context, id uuid.UUID, hash string) error {
	return r.UpdateAccount(ctx, id, map[string]any{"refresh_token_hash": hash})
}

// RotateRefreshHash swaps the stored hash only if it still equals oldHash.
// It reports false when another rotation or a logout got there first.
func (r *GormRepo) RotateRefreshHash(ctx context.Context, id uuid.UUID, oldHash, newHash string) (bool, error) {
	res := r.DB.WithContext(ctx).Model(&models.Account{}).
		Where("id = ? AND refresh_token_hash = ? AND is_active = ?", id, oldHash, true).
		Update("refresh_token_hash", newHash)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *GormRepo) DeleteAccount(ctx context.Context, id uuid.UUID, role models.Role) error {
	res := r.DB.WithContext(ctx).Where("id = ? AND role = ?", id, role).Delete(&models.Account{})
	return affected(res)
}
