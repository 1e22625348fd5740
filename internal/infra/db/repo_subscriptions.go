package db

import (
	"context"
	"errors"

	"sentinel/internal/domain"

	"gorm.io/gorm"
)

type SubscriptionRepository struct {
	db *gorm.DB
}

func NewSubscriptionRepository(db *gorm.DB) *SubscriptionRepository {
	return &SubscriptionRepository{db: db}
}

// GetTier resolves a user's subscription tier. Users without a subscription
// row are on the free tier.
func (r *SubscriptionRepository) GetTier(ctx context.Context, userID string) (domain.SubscriptionTier, error) {
	if r.db == nil {
		return "", domain.ErrStoreUnavailable
	}
	var model SubscriptionModel
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return domain.TierFree, nil
		}
		return "", err
	}
	return domain.SubscriptionTier(model.Tier), nil
}
