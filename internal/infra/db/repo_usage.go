package db

import (
	"context"
	"fmt"
	"time"

	"sentinel/internal/domain"

	"gorm.io/gorm"
)

type UsageRepository struct {
	db *gorm.DB
}

func NewUsageRepository(db *gorm.DB) *UsageRepository {
	return &UsageRepository{db: db}
}

func (r *UsageRepository) Record(ctx context.Context, rec domain.UsageRecord) error {
	if r.db == nil {
		return domain.ErrStoreUnavailable
	}
	if rec.ID == "" {
		id, err := newUUID()
		if err != nil {
			return err
		}
		rec.ID = id
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	model := UsageRecordModel{
		ID:         rec.ID,
		UserID:     rec.UserID,
		ActionType: rec.ActionType,
		CreatedAt:  rec.CreatedAt.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("record usage: %w", err)
	}
	return nil
}

// CountSince returns the number of usage rows for the user since the cutoff.
func (r *UsageRepository) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	if r.db == nil {
		return 0, domain.ErrStoreUnavailable
	}
	var count int64
	err := r.db.WithContext(ctx).
		Model(&UsageRecordModel{}).
		Where("user_id = ? AND created_at >= ?", userID, since.UTC()).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}
