package db

import (
	"context"
	"fmt"
	"time"

	"sentinel/internal/domain"

	"gorm.io/gorm"
)

type LoginAttemptRepository struct {
	db *gorm.DB
}

func NewLoginAttemptRepository(db *gorm.DB) *LoginAttemptRepository {
	return &LoginAttemptRepository{db: db}
}

func (r *LoginAttemptRepository) Record(ctx context.Context, attempt domain.LoginAttempt) error {
	if r.db == nil {
		return domain.ErrStoreUnavailable
	}
	id, err := newUUID()
	if err != nil {
		return err
	}
	ts := attempt.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	model := LoginAttemptModel{
		ID:                id,
		UserID:            attempt.UserID,
		IPAddress:         attempt.IPAddress,
		UserAgent:         attempt.UserAgent,
		City:              attempt.Location.City,
		Region:            attempt.Location.Region,
		Country:           attempt.Location.Country,
		CountryCode:       attempt.Location.CountryCode,
		Lat:               attempt.Location.Lat,
		Lon:               attempt.Location.Lon,
		LocationUnknown:   attempt.Location.Unknown,
		DeviceFingerprint: stringPtrIfNotEmpty(attempt.DeviceFingerprint),
		Success:           attempt.Success,
		CreatedAt:         ts.UTC(),
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return fmt.Errorf("record login attempt: %w", err)
	}
	return nil
}

// ListRecent returns the newest attempts first, capped at limit.
func (r *LoginAttemptRepository) ListRecent(ctx context.Context, userID string, limit int) ([]domain.LoginAttempt, error) {
	if r.db == nil {
		return nil, domain.ErrStoreUnavailable
	}
	if limit <= 0 {
		limit = 50
	}
	var models []LoginAttemptModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.LoginAttempt, 0, len(models))
	for _, model := range models {
		out = append(out, domain.LoginAttempt{
			UserID:    model.UserID,
			Timestamp: model.CreatedAt.UTC(),
			IPAddress: model.IPAddress,
			UserAgent: model.UserAgent,
			Location: domain.Location{
				City:        model.City,
				Region:      model.Region,
				Country:     model.Country,
				CountryCode: model.CountryCode,
				Lat:         model.Lat,
				Lon:         model.Lon,
				Unknown:     model.LocationUnknown,
			},
			DeviceFingerprint: stringValue(model.DeviceFingerprint),
			Success:           model.Success,
		})
	}
	return out, nil
}
