package usecase

import (
	"context"
	"time"

	"sentinel/internal/domain"
)

type Clock func() time.Time

type AuditLogRepository interface {
	Append(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error)
	GetByID(ctx context.Context, id string) (*domain.AuditLogEntry, error)
	ListPendingByUser(ctx context.Context, userID string) ([]domain.AuditLogEntry, error)
	TransitionIfPending(ctx context.Context, id string, to domain.ApprovalStatus, approvedAt *time.Time) (bool, error)
}

type UsageRepository interface {
	Record(ctx context.Context, rec domain.UsageRecord) error
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

type LoginAttemptRepository interface {
	Record(ctx context.Context, attempt domain.LoginAttempt) error
	ListRecent(ctx context.Context, userID string, limit int) ([]domain.LoginAttempt, error)
}

type SubscriptionRepository interface {
	GetTier(ctx context.Context, userID string) (domain.SubscriptionTier, error)
}

type Geolocator interface {
	Locate(ctx context.Context, ip string) (domain.Location, error)
}

type AlertDispatcher interface {
	SendSecurityAlert(ctx context.Context, userID, subject, body string) error
}
