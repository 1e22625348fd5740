package domain

import (
	"context"
	"time"
)

type SubscriptionTier string

const (
	TierFree       SubscriptionTier = "free"
	TierBasic      SubscriptionTier = "basic"
	TierPro        SubscriptionTier = "pro"
	TierPremium    SubscriptionTier = "premium"
	TierEnterprise SubscriptionTier = "enterprise"
)

// HourlyLimit returns the AI-action quota per trailing hour. Enterprise is
// unlimited (-1). Unknown tiers fall back to the free quota.
func (t SubscriptionTier) HourlyLimit() int {
	switch t {
	case TierBasic:
		return 50
	case TierPro:
		return 200
	case TierPremium:
		return 500
	case TierEnterprise:
		return -1
	default:
		return 10
	}
}

type RateLimitDecision struct {
	Allowed   bool
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// QuotaResult is the tier-aware answer for a single AI action admission check.
type QuotaResult struct {
	Allowed      bool
	CurrentCount int
	Remaining    int
	ResetAt      time.Time
	Tier         SubscriptionTier
	RetryHint    string
}

// RateLimiter is the distributed sliding-window primitive. Implementations
// must perform the check-and-increment atomically against shared state;
// in-process counters are valid only as a single-process testing stand-in.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (RateLimitDecision, error)
}

type UsageRecord struct {
	ID         string
	UserID     string
	ActionType string
	CreatedAt  time.Time
}
