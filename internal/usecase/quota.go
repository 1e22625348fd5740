package usecase

import (
	"context"
	"fmt"
	"log"
	"time"

	"sentinel/internal/domain"
)

const quotaWindow = time.Hour

// QuotaService admits or denies AI actions. The tiered hourly check fails
// OPEN on store errors so a storage outage never blocks the product; the
// distributed primitive reports errors to the caller, which picks its own
// policy (the login path fails closed).
type QuotaService struct {
	Usage         UsageRepository
	Subscriptions SubscriptionRepository
	Limiter       domain.RateLimiter
	Audit         *AuditEmitter
	Policy        domain.GovernancePolicy

	ConcurrentLimit  int
	ConcurrentWindow time.Duration

	Clock Clock
}

func (s *QuotaService) CheckRateLimit(ctx context.Context, userID, actionType string) (domain.QuotaResult, error) {
	if userID == "" {
		return domain.QuotaResult{}, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	now := s.now()

	tier, err := s.Subscriptions.GetTier(ctx, userID)
	if err != nil {
		log.Printf("quota check: tier lookup failed for %s, failing open: %v", userID, err)
		return failOpen(now, domain.TierFree), nil
	}
	limit := tier.HourlyLimit()
	if s.Policy != nil {
		eval, err := s.Policy.Evaluate(ctx, domain.GovernanceInput{
			UserID:     userID,
			ActionType: domain.AuditActionType(actionType),
			Tier:       tier,
		})
		if err != nil {
			log.Printf("quota check: governance evaluation failed: %v", err)
		} else if eval.Result.QuotaOverride > 0 {
			limit = eval.Result.QuotaOverride
		}
	}
	if limit < 0 {
		return domain.QuotaResult{
			Allowed:   true,
			Remaining: -1,
			ResetAt:   now.Add(quotaWindow),
			Tier:      tier,
		}, nil
	}

	count, err := s.Usage.CountSince(ctx, userID, now.Add(-quotaWindow))
	if err != nil {
		log.Printf("quota check: usage count failed for %s, failing open: %v", userID, err)
		return failOpen(now, tier), nil
	}

	result := domain.QuotaResult{
		CurrentCount: int(count),
		ResetAt:      now.Add(quotaWindow),
		Tier:         tier,
	}
	if int(count) >= limit {
		result.Allowed = false
		result.Remaining = 0
		result.RetryHint = fmt.Sprintf("hourly %s-tier limit of %d reached; retry after %s",
			tier, limit, result.ResetAt.UTC().Format(time.RFC3339))
		if s.Audit != nil {
			if err := s.Audit.EmitRateLimitExceeded(ctx, userID, actionType, result); err != nil {
				log.Printf("quota check: audit emit failed: %v", err)
			}
		}
		return result, nil
	}

	result.Allowed = true
	result.Remaining = limit - int(count) - 1
	if err := s.Usage.Record(ctx, domain.UsageRecord{
		UserID:     userID,
		ActionType: actionType,
		CreatedAt:  now,
	}); err != nil {
		// The admission already happened; losing the usage row only skews
		// the next window, so log instead of denying.
		log.Printf("quota check: usage record failed for %s: %v", userID, err)
	}
	return result, nil
}

// CheckDistributedRateLimit is the general-purpose admission primitive. The
// key may be a user id, an IP, or a synthetic resource bucket; the backing
// limiter performs an atomic check-and-increment against shared state.
func (s *QuotaService) CheckDistributedRateLimit(ctx context.Context, bucketKey, resource string, maxRequests int, window time.Duration) (domain.RateLimitDecision, error) {
	key := "rl:" + resource + ":" + bucketKey
	return s.Limiter.Allow(ctx, key, maxRequests, window)
}

// CheckConcurrentLimit approximates "requests currently in flight" with a
// short window on the same primitive, driving load shedding.
func (s *QuotaService) CheckConcurrentLimit(ctx context.Context, resource string) (domain.RateLimitDecision, error) {
	limit := s.ConcurrentLimit
	if limit <= 0 {
		limit = 50
	}
	window := s.ConcurrentWindow
	if window <= 0 {
		window = 5 * time.Second
	}
	return s.CheckDistributedRateLimit(ctx, "inflight", "concurrent:"+resource, limit, window)
}

func failOpen(now time.Time, tier domain.SubscriptionTier) domain.QuotaResult {
	return domain.QuotaResult{
		Allowed: true,
		ResetAt: now.Add(quotaWindow),
		Tier:    tier,
	}
}

func (s *QuotaService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
