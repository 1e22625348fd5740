package domain

import "context"

type GovernanceInput struct {
	UserID     string           `json:"user_id"`
	ActionType AuditActionType  `json:"action_type"`
	Tier       SubscriptionTier `json:"tier"`
}

type GovernanceResult struct {
	RequireApproval bool     `json:"require_approval"`
	QuotaOverride   int      `json:"quota_override"`
	Deny            []string `json:"deny"`
}

type GovernanceEvaluation struct {
	BundleID   string
	BundleHash string
	Result     GovernanceResult
}

// GovernancePolicy decides which action types need a human approval and may
// override the tier quota for a user. Backed by an OPA bundle when one is
// configured, otherwise by static defaults.
type GovernancePolicy interface {
	Evaluate(ctx context.Context, input GovernanceInput) (GovernanceEvaluation, error)
}
