package policyopa

import (
	"context"

	"sentinel/internal/domain"
)

// StaticPolicy is the default governance policy used when no rego bundle is
// configured: every action type with external effect requires approval and
// tier quotas stand as-is.
type StaticPolicy struct{}

func NewStaticPolicy() domain.GovernancePolicy {
	return StaticPolicy{}
}

var approvalRequired = map[domain.AuditActionType]bool{
	domain.ActionAccountDelete:      true,
	domain.ActionDataExport:         true,
	domain.ActionEmailSend:          true,
	domain.ActionSubscriptionCancel: true,
}

func (StaticPolicy) Evaluate(_ context.Context, input domain.GovernanceInput) (domain.GovernanceEvaluation, error) {
	return domain.GovernanceEvaluation{
		BundleID: "static_defaults",
		Result: domain.GovernanceResult{
			RequireApproval: approvalRequired[input.ActionType],
		},
	}, nil
}
