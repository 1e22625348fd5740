package usecase

import (
	"context"
	"errors"
	"time"

	"sentinel/internal/domain"
)

// AuditEmitter writes typed security events to the ledger. Detected threats,
// mismatches, and anomalies are never silently dropped: every emit either
// lands in the store or surfaces an error to the caller.
type AuditEmitter struct {
	Repo  AuditLogRepository
	Clock Clock
}

func NewAuditEmitter(repo AuditLogRepository, clock Clock) *AuditEmitter {
	return &AuditEmitter{Repo: repo, Clock: clock}
}

func (e *AuditEmitter) Emit(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error) {
	if e == nil || e.Repo == nil {
		return domain.AuditLogEntry{}, errors.New("audit repository required")
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = e.now()
	}
	if entry.ActionData == nil {
		entry.ActionData = map[string]any{}
	}
	return e.Repo.Append(ctx, entry)
}

func (e *AuditEmitter) EmitSecurityThreat(ctx context.Context, userID, target string, threats []domain.ThreatInfo, contentHash string) error {
	payload := map[string]any{
		"content_hash": contentHash,
		"threat_count": len(threats),
	}
	categories := make([]string, 0, len(threats))
	for _, t := range threats {
		categories = append(categories, string(t.Category))
	}
	payload["categories"] = categories
	_, err := e.Emit(ctx, domain.AuditLogEntry{
		UserID:       userID,
		ActionType:   domain.ActionSecurityThreatDetected,
		ActionTarget: target,
		ActionData:   payload,
	})
	return err
}

func (e *AuditEmitter) EmitPIIRedacted(ctx context.Context, userID, target string, piiTypes []domain.PIIType, contentHash string) error {
	types := make([]string, 0, len(piiTypes))
	for _, t := range piiTypes {
		types = append(types, string(t))
	}
	_, err := e.Emit(ctx, domain.AuditLogEntry{
		UserID:       userID,
		ActionType:   domain.ActionPIIRedacted,
		ActionTarget: target,
		ActionData: map[string]any{
			"pii_types":    types,
			"content_hash": contentHash,
		},
	})
	return err
}

func (e *AuditEmitter) EmitRateLimitExceeded(ctx context.Context, userID, actionType string, result domain.QuotaResult) error {
	_, err := e.Emit(ctx, domain.AuditLogEntry{
		UserID:       userID,
		ActionType:   domain.ActionRateLimitExceeded,
		ActionTarget: actionType,
		ActionData: map[string]any{
			"tier":          string(result.Tier),
			"current_count": result.CurrentCount,
			"limit_reset":   result.ResetAt.UTC().Format(time.RFC3339),
		},
	})
	return err
}

func (e *AuditEmitter) EmitLoginAnomaly(ctx context.Context, userID, ip, userAgent string, result domain.AnomalyResult) error {
	flags := make([]string, 0, len(result.Flags))
	for _, f := range result.Flags {
		flags = append(flags, string(f))
	}
	_, err := e.Emit(ctx, domain.AuditLogEntry{
		UserID:     userID,
		ActionType: domain.ActionLoginAnomalyDetected,
		ActionData: map[string]any{
			"risk_score": result.RiskScore,
			"flags":      flags,
			"reasons":    result.Reasons,
		},
		IPAddress: ip,
		UserAgent: userAgent,
	})
	return err
}

func (e *AuditEmitter) now() time.Time {
	if e != nil && e.Clock != nil {
		return e.Clock()
	}
	return time.Now().UTC()
}
