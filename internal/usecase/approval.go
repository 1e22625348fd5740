package usecase

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"sentinel/internal/domain"
	cryptoinfra "sentinel/internal/infra/crypto"
)

// ApprovalTTL bounds how long an approval token stays valid. Fixed rather
// than configurable: widening the window widens the replay window.
const ApprovalTTL = 5 * time.Minute

type ApprovalService struct {
	Repo   AuditLogRepository
	Policy domain.GovernancePolicy
	Clock  Clock
}

func NewApprovalService(repo AuditLogRepository, policy domain.GovernancePolicy, clock Clock) *ApprovalService {
	return &ApprovalService{
		Repo:   repo,
		Policy: policy,
		Clock:  clock,
	}
}

type ApprovalRequest struct {
	ID              string
	ApprovalHash    string
	RequireApproval bool
	ExpiresAt       time.Time
}

// CreateApprovalRequest writes a pending ledger entry whose hash binds the
// full action payload plus timestamp. The hash is returned to the caller,
// surfaced to the approving party, and must be echoed back verbatim; it is
// never regenerated server-side for comparison.
func (s *ApprovalService) CreateApprovalRequest(ctx context.Context, userID string, actionType domain.AuditActionType, actionTarget string, actionData map[string]any) (ApprovalRequest, error) {
	if userID == "" {
		return ApprovalRequest{}, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	if actionType == "" {
		return ApprovalRequest{}, fmt.Errorf("%w: action_type is required", domain.ErrValidation)
	}
	// The payload is annotated below; work on a copy so the caller's map
	// is left untouched.
	data := make(map[string]any, len(actionData)+2)
	for k, v := range actionData {
		data[k] = v
	}
	now := s.now()

	requireApproval := true
	if s.Policy != nil {
		eval, err := s.Policy.Evaluate(ctx, domain.GovernanceInput{
			UserID:     userID,
			ActionType: actionType,
		})
		if err != nil {
			// Governance evaluation failing must not let an action skip
			// review; keep the approval requirement.
			log.Printf("governance evaluation failed for action %s: %v", actionType, err)
		} else {
			requireApproval = eval.Result.RequireApproval
			if eval.BundleHash != "" {
				data["governance_bundle_hash"] = eval.BundleHash
			}
		}
	}

	hash, err := cryptoinfra.ApprovalHash(userID, actionType, data, now)
	if err != nil {
		return ApprovalRequest{}, fmt.Errorf("compute approval hash: %w", err)
	}
	data["requested_at"] = now.UTC().Format(time.RFC3339Nano)

	entry, err := s.Repo.Append(ctx, domain.AuditLogEntry{
		UserID:         userID,
		ActionType:     actionType,
		ActionTarget:   actionTarget,
		ActionData:     data,
		ApprovalStatus: domain.ApprovalPending,
		ApprovalHash:   hash,
		CreatedAt:      now,
	})
	if err != nil {
		// Fail closed: no ledger write, no approval request.
		return ApprovalRequest{}, fmt.Errorf("append approval request: %w", err)
	}
	return ApprovalRequest{
		ID:              entry.ID,
		ApprovalHash:    hash,
		RequireApproval: requireApproval,
		ExpiresAt:       now.Add(ApprovalTTL),
	}, nil
}

// ApproveAction transitions a pending request to approved. The pending
// predicate lives in the store update itself, so two concurrent approvals of
// the same request cannot both succeed.
func (s *ApprovalService) ApproveAction(ctx context.Context, approvalID, userID, suppliedHash string) (*domain.AuditLogEntry, error) {
	entry, err := s.Repo.GetByID(ctx, approvalID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrApprovalNotPending
		}
		return nil, err
	}
	if entry.UserID != userID || entry.ApprovalStatus != domain.ApprovalPending {
		return nil, domain.ErrApprovalNotPending
	}

	if !cryptoinfra.HashesEqual(suppliedHash, entry.ApprovalHash) {
		// A wrong hash is a forged or tampered approval token, not a retry.
		if _, err := s.Repo.TransitionIfPending(ctx, entry.ID, domain.ApprovalRejected, nil); err != nil {
			return nil, err
		}
		s.auditSecurityEvent(ctx, userID, entry, suppliedHash)
		return nil, domain.ErrApprovalHashMismatch
	}

	now := s.now()
	if now.Sub(entry.CreatedAt) > ApprovalTTL {
		if _, err := s.Repo.TransitionIfPending(ctx, entry.ID, domain.ApprovalExpired, nil); err != nil {
			return nil, err
		}
		return nil, domain.ErrApprovalExpired
	}

	moved, err := s.Repo.TransitionIfPending(ctx, entry.ID, domain.ApprovalApproved, &now)
	if err != nil {
		return nil, err
	}
	if !moved {
		return nil, domain.ErrApprovalNotPending
	}
	entry.ApprovalStatus = domain.ApprovalApproved
	entry.ApprovedAt = &now
	return entry, nil
}

func (s *ApprovalService) GetPendingApprovals(ctx context.Context, userID string) ([]domain.AuditLogEntry, error) {
	return s.Repo.ListPendingByUser(ctx, userID)
}

func (s *ApprovalService) auditSecurityEvent(ctx context.Context, userID string, entry *domain.AuditLogEntry, suppliedHash string) {
	_, err := s.Repo.Append(ctx, domain.AuditLogEntry{
		UserID:       userID,
		ActionType:   domain.ActionSecurityThreatDetected,
		ActionTarget: entry.ID,
		ActionData: map[string]any{
			"reason":             "approval_hash_mismatch",
			"approval_id":        entry.ID,
			"action_type":        string(entry.ActionType),
			"supplied_hash_hash": cryptoinfra.SHA256Hex([]byte(suppliedHash)),
		},
		CreatedAt: s.now(),
	})
	if err != nil {
		log.Printf("failed to audit approval hash mismatch for %s: %v", entry.ID, err)
	}
}

func (s *ApprovalService) now() time.Time {
	if s.Clock != nil {
		return s.Clock()
	}
	return time.Now().UTC()
}
