package db

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"sentinel/internal/domain"

	"gorm.io/gorm"
)

type AuditLogRepository struct {
	db *gorm.DB
}

func NewAuditLogRepository(db *gorm.DB) *AuditLogRepository {
	return &AuditLogRepository{db: db}
}

// Append writes a new entry. The ledger is append-only: no update path exists
// here except TransitionIfPending, and no delete path exists at all.
func (r *AuditLogRepository) Append(ctx context.Context, entry domain.AuditLogEntry) (domain.AuditLogEntry, error) {
	if r.db == nil {
		return domain.AuditLogEntry{}, domain.ErrStoreUnavailable
	}
	if entry.UserID == "" {
		return domain.AuditLogEntry{}, fmt.Errorf("%w: user_id is required", domain.ErrValidation)
	}
	if entry.ActionType == "" {
		return domain.AuditLogEntry{}, fmt.Errorf("%w: action_type is required", domain.ErrValidation)
	}
	if entry.ID == "" {
		id, err := newUUID()
		if err != nil {
			return domain.AuditLogEntry{}, err
		}
		entry.ID = id
	}
	if entry.ApprovalStatus == "" {
		entry.ApprovalStatus = domain.ApprovalPending
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	} else {
		entry.CreatedAt = entry.CreatedAt.UTC()
	}
	entry.CreatedAt = entry.CreatedAt.Truncate(time.Microsecond)
	if entry.ActionData == nil {
		entry.ActionData = map[string]any{}
	}

	model, err := auditModelFromDomain(entry)
	if err != nil {
		return domain.AuditLogEntry{}, err
	}
	if err := r.db.WithContext(ctx).Create(&model).Error; err != nil {
		return domain.AuditLogEntry{}, fmt.Errorf("append audit entry: %w", err)
	}
	return entry, nil
}

func (r *AuditLogRepository) GetByID(ctx context.Context, id string) (*domain.AuditLogEntry, error) {
	if r.db == nil {
		return nil, domain.ErrStoreUnavailable
	}
	var model AuditLogEntryModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	entry, err := auditEntryFromModel(model)
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

func (r *AuditLogRepository) ListPendingByUser(ctx context.Context, userID string) ([]domain.AuditLogEntry, error) {
	if r.db == nil {
		return nil, domain.ErrStoreUnavailable
	}
	// Informational events are appended with a default pending status but no
	// hash; only hash-bearing entries are actionable approvals.
	var models []AuditLogEntryModel
	if err := r.db.WithContext(ctx).
		Where("user_id = ? AND approval_status = ? AND approval_hash IS NOT NULL", userID, string(domain.ApprovalPending)).
		Order("created_at DESC").
		Find(&models).Error; err != nil {
		return nil, err
	}
	out := make([]domain.AuditLogEntry, 0, len(models))
	for _, model := range models {
		entry, err := auditEntryFromModel(model)
		if err != nil {
			return nil, err
		}
		out = append(out, entry)
	}
	return out, nil
}

// TransitionIfPending moves an entry out of pending as a single conditional
// update. The status predicate makes the transition atomic: two concurrent
// callers cannot both observe an affected row.
func (r *AuditLogRepository) TransitionIfPending(ctx context.Context, id string, to domain.ApprovalStatus, approvedAt *time.Time) (bool, error) {
	if r.db == nil {
		return false, domain.ErrStoreUnavailable
	}
	if !to.Terminal() {
		return false, fmt.Errorf("%w: target status %q is not terminal", domain.ErrValidation, to)
	}
	updates := map[string]any{"approval_status": string(to)}
	if approvedAt != nil {
		ts := approvedAt.UTC()
		updates["approved_at"] = &ts
	}
	res := r.db.WithContext(ctx).
		Model(&AuditLogEntryModel{}).
		Where("id = ? AND approval_status = ?", id, string(domain.ApprovalPending)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func auditModelFromDomain(entry domain.AuditLogEntry) (AuditLogEntryModel, error) {
	dataJSON, err := json.Marshal(entry.ActionData)
	if err != nil {
		return AuditLogEntryModel{}, fmt.Errorf("marshal action_data: %w", err)
	}
	return AuditLogEntryModel{
		ID:             entry.ID,
		UserID:         entry.UserID,
		ActionType:     string(entry.ActionType),
		ActionTarget:   entry.ActionTarget,
		ActionDataJSON: dataJSON,
		ApprovalStatus: string(entry.ApprovalStatus),
		ApprovalHash:   stringPtrIfNotEmpty(entry.ApprovalHash),
		ApprovedAt:     entry.ApprovedAt,
		IPAddress:      stringPtrIfNotEmpty(entry.IPAddress),
		UserAgent:      stringPtrIfNotEmpty(entry.UserAgent),
		CreatedAt:      entry.CreatedAt.UTC(),
	}, nil
}

func auditEntryFromModel(model AuditLogEntryModel) (domain.AuditLogEntry, error) {
	data := map[string]any{}
	if len(model.ActionDataJSON) > 0 {
		if err := json.Unmarshal(model.ActionDataJSON, &data); err != nil {
			return domain.AuditLogEntry{}, fmt.Errorf("unmarshal action_data: %w", err)
		}
	}
	return domain.AuditLogEntry{
		ID:             model.ID,
		UserID:         model.UserID,
		ActionType:     domain.AuditActionType(model.ActionType),
		ActionTarget:   model.ActionTarget,
		ActionData:     data,
		ApprovalStatus: domain.ApprovalStatus(model.ApprovalStatus),
		ApprovalHash:   stringValue(model.ApprovalHash),
		ApprovedAt:     model.ApprovedAt,
		IPAddress:      stringValue(model.IPAddress),
		UserAgent:      stringValue(model.UserAgent),
		CreatedAt:      model.CreatedAt.UTC(),
	}, nil
}
