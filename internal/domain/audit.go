package domain

import "time"

type ApprovalStatus string

const (
	ApprovalPending  ApprovalStatus = "pending"
	ApprovalApproved ApprovalStatus = "approved"
	ApprovalRejected ApprovalStatus = "rejected"
	ApprovalExpired  ApprovalStatus = "expired"
)

// Terminal reports whether the status can never transition again.
// pending is the only non-terminal state; transitions are one-directional.
func (s ApprovalStatus) Terminal() bool {
	return s == ApprovalApproved || s == ApprovalRejected || s == ApprovalExpired
}

type AuditActionType string

const (
	ActionSecurityThreatDetected AuditActionType = "security_threat_detected"
	ActionRateLimitExceeded      AuditActionType = "rate_limit_exceeded"
	ActionLoginAnomalyDetected   AuditActionType = "login_anomaly_detected"
	ActionLoginAttempt           AuditActionType = "login_attempt"
	ActionPIIRedacted            AuditActionType = "pii_redacted"
	ActionApprovalRequested      AuditActionType = "approval_requested"

	// Action types with external effect; the governance policy decides which
	// of these require a human approval before execution.
	ActionAccountDelete      AuditActionType = "account_delete"
	ActionDataExport         AuditActionType = "data_export"
	ActionEmailSend          AuditActionType = "email_send"
	ActionSubscriptionCancel AuditActionType = "subscription_cancel"
)

// AuditLogEntry is an append-only record. After creation only ApprovalStatus
// and ApprovedAt may change, and only away from pending. Retention is an
// external concern; this layer never deletes entries.
type AuditLogEntry struct {
	ID             string
	UserID         string
	ActionType     AuditActionType
	ActionTarget   string
	ActionData     map[string]any
	ApprovalStatus ApprovalStatus
	ApprovalHash   string
	ApprovedAt     *time.Time
	IPAddress      string
	UserAgent      string
	CreatedAt      time.Time
}
