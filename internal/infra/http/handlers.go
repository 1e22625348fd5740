package http

import (
	"errors"
	"log"
	"net/http"
	"time"

	"sentinel/internal/domain"

	"github.com/gin-gonic/gin"
)

type errorResponse struct {
	Code    string         `json:"code"`
	Message string         `json:"message"`
	Details map[string]any `json:"details,omitempty"`
}

type sanitizeRequest struct {
	UserID string `json:"user_id"`
	Text   string `json:"text"`
}

type sandboxRequest struct {
	Text  string `json:"text"`
	Label string `json:"label"`
}

type createApprovalRequest struct {
	UserID       string         `json:"user_id"`
	ActionType   string         `json:"action_type"`
	ActionTarget string         `json:"action_target"`
	ActionData   map[string]any `json:"action_data"`
}

type createApprovalResponse struct {
	ApprovalID      string `json:"approval_id"`
	ApprovalHash    string `json:"approval_hash"`
	RequireApproval bool   `json:"require_approval"`
	ExpiresAt       string `json:"expires_at"`
}

type approveRequest struct {
	UserID       string `json:"user_id"`
	ApprovalHash string `json:"approval_hash"`
}

type approvalEntryResponse struct {
	ApprovalID   string         `json:"approval_id"`
	ActionType   string         `json:"action_type"`
	ActionTarget string         `json:"action_target"`
	ActionData   map[string]any `json:"action_data"`
	Status       string         `json:"status"`
	ApprovedAt   string         `json:"approved_at,omitempty"`
	CreatedAt    string         `json:"created_at"`
}

type quotaCheckRequest struct {
	UserID     string `json:"user_id"`
	ActionType string `json:"action_type"`
}

type quotaCheckResponse struct {
	Allowed      bool   `json:"allowed"`
	CurrentCount int    `json:"current_count"`
	Remaining    int    `json:"remaining"`
	ResetAt      string `json:"reset_at"`
	Tier         string `json:"tier"`
	RetryHint    string `json:"retry_hint,omitempty"`
}

type evaluateLoginRequest struct {
	UserID            string `json:"user_id"`
	IPAddress         string `json:"ip_address"`
	UserAgent         string `json:"user_agent"`
	DeviceFingerprint string `json:"device_fingerprint"`
	Success           bool   `json:"success"`
}

type evaluateLoginResponse struct {
	IsAnomalous   bool     `json:"is_anomalous"`
	RiskScore     int      `json:"risk_score"`
	Reasons       []string `json:"reasons"`
	Flags         []string `json:"flags"`
	RequireStepUp bool     `json:"require_step_up"`
	AlertSent     bool     `json:"alert_sent"`
	Location      gin.H    `json:"location"`
}

func (s *Server) handleSanitize(c *gin.Context) {
	var req sanitizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	// Every detected threat must reach the ledger, so the subject is not
	// optional on this route.
	if req.UserID == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "user_id is required")
		return
	}
	result := s.sanitizer.Sanitize(req.Text)

	redaction := s.redactor.RedactPII(result.Sanitized)
	result.Sanitized = redaction.Redacted
	result.PIIRedacted = len(redaction.PIITypes) > 0

	// Threat detection is non-fatal: content is returned redacted and
	// processing continues, but the event always reaches the ledger.
	if result.HasMaliciousContent && s.audit != nil {
		if err := s.audit.EmitSecurityThreat(c.Request.Context(), req.UserID, "sanitize", result.Threats, result.OriginalHash); err != nil {
			log.Printf("sanitize: audit emit failed: %v", err)
		}
	}
	if result.PIIRedacted && s.audit != nil {
		if err := s.audit.EmitPIIRedacted(c.Request.Context(), req.UserID, "sanitize", redaction.PIITypes, redaction.OriginalHash); err != nil {
			log.Printf("sanitize: audit emit failed: %v", err)
		}
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleSandbox(c *gin.Context) {
	var req sandboxRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	c.JSON(http.StatusOK, gin.H{"sandboxed": s.sanitizer.Sandbox(req.Text, req.Label)})
}

func (s *Server) handleRedact(c *gin.Context) {
	var req sanitizeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	if req.UserID == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "user_id is required")
		return
	}
	result := s.redactor.RedactPII(req.Text)
	if len(result.PIITypes) > 0 && s.audit != nil {
		if err := s.audit.EmitPIIRedacted(c.Request.Context(), req.UserID, "redact", result.PIITypes, result.OriginalHash); err != nil {
			log.Printf("redact: audit emit failed: %v", err)
		}
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleCreateApproval(c *gin.Context) {
	var req createApprovalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	result, err := s.approvals.CreateApprovalRequest(
		c.Request.Context(),
		req.UserID,
		domain.AuditActionType(req.ActionType),
		req.ActionTarget,
		req.ActionData,
	)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, createApprovalResponse{
		ApprovalID:      result.ID,
		ApprovalHash:    result.ApprovalHash,
		RequireApproval: result.RequireApproval,
		ExpiresAt:       result.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (s *Server) handleApprove(c *gin.Context) {
	approvalID := c.Param("approval_id")
	var req approveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	entry, err := s.approvals.ApproveAction(c.Request.Context(), approvalID, req.UserID, req.ApprovalHash)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, approvalEntryFromDomain(*entry))
}

func (s *Server) handleListPending(c *gin.Context) {
	userID := c.Query("user_id")
	if userID == "" {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "user_id query parameter is required")
		return
	}
	entries, err := s.approvals.GetPendingApprovals(c.Request.Context(), userID)
	if err != nil {
		writeError(c, err)
		return
	}
	out := make([]approvalEntryResponse, 0, len(entries))
	for _, entry := range entries {
		out = append(out, approvalEntryFromDomain(entry))
	}
	c.JSON(http.StatusOK, gin.H{"approvals": out})
}

func (s *Server) handleQuotaCheck(c *gin.Context) {
	var req quotaCheckRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	result, err := s.quota.CheckRateLimit(c.Request.Context(), req.UserID, req.ActionType)
	if err != nil {
		writeError(c, err)
		return
	}
	resp := quotaCheckResponse{
		Allowed:      result.Allowed,
		CurrentCount: result.CurrentCount,
		Remaining:    result.Remaining,
		ResetAt:      result.ResetAt.UTC().Format(time.RFC3339),
		Tier:         string(result.Tier),
		RetryHint:    result.RetryHint,
	}
	if !result.Allowed {
		writeRateLimitHeaders(c, domain.RateLimitDecision{
			Allowed: false,
			ResetAt: result.ResetAt,
		})
		c.JSON(http.StatusTooManyRequests, resp)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleEvaluateLogin(c *gin.Context) {
	var req evaluateLoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		writeErrorCode(c, http.StatusBadRequest, "INVALID_REQUEST", "invalid JSON body")
		return
	}
	eval, err := s.guard.EvaluateLogin(c.Request.Context(), req.UserID, req.IPAddress, req.UserAgent, req.DeviceFingerprint, req.Success)
	if err != nil {
		writeError(c, err)
		return
	}
	flags := make([]string, 0, len(eval.Anomaly.Flags))
	for _, f := range eval.Anomaly.Flags {
		flags = append(flags, string(f))
	}
	c.JSON(http.StatusOK, evaluateLoginResponse{
		IsAnomalous:   eval.Anomaly.IsAnomalous,
		RiskScore:     eval.Anomaly.RiskScore,
		Reasons:       eval.Anomaly.Reasons,
		Flags:         flags,
		RequireStepUp: eval.RequireStepUp,
		AlertSent:     eval.AlertSent,
		Location: gin.H{
			"city":         eval.Location.City,
			"region":       eval.Location.Region,
			"country":      eval.Location.Country,
			"country_code": eval.Location.CountryCode,
			"unknown":      eval.Location.Unknown,
		},
	})
}

func approvalEntryFromDomain(entry domain.AuditLogEntry) approvalEntryResponse {
	resp := approvalEntryResponse{
		ApprovalID:   entry.ID,
		ActionType:   string(entry.ActionType),
		ActionTarget: entry.ActionTarget,
		ActionData:   entry.ActionData,
		Status:       string(entry.ApprovalStatus),
		CreatedAt:    entry.CreatedAt.UTC().Format(time.RFC3339),
	}
	if entry.ApprovedAt != nil {
		resp.ApprovedAt = entry.ApprovedAt.UTC().Format(time.RFC3339)
	}
	return resp
}

func writeError(c *gin.Context, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, domain.ErrValidation):
		status, code = http.StatusBadRequest, "VALIDATION_FAILED"
	case errors.Is(err, domain.ErrApprovalHashMismatch):
		status, code = http.StatusForbidden, "APPROVAL_HASH_MISMATCH"
	case errors.Is(err, domain.ErrApprovalExpired):
		status, code = http.StatusGone, "APPROVAL_EXPIRED"
	case errors.Is(err, domain.ErrApprovalNotPending):
		status, code = http.StatusNotFound, "APPROVAL_NOT_PENDING"
	case errors.Is(err, domain.ErrRateLimited):
		status, code = http.StatusTooManyRequests, "RATE_LIMITED"
	case errors.Is(err, domain.ErrNotFound):
		status, code = http.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrStoreUnavailable):
		status, code = http.StatusServiceUnavailable, "STORE_UNAVAILABLE"
	}
	c.JSON(status, errorResponse{Code: code, Message: err.Error()})
}

func writeErrorCode(c *gin.Context, status int, code, message string) {
	c.JSON(status, errorResponse{Code: code, Message: message})
}
